package advisor

import (
	"strings"
	"testing"
	"time"
)

func TestParseDecision_PlainJSON(t *testing.T) {
	d, ok := ParseDecision(`{"action":"notify","title":"Heads up","body":"Dose is climbing","reason":"high burn"}`)
	if !ok {
		t.Fatal("expected a decision")
	}
	if d.Action != ActionNotify || d.Title != "Heads up" || d.Body != "Dose is climbing" {
		t.Errorf("got %+v", d)
	}
}

func TestParseDecision_EmbeddedInProse(t *testing.T) {
	raw := "Sure, here is my decision:\n```json\n{\"action\":\"break\",\"breakMinutes\":10}\n```\nLet me know."
	d, ok := ParseDecision(raw)
	if !ok {
		t.Fatal("expected a decision from fenced JSON")
	}
	if d.Action != ActionBreak || d.BreakMinutes != 10 {
		t.Errorf("got %+v", d)
	}
}

func TestParseDecision_BalancedBraces(t *testing.T) {
	// A nested-looking brace inside a string must not break the span scan.
	raw := `prefix {"action":"notify","body":"use the {mute} button"} suffix`
	d, ok := ParseDecision(raw)
	if !ok {
		t.Fatal("expected a decision")
	}
	if d.Body != "use the {mute} button" {
		t.Errorf("body: got %q", d.Body)
	}
}

func TestParseDecision_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no-object", "I decline to answer."},
		{"unclosed", `{"action":"notify"`},
		{"bad-json", `{"action":notify}`},
		{"unknown-action", `{"action":"reboot"}`},
		{"missing-action", `{"title":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := ParseDecision(tt.raw); ok {
				t.Error("expected no decision")
			}
		})
	}
}

func TestParseDecision_ClampsSettings(t *testing.T) {
	d, ok := ParseDecision(`{"action":"adjust_settings","setDailyLimit":150,"setVolumeThresholdDB":20}`)
	if !ok {
		t.Fatal("expected a decision")
	}
	if d.SetDailyLimit == nil || *d.SetDailyLimit != 100 {
		t.Errorf("daily limit: got %v, want clamp to 100", d.SetDailyLimit)
	}
	if d.SetVolumeThresholdDB == nil || *d.SetVolumeThresholdDB != 60 {
		t.Errorf("volume threshold: got %v, want clamp to 60", d.SetVolumeThresholdDB)
	}

	d, _ = ParseDecision(`{"action":"adjust_settings","setDailyLimit":40}`)
	if d.SetDailyLimit == nil || *d.SetDailyLimit != 70 {
		t.Errorf("daily limit: got %v, want clamp to 70", d.SetDailyLimit)
	}
}

func TestParseDecision_NegativeBreakMinutes(t *testing.T) {
	d, ok := ParseDecision(`{"action":"break","breakMinutes":-5}`)
	if !ok {
		t.Fatal("expected a decision")
	}
	if d.BreakMinutes != 0 {
		t.Errorf("break minutes: got %d, want 0", d.BreakMinutes)
	}
}

func TestBuildPrompt(t *testing.T) {
	eta := 25 * time.Minute
	p := BuildPrompt(Context{
		DosePercent:         62.5,
		BurnRatePerHour:     15,
		ETAToLimit:          &eta,
		IsActivelyListening: true,
		CurrentLevelDB:      88,
		SessionLength:       70 * time.Minute,
		DailyLimitPercent:   100,
		VolumeThresholdDB:   85,
		QuietHoursActive:    false,
	})

	for _, want := range []string{"62.5%", "25 minutes", "88.0 dB", "adjust_settings", "70 minutes"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	p = BuildPrompt(Context{})
	if !strings.Contains(p, "none (not accruing)") {
		t.Error("nil eta should render as not accruing")
	}
}
