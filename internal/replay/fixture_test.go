package replay

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFixture(t *testing.T) {
	content := `{
		"description": "one loud morning",
		"preset": "osha",
		"settings": {
			"daily_limit_percent": 80,
			"volume_threshold_db": 82,
			"instant_volume_alerts": true,
			"quiet_hours": {"enabled": true, "start_minute": 1320, "end_minute": 420, "strict": false}
		},
		"deliveries": [
			{
				"at": "2026-03-09T09:00:00Z",
				"headphones": true,
				"samples": [
					{"start": "2026-03-09T08:50:00Z", "end": "2026-03-09T09:00:00Z", "level_db": 88}
				]
			}
		],
		"expected": [
			{"delivery": 0, "trigger": "volume_alert"}
		]
	}`
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	f, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Description != "one loud morning" {
		t.Errorf("description: got %q", f.Description)
	}
	if f.Standards().ReferenceLevelDB != 90 {
		t.Errorf("osha preset should map to 90 dB reference")
	}
	if len(f.Deliveries) != 1 || len(f.Deliveries[0].Samples) != 1 {
		t.Fatalf("deliveries: %+v", f.Deliveries)
	}
	if f.Deliveries[0].Samples[0].LevelDB != 88 {
		t.Errorf("level: got %v", f.Deliveries[0].Samples[0].LevelDB)
	}
	if len(f.Expected) != 1 || f.Expected[0].Trigger != "volume_alert" {
		t.Errorf("expected: %+v", f.Expected)
	}

	settings := f.Settings.ToSettings()
	if settings.DailyLimitPercent != 80 || settings.VolumeThresholdDB != 82 {
		t.Errorf("settings: %+v", settings)
	}
	if !settings.QuietHoursEnabled || settings.QuietHoursStartMinute != 1320 {
		t.Errorf("quiet hours: %+v", settings)
	}
}

func TestLoadFixture_MissingFile(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFixture_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{not json"), 0644)
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestToSettings_Defaults(t *testing.T) {
	var s FixtureSettings
	settings := s.ToSettings()
	if settings.DailyLimitPercent != 100 {
		t.Errorf("daily limit default: got %v, want 100", settings.DailyLimitPercent)
	}
	if settings.VolumeThresholdDB != 85 {
		t.Errorf("volume threshold default: got %v, want 85", settings.VolumeThresholdDB)
	}
	if settings.BreakInterval != 60*time.Minute || settings.BreakDuration != 5*time.Minute {
		t.Errorf("break timing defaults: %v/%v", settings.BreakInterval, settings.BreakDuration)
	}
}

func TestFixtureStandardsDefault(t *testing.T) {
	f := Fixture{Preset: "anything-else"}
	if f.Standards().ReferenceLevelDB != 85 {
		t.Error("unknown preset should fall back to NIOSH")
	}
}
