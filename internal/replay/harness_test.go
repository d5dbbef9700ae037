package replay

import (
	"testing"
	"time"
)

func loudMorningFixture() *Fixture {
	base := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	f := &Fixture{
		Description: "volume alert, cooldown, then a no_change resolution",
		Preset:      "niosh",
		Deliveries: []FixtureDelivery{
			{
				At:         base,
				Headphones: true,
				Samples: []FixtureSample{
					{Start: base.Add(-10 * time.Minute), End: base, LevelDB: 88},
				},
			},
			{
				At:         base.Add(5 * time.Minute),
				Headphones: true,
				Samples: []FixtureSample{
					{Start: base, End: base.Add(5 * time.Minute), LevelDB: 88},
				},
			},
			{At: base.Add(6 * time.Minute)},
			{At: base.Add(11 * time.Minute)},
		},
		Expected: []FixtureExpected{
			{Delivery: 0, Trigger: "volume_alert"},
			{Delivery: 1, Trigger: ""},
		},
	}
	f.Settings.InstantVolumeAlerts = true
	return f
}

func TestReplay_LoudMorning(t *testing.T) {
	f := loudMorningFixture()
	results, summary := Replay(f)

	if len(results) != 4 {
		t.Fatalf("results: got %d, want 4", len(results))
	}
	if results[0].Trigger != "volume_alert" {
		t.Errorf("delivery 0 trigger: got %q, want volume_alert", results[0].Trigger)
	}
	if results[1].Trigger != "" || results[1].SkipReason != "intervention_cooldown" {
		t.Errorf("delivery 1: trigger=%q skip=%q", results[1].Trigger, results[1].SkipReason)
	}
	if results[2].SkipReason != "not_listening" {
		t.Errorf("delivery 2 skip: got %q", results[2].SkipReason)
	}
	// The full compliance window has elapsed by the last delivery with no
	// volume change: resolved as no_change.
	if results[3].ComplianceResolved != 1 {
		t.Errorf("delivery 3 resolved: got %d, want 1", results[3].ComplianceResolved)
	}

	if summary.Deliveries != 4 || summary.Evaluations != 4 {
		t.Errorf("summary counts: %+v", summary)
	}
	if summary.Interventions != 1 || summary.TriggerCounts["volume_alert"] != 1 {
		t.Errorf("summary interventions: %+v", summary)
	}
	if summary.ComplianceResolved != 1 {
		t.Errorf("summary resolved: got %d, want 1", summary.ComplianceResolved)
	}
	if summary.FinalDosePercent <= 0 {
		t.Errorf("final dose: got %v", summary.FinalDosePercent)
	}
}

func TestReplay_Deterministic(t *testing.T) {
	f := loudMorningFixture()
	_, first := Replay(f)
	_, second := Replay(f)
	if first.Interventions != second.Interventions ||
		first.FinalDosePercent != second.FinalDosePercent ||
		first.ComplianceResolved != second.ComplianceResolved {
		t.Errorf("replay not deterministic: %+v vs %+v", first, second)
	}
}

func TestVerify(t *testing.T) {
	f := loudMorningFixture()
	results, _ := Replay(f)

	if mismatches := Verify(f, results); len(mismatches) != 0 {
		t.Errorf("unexpected mismatches: %v", mismatches)
	}

	// A wrong expectation is reported.
	f.Expected = append(f.Expected, FixtureExpected{Delivery: 2, Trigger: "limit_reached"})
	mismatches := Verify(f, results)
	if len(mismatches) != 1 {
		t.Fatalf("mismatches: got %d, want 1", len(mismatches))
	}
	if mismatches[0].Delivery != 2 || mismatches[0].Got != "" {
		t.Errorf("mismatch: %+v", mismatches[0])
	}

	// Out-of-range expectations are reported, not skipped.
	f.Expected = []FixtureExpected{{Delivery: 99, Trigger: "x"}}
	if got := Verify(f, results); len(got) != 1 {
		t.Errorf("out-of-range: got %v", got)
	}
}
