package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/agent"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/dose"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a recorded
// day of sample deliveries plus the expected agent behavior.
type Fixture struct {
	Description string            `json:"description"`
	Preset      string            `json:"preset"` // "niosh" | "osha"
	Settings    FixtureSettings   `json:"settings"`
	Deliveries  []FixtureDelivery `json:"deliveries"`
	Expected    []FixtureExpected `json:"expected"`
}

// FixtureSettings mirrors agent.Settings with JSON tags.
type FixtureSettings struct {
	DailyLimitPercent   float64 `json:"daily_limit_percent"`
	VolumeThresholdDB   float64 `json:"volume_threshold_db"`
	BreakReminders      bool    `json:"break_reminders"`
	BreakIntervalMin    int     `json:"break_interval_minutes"`
	BreakDurationMin    int     `json:"break_duration_minutes"`
	InstantVolumeAlerts bool    `json:"instant_volume_alerts"`

	QuietHours struct {
		Enabled     bool `json:"enabled"`
		StartMinute int  `json:"start_minute"`
		EndMinute   int  `json:"end_minute"`
		Strict      bool `json:"strict"`
	} `json:"quiet_hours"`
}

// FixtureSample mirrors dose.Sample with JSON tags.
type FixtureSample struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	LevelDB float64   `json:"level_db"`
}

// FixtureDelivery is one batch arrival: the clock advances to At and the
// batch's samples join the day.
type FixtureDelivery struct {
	At         time.Time       `json:"at"`
	Headphones bool            `json:"headphones"`
	Samples    []FixtureSample `json:"samples"`
}

// FixtureExpected pins the expected trigger for one delivery index. An
// empty trigger asserts that no intervention fired there.
type FixtureExpected struct {
	Delivery int    `json:"delivery"`
	Trigger  string `json:"trigger"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Standards maps the fixture preset to its dose standard.
func (f *Fixture) Standards() dose.Standards {
	if f.Preset == "osha" {
		return dose.OSHA
	}
	return dose.NIOSH
}

// ToSettings converts fixture settings to domain settings. Zero limit and
// threshold fall back to the product defaults so sparse fixtures stay short.
func (s *FixtureSettings) ToSettings() agent.Settings {
	settings := agent.Settings{
		DailyLimitPercent:          s.DailyLimitPercent,
		VolumeThresholdDB:          s.VolumeThresholdDB,
		BreakRemindersEnabled:      s.BreakReminders,
		BreakInterval:              time.Duration(s.BreakIntervalMin) * time.Minute,
		BreakDuration:              time.Duration(s.BreakDurationMin) * time.Minute,
		InstantVolumeAlertsEnabled: s.InstantVolumeAlerts,
		QuietHoursEnabled:          s.QuietHours.Enabled,
		QuietHoursStartMinute:      s.QuietHours.StartMinute,
		QuietHoursEndMinute:        s.QuietHours.EndMinute,
		QuietHoursStrict:           s.QuietHours.Strict,
	}
	if settings.DailyLimitPercent == 0 {
		settings.DailyLimitPercent = 100
	}
	if settings.VolumeThresholdDB == 0 {
		settings.VolumeThresholdDB = 85
	}
	if settings.BreakInterval == 0 {
		settings.BreakInterval = 60 * time.Minute
	}
	if settings.BreakDuration == 0 {
		settings.BreakDuration = 5 * time.Minute
	}
	return settings
}

// ToSamples converts a delivery's samples to domain samples.
func (d *FixtureDelivery) ToSamples() []dose.Sample {
	samples := make([]dose.Sample, 0, len(d.Samples))
	for _, s := range d.Samples {
		samples = append(samples, dose.Sample{Start: s.Start, End: s.End, LevelDB: s.LevelDB})
	}
	return samples
}

// #endregion fixture-loader
