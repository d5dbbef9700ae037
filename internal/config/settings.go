package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/agent"
)

// #region settings-file

// settingsFile is the YAML shape of the user preferences file.
type settingsFile struct {
	DailyLimitPercent   *float64 `yaml:"daily_limit_percent"`
	VolumeThresholdDB   *float64 `yaml:"volume_threshold_db"`
	InstantVolumeAlerts *bool    `yaml:"instant_volume_alerts"`

	BreakReminders struct {
		Enabled         *bool `yaml:"enabled"`
		IntervalMinutes int   `yaml:"interval_minutes"`
		DurationMinutes int   `yaml:"duration_minutes"`
	} `yaml:"break_reminders"`

	QuietHours struct {
		Enabled bool   `yaml:"enabled"`
		Start   string `yaml:"start"` // "HH:MM"
		End     string `yaml:"end"`
		Strict  bool   `yaml:"strict"`
	} `yaml:"quiet_hours"`
}

// #endregion settings-file

// #region load-settings

// LoadSettings reads the YAML preferences file, applying product defaults
// for anything unset. A missing file yields the defaults unchanged.
func LoadSettings(path string) (agent.Settings, error) {
	settings := agent.DefaultSettings()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("read settings: %w", err)
	}

	var f settingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return settings, fmt.Errorf("parse settings: %w", err)
	}

	if f.DailyLimitPercent != nil {
		settings.DailyLimitPercent = *f.DailyLimitPercent
	}
	if f.VolumeThresholdDB != nil {
		settings.VolumeThresholdDB = *f.VolumeThresholdDB
	}
	if f.InstantVolumeAlerts != nil {
		settings.InstantVolumeAlertsEnabled = *f.InstantVolumeAlerts
	}
	if f.BreakReminders.Enabled != nil {
		settings.BreakRemindersEnabled = *f.BreakReminders.Enabled
	}
	if f.BreakReminders.IntervalMinutes > 0 {
		settings.BreakInterval = time.Duration(f.BreakReminders.IntervalMinutes) * time.Minute
	}
	if f.BreakReminders.DurationMinutes > 0 {
		settings.BreakDuration = time.Duration(f.BreakReminders.DurationMinutes) * time.Minute
	}

	settings.QuietHoursEnabled = f.QuietHours.Enabled
	settings.QuietHoursStrict = f.QuietHours.Strict
	if f.QuietHours.Enabled {
		start, err := parseClock(f.QuietHours.Start)
		if err != nil {
			return settings, fmt.Errorf("quiet_hours.start: %w", err)
		}
		end, err := parseClock(f.QuietHours.End)
		if err != nil {
			return settings, fmt.Errorf("quiet_hours.end: %w", err)
		}
		settings.QuietHoursStartMinute = start
		settings.QuietHoursEndMinute = end
	}

	return settings, nil
}

// #endregion load-settings

// #region clock-parsing

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("hour in %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("minute in %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("out of range: %q", s)
	}
	return h*60 + m, nil
}

// #endregion clock-parsing
