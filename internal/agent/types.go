package agent

import (
	"context"
	"time"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/advisor"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/dose"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/event"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/insight"
)

// #region settings

// Settings is the caller-supplied snapshot of user preferences. The loop
// never mutates it directly; advisor adjustments go through SettingsWriter.
type Settings struct {
	DailyLimitPercent          float64
	VolumeThresholdDB          float64
	BreakRemindersEnabled      bool
	BreakInterval              time.Duration
	BreakDuration              time.Duration
	InstantVolumeAlertsEnabled bool
	QuietHoursEnabled          bool
	QuietHoursStartMinute      int // minutes since midnight, local time
	QuietHoursEndMinute        int
	QuietHoursStrict           bool
}

// DefaultSettings returns the product defaults.
func DefaultSettings() Settings {
	return Settings{
		DailyLimitPercent:          100,
		VolumeThresholdDB:          85,
		BreakRemindersEnabled:      true,
		BreakInterval:              60 * time.Minute,
		BreakDuration:              5 * time.Minute,
		InstantVolumeAlertsEnabled: true,
	}
}

// #endregion settings

// #region config

// Config tunes the evaluation loop's cooldowns and thresholds.
type Config struct {
	EvaluationCooldown    time.Duration
	InterventionCooldown  time.Duration
	BreakReminderCooldown time.Duration
	SyncCooldown          time.Duration
	ETAWarningThreshold   time.Duration
	SessionGap            time.Duration
	AdvisorTimeout        time.Duration
	BurnRate              dose.BurnRateOptions
}

// DefaultConfig returns the standard cadence.
func DefaultConfig() Config {
	return Config{
		EvaluationCooldown:    60 * time.Second,
		InterventionCooldown:  10 * time.Minute,
		BreakReminderCooldown: 30 * time.Minute,
		SyncCooldown:          10 * time.Minute,
		ETAWarningThreshold:   30 * time.Minute,
		SessionGap:            5 * time.Minute,
		AdvisorTimeout:        10 * time.Second,
		BurnRate:              dose.DefaultBurnRateOptions(),
	}
}

// #endregion config

// #region ports

// Notifier delivers user-facing notifications. Fire-and-forget: the loop
// ignores delivery mechanics.
type Notifier interface {
	SendLimitReached(dosePercent float64)
	SendETAWarning(eta time.Duration)
	SendBreakReminder(sessionMinutes, breakMinutes int)
	SendVolumeSuggestion(levelDB, dosePercent float64)
	SendAgentNotification(title, body string)
}

// Syncer triggers an incremental data resync with the sample platform.
type Syncer interface {
	TriggerIncrementalSync(ctx context.Context) error
}

// SettingsWriter applies clamped settings adjustments requested by the
// advisor path.
type SettingsWriter interface {
	SetDailyLimitPercent(v float64) error
	SetVolumeThresholdDB(v float64) error
}

// Advisor is the optional external decision source. A nil decision means
// "no decision" and the loop falls back to built-in rules.
type Advisor interface {
	Decide(ctx context.Context, c advisor.Context) (*advisor.Decision, error)
}

// Store is the loop's persistence surface for interventions and
// observability records.
type Store interface {
	AppendIntervention(event.Intervention) error
	RecordSync(startedAt time.Time, duration time.Duration, err error) error
	LogDecision(at time.Time, gate, trigger, action string, dosePercent float64, reason string) error
}

// #endregion ports

// #region cycle-io

// CycleInput is one evaluation cycle's already-fetched, deduplicated data.
type CycleInput struct {
	Now             time.Time // zero means "use the loop clock"
	DaySamples      []dose.Sample
	RecentSamples   []dose.Sample
	Settings        Settings
	HeadphoneOutput bool
}

// CycleResult reports what one evaluation cycle did.
type CycleResult struct {
	Evaluated          bool
	SkipReason         string
	Dose               dose.DoseResult
	Insight            insight.Insight
	Intervention       *event.Intervention
	SyncAttempted      bool
	SyncErr            error
	ComplianceResolved int
}

// #endregion cycle-io
