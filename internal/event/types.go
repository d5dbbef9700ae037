package event

import "time"

// #region trigger

// Trigger records what caused an intervention.
type Trigger string

const (
	TriggerLimitReached  Trigger = "limit_reached"
	TriggerETAWarning    Trigger = "eta_warning"
	TriggerBreakReminder Trigger = "break_reminder"
	TriggerVolumeAlert   Trigger = "volume_alert"
	TriggerAdvisor       Trigger = "advisor"
	TriggerSync          Trigger = "sync"
)

// #endregion trigger

// #region action

// Action is the kind of step the agent took.
type Action string

const (
	ActionNotify         Action = "notify"
	ActionBreak          Action = "break"
	ActionSync           Action = "sync"
	ActionAdjustSettings Action = "adjust_settings"
)

// #endregion action

// #region outcome

// Outcome classifies user behavior in the window following an intervention.
type Outcome string

const (
	OutcomeStoppedListening Outcome = "stopped_listening"
	OutcomeVolumeReduced    Outcome = "volume_reduced"
	OutcomeNoChange         Outcome = "no_change"
)

// #endregion outcome

// #region intervention

// Intervention is created when the agent acts and resolved at most once by
// the compliance tracker.
type Intervention struct {
	ID              string
	Timestamp       time.Time
	Trigger         Trigger
	Action          Action
	Message         string
	DosePercent     float64
	ETASeconds      *float64
	BurnRatePerHour *float64
	SessionID       string
	Resolved        bool
	ResolvedAt      *time.Time
	Outcome         Outcome // empty until resolved
}

// #endregion intervention

// #region compliance

// Compliance is the append-only record of one intervention's resolution.
type Compliance struct {
	ID               string
	InterventionID   string
	Timestamp        time.Time
	Outcome          Outcome
	ResponseSeconds  *float64
	VolumeDeltaDB    *float64
	StoppedListening bool
}

// #endregion compliance
