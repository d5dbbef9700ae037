package agent

import "time"

// #region state

// State is the loop's cross-cycle memory. Mutated only inside a single
// Evaluate call; callers guarantee cycles never overlap. Zero timestamps
// fail closed: a gate with no history permits its action.
type State struct {
	LastEvaluatedAt     time.Time
	LastInterventionAt  time.Time
	LastBreakReminderAt time.Time
	LastSyncAttemptAt   time.Time
	LastSyncAt          time.Time
	LastDosePercent     float64
	LastBurnRatePerHour float64
	LastETA             *time.Duration
}

// #endregion state

// #region cooldown

// cooldownElapsed reports whether enough time has passed since last.
// A zero last means the gate has never fired and the action is permitted.
func cooldownElapsed(now, last time.Time, cooldown time.Duration) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= cooldown
}

// #endregion cooldown
