package agent

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/advisor"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/compliance"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/dose"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/event"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/insight"
)

// #region loop-struct

// Loop is the stateful decision core. One Evaluate call per delivered sample
// batch; the caller serializes cycles, so no internal locking.
type Loop struct {
	standards      dose.Standards
	config         Config
	state          State
	notifier       Notifier
	syncer         Syncer
	settingsWriter SettingsWriter
	advisor        Advisor
	store          Store
	tracker        *compliance.Tracker
	enabled        bool
	now            func() time.Time
}

// Deps bundles the loop's collaborators. Advisor and Now are optional.
type Deps struct {
	Notifier Notifier
	Syncer   Syncer
	Settings SettingsWriter
	Advisor  Advisor
	Store    Store
	Tracker  *compliance.Tracker
	Now      func() time.Time
}

// NewLoop creates a fully wired evaluation loop.
// Kill switch: set AGENT_ENABLED=false to disable all interventions.
func NewLoop(standards dose.Standards, config Config, deps Deps) *Loop {
	enabled := true
	if v := os.Getenv("AGENT_ENABLED"); v == "false" {
		enabled = false
	}
	nowFn := deps.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Loop{
		standards:      standards,
		config:         config,
		notifier:       deps.Notifier,
		syncer:         deps.Syncer,
		settingsWriter: deps.Settings,
		advisor:        deps.Advisor,
		store:          deps.Store,
		tracker:        deps.Tracker,
		enabled:        enabled,
		now:            nowFn,
	}
}

// State returns a copy of the loop's cross-cycle memory.
func (l *Loop) State() State {
	return l.state
}

// RestoreState seeds the loop's memory, e.g. from a persisted snapshot.
func (l *Loop) RestoreState(s State) {
	l.state = s
}

// #endregion loop-struct

// #region evaluate

// Evaluate runs one full decision cycle: cooldown gate, quiet-hours gate,
// listening guard, periodic sync, advisor override or rule fallback, then
// the compliance pass. At most one intervention per cycle.
func (l *Loop) Evaluate(ctx context.Context, input CycleInput) CycleResult {
	now := input.Now
	if now.IsZero() {
		now = l.now()
	}

	var res CycleResult

	// Step 1: evaluation cooldown. Stamp before proceeding so a re-entrant
	// call cannot double-evaluate.
	if !cooldownElapsed(now, l.state.LastEvaluatedAt, l.config.EvaluationCooldown) {
		res.SkipReason = "evaluation_cooldown"
		return res
	}
	l.state.LastEvaluatedAt = now
	res.Evaluated = true

	burn := l.standards.AnalyzeBurnRate(input.RecentSamples, now, input.HeadphoneOutput, l.config.BurnRate)
	res.Dose = l.standards.CalculateDailyDose(input.DaySamples)
	eta := dose.ETAToLimit(res.Dose.DosePercent, input.Settings.DailyLimitPercent, burn.PerHourPercent, burn.IsActivelyListening)
	res.Insight = insight.Classify(res.Dose, burn, eta)

	quiet := quietHoursActive(now, input.Settings)

	// Step 2: quiet-hours gate. Non-strict quiet hours suppress all new
	// interventions; the compliance pass still runs.
	if quiet && !input.Settings.QuietHoursStrict {
		res.SkipReason = "quiet_hours"
		l.logGate(now, "quiet_hours", res.Dose.DosePercent)
		l.finish(&res, input, now, burn, eta)
		return res
	}

	// Step 3: listening guard. No new intervention unless actively listening
	// on headphones with a recent sample.
	if !res.Insight.IsActivelyListening || !input.HeadphoneOutput || burn.LastSampleEnd.IsZero() {
		res.SkipReason = "not_listening"
		l.finish(&res, input, now, burn, eta)
		return res
	}

	// Periodic background resync: its own cooldown, independent of the
	// intervention branches, and never blocking on failure.
	l.maybeSync(ctx, now, &res)

	// Step 4: intervention cooldown bounds notification frequency.
	if !cooldownElapsed(now, l.state.LastInterventionAt, l.config.InterventionCooldown) {
		res.SkipReason = "intervention_cooldown"
		l.finish(&res, input, now, burn, eta)
		return res
	}

	// Kill switch: keep computing and resolving compliance, take no actions.
	if !l.enabled {
		res.SkipReason = "disabled"
		l.finish(&res, input, now, burn, eta)
		return res
	}

	session, hasSession := CurrentSession(input.DaySamples, l.config.SessionGap)
	currentLevel := lastLevel(input.RecentSamples)

	// Step 5: optional advisory override.
	if l.advisor != nil {
		if iv := l.tryAdvisor(ctx, now, input, res.Dose, burn, eta, session, currentLevel, quiet); iv != nil {
			res.Intervention = iv
			l.finish(&res, input, now, burn, eta)
			return res
		}
	}

	// Step 6: built-in rule fallback, first match wins.
	res.Intervention = l.applyRules(now, input, res.Dose, burn, eta, session, hasSession, currentLevel)

	l.finish(&res, input, now, burn, eta)
	return res
}

// finish applies step 7: state bookkeeping plus the compliance pass, on
// every path that got past the evaluation cooldown.
func (l *Loop) finish(res *CycleResult, input CycleInput, now time.Time, burn dose.BurnRate, eta *time.Duration) {
	l.state.LastDosePercent = res.Dose.DosePercent
	l.state.LastBurnRatePerHour = burn.PerHourPercent
	l.state.LastETA = eta
	if l.tracker != nil {
		res.ComplianceResolved = l.tracker.Run(input.DaySamples)
	}
}

// #endregion evaluate

// #region sync-pass

// maybeSync triggers an incremental resync when both the attempt cooldown
// and the last-success cooldown have elapsed. Failures are recorded for
// observability and never abort the cycle.
func (l *Loop) maybeSync(ctx context.Context, now time.Time, res *CycleResult) {
	if l.syncer == nil {
		return
	}
	if !cooldownElapsed(now, l.state.LastSyncAttemptAt, l.config.SyncCooldown) {
		return
	}
	if !cooldownElapsed(now, l.state.LastSyncAt, l.config.SyncCooldown) {
		return
	}

	l.state.LastSyncAttemptAt = now
	res.SyncAttempted = true

	start := time.Now()
	err := l.syncer.TriggerIncrementalSync(ctx)
	elapsed := time.Since(start)

	res.SyncErr = err
	if err != nil {
		log.Printf("[AGENT] sync failed after %v: %v", elapsed, err)
	} else {
		l.state.LastSyncAt = now
	}
	if l.store != nil {
		if serr := l.store.RecordSync(now, elapsed, err); serr != nil {
			log.Printf("[AGENT] record sync: %v", serr)
		}
	}
}

// #endregion sync-pass

// #region advisor-path

// tryAdvisor asks the external advisor for a decision and applies it under
// the loop's guardrails. Returns the recorded intervention when an action
// was taken, nil to fall through to the built-in rules.
func (l *Loop) tryAdvisor(
	ctx context.Context,
	now time.Time,
	input CycleInput,
	d dose.DoseResult,
	burn dose.BurnRate,
	eta *time.Duration,
	session Session,
	currentLevel float64,
	quiet bool,
) *event.Intervention {
	actx, cancel := context.WithTimeout(ctx, l.config.AdvisorTimeout)
	defer cancel()

	decision, err := l.advisor.Decide(actx, advisor.Context{
		DosePercent:         d.DosePercent,
		BurnRatePerHour:     burn.PerHourPercent,
		ETAToLimit:          eta,
		IsActivelyListening: burn.IsActivelyListening,
		CurrentLevelDB:      currentLevel,
		SessionLength:       session.Length(),
		DailyLimitPercent:   input.Settings.DailyLimitPercent,
		VolumeThresholdDB:   input.Settings.VolumeThresholdDB,
		QuietHoursActive:    quiet,
	})
	if err != nil {
		log.Printf("[AGENT] advisor unavailable, falling back to rules: %v", err)
		return nil
	}
	if decision == nil || decision.Action == advisor.ActionNone {
		return nil
	}

	// Guardrail: quiet hours (non-strict) suppress notify/break regardless
	// of what the advisor requested.
	suppressible := decision.Action == advisor.ActionNotify || decision.Action == advisor.ActionBreak
	if suppressible && quiet && !input.Settings.QuietHoursStrict {
		log.Printf("[AGENT] advisor %s suppressed by quiet hours", decision.Action)
		return nil
	}

	switch decision.Action {
	case advisor.ActionNotify:
		title := decision.Title
		if title == "" {
			title = "Hearing check"
		}
		body := decision.Body
		if body == "" {
			body = decision.Reason
		}
		l.notifier.SendAgentNotification(title, body)
		return l.record(now, event.TriggerAdvisor, event.ActionNotify, body, d, eta, burn, session.Key)

	case advisor.ActionBreak:
		breakMinutes := decision.BreakMinutes
		if breakMinutes == 0 {
			breakMinutes = int(input.Settings.BreakDuration.Minutes())
		}
		l.notifier.SendBreakReminder(int(session.Length().Minutes()), breakMinutes)
		l.state.LastBreakReminderAt = now
		return l.record(now, event.TriggerAdvisor, event.ActionBreak, decision.Reason, d, eta, burn, session.Key)

	case advisor.ActionSync:
		l.state.LastSyncAttemptAt = now
		start := time.Now()
		err := l.syncIfConfigured(ctx)
		elapsed := time.Since(start)
		if err == nil {
			l.state.LastSyncAt = now
		}
		if l.store != nil {
			if serr := l.store.RecordSync(now, elapsed, err); serr != nil {
				log.Printf("[AGENT] record sync: %v", serr)
			}
		}
		return l.record(now, event.TriggerAdvisor, event.ActionSync, decision.Reason, d, eta, burn, session.Key)

	case advisor.ActionAdjustSettings:
		applied := l.applyAdjustments(decision)
		if !applied {
			return nil
		}
		return l.record(now, event.TriggerAdvisor, event.ActionAdjustSettings, decision.Reason, d, eta, burn, session.Key)
	}
	return nil
}

func (l *Loop) syncIfConfigured(ctx context.Context) error {
	if l.syncer == nil {
		return fmt.Errorf("no syncer configured")
	}
	sctx, cancel := context.WithTimeout(ctx, l.config.AdvisorTimeout)
	defer cancel()
	return l.syncer.TriggerIncrementalSync(sctx)
}

// applyAdjustments clamps and writes settings changes. The clamp runs here
// as well as at decode time because the guardrail holds for any Advisor
// implementation.
func (l *Loop) applyAdjustments(decision *advisor.Decision) bool {
	if l.settingsWriter == nil {
		return false
	}
	applied := false
	if decision.SetDailyLimit != nil {
		v := clampFloat(*decision.SetDailyLimit, advisor.MinDailyLimitPercent, advisor.MaxDailyLimitPercent)
		if err := l.settingsWriter.SetDailyLimitPercent(v); err != nil {
			log.Printf("[AGENT] set daily limit: %v", err)
		} else {
			applied = true
		}
	}
	if decision.SetVolumeThresholdDB != nil {
		v := clampFloat(*decision.SetVolumeThresholdDB, advisor.MinVolumeThresholdDB, advisor.MaxVolumeThresholdDB)
		if err := l.settingsWriter.SetVolumeThresholdDB(v); err != nil {
			log.Printf("[AGENT] set volume threshold: %v", err)
		} else {
			applied = true
		}
	}
	return applied
}

// #endregion advisor-path

// #region rule-fallback

// applyRules evaluates the built-in branches in strict priority order.
// Exactly one branch may fire per cycle.
func (l *Loop) applyRules(
	now time.Time,
	input CycleInput,
	d dose.DoseResult,
	burn dose.BurnRate,
	eta *time.Duration,
	session Session,
	hasSession bool,
	currentLevel float64,
) *event.Intervention {
	settings := input.Settings

	// a. Daily limit reached.
	if d.DosePercent >= settings.DailyLimitPercent {
		l.notifier.SendLimitReached(d.DosePercent)
		msg := fmt.Sprintf("Daily limit reached: %.0f%% of %.0f%%.", d.DosePercent, settings.DailyLimitPercent)
		return l.record(now, event.TriggerLimitReached, event.ActionNotify, msg, d, eta, burn, session.Key)
	}

	// b. Limit within the warning horizon.
	if eta != nil && *eta <= l.config.ETAWarningThreshold {
		l.notifier.SendETAWarning(*eta)
		msg := fmt.Sprintf("About %.0f minutes until the daily limit.", eta.Minutes())
		return l.record(now, event.TriggerETAWarning, event.ActionNotify, msg, d, eta, burn, session.Key)
	}

	// c. Long continuous session.
	if settings.BreakRemindersEnabled && hasSession &&
		session.Length() >= settings.BreakInterval &&
		cooldownElapsed(now, l.state.LastBreakReminderAt, l.config.BreakReminderCooldown) {
		sessionMinutes := int(session.Length().Minutes())
		breakMinutes := int(settings.BreakDuration.Minutes())
		l.notifier.SendBreakReminder(sessionMinutes, breakMinutes)
		l.state.LastBreakReminderAt = now
		msg := fmt.Sprintf("Listening for %d minutes straight. Take %d minutes off.", sessionMinutes, breakMinutes)
		return l.record(now, event.TriggerBreakReminder, event.ActionBreak, msg, d, eta, burn, session.Key)
	}

	// d. Instant volume alert.
	if settings.InstantVolumeAlertsEnabled && currentLevel >= settings.VolumeThresholdDB {
		l.notifier.SendVolumeSuggestion(currentLevel, d.DosePercent)
		msg := fmt.Sprintf("Current level %.0f dB is over the %.0f dB threshold.", currentLevel, settings.VolumeThresholdDB)
		return l.record(now, event.TriggerVolumeAlert, event.ActionNotify, msg, d, eta, burn, session.Key)
	}

	return nil
}

// #endregion rule-fallback

// #region record

// record builds the intervention event, persists it, stamps the
// intervention cooldown, and logs the decision.
func (l *Loop) record(
	now time.Time,
	trigger event.Trigger,
	action event.Action,
	message string,
	d dose.DoseResult,
	eta *time.Duration,
	burn dose.BurnRate,
	sessionKey string,
) *event.Intervention {
	iv := event.Intervention{
		ID:          uuid.New().String(),
		Timestamp:   now,
		Trigger:     trigger,
		Action:      action,
		Message:     message,
		DosePercent: d.DosePercent,
		SessionID:   sessionKey,
	}
	if eta != nil {
		secs := eta.Seconds()
		iv.ETASeconds = &secs
	}
	rate := burn.PerHourPercent
	iv.BurnRatePerHour = &rate

	if l.store != nil {
		if err := l.store.AppendIntervention(iv); err != nil {
			log.Printf("[AGENT] append intervention: %v", err)
		}
		if err := l.store.LogDecision(now, "acted", string(trigger), string(action), d.DosePercent, message); err != nil {
			log.Printf("[AGENT] log decision: %v", err)
		}
	}
	l.state.LastInterventionAt = now

	log.Printf("[AGENT] intervene: trigger=%s action=%s dose=%.1f%%", trigger, action, d.DosePercent)
	return &iv
}

func (l *Loop) logGate(now time.Time, gate string, dosePercent float64) {
	if l.store == nil {
		return
	}
	if err := l.store.LogDecision(now, gate, "", "", dosePercent, ""); err != nil {
		log.Printf("[AGENT] log decision: %v", err)
	}
}

// #endregion record

// #region helpers

// lastLevel returns the most recent sample's level, 0 when none.
func lastLevel(samples []dose.Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	return samples[len(samples)-1].LevelDB
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion helpers
