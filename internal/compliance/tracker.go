package compliance

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/dose"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/event"
)

// #region config

// Config tunes the outcome classification windows.
type Config struct {
	MinAge           time.Duration // too soon to judge before this
	BeforeWindow     time.Duration // how far back to average pre-intervention levels
	Window           time.Duration // full compliance window after the intervention
	StoppedThreshold time.Duration // silence this long after → stopped_listening
	VolumeDropDB     float64       // avg drop counted as volume_reduced
}

// DefaultConfig returns the standard classification windows.
func DefaultConfig() Config {
	return Config{
		MinAge:           60 * time.Second,
		BeforeWindow:     5 * time.Minute,
		Window:           10 * time.Minute,
		StoppedThreshold: 5 * time.Minute,
		VolumeDropDB:     3,
	}
}

// #endregion config

// #region store-interface

// Store is the narrow persistence surface the tracker needs.
type Store interface {
	UnresolvedInterventions() ([]event.Intervention, error)
	ResolveIntervention(id string, outcome event.Outcome, resolvedAt time.Time) error
	AppendCompliance(event.Compliance) error
}

// #endregion store-interface

// #region tracker

// Tracker resolves pending interventions by comparing sound levels before
// and after each one. Each intervention resolves at most once.
type Tracker struct {
	store  Store
	config Config
	now    func() time.Time
}

// NewTracker creates a tracker. nowFn may be nil (defaults to time.Now).
func NewTracker(store Store, config Config, nowFn func() time.Time) *Tracker {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Tracker{store: store, config: config, now: nowFn}
}

// #endregion tracker

// #region run

// Run examines every unresolved intervention against the day's samples and
// resolves those whose outcome can be judged. Returns how many resolved.
func (t *Tracker) Run(samples []dose.Sample) int {
	pending, err := t.store.UnresolvedInterventions()
	if err != nil {
		log.Printf("[COMPLY] list unresolved: %v", err)
		return 0
	}

	resolved := 0
	now := t.now()
	for _, iv := range pending {
		c, ok := t.classify(iv, samples, now)
		if !ok {
			continue
		}
		if err := t.resolve(iv, c, now); err != nil {
			log.Printf("[COMPLY] resolve %s: %v", iv.ID, err)
			continue
		}
		resolved++
	}
	return resolved
}

// #endregion run

// #region classify

type classification struct {
	outcome         event.Outcome
	volumeDelta     *float64
	responseSeconds *float64
}

func (t *Tracker) classify(iv event.Intervention, samples []dose.Sample, now time.Time) (classification, bool) {
	elapsed := now.Sub(iv.Timestamp)
	if elapsed < t.config.MinAge {
		return classification{}, false
	}

	before := samplesEndingIn(samples, iv.Timestamp.Add(-t.config.BeforeWindow), iv.Timestamp)
	afterEnd := iv.Timestamp.Add(t.config.Window)
	if afterEnd.After(now) {
		afterEnd = now
	}
	after := samplesStartingIn(samples, iv.Timestamp, afterEnd)

	// Silence after the intervention long enough to call it a stop.
	if len(after) == 0 && elapsed > t.config.StoppedThreshold {
		return classification{outcome: event.OutcomeStoppedListening}, true
	}

	// Both windows populated: judge by average level delta.
	if len(before) > 0 && len(after) > 0 {
		avgBefore := weightedAverageLevel(before)
		avgAfter := weightedAverageLevel(after)
		if delta := avgBefore - avgAfter; delta >= t.config.VolumeDropDB {
			response := after[0].Start.Sub(iv.Timestamp).Seconds()
			return classification{
				outcome:         event.OutcomeVolumeReduced,
				volumeDelta:     &delta,
				responseSeconds: &response,
			}, true
		}
	}

	// Full window elapsed with neither signal.
	if elapsed >= t.config.Window {
		return classification{outcome: event.OutcomeNoChange}, true
	}

	return classification{}, false
}

// #endregion classify

// #region resolve

func (t *Tracker) resolve(iv event.Intervention, c classification, now time.Time) error {
	if err := t.store.ResolveIntervention(iv.ID, c.outcome, now); err != nil {
		return err
	}
	ev := event.Compliance{
		ID:               uuid.New().String(),
		InterventionID:   iv.ID,
		Timestamp:        now,
		Outcome:          c.outcome,
		ResponseSeconds:  c.responseSeconds,
		VolumeDeltaDB:    c.volumeDelta,
		StoppedListening: c.outcome == event.OutcomeStoppedListening,
	}
	if err := t.store.AppendCompliance(ev); err != nil {
		return err
	}
	log.Printf("[COMPLY] intervention %s resolved: %s", iv.ID, c.outcome)
	return nil
}

// #endregion resolve

// #region helpers

// samplesEndingIn returns samples whose End falls in (from, to].
func samplesEndingIn(samples []dose.Sample, from, to time.Time) []dose.Sample {
	var out []dose.Sample
	for _, s := range samples {
		if s.End.After(from) && !s.End.After(to) {
			out = append(out, s)
		}
	}
	return out
}

// samplesStartingIn returns samples whose Start falls in [from, to).
func samplesStartingIn(samples []dose.Sample, from, to time.Time) []dose.Sample {
	var out []dose.Sample
	for _, s := range samples {
		if !s.Start.Before(from) && s.Start.Before(to) {
			out = append(out, s)
		}
	}
	return out
}

// weightedAverageLevel averages LevelDB weighted by sample duration.
func weightedAverageLevel(samples []dose.Sample) float64 {
	var weighted, total float64
	for _, s := range samples {
		d := s.Duration().Seconds()
		if d <= 0 {
			continue
		}
		weighted += s.LevelDB * d
		total += d
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// #endregion helpers
