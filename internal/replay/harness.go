package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/agent"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/compliance"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/dose"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/event"
	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/insight"
)

// #region types

// Result captures what the agent did for one delivery.
type Result struct {
	Delivery           int
	At                 time.Time
	Evaluated          bool
	SkipReason         string
	DosePercent        float64
	Severity           insight.Severity
	Trigger            string // empty when no intervention fired
	Action             string
	ComplianceResolved int
}

// Summary aggregates a replay run.
type Summary struct {
	Deliveries         int
	Evaluations        int
	Interventions      int
	ComplianceResolved int
	FinalDosePercent   float64
	TriggerCounts      map[string]int
}

// Mismatch is one failed fixture expectation.
type Mismatch struct {
	Delivery int
	Want     string
	Got      string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("delivery %d: want trigger %q, got %q", m.Delivery, m.Want, m.Got)
}

// #endregion types

// #region memory-store

// memoryStore backs a replay run entirely in memory. It implements both the
// loop's and the compliance tracker's store surfaces.
type memoryStore struct {
	interventions []event.Intervention
	compliance    []event.Compliance
	syncs         int
	decisions     int
}

func (m *memoryStore) AppendIntervention(iv event.Intervention) error {
	m.interventions = append(m.interventions, iv)
	return nil
}

func (m *memoryStore) RecordSync(time.Time, time.Duration, error) error {
	m.syncs++
	return nil
}

func (m *memoryStore) LogDecision(time.Time, string, string, string, float64, string) error {
	m.decisions++
	return nil
}

func (m *memoryStore) UnresolvedInterventions() ([]event.Intervention, error) {
	var out []event.Intervention
	for _, iv := range m.interventions {
		if !iv.Resolved {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (m *memoryStore) ResolveIntervention(id string, outcome event.Outcome, at time.Time) error {
	for i := range m.interventions {
		if m.interventions[i].ID == id {
			m.interventions[i].Resolved = true
			m.interventions[i].ResolvedAt = &at
			m.interventions[i].Outcome = outcome
			return nil
		}
	}
	return fmt.Errorf("intervention %s not found", id)
}

func (m *memoryStore) AppendCompliance(ev event.Compliance) error {
	m.compliance = append(m.compliance, ev)
	return nil
}

// silentNotifier satisfies the loop's notifier port without side effects.
type silentNotifier struct{}

func (silentNotifier) SendLimitReached(float64)          {}
func (silentNotifier) SendETAWarning(time.Duration)      {}
func (silentNotifier) SendBreakReminder(int, int)        {}
func (silentNotifier) SendVolumeSuggestion(_, _ float64) {}
func (silentNotifier) SendAgentNotification(_, _ string) {}

// #endregion memory-store

// #region replay

// Replay feeds fixture deliveries through the full pipeline with a clock
// pinned to each delivery's timestamp. Operates entirely in-memory: no
// broker, no advisor, no real notifications.
func Replay(f *Fixture) ([]Result, Summary) {
	settings := f.Settings.ToSettings()

	store := &memoryStore{}
	clock := time.Time{}
	tracker := compliance.NewTracker(store, compliance.DefaultConfig(), func() time.Time {
		return clock
	})

	loop := agent.NewLoop(f.Standards(), agent.DefaultConfig(), agent.Deps{
		Notifier: silentNotifier{},
		Store:    store,
		Tracker:  tracker,
	})

	var daySamples []FixtureSample
	results := make([]Result, 0, len(f.Deliveries))
	summary := Summary{TriggerCounts: make(map[string]int)}

	for i, delivery := range f.Deliveries {
		clock = delivery.At
		daySamples = append(daySamples, delivery.Samples...)

		all := samplesOf(daySamples)
		res := loop.Evaluate(context.Background(), agent.CycleInput{
			Now:             delivery.At,
			DaySamples:      all,
			RecentSamples:   all,
			Settings:        settings,
			HeadphoneOutput: delivery.Headphones,
		})

		r := Result{
			Delivery:           i,
			At:                 delivery.At,
			Evaluated:          res.Evaluated,
			SkipReason:         res.SkipReason,
			DosePercent:        res.Dose.DosePercent,
			Severity:           res.Insight.Severity,
			ComplianceResolved: res.ComplianceResolved,
		}
		if res.Intervention != nil {
			r.Trigger = string(res.Intervention.Trigger)
			r.Action = string(res.Intervention.Action)
			summary.Interventions++
			summary.TriggerCounts[r.Trigger]++
		}
		if res.Evaluated {
			summary.Evaluations++
			summary.FinalDosePercent = res.Dose.DosePercent
		}
		summary.ComplianceResolved += res.ComplianceResolved
		results = append(results, r)
	}

	summary.Deliveries = len(results)
	return results, summary
}

// samplesOf converts the accumulated fixture samples to domain samples.
func samplesOf(fixtures []FixtureSample) []dose.Sample {
	samples := make([]dose.Sample, 0, len(fixtures))
	for _, s := range fixtures {
		samples = append(samples, dose.Sample{Start: s.Start, End: s.End, LevelDB: s.LevelDB})
	}
	return samples
}

// Verify compares results against the fixture's expectations.
func Verify(f *Fixture, results []Result) []Mismatch {
	var mismatches []Mismatch
	for _, exp := range f.Expected {
		if exp.Delivery < 0 || exp.Delivery >= len(results) {
			mismatches = append(mismatches, Mismatch{Delivery: exp.Delivery, Want: exp.Trigger, Got: "<out of range>"})
			continue
		}
		got := results[exp.Delivery].Trigger
		if got != exp.Trigger {
			mismatches = append(mismatches, Mismatch{Delivery: exp.Delivery, Want: exp.Trigger, Got: got})
		}
	}
	return mismatches
}

// #endregion replay
