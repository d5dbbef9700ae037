package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/event"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleIntervention(id string, at time.Time) event.Intervention {
	eta := 1800.0
	burn := 12.5
	return event.Intervention{
		ID:              id,
		Timestamp:       at,
		Trigger:         event.TriggerETAWarning,
		Action:          event.ActionNotify,
		Message:         "About 30 minutes until the daily limit.",
		DosePercent:     75,
		ETASeconds:      &eta,
		BurnRatePerHour: &burn,
		SessionID:       "session-1700000000",
	}
}

func TestAppendAndListInterventions(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)

	if err := s.AppendIntervention(sampleIntervention("iv-1", base)); err != nil {
		t.Fatalf("AppendIntervention: %v", err)
	}
	if err := s.AppendIntervention(sampleIntervention("iv-2", base.Add(time.Hour))); err != nil {
		t.Fatalf("AppendIntervention: %v", err)
	}

	got, err := s.ListInterventions(10)
	if err != nil {
		t.Fatalf("ListInterventions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 interventions, got %d", len(got))
	}
	// Most recent first.
	if got[0].ID != "iv-2" {
		t.Errorf("order: got %s first, want iv-2", got[0].ID)
	}

	iv := got[1]
	if !iv.Timestamp.Equal(base) {
		t.Errorf("timestamp: got %v, want %v", iv.Timestamp, base)
	}
	if iv.Trigger != event.TriggerETAWarning || iv.Action != event.ActionNotify {
		t.Errorf("trigger/action: got %s/%s", iv.Trigger, iv.Action)
	}
	if iv.ETASeconds == nil || *iv.ETASeconds != 1800 {
		t.Errorf("eta: got %v, want 1800", iv.ETASeconds)
	}
	if iv.BurnRatePerHour == nil || *iv.BurnRatePerHour != 12.5 {
		t.Errorf("burn: got %v, want 12.5", iv.BurnRatePerHour)
	}
	if iv.Resolved {
		t.Error("fresh intervention should be unresolved")
	}
}

func TestResolveIntervention(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	s.AppendIntervention(sampleIntervention("iv-1", base))

	resolvedAt := base.Add(10 * time.Minute)
	if err := s.ResolveIntervention("iv-1", event.OutcomeVolumeReduced, resolvedAt); err != nil {
		t.Fatalf("ResolveIntervention: %v", err)
	}

	pending, err := s.UnresolvedInterventions()
	if err != nil {
		t.Fatalf("UnresolvedInterventions: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending interventions, got %d", len(pending))
	}

	all, _ := s.ListInterventions(10)
	if len(all) != 1 {
		t.Fatalf("expected 1 intervention, got %d", len(all))
	}
	if !all[0].Resolved || all[0].Outcome != event.OutcomeVolumeReduced {
		t.Errorf("resolution: %+v", all[0])
	}
	if all[0].ResolvedAt == nil || !all[0].ResolvedAt.Equal(resolvedAt) {
		t.Errorf("resolved_at: got %v, want %v", all[0].ResolvedAt, resolvedAt)
	}
}

func TestResolveIntervention_Twice(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	s.AppendIntervention(sampleIntervention("iv-1", base))

	if err := s.ResolveIntervention("iv-1", event.OutcomeNoChange, base.Add(time.Minute)); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if err := s.ResolveIntervention("iv-1", event.OutcomeStoppedListening, base.Add(2*time.Minute)); err == nil {
		t.Fatal("second resolve should fail")
	}
	// The first outcome sticks.
	all, _ := s.ListInterventions(10)
	if all[0].Outcome != event.OutcomeNoChange {
		t.Errorf("outcome: got %s, want no_change", all[0].Outcome)
	}
}

func TestResolveIntervention_NotFound(t *testing.T) {
	s := tempDB(t)
	err := s.ResolveIntervention("missing", event.OutcomeNoChange, time.Now())
	if err == nil {
		t.Fatal("expected error for unknown intervention")
	}
}

func TestUnresolvedOrdering(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	s.AppendIntervention(sampleIntervention("iv-new", base.Add(time.Hour)))
	s.AppendIntervention(sampleIntervention("iv-old", base))

	pending, err := s.UnresolvedInterventions()
	if err != nil {
		t.Fatalf("UnresolvedInterventions: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "iv-old" {
		t.Errorf("expected oldest first, got %+v", pending)
	}
}

func TestAppendAndListCompliance(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	s.AppendIntervention(sampleIntervention("iv-1", base))

	response := 60.0
	delta := 4.5
	ev := event.Compliance{
		ID:              "c-1",
		InterventionID:  "iv-1",
		Timestamp:       base.Add(10 * time.Minute),
		Outcome:         event.OutcomeVolumeReduced,
		ResponseSeconds: &response,
		VolumeDeltaDB:   &delta,
	}
	if err := s.AppendCompliance(ev); err != nil {
		t.Fatalf("AppendCompliance: %v", err)
	}

	got, err := s.ListCompliance(10)
	if err != nil {
		t.Fatalf("ListCompliance: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 compliance event, got %d", len(got))
	}
	if got[0].InterventionID != "iv-1" || got[0].Outcome != event.OutcomeVolumeReduced {
		t.Errorf("event: %+v", got[0])
	}
	if got[0].ResponseSeconds == nil || *got[0].ResponseSeconds != 60 {
		t.Errorf("response: got %v, want 60", got[0].ResponseSeconds)
	}
	if got[0].VolumeDeltaDB == nil || *got[0].VolumeDeltaDB != 4.5 {
		t.Errorf("delta: got %v, want 4.5", got[0].VolumeDeltaDB)
	}
	if got[0].StoppedListening {
		t.Error("stopped_listening should be false")
	}
}

func TestSyncLog(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)

	if err := s.RecordSync(base, 250*time.Millisecond, nil); err != nil {
		t.Fatalf("RecordSync: %v", err)
	}
	if err := s.RecordSync(base.Add(10*time.Minute), time.Second, errors.New("backend down")); err != nil {
		t.Fatalf("RecordSync: %v", err)
	}

	got, err := s.ListSyncLog(10)
	if err != nil {
		t.Fatalf("ListSyncLog: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sync records, got %d", len(got))
	}
	// Most recent first.
	if got[0].Error != "backend down" {
		t.Errorf("error: got %q, want backend down", got[0].Error)
	}
	if got[1].Duration != 250*time.Millisecond {
		t.Errorf("duration: got %v, want 250ms", got[1].Duration)
	}
	if got[1].Error != "" {
		t.Errorf("expected empty error, got %q", got[1].Error)
	}
}

func TestDecisionLog(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)

	if err := s.LogDecision(base, "quiet_hours", "", "", 42.5, ""); err != nil {
		t.Fatalf("LogDecision: %v", err)
	}
	if err := s.LogDecision(base.Add(time.Minute), "acted", "volume_alert", "notify", 43, "over threshold"); err != nil {
		t.Fatalf("LogDecision: %v", err)
	}

	got, err := s.ListDecisions(10)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(got))
	}
	if got[0].Gate != "acted" || got[0].Trigger != "volume_alert" {
		t.Errorf("latest decision: %+v", got[0])
	}
	if got[1].Gate != "quiet_hours" || got[1].DosePercent != 42.5 {
		t.Errorf("gate decision: %+v", got[1])
	}
}

func TestAgentStateRoundTrip(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)

	// Nothing saved yet.
	got, err := s.LoadAgentState()
	if err != nil {
		t.Fatalf("LoadAgentState: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil snapshot, got %q", got)
	}

	snap := []byte(`{"LastDosePercent":42.5}`)
	if err := s.SaveAgentState(snap, base); err != nil {
		t.Fatalf("SaveAgentState: %v", err)
	}

	got, err = s.LoadAgentState()
	if err != nil {
		t.Fatalf("LoadAgentState: %v", err)
	}
	if string(got) != string(snap) {
		t.Errorf("snapshot: got %q, want %q", got, snap)
	}

	// Upsert overwrites.
	snap2 := []byte(`{"LastDosePercent":50}`)
	if err := s.SaveAgentState(snap2, base.Add(time.Minute)); err != nil {
		t.Fatalf("SaveAgentState: %v", err)
	}
	got, _ = s.LoadAgentState()
	if string(got) != string(snap2) {
		t.Errorf("snapshot after upsert: got %q, want %q", got, snap2)
	}
}

func TestDBAccessor(t *testing.T) {
	s := tempDB(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}

func TestAppendInterventionOnClosedDB(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(filepath.Join(dir, "test.db"))
	s.Close()

	err := s.AppendIntervention(sampleIntervention("iv-1", time.Now()))
	if err == nil {
		t.Fatal("expected error on closed DB")
	}
}

func TestListInterventionsOnClosedDB(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(filepath.Join(dir, "test.db"))
	s.Close()

	_, err := s.ListInterventions(10)
	if err == nil {
		t.Fatal("expected error on closed DB")
	}
}
