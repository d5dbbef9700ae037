package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/audio-exposure/go-agent/internal/event"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS interventions (
	id                 TEXT PRIMARY KEY,
	ts                 TEXT NOT NULL,
	trigger_type       TEXT NOT NULL,
	action             TEXT NOT NULL,
	message            TEXT,
	dose_percent       REAL NOT NULL,
	eta_seconds        REAL,
	burn_rate_per_hour REAL,
	session_id         TEXT,
	resolved           INTEGER NOT NULL DEFAULT 0,
	resolved_at        TEXT,
	outcome            TEXT
);

CREATE TABLE IF NOT EXISTS compliance_events (
	id                TEXT PRIMARY KEY,
	intervention_id   TEXT NOT NULL,
	ts                TEXT NOT NULL,
	outcome           TEXT NOT NULL,
	response_seconds  REAL,
	volume_delta_db   REAL,
	stopped_listening INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (intervention_id) REFERENCES interventions(id)
);

CREATE TABLE IF NOT EXISTS sync_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	error       TEXT
);

CREATE TABLE IF NOT EXISTS decision_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	ts           TEXT NOT NULL,
	gate         TEXT NOT NULL,
	trigger_type TEXT,
	action       TEXT,
	dose_percent REAL NOT NULL,
	reason       TEXT
);

CREATE TABLE IF NOT EXISTS agent_state (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	snapshot   TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`
// #endregion schema

// #region record-types

// SyncRecord is one row of the sync log.
type SyncRecord struct {
	StartedAt time.Time
	Duration  time.Duration
	Error     string
}

// DecisionRecord is one row of the decision log: either a gate that stopped
// the cycle or an action the loop took.
type DecisionRecord struct {
	Timestamp   time.Time
	Gate        string
	Trigger     string
	Action      string
	DosePercent float64
	Reason      string
}

// #endregion record-types

// #region store-struct
// Store persists interventions, compliance outcomes, and the agent's
// observability logs in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already-open database. The caller owns the
// connection's lifecycle.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. inspect).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region append-intervention
// AppendIntervention inserts a new intervention row.
func (s *Store) AppendIntervention(iv event.Intervention) error {
	var etaPtr, burnPtr interface{}
	if iv.ETASeconds != nil {
		etaPtr = *iv.ETASeconds
	}
	if iv.BurnRatePerHour != nil {
		burnPtr = *iv.BurnRatePerHour
	}

	_, err := s.db.Exec(
		`INSERT INTO interventions (id, ts, trigger_type, action, message, dose_percent, eta_seconds, burn_rate_per_hour, session_id, resolved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		iv.ID, iv.Timestamp.Format(time.RFC3339Nano), string(iv.Trigger), string(iv.Action),
		iv.Message, iv.DosePercent, etaPtr, burnPtr, iv.SessionID,
	)
	if err != nil {
		return fmt.Errorf("insert intervention: %w", err)
	}
	return nil
}
// #endregion append-intervention

// #region unresolved
// UnresolvedInterventions returns all interventions with no outcome yet,
// oldest first.
func (s *Store) UnresolvedInterventions() ([]event.Intervention, error) {
	rows, err := s.db.Query(
		`SELECT id, ts, trigger_type, action, message, dose_percent, eta_seconds, burn_rate_per_hour, session_id, resolved, resolved_at, outcome
		 FROM interventions WHERE resolved = 0 ORDER BY ts ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list unresolved: %w", err)
	}
	defer rows.Close()
	return scanInterventions(rows)
}
// #endregion unresolved

// #region resolve-intervention
// ResolveIntervention marks an intervention with its judged outcome. A row
// already resolved is left untouched.
func (s *Store) ResolveIntervention(id string, outcome event.Outcome, resolvedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE interventions SET resolved = 1, resolved_at = ?, outcome = ?
		 WHERE id = ? AND resolved = 0`,
		resolvedAt.Format(time.RFC3339Nano), string(outcome), id,
	)
	if err != nil {
		return fmt.Errorf("resolve intervention: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("intervention %s not found or already resolved", id)
	}
	return nil
}
// #endregion resolve-intervention

// #region list-interventions
// ListInterventions returns the most recent interventions.
func (s *Store) ListInterventions(limit int) ([]event.Intervention, error) {
	rows, err := s.db.Query(
		`SELECT id, ts, trigger_type, action, message, dose_percent, eta_seconds, burn_rate_per_hour, session_id, resolved, resolved_at, outcome
		 FROM interventions ORDER BY ts DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list interventions: %w", err)
	}
	defer rows.Close()
	return scanInterventions(rows)
}
// #endregion list-interventions

// #region append-compliance
// AppendCompliance inserts a compliance outcome row.
func (s *Store) AppendCompliance(ev event.Compliance) error {
	var responsePtr, deltaPtr interface{}
	if ev.ResponseSeconds != nil {
		responsePtr = *ev.ResponseSeconds
	}
	if ev.VolumeDeltaDB != nil {
		deltaPtr = *ev.VolumeDeltaDB
	}

	stopped := 0
	if ev.StoppedListening {
		stopped = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO compliance_events (id, intervention_id, ts, outcome, response_seconds, volume_delta_db, stopped_listening)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.InterventionID, ev.Timestamp.Format(time.RFC3339Nano), string(ev.Outcome),
		responsePtr, deltaPtr, stopped,
	)
	if err != nil {
		return fmt.Errorf("insert compliance: %w", err)
	}
	return nil
}
// #endregion append-compliance

// #region list-compliance
// ListCompliance returns the most recent compliance outcomes.
func (s *Store) ListCompliance(limit int) ([]event.Compliance, error) {
	rows, err := s.db.Query(
		`SELECT id, intervention_id, ts, outcome, response_seconds, volume_delta_db, stopped_listening
		 FROM compliance_events ORDER BY ts DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list compliance: %w", err)
	}
	defer rows.Close()

	var events []event.Compliance
	for rows.Next() {
		var ev event.Compliance
		var tsStr string
		var outcome string
		var response, delta sql.NullFloat64
		var stopped int

		if err := rows.Scan(&ev.ID, &ev.InterventionID, &tsStr, &outcome, &response, &delta, &stopped); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339Nano, tsStr)
		ev.Outcome = event.Outcome(outcome)
		if response.Valid {
			v := response.Float64
			ev.ResponseSeconds = &v
		}
		if delta.Valid {
			v := delta.Float64
			ev.VolumeDeltaDB = &v
		}
		ev.StoppedListening = stopped != 0
		events = append(events, ev)
	}
	return events, rows.Err()
}
// #endregion list-compliance

// #region sync-log
// RecordSync appends a sync attempt to the sync log.
func (s *Store) RecordSync(startedAt time.Time, duration time.Duration, syncErr error) error {
	var errPtr interface{}
	if syncErr != nil {
		errPtr = syncErr.Error()
	}
	_, err := s.db.Exec(
		`INSERT INTO sync_log (started_at, duration_ms, error) VALUES (?, ?, ?)`,
		startedAt.Format(time.RFC3339Nano), duration.Milliseconds(), errPtr,
	)
	if err != nil {
		return fmt.Errorf("insert sync: %w", err)
	}
	return nil
}

// ListSyncLog returns the most recent sync attempts.
func (s *Store) ListSyncLog(limit int) ([]SyncRecord, error) {
	rows, err := s.db.Query(
		`SELECT started_at, duration_ms, error FROM sync_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sync log: %w", err)
	}
	defer rows.Close()

	var records []SyncRecord
	for rows.Next() {
		var rec SyncRecord
		var startedStr string
		var durationMS int64
		var errStr sql.NullString

		if err := rows.Scan(&startedStr, &durationMS, &errStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if errStr.Valid {
			rec.Error = errStr.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
// #endregion sync-log

// #region decision-log
// LogDecision appends one decision-log row. Gate names the branch taken;
// trigger and action are empty for gates that stopped the cycle.
func (s *Store) LogDecision(at time.Time, gate, trigger, action string, dosePercent float64, reason string) error {
	_, err := s.db.Exec(
		`INSERT INTO decision_log (ts, gate, trigger_type, action, dose_percent, reason)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		at.Format(time.RFC3339Nano), gate, trigger, action, dosePercent, reason,
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// ListDecisions returns the most recent decision-log rows.
func (s *Store) ListDecisions(limit int) ([]DecisionRecord, error) {
	rows, err := s.db.Query(
		`SELECT ts, gate, trigger_type, action, dose_percent, reason
		 FROM decision_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		var tsStr string
		var trigger, action, reason sql.NullString

		if err := rows.Scan(&tsStr, &rec.Gate, &trigger, &action, &rec.DosePercent, &reason); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, tsStr)
		rec.Trigger = trigger.String
		rec.Action = action.String
		rec.Reason = reason.String
		records = append(records, rec)
	}
	return records, rows.Err()
}
// #endregion decision-log

// #region agent-state
// SaveAgentState upserts the single-row agent state snapshot.
func (s *Store) SaveAgentState(snapshot []byte, at time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO agent_state (id, snapshot, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		string(snapshot), at.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save agent state: %w", err)
	}
	return nil
}

// LoadAgentState reads the saved snapshot. Returns nil with no error when
// nothing has been saved yet.
func (s *Store) LoadAgentState() ([]byte, error) {
	var snapshot string
	err := s.db.QueryRow(`SELECT snapshot FROM agent_state WHERE id = 1`).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load agent state: %w", err)
	}
	return []byte(snapshot), nil
}
// #endregion agent-state

// #region scan-helpers
func scanInterventions(rows *sql.Rows) ([]event.Intervention, error) {
	var interventions []event.Intervention
	for rows.Next() {
		var iv event.Intervention
		var tsStr string
		var trigger, action string
		var message, sessionID sql.NullString
		var eta, burn sql.NullFloat64
		var resolved int
		var resolvedAt, outcome sql.NullString

		if err := rows.Scan(&iv.ID, &tsStr, &trigger, &action, &message, &iv.DosePercent,
			&eta, &burn, &sessionID, &resolved, &resolvedAt, &outcome); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		iv.Timestamp, _ = time.Parse(time.RFC3339Nano, tsStr)
		iv.Trigger = event.Trigger(trigger)
		iv.Action = event.Action(action)
		iv.Message = message.String
		iv.SessionID = sessionID.String
		if eta.Valid {
			v := eta.Float64
			iv.ETASeconds = &v
		}
		if burn.Valid {
			v := burn.Float64
			iv.BurnRatePerHour = &v
		}
		iv.Resolved = resolved != 0
		if resolvedAt.Valid {
			t, _ := time.Parse(time.RFC3339Nano, resolvedAt.String)
			iv.ResolvedAt = &t
		}
		if outcome.Valid {
			iv.Outcome = event.Outcome(outcome.String)
		}
		interventions = append(interventions, iv)
	}
	return interventions, rows.Err()
}
// #endregion scan-helpers
