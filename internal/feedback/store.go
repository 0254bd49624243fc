// Package feedback persists processed learning cycles and retraining
// decisions to SQLite. The engine treats the store as an optional
// collaborator: a nil store means in-memory operation only.
package feedback

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS learning_cycles (
	cycle_id          TEXT PRIMARY KEY,
	category          TEXT NOT NULL,
	suggestion_text   TEXT NOT NULL,
	actual_score      REAL NOT NULL,
	predicted_score   REAL NOT NULL,
	prediction_error  REAL NOT NULL,
	validator_scores  TEXT,
	created_at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_learning_cycles_category
ON learning_cycles(category, created_at);

CREATE TABLE IF NOT EXISTS retraining_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	category      TEXT NOT NULL,
	version_id    TEXT,
	success       INTEGER NOT NULL,
	replaced      INTEGER NOT NULL DEFAULT 0,
	old_accuracy  REAL NOT NULL DEFAULT 0,
	new_accuracy  REAL NOT NULL DEFAULT 0,
	sample_count  INTEGER NOT NULL DEFAULT 0,
	reason        TEXT,
	created_at    TEXT NOT NULL
);
`

// #endregion schema

// #region records

// CycleRecord is one durable learning-cycle row.
type CycleRecord struct {
	CycleID         string
	Category        string
	SuggestionText  string
	ActualScore     float64
	PredictedScore  float64
	PredictionError float64
	ValidatorScores map[string]float64
	CreatedAt       time.Time
}

// RetrainRecord is one durable retraining-decision row.
type RetrainRecord struct {
	Category    string
	VersionID   string
	Success     bool
	Replaced    bool
	OldAccuracy float64
	NewAccuracy float64
	SampleCount int
	Reason      string
	CreatedAt   time.Time
}

// #endregion records

// #region store

// Store appends and queries feedback rows in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens the database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for inspection tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region append-cycle

// AppendCycle persists one learning cycle.
func (s *Store) AppendCycle(rec CycleRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	scoresJSON, err := json.Marshal(rec.ValidatorScores)
	if err != nil {
		return fmt.Errorf("marshal validator scores: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO learning_cycles
		 (cycle_id, category, suggestion_text, actual_score, predicted_score, prediction_error, validator_scores, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CycleID,
		rec.Category,
		rec.SuggestionText,
		rec.ActualScore,
		rec.PredictedScore,
		rec.PredictionError,
		string(scoresJSON),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append cycle: %w", err)
	}
	return nil
}

// #endregion append-cycle

// #region append-retrain

// AppendRetrain persists one retraining decision.
func (s *Store) AppendRetrain(rec RetrainRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	success, replaced := 0, 0
	if rec.Success {
		success = 1
	}
	if rec.Replaced {
		replaced = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO retraining_log
		 (category, version_id, success, replaced, old_accuracy, new_accuracy, sample_count, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Category,
		nullIfEmpty(rec.VersionID),
		success,
		replaced,
		rec.OldAccuracy,
		rec.NewAccuracy,
		rec.SampleCount,
		nullIfEmpty(rec.Reason),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append retrain: %w", err)
	}
	return nil
}

// #endregion append-retrain

// #region recent-cycles

// RecentCycles returns the most recent n cycles for a category,
// newest first.
func (s *Store) RecentCycles(category string, n int) ([]CycleRecord, error) {
	rows, err := s.db.Query(
		`SELECT cycle_id, category, suggestion_text, actual_score, predicted_score, prediction_error, validator_scores, created_at
		 FROM learning_cycles
		 WHERE category = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		category, n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent cycles: %w", err)
	}
	defer rows.Close()

	var out []CycleRecord
	for rows.Next() {
		var rec CycleRecord
		var scoresJSON sql.NullString
		var createdAt string
		if err := rows.Scan(&rec.CycleID, &rec.Category, &rec.SuggestionText,
			&rec.ActualScore, &rec.PredictedScore, &rec.PredictionError,
			&scoresJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		if scoresJSON.Valid && scoresJSON.String != "" {
			if err := json.Unmarshal([]byte(scoresJSON.String), &rec.ValidatorScores); err != nil {
				return nil, fmt.Errorf("unmarshal validator scores: %w", err)
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecentRetrains returns the most recent n retraining rows for a
// category, newest first.
func (s *Store) RecentRetrains(category string, n int) ([]RetrainRecord, error) {
	rows, err := s.db.Query(
		`SELECT category, version_id, success, replaced, old_accuracy, new_accuracy, sample_count, reason, created_at
		 FROM retraining_log
		 WHERE category = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		category, n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent retrains: %w", err)
	}
	defer rows.Close()

	var out []RetrainRecord
	for rows.Next() {
		var rec RetrainRecord
		var versionID, reason sql.NullString
		var success, replaced int
		var createdAt string
		if err := rows.Scan(&rec.Category, &versionID, &success, &replaced,
			&rec.OldAccuracy, &rec.NewAccuracy, &rec.SampleCount, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan retrain: %w", err)
		}
		rec.VersionID = versionID.String
		rec.Reason = reason.String
		rec.Success = success == 1
		rec.Replaced = replaced == 1
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion recent-cycles

// #region helpers

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
