// Package db persists window results, session KPIs, and validation outcomes
// in DuckDB. The store is injected into its consumers; nothing here is a
// process-wide singleton.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/strrl/neuropipe/internal/clinical"
	"github.com/strrl/neuropipe/internal/signals"
)

type Store struct {
	db *sql.DB
}

// Open opens a DuckDB database at path, or an in-memory one when path is
// empty, and applies migrations. The json extension backs JSONL replay.
func Open(path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("INSTALL json"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install JSON extension: %w", err)
	}
	if _, err := db.Exec("LOAD json"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load JSON extension: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// DB exposes the underlying handle for read-side consumers such as the
// window replay parser.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS window_results (
			session_id VARCHAR NOT NULL,
			seq BIGINT NOT NULL,
			raw_mean DOUBLE NOT NULL,
			delta DOUBLE NOT NULL,
			theta DOUBLE NOT NULL,
			alpha DOUBLE NOT NULL,
			beta DOUBLE NOT NULL,
			gamma DOUBLE NOT NULL,
			coherence DOUBLE NOT NULL,
			attention DOUBLE NOT NULL,
			learning_efficiency DOUBLE NOT NULL,
			stage VARCHAR NOT NULL,
			state VARCHAR NOT NULL,
			processed_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS session_kpis (
			session_id VARCHAR NOT NULL,
			window_count INTEGER NOT NULL,
			engagement_level DOUBLE NOT NULL,
			learning_efficiency DOUBLE NOT NULL,
			retention_correlation DOUBLE NOT NULL,
			adaptation_speed DOUBLE NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS validation_results (
			session_id VARCHAR NOT NULL,
			equation VARCHAR NOT NULL,
			raw DOUBLE NOT NULL,
			score DOUBLE NOT NULL,
			passed BOOLEAN NOT NULL,
			diagnostic VARCHAR NOT NULL,
			threshold DOUBLE NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SessionSink binds the store to one session ID so it satisfies the
// orchestrator's sink interface.
type SessionSink struct {
	store     *Store
	sessionID string
}

func (s *Store) SessionSink(sessionID string) *SessionSink {
	return &SessionSink{store: s, sessionID: sessionID}
}

func (ss *SessionSink) SaveWindow(res signals.WindowResult) error {
	return ss.store.SaveWindowResult(ss.sessionID, res)
}

func (s *Store) SaveWindowResult(sessionID string, res signals.WindowResult) error {
	_, err := s.db.Exec(`INSERT INTO window_results VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		int64(res.Seq),
		res.RawMean,
		res.Features.Delta,
		res.Features.Theta,
		res.Features.Alpha,
		res.Features.Beta,
		res.Features.Gamma,
		res.Features.Coherence,
		res.Features.Attention,
		res.Features.LearningEfficiency,
		res.State.Stage.String(),
		res.State.State.String(),
		res.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save window result: %w", err)
	}
	return nil
}

func (s *Store) SaveKPIs(sessionID string, kpis signals.SessionKPIs) error {
	_, err := s.db.Exec(`INSERT INTO session_kpis VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		kpis.WindowCount,
		kpis.EngagementLevel,
		kpis.LearningEfficiency,
		kpis.RetentionCorrelation,
		kpis.AdaptationSpeed,
		kpis.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session KPIs: %w", err)
	}
	return nil
}

func (s *Store) SaveValidationSummary(sessionID string, summary *clinical.ValidationSummary) error {
	for _, res := range summary.Results {
		_, err := s.db.Exec(`INSERT INTO validation_results VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID,
			res.Name,
			res.Raw,
			res.Score,
			res.Passed,
			res.Diagnostic,
			summary.Threshold,
			summary.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to save validation result %q: %w", res.Name, err)
		}
	}
	return nil
}

// WindowCount reports how many windows are stored for a session.
func (s *Store) WindowCount(sessionID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM window_results WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count window results: %w", err)
	}
	return count, nil
}
