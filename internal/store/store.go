package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kestrellabs/deepresearch/internal/citations"
	"github.com/kestrellabs/deepresearch/internal/evidence"
)

// Config holds Postgres connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Schema creates the session artifact tables. Applied idempotently at
// worker startup.
const Schema = `
CREATE TABLE IF NOT EXISTS research_sessions (
    session_id    TEXT PRIMARY KEY,
    topic         TEXT NOT NULL,
    sub_questions INT  NOT NULL,
    started_at    TIMESTAMPTZ NOT NULL,
    completed_at  TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS evidence_units (
    id              BIGSERIAL PRIMARY KEY,
    session_id      TEXT NOT NULL,
    sub_question_id TEXT NOT NULL,
    query           TEXT NOT NULL,
    depth           INT  NOT NULL,
    content         TEXT NOT NULL,
    global_refs     INT[] NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS global_citations (
    session_id TEXT NOT NULL,
    global_id  INT  NOT NULL,
    url        TEXT NOT NULL,
    title      TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (session_id, global_id)
);
CREATE TABLE IF NOT EXISTS reports (
    session_id TEXT PRIMARY KEY,
    report     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
`

// Store persists session artifacts: evidence, the citation table and
// the final report.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Store{db: db, logger: logger}, nil
}

// New wraps an existing connection; used by tests with sqlmock.
func New(db *sqlx.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// EnsureSchema applies the schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection; used by the health probes.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// CreateSession records a session at planning time.
func (s *Store) CreateSession(ctx context.Context, sessionID, topic string, subQuestions int, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO research_sessions (session_id, topic, sub_questions, started_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id) DO UPDATE SET topic = $2, sub_questions = $3`,
		sessionID, topic, subQuestions, startedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// SaveEvidence stores all evidence units for a session in one
// transaction.
func (s *Store) SaveEvidence(ctx context.Context, sessionID string, units []evidence.EvidenceUnit) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin evidence tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, u := range units {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO evidence_units (session_id, sub_question_id, query, depth, content, global_refs)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			sessionID, u.SubQuestionID, u.Query, u.Depth, u.Text, intArray(u.GlobalRefs)); err != nil {
			return fmt.Errorf("insert evidence unit: %w", err)
		}
	}
	return tx.Commit()
}

// SaveCitations stores the session's global citation table.
func (s *Store) SaveCitations(ctx context.Context, sessionID string, cites []citations.GlobalCitation) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin citations tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, c := range cites {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO global_citations (session_id, global_id, url, title)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (session_id, global_id) DO NOTHING`,
			sessionID, c.ID, c.URL, c.Title); err != nil {
			return fmt.Errorf("insert citation %d: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// SaveReport stores the final report and closes out the session row.
func (s *Store) SaveReport(ctx context.Context, sessionID, report string, completedAt time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (session_id, report, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (session_id) DO UPDATE SET report = $2, created_at = $3`,
		sessionID, report, completedAt); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE research_sessions SET completed_at = $2 WHERE session_id = $1`,
		sessionID, completedAt); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}

// intArray renders a Postgres int array literal. pq.Array would pull
// in reflection for a two-line format.
func intArray(xs []int) string {
	if len(xs) == 0 {
		return "{}"
	}
	out := "{"
	for i, x := range xs {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%d", x)
	}
	return out + "}"
}
