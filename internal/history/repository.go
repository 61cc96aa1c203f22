// Package history persists completed analyses to Postgres so recent requests
// can be listed through the API. The store is optional; without a database
// URL every call is a no-op.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Record is one stored analysis run.
type Record struct {
	ID         string          `json:"id"`
	FEN        string          `json:"fen"`
	Depth      int             `json:"depth"`
	MultiPV    int             `json:"multipv"`
	Lang       string          `json:"lang"`
	BestMove   string          `json:"best_move"`
	ScoreText  string          `json:"score"`
	Result     json.RawMessage `json:"result,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Repository writes and lists analysis records.
type Repository interface {
	Insert(ctx context.Context, rec *Record) error
	Recent(ctx context.Context, limit int) ([]*Record, error)
}

type repository struct {
	db *sql.DB
}

// New opens a Postgres connection for poolURL, verifies it, and ensures the
// analyses table exists.
func New(ctx context.Context, databaseURL string) (Repository, *sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return &repository{db: db}, db, nil
}

// NewWithDB wraps an existing connection, for tests.
func NewWithDB(db *sql.DB) Repository {
	return &repository{db: db}
}

func migrate(ctx context.Context, db *sql.DB) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS analyses (
			id          UUID PRIMARY KEY,
			fen         TEXT NOT NULL,
			depth       INT NOT NULL,
			multipv     INT NOT NULL,
			lang        TEXT NOT NULL,
			best_move   TEXT NOT NULL,
			score       TEXT NOT NULL,
			result      JSONB,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create analyses table: %w", err)
	}
	return nil
}

func (r *repository) Insert(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("nil analysis record")
	}
	const query = `
		INSERT INTO analyses (
			id, fen, depth, multipv, lang, best_move, score, result, duration_ms, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var result any
	if len(rec.Result) > 0 {
		result = []byte(rec.Result)
	}
	_, err := r.db.ExecContext(
		ctx,
		query,
		rec.ID,
		rec.FEN,
		rec.Depth,
		rec.MultiPV,
		rec.Lang,
		rec.BestMove,
		rec.ScoreText,
		result,
		rec.DurationMS,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *repository) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT id, fen, depth, multipv, lang, best_move, score, duration_ms, created_at
		FROM analyses
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select analyses: %w", err)
	}
	defer rows.Close()

	recs := make([]*Record, 0, limit)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID,
			&rec.FEN,
			&rec.Depth,
			&rec.MultiPV,
			&rec.Lang,
			&rec.BestMove,
			&rec.ScoreText,
			&rec.DurationMS,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return recs, nil
}
