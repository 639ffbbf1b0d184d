// Package history persists completed searches to Postgres. It is an
// optional subsystem; the daemon runs without it when no database is
// configured.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Record is one completed search.
type Record struct {
	Token    string
	Variant  string
	Position string
	Move     string
	Ponder   string
	Depth    int
	Score    float64
	Nodes    int64
	Duration time.Duration
	Stopped  bool
	At       time.Time
}

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database url required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// EnsureSchema creates the searches table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	const q = `CREATE TABLE IF NOT EXISTS searches (
		token       TEXT PRIMARY KEY,
		variant     TEXT NOT NULL,
		position    TEXT NOT NULL,
		move        TEXT NOT NULL,
		ponder      TEXT,
		depth       INT,
		score       DOUBLE PRECISION,
		nodes       BIGINT,
		duration_ms BIGINT,
		stopped     BOOLEAN NOT NULL DEFAULT FALSE,
		at          TIMESTAMPTZ NOT NULL
	)`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

// SaveSearch upserts one completed search keyed by its submission token.
func (r *Repository) SaveSearch(ctx context.Context, rec Record) error {
	if r == nil || r.db == nil {
		return nil
	}
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	const q = `INSERT INTO searches (
		token, variant, position, move, ponder, depth, score, nodes, duration_ms, stopped, at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	ON CONFLICT (token) DO UPDATE SET
		move=EXCLUDED.move,
		ponder=EXCLUDED.ponder,
		depth=EXCLUDED.depth,
		score=EXCLUDED.score,
		nodes=EXCLUDED.nodes,
		duration_ms=EXCLUDED.duration_ms,
		stopped=EXCLUDED.stopped,
		at=EXCLUDED.at`
	_, err := r.db.ExecContext(ctx, q,
		rec.Token, rec.Variant, rec.Position, rec.Move, rec.Ponder,
		rec.Depth, rec.Score, rec.Nodes, rec.Duration.Milliseconds(), rec.Stopped, rec.At,
	)
	if err != nil {
		return fmt.Errorf("save search: %w", err)
	}
	return nil
}

// RecentSearches returns up to limit records, newest first.
func (r *Repository) RecentSearches(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT token, variant, position, move, COALESCE(ponder,''),
		depth, score, nodes, duration_ms, stopped, at
		FROM searches ORDER BY at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var durMS int64
		if err := rows.Scan(&rec.Token, &rec.Variant, &rec.Position, &rec.Move, &rec.Ponder,
			&rec.Depth, &rec.Score, &rec.Nodes, &durMS, &rec.Stopped, &rec.At); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}
