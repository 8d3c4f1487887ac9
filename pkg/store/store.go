// Package store keeps an audit trail of reply decisions in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cpunion/reply-bot/pkg/compose"
	"github.com/cpunion/reply-bot/pkg/types"
)

// Decision is one audited composer outcome.
type Decision struct {
	ID        string
	CreatedAt time.Time
	PostID    string
	AuthorID  string
	PostText  string
	Outcome   string
	Mode      string
	Strategy  string
	Reply     string
	Skipped   bool
}

// FromDecision flattens a composer decision for storage.
func FromDecision(post types.Post, d compose.Decision) Decision {
	out := Decision{
		PostID:   post.ID,
		AuthorID: post.AuthorID,
		PostText: post.Text,
		Outcome:  d.Outcome,
		Mode:     string(d.Mode),
		Skipped:  d.Response == nil,
	}
	if d.Strategy != nil {
		out.Strategy = d.Strategy.Strategy.String()
	}
	if d.Response != nil {
		out.Reply = d.Response.Text
	}
	return out
}

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	post_id TEXT NOT NULL DEFAULT '',
	author_id TEXT NOT NULL DEFAULT '',
	post_text TEXT NOT NULL,
	outcome TEXT NOT NULL,
	mode TEXT NOT NULL DEFAULT '',
	strategy TEXT NOT NULL DEFAULT '',
	reply TEXT NOT NULL DEFAULT '',
	skipped INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions(created_at);
CREATE INDEX IF NOT EXISTS idx_decisions_post ON decisions(post_id);
`

var columns = []string{"id", "created_at", "post_id", "author_id", "post_text", "outcome", "mode", "strategy", "reply", "skipped"}

// Store is the decision audit database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", "PRAGMA synchronous=NORMAL"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts d, assigning an ID and timestamp when missing.
func (s *Store) Record(ctx context.Context, d Decision) (Decision, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	query, args, err := sq.Insert("decisions").
		Columns(columns...).
		Values(d.ID, d.CreatedAt.UnixNano(), d.PostID, d.AuthorID, d.PostText, d.Outcome, d.Mode, d.Strategy, d.Reply, d.Skipped).
		ToSql()
	if err != nil {
		return Decision{}, err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return Decision{}, fmt.Errorf("insert decision: %w", err)
	}
	return d, nil
}

// RecordDecision stores a composer decision for post.
func (s *Store) RecordDecision(ctx context.Context, post types.Post, d compose.Decision) error {
	_, err := s.Record(ctx, FromDecision(post, d))
	return err
}

// Filter narrows Query.
type Filter struct {
	Limit       int
	Outcome     string
	AuthorID    string
	OnlyReplies bool
}

// Recent returns the newest decisions first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Decision, error) {
	return s.Query(ctx, Filter{Limit: limit})
}

// Query returns matching decisions, newest first.
func (s *Store) Query(ctx context.Context, f Filter) ([]Decision, error) {
	q := sq.Select(columns...).From("decisions").OrderBy("created_at DESC", "id")
	if f.Outcome != "" {
		q = q.Where(sq.Eq{"outcome": f.Outcome})
	}
	if f.AuthorID != "" {
		q = q.Where(sq.Eq{"author_id": f.AuthorID})
	}
	if f.OnlyReplies {
		q = q.Where(sq.Eq{"skipped": false})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var created int64
		if err := rows.Scan(&d.ID, &created, &d.PostID, &d.AuthorID, &d.PostText, &d.Outcome, &d.Mode, &d.Strategy, &d.Reply, &d.Skipped); err != nil {
			return nil, err
		}
		d.CreatedAt = time.Unix(0, created)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Counts returns the number of decisions per outcome.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	query, args, err := sq.Select("outcome", "COUNT(*)").From("decisions").GroupBy("outcome").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count decisions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[outcome] = n
	}
	return out, rows.Err()
}
