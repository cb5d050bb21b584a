package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

const passageSchema = `
CREATE TABLE IF NOT EXISTS passages (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	source_id  TEXT NOT NULL,
	page       INTEGER,
	text       TEXT NOT NULL,
	tags       TEXT NOT NULL DEFAULT '[]',
	extra      TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passages_source ON passages(source_id);
`

// PassageStore persists passages in SQLite. Insertion order is preserved and
// is the order the lexical index is rebuilt in.
type PassageStore struct {
	db   *sql.DB
	path string
}

// OpenPassageStore opens (or creates) the passage database at path.
// An empty path opens an in-memory database for tests.
func OpenPassageStore(path string) (*PassageStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open passage database: %w", err)
	}
	// Single connection: required for :memory: and keeps writers serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(passageSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create passage schema: %w", err)
	}

	return &PassageStore{db: db, path: path}, nil
}

// Add stores passages and returns them with their new IDs, in input order.
func (s *PassageStore) Add(ctx context.Context, passages []Passage) ([]StoredPassage, error) {
	if len(passages) == 0 {
		return []StoredPassage{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO passages (id, source_id, page, text, tags, extra, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	stored := make([]StoredPassage, 0, len(passages))
	for _, p := range passages {
		if p.Metadata.SourceID == "" {
			return nil, fmt.Errorf("passage is missing a source id")
		}
		tags, err := json.Marshal(nonNil(p.Metadata.Tags))
		if err != nil {
			return nil, fmt.Errorf("encode tags: %w", err)
		}
		extra, err := json.Marshal(p.Metadata.Extra)
		if err != nil {
			return nil, fmt.Errorf("encode extra metadata: %w", err)
		}

		var page sql.NullInt64
		if p.Metadata.Page != nil {
			page = sql.NullInt64{Int64: int64(*p.Metadata.Page), Valid: true}
		}

		id := uuid.NewString()
		if _, err := stmt.ExecContext(ctx, id, p.Metadata.SourceID, page, p.Text, string(tags), string(extra), now); err != nil {
			return nil, fmt.Errorf("insert passage: %w", err)
		}
		stored = append(stored, StoredPassage{ID: id, Passage: p})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit passages: %w", err)
	}
	return stored, nil
}

// All returns every stored passage in insertion order.
func (s *PassageStore) All(ctx context.Context) ([]StoredPassage, error) {
	return s.query(ctx, `SELECT id, source_id, page, text, tags, extra FROM passages ORDER BY seq`)
}

// BySource returns the passages of one source in insertion order.
func (s *PassageStore) BySource(ctx context.Context, sourceID string) ([]StoredPassage, error) {
	return s.query(ctx, `SELECT id, source_id, page, text, tags, extra FROM passages WHERE source_id = ? ORDER BY seq`, sourceID)
}

func (s *PassageStore) query(ctx context.Context, q string, args ...any) ([]StoredPassage, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query passages: %w", err)
	}
	defer rows.Close()

	out := []StoredPassage{}
	for rows.Next() {
		var (
			sp          StoredPassage
			page        sql.NullInt64
			tags, extra string
		)
		if err := rows.Scan(&sp.ID, &sp.Metadata.SourceID, &page, &sp.Text, &tags, &extra); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		if page.Valid {
			n := int(page.Int64)
			sp.Metadata.Page = &n
		}
		if err := json.Unmarshal([]byte(tags), &sp.Metadata.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", sp.ID, err)
		}
		if len(sp.Metadata.Tags) == 0 {
			sp.Metadata.Tags = nil
		}
		if err := json.Unmarshal([]byte(extra), &sp.Metadata.Extra); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", sp.ID, err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// DeleteSource removes all passages of a source and returns their IDs.
func (s *PassageStore) DeleteSource(ctx context.Context, sourceID string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM passages WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list source passages: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM passages WHERE source_id = ?`, sourceID); err != nil {
		return nil, fmt.Errorf("delete source passages: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete: %w", err)
	}
	return ids, nil
}

// Clear removes every passage.
func (s *PassageStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM passages`); err != nil {
		return fmt.Errorf("clear passages: %w", err)
	}
	return nil
}

// Count returns the number of stored passages.
func (s *PassageStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count passages: %w", err)
	}
	return n, nil
}

// Sources summarizes stored passages per source, ordered by source id.
func (s *PassageStore) Sources(ctx context.Context) ([]SourceInfo, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	bySource := make(map[string]*SourceInfo)
	var order []string
	for _, p := range all {
		info, ok := bySource[p.Metadata.SourceID]
		if !ok {
			info = &SourceInfo{SourceID: p.Metadata.SourceID}
			bySource[p.Metadata.SourceID] = info
			order = append(order, p.Metadata.SourceID)
		}
		info.Passages++
		for _, t := range p.Metadata.Tags {
			if !slices.Contains(info.Tags, t) {
				info.Tags = append(info.Tags, t)
			}
		}
	}

	slices.Sort(order)
	out := make([]SourceInfo, 0, len(order))
	for _, id := range order {
		info := bySource[id]
		slices.Sort(info.Tags)
		out = append(out, *info)
	}
	return out, nil
}

// Tags returns the sorted set of tags used by any passage.
func (s *PassageStore) Tags(ctx context.Context) ([]string, error) {
	sources, err := s.Sources(ctx)
	if err != nil {
		return nil, err
	}
	tags := []string{}
	for _, src := range sources {
		for _, t := range src.Tags {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}
	}
	slices.Sort(tags)
	return tags, nil
}

// Close closes the database.
func (s *PassageStore) Close() error {
	return s.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
