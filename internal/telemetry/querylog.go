package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/amanrag/internal/store"
)

// MaxUnansweredQuestions bounds the stored questions that found no passages.
const MaxUnansweredQuestions = 100

const queryLogSchema = `
CREATE TABLE IF NOT EXISTS query_terms (
	term      TEXT PRIMARY KEY,
	count     INTEGER NOT NULL DEFAULT 1,
	last_seen INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

CREATE TABLE IF NOT EXISTS unanswered_questions (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	question TEXT NOT NULL,
	asked_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS daily_queries (
	date    TEXT NOT NULL,
	mode    TEXT NOT NULL,
	count   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, mode)
);
`

// TermCount is how often a term appeared in questions.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// QueryStats summarizes the query log.
type QueryStats struct {
	TopTerms   []TermCount      `json:"top_terms"`
	Unanswered []string         `json:"unanswered"`
	Daily      map[string]int64 `json:"daily"`
}

// QueryLog keeps question analytics in SQLite: term frequencies, per-day
// counts by mode and recent questions that retrieved no passages.
type QueryLog struct {
	db  *sql.DB
	now func() time.Time
}

// OpenQueryLog opens (or creates) the query log at path; empty means in-memory.
func OpenQueryLog(path string) (*QueryLog, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
		dsn = path
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open query log: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragma: %w", err)
	}
	if _, err := db.Exec(queryLogSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create query log schema: %w", err)
	}
	return &QueryLog{db: db, now: time.Now}, nil
}

// Record logs one answered question. sources is the number of passages used.
func (l *QueryLog) Record(ctx context.Context, question, mode string, sources int) error {
	now := l.now()
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	counts := make(map[string]int64)
	for _, term := range store.Tokenize(question) {
		counts[term]++
	}
	for term, n := range counts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO query_terms (term, count, last_seen) VALUES (?, ?, ?)
			ON CONFLICT(term) DO UPDATE SET count = count + excluded.count, last_seen = excluded.last_seen`,
			term, n, now.Unix()); err != nil {
			return fmt.Errorf("upsert term: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO daily_queries (date, mode, count) VALUES (?, ?, 1)
		ON CONFLICT(date, mode) DO UPDATE SET count = count + 1`,
		now.Format(time.DateOnly), mode); err != nil {
		return fmt.Errorf("count query: %w", err)
	}

	if sources == 0 && mode != "none" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO unanswered_questions (question, asked_at) VALUES (?, ?)`, question, now.Unix()); err != nil {
			return fmt.Errorf("insert unanswered question: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM unanswered_questions
			WHERE id NOT IN (SELECT id FROM unanswered_questions ORDER BY id DESC LIMIT ?)`,
			MaxUnansweredQuestions); err != nil {
			return fmt.Errorf("trim unanswered questions: %w", err)
		}
	}
	return tx.Commit()
}

// Stats returns the top terms, most recent unanswered questions and per-day
// query totals.
func (l *QueryLog) Stats(ctx context.Context, limit int) (*QueryStats, error) {
	stats := &QueryStats{TopTerms: []TermCount{}, Unanswered: []string{}, Daily: map[string]int64{}}

	rows, err := l.db.QueryContext(ctx,
		`SELECT term, count FROM query_terms ORDER BY count DESC, term ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan term: %w", err)
		}
		stats.TopTerms = append(stats.TopTerms, tc)
	}
	_ = rows.Close()

	rows, err = l.db.QueryContext(ctx,
		`SELECT question FROM unanswered_questions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unanswered questions: %w", err)
	}
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan question: %w", err)
		}
		stats.Unanswered = append(stats.Unanswered, q)
	}
	_ = rows.Close()

	rows, err = l.db.QueryContext(ctx, `SELECT date, SUM(count) FROM daily_queries GROUP BY date`)
	if err != nil {
		return nil, fmt.Errorf("query daily counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var date string
		var n int64
		if err := rows.Scan(&date, &n); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		stats.Daily[date] = n
	}
	return stats, rows.Err()
}

// Close closes the database.
func (l *QueryLog) Close() error {
	return l.db.Close()
}
