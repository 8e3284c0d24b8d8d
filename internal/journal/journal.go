// Package journal records tree mutations in a SQL database so that the web
// API can report activity over time. The journal is advisory: a journal
// failure never fails the insert that triggered it.
package journal

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Entry is one recorded mutation.
type Entry struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	RecordID  string    `json:"record_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityBucket is a per-day mutation count.
type ActivityBucket struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// Journal writes mutation entries to either a SQLite or PostgreSQL backend.
// Writes go through a circuit breaker so a dead database degrades to logged
// warnings instead of per-insert latency.
type Journal struct {
	db      *sql.DB
	engine  string
	breaker *gobreaker.CircuitBreaker
}

const (
	sqliteSchema = `
		CREATE TABLE IF NOT EXISTS mutations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			record_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`

	postgresSchema = `
		CREATE TABLE IF NOT EXISTS mutations (
			id BIGSERIAL PRIMARY KEY,
			kind TEXT NOT NULL,
			record_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
)

// Open connects to the journal backend and ensures the schema exists.
// Supported engines are "sqlite" (DSN is a file path) and "postgres" (DSN is
// a connection string).
func Open(engine, dsn string) (*Journal, error) {
	var (
		db     *sql.DB
		schema string
		err    error
	)

	switch engine {
	case "", "sqlite":
		engine = "sqlite"
		schema = sqliteSchema
		db, err = sql.Open("sqlite", dsn)
	case "postgres":
		schema = postgresSchema
		db, err = sql.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("journal: unsupported engine %q", engine)
	}
	if err != nil {
		return nil, fmt.Errorf("journal: failed to open %s database: %w", engine, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: failed to connect to %s database: %w", engine, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: failed to create schema: %w", err)
	}

	j := &Journal{db: db, engine: engine}
	j.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "journal",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("journal: circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return j, nil
}

// placeholder returns the parameter marker for position n in the active
// engine's dialect.
func (j *Journal) placeholder(n int) string {
	if j.engine == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Record journals a mutation. Failures (including an open breaker) are
// logged and swallowed; the mutation itself has already succeeded.
func (j *Journal) Record(kind, recordID string) {
	if j == nil {
		return
	}
	_, err := j.breaker.Execute(func() (interface{}, error) {
		query := fmt.Sprintf(
			"INSERT INTO mutations (kind, record_id) VALUES (%s, %s)",
			j.placeholder(1), j.placeholder(2),
		)
		_, execErr := j.db.Exec(query, kind, recordID)
		return nil, execErr
	})
	if err != nil {
		log.Printf("journal: failed to record %s %s: %v", kind, recordID, err)
	}
}

// Recent returns the most recent entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(
		"SELECT id, kind, record_id, created_at FROM mutations ORDER BY id DESC LIMIT %s",
		j.placeholder(1),
	)
	rows, err := j.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: failed to query recent entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.RecordID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("journal: failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Activity returns per-day mutation counts for the trailing window, oldest
// day first. Days without mutations are absent.
func (j *Journal) Activity(days int) ([]ActivityBucket, error) {
	if days <= 0 {
		days = 30
	}

	var query string
	if j.engine == "postgres" {
		query = `
			SELECT to_char(created_at, 'YYYY-MM-DD') AS day, COUNT(*)
			FROM mutations
			WHERE created_at >= NOW() - ($1 || ' days')::interval
			GROUP BY day ORDER BY day`
	} else {
		query = `
			SELECT date(created_at) AS day, COUNT(*)
			FROM mutations
			WHERE created_at >= datetime('now', '-' || ? || ' days')
			GROUP BY day ORDER BY day`
	}

	rows, err := j.db.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("journal: failed to query activity: %w", err)
	}
	defer rows.Close()

	var buckets []ActivityBucket
	for rows.Next() {
		var b ActivityBucket
		if err := rows.Scan(&b.Day, &b.Count); err != nil {
			return nil, fmt.Errorf("journal: failed to scan activity bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// Total returns the total number of journaled mutations.
func (j *Journal) Total() (int, error) {
	var n int
	if err := j.db.QueryRow("SELECT COUNT(*) FROM mutations").Scan(&n); err != nil {
		return 0, fmt.Errorf("journal: failed to count entries: %w", err)
	}
	return n, nil
}

// Close releases the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
