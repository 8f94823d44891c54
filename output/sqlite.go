package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure-Go SQLite driver for database/sql.
	_ "github.com/glebarez/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS output_lines (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		channel    TEXT NOT NULL,
		line       TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS output_lines_channel ON output_lines(channel, id)`,
}

// Line is one persisted output line.
type Line struct {
	Channel string
	Text    string
	Time    time.Time
}

var _ Factory = (*SQLiteStore)(nil)

// SQLiteStore persists output channels in a SQLite database so diagnostics
// survive the process.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the store at path. Use ":memory:" for a
// throwaway store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating output store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening output store %q: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, _ = db.Exec("PRAGMA journal_mode=WAL")
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating output store schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateChannel(ctx context.Context, name string) (Channel, error) {
	if name == "" {
		return nil, fmt.Errorf("output channel name must not be empty")
	}
	if err := s.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("output store unavailable: %w", err)
	}
	return &channel{
		name: name,
		w: newLineWriter(func(line string) error {
			_, err := s.db.Exec(
				"INSERT INTO output_lines (channel, line, created_at) VALUES (?, ?, ?)",
				name, line, time.Now().UnixMilli())
			if err != nil {
				return fmt.Errorf("appending to output channel %q: %w", name, err)
			}
			return nil
		}),
	}, nil
}

// Lines returns the last limit lines of a channel in write order. A limit of
// zero or less returns every line.
func (s *SQLiteStore) Lines(ctx context.Context, name string, limit int) ([]Line, error) {
	query := `SELECT channel, line, created_at FROM (
		SELECT id, channel, line, created_at FROM output_lines
		WHERE channel = ? ORDER BY id DESC LIMIT ?
	) ORDER BY id ASC`
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, query, name, limit)
	if err != nil {
		return nil, fmt.Errorf("querying output channel %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	var lines []Line
	for rows.Next() {
		var l Line
		var ms int64
		if err := rows.Scan(&l.Channel, &l.Text, &ms); err != nil {
			return nil, fmt.Errorf("scanning output line: %w", err)
		}
		l.Time = time.UnixMilli(ms)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// Channels lists the channel names present in the store.
func (s *SQLiteStore) Channels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT channel FROM output_lines ORDER BY channel")
	if err != nil {
		return nil, fmt.Errorf("listing output channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning channel name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
