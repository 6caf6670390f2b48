// Package history keeps a sqlite log of picker selections. Only ids, status
// codes and timings are stored; descriptor bodies never are.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/studiowebux/discobrowse/internal/migrations"
)

// Selection kinds
const (
	KindAPI      = "api"
	KindEndpoint = "endpoint"
)

const timestampLayout = "2006-01-02 15:04:05.000"

// Selection is one recorded picker selection
type Selection struct {
	ID           int64
	Timestamp    time.Time
	Kind         string
	APIID        string
	EndpointName string
	Status       int // HTTP status, 0 when no response was received
	Duration     time.Duration
	Error        string
}

type Manager struct {
	db *sql.DB
}

func NewManager(dbPath string) (*Manager, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Manager{db: db}, nil
}

// Record stores a selection. A zero Timestamp is replaced by the current time.
func (m *Manager) Record(ctx context.Context, sel Selection) error {
	if sel.Kind != KindAPI && sel.Kind != KindEndpoint {
		return fmt.Errorf("invalid selection kind %q", sel.Kind)
	}
	if sel.Timestamp.IsZero() {
		sel.Timestamp = time.Now()
	}

	query := `
		INSERT INTO selections (
			timestamp, kind, api_id, endpoint_name, status, duration_ms, error
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := m.db.ExecContext(ctx, query,
		sel.Timestamp.UTC().Format(timestampLayout),
		sel.Kind,
		sel.APIID,
		nullString(sel.EndpointName),
		sel.Status,
		sel.Duration.Milliseconds(),
		nullString(sel.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}

	return nil
}

// List returns the most recent selections, newest first
func (m *Manager) List(ctx context.Context, limit int) ([]Selection, error) {
	query := `
		SELECT id, timestamp, kind, api_id, endpoint_name, status, duration_ms, error
		FROM selections
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := m.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load selections: %w", err)
	}
	defer rows.Close()

	var result []Selection
	for rows.Next() {
		var sel Selection
		var timestamp string
		var endpointName sql.NullString
		var durationMs int64
		var errorMsg sql.NullString

		if err := rows.Scan(
			&sel.ID,
			&timestamp,
			&sel.Kind,
			&sel.APIID,
			&endpointName,
			&sel.Status,
			&durationMs,
			&errorMsg,
		); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}

		sel.Timestamp = ParseTimestamp(timestamp)
		sel.EndpointName = endpointName.String
		sel.Duration = time.Duration(durationMs) * time.Millisecond
		sel.Error = errorMsg.String
		result = append(result, sel)
	}

	return result, rows.Err()
}

// RecentAPIs returns up to n distinct API ids that were loaded successfully,
// most recently used first
func (m *Manager) RecentAPIs(ctx context.Context, n int) ([]string, error) {
	query := `
		SELECT api_id
		FROM selections
		WHERE kind = ? AND status = 200 AND (error IS NULL OR error = '')
		GROUP BY api_id
		ORDER BY MAX(timestamp) DESC, MAX(id) DESC
		LIMIT ?
	`

	rows, err := m.db.QueryContext(ctx, query, KindAPI, n)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent APIs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan recent API: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (m *Manager) Clear(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, "DELETE FROM selections")
	if err != nil {
		return fmt.Errorf("failed to clear selections: %w", err)
	}
	return nil
}

func (m *Manager) GetCount(ctx context.Context) (int, error) {
	var count int
	err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM selections").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get selection count: %w", err)
	}
	return count, nil
}

// DB exposes the underlying database. Selection stats read it and filter
// bookmarks read and write their own table in it.
func (m *Manager) DB() *sql.DB {
	return m.db
}

func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// ParseTimestamp reads a stored timestamp back into local time. Unparseable
// values yield the zero time.
func ParseTimestamp(s string) time.Time {
	if t, err := time.ParseInLocation(timestampLayout, s, time.UTC); err == nil {
		return t.Local()
	}
	// go-sqlite3 hands DATETIME columns back as time.Time, which database/sql
	// formats as RFC3339 when scanning into a string
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.Local()
	}
	return time.Time{}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
