package filter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Bookmark is a saved JMESPath expression
type Bookmark struct {
	ID         int       `json:"id" yaml:"id"`
	Expression string    `json:"expression" yaml:"expression"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// BookmarkManager persists bookmarks in the history database
type BookmarkManager struct {
	db *sql.DB
}

// NewBookmarkManager uses db, which must have the filter_bookmarks table
// (see the migrations package)
func NewBookmarkManager(db *sql.DB) *BookmarkManager {
	return &BookmarkManager{db: db}
}

// Save adds a bookmark. It returns false when the expression was already saved.
func (m *BookmarkManager) Save(ctx context.Context, expression string) (bool, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return false, fmt.Errorf("expression cannot be empty")
	}
	if !IsValidJMESPath(expression) {
		return false, fmt.Errorf("invalid JMESPath expression %q", expression)
	}

	result, err := m.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO filter_bookmarks (expression, created_at)
		VALUES (?, ?)
	`, expression, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to save bookmark: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check save result: %w", err)
	}
	return rows > 0, nil
}

// Get returns the bookmark with id
func (m *BookmarkManager) Get(ctx context.Context, id int) (Bookmark, error) {
	var b Bookmark
	err := m.db.QueryRowContext(ctx, `
		SELECT id, expression, created_at FROM filter_bookmarks WHERE id = ?
	`, id).Scan(&b.ID, &b.Expression, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return Bookmark{}, fmt.Errorf("bookmark %d not found", id)
	}
	if err != nil {
		return Bookmark{}, fmt.Errorf("failed to load bookmark: %w", err)
	}
	return b, nil
}

// Delete removes a bookmark by ID
func (m *BookmarkManager) Delete(ctx context.Context, id int) error {
	result, err := m.db.ExecContext(ctx, "DELETE FROM filter_bookmarks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("bookmark %d not found", id)
	}
	return nil
}

// Search lists bookmarks whose expression contains query (case-insensitive),
// newest first. An empty query lists all.
func (m *BookmarkManager) Search(ctx context.Context, query string) ([]Bookmark, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, expression, created_at
		FROM filter_bookmarks
		WHERE expression LIKE ?
		ORDER BY created_at DESC, id DESC
	`, "%"+strings.TrimSpace(query)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []Bookmark
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.Expression, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookmarks: %w", err)
	}
	return bookmarks, nil
}
