// Package analytics aggregates the selection history into per-API and
// per-endpoint statistics.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/studiowebux/discobrowse/internal/history"
)

// DefaultTTL is how long aggregated stats are served from cache
const DefaultTTL = 30 * time.Second

// Stats summarizes the selections of one API, or of one endpoint
type Stats struct {
	APIID         string      `json:"api_id" yaml:"api_id"`
	EndpointName  string      `json:"endpoint_name,omitempty" yaml:"endpoint_name,omitempty"` // Empty for per-API rows
	TotalCalls    int         `json:"total_calls" yaml:"total_calls"`
	SuccessCount  int         `json:"success_count" yaml:"success_count"`
	ErrorCount    int         `json:"error_count" yaml:"error_count"`
	NetworkErrors int         `json:"network_errors" yaml:"network_errors"` // No response received (status 0)
	AvgDurationMs float64     `json:"avg_duration_ms" yaml:"avg_duration_ms"`
	MinDurationMs int64       `json:"min_duration_ms" yaml:"min_duration_ms"`
	MaxDurationMs int64       `json:"max_duration_ms" yaml:"max_duration_ms"`
	StatusCodes   map[int]int `json:"status_codes" yaml:"status_codes"`
	LastSelected  time.Time   `json:"last_selected" yaml:"last_selected"`
}

// SuccessRate returns the share of successful selections in [0, 1]
func (s Stats) SuccessRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.TotalCalls)
}

type Manager struct {
	db    *sql.DB
	cache *statsCache
}

// NewManager aggregates over the history database. A ttl <= 0 uses DefaultTTL.
func NewManager(h *history.Manager, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{db: h.DB(), cache: newStatsCache(ttl)}
}

// PerAPI returns API selection stats, most selected first
func (m *Manager) PerAPI(ctx context.Context) ([]Stats, error) {
	if stats, ok := m.cache.get(""); ok {
		return stats, nil
	}

	stats, err := m.aggregate(ctx, `kind = ?`, history.KindAPI)
	if err != nil {
		return nil, err
	}
	m.cache.set("", stats)
	return stats, nil
}

// PerEndpoint returns endpoint selection stats of one API
func (m *Manager) PerEndpoint(ctx context.Context, apiID string) ([]Stats, error) {
	if apiID == "" {
		return nil, fmt.Errorf("api id is required")
	}
	if stats, ok := m.cache.get(apiID); ok {
		return stats, nil
	}

	stats, err := m.aggregate(ctx, `kind = ? AND api_id = ?`, history.KindEndpoint, apiID)
	if err != nil {
		return nil, err
	}
	m.cache.set(apiID, stats)
	return stats, nil
}

// Invalidate drops cached stats, e.g. after the history was cleared
func (m *Manager) Invalidate() {
	m.cache.invalidate()
}

func (m *Manager) aggregate(ctx context.Context, where string, args ...any) ([]Stats, error) {
	query := `
		SELECT
			api_id,
			COALESCE(endpoint_name, ''),
			COUNT(*),
			SUM(CASE WHEN status = 200 AND (error IS NULL OR error = '') THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 0 THEN 1 ELSE 0 END),
			AVG(duration_ms),
			MIN(duration_ms),
			MAX(duration_ms),
			MAX(timestamp)
		FROM selections
		WHERE ` + where + `
		GROUP BY api_id, COALESCE(endpoint_name, '')
		ORDER BY COUNT(*) DESC, MAX(timestamp) DESC
	`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate selections: %w", err)
	}
	defer rows.Close()

	var stats []Stats
	for rows.Next() {
		var s Stats
		var lastSelected string
		if err := rows.Scan(
			&s.APIID,
			&s.EndpointName,
			&s.TotalCalls,
			&s.SuccessCount,
			&s.NetworkErrors,
			&s.AvgDurationMs,
			&s.MinDurationMs,
			&s.MaxDurationMs,
			&lastSelected,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		s.ErrorCount = s.TotalCalls - s.SuccessCount - s.NetworkErrors
		s.LastSelected = history.ParseTimestamp(lastSelected)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range stats {
		codes, err := m.statusCodes(ctx, stats[i].APIID, stats[i].EndpointName, where, args...)
		if err != nil {
			return nil, err
		}
		stats[i].StatusCodes = codes
	}
	return stats, nil
}

func (m *Manager) statusCodes(ctx context.Context, apiID, endpoint, where string, args ...any) (map[int]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM selections
		WHERE ` + where + ` AND api_id = ? AND COALESCE(endpoint_name, '') = ?
		GROUP BY status
	`

	queryArgs := append(append([]any{}, args...), apiID, endpoint)
	rows, err := m.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to load status codes: %w", err)
	}
	defer rows.Close()

	codes := make(map[int]int)
	for rows.Next() {
		var status, count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status code: %w", err)
		}
		codes[status] = count
	}
	return codes, rows.Err()
}
