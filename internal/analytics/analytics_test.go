package analytics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/discobrowse/internal/history"
)

func seedHistory(t *testing.T) *history.Manager {
	t.Helper()
	h, err := history.NewManager(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	selections := []history.Selection{
		{Kind: history.KindAPI, APIID: "adexperiencereport", Status: 200, Duration: 10 * time.Millisecond},
		{Kind: history.KindAPI, APIID: "adexperiencereport", Status: 200, Duration: 30 * time.Millisecond},
		{Kind: history.KindAPI, APIID: "adexperiencereport", Status: 404, Error: "Request failed.  Returned status of 404"},
		{Kind: history.KindAPI, APIID: "drive", Status: 0, Error: "connection refused"},
		{Kind: history.KindEndpoint, APIID: "adexperiencereport", EndpointName: "sites.get", Status: 200, Duration: 5 * time.Millisecond},
		{Kind: history.KindEndpoint, APIID: "drive", EndpointName: "files.list", Status: 200},
	}
	for i, sel := range selections {
		sel.Timestamp = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, h.Record(context.Background(), sel))
	}
	return h
}

func TestPerAPI(t *testing.T) {
	m := NewManager(seedHistory(t), 0)

	stats, err := m.PerAPI(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	ad := stats[0]
	assert.Equal(t, "adexperiencereport", ad.APIID)
	assert.Equal(t, "", ad.EndpointName)
	assert.Equal(t, 3, ad.TotalCalls)
	assert.Equal(t, 2, ad.SuccessCount)
	assert.Equal(t, 1, ad.ErrorCount)
	assert.Equal(t, 0, ad.NetworkErrors)
	assert.Equal(t, int64(0), ad.MinDurationMs)
	assert.Equal(t, int64(30), ad.MaxDurationMs)
	assert.Equal(t, map[int]int{200: 2, 404: 1}, ad.StatusCodes)
	assert.InDelta(t, 2.0/3.0, ad.SuccessRate(), 0.001)
	assert.True(t, ad.LastSelected.Equal(time.Date(2026, 3, 1, 12, 0, 2, 0, time.UTC)), "last selected %v", ad.LastSelected)

	drive := stats[1]
	assert.Equal(t, "drive", drive.APIID)
	assert.Equal(t, 1, drive.NetworkErrors)
	assert.Equal(t, 0, drive.ErrorCount)
}

func TestPerEndpoint(t *testing.T) {
	m := NewManager(seedHistory(t), 0)

	stats, err := m.PerEndpoint(context.Background(), "adexperiencereport")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "sites.get", stats[0].EndpointName)
	assert.Equal(t, 1, stats[0].SuccessCount)

	_, err = m.PerEndpoint(context.Background(), "")
	assert.Error(t, err)
}

func TestStatsCache(t *testing.T) {
	h := seedHistory(t)
	m := NewManager(h, time.Hour)
	ctx := context.Background()

	first, err := m.PerAPI(ctx)
	require.NoError(t, err)

	require.NoError(t, h.Clear(ctx))
	cached, err := m.PerAPI(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	m.Invalidate()
	fresh, err := m.PerAPI(ctx)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestSuccessRate_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Stats{}.SuccessRate())
}
