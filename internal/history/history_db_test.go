package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/studiowebux/discobrowse/internal/filter"
	"github.com/studiowebux/discobrowse/internal/migrations"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestNewManager_RunsMigrations(t *testing.T) {
	m := newTestManager(t)

	version, err := migrations.GetCurrentVersion(m.db)
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	want := migrations.AllMigrations[len(migrations.AllMigrations)-1].Version
	if version != want {
		t.Errorf("Expected schema version %d, got %d", want, version)
	}
}

func TestManager_RecordAndList(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Selection{
		{Timestamp: base, Kind: KindAPI, APIID: "adexperiencereport", Status: 200, Duration: 12 * time.Millisecond},
		{Timestamp: base.Add(time.Second), Kind: KindEndpoint, APIID: "adexperiencereport", EndpointName: "sites.get", Status: 500, Error: "unexpected status 500"},
	}
	for _, e := range entries {
		if err := m.Record(ctx, e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := m.List(ctx, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 selections, got %d", len(got))
	}

	newest := got[0]
	if newest.Kind != KindEndpoint || newest.EndpointName != "sites.get" || newest.Status != 500 {
		t.Errorf("Unexpected newest selection: %+v", newest)
	}
	if newest.Error != "unexpected status 500" {
		t.Errorf("Expected error text to round-trip, got %q", newest.Error)
	}
	if !newest.Timestamp.Equal(base.Add(time.Second)) {
		t.Errorf("Expected timestamp %v, got %v", base.Add(time.Second), newest.Timestamp)
	}
	if got[1].Duration != 12*time.Millisecond {
		t.Errorf("Expected duration 12ms, got %v", got[1].Duration)
	}
}

func TestManager_RecordRejectsUnknownKind(t *testing.T) {
	m := newTestManager(t)
	if err := m.Record(context.Background(), Selection{Kind: "other", APIID: "x"}); err == nil {
		t.Error("Expected error for unknown kind")
	}
}

func TestManager_RecentAPIs(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	record := func(offset int, apiID string, status int) {
		t.Helper()
		err := m.Record(ctx, Selection{
			Timestamp: base.Add(time.Duration(offset) * time.Second),
			Kind:      KindAPI,
			APIID:     apiID,
			Status:    status,
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	record(0, "drive", 200)
	record(1, "gmail", 200)
	record(2, "drive", 200)
	record(3, "missing", 404)
	if err := m.Record(ctx, Selection{Timestamp: base.Add(4 * time.Second), Kind: KindEndpoint, APIID: "calendar", EndpointName: "list", Status: 200}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	ids, err := m.RecentAPIs(ctx, 5)
	if err != nil {
		t.Fatalf("RecentAPIs failed: %v", err)
	}

	want := []string{"drive", "gmail"}
	if len(ids) != len(want) {
		t.Fatalf("Expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Position %d: expected %q, got %q", i, want[i], ids[i])
		}
	}
}

func TestManager_Clear(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if err := m.Record(ctx, Selection{Kind: KindAPI, APIID: "drive", Status: 200}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	count, err := m.GetCount(ctx)
	if err != nil {
		t.Fatalf("GetCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 selections after clear, got %d", count)
	}
}

func TestMigrations_Idempotent(t *testing.T) {
	m := newTestManager(t)

	if err := migrations.Run(m.db); err != nil {
		t.Errorf("Running migrations twice failed: %v", err)
	}
}

func TestManager_DBAcceptsBookmarkWrites(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	bookmarks := filter.NewBookmarkManager(m.DB())

	saved, err := bookmarks.Save(ctx, "parameters[?required].name")
	if err != nil || !saved {
		t.Fatalf("Save through the history database failed: saved=%v err=%v", saved, err)
	}
	found, err := bookmarks.Search(ctx, "required")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("Expected 1 bookmark, got %d", len(found))
	}
	if err := bookmarks.Delete(ctx, found[0].ID); err != nil {
		t.Errorf("Delete failed: %v", err)
	}

	// Selections are untouched by bookmark writes
	if count, err := m.GetCount(ctx); err != nil || count != 0 {
		t.Errorf("Expected 0 selections, got %d (err=%v)", count, err)
	}
}
