package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/discobrowse/internal/types"
)

const driveYAML = `
api:
  name: drive
  canonicalName: Drive
  version: v3
endpoints:
  - name: files.list
    httpMethod: GET
    base_url: https://www.googleapis.com/drive/v3/
    scopes:
      - https://www.googleapis.com/auth/drive.readonly
  - name: list
    base_url: https://www.googleapis.com/drive/v3/
`

const gmailJSONC = `{
  // trailing commas and comments are allowed here
  "id": "gmail",
  "api": {"canonicalName": "Gmail", "version": "v1",},
  "endpoints": [
    {"name": "list", "base_url": "https://gmail.googleapis.com/", "parameterOrder": ["userId"],
     "parameters": [{"name": "userId", "type": "string", "location": "path", "required": "true"}]},
  ],
}`

const petstoreOpenAPI = `{
  "openapi": "3.0.0",
  "info": {"title": "Petstore", "version": "1.0.0"},
  "servers": [{"url": "https://petstore.example.com/v1"}],
  "paths": {
    "/pets": {"get": {"operationId": "listPets", "responses": {"200": {"description": "ok"}}}}
  }
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func writeCatalog(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func openDir(t *testing.T, dir string) *Catalog {
	t.Helper()
	c, err := Open(context.Background(), Options{Dir: dir})
	require.NoError(t, err)
	return c
}

func TestOpen_Sample(t *testing.T) {
	c, err := Open(context.Background(), Options{})
	require.NoError(t, err)

	desc, err := c.API("adexperiencereport")
	require.NoError(t, err)
	assert.Equal(t, "Ad Experience Report", desc.API.CanonicalName)
	assert.Equal(t, "v1", desc.API.DiscoveryVersion)

	ep, err := c.Resolve("sites.get", "adexperiencereport")
	require.NoError(t, err)
	assert.Equal(t, "https://adexperiencereport.googleapis.com/", ep.BaseURL)
	assert.Equal(t, []string{"name"}, ep.ParameterOrder)
	assert.True(t, bool(ep.Parameters[0].Required))
}

func TestLoadDir_MixedFormats(t *testing.T) {
	dir := writeCatalog(t, map[string]string{
		"drive.yaml":    driveYAML,
		"gmail.jsonc":   gmailJSONC,
		"petstore.json": petstoreOpenAPI,
		"README.md":     "ignored",
		".hidden.yaml":  "not: [valid",
	})

	docs, err := LoadDir(context.Background(), dir, discardLogger())
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "drive", docs[0].ID, "id defaults to the file name")
	assert.Equal(t, "gmail", docs[1].ID)
	assert.Equal(t, "petstore", docs[2].ID)

	assert.Equal(t, "Petstore", docs[2].API.CanonicalName)
	require.Len(t, docs[2].Endpoints, 1)
	assert.Equal(t, "listPets", docs[2].Endpoints[0].Name)
	assert.Equal(t, "https://petstore.example.com/v1/", docs[2].Endpoints[0].BaseURL)

	assert.NotNil(t, docs[0].Endpoints[1].Parameters, "nil slices are normalized")
}

func TestLoadDir_InvalidFile(t *testing.T) {
	dir := writeCatalog(t, map[string]string{
		"good.yaml": driveYAML,
		"bad.json":  `{"api": {"canonicalName": "Bad"}, "endpoints": [{"name": "x", "parameterOrder": ["missing"]}]}`,
	})

	_, err := LoadDir(context.Background(), dir, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.json")
}

func TestReplace_DuplicateID(t *testing.T) {
	doc := types.CatalogDocument{ID: "dup", API: types.APIInfo{Name: "dup"}}
	_, err := New([]types.CatalogDocument{doc, doc})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestAPIsAndEndpoints(t *testing.T) {
	c := openDir(t, writeCatalog(t, map[string]string{
		"drive.yaml":  driveYAML,
		"gmail.jsonc": gmailJSONC,
	}))

	apis := c.APIs()
	require.Len(t, apis, 2)
	assert.Equal(t, types.APISummary{ID: "drive", Name: "Drive", Version: "v3"}, apis[0])

	eps, err := c.Endpoints("drive")
	require.NoError(t, err)
	require.Len(t, eps, 2)
	assert.Equal(t, "files.list", eps[0].Name)
	assert.Equal(t, "drive.files.list", eps[0].ID)

	_, err = c.Endpoints("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve(t *testing.T) {
	c := openDir(t, writeCatalog(t, map[string]string{
		"drive.yaml":  driveYAML,
		"gmail.jsonc": gmailJSONC,
	}))

	tests := []struct {
		name      string
		method    string
		apiID     string
		wantURL   string
		wantError error
	}{
		{"qualified id", "gmail.list", "", "https://gmail.googleapis.com/", nil},
		{"unique bare name", "files.list", "", "https://www.googleapis.com/drive/v3/", nil},
		{"bare name scoped by api", "list", "drive", "https://www.googleapis.com/drive/v3/", nil},
		{"ambiguous bare name", "list", "", "", ErrAmbiguous},
		{"unknown method", "nope", "", "", ErrNotFound},
		{"unknown api", "list", "nope", "", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, err := c.Resolve(tt.method, tt.apiID)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, ep.BaseURL)
		})
	}
}

func TestResolve_ReturnsCopy(t *testing.T) {
	c := openDir(t, writeCatalog(t, map[string]string{"drive.yaml": driveYAML}))

	ep, err := c.Resolve("files.list", "drive")
	require.NoError(t, err)
	ep.Scopes[0] = "mutated"

	again, err := c.Resolve("files.list", "drive")
	require.NoError(t, err)
	assert.Equal(t, "https://www.googleapis.com/auth/drive.readonly", again.Scopes[0])
}

func TestReload_KeepsPreviousOnError(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"drive.yaml": driveYAML})
	c := openDir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("api: [unclosed"), 0644))
	require.Error(t, c.Reload(context.Background()))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, os.Remove(filepath.Join(dir, "broken.yaml")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gmail.jsonc"), []byte(gmailJSONC), 0644))
	require.NoError(t, c.Reload(context.Background()))
	assert.Equal(t, 2, c.Len())
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"drive.yaml": driveYAML})
	c := openDir(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan error, 4)
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx, func(err error) { reloaded <- err }) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gmail.jsonc"), []byte(gmailJSONC), 0644))

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Expected catalog reload after file change")
	}
	assert.Equal(t, 2, c.Len())

	cancel()
	assert.NoError(t, <-done)
}
