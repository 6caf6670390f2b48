package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/discobrowse/internal/catalog"
	"github.com/studiowebux/discobrowse/internal/client"
	"github.com/studiowebux/discobrowse/internal/selection"
	"github.com/studiowebux/discobrowse/internal/state"
	"github.com/studiowebux/discobrowse/internal/types"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	sample, err := catalog.Sample()
	require.NoError(t, err)

	docs := append(sample, types.CatalogDocument{
		ID:  "drive",
		API: types.APIInfo{Name: "drive", CanonicalName: "Drive"},
		Endpoints: []types.EndpointDescriptor{
			{Name: "files.list", BaseURL: "https://www.googleapis.com/drive/v3/"},
			{Name: "sites.get", BaseURL: "https://www.googleapis.com/drive/v3/"},
		},
	})

	c, err := catalog.New(docs)
	require.NoError(t, err)
	return c
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(testCatalog(t), Options{})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestAPIDetail(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts, "/api_detail?api_id=adexperiencereport")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	desc, err := types.DecodeAPIDescriptor(body)
	require.NoError(t, err)
	assert.Equal(t, "Ad Experience Report", desc.API.CanonicalName)
	assert.Equal(t, "http://www.google.com/images/icons/product/search-16.gif", desc.API.Icons.X16)
}

func TestAPIDetail_Errors(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts, "/api_detail")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "missing api_id")

	resp, body = get(t, ts, "/api_detail?api_id=unknown")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(body, &apiErr))
	assert.Equal(t, resp.Header.Get(RequestIDHeader), apiErr.RequestID)
}

func TestEndpointDetail(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantURL    string
	}{
		{"qualified id", "method_name=adexperiencereport.sites.get", http.StatusOK, "https://adexperiencereport.googleapis.com/"},
		{"unique bare name", "method_name=files.list", http.StatusOK, "https://www.googleapis.com/drive/v3/"},
		{"scoped bare name", "method_name=sites.get&api_id=drive", http.StatusOK, "https://www.googleapis.com/drive/v3/"},
		{"ambiguous bare name", "method_name=sites.get", http.StatusConflict, ""},
		{"unknown", "method_name=nope", http.StatusNotFound, ""},
		{"missing", "", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, ts, "/endpoint_detail?"+tt.query)
			require.Equal(t, tt.wantStatus, resp.StatusCode, string(body))
			if tt.wantStatus != http.StatusOK {
				return
			}

			ep, err := types.DecodeEndpointDescriptor(body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, ep.BaseURL)
		})
	}
}

func TestListRoutes(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts, "/apis")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var apis []types.APISummary
	require.NoError(t, json.Unmarshal(body, &apis))
	require.Len(t, apis, 2)
	assert.Equal(t, "adexperiencereport", apis[0].ID)
	assert.Equal(t, "drive", apis[1].ID)

	resp, body = get(t, ts, "/api_endpoints?api_id=adexperiencereport")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var eps []types.EndpointSummary
	require.NoError(t, json.Unmarshal(body, &eps))
	require.Len(t, eps, 2)
	assert.Equal(t, "sites.get", eps[0].Name)
	assert.Equal(t, "violatingSites.list", eps[1].Name)

	resp, _ = get(t, ts, "/api_endpoints?api_id=unknown")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = get(t, ts, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api_detail?api_id=adexperiencereport", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET, HEAD", resp.Header.Get("Allow"))
}

func TestRequestIDAndLog(t *testing.T) {
	s, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/apis", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "fixed-id")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "fixed-id", resp.Header.Get(RequestIDHeader))

	resp, _ = get(t, ts, "/api_detail?api_id=unknown")
	generated := resp.Header.Get(RequestIDHeader)
	assert.Len(t, generated, 36, "generated ids are UUIDs")

	// Entries are kept after the response is written
	require.Eventually(t, func() bool { return len(s.GetLogs()) == 2 }, time.Second, 5*time.Millisecond)
	logs := s.GetLogs()
	assert.Equal(t, "fixed-id", logs[0].RequestID)
	assert.Equal(t, "/apis", logs[0].Path)
	assert.Equal(t, http.StatusNotFound, logs[1].Status)
	assert.Equal(t, "api_id=unknown", logs[1].Query)

	s.ClearLogs()
	assert.Empty(t, s.GetLogs())
}

func TestRequestsRoute(t *testing.T) {
	s, ts := newTestServer(t)

	get(t, ts, "/apis")
	get(t, ts, "/api_detail?api_id=adexperiencereport")
	require.Eventually(t, func() bool { return len(s.GetLogs()) == 2 }, time.Second, 5*time.Millisecond)

	resp, body := get(t, ts, RequestsPath)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var logs []RequestLog
	require.NoError(t, json.Unmarshal(body, &logs))
	require.Len(t, logs, 2, "reading the log is not logged")
	assert.Equal(t, "/apis", logs[0].Path)
	assert.Equal(t, uint64(1), logs[0].Seq)
	assert.Equal(t, uint64(2), logs[1].Seq)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+RequestsPath, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, s.GetLogs())

	resp, err = http.Post(ts.URL+RequestsPath, "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET, HEAD, DELETE", resp.Header.Get("Allow"))
}

func TestLogsSince(t *testing.T) {
	s := New(testCatalog(t), Options{})
	for _, path := range []string{"/a", "/b", "/c"} {
		s.logRequest(RequestLog{Path: path})
	}

	since := s.LogsSince(1)
	require.Len(t, since, 2)
	assert.Equal(t, "/b", since[0].Path)
	assert.Empty(t, s.LogsSince(3))

	// Numbering continues after a clear
	s.ClearLogs()
	s.logRequest(RequestLog{Path: "/d"})
	since = s.LogsSince(3)
	require.Len(t, since, 1)
	assert.Equal(t, uint64(4), since[0].Seq)
}

func TestTail(t *testing.T) {
	s, ts := newTestServer(t)
	get(t, ts, "/healthz")
	require.Eventually(t, func() bool { return len(s.GetLogs()) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	seen := make(chan RequestLog, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.Tail(ctx, 1, func(entry RequestLog) { seen <- entry })
	}()

	get(t, ts, "/apis")
	get(t, ts, "/api_detail?api_id=unknown")

	first := <-seen
	second := <-seen
	assert.Equal(t, "/apis", first.Path)
	assert.Equal(t, http.StatusNotFound, second.Status)

	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, seen, "requests up to the starting sequence are skipped")
}

func TestStartStop(t *testing.T) {
	s := New(testCatalog(t), Options{Addr: "127.0.0.1:0"})
	require.NoError(t, s.Start())

	resp, err := http.Get(s.GetAddress() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(context.Background()))
}

// The selection flow against the real server: API then endpoint selection.
func TestSelectionFlow(t *testing.T) {
	_, ts := newTestServer(t)

	c, err := client.New(ts.URL, client.Options{})
	require.NoError(t, err)

	store := state.NewStore()
	notifier := &notifications{}
	h := selection.NewHandler(c, store, notifier, selection.Options{})
	ctx := context.Background()

	require.NoError(t, h.OnAPISelected(ctx, "adexperiencereport"))
	assert.Equal(t, "Ad Experience Report", store.API().API.CanonicalName)
	assert.True(t, store.Endpoint().IsEmpty())

	// Bare "sites.get" is ambiguous server-wide but resolves within the selected API.
	require.NoError(t, h.OnEndpointSelected(ctx, "sites.get"))
	assert.Equal(t, "https://adexperiencereport.googleapis.com/", store.Endpoint().BaseURL)

	err = h.OnAPISelected(ctx, "unknown")
	require.Error(t, err)
	assert.Equal(t, []string{"Request failed.  Returned status of 404"}, notifier.messages)
	assert.Equal(t, "Ad Experience Report", store.API().API.CanonicalName)
}

type notifications struct {
	messages []string
}

func (n *notifications) Notify(message string) {
	n.messages = append(n.messages, message)
}
