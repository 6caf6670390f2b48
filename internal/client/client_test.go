package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/discobrowse/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", Options{})
	assert.Error(t, err)

	_, err = New("ftp://example.com", Options{})
	assert.Error(t, err)

	c, err := New("http://localhost:8080/meta", Options{})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/meta/", c.BaseURL())
}

func TestAPIDetail_Success(t *testing.T) {
	var gotPath, gotID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotID = r.URL.Query().Get("api_id")
		w.Write([]byte(`{"api":{"canonicalName":"Ad Experience Report","description":"..."}}`))
	})

	desc, err := c.APIDetail(context.Background(), "adexperiencereport")
	require.NoError(t, err)

	assert.Equal(t, "/api_detail", gotPath)
	assert.Equal(t, "adexperiencereport", gotID)
	assert.Equal(t, "Ad Experience Report", desc.API.CanonicalName)
}

func TestAPIDetail_NonOKStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := c.APIDetail(context.Background(), "missing")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Contains(t, statusErr.Error(), "404")
}

func TestAPIDetail_ShapeMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":true}`))
	})

	_, err := c.APIDetail(context.Background(), "x")

	var shapeErr *types.ShapeError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestEndpointDetail_Query(t *testing.T) {
	var gotMethod, gotAPI string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/endpoint_detail", r.URL.Path)
		gotMethod = r.URL.Query().Get("method_name")
		gotAPI = r.URL.Query().Get("api_id")
		w.Write([]byte(`{"base_url":"https://example.com/","parameterOrder":["id"],"parameters":[{"name":"id","required":true}],"scopes":[]}`))
	})

	desc, err := c.EndpointDetail(context.Background(), "sites.get", "adexperiencereport")
	require.NoError(t, err)

	assert.Equal(t, "sites.get", gotMethod)
	assert.Equal(t, "adexperiencereport", gotAPI)
	assert.Equal(t, "https://example.com/", desc.BaseURL)
	assert.Equal(t, []string{"id"}, desc.ParameterOrder)
}

func TestEndpointDetail_OmitsEmptyAPIID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["api_id"]
		assert.False(t, present)
		w.Write([]byte(`{}`))
	})

	_, err := c.EndpointDetail(context.Background(), "list", "")
	require.NoError(t, err)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)

	_, err = c.APIDetail(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestListAPIsAndEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/apis":
			w.Write([]byte(`[{"id":"adexperiencereport","name":"adexperiencereport","version":"v1"}]`))
		case "/api_endpoints":
			assert.Equal(t, "adexperiencereport", r.URL.Query().Get("api_id"))
			w.Write([]byte(`[{"name":"get","id":"adexperiencereport.sites.get","httpMethod":"GET"}]`))
		default:
			http.NotFound(w, r)
		}
	})

	apis, err := c.ListAPIs(context.Background())
	require.NoError(t, err)
	require.Len(t, apis, 1)
	assert.Equal(t, "adexperiencereport", apis[0].ID)

	endpoints, err := c.ListEndpoints(context.Background(), "adexperiencereport")
	require.NoError(t, err)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "adexperiencereport.sites.get", endpoints[0].ID)
}
