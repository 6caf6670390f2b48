package selection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/discobrowse/internal/client"
	"github.com/studiowebux/discobrowse/internal/history"
	"github.com/studiowebux/discobrowse/internal/state"
	"github.com/studiowebux/discobrowse/internal/types"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.messages...)
}

type countingPicker struct {
	resets int
}

func (p *countingPicker) ResetToPlaceholder() { p.resets++ }

type memoryRecorder struct {
	mu         sync.Mutex
	selections []history.Selection
}

func (r *memoryRecorder) Record(_ context.Context, sel history.Selection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selections = append(r.selections, sel)
	return nil
}

// fixture wires a handler to an httptest metadata server
type fixture struct {
	handler  *Handler
	store    *state.Store
	notifier *recordingNotifier
	picker   *countingPicker
	recorder *memoryRecorder
	requests atomic.Int32
}

func newFixture(t *testing.T, serve http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{
		store:    state.NewStore(),
		notifier: &recordingNotifier{},
		picker:   &countingPicker{},
		recorder: &memoryRecorder{},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		serve(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL, client.Options{})
	require.NoError(t, err)

	f.handler = NewHandler(c, f.store, f.notifier, Options{Picker: f.picker, Recorder: f.recorder})
	return f
}

func TestOnAPISelected_Success(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api_detail", r.URL.Path)
		assert.Equal(t, "adexperiencereport", r.URL.Query().Get("api_id"))
		fmt.Fprint(w, `{"api":{"canonicalName":"Ad Experience Report","description":"..."}}`)
	})

	err := f.handler.OnAPISelected(context.Background(), "adexperiencereport")
	require.NoError(t, err)

	snap := f.store.Snapshot()
	assert.Equal(t, "Ad Experience Report", snap.API.API.CanonicalName)
	assert.True(t, snap.Endpoint.IsEmpty(), "endpoint should be reset to the sentinel")
	assert.Equal(t, "adexperiencereport", snap.APIID)
	assert.Equal(t, 1, f.picker.resets)
	assert.Empty(t, f.notifier.all())
}

func TestOnAPISelected_ResetsPreviouslyLoadedEndpoint(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/endpoint_detail":
			fmt.Fprint(w, `{"base_url":"https://example.com/","parameterOrder":[],"parameters":[],"scopes":[]}`)
		default:
			fmt.Fprint(w, `{"api":{"canonicalName":"X"}}`)
		}
	})
	ctx := context.Background()

	require.NoError(t, f.handler.OnAPISelected(ctx, "x"))
	require.NoError(t, f.handler.OnEndpointSelected(ctx, "list"))
	require.False(t, f.store.Endpoint().IsEmpty())

	require.NoError(t, f.handler.OnAPISelected(ctx, "x"))
	assert.True(t, f.store.Endpoint().IsEmpty())
}

func TestOnAPISelected_NotFound(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, `{"api":{"canonicalName":"Before"}}`)
			return
		}
		http.Error(w, "unknown api", http.StatusNotFound)
	})
	ctx := context.Background()

	require.NoError(t, f.handler.OnAPISelected(ctx, "before"))
	before := f.store.Snapshot()

	err := f.handler.OnAPISelected(ctx, "missing")

	var statusErr *client.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, before.API, f.store.API(), "API descriptor must be unchanged")
	assert.Equal(t, before.Revision, f.store.Snapshot().Revision)

	messages := f.notifier.all()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "404")
	assert.Equal(t, "Request failed.  Returned status of 404", messages[0])
}

func TestOnAPISelected_EmptyID(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {})

	err := f.handler.OnAPISelected(context.Background(), "")

	assert.ErrorIs(t, err, ErrEmptyAPIID)
	assert.Equal(t, int32(0), f.requests.Load())
	assert.Equal(t, 0, f.picker.resets)
}

func TestOnAPISelected_InvalidBody(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"not wrapped in api"}`)
	})

	err := f.handler.OnAPISelected(context.Background(), "x")

	var shapeErr *types.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.True(t, f.store.API().IsZero())

	messages := f.notifier.all()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Invalid response")
}

func TestOnEndpointSelected_Placeholder(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("placeholder selection must not issue a request")
	})
	before := f.store.Snapshot()

	require.NoError(t, f.handler.OnEndpointSelected(context.Background(), types.PlaceholderLabel))

	assert.Equal(t, int32(0), f.requests.Load())
	assert.Equal(t, before, f.store.Snapshot())
	assert.Empty(t, f.recorder.selections)
}

func TestOnEndpointSelected_Success(t *testing.T) {
	body := `{
		"base_url": "https://adexperiencereport.googleapis.com/",
		"parameterOrder": ["name"],
		"parameters": [{"name":"name","description":"Required. The name of the site","type":"string","location":"path","required":true}],
		"scopes": []
	}`
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/endpoint_detail", r.URL.Path)
		assert.Equal(t, "sites.get", r.URL.Query().Get("method_name"))
		fmt.Fprint(w, body)
	})

	require.NoError(t, f.handler.OnEndpointSelected(context.Background(), "sites.get"))

	want, err := types.DecodeEndpointDescriptor([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, want, f.store.Endpoint())
}

func TestOnEndpointSelected_ServerError(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	before := f.store.Endpoint()

	err := f.handler.OnEndpointSelected(context.Background(), "list")
	require.Error(t, err)

	assert.Equal(t, before, f.store.Endpoint())
	messages := f.notifier.all()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "500")

	require.Len(t, f.recorder.selections, 1)
	assert.Equal(t, history.KindEndpoint, f.recorder.selections[0].Kind)
	assert.Equal(t, http.StatusInternalServerError, f.recorder.selections[0].Status)
}

func TestOnEndpointSelected_SendsCurrentAPIID(t *testing.T) {
	gotAPI := make(chan string, 1)
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api_detail" {
			fmt.Fprint(w, `{"api":{"name":"drive"}}`)
			return
		}
		gotAPI <- r.URL.Query().Get("api_id")
		fmt.Fprint(w, `{}`)
	})
	ctx := context.Background()

	require.NoError(t, f.handler.OnAPISelected(ctx, "drive"))
	require.NoError(t, f.handler.OnEndpointSelected(ctx, "list"))

	assert.Equal(t, "drive", <-gotAPI)
}

func TestTransportFailure_LeavesStateSilently(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := client.New(srv.URL, client.Options{})
	require.NoError(t, err)

	store := state.NewStore()
	notifier := &recordingNotifier{}
	h := NewHandler(c, store, notifier, Options{})

	err = h.OnAPISelected(context.Background(), "x")

	assert.True(t, errors.Is(err, client.ErrTransport))
	assert.Empty(t, notifier.all())
	assert.True(t, store.API().IsZero())
}

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// gatedFetcher blocks each fetch until the gate for its id is released
type gatedFetcher struct {
	gates map[string]chan struct{}
}

func (g *gatedFetcher) APIDetail(ctx context.Context, apiID string) (types.APIDescriptor, error) {
	<-g.gates[apiID]
	return types.APIDescriptor{API: types.APIInfo{CanonicalName: apiID}}, nil
}

func (g *gatedFetcher) EndpointDetail(ctx context.Context, methodName, apiID string) (types.EndpointDescriptor, error) {
	<-g.gates[methodName]
	return types.EndpointDescriptor{Name: methodName, ParameterOrder: []string{}, Parameters: []types.Parameter{}, Scopes: []string{}}, nil
}

func TestOverlappingAPISelections_LastRequestWins(t *testing.T) {
	fetcher := &gatedFetcher{gates: map[string]chan struct{}{
		"first":  make(chan struct{}),
		"second": make(chan struct{}),
	}}
	store := state.NewStore()
	h := NewHandler(fetcher, store, &recordingNotifier{}, Options{})
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() { firstDone <- h.OnAPISelected(ctx, "first") }()

	// Wait until the first request holds its token before issuing the second.
	require.Eventually(t, func() bool { return !store.IsCurrentAPI(0) }, timeout, tick)

	secondDone := make(chan error, 1)
	go func() { secondDone <- h.OnAPISelected(ctx, "second") }()
	require.Eventually(t, func() bool { return store.IsCurrentAPI(2) }, timeout, tick)

	// The newer request completes first, the older one last.
	close(fetcher.gates["second"])
	require.NoError(t, <-secondDone)
	close(fetcher.gates["first"])
	assert.ErrorIs(t, <-firstDone, ErrSuperseded)

	assert.Equal(t, "second", store.API().API.CanonicalName)
	assert.Equal(t, "second", store.APIID())
}

func TestEndpointResponseAfterNewAPISelection_Discarded(t *testing.T) {
	fetcher := &gatedFetcher{gates: map[string]chan struct{}{
		"list": make(chan struct{}),
		"next": make(chan struct{}),
	}}
	close(fetcher.gates["next"])

	store := state.NewStore()
	h := NewHandler(fetcher, store, &recordingNotifier{}, Options{})
	ctx := context.Background()

	endpointDone := make(chan error, 1)
	go func() { endpointDone <- h.OnEndpointSelected(ctx, "list") }()
	require.Eventually(t, func() bool { return !store.IsCurrentEndpoint(0) }, timeout, tick)

	require.NoError(t, h.OnAPISelected(ctx, "next"))

	close(fetcher.gates["list"])
	assert.ErrorIs(t, <-endpointDone, ErrSuperseded)
	assert.True(t, store.Endpoint().IsEmpty())
}

func TestEndpointIssuedWhileNewAPILoads_Discarded(t *testing.T) {
	fetcher := &gatedFetcher{gates: map[string]chan struct{}{
		"a":    make(chan struct{}),
		"b":    make(chan struct{}),
		"list": make(chan struct{}),
	}}
	close(fetcher.gates["a"])

	store := state.NewStore()
	h := NewHandler(fetcher, store, &recordingNotifier{}, Options{})
	ctx := context.Background()
	require.NoError(t, h.OnAPISelected(ctx, "a"))

	apiDone := make(chan error, 1)
	go func() { apiDone <- h.OnAPISelected(ctx, "b") }()
	require.Eventually(t, func() bool { return store.IsCurrentAPI(2) }, timeout, tick)

	// The endpoint request still targets "a", the API on screen.
	endpointDone := make(chan error, 1)
	go func() { endpointDone <- h.OnEndpointSelected(ctx, "list") }()
	require.Eventually(t, func() bool { return store.IsCurrentEndpoint(4) }, timeout, tick)

	close(fetcher.gates["b"])
	require.NoError(t, <-apiDone)
	close(fetcher.gates["list"])
	assert.ErrorIs(t, <-endpointDone, ErrSuperseded)

	assert.Equal(t, "b", store.APIID())
	assert.Equal(t, "b", store.API().API.CanonicalName)
	assert.True(t, store.Endpoint().IsEmpty())
}
