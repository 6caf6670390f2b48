package tui

import (
	"context"
	"net/http"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/studiowebux/discobrowse/internal/client"
	"github.com/studiowebux/discobrowse/internal/types"
)

// fakeBackend serves fixed metadata; unknown ids answer 404
type fakeBackend struct {
	apis            []types.APISummary
	apiDetails      map[string]types.APIDescriptor
	endpoints       map[string][]types.EndpointSummary
	endpointDetails map[string]types.EndpointDescriptor
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		apis: []types.APISummary{
			{ID: "adexperiencereport", Name: "Ad Experience Report"},
			{ID: "drive", Name: "Drive"},
		},
		apiDetails: map[string]types.APIDescriptor{
			"adexperiencereport": {API: types.APIInfo{
				CanonicalName:    "Ad Experience Report",
				DiscoveryVersion: "v1",
				Icons:            types.Icons{X16: "http://www.google.com/images/icons/product/search-16.gif"},
			}},
			"drive": {API: types.APIInfo{CanonicalName: "Drive", DiscoveryVersion: "v3"}},
		},
		endpoints: map[string][]types.EndpointSummary{
			"adexperiencereport": {{Name: "sites.get", HTTPMethod: "GET"}, {Name: "violatingSites.list", HTTPMethod: "GET"}},
			"drive":              {{Name: "files.list", HTTPMethod: "GET"}},
		},
		endpointDetails: map[string]types.EndpointDescriptor{
			"sites.get": {
				Name:           "sites.get",
				BaseURL:        "https://adexperiencereport.googleapis.com/",
				ParameterOrder: []string{"name"},
				Parameters:     []types.Parameter{{Name: "name", Type: "string", Location: "path", Required: true}},
				Scopes:         []string{},
			},
		},
	}
}

func (b *fakeBackend) notFound(path string) error {
	return &client.StatusError{Code: http.StatusNotFound, Status: "404 Not Found", URL: path}
}

func (b *fakeBackend) APIDetail(_ context.Context, apiID string) (types.APIDescriptor, error) {
	if d, ok := b.apiDetails[apiID]; ok {
		return d, nil
	}
	return types.APIDescriptor{}, b.notFound("/api_detail")
}

func (b *fakeBackend) EndpointDetail(_ context.Context, methodName, _ string) (types.EndpointDescriptor, error) {
	if d, ok := b.endpointDetails[methodName]; ok {
		return d, nil
	}
	return types.EndpointDescriptor{}, b.notFound("/endpoint_detail")
}

func (b *fakeBackend) ListAPIs(context.Context) ([]types.APISummary, error) {
	return b.apis, nil
}

func (b *fakeBackend) ListEndpoints(_ context.Context, apiID string) ([]types.EndpointSummary, error) {
	return b.endpoints[apiID], nil
}

func (b *fakeBackend) BaseURL() string {
	return "http://127.0.0.1:8080/"
}

// fakeRecent returns fixed recent API ids
type fakeRecent []string

func (r fakeRecent) RecentAPIs(_ context.Context, n int) ([]string, error) {
	if n < len(r) {
		return r[:n], nil
	}
	return r, nil
}

// CreateTestModel creates a Model backed by a fake backend and sized for rendering
func CreateTestModel(t *testing.T) *Model {
	t.Helper()

	m, err := New(Options{Backend: newFakeBackend(), Recent: fakeRecent{"drive"}})
	if err != nil {
		t.Fatalf("Failed to create test model: %v", err)
	}
	t.Cleanup(m.Cleanup)

	m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return m
}

// runCmd executes cmd synchronously and feeds its message back into the model.
// It returns the follow-up command.
func runCmd(t *testing.T, m *Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	if cmd == nil {
		t.Fatal("Expected a command, got nil")
	}
	_, next := m.Update(cmd())
	return next
}

// pressKey sends a key to the model and returns the resulting command
func pressKey(m *Model, key string) tea.Cmd {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "backspace":
		msg = tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

// AssertModelField is a helper to assert model field values
func AssertModelField(t *testing.T, fieldName string, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v, want %v", fieldName, got, want)
	}
}
