package tui

import (
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/studiowebux/discobrowse/internal/types"
)

type apisLoadedMsg struct {
	apis []types.APISummary
	err  error
}

type endpointsLoadedMsg struct {
	apiID     string
	endpoints []types.EndpointSummary
	err       error
}

type apiSelectedMsg struct {
	apiID string
	err   error
}

type endpointSelectedMsg struct {
	name string
	err  error
}

type recentLoadedMsg struct {
	ids []string
	err error
}

type stateChangedMsg struct{}

type statusMsg string

type errorMsg string

// loadAPIs fetches the API list
func (m *Model) loadAPIs() tea.Cmd {
	backend := m.backend
	ctx := m.ctx
	return func() tea.Msg {
		apis, err := backend.ListAPIs(ctx)
		return apisLoadedMsg{apis: apis, err: err}
	}
}

// loadEndpoints fetches the endpoint list of apiID
func (m *Model) loadEndpoints(apiID string) tea.Cmd {
	backend := m.backend
	ctx := m.ctx
	return func() tea.Msg {
		endpoints, err := backend.ListEndpoints(ctx, apiID)
		return endpointsLoadedMsg{apiID: apiID, endpoints: endpoints, err: err}
	}
}

// selectAPI runs the API selection flow in the background. The endpoint
// list stays until the new API is applied, so a failed selection keeps it.
func (m *Model) selectAPI(apiID string) tea.Cmd {
	m.endpointPicker.ResetToPlaceholder()
	m.loading = true
	m.statusMsg = fmt.Sprintf("Loading %s...", apiID)

	handler := m.handler
	ctx := m.ctx
	return func() tea.Msg {
		return apiSelectedMsg{apiID: apiID, err: handler.OnAPISelected(ctx, apiID)}
	}
}

// selectEndpoint runs the endpoint selection flow in the background.
// The placeholder row does nothing.
func (m *Model) selectEndpoint(name string) tea.Cmd {
	if name == types.PlaceholderLabel {
		return nil
	}
	m.loading = true
	m.statusMsg = fmt.Sprintf("Loading %s...", name)

	handler := m.handler
	ctx := m.ctx
	return func() tea.Msg {
		return endpointSelectedMsg{name: name, err: handler.OnEndpointSelected(ctx, name)}
	}
}

// waitForStateChange blocks until the store applies a change
func (m *Model) waitForStateChange() tea.Cmd {
	ch := m.stateChange
	return func() tea.Msg {
		<-ch
		return stateChangedMsg{}
	}
}

// loadRecent fetches recently selected API ids from history
func (m *Model) loadRecent() tea.Cmd {
	recent := m.recent
	ctx := m.ctx
	return func() tea.Msg {
		ids, err := recent.RecentAPIs(ctx, RecentLimit)
		return recentLoadedMsg{ids: ids, err: err}
	}
}

// copyBaseURL copies the base URL of the current endpoint to the clipboard
func (m *Model) copyBaseURL() tea.Cmd {
	baseURL := m.store.Endpoint().BaseURL
	if baseURL == "" {
		return func() tea.Msg {
			return errorMsg("No endpoint selected")
		}
	}

	return func() tea.Msg {
		if err := clipboard.WriteAll(baseURL); err != nil {
			return errorMsg(fmt.Sprintf("Failed to copy to clipboard: %v", err))
		}
		return statusMsg("Base URL copied to clipboard")
	}
}
