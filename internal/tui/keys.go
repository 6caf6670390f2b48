package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/studiowebux/discobrowse/internal/keybinds"
)

// modeContexts maps each mode to its keybinding context
var modeContexts = map[Mode]keybinds.Context{
	ModeNormal: keybinds.ContextNormal,
	ModeFilter: keybinds.ContextFilter,
	ModeRaw:    keybinds.ContextViewer,
	ModeRecent: keybinds.ContextRecent,
	ModeHelp:   keybinds.ContextHelp,
}

// handleKeyPress routes key input by mode. A queued alert blocks all
// other input until dismissed.
func (m *Model) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()

	if m.alerts.Len() > 0 {
		action, _ := m.keys.Match(keybinds.ContextAlert, key)
		switch action {
		case keybinds.ActionQuitForce:
			return tea.Quit
		case keybinds.ActionDismiss:
			m.alerts.Dismiss()
		}
		return nil
	}

	context := modeContexts[m.mode]
	action, ok := m.keys.Match(context, key)
	if action == keybinds.ActionQuitForce {
		return tea.Quit
	}

	if m.mode == ModeFilter {
		return m.handleFilterKeys(msg, action, ok)
	}
	if !ok {
		return nil
	}

	switch m.mode {
	case ModeRaw:
		return m.handleViewerAction(action)
	case ModeRecent:
		return m.handleRecentAction(action)
	case ModeHelp:
		if action == keybinds.ActionCloseModal {
			m.mode = ModeNormal
		}
		return nil
	default:
		return m.handleNormalAction(action)
	}
}

func (m *Model) handleNormalAction(action keybinds.Action) tea.Cmd {
	switch action {
	case keybinds.ActionQuit:
		return tea.Quit

	case keybinds.ActionSwitchFocus:
		if m.focusedPanel == PanelAPIs {
			m.focusedPanel = PanelEndpoints
		} else {
			m.focusedPanel = PanelAPIs
		}

	case keybinds.ActionNavigateUp:
		m.movePicker(-1)
	case keybinds.ActionNavigateDown:
		m.movePicker(1)
	case keybinds.ActionGoToTop:
		m.movePicker(-1 << 20)
	case keybinds.ActionGoToBottom:
		m.movePicker(1 << 20)

	case keybinds.ActionHalfPageUp:
		m.detailView.HalfPageUp()
	case keybinds.ActionHalfPageDown:
		m.detailView.HalfPageDown()

	case keybinds.ActionSelect:
		if m.focusedPanel == PanelAPIs {
			api, ok := m.apiPicker.Selected()
			if !ok {
				return nil
			}
			m.focusedPanel = PanelEndpoints
			return m.selectAPI(api.ID)
		}
		return m.selectEndpoint(m.endpointPicker.SelectedName())

	case keybinds.ActionOpenFilter:
		m.mode = ModeFilter
		m.focusedPanel = PanelAPIs
		m.filterInput = m.apiPicker.GetQuery()

	case keybinds.ActionClearFilter:
		if m.apiPicker.GetQuery() != "" {
			m.apiPicker.SetQuery("")
			m.filterInput = ""
		}
		m.errorMsg = ""

	case keybinds.ActionOpenRaw:
		m.mode = ModeRaw
		m.rawView.GotoTop()

	case keybinds.ActionOpenRecent:
		if m.recent == nil {
			m.errorMsg = "History is disabled"
			return nil
		}
		m.mode = ModeRecent
		m.recentIDs = nil
		return m.loadRecent()

	case keybinds.ActionCopyBaseURL:
		return m.copyBaseURL()

	case keybinds.ActionReloadAPIs:
		m.loading = true
		return m.loadAPIs()

	case keybinds.ActionOpenHelp:
		m.mode = ModeHelp
	}

	return nil
}

func (m *Model) movePicker(delta int) {
	if m.focusedPanel == PanelAPIs {
		m.apiPicker.Move(delta)
		return
	}
	m.endpointPicker.Move(delta)
}

// handleFilterKeys edits the fuzzy pattern. Printable keys are always typed.
func (m *Model) handleFilterKeys(msg tea.KeyMsg, action keybinds.Action, bound bool) tea.Cmd {
	if !bound {
		switch msg.Type {
		case tea.KeySpace:
			m.filterInput += " "
		case tea.KeyRunes:
			m.filterInput += string(msg.Runes)
		default:
			return nil
		}
		m.apiPicker.SetQuery(m.filterInput)
		return nil
	}

	switch action {
	case keybinds.ActionTextCancel:
		m.filterInput = ""
		m.apiPicker.SetQuery("")
		m.mode = ModeNormal

	case keybinds.ActionTextSubmit:
		m.mode = ModeNormal

	case keybinds.ActionTextBackspace:
		if len(m.filterInput) > 0 {
			runes := []rune(m.filterInput)
			m.filterInput = string(runes[:len(runes)-1])
			m.apiPicker.SetQuery(m.filterInput)
		}

	case keybinds.ActionNavigateUp:
		m.apiPicker.Move(-1)
	case keybinds.ActionNavigateDown:
		m.apiPicker.Move(1)
	}

	return nil
}

func (m *Model) handleViewerAction(action keybinds.Action) tea.Cmd {
	switch action {
	case keybinds.ActionCloseModal:
		m.mode = ModeNormal
	case keybinds.ActionNavigateUp:
		m.rawView.ScrollUp(1)
	case keybinds.ActionNavigateDown:
		m.rawView.ScrollDown(1)
	case keybinds.ActionHalfPageUp:
		m.rawView.HalfPageUp()
	case keybinds.ActionHalfPageDown:
		m.rawView.HalfPageDown()
	case keybinds.ActionGoToTop:
		m.rawView.GotoTop()
	case keybinds.ActionGoToBottom:
		m.rawView.GotoBottom()
	}
	return nil
}

func (m *Model) handleRecentAction(action keybinds.Action) tea.Cmd {
	switch action {
	case keybinds.ActionCloseModal:
		m.mode = ModeNormal

	case keybinds.ActionNavigateUp:
		m.recentIndex = clamp(m.recentIndex-1, len(m.recentIDs))
	case keybinds.ActionNavigateDown:
		m.recentIndex = clamp(m.recentIndex+1, len(m.recentIDs))

	case keybinds.ActionSelect:
		if m.recentIndex >= len(m.recentIDs) {
			return nil
		}
		apiID := m.recentIDs[m.recentIndex]
		m.mode = ModeNormal
		m.apiPicker.Select(apiID)
		m.focusedPanel = PanelEndpoints
		return m.selectAPI(apiID)
	}
	return nil
}
