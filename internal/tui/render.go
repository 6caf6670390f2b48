package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/studiowebux/discobrowse/internal/keybinds"
	"github.com/studiowebux/discobrowse/internal/state"
	"github.com/studiowebux/discobrowse/internal/types"
)

// Adaptive color definitions for light/dark terminal support
var (
	colorGreen  = lipgloss.AdaptiveColor{Light: "#006400", Dark: "#00ff00"}
	colorRed    = lipgloss.AdaptiveColor{Light: "#8b0000", Dark: "#ff0000"}
	colorYellow = lipgloss.AdaptiveColor{Light: "#b8860b", Dark: "#ffff00"}
	colorGray   = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "#008b8b", Dark: "#00ffff"}
)

// Style definitions
var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	styleTitleFocused = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorGreen)

	styleTitleUnfocused = lipgloss.NewStyle().
				Foreground(colorGray)

	styleSelected = lipgloss.NewStyle().
			Background(lipgloss.AdaptiveColor{Light: "#d3d3d3", Dark: "#3a3a3a"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"})

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorGreen)

	styleError = lipgloss.NewStyle().
			Foreground(colorRed)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorYellow)

	styleSubtle = lipgloss.NewStyle().
			Foreground(colorGray)

	styleLabel = lipgloss.NewStyle().
			Bold(true)
)

// View renders the current mode, with a pending alert on top of everything
func (m *Model) View() string {
	if m.width == 0 {
		return ""
	}

	if alert, ok := m.alerts.Current(); ok {
		return m.renderAlert(alert)
	}

	switch m.mode {
	case ModeRaw:
		return m.renderRawModal()
	case ModeRecent:
		return m.renderRecentModal()
	case ModeHelp:
		return m.renderHelp()
	default:
		return m.renderMain()
	}
}

// renderMain renders the pickers next to the detail pane
func (m *Model) renderMain() string {
	sidebarWidth := m.sidebarWidth()
	detailWidth, _ := m.detailSize()
	panelHeight := m.height - StatusBarHeight - PanelBorderHeight

	apiHeight := panelHeight / 2
	endpointHeight := panelHeight - apiHeight - PanelBorderHeight

	apiBox := m.panelBox(m.focusedPanel == PanelAPIs, sidebarWidth, apiHeight).
		Render(m.renderAPIPicker(sidebarWidth-PanelBorderWidth, apiHeight))
	endpointBox := m.panelBox(m.focusedPanel == PanelEndpoints, sidebarWidth, endpointHeight).
		Render(m.renderEndpointPicker(sidebarWidth-PanelBorderWidth, endpointHeight))

	detailBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorGray).
		Width(detailWidth).
		Height(panelHeight).
		Render(m.detailView.View())

	sidebar := lipgloss.JoinVertical(lipgloss.Left, apiBox, endpointBox)
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, detailBox)

	return lipgloss.JoinVertical(lipgloss.Left, mainView, m.renderStatusBar())
}

func (m *Model) panelBox(focused bool, width, height int) lipgloss.Style {
	border := colorGray
	if focused {
		border = colorGreen
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(width).
		Height(height)
}

func (m *Model) renderAPIPicker(width, height int) string {
	title := "APIs"
	if query := m.apiPicker.GetQuery(); query != "" || m.mode == ModeFilter {
		title = fmt.Sprintf("APIs /%s", m.filterInput)
	}

	apis := m.apiPicker.GetAPIs()
	rows := make([]string, 0, len(apis))
	for _, api := range apis {
		label := api.ID
		if api.Name != "" && api.Name != api.ID {
			label = fmt.Sprintf("%s  %s", api.ID, styleSubtle.Render(api.Name))
		}
		rows = append(rows, label)
	}

	if len(rows) == 0 {
		empty := "No APIs"
		if m.loading {
			empty = "Loading..."
		}
		return m.pickerTitle(title, m.focusedPanel == PanelAPIs) + "\n\n" + styleSubtle.Render(empty)
	}
	return m.pickerTitle(title, m.focusedPanel == PanelAPIs) + "\n\n" +
		renderRows(rows, m.apiPicker.GetIndex(), width, height-PickerHeaderHeight)
}

func (m *Model) renderEndpointPicker(width, height int) string {
	title := "Endpoints"
	if apiID := m.endpointPicker.GetAPIID(); apiID != "" {
		title = "Endpoints of " + apiID
	}
	return m.pickerTitle(title, m.focusedPanel == PanelEndpoints) + "\n\n" +
		renderRows(m.endpointPicker.Labels(), m.endpointPicker.GetIndex(), width, height-PickerHeaderHeight)
}

func (m *Model) pickerTitle(title string, focused bool) string {
	if focused {
		return styleTitleFocused.Render(title)
	}
	return styleTitleUnfocused.Render(title)
}

// renderRows renders a scrolled window of rows keeping the selected one visible
func renderRows(rows []string, selected, width, height int) string {
	height = max(1, height)
	offset := 0
	if selected >= height {
		offset = selected - height + 1
	}

	var sb strings.Builder
	for i := offset; i < len(rows) && i < offset+height; i++ {
		line := truncate(rows[i], width-2)
		if i == selected {
			sb.WriteString(styleSelected.Render("> " + line))
		} else {
			sb.WriteString("  " + line)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width {
		runes = runes[:max(0, width-1)]
	}
	return string(runes) + "…"
}

// renderDescriptors renders the API descriptor and the endpoint descriptor
func renderDescriptors(snap state.Snapshot, width int) string {
	var sb strings.Builder

	api := snap.API.API
	if snap.API.IsZero() {
		sb.WriteString(styleSubtle.Render("Select an API"))
		sb.WriteString("\n\n")
	} else {
		sb.WriteString(styleTitle.Render(api.DisplayName()))
		sb.WriteString("\n")
		if api.Description != "" {
			sb.WriteString(lipgloss.NewStyle().Width(max(1, width-2)).Render(api.Description))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		writeField(&sb, "Discovery version", api.DiscoveryVersion)
		writeField(&sb, "Version", api.Version)
		writeField(&sb, "Documentation", api.DocumentationLink)
		writeField(&sb, "Icon x16", api.Icons.X16)
		writeField(&sb, "Icon x32", api.Icons.X32)
		sb.WriteString("\n")
	}

	ep := snap.Endpoint
	if ep.IsEmpty() {
		sb.WriteString(styleSubtle.Render(types.PlaceholderLabel))
	} else {
		title := ep.Name
		if ep.HTTPMethod != "" {
			title = fmt.Sprintf("%s  %s %s", ep.Name, ep.HTTPMethod, ep.Path)
		}
		sb.WriteString(styleTitle.Render(title))
		if ep.Description != "" {
			sb.WriteString("\n")
			sb.WriteString(lipgloss.NewStyle().Width(max(1, width-2)).Render(ep.Description))
		}
	}
	sb.WriteString("\n\n")

	writeField(&sb, "Base URL", ep.BaseURL)
	sb.WriteString(parameterTable(ep.OrderedParameters()))
	sb.WriteString("\n")

	scopes := styleSubtle.Render("none")
	if len(ep.Scopes) > 0 {
		scopes = strings.Join(ep.Scopes, "\n  ")
	}
	sb.WriteString(styleLabel.Render("Scopes:") + " " + scopes + "\n")

	return sb.String()
}

// parameterTable renders parameters in order, required ones highlighted
func parameterTable(params []types.Parameter) string {
	headerStyle := styleLabel.Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	requiredStyle := cellStyle.Foreground(colorYellow)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleSubtle).
		Headers("Name", "Type", "Location", "Required", "Description").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(params) && params[row].Required && col == 0 {
				return requiredStyle
			}
			return cellStyle
		})

	for _, p := range params {
		required := ""
		if p.Required {
			required = "yes"
		}
		t.Row(p.Name, p.Type, p.Location, required, p.Description)
	}
	return t.String()
}

func writeField(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	sb.WriteString(styleLabel.Render(label+":") + " " + value + "\n")
}

func (m *Model) renderStatusBar() string {
	var left string
	switch {
	case m.errorMsg != "":
		left = styleError.Render(m.errorMsg)
	case m.loading && m.statusMsg != "":
		left = styleWarning.Render(m.statusMsg)
	case m.statusMsg != "":
		left = styleSuccess.Render(m.statusMsg)
	default:
		left = styleSubtle.Render(m.backend.BaseURL())
	}

	right := styleSubtle.Render(m.statusHints())
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return truncate(left+strings.Repeat(" ", gap)+right, m.width)
}

// statusHints lists the main bindings, shortest key of each
func (m *Model) statusHints() string {
	hints := []struct {
		action keybinds.Action
		label  string
	}{
		{keybinds.ActionSelect, "select"},
		{keybinds.ActionSwitchFocus, "switch"},
		{keybinds.ActionOpenFilter, "filter"},
		{keybinds.ActionOpenRaw, "raw"},
		{keybinds.ActionOpenRecent, "recent"},
		{keybinds.ActionCopyBaseURL, "copy"},
		{keybinds.ActionOpenHelp, "help"},
		{keybinds.ActionQuit, "quit"},
	}

	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		keys := m.keys.GetBinding(keybinds.ContextNormal, h.action)
		if len(keys) == 0 {
			continue
		}
		key := keys[0]
		for _, k := range keys[1:] {
			if len(k) < len(key) {
				key = k
			}
		}
		parts = append(parts, key+" "+h.label)
	}
	return strings.Join(parts, " • ")
}

// renderAlert renders the blocking notification modal
func (m *Model) renderAlert(alert string) string {
	width := min(AlertWidth, max(20, m.width-ModalWidthMargin))
	footer := "enter/esc: dismiss"
	if n := m.alerts.Len(); n > 1 {
		footer = fmt.Sprintf("%s • %d more", footer, n-1)
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorRed).
		Padding(1, 2).
		Width(width).
		Render(styleError.Bold(true).Render("Error") + "\n\n" + alert + "\n\n" + styleSubtle.Render(footer))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) renderRawModal() string {
	header := styleTitle.Render("Raw JSON") + "  " + styleSubtle.Render(fmt.Sprintf("%3.f%%", m.rawView.ScrollPercent()*100))
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorCyan).
		Width(m.width - ModalWidthMargin).
		Render(header + "\n\n" + m.rawView.View())

	footer := styleSubtle.Render("↑/↓ scroll • pgup/pgdown page • esc close")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, box, footer))
}

func (m *Model) renderRecentModal() string {
	var content string
	switch {
	case m.recentIDs == nil:
		content = styleSubtle.Render("Loading...")
	case len(m.recentIDs) == 0:
		content = styleSubtle.Render("No recent selections")
	default:
		content = renderRows(m.recentIDs, m.recentIndex, AlertWidth, RecentLimit)
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorCyan).
		Padding(1, 2).
		Width(min(AlertWidth, max(20, m.width-ModalWidthMargin))).
		Render(styleTitle.Render("Recent APIs") + "\n\n" + content + "\n\n" + styleSubtle.Render("enter select • esc close"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

type helpRow struct {
	context keybinds.Context
	action  keybinds.Action
	label   string
}

// helpLayout lists the help rows per section, in display order
var helpLayout = []struct {
	title string
	rows  []helpRow
}{
	{"Navigation", []helpRow{
		{keybinds.ContextNormal, keybinds.ActionNavigateUp, "Move up in the focused picker"},
		{keybinds.ContextNormal, keybinds.ActionNavigateDown, "Move down in the focused picker"},
		{keybinds.ContextNormal, keybinds.ActionGoToTop, "First row"},
		{keybinds.ContextNormal, keybinds.ActionGoToBottom, "Last row"},
		{keybinds.ContextNormal, keybinds.ActionSwitchFocus, "Switch between API and endpoint pickers"},
		{keybinds.ContextNormal, keybinds.ActionSelect, "Select the highlighted row"},
		{keybinds.ContextNormal, keybinds.ActionHalfPageUp, "Scroll the detail pane up"},
		{keybinds.ContextNormal, keybinds.ActionHalfPageDown, "Scroll the detail pane down"},
	}},
	{"Views", []helpRow{
		{keybinds.ContextNormal, keybinds.ActionOpenFilter, "Fuzzy filter the API list"},
		{keybinds.ContextNormal, keybinds.ActionClearFilter, "Clear the filter"},
		{keybinds.ContextNormal, keybinds.ActionOpenRaw, "Raw JSON of both descriptors"},
		{keybinds.ContextNormal, keybinds.ActionOpenRecent, "Recently selected APIs"},
		{keybinds.ContextNormal, keybinds.ActionReloadAPIs, "Reload the API list"},
	}},
	{"Actions", []helpRow{
		{keybinds.ContextNormal, keybinds.ActionCopyBaseURL, "Copy the endpoint base URL to clipboard"},
		{keybinds.ContextNormal, keybinds.ActionOpenHelp, "Toggle this help"},
		{keybinds.ContextNormal, keybinds.ActionQuit, "Quit"},
		{keybinds.ContextGlobal, keybinds.ActionQuitForce, "Quit from anywhere"},
	}},
}

// helpText renders the current bindings, so remapped keys show up here
func (m *Model) helpText() string {
	var b strings.Builder
	for i, section := range helpLayout {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(section.title + "\n")
		for _, row := range section.rows {
			keys := m.keys.GetBindingString(row.context, row.action)
			fmt.Fprintf(&b, "  %-14s %s\n", keys, row.label)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderHelp() string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorCyan).
		Padding(1, 2).
		Render(styleTitle.Render("Help") + "\n\n" + m.helpText())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
