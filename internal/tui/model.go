package tui

import (
	"context"
	"errors"
	"log/slog"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/studiowebux/discobrowse/internal/keybinds"
	"github.com/studiowebux/discobrowse/internal/selection"
	"github.com/studiowebux/discobrowse/internal/state"
	"github.com/studiowebux/discobrowse/internal/types"
)

// Mode represents the current TUI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeFilter
	ModeRaw
	ModeRecent
	ModeHelp
)

// Panel identifies the focused picker
type Panel int

const (
	PanelAPIs Panel = iota
	PanelEndpoints
)

// Backend is the metadata server as seen by the TUI
type Backend interface {
	selection.Fetcher
	ListAPIs(ctx context.Context) ([]types.APISummary, error)
	ListEndpoints(ctx context.Context, apiID string) ([]types.EndpointSummary, error)
	BaseURL() string
}

// RecentSource lists recently selected API ids, newest first
type RecentSource interface {
	RecentAPIs(ctx context.Context, n int) ([]string, error)
}

// Options configures a Model
type Options struct {
	Backend  Backend
	Recorder selection.Recorder // Optional
	Recent   RecentSource       // Optional, enables the recent modal
	Keybinds *keybinds.Registry // Defaults to keybinds.NewDefaultRegistry
	Logger   *slog.Logger
}

// Model represents the TUI state
type Model struct {
	ctx     context.Context
	backend Backend
	recent  RecentSource
	keys    *keybinds.Registry
	logger  *slog.Logger

	store       *state.Store
	handler     *selection.Handler
	stateChange chan state.Snapshot
	unsubscribe func()

	apiPicker      *APIPickerState
	endpointPicker *EndpointPickerState
	alerts         *AlertState

	mode         Mode
	focusedPanel Panel
	detailView   viewport.Model
	rawView      viewport.Model

	filterInput string // Fuzzy pattern being typed

	recentIDs   []string
	recentIndex int

	// UI state
	width     int
	height    int
	loading   bool
	statusMsg string
	errorMsg  string
}

// New creates a TUI model wired to a fresh state store
func New(opts Options) (*Model, error) {
	if opts.Backend == nil {
		return nil, errors.New("tui: backend is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	keys := opts.Keybinds
	if keys == nil {
		keys = keybinds.NewDefaultRegistry()
	}

	m := &Model{
		ctx:            context.Background(),
		backend:        opts.Backend,
		recent:         opts.Recent,
		keys:           keys,
		logger:         logger,
		store:          state.NewStore(),
		stateChange:    make(chan state.Snapshot, StateChangeBuffer),
		apiPicker:      NewAPIPickerState(),
		endpointPicker: NewEndpointPickerState(),
		alerts:         NewAlertState(),
		mode:           ModeNormal,
		focusedPanel:   PanelAPIs,
		detailView:     viewport.New(80, 20),
		rawView:        viewport.New(80, 20),
	}

	m.handler = selection.NewHandler(opts.Backend, m.store, m.alerts, selection.Options{
		Picker:   m.endpointPicker,
		Recorder: opts.Recorder,
		Logger:   logger,
	})

	// Listeners run on the handler's goroutine; drop when the UI is behind,
	// the next render reads the latest snapshot anyway.
	m.unsubscribe = m.store.Subscribe(func(snap state.Snapshot) {
		select {
		case m.stateChange <- snap:
		default:
		}
	})

	m.refreshDetail()
	return m, nil
}

// Store returns the UI state store
func (m *Model) Store() *state.Store {
	return m.store
}

// Init loads the API list and starts listening for state changes
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return tea.Batch(m.loadAPIs(), m.waitForStateChange())
}

// Cleanup releases the state subscription
func (m *Model) Cleanup() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd = m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViews()
		m.refreshDetail()

	case apisLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.errorMsg = "Failed to load APIs: " + msg.err.Error()
			break
		}
		m.apiPicker.SetAPIs(msg.apis)
		m.statusMsg = ""

	case endpointsLoadedMsg:
		// Endpoint lists of a superseded API are dropped
		if msg.apiID != m.store.APIID() {
			break
		}
		if msg.err != nil {
			m.errorMsg = "Failed to load endpoints: " + msg.err.Error()
			break
		}
		m.endpointPicker.SetEndpoints(msg.apiID, msg.endpoints)

	case apiSelectedMsg:
		m.loading = false
		m.statusMsg = ""
		m.refreshDetail()
		if msg.err != nil {
			m.reportSelectionError(msg.err)
			break
		}
		m.errorMsg = ""
		if m.endpointPicker.GetAPIID() != msg.apiID {
			m.endpointPicker.Clear()
		}
		cmd = m.loadEndpoints(msg.apiID)

	case endpointSelectedMsg:
		m.loading = false
		m.statusMsg = ""
		m.refreshDetail()
		if msg.err != nil {
			m.reportSelectionError(msg.err)
			break
		}
		m.errorMsg = ""

	case stateChangedMsg:
		m.refreshDetail()
		cmd = m.waitForStateChange()

	case recentLoadedMsg:
		if msg.err != nil {
			m.errorMsg = "Failed to load recent APIs: " + msg.err.Error()
			m.mode = ModeNormal
			break
		}
		m.recentIDs = msg.ids
		m.recentIndex = 0

	case statusMsg:
		m.statusMsg = string(msg)
		m.errorMsg = ""

	case errorMsg:
		m.errorMsg = string(msg)
	}

	return m, cmd
}

// reportSelectionError shows failures that did not raise an alert.
// Superseded responses are silent.
func (m *Model) reportSelectionError(err error) {
	if errors.Is(err, selection.ErrSuperseded) {
		return
	}
	if m.alerts.Len() > 0 {
		return
	}
	m.errorMsg = err.Error()
}

func (m *Model) resizeViews() {
	detailWidth, detailHeight := m.detailSize()
	m.detailView.Width = detailWidth
	m.detailView.Height = detailHeight

	m.rawView.Width = max(1, m.width-ModalWidthMargin)
	m.rawView.Height = max(1, m.height-ModalHeightMargin-PickerHeaderHeight)
}

// sidebarWidth returns the width of the picker column
func (m *Model) sidebarWidth() int {
	width := max(SidebarMinWidth, m.width*SidebarWidthRatio/100)
	if m.width < 2*SidebarMinWidth {
		width = m.width / 2
	}
	return width
}

func (m *Model) detailSize() (int, int) {
	width := m.width - m.sidebarWidth() - 2*PanelBorderWidth
	height := m.height - StatusBarHeight - PanelBorderHeight
	return max(1, width), max(1, height)
}

// refreshDetail renders the current descriptors into the detail viewport
func (m *Model) refreshDetail() {
	snap := m.store.Snapshot()
	m.detailView.SetContent(renderDescriptors(snap, m.detailView.Width))
	m.rawView.SetContent(renderRaw(snap))
}
