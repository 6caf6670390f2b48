package keybinds

// Action represents a user action that can be triggered by a keybinding
type Action string

// Context represents the context in which keybindings are active
type Context string

const (
	ContextGlobal Context = "global" // Available everywhere
	ContextNormal Context = "normal" // Pickers and detail pane
	ContextFilter Context = "filter" // Fuzzy filter input
	ContextViewer Context = "viewer" // Raw JSON viewer
	ContextRecent Context = "recent" // Recent APIs modal
	ContextHelp   Context = "help"   // Help viewer
	ContextAlert  Context = "alert"  // Blocking notification
)

const (
	// Global actions
	ActionQuitForce Action = "quit_force" // Force quit (ctrl+c)
	ActionQuit      Action = "quit"

	// Navigation actions
	ActionNavigateUp   Action = "navigate_up"
	ActionNavigateDown Action = "navigate_down"
	ActionGoToTop      Action = "go_to_top"
	ActionGoToBottom   Action = "go_to_bottom"
	ActionHalfPageUp   Action = "half_page_up"
	ActionHalfPageDown Action = "half_page_down"

	// Picker actions
	ActionSwitchFocus Action = "switch_focus" // API picker <-> endpoint picker
	ActionSelect      Action = "select"
	ActionClearFilter Action = "clear_filter"
	ActionReloadAPIs  Action = "reload_apis"
	ActionCopyBaseURL Action = "copy_base_url"

	// Modal launchers
	ActionOpenFilter Action = "open_filter"
	ActionOpenRaw    Action = "open_raw"
	ActionOpenRecent Action = "open_recent"
	ActionOpenHelp   Action = "open_help"

	// Modal actions
	ActionCloseModal Action = "close_modal"
	ActionDismiss    Action = "dismiss"

	// Text input actions
	ActionTextSubmit    Action = "text_submit"
	ActionTextCancel    Action = "text_cancel"
	ActionTextBackspace Action = "text_backspace"
)

// knownActions lists every action a config file may bind
var knownActions = map[Action]bool{
	ActionQuitForce: true, ActionQuit: true,
	ActionNavigateUp: true, ActionNavigateDown: true, ActionGoToTop: true, ActionGoToBottom: true,
	ActionHalfPageUp: true, ActionHalfPageDown: true,
	ActionSwitchFocus: true, ActionSelect: true, ActionClearFilter: true, ActionReloadAPIs: true,
	ActionCopyBaseURL: true,
	ActionOpenFilter:  true, ActionOpenRaw: true, ActionOpenRecent: true, ActionOpenHelp: true,
	ActionCloseModal: true, ActionDismiss: true,
	ActionTextSubmit: true, ActionTextCancel: true, ActionTextBackspace: true,
}

// IsKnownAction reports whether a is an action the TUI handles
func IsKnownAction(a Action) bool {
	return knownActions[a]
}
