package keybinds

// NewDefaultRegistry creates a registry with all default keybindings
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(ContextGlobal, "ctrl+c", ActionQuitForce)

	registerNormalModeBindings(r)
	registerFilterBindings(r)
	registerViewerBindings(r)
	registerRecentBindings(r)
	r.RegisterMultiple(ContextHelp, []string{"esc", "q", "?"}, ActionCloseModal)
	r.RegisterMultiple(ContextAlert, []string{"enter", "esc", " "}, ActionDismiss)

	return r
}

func registerNormalModeBindings(r *Registry) {
	r.Register(ContextNormal, "q", ActionQuit)
	r.RegisterMultiple(ContextNormal, []string{"up", "k"}, ActionNavigateUp)
	r.RegisterMultiple(ContextNormal, []string{"down", "j"}, ActionNavigateDown)
	r.RegisterMultiple(ContextNormal, []string{"home", "g"}, ActionGoToTop)
	r.RegisterMultiple(ContextNormal, []string{"end", "G"}, ActionGoToBottom)
	r.RegisterMultiple(ContextNormal, []string{"pgup", "ctrl+u"}, ActionHalfPageUp)
	r.RegisterMultiple(ContextNormal, []string{"pgdown", "ctrl+d"}, ActionHalfPageDown)
	r.RegisterMultiple(ContextNormal, []string{"tab", "shift+tab"}, ActionSwitchFocus)
	r.Register(ContextNormal, "enter", ActionSelect)
	r.Register(ContextNormal, "esc", ActionClearFilter)
	r.Register(ContextNormal, "R", ActionReloadAPIs)
	r.Register(ContextNormal, "c", ActionCopyBaseURL)
	r.Register(ContextNormal, "/", ActionOpenFilter)
	r.Register(ContextNormal, "v", ActionOpenRaw)
	r.Register(ContextNormal, "r", ActionOpenRecent)
	r.Register(ContextNormal, "?", ActionOpenHelp)
}

// registerFilterBindings binds only non-printable keys; printable runes are
// always typed into the pattern
func registerFilterBindings(r *Registry) {
	r.Register(ContextFilter, "enter", ActionTextSubmit)
	r.Register(ContextFilter, "esc", ActionTextCancel)
	r.Register(ContextFilter, "backspace", ActionTextBackspace)
	r.Register(ContextFilter, "up", ActionNavigateUp)
	r.Register(ContextFilter, "down", ActionNavigateDown)
}

func registerViewerBindings(r *Registry) {
	r.RegisterMultiple(ContextViewer, []string{"esc", "q", "v"}, ActionCloseModal)
	r.RegisterMultiple(ContextViewer, []string{"up", "k"}, ActionNavigateUp)
	r.RegisterMultiple(ContextViewer, []string{"down", "j"}, ActionNavigateDown)
	r.RegisterMultiple(ContextViewer, []string{"pgup", "ctrl+u"}, ActionHalfPageUp)
	r.RegisterMultiple(ContextViewer, []string{"pgdown", "ctrl+d"}, ActionHalfPageDown)
	r.RegisterMultiple(ContextViewer, []string{"home", "g"}, ActionGoToTop)
	r.RegisterMultiple(ContextViewer, []string{"end", "G"}, ActionGoToBottom)
}

func registerRecentBindings(r *Registry) {
	r.RegisterMultiple(ContextRecent, []string{"esc", "q", "r"}, ActionCloseModal)
	r.RegisterMultiple(ContextRecent, []string{"up", "k"}, ActionNavigateUp)
	r.RegisterMultiple(ContextRecent, []string{"down", "j"}, ActionNavigateDown)
	r.Register(ContextRecent, "enter", ActionSelect)
}
