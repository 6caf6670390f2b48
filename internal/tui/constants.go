package tui

// UI Layout Constants

const (
	// Modal Dimensions
	ModalWidthMargin  = 6 // Standard horizontal margin (m.width - 6)
	ModalHeightMargin = 3 // Standard vertical margin (m.height - 3)
	AlertWidth        = 60

	// Sidebar holds both pickers stacked vertically
	SidebarMinWidth   = 36
	SidebarWidthRatio = 35 // Percent of terminal width

	// Content Area Offsets
	StatusBarHeight    = 1
	PanelBorderHeight  = 2
	PanelBorderWidth   = 2
	PickerHeaderHeight = 2 // Title + blank line

	// Number of recent APIs listed in the recent modal
	RecentLimit = 10

	// Buffer size of the state change channel
	StateChangeBuffer = 16
)
