/*
Package tui implements the terminal user interface for discobrowse.

# Architecture

The TUI follows the Bubble Tea framework's Model-Update-View pattern:
  - Model: Maintains all application state
  - Update: Processes messages and returns commands
  - View: Renders the current state to the terminal

# Key Components

  - model.go: Core state and initialization, defines the Model struct
  - keys.go: Keyboard input handling per mode
  - render.go: View rendering for the pickers, detail pane and modals
  - actions.go: Side effects run as tea.Cmd (fetches, clipboard, history)

# State Management

Descriptor state lives in state.Store and is written only by the selection
handler. The TUI keeps its own focused state objects:
  - APIPickerState: API list with fuzzy filter
  - EndpointPickerState: endpoint list, placeholder first
  - AlertState: queue of blocking notifications

All state objects use sync.RWMutex because the selection handler touches
them from command goroutines.

# Modal System

Modes:
  - ModeNormal: pickers and detail pane
  - ModeFilter: typing a fuzzy filter for the API list
  - ModeRaw: highlighted JSON of the current descriptors
  - ModeRecent: recently selected APIs from history
  - ModeHelp: key reference

An alert, when queued, overlays every mode and swallows keys until dismissed.
*/
package tui
