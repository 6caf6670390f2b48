/*
Package keybinds provides customizable keyboard binding management for the TUI.

# Key Concepts

Contexts:
  - Global: Bindings available everywhere (ctrl+c)
  - Normal: Pickers and detail pane
  - Filter: Typing a fuzzy pattern for the API list
  - Viewer: Scrollable raw JSON view
  - Recent: Recent selections modal
  - Help: Key reference
  - Alert: Blocking notification

A key bound in a specific context shadows the same key in the global context.

# Configuration File Format

Keybindings are read from ~/.discobrowse/keybinds.json. Comments and trailing
commas are allowed. Each context maps an action to a comma separated key list;
listed actions replace their default keys in that context:

	{
	  // vim users keep the defaults
	  "normal": {
	    "copy_base_url": "y",
	    "open_raw": "v,J",
	  },
	}
*/
package keybinds
