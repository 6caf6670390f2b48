package keybinds

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
)

// Config represents the user's keybinding configuration.
// Each section maps an action to a comma separated key list.
type Config struct {
	Global map[Action]string `json:"global,omitempty"`
	Normal map[Action]string `json:"normal,omitempty"`
	Filter map[Action]string `json:"filter,omitempty"`
	Viewer map[Action]string `json:"viewer,omitempty"`
	Recent map[Action]string `json:"recent,omitempty"`
	Help   map[Action]string `json:"help,omitempty"`
	Alert  map[Action]string `json:"alert,omitempty"`
}

// sections maps each config section to its context
func (c *Config) sections() map[Context]map[Action]string {
	return map[Context]map[Action]string{
		ContextGlobal: c.Global,
		ContextNormal: c.Normal,
		ContextFilter: c.Filter,
		ContextViewer: c.Viewer,
		ContextRecent: c.Recent,
		ContextHelp:   c.Help,
		ContextAlert:  c.Alert,
	}
}

// ParseConfig decodes a keybinds.json document; comments and trailing commas
// are allowed
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &config); err != nil {
		return nil, fmt.Errorf("invalid keybinds.json format: %w", err)
	}
	return &config, nil
}

// LoadConfig loads keybinding configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ApplyConfig applies user configuration to a registry. Each listed action
// loses its previous keys in that context.
func ApplyConfig(registry *Registry, config *Config) error {
	if result := NewValidator().ValidateConfig(config); result.HasErrors() {
		return fmt.Errorf("invalid keybindings:\n%s", result.String())
	}

	for context, actions := range config.sections() {
		for action, keys := range actions {
			registry.Unbind(context, action)
			registry.RegisterMultiple(context, splitKeys(keys), action)
		}
	}
	return nil
}

// LoadOrDefault loads user config if it exists, otherwise returns default registry
func LoadOrDefault(configPath string) (*Registry, error) {
	registry := NewDefaultRegistry()

	config, err := LoadConfig(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return registry, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load keybinds.json: %w", err)
	}

	if err := ApplyConfig(registry, config); err != nil {
		return nil, err
	}
	return registry, nil
}

// splitKeys splits "up,k" into its keys. A lone "," binds the comma key.
func splitKeys(keys string) []string {
	if keys == "," {
		return []string{","}
	}
	parts := strings.Split(keys, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if strings.TrimSpace(p) != "" {
			p = strings.TrimSpace(p)
		}
		result = append(result, p)
	}
	return result
}
