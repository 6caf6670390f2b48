package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlaceholderLabel is the endpoint picker entry meaning "no endpoint chosen yet"
const PlaceholderLabel = "Select an API End-Point"

// APIDescriptor is the payload of /api_detail
type APIDescriptor struct {
	API APIInfo `json:"api" yaml:"api"`
}

// APIInfo describes one external web API
type APIInfo struct {
	Name              string `json:"name,omitempty" yaml:"name,omitempty"`
	CanonicalName     string `json:"canonicalName,omitempty" yaml:"canonicalName,omitempty"`
	Title             string `json:"title,omitempty" yaml:"title,omitempty"`
	Description       string `json:"description,omitempty" yaml:"description,omitempty"`
	DiscoveryVersion  string `json:"discoveryVersion,omitempty" yaml:"discoveryVersion,omitempty"`
	Version           string `json:"version,omitempty" yaml:"version,omitempty"`
	DocumentationLink string `json:"documentationLink,omitempty" yaml:"documentationLink,omitempty"`
	Icons             Icons  `json:"icons" yaml:"icons"`
}

// Icons holds the icon URLs of an API
type Icons struct {
	X16 string `json:"x16,omitempty" yaml:"x16,omitempty"`
	X32 string `json:"x32,omitempty" yaml:"x32,omitempty"`
}

// DisplayName returns the canonical name, falling back to title then name
func (a APIInfo) DisplayName() string {
	switch {
	case a.CanonicalName != "":
		return a.CanonicalName
	case a.Title != "":
		return a.Title
	default:
		return a.Name
	}
}

// IsZero reports whether no API has been loaded
func (d APIDescriptor) IsZero() bool {
	return d.API == APIInfo{}
}

// EndpointDescriptor is the payload of /endpoint_detail
type EndpointDescriptor struct {
	ID             string      `json:"id,omitempty" yaml:"id,omitempty"`
	Name           string      `json:"name,omitempty" yaml:"name,omitempty"`
	HTTPMethod     string      `json:"httpMethod,omitempty" yaml:"httpMethod,omitempty"`
	Path           string      `json:"path,omitempty" yaml:"path,omitempty"`
	Description    string      `json:"description,omitempty" yaml:"description,omitempty"`
	BaseURL        string      `json:"base_url" yaml:"base_url"`
	ParameterOrder []string    `json:"parameterOrder" yaml:"parameterOrder"`
	Parameters     []Parameter `json:"parameters" yaml:"parameters"`
	Scopes         []string    `json:"scopes" yaml:"scopes"`
}

// Parameter is one parameter definition of an endpoint
type Parameter struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Type        string `json:"type" yaml:"type"`
	Location    string `json:"location" yaml:"location"`
	Required    Flag   `json:"required" yaml:"required"`
}

// EmptyEndpoint returns the sentinel displayed before an endpoint is chosen.
// It carries a single blank parameter row so the parameter table keeps its shape.
func EmptyEndpoint() EndpointDescriptor {
	return EndpointDescriptor{
		BaseURL:        "",
		ParameterOrder: []string{},
		Parameters:     []Parameter{{}},
		Scopes:         []string{},
	}
}

// IsEmpty reports whether e is equivalent to the EmptyEndpoint sentinel
func (e EndpointDescriptor) IsEmpty() bool {
	if e.ID != "" || e.Name != "" || e.HTTPMethod != "" || e.Path != "" || e.Description != "" || e.BaseURL != "" {
		return false
	}
	if len(e.ParameterOrder) != 0 || len(e.Scopes) != 0 {
		return false
	}
	for _, p := range e.Parameters {
		if p != (Parameter{}) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the descriptor
func (e EndpointDescriptor) Clone() EndpointDescriptor {
	c := e
	c.ParameterOrder = append([]string{}, e.ParameterOrder...)
	c.Parameters = append([]Parameter{}, e.Parameters...)
	c.Scopes = append([]string{}, e.Scopes...)
	return c
}

// OrderedParameters returns parameters listed in ParameterOrder first, followed
// by the remaining ones in declaration order
func (e EndpointDescriptor) OrderedParameters() []Parameter {
	byName := make(map[string]Parameter, len(e.Parameters))
	for _, p := range e.Parameters {
		byName[p.Name] = p
	}

	result := make([]Parameter, 0, len(e.Parameters))
	seen := make(map[string]bool, len(e.ParameterOrder))
	for _, name := range e.ParameterOrder {
		if p, ok := byName[name]; ok && !seen[name] {
			result = append(result, p)
			seen[name] = true
		}
	}
	for _, p := range e.Parameters {
		if !seen[p.Name] {
			result = append(result, p)
		}
	}
	return result
}

// Flag is a required flag that tolerates the string forms found on the wire
type Flag bool

// UnmarshalJSON accepts true/false, "true"/"false" and ""
func (f *Flag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(b)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("required must be a boolean or string, got %s", string(data))
	}
	v, err := parseFlag(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON
func (f *Flag) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("required must be a scalar")
	}
	v, err := parseFlag(value.Value)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// parseFlag accepts "true", "false" and "". Case is ignored so YAML's True
// and FALSE decode too.
func parseFlag(s string) (Flag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, nil
	case "false", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid required value %q", s)
	}
}

// APISummary is one row of the API picker
type APISummary struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// EndpointSummary is one row of the endpoint picker
type EndpointSummary struct {
	Name       string `json:"name" yaml:"name"`
	ID         string `json:"id,omitempty" yaml:"id,omitempty"`
	HTTPMethod string `json:"httpMethod,omitempty" yaml:"httpMethod,omitempty"`
}
