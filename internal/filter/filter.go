package filter

import (
	"encoding/json"
	"fmt"

	"github.com/jmespath/go-jmespath"
	"github.com/sahilm/fuzzy"
	"github.com/studiowebux/discobrowse/internal/types"
)

// Apply applies filter and query expressions to a JSON document
// Filter narrows results (e.g., parameters[?required])
// Query transforms/selects fields (e.g., parameters[].name)
func Apply(body string, filter string, query string) (string, error) {
	result := body

	// Apply filter first (if specified)
	if filter != "" {
		filtered, err := applyJMESPath(result, filter)
		if err != nil {
			return "", fmt.Errorf("failed to apply filter: %w", err)
		}
		result = filtered
	}

	if query != "" {
		queried, err := applyJMESPath(result, query)
		if err != nil {
			return "", fmt.Errorf("failed to apply query: %w", err)
		}
		result = queried
	}

	return result, nil
}

// ApplyValue marshals v to JSON and applies filter and query to it
func ApplyValue(v any, filter string, query string) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal value: %w", err)
	}
	return Apply(string(data), filter, query)
}

// applyJMESPath applies a JMESPath expression to a JSON string
func applyJMESPath(jsonStr string, expression string) (string, error) {
	// Parse the JSON
	var data interface{}
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}

	// Compile the JMESPath expression
	jp, err := jmespath.Compile(expression)
	if err != nil {
		return "", fmt.Errorf("invalid JMESPath expression '%s': %w", expression, err)
	}

	// Search/apply the expression
	result, err := jp.Search(data)
	if err != nil {
		return "", fmt.Errorf("JMESPath search failed: %w", err)
	}

	// Handle null result
	if result == nil {
		return "null", nil
	}

	// Convert result back to JSON
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	return string(output), nil
}

// IsValidJMESPath checks if an expression is valid JMESPath syntax
func IsValidJMESPath(expression string) bool {
	_, err := jmespath.Compile(expression)
	return err == nil
}

// apiSource adapts API summaries to fuzzy.Source, matching on id and name
type apiSource []types.APISummary

func (s apiSource) String(i int) string { return s[i].ID + " " + s[i].Name + " " + s[i].Title }
func (s apiSource) Len() int            { return len(s) }

// MatchAPIs returns the APIs matching pattern, best match first.
// An empty pattern returns apis unchanged.
func MatchAPIs(apis []types.APISummary, pattern string) []types.APISummary {
	if pattern == "" {
		return apis
	}

	matches := fuzzy.FindFrom(pattern, apiSource(apis))
	result := make([]types.APISummary, 0, len(matches))
	for _, m := range matches {
		result = append(result, apis[m.Index])
	}
	return result
}

// endpointSource adapts endpoint summaries to fuzzy.Source
type endpointSource []types.EndpointSummary

func (s endpointSource) String(i int) string { return s[i].Name }
func (s endpointSource) Len() int            { return len(s) }

// MatchEndpoints returns the endpoints matching pattern, best match first
func MatchEndpoints(endpoints []types.EndpointSummary, pattern string) []types.EndpointSummary {
	if pattern == "" {
		return endpoints
	}

	matches := fuzzy.FindFrom(pattern, endpointSource(endpoints))
	result := make([]types.EndpointSummary, 0, len(matches))
	for _, m := range matches {
		result = append(result, endpoints[m.Index])
	}
	return result
}
