package tui

import (
	"sync"

	"github.com/studiowebux/discobrowse/internal/filter"
	"github.com/studiowebux/discobrowse/internal/types"
)

// APIPickerState encapsulates the API list and its fuzzy filter
type APIPickerState struct {
	mu sync.RWMutex

	all      []types.APISummary // Unfiltered list from the server
	filtered []types.APISummary
	query    string
	index    int
}

// NewAPIPickerState creates an empty API picker
func NewAPIPickerState() *APIPickerState {
	return &APIPickerState{
		all:      []types.APISummary{},
		filtered: []types.APISummary{},
	}
}

// SetAPIs replaces the list and reapplies the current filter
func (s *APIPickerState) SetAPIs(apis []types.APISummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append([]types.APISummary{}, apis...)
	s.applyFilter()
}

// SetQuery filters the list with a fuzzy pattern
func (s *APIPickerState) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = query
	s.applyFilter()
}

// GetQuery returns the current filter pattern
func (s *APIPickerState) GetQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// applyFilter must be called with the lock held
func (s *APIPickerState) applyFilter() {
	s.filtered = filter.MatchAPIs(s.all, s.query)
	s.index = 0
}

// GetAPIs returns a copy of the visible APIs
func (s *APIPickerState) GetAPIs() []types.APISummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]types.APISummary, len(s.filtered))
	copy(result, s.filtered)
	return result
}

// GetIndex returns the highlighted row
func (s *APIPickerState) GetIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Move shifts the highlighted row by delta, clamped to the list
func (s *APIPickerState) Move(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = clamp(s.index+delta, len(s.filtered))
}

// Selected returns the highlighted API
func (s *APIPickerState) Selected() (types.APISummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index < 0 || s.index >= len(s.filtered) {
		return types.APISummary{}, false
	}
	return s.filtered[s.index], true
}

// Select highlights the API with id, clearing the filter if it hides it
func (s *APIPickerState) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOfAPI(s.filtered, id); i >= 0 {
		s.index = i
		return true
	}
	if indexOfAPI(s.all, id) < 0 {
		return false
	}
	s.query = ""
	s.applyFilter()
	s.index = indexOfAPI(s.filtered, id)
	return true
}

func indexOfAPI(apis []types.APISummary, id string) int {
	for i, api := range apis {
		if api.ID == id {
			return i
		}
	}
	return -1
}

// EndpointPickerState encapsulates the endpoint list of the current API.
// Row 0 is always the placeholder.
type EndpointPickerState struct {
	mu sync.RWMutex

	apiID     string
	endpoints []types.EndpointSummary
	index     int
}

// NewEndpointPickerState creates a picker holding only the placeholder
func NewEndpointPickerState() *EndpointPickerState {
	return &EndpointPickerState{endpoints: []types.EndpointSummary{}}
}

// SetEndpoints replaces the endpoints for apiID and highlights the placeholder
func (s *EndpointPickerState) SetEndpoints(apiID string, endpoints []types.EndpointSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiID = apiID
	s.endpoints = append([]types.EndpointSummary{}, endpoints...)
	s.index = 0
}

// Clear drops the endpoints, leaving only the placeholder
func (s *EndpointPickerState) Clear() {
	s.SetEndpoints("", nil)
}

// ResetToPlaceholder highlights the placeholder row
func (s *EndpointPickerState) ResetToPlaceholder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = 0
}

// GetAPIID returns the API the endpoints belong to
func (s *EndpointPickerState) GetAPIID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiID
}

// Labels returns the rows as displayed, placeholder first
func (s *EndpointPickerState) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	labels := make([]string, 0, len(s.endpoints)+1)
	labels = append(labels, types.PlaceholderLabel)
	for _, ep := range s.endpoints {
		labels = append(labels, ep.Name)
	}
	return labels
}

// GetIndex returns the highlighted row
func (s *EndpointPickerState) GetIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Move shifts the highlighted row by delta, clamped to the list
func (s *EndpointPickerState) Move(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = clamp(s.index+delta, len(s.endpoints)+1)
}

// SelectedName returns the highlighted label, the placeholder included
func (s *EndpointPickerState) SelectedName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index <= 0 || s.index > len(s.endpoints) {
		return types.PlaceholderLabel
	}
	return s.endpoints[s.index-1].Name
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
