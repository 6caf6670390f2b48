// Package state holds the UI state shared by the selection handler and the
// rendering layer: the current API descriptor and the current endpoint
// descriptor.
//
// Every outbound fetch takes a token from Begin*; its result is only applied
// when that token is still the latest one issued for the field, so a response
// to a superseded request never overwrites a later selection.
package state

import (
	"sync"

	"github.com/studiowebux/discobrowse/internal/types"
)

// Token identifies one outbound request for a field
type Token uint64

// Snapshot is a copy of the UI state safe to retain without locking
type Snapshot struct {
	APIID    string // Id the API descriptor was requested with
	API      types.APIDescriptor
	Endpoint types.EndpointDescriptor
	Revision uint64 // Incremented on every applied change
}

// Listener is notified after each applied change
type Listener func(Snapshot)

// Store is the explicit state container. Setters are the only mutation path.
type Store struct {
	mu sync.RWMutex

	apiID    string
	api      types.APIDescriptor
	endpoint types.EndpointDescriptor
	revision uint64

	apiToken      Token
	endpointToken Token

	listeners map[int]Listener
	nextID    int
}

// NewStore creates a store with both descriptors empty
func NewStore() *Store {
	return &Store{
		endpoint:  types.EmptyEndpoint(),
		listeners: make(map[int]Listener),
	}
}

// BeginAPI issues a token for a new API request. It also supersedes any
// in-flight endpoint request, since an API selection resets the endpoint picker.
func (s *Store) BeginAPI() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiToken++
	s.endpointToken++
	return s.apiToken
}

// BeginEndpoint issues a token for a new endpoint request
func (s *Store) BeginEndpoint() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpointToken++
	return s.endpointToken
}

// IsCurrentAPI reports whether token is the latest API token
func (s *Store) IsCurrentAPI(token Token) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return token == s.apiToken
}

// IsCurrentEndpoint reports whether token is the latest endpoint token
func (s *Store) IsCurrentEndpoint(token Token) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return token == s.endpointToken
}

// ApplyAPI stores desc, requested as apiID, and resets the endpoint to the
// empty sentinel if token is still current. Endpoint requests still in flight
// belong to the previous API and are superseded. It reports whether the change
// was applied.
func (s *Store) ApplyAPI(token Token, apiID string, desc types.APIDescriptor) bool {
	s.mu.Lock()
	if token != s.apiToken {
		s.mu.Unlock()
		return false
	}
	s.apiID = apiID
	s.api = desc
	s.endpoint = types.EmptyEndpoint()
	s.endpointToken++
	s.revision++
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	return true
}

// ApplyEndpoint stores desc if token is still current.
// It reports whether the change was applied.
func (s *Store) ApplyEndpoint(token Token, desc types.EndpointDescriptor) bool {
	s.mu.Lock()
	if token != s.endpointToken {
		s.mu.Unlock()
		return false
	}
	s.endpoint = desc.Clone()
	s.revision++
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	return true
}

// API returns the current API descriptor
func (s *Store) API() types.APIDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.api
}

// APIID returns the id of the current API, empty before the first selection
func (s *Store) APIID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiID
}

// Endpoint returns a copy of the current endpoint descriptor
func (s *Store) Endpoint() types.EndpointDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endpoint.Clone()
}

// Snapshot returns a copy of the whole state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called synchronously after each applied change.
// The returned func removes the listener.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		APIID:    s.apiID,
		API:      s.api,
		Endpoint: s.endpoint.Clone(),
		Revision: s.revision,
	}
}

func (s *Store) listenersLocked() []Listener {
	result := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		result = append(result, fn)
	}
	return result
}

// listeners run outside the lock so they may read the store
func notify(listeners []Listener, snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}
