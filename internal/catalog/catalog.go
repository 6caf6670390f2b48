// Package catalog is the server-side registry of API and endpoint descriptors.
//
// A catalog is loaded from a directory of YAML, JSON, JSONC and OpenAPI files,
// or from the built-in sample when no directory is configured. Reload replaces
// the whole registry at once, so readers never observe a half-loaded catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/studiowebux/discobrowse/internal/types"
)

var (
	// ErrNotFound is returned for unknown API ids and method names
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous is returned when a bare method name matches several APIs
	ErrAmbiguous = errors.New("ambiguous method name")
)

// Options configures a Catalog
type Options struct {
	Dir    string // Empty uses the built-in sample
	Logger *slog.Logger
}

// Catalog holds the loaded documents keyed by API id
type Catalog struct {
	mu   sync.RWMutex
	docs map[string]types.CatalogDocument
	ids  []string // sorted

	dir    string
	logger *slog.Logger
}

// New creates a catalog from already decoded documents
func New(docs []types.CatalogDocument) (*Catalog, error) {
	c := &Catalog{logger: slog.New(slog.DiscardHandler)}
	if err := c.Replace(docs); err != nil {
		return nil, err
	}
	return c, nil
}

// Open loads the catalog described by opts
func Open(ctx context.Context, opts Options) (*Catalog, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Catalog{dir: opts.Dir, logger: logger}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the catalog directory, empty for the built-in sample
func (c *Catalog) Dir() string {
	return c.dir
}

// Reload reads the catalog source again and swaps it in. On error the
// previous contents are kept.
func (c *Catalog) Reload(ctx context.Context) error {
	var docs []types.CatalogDocument
	var err error
	if c.dir == "" {
		docs, err = Sample()
	} else {
		docs, err = LoadDir(ctx, c.dir, c.logger)
	}
	if err != nil {
		return err
	}

	if err := c.Replace(docs); err != nil {
		return err
	}
	c.logger.Info("catalog loaded", "dir", c.dir, "apis", len(docs))
	return nil
}

// Replace validates docs and swaps them in as the new contents
func (c *Catalog) Replace(docs []types.CatalogDocument) error {
	byID := make(map[string]types.CatalogDocument, len(docs))
	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		doc.Normalize()
		if err := doc.Validate(); err != nil {
			return err
		}
		if _, exists := byID[doc.ID]; exists {
			return fmt.Errorf("duplicate api id %q", doc.ID)
		}
		byID[doc.ID] = doc
		ids = append(ids, doc.ID)
	}
	sort.Strings(ids)

	c.mu.Lock()
	c.docs = byID
	c.ids = ids
	c.mu.Unlock()
	return nil
}

// API returns the descriptor for apiID
func (c *Catalog) API(apiID string) (types.APIDescriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.docs[apiID]
	if !ok {
		return types.APIDescriptor{}, fmt.Errorf("api %q: %w", apiID, ErrNotFound)
	}
	return doc.Descriptor(), nil
}

// APIs returns one summary per API, sorted by id
func (c *Catalog) APIs() []types.APISummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]types.APISummary, 0, len(c.ids))
	for _, id := range c.ids {
		result = append(result, c.docs[id].Summary())
	}
	return result
}

// Endpoints returns the endpoint summaries of apiID, sorted by name
func (c *Catalog) Endpoints(apiID string) ([]types.EndpointSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.docs[apiID]
	if !ok {
		return nil, fmt.Errorf("api %q: %w", apiID, ErrNotFound)
	}

	result := make([]types.EndpointSummary, 0, len(doc.Endpoints))
	for _, ep := range doc.Endpoints {
		result = append(result, types.EndpointSummary{
			Name:       ep.Name,
			ID:         doc.QualifiedID(ep),
			HTTPMethod: ep.HTTPMethod,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Resolve finds the endpoint for methodName. A fully qualified method id wins
// over a bare method name. When apiID is set the search is limited to that API.
func (c *Catalog) Resolve(methodName, apiID string) (types.EndpointDescriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := c.ids
	if apiID != "" {
		if _, ok := c.docs[apiID]; !ok {
			return types.EndpointDescriptor{}, fmt.Errorf("api %q: %w", apiID, ErrNotFound)
		}
		ids = []string{apiID}
	}

	for _, id := range ids {
		doc := c.docs[id]
		for _, ep := range doc.Endpoints {
			if doc.QualifiedID(ep) == methodName {
				return ep.Clone(), nil
			}
		}
	}

	var matches []types.EndpointDescriptor
	var owners []string
	for _, id := range ids {
		for _, ep := range c.docs[id].Endpoints {
			if ep.Name == methodName {
				matches = append(matches, ep)
				owners = append(owners, id)
			}
		}
	}

	switch len(matches) {
	case 0:
		return types.EndpointDescriptor{}, fmt.Errorf("method %q: %w", methodName, ErrNotFound)
	case 1:
		return matches[0].Clone(), nil
	default:
		return types.EndpointDescriptor{}, fmt.Errorf("method %q is defined by %v: %w", methodName, owners, ErrAmbiguous)
	}
}

// Len returns the number of APIs
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
