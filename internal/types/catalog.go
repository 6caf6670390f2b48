package types

import "fmt"

// CatalogDocument is the on-disk form of one API in the metadata catalog
type CatalogDocument struct {
	ID        string               `json:"id" yaml:"id"`
	API       APIInfo              `json:"api" yaml:"api"`
	Endpoints []EndpointDescriptor `json:"endpoints" yaml:"endpoints"`
}

// Descriptor returns the API descriptor served for the document
func (d CatalogDocument) Descriptor() APIDescriptor {
	return APIDescriptor{API: d.API}
}

// Summary returns the picker row for the document
func (d CatalogDocument) Summary() APISummary {
	return APISummary{
		ID:      d.ID,
		Name:    d.API.DisplayName(),
		Title:   d.API.Title,
		Version: d.API.Version,
	}
}

// Validate checks the document and every endpoint in it
func (d CatalogDocument) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("catalog document has no id")
	}
	if err := d.Descriptor().Validate(); err != nil {
		return fmt.Errorf("api %s: %w", d.ID, err)
	}

	seen := make(map[string]bool, len(d.Endpoints))
	for i, ep := range d.Endpoints {
		if ep.Name == "" {
			return fmt.Errorf("api %s: endpoint %d has no name", d.ID, i)
		}
		if seen[ep.Name] {
			return fmt.Errorf("api %s: duplicate endpoint %q", d.ID, ep.Name)
		}
		seen[ep.Name] = true
		if err := ep.Validate(); err != nil {
			return fmt.Errorf("api %s endpoint %s: %w", d.ID, ep.Name, err)
		}
	}
	return nil
}

// QualifiedID returns the fully qualified method id of ep within the document,
// e.g. "adexperiencereport.sites.get"
func (d CatalogDocument) QualifiedID(ep EndpointDescriptor) string {
	if ep.ID != "" {
		return ep.ID
	}
	return d.ID + "." + ep.Name
}

// Normalize replaces nil endpoint slices after decoding a document from disk
func (d *CatalogDocument) Normalize() {
	if d.Endpoints == nil {
		d.Endpoints = []EndpointDescriptor{}
	}
	for i := range d.Endpoints {
		d.Endpoints[i].normalize()
	}
}
