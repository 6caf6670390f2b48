package catalog

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/studiowebux/discobrowse/internal/converter"
	"github.com/studiowebux/discobrowse/internal/types"
	"github.com/tidwall/jsonc"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

//go:embed sample/*.yaml
var sampleFS embed.FS

// maxParallelLoads bounds how many catalog files are parsed at once
const maxParallelLoads = 8

// IsCatalogFile reports whether path has a supported catalog extension
func IsCatalogFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".jsonc":
		return true
	}
	return false
}

// LoadDir parses every catalog file directly inside dir. Files are parsed
// concurrently; the result is sorted by API id.
func LoadDir(ctx context.Context, dir string, logger *slog.Logger) ([]types.CatalogDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !IsCatalogFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	docs := make([]types.CatalogDocument, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := LoadFile(path)
			if err != nil {
				return err
			}
			docs[i] = doc
			logger.Debug("catalog file parsed", "path", path, "api_id", doc.ID, "endpoints", len(doc.Endpoints))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// LoadFile parses one catalog file. OpenAPI documents are converted; the API
// id defaults to the file name without extension.
func LoadFile(path string) (types.CatalogDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.CatalogDocument{}, fmt.Errorf("failed to read catalog file: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	doc, err := Parse(data, filepath.Ext(path), stem)
	if err != nil {
		return types.CatalogDocument{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes catalog data. ext selects the decoder (".json", ".jsonc",
// ".yaml", ".yml"); defaultID is used when the document carries no id.
func Parse(data []byte, ext, defaultID string) (types.CatalogDocument, error) {
	ext = strings.ToLower(ext)
	if ext == ".jsonc" {
		data = jsonc.ToJSON(data)
	}

	unmarshal := yaml.Unmarshal
	if ext == ".json" || ext == ".jsonc" {
		unmarshal = json.Unmarshal
	}

	var header struct {
		OpenAPI string `json:"openapi" yaml:"openapi"`
		ID      string `json:"id" yaml:"id"`
	}
	if err := unmarshal(data, &header); err != nil {
		return types.CatalogDocument{}, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	if header.OpenAPI != "" {
		return converter.FromOpenAPIData(data, defaultID)
	}

	var doc types.CatalogDocument
	if err := unmarshal(data, &doc); err != nil {
		return types.CatalogDocument{}, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if doc.ID == "" {
		doc.ID = defaultID
	}
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return types.CatalogDocument{}, err
	}
	return doc, nil
}

// Sample returns the built-in catalog
func Sample() ([]types.CatalogDocument, error) {
	entries, err := sampleFS.ReadDir("sample")
	if err != nil {
		return nil, err
	}

	docs := make([]types.CatalogDocument, 0, len(entries))
	for _, entry := range entries {
		data, err := sampleFS.ReadFile("sample/" + entry.Name())
		if err != nil {
			return nil, err
		}
		doc, err := Parse(data, filepath.Ext(entry.Name()), strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", entry.Name(), err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
