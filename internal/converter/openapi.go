package converter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/studiowebux/discobrowse/internal/types"
	"gopkg.in/yaml.v3"
)

// OpenAPIOptions contains options for the import-openapi conversion
type OpenAPIOptions struct {
	SpecPath string // File path or http(s) URL
	Output   string // Output file; empty or "-" writes to stdout
	APIID    string // Catalog id; derived from info.title when empty
	Format   string // yaml or json (default: yaml)
}

// ImportOpenAPI converts an OpenAPI document into a catalog file
func ImportOpenAPI(opts OpenAPIOptions) error {
	data, err := readSpec(opts.SpecPath)
	if err != nil {
		return fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}

	doc, err := FromOpenAPIData(data, opts.APIID)
	if err != nil {
		return err
	}

	out, err := Marshal(doc, opts.Format)
	if err != nil {
		return err
	}

	if opts.Output == "" || opts.Output == "-" {
		_, err := os.Stdout.Write(out)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(opts.Output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(opts.Output, out, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Converted %d endpoints of %s into %s\n", len(doc.Endpoints), doc.ID, opts.Output)
	return nil
}

// Marshal encodes a catalog document as yaml or json
func Marshal(doc types.CatalogDocument, format string) ([]byte, error) {
	switch format {
	case "", "yaml", "yml":
		return yaml.Marshal(doc)
	case "json":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (use yaml or json)", format)
	}
}

// readSpec loads an OpenAPI spec from a file or URL
func readSpec(path string) ([]byte, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := http.Get(path)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch spec from URL: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	return data, nil
}

// FromOpenAPIData parses a JSON or YAML OpenAPI 3 document and converts it
func FromOpenAPIData(data []byte, apiID string) (types.CatalogDocument, error) {
	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return types.CatalogDocument{}, fmt.Errorf("failed to parse OpenAPI doc: %w", err)
	}
	return FromOpenAPI(spec, apiID)
}

// FromOpenAPI builds a catalog document from a loaded OpenAPI 3 document.
// Operations are emitted sorted by path then method.
func FromOpenAPI(spec *openapi3.T, apiID string) (types.CatalogDocument, error) {
	if spec.Info == nil || spec.Info.Title == "" {
		return types.CatalogDocument{}, fmt.Errorf("OpenAPI doc has no info.title")
	}
	if apiID == "" {
		apiID = Slug(spec.Info.Title)
	}

	doc := types.CatalogDocument{
		ID: apiID,
		API: types.APIInfo{
			Name:          apiID,
			CanonicalName: spec.Info.Title,
			Title:         spec.Info.Title,
			Description:   spec.Info.Description,
			Version:       spec.Info.Version,
		},
		Endpoints: []types.EndpointDescriptor{},
	}
	if spec.ExternalDocs != nil {
		doc.API.DocumentationLink = spec.ExternalDocs.URL
	}

	baseURL := serverURL(spec.Servers)

	var paths []string
	if spec.Paths != nil {
		for path := range spec.Paths.Map() {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := spec.Paths.Value(path)
		ops := item.Operations()

		methods := make([]string, 0, len(ops))
		for method := range ops {
			methods = append(methods, method)
		}
		sort.Strings(methods)

		for _, method := range methods {
			op := ops[method]
			ep := operationToEndpoint(method, path, item, op, baseURL)
			ep.ID = apiID + "." + ep.Name
			ep.Scopes = collectScopes(op.Security, spec.Security)
			doc.Endpoints = append(doc.Endpoints, ep)
		}
	}

	if err := doc.Validate(); err != nil {
		return types.CatalogDocument{}, err
	}
	return doc, nil
}

func operationToEndpoint(method, path string, item *openapi3.PathItem, op *openapi3.Operation, baseURL string) types.EndpointDescriptor {
	name := op.OperationID
	if name == "" {
		name = strings.ToLower(method) + "_" + sanitizeName(path)
	}

	description := op.Description
	if description == "" {
		description = op.Summary
	}

	ep := types.EndpointDescriptor{
		Name:           name,
		HTTPMethod:     strings.ToUpper(method),
		Path:           strings.TrimPrefix(path, "/"),
		Description:    description,
		BaseURL:        baseURL,
		ParameterOrder: []string{},
		Parameters:     []types.Parameter{},
	}

	for _, ref := range mergeParameters(item.Parameters, op.Parameters) {
		p := ref.Value
		ep.Parameters = append(ep.Parameters, types.Parameter{
			Name:        p.Name,
			Description: p.Description,
			Type:        schemaType(p.Schema),
			Location:    p.In,
			Required:    types.Flag(p.Required),
		})
		if p.Required {
			ep.ParameterOrder = append(ep.ParameterOrder, p.Name)
		}
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		body := op.RequestBody.Value
		param := types.Parameter{
			Name:        "body",
			Description: body.Description,
			Location:    "body",
			Required:    types.Flag(body.Required),
		}
		// Only the first content type is described
		for _, contentType := range sortedKeys(body.Content) {
			if media := body.Content[contentType]; media != nil {
				param.Type = schemaType(media.Schema)
			}
			break
		}
		ep.Parameters = append(ep.Parameters, param)
		if body.Required {
			ep.ParameterOrder = append(ep.ParameterOrder, param.Name)
		}
	}

	return ep
}

// mergeParameters returns path level parameters overridden by operation level
// ones with the same name and location
func mergeParameters(pathParams, opParams openapi3.Parameters) []*openapi3.ParameterRef {
	key := func(p *openapi3.Parameter) string { return p.In + ":" + p.Name }

	overridden := make(map[string]bool)
	for _, ref := range opParams {
		if ref != nil && ref.Value != nil {
			overridden[key(ref.Value)] = true
		}
	}

	var result []*openapi3.ParameterRef
	for _, ref := range pathParams {
		if ref == nil || ref.Value == nil || overridden[key(ref.Value)] {
			continue
		}
		result = append(result, ref)
	}
	for _, ref := range opParams {
		if ref != nil && ref.Value != nil {
			result = append(result, ref)
		}
	}
	return result
}

// schemaType gets a human-readable type description
func schemaType(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Value == nil {
		return ""
	}
	schema := ref.Value

	typ := "string"
	if t := schema.Type.Slice(); len(t) > 0 {
		typ = t[0]
	} else if len(schema.Properties) > 0 {
		typ = "object"
	}

	if typ == "array" && schema.Items != nil {
		return fmt.Sprintf("array<%s>", schemaType(schema.Items))
	}
	return typ
}

// serverURL returns the first server URL with variables set to their
// defaults, always ending in a slash
func serverURL(servers openapi3.Servers) string {
	if len(servers) == 0 || servers[0] == nil {
		return ""
	}

	u := servers[0].URL
	for name, v := range servers[0].Variables {
		if v != nil {
			u = strings.ReplaceAll(u, "{"+name+"}", v.Default)
		}
	}
	if u != "" && !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

func collectScopes(opSecurity *openapi3.SecurityRequirements, global openapi3.SecurityRequirements) []string {
	requirements := global
	if opSecurity != nil {
		requirements = *opSecurity
	}

	seen := make(map[string]bool)
	scopes := []string{}
	for _, req := range requirements {
		for _, list := range req {
			for _, scope := range list {
				if !seen[scope] {
					seen[scope] = true
					scopes = append(scopes, scope)
				}
			}
		}
	}
	sort.Strings(scopes)
	return scopes
}

func sortedKeys(content openapi3.Content) []string {
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Slug turns an API title into a catalog id ("Ad Experience Report" -> "adexperiencereport")
func Slug(title string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "api"
	}
	return sb.String()
}

// sanitizeName creates a method name fragment from a path
func sanitizeName(path string) string {
	path = strings.Trim(path, "/")
	path = strings.ReplaceAll(path, "/", "_")
	path = strings.ReplaceAll(path, "{", "")
	path = strings.ReplaceAll(path, "}", "")
	path = strings.ReplaceAll(path, " ", "_")
	path = strings.ReplaceAll(path, ":", "_")
	path = strings.ReplaceAll(path, ".", "_")

	if path == "" {
		path = "root"
	}
	return path
}
