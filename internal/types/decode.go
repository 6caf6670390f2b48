package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ShapeError reports a payload that does not match the expected descriptor shape
type ShapeError struct {
	Kind   string // "API descriptor" or "endpoint descriptor"
	Reason string
	Err    error
}

func (e *ShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Kind, e.Reason)
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

const (
	kindAPI      = "API descriptor"
	kindEndpoint = "endpoint descriptor"
)

// DecodeAPIDescriptor parses and validates an /api_detail payload
func DecodeAPIDescriptor(data []byte) (APIDescriptor, error) {
	fields, err := decodeObject(data, kindAPI)
	if err != nil {
		return APIDescriptor{}, err
	}

	raw, ok := fields["api"]
	if !ok || !isObject(raw) {
		return APIDescriptor{}, &ShapeError{Kind: kindAPI, Reason: `missing "api" object`}
	}

	var desc APIDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return APIDescriptor{}, &ShapeError{Kind: kindAPI, Reason: "malformed fields", Err: err}
	}

	if err := desc.Validate(); err != nil {
		return APIDescriptor{}, err
	}
	return desc, nil
}

// Validate checks the invariants of an API descriptor
func (d APIDescriptor) Validate() error {
	if d.API.CanonicalName == "" && d.API.Name == "" {
		return &ShapeError{Kind: kindAPI, Reason: "api has neither canonicalName nor name"}
	}
	return nil
}

// DecodeEndpointDescriptor parses and validates an /endpoint_detail payload
func DecodeEndpointDescriptor(data []byte) (EndpointDescriptor, error) {
	if _, err := decodeObject(data, kindEndpoint); err != nil {
		return EndpointDescriptor{}, err
	}

	var desc EndpointDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return EndpointDescriptor{}, &ShapeError{Kind: kindEndpoint, Reason: "malformed fields", Err: err}
	}
	desc.normalize()

	if err := desc.Validate(); err != nil {
		return EndpointDescriptor{}, err
	}
	return desc, nil
}

// Validate checks the invariants of an endpoint descriptor
func (e EndpointDescriptor) Validate() error {
	defined := make(map[string]bool, len(e.Parameters))
	for i, p := range e.Parameters {
		if p.Name == "" {
			return &ShapeError{Kind: kindEndpoint, Reason: fmt.Sprintf("parameter %d has no name", i)}
		}
		defined[p.Name] = true
	}
	for _, name := range e.ParameterOrder {
		if !defined[name] {
			return &ShapeError{Kind: kindEndpoint, Reason: fmt.Sprintf("parameterOrder references undefined parameter %q", name)}
		}
	}
	return nil
}

// normalize replaces nil slices so the descriptor renders like the sentinel
func (e *EndpointDescriptor) normalize() {
	if e.ParameterOrder == nil {
		e.ParameterOrder = []string{}
	}
	if e.Parameters == nil {
		e.Parameters = []Parameter{}
	}
	if e.Scopes == nil {
		e.Scopes = []string{}
	}
}

func decodeObject(data []byte, kind string) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &ShapeError{Kind: kind, Reason: "empty body"}
	}
	if !isObject(trimmed) {
		return nil, &ShapeError{Kind: kind, Reason: "body is not a JSON object"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, &ShapeError{Kind: kind, Reason: "malformed JSON", Err: err}
	}
	return fields, nil
}

func isObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
