/*
Package types defines the descriptor records shared by the metadata server,
the client and the terminal UI.

# Descriptors

APIDescriptor:
  - Describes one web API (name, canonical name, description, versions, icons)
  - Received whole from the server and replaced, never merged

EndpointDescriptor:
  - Describes one callable operation of an API
  - Base URL, ordered parameter names, parameter definitions, OAuth scopes
  - EmptyEndpoint returns the sentinel shown before any endpoint is chosen

# Lists

APISummary and EndpointSummary are the rows used to populate the pickers.
PlaceholderLabel is the first row of every endpoint picker.

# Decoding

DecodeAPIDescriptor and DecodeEndpointDescriptor parse a wire payload and
validate its shape. A payload that does not match returns a *ShapeError, so
nothing unvalidated reaches UI state.
*/
package types
