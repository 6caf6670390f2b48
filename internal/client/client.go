// Package client is the HTTP client for the metadata server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/studiowebux/discobrowse/internal/types"
)

// ErrTransport wraps failures where no response was received
var ErrTransport = errors.New("metadata request failed")

// StatusError is returned when the server answers with a status other than 200
type StatusError struct {
	Code   int
	Status string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Options configures a Client
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration // Zero means no timeout
	Logger     *slog.Logger
}

// Client fetches descriptors from a metadata server
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
}

// New creates a client for the server at baseURL
func New(baseURL string, opts Options) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{baseURL: u, http: httpClient, logger: logger}, nil
}

// BaseURL returns the server URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// APIDetail fetches GET /api_detail?api_id={apiID}
func (c *Client) APIDetail(ctx context.Context, apiID string) (types.APIDescriptor, error) {
	body, err := c.get(ctx, "api_detail", url.Values{"api_id": {apiID}})
	if err != nil {
		return types.APIDescriptor{}, err
	}
	return types.DecodeAPIDescriptor(body)
}

// EndpointDetail fetches GET /endpoint_detail?method_name={name}. apiID is
// sent as well when non-empty, to disambiguate bare method names.
func (c *Client) EndpointDetail(ctx context.Context, methodName, apiID string) (types.EndpointDescriptor, error) {
	query := url.Values{"method_name": {methodName}}
	if apiID != "" {
		query.Set("api_id", apiID)
	}
	body, err := c.get(ctx, "endpoint_detail", query)
	if err != nil {
		return types.EndpointDescriptor{}, err
	}
	return types.DecodeEndpointDescriptor(body)
}

// ListAPIs fetches GET /apis
func (c *Client) ListAPIs(ctx context.Context) ([]types.APISummary, error) {
	body, err := c.get(ctx, "apis", nil)
	if err != nil {
		return nil, err
	}
	var apis []types.APISummary
	if err := json.Unmarshal(body, &apis); err != nil {
		return nil, fmt.Errorf("failed to decode API list: %w", err)
	}
	return apis, nil
}

// ListEndpoints fetches GET /api_endpoints?api_id={apiID}
func (c *Client) ListEndpoints(ctx context.Context, apiID string) ([]types.EndpointSummary, error) {
	body, err := c.get(ctx, "api_endpoints", url.Values{"api_id": {apiID}})
	if err != nil {
		return nil, err
	}
	var endpoints []types.EndpointSummary
	if err := json.Unmarshal(body, &endpoints); err != nil {
		return nil, fmt.Errorf("failed to decode endpoint list: %w", err)
	}
	return endpoints, nil
}

// get issues a single GET and returns the body of a 200 response
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err)
	}

	c.logger.Debug("metadata request",
		"url", u.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", resp.Header.Get("X-Request-Id"))

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: u.String()}
	}
	return body, nil
}
