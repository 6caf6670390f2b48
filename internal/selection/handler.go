// Package selection turns picker selections into metadata requests and applies
// the results to the UI state store.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/studiowebux/discobrowse/internal/client"
	"github.com/studiowebux/discobrowse/internal/history"
	"github.com/studiowebux/discobrowse/internal/state"
	"github.com/studiowebux/discobrowse/internal/types"
)

var (
	// ErrEmptyAPIID is returned when OnAPISelected is called without an id
	ErrEmptyAPIID = errors.New("api id is required")

	// ErrSuperseded is returned when a response arrived after a newer selection
	ErrSuperseded = errors.New("response superseded by a newer selection")
)

// Fetcher retrieves descriptors from the metadata service
type Fetcher interface {
	APIDetail(ctx context.Context, apiID string) (types.APIDescriptor, error)
	EndpointDetail(ctx context.Context, methodName, apiID string) (types.EndpointDescriptor, error)
}

// Notifier shows a blocking notification to the user
type Notifier interface {
	Notify(message string)
}

// EndpointPicker is the endpoint list of the rendering layer
type EndpointPicker interface {
	ResetToPlaceholder()
}

// Recorder persists completed selections
type Recorder interface {
	Record(ctx context.Context, sel history.Selection) error
}

// Options holds the optional collaborators of a Handler
type Options struct {
	Picker   EndpointPicker
	Recorder Recorder
	Logger   *slog.Logger
}

// Handler reacts to API and endpoint selections
type Handler struct {
	fetcher  Fetcher
	store    *state.Store
	notifier Notifier
	picker   EndpointPicker
	recorder Recorder
	logger   *slog.Logger
}

// NewHandler creates a handler writing into store
func NewHandler(fetcher Fetcher, store *state.Store, notifier Notifier, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		fetcher:  fetcher,
		store:    store,
		notifier: notifier,
		picker:   opts.Picker,
		recorder: opts.Recorder,
		logger:   logger,
	}
}

// OnAPISelected resets the endpoint picker, fetches the API descriptor and,
// if no newer selection happened meanwhile, stores it and resets the endpoint
// descriptor to the empty sentinel.
func (h *Handler) OnAPISelected(ctx context.Context, apiID string) error {
	if apiID == "" {
		return ErrEmptyAPIID
	}

	if h.picker != nil {
		h.picker.ResetToPlaceholder()
	}
	token := h.store.BeginAPI()

	start := time.Now()
	desc, err := h.fetcher.APIDetail(ctx, apiID)
	h.record(ctx, history.Selection{
		Kind:     history.KindAPI,
		APIID:    apiID,
		Status:   statusOf(err),
		Duration: time.Since(start),
		Error:    errorText(err),
	})

	if err != nil {
		return h.fail(err, h.store.IsCurrentAPI(token), "api", apiID)
	}

	if !h.store.ApplyAPI(token, apiID, desc) {
		h.logger.Debug("discarded superseded API response", "api_id", apiID)
		return ErrSuperseded
	}

	h.logger.Info("api selected", "api_id", apiID, "name", desc.API.DisplayName())
	return nil
}

// OnEndpointSelected fetches the endpoint descriptor for endpointName and
// stores it. Selecting the placeholder is a no-op.
func (h *Handler) OnEndpointSelected(ctx context.Context, endpointName string) error {
	if endpointName == "" || endpointName == types.PlaceholderLabel {
		return nil
	}

	token := h.store.BeginEndpoint()
	apiID := h.store.APIID()

	start := time.Now()
	desc, err := h.fetcher.EndpointDetail(ctx, endpointName, apiID)
	h.record(ctx, history.Selection{
		Kind:         history.KindEndpoint,
		APIID:        apiID,
		EndpointName: endpointName,
		Status:       statusOf(err),
		Duration:     time.Since(start),
		Error:        errorText(err),
	})

	if err != nil {
		return h.fail(err, h.store.IsCurrentEndpoint(token), "endpoint", endpointName)
	}

	if !h.store.ApplyEndpoint(token, desc) {
		h.logger.Debug("discarded superseded endpoint response", "endpoint", endpointName)
		return ErrSuperseded
	}

	h.logger.Info("endpoint selected", "api_id", apiID, "endpoint", endpointName)
	return nil
}

// fail reports a failed fetch. Status and shape errors raise one notification
// unless a newer selection has superseded the request; transport errors only log.
func (h *Handler) fail(err error, current bool, kind, id string) error {
	var statusErr *client.StatusError
	var shapeErr *types.ShapeError

	switch {
	case !current:
		h.logger.Debug("discarded superseded failure", "kind", kind, "id", id, "error", err)
		return fmt.Errorf("%w: %w", ErrSuperseded, err)
	case errors.As(err, &statusErr):
		h.notifier.Notify(fmt.Sprintf("Request failed.  Returned status of %d", statusErr.Code))
		h.logger.Warn("metadata request failed", "kind", kind, "id", id, "status", statusErr.Code)
	case errors.As(err, &shapeErr):
		h.notifier.Notify(fmt.Sprintf("Request failed.  Invalid response: %s", shapeErr.Reason))
		h.logger.Warn("metadata response rejected", "kind", kind, "id", id, "error", err)
	default:
		h.logger.Debug("metadata request did not complete", "kind", kind, "id", id, "error", err)
	}
	return err
}

func (h *Handler) record(ctx context.Context, sel history.Selection) {
	if h.recorder == nil {
		return
	}
	if err := h.recorder.Record(ctx, sel); err != nil {
		h.logger.Warn("failed to record selection", "error", err)
	}
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	var shapeErr *types.ShapeError
	if errors.As(err, &shapeErr) {
		return http.StatusOK
	}
	return 0
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
