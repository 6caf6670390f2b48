// Package server is the metadata server answering /api_detail and
// /endpoint_detail from a catalog.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/studiowebux/discobrowse/internal/catalog"
)

// DefaultAddress is the listen address used when none is configured
const DefaultAddress = "127.0.0.1:8080"

// maxLogs is the number of requests kept in memory
const maxLogs = 1000

// Options configures the HTTP server
type Options struct {
	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	Logger            *slog.Logger
}

// Server serves descriptors from a catalog
type Server struct {
	catalog    *catalog.Catalog
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger
	opts       Options

	logs      []RequestLog
	logsMutex sync.RWMutex
	seq       uint64        // Last assigned RequestLog.Seq
	notifyCh  chan struct{} // Signals a new request log entry
}

// New creates a server for cat. It does not listen until Start is called.
func New(cat *catalog.Catalog, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddress
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 2 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		catalog:  cat,
		logger:   opts.Logger,
		opts:     opts,
		logs:     make([]RequestLog, 0),
		notifyCh: make(chan struct{}, 100),
	}

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(opts.Logger.Handler(), slog.LevelWarn),
	}
	return s
}

// Handler returns the routed handler with request logging applied
func (s *Server) Handler() http.Handler {
	metadata := http.NewServeMux()
	metadata.HandleFunc("/api_detail", s.handleAPIDetail)
	metadata.HandleFunc("/endpoint_detail", s.handleEndpointDetail)
	metadata.HandleFunc("/apis", s.handleAPIs)
	metadata.HandleFunc("/api_endpoints", s.handleAPIEndpoints)
	metadata.HandleFunc("/healthz", s.handleHealthz)

	mux := http.NewServeMux()
	mux.HandleFunc(RequestsPath, s.handleRequests)
	mux.Handle("/", onlyGET(metadata))
	return s.withRequestLog(mux)
}

// Start binds the listen address and serves in a background goroutine.
// Bind errors are returned; use Stop for graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	s.listener = ln

	go func() {
		s.logger.Info("metadata server listening", "addr", ln.Addr().String(), "apis", s.catalog.Len())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metadata server error", "error", err)
		}
	}()
	return nil
}

// Run starts the server and blocks until ctx is done, then shuts down
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop(context.Background())
}

// Stop gracefully shuts down the server, waiting up to ShutdownTimeout
func (s *Server) Stop(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ShutdownTimeout)
	defer cancel()

	s.logger.Info("metadata server stopping")
	return s.httpServer.Shutdown(ctx)
}

// GetAddress returns the server base URL
func (s *Server) GetAddress() string {
	addr := s.opts.Addr
	if s.listener != nil {
		addr = s.listener.Addr().String()
	}
	return "http://" + addr
}

func (s *Server) handleAPIDetail(w http.ResponseWriter, r *http.Request) {
	apiID := r.URL.Query().Get("api_id")
	if apiID == "" {
		writeError(w, http.StatusBadRequest, "missing api_id parameter")
		return
	}

	desc, err := s.catalog.API(apiID)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

func (s *Server) handleEndpointDetail(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	methodName := query.Get("method_name")
	if methodName == "" {
		writeError(w, http.StatusBadRequest, "missing method_name parameter")
		return
	}

	ep, err := s.catalog.Resolve(methodName, query.Get("api_id"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ep)
}

func (s *Server) handleAPIs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.APIs())
}

func (s *Server) handleAPIEndpoints(w http.ResponseWriter, r *http.Request) {
	apiID := r.URL.Query().Get("api_id")
	if apiID == "" {
		writeError(w, http.StatusBadRequest, "missing api_id parameter")
		return
	}

	endpoints, err := s.catalog.Endpoints(apiID)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, endpoints)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRequests lists the request log on GET and clears it on DELETE
func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		writeJSON(w, http.StatusOK, s.GetLogs())
	case http.MethodDelete:
		s.ClearLogs()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, HEAD, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// onlyGET rejects every method except GET and HEAD
func onlyGET(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog assigns a request id, logs the request and keeps it in the
// in-memory request log. Requests to the log itself are not kept.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		} else if rec.status >= http.StatusBadRequest {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", rec.status,
			"duration", duration)

		if r.URL.Path == RequestsPath {
			return
		}
		s.logRequest(RequestLog{
			Timestamp: start,
			RequestID: requestID,
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			Status:    rec.status,
			Duration:  duration,
		})
	})
}

// logRequest adds a request to the log
func (s *Server) logRequest(entry RequestLog) {
	s.logsMutex.Lock()
	defer s.logsMutex.Unlock()

	s.seq++
	entry.Seq = s.seq
	s.logs = append(s.logs, entry)

	if len(s.logs) > maxLogs {
		s.logs = s.logs[len(s.logs)-maxLogs:]
	}

	// Notify listeners (non-blocking)
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// NotifyChannel returns the channel signalled after each logged request
func (s *Server) NotifyChannel() <-chan struct{} {
	return s.notifyCh
}

// GetLogs returns a copy of the logged requests
func (s *Server) GetLogs() []RequestLog {
	s.logsMutex.RLock()
	defer s.logsMutex.RUnlock()

	logs := make([]RequestLog, len(s.logs))
	copy(logs, s.logs)
	return logs
}

// LogsSince returns the logged requests with a sequence number above seq
func (s *Server) LogsSince(seq uint64) []RequestLog {
	s.logsMutex.RLock()
	defer s.logsMutex.RUnlock()

	i := sort.Search(len(s.logs), func(i int) bool { return s.logs[i].Seq > seq })
	logs := make([]RequestLog, len(s.logs)-i)
	copy(logs, s.logs[i:])
	return logs
}

// Tail calls fn, in order, for each request logged with a sequence number
// above since, until ctx is done. It consumes NotifyChannel.
func (s *Server) Tail(ctx context.Context, since uint64, fn func(RequestLog)) error {
	last := since
	for _, entry := range s.LogsSince(last) {
		fn(entry)
		last = entry.Seq
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.notifyCh:
			for _, entry := range s.LogsSince(last) {
				fn(entry)
				last = entry.Seq
			}
		}
	}
}

// ClearLogs clears all logged requests. Sequence numbers keep increasing.
func (s *Server) ClearLogs() {
	s.logsMutex.Lock()
	defer s.logsMutex.Unlock()

	s.logs = make([]RequestLog, 0)
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrAmbiguous):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, APIError{
		Error:     message,
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
