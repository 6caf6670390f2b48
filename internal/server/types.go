package server

import "time"

// RequestIDHeader carries the id assigned to every request
const RequestIDHeader = "X-Request-Id"

// RequestsPath serves the in-memory request log
const RequestsPath = "/requests"

// RequestLog represents a logged request
type RequestLog struct {
	Seq       uint64        `json:"seq"` // Increases by one per logged request
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"requestId"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Query     string        `json:"query,omitempty"`
	Status    int           `json:"status"`
	Duration  time.Duration `json:"duration"`
}

// APIError is the body of every non-200 response
type APIError struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}
