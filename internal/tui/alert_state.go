package tui

import "sync"

// AlertState queues blocking notifications. It is the Notifier of the
// selection handler, which calls it from command goroutines.
type AlertState struct {
	mu     sync.RWMutex
	alerts []string
}

// NewAlertState creates an empty alert queue
func NewAlertState() *AlertState {
	return &AlertState{alerts: []string{}}
}

// Notify queues message for display
func (s *AlertState) Notify(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, message)
}

// Current returns the alert on screen, if any
func (s *AlertState) Current() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.alerts) == 0 {
		return "", false
	}
	return s.alerts[0], true
}

// Dismiss removes the alert on screen
func (s *AlertState) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.alerts) > 0 {
		s.alerts = s.alerts[1:]
	}
}

// Len returns the number of queued alerts
func (s *AlertState) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}
