// Package audit records authentication lifecycle events and delivers
// them to pluggable sinks off the request path.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// EventType names one auth lifecycle event. The set is closed: every
// emit site uses one of these constants, so sinks can switch on the
// value without string guessing.
type EventType string

const (
	EventSignUpSuccess           EventType = "signup_success"
	EventSignUpFailure           EventType = "signup_failure"
	EventSignUpRateLimited       EventType = "signup_rate_limited"
	EventSignUpNeedsVerification EventType = "signup_needs_verification"
	EventSignInSuccess           EventType = "signin_success"
	EventSignInFailure           EventType = "signin_failure"
	EventSignOut                 EventType = "signout"
	EventRefreshSuccess          EventType = "refresh_success"
	EventRefreshFailure          EventType = "refresh_failure"
	EventSessionRestored         EventType = "session_restored"
	EventProfileCreated          EventType = "profile_created"
	EventProfileCreationFailed   EventType = "profile_creation_failed"
	EventProfileUpdated          EventType = "profile_updated"
	EventPasswordResetRequest    EventType = "password_reset_request"
	EventPasswordResetSuccess    EventType = "password_reset_success"
	EventPasswordResetFailure    EventType = "password_reset_failure"
	EventVerificationResent      EventType = "verification_resent"
	EventVerificationCompleted   EventType = "verification_completed"
)

// Event is one recorded authentication event. Error carries a canonical
// taxonomy code, never raw diagnostic text.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType EventType         `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Email     string            `json:"email,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
