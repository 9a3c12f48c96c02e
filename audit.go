package authcore

import (
	"io"

	"github.com/softprint/authcore/internal/audit"
)

// AuditEvent is one recorded authentication event.
type AuditEvent = audit.Event

// AuditSink consumes audit events emitted by the service.
type AuditSink = audit.Sink

// NewNoOpAuditSink returns a sink that discards every event.
func NewNoOpAuditSink() AuditSink {
	return audit.NoOpSink{}
}

// NewChannelAuditSink returns a sink backed by a buffered channel;
// consume events through its Events method.
func NewChannelAuditSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterAuditSink returns a sink that writes one JSON line per
// event to w.
func NewJSONWriterAuditSink(w io.Writer) AuditSink {
	return audit.NewJSONWriterSink(w)
}
