package credstore

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/rpgjournals/credstore/internal/audit"
)

// AuditEvent is one credential-flow outcome delivered to an AuditSink.
type AuditEvent = audit.Event

// AuditSink receives emitted audit events. Sinks are called from the
// dispatcher goroutine, never from the request path.
type AuditSink = audit.Sink

type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	LogrusSink     = audit.LogrusSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func NewLogrusSink(l logrus.FieldLogger) *LogrusSink {
	return audit.NewLogrusSink(l)
}
