// Package tracer is a small tracing abstraction so integrity components can
// emit spans without importing OpenTelemetry directly.
//
// Implementations:
//   - NoopTracer: tests and clients without a collector
//   - OTelTracer: OpenTelemetry adapter
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span. End must be called exactly once.
type Span interface {
	// End completes the span; a non-nil err marks it failed.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanReportEvent  = "integrity.report"
	SpanRecordEvent  = "integrity.record"
	SpanListRecent   = "integrity.list_recent"
	SpanPublishEvent = "integrity.stream.publish"
)

// Attribute keys.
const (
	AttrExamID    = "exam.id"
	AttrEventType = "integrity.event_type"
	AttrExamCount = "exam.count"
	AttrResults   = "result.count"
)
