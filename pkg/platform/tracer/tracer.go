// Package tracer provides a lightweight tracing abstraction for the
// verification workflow.
//
// Callers depend on the Tracer interface instead of OpenTelemetry directly so
// tests can run with NoopTracer and production can plug in OTelTracer.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span; the returned context carries it to children.
	//
	// Example:
	//   ctx, span := t.Start(ctx, tracer.SpanRegistrySubmit,
	//       tracer.String(tracer.AttrRole, role.String()),
	//   )
	//   defer func() { span.End(err) }()
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanInboxAwait        = "inbox.await"
	SpanInboxFetch        = "inbox.fetch"
	SpanProofBind         = "proof.bind"
	SpanProofGenerate     = "proof.generate"
	SpanProofVerify       = "proof.verify"
	SpanRegistrySubmit    = "registry.submit"
	SpanRegistryRecon     = "registry.reconcile"
	SpanAdminProcess      = "admin.process"
	SpanSessionTransition = "session.transition"
)

// Attribute keys.
const (
	AttrCorrelationID = "correlation_id"
	AttrSessionID     = "session_id"
	AttrRequestID     = "request_id"
	AttrIdentity      = "identity"
	AttrRole          = "role"
	AttrDomain        = "domain"
	AttrProofID       = "proof_id"
	AttrAttempt       = "attempt"
	AttrState         = "state"
	AttrDecision      = "decision"
	AttrReconciled    = "reconciled"
)
