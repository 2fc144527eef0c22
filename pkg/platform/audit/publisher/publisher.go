package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	audit "onboard/pkg/platform/audit"
	"onboard/pkg/platform/audit/outbox"
	"onboard/pkg/requestcontext"
)

// Publisher captures structured audit events. It is append-only: every event
// is written as a text log line and appended to the outbox, from which the
// worker publishes it.
type Publisher struct {
	store  outbox.Store
	logger *slog.Logger
	now    func() time.Time
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithPublisherLogger sets the logger used for the text audit trail.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(store outbox.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit stamps, logs and appends the event. The request id from ctx is used
// when the event does not carry one.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if p.logger != nil {
		p.logger.InfoContext(ctx, event.Action,
			"log_type", "audit",
			"actor", event.Actor,
			"subject", event.Subject,
			"session_id", event.SessionID,
			"admin_request_id", event.AdminRequestID,
			"decision", event.Decision,
			"request_id", event.RequestID,
		)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	aggType, aggID := event.Aggregate()
	category := audit.AuditEvent(event.Action).Category()
	entry := outbox.NewEntry(aggType, aggID, event.Action, string(category), payload)
	if err := p.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
