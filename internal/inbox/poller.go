// Package inbox waits for the verification email that closes the loop on a
// registration session. Mail is addressed to a per-session correlation
// mailbox; the poller fetches it from the mail service on a fixed schedule.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"onboard/internal/inbox/metrics"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/sentinel"
	"onboard/pkg/platform/tracer"
)

var (
	// ErrNotArrived means the retry budget ran out before any message arrived.
	ErrNotArrived = errors.New("verification email not arrived")
	// ErrFetchFailed means the mail service failed for a reason other than "not yet".
	ErrFetchFailed = errors.New("mail service fetch failed")
)

// deadlineSlack is added to attempts × interval to bound the whole call.
const deadlineSlack = 5 * time.Second

// RetryPolicy is a fixed-interval schedule with no backoff growth.
type RetryPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultRetryPolicy polls every 10s, six times.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Interval: 10 * time.Second, MaxAttempts: 6}
}

// Deadline is the wall-clock bound for one AwaitEmail call.
func (p RetryPolicy) Deadline() time.Duration {
	return time.Duration(p.MaxAttempts)*p.Interval + deadlineSlack
}

// Email is a raw RFC 5322 message delivered to a correlation mailbox.
type Email struct {
	CorrelationID id.CorrelationID
	Raw           []byte
	ReceivedAt    time.Time
}

// Fetcher reads the message stored for a correlation id.
// It returns sentinel.ErrNotFound while nothing has arrived.
type Fetcher interface {
	Fetch(ctx context.Context, correlationID id.CorrelationID) ([]byte, error)
}

// ClaimStore pins the first message observed for a correlation id.
// Claim stores raw only if nothing is stored yet and returns the stored message.
type ClaimStore interface {
	Claim(ctx context.Context, correlationID id.CorrelationID, raw []byte) ([]byte, error)
	Forget(ctx context.Context, correlationID id.CorrelationID) error
}

// Poller implements AwaitEmail on top of a Fetcher.
type Poller struct {
	fetcher Fetcher
	claims  ClaimStore
	policy  RetryPolicy
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  tracer.Tracer
	now     func() time.Time
}

type Option func(*Poller)

// WithPolicy overrides the default retry schedule. Non-positive fields are ignored.
func WithPolicy(p RetryPolicy) Option {
	return func(pl *Poller) {
		if p.Interval > 0 {
			pl.policy.Interval = p.Interval
		}
		if p.MaxAttempts > 0 {
			pl.policy.MaxAttempts = p.MaxAttempts
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) {
		p.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(p *Poller) {
		p.tracer = t
	}
}

func New(fetcher Fetcher, claims ClaimStore, opts ...Option) *Poller {
	p := &Poller{
		fetcher: fetcher,
		claims:  claims,
		policy:  DefaultRetryPolicy(),
		tracer:  tracer.NewNoop(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Policy returns the effective retry schedule.
func (p *Poller) Policy() RetryPolicy {
	return p.policy
}

// AwaitEmail polls the correlation mailbox until a message arrives, the
// attempts are exhausted (ErrNotArrived), the mail service fails hard
// (ErrFetchFailed), or ctx is cancelled (ctx.Err(), unwrapped).
// There is no wait after the final attempt.
func (p *Poller) AwaitEmail(ctx context.Context, correlationID id.CorrelationID) (email *Email, err error) {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, p.policy.Deadline())
	defer cancel()

	ctx, span := p.tracer.Start(ctx, tracer.SpanInboxAwait,
		tracer.String(tracer.AttrCorrelationID, correlationID.String()),
	)
	defer func() { span.End(err) }()

	start := p.now()
	defer func() {
		p.observe(outcomeOf(err), p.now().Sub(start))
	}()

	for attempt := 1; ; attempt++ {
		if p.metrics != nil {
			p.metrics.IncAttempt()
		}
		raw, fetchErr := p.fetchOnce(ctx, correlationID, attempt)
		switch {
		case fetchErr == nil:
			return p.claim(ctx, correlationID, raw)
		case errors.Is(fetchErr, sentinel.ErrNotFound):
			p.logger.DebugContext(ctx, "verification email not yet arrived",
				"correlation_id", correlationID.String(),
				"attempt", attempt,
			)
		case ctx.Err() != nil:
			return nil, p.stopped(parent)
		default:
			p.logger.WarnContext(ctx, "mail service fetch failed",
				"correlation_id", correlationID.String(),
				"attempt", attempt,
				"error", fetchErr,
			)
			return nil, dErrors.Wrap(fmt.Errorf("%w: %w", ErrFetchFailed, fetchErr), dErrors.CodeBadGateway, "mail service unavailable")
		}

		if attempt >= p.policy.MaxAttempts {
			return nil, dErrors.Wrap(ErrNotArrived, dErrors.CodeNotArrived, "verification email did not arrive in time")
		}

		timer := time.NewTimer(p.policy.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, p.stopped(parent)
		case <-timer.C:
		}
	}
}

func (p *Poller) fetchOnce(ctx context.Context, correlationID id.CorrelationID, attempt int) (raw []byte, err error) {
	ctx, span := p.tracer.Start(ctx, tracer.SpanInboxFetch,
		tracer.Int64(tracer.AttrAttempt, int64(attempt)),
	)
	defer func() {
		if errors.Is(err, sentinel.ErrNotFound) {
			span.End(nil)
			return
		}
		span.End(err)
	}()
	return p.fetcher.Fetch(ctx, correlationID)
}

// claim records the fetched message; a message claimed earlier wins.
func (p *Poller) claim(ctx context.Context, correlationID id.CorrelationID, raw []byte) (*Email, error) {
	stored, err := p.claims.Claim(ctx, correlationID, raw)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record verification email")
	}
	return &Email{
		CorrelationID: correlationID,
		Raw:           stored,
		ReceivedAt:    p.now(),
	}, nil
}

// Release drops the claim for a correlation id whose session has ended.
func (p *Poller) Release(ctx context.Context, correlationID id.CorrelationID) error {
	if err := p.claims.Forget(ctx, correlationID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release inbox claim")
	}
	return nil
}

// stopped distinguishes caller cancellation from the poller's own deadline.
func (p *Poller) stopped(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return dErrors.Wrap(ErrNotArrived, dErrors.CodeNotArrived, "verification email did not arrive in time")
}

func (p *Poller) observe(outcome string, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.IncOutcome(outcome)
	p.metrics.ObserveWait(outcome, elapsed.Seconds())
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeArrived
	case errors.Is(err, ErrNotArrived):
		return metrics.OutcomeNotArrived
	case errors.Is(err, ErrFetchFailed):
		return metrics.OutcomeFetchFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeError
	}
}
