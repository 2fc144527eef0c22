package proof

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"onboard/internal/proof/metrics"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/privacy"
	"onboard/pkg/platform/sentinel"
	"onboard/pkg/platform/tracer"
)

// Binder parses a collected email, commits to the sender address and asks
// the prover for a proof over identity and domain.
type Binder struct {
	prover        Prover
	commitmentKey []byte
	metrics       *metrics.Metrics
	logger        *slog.Logger
	tracer        tracer.Tracer
}

type Option func(*Binder)

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Binder) {
		b.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) {
		b.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(b *Binder) {
		b.tracer = t
	}
}

// NewBinder fails if commitmentKey is longer than a BLAKE2b key may be.
func NewBinder(prover Prover, commitmentKey []byte, opts ...Option) (*Binder, error) {
	if prover == nil {
		return nil, errors.New("prover is required")
	}
	if len(commitmentKey) > blake2b.Size {
		return nil, fmt.Errorf("commitment key must be at most %d bytes", blake2b.Size)
	}
	b := &Binder{
		prover:        prover,
		commitmentKey: append([]byte(nil), commitmentKey...),
		logger:        slog.Default(),
		tracer:        tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Commit derives the keyed commitment for an email address. The address is
// lowercased first so the same mailbox always commits to the same value.
func (b *Binder) Commit(address string) id.Commitment {
	h, err := blake2b.New256(b.commitmentKey)
	if err != nil {
		// key length is checked in NewBinder
		panic(err)
	}
	h.Write([]byte(strings.ToLower(strings.TrimSpace(address))))
	var c id.Commitment
	copy(c[:], h.Sum(nil))
	return c
}

// Bind turns a raw verification email into a proof and registration payload.
// claimedDomain is empty for patients; for organizations it must equal the
// sender's domain, compared case-insensitively.
func (b *Binder) Bind(ctx context.Context, raw []byte, identity id.Identity, claimedDomain string) (bound *Bound, err error) {
	ctx, span := b.tracer.Start(ctx, tracer.SpanProofBind,
		tracer.String(tracer.AttrIdentity, identity.String()),
	)
	defer func() { span.End(err) }()
	defer func() { b.observe(err) }()

	if identity.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}

	parsed, err := ParseEmail(raw)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "verification email could not be parsed")
	}

	if claimedDomain != "" && !strings.EqualFold(strings.TrimSuffix(strings.TrimSpace(claimedDomain), "."), parsed.Domain) {
		b.logger.InfoContext(ctx, "sender domain differs from claimed domain",
			"identity", identity.String(),
			"claimed_domain", claimedDomain,
			"sender_domain", parsed.Domain,
			"sender", privacy.MaskEmail(parsed.From),
		)
		return nil, dErrors.Wrap(ErrDomainMismatch, dErrors.CodeValidation, "email was not sent from the claimed domain")
	}

	commitment := b.Commit(parsed.From)

	p, err := b.generate(ctx, raw, identity, parsed.Domain)
	if err != nil {
		return nil, err
	}

	b.logger.InfoContext(ctx, "proof generated",
		"identity", identity.String(),
		"domain", parsed.Domain,
		"email_commitment", commitment.Hex(),
		"proof_id", p.ID().Hex(),
	)

	return &Bound{
		Proof: *p,
		Payload: Payload{
			Identity:        identity,
			Domain:          parsed.Domain,
			EmailCommitment: commitment,
		},
	}, nil
}

func (b *Binder) generate(ctx context.Context, raw []byte, identity id.Identity, domain string) (p *Proof, err error) {
	ctx, span := b.tracer.Start(ctx, tracer.SpanProofGenerate,
		tracer.String(tracer.AttrDomain, domain),
	)
	defer func() { span.End(err) }()

	start := time.Now()
	p, err = b.prover.GenerateProof(ctx, raw, identity, domain, commitment)
	if b.metrics != nil {
		b.metrics.ObserveGenerate(time.Since(start).Seconds())
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		b.logger.WarnContext(ctx, "proof generation failed",
			"identity", identity.String(),
			"domain", domain,
			"error", err,
		)
		code := dErrors.CodeProofRejected
		if errors.Is(err, sentinel.ErrUnavailable) {
			code = dErrors.CodeBadGateway
		}
		return nil, dErrors.Wrap(fmt.Errorf("%w: %w", ErrGenerationFailed, err), code, "proof generation failed")
	}
	if p == nil || p.IsEmpty() {
		return nil, dErrors.Wrap(fmt.Errorf("%w: empty proof", ErrGenerationFailed), dErrors.CodeProofRejected, "proof generation failed")
	}
	return p, nil
}

func (b *Binder) observe(err error) {
	if b.metrics == nil {
		return
	}
	b.metrics.IncBind(outcomeOf(err))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeBound
	case errors.Is(err, ErrMalformedEmail):
		return metrics.OutcomeMalformed
	case errors.Is(err, ErrDomainMismatch):
		return metrics.OutcomeDomainMismatch
	case errors.Is(err, ErrGenerationFailed):
		return metrics.OutcomeGenerationFailed
	default:
		return metrics.OutcomeError
	}
}
