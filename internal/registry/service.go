package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"onboard/internal/proof"
	"onboard/internal/registry/metrics"
	"onboard/internal/registry/models"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/sentinel"
	"onboard/pkg/platform/tracer"
)

const (
	// DefaultSubmitTimeout is roughly one block confirmation.
	DefaultSubmitTimeout = 15 * time.Second
	reconcileTimeout     = 5 * time.Second
)

// Service is the registry client used by sessions and the admin queue.
type Service struct {
	ledger        Ledger
	submitTimeout time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger
	tracer        tracer.Tracer
}

type Option func(*Service)

// WithSubmitTimeout bounds each write. Non-positive values are ignored.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.submitTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(ledger Ledger, opts ...Option) *Service {
	s := &Service{
		ledger:        ledger,
		submitTimeout: DefaultSubmitTimeout,
		logger:        slog.Default(),
		tracer:        tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit registers payload.Identity under role, consuming p.
func (s *Service) Submit(ctx context.Context, p proof.Proof, payload proof.Payload, role id.Role) (*models.Receipt, error) {
	return s.submit(ctx, models.Registration{Proof: p, Payload: payload}, role)
}

// SubmitForRequest registers on a requester's behalf after admin approval.
// The request id is stored on the record as its origin.
func (s *Service) SubmitForRequest(ctx context.Context, requestID id.RequestID, p proof.Proof, payload proof.Payload, role id.Role) (*models.Receipt, error) {
	return s.submit(ctx, models.Registration{Proof: p, Payload: payload, OriginatingRequestID: &requestID}, role)
}

func (s *Service) submit(ctx context.Context, reg models.Registration, role id.Role) (receipt *models.Receipt, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRegistrySubmit,
		tracer.String(tracer.AttrIdentity, reg.Payload.Identity.String()),
		tracer.String(tracer.AttrRole, role.String()),
		tracer.String(tracer.AttrProofID, reg.Proof.ID().Hex()),
	)
	defer func() { span.End(err) }()

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveSubmit(role.String(), outcomeOf(err), time.Since(start).Seconds())
		}
	}()

	if err := validateRegistration(reg, role); err != nil {
		return nil, err
	}

	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.submitTimeout)
	defer cancel()

	receipt, err = s.dispatch(submitCtx, reg, role)
	if err == nil {
		s.logger.InfoContext(ctx, "registration submitted",
			"identity", reg.Payload.Identity.String(),
			"role", role.String(),
			"proof_id", receipt.ProofID.Hex(),
		)
		return receipt, nil
	}

	if submitCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "registration outcome unknown, reconciling",
			"identity", reg.Payload.Identity.String(),
			"role", role.String(),
			"error", err,
		)
		return s.reconcile(ctx, reg, role)
	}

	return nil, s.translate(err)
}

// dispatch is the only place a Role selects a ledger write.
func (s *Service) dispatch(ctx context.Context, reg models.Registration, role id.Role) (*models.Receipt, error) {
	switch role {
	case id.RolePatient:
		return s.ledger.RegisterPatient(ctx, reg)
	case id.RoleHospital:
		return s.ledger.RegisterHospital(ctx, reg)
	case id.RoleInsurer:
		return s.ledger.RegisterInsurer(ctx, reg)
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unsupported role %d", role))
	}
}

// reconcile reads the registry back after a timed-out write. The write
// landed only if this proof is consumed and the identity holds the role.
// It never resubmits.
func (s *Service) reconcile(ctx context.Context, reg models.Registration, role id.Role) (receipt *models.Receipt, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reconcileTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, tracer.SpanRegistryRecon,
		tracer.String(tracer.AttrIdentity, reg.Payload.Identity.String()),
	)
	defer func() { span.End(err) }()

	record, readErr := s.ledger.GetRecord(ctx, reg.Payload.Identity)
	if readErr == nil {
		var consumed bool
		consumed, readErr = s.ledger.IsProofConsumed(ctx, reg.Proof.ID())
		if readErr == nil && !consumed {
			// The identity holds a record this proof did not create, so the
			// write cannot land.
			if s.metrics != nil {
				s.metrics.IncReconciliation(false)
			}
			s.logger.WarnContext(ctx, "timed out submission found an earlier record",
				"identity", reg.Payload.Identity.String(),
				"proof_id", reg.Proof.ID().Hex(),
			)
			return nil, s.translate(ErrDuplicateIdentity)
		}
	}
	reconciled := readErr == nil && record.Role == role && record.IsActive
	if s.metrics != nil {
		s.metrics.IncReconciliation(reconciled)
	}
	if !reconciled {
		if readErr != nil && !errors.Is(readErr, sentinel.ErrNotFound) {
			s.logger.ErrorContext(ctx, "reconciliation read failed",
				"identity", reg.Payload.Identity.String(),
				"error", readErr,
			)
		}
		return nil, dErrors.Wrap(ErrUnknownOutcome, dErrors.CodeUnknownOutcome,
			"registration outcome unknown; check the registry before retrying")
	}

	s.logger.InfoContext(ctx, "registration reconciled",
		"identity", reg.Payload.Identity.String(),
		"role", role.String(),
	)
	return &models.Receipt{
		Identity:             record.Identity,
		Role:                 record.Role,
		ProofID:              reg.Proof.ID(),
		RegisteredAt:         record.RegisteredAt,
		Reconciled:           true,
		OriginatingRequestID: record.OriginatingRequestID,
	}, nil
}

// GetRole returns the role of the identity's active record, or zero when it
// has none.
func (s *Service) GetRole(ctx context.Context, identity id.Identity) (id.Role, error) {
	record, err := s.ledger.GetRecord(ctx, identity)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, nil
		}
		return 0, s.translate(err)
	}
	if !record.IsActive {
		return 0, nil
	}
	return record.Role, nil
}

// GetRecord returns the identity's record whether or not it is active.
func (s *Service) GetRecord(ctx context.Context, identity id.Identity) (*models.BaseRecord, error) {
	record, err := s.ledger.GetRecord(ctx, identity)
	if err != nil {
		return nil, s.translate(err)
	}
	return record, nil
}

func (s *Service) GetOrganizationRecord(ctx context.Context, identity id.Identity) (*models.OrganizationRecord, error) {
	record, err := s.ledger.GetOrganizationRecord(ctx, identity)
	if err != nil {
		return nil, s.translate(err)
	}
	return record, nil
}

func (s *Service) IsDomainTaken(ctx context.Context, domain string) (bool, error) {
	normalized, err := id.ParseDomain(domain)
	if err != nil {
		return false, err
	}
	taken, err := s.ledger.IsDomainTaken(ctx, normalized)
	if err != nil {
		return false, s.translate(err)
	}
	return taken, nil
}

func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	stats, err := s.ledger.Stats(ctx)
	if err != nil {
		return nil, s.translate(err)
	}
	return stats, nil
}

// SetActive deactivates or reactivates a record. Records are never deleted.
func (s *Service) SetActive(ctx context.Context, identity id.Identity, active bool) error {
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	if err := s.ledger.SetActive(ctx, identity, active); err != nil {
		return s.translate(err)
	}
	s.logger.InfoContext(ctx, "registry record activation changed",
		"identity", identity.String(),
		"active", active,
	)
	return nil
}

func validateRegistration(reg models.Registration, role id.Role) error {
	if !role.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
	if reg.Payload.Identity.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	if reg.Proof.IsEmpty() {
		return dErrors.New(dErrors.CodeInvalidInput, "proof is required")
	}
	if reg.Payload.EmailCommitment.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "email commitment is required")
	}
	if role.IsOrganization() {
		if strings.TrimSpace(reg.Payload.OrganizationName) == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "organization name is required")
		}
		if _, err := id.ParseDomain(reg.Payload.Domain); err != nil {
			return err
		}
	}
	return nil
}

// translate maps ledger errors to domain errors exactly once.
func (s *Service) translate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "record not found")
	case errors.Is(err, ErrDuplicateIdentity):
		return dErrors.Wrap(err, dErrors.CodeConflict, "identity is already registered")
	case errors.Is(err, ErrDomainTaken):
		return dErrors.Wrap(err, dErrors.CodeConflict, "domain is already registered to another organization")
	case errors.Is(err, ErrProofConsumed):
		return dErrors.Wrap(err, dErrors.CodeConflict, "proof has already been used")
	case errors.Is(err, ErrProofRejected):
		return dErrors.Wrap(err, dErrors.CodeProofRejected, "proof was rejected by the registry")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeBadGateway, "registry unavailable")
	case errors.Is(err, sentinel.ErrInvalidInput):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid registration")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry operation failed")
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeRegistered
	case errors.Is(err, ErrDuplicateIdentity):
		return metrics.OutcomeDuplicateIdentity
	case errors.Is(err, ErrDomainTaken):
		return metrics.OutcomeDomainTaken
	case errors.Is(err, ErrProofConsumed):
		return metrics.OutcomeProofConsumed
	case errors.Is(err, ErrProofRejected):
		return metrics.OutcomeProofRejected
	case errors.Is(err, ErrUnknownOutcome):
		return metrics.OutcomeUnknown
	default:
		return metrics.OutcomeError
	}
}
