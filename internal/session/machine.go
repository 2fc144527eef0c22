package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"onboard/internal/proof"
	"onboard/internal/session/metrics"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/audit"
	"onboard/pkg/platform/tracer"
)

// Deps are the collaborators that drive the blocking steps.
// Queue is only required when some role needs approval.
type Deps struct {
	Inbox    Inbox
	Binder   Binder
	Registry Registry
	Queue    ApprovalQueue
}

// Config is the per-deployment registration policy.
type Config struct {
	// InboxDomain is the host part of every correlation mailbox.
	InboxDomain string
	// ApprovalRoles are filed with the admin queue instead of the registry.
	ApprovalRoles []id.Role
}

func (c Config) requiresApproval(role id.Role) bool {
	return slices.Contains(c.ApprovalRoles, role)
}

// env is shared by every machine a Service creates.
type env struct {
	deps    Deps
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  tracer.Tracer
	auditor audit.Emitter
	now     func() time.Time
}

type Option func(*env)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *env) {
		e.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *env) {
		e.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(e *env) {
		e.tracer = t
	}
}

func WithAuditor(a audit.Emitter) Option {
	return func(e *env) {
		e.auditor = a
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *env) {
		e.now = now
	}
}

func newEnv(deps Deps, cfg Config, opts ...Option) *env {
	e := &env{
		deps:   deps,
		cfg:    cfg,
		logger: slog.Default(),
		tracer: tracer.NewNoop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Machine is one registration session. Steps run one at a time; a step
// called while another is running fails with ErrBusy and changes nothing.
type Machine struct {
	mu     sync.Mutex
	s      *Session
	env    *env
	busy   bool
	cancel context.CancelFunc
}

// NewMachine starts a session in ROLE_SELECTION for identity. A zero
// identity is accepted here and rejected by SelectRole.
func NewMachine(identity id.Identity, deps Deps, cfg Config, opts ...Option) *Machine {
	return newMachine(identity, newEnv(deps, cfg, opts...))
}

func newMachine(identity id.Identity, e *env) *Machine {
	now := e.now()
	return &Machine{
		env: e,
		s: &Session{
			ID:        id.NewSessionID(),
			Identity:  identity,
			State:     StateRoleSelection,
			History:   []State{StateRoleSelection},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// Snapshot returns a copy of the session.
func (m *Machine) Snapshot() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.clone()
}

func (m *Machine) ID() id.SessionID {
	return m.s.ID
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.State
}

// SelectRole picks the participant role. Organizations continue to DETAILS;
// patients go straight to EMAIL_SENT and must give the address they will
// send from.
func (m *Machine) SelectRole(ctx context.Context, role id.Role, email string) (*Instructions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLocked(StateRoleSelection); err != nil {
		return nil, err
	}
	if m.s.Identity.IsZero() {
		return nil, dErrors.Wrap(ErrWalletNotConnected, dErrors.CodeInvalidInput, "connect a wallet before selecting a role")
	}

	switch role {
	case id.RolePatient:
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			return nil, dErrors.Wrap(ErrEmailRequired, dErrors.CodeInvalidInput, "patients must give the email address they will send from")
		}
		if !proof.ValidAddress(email) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "email must be a plain address like name@example.org")
		}
		m.s.Role = role
		m.s.Email = email
		return m.enterEmailSentLocked(ctx)
	case id.RoleHospital, id.RoleInsurer:
		m.s.Role = role
		if err := m.transitionLocked(ctx, StateDetails); err != nil {
			return nil, err
		}
		return nil, nil
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
}

// SubmitDetails records the organization name and optional claimed domain.
func (m *Machine) SubmitDetails(ctx context.Context, organizationName, domain string) (*Instructions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLocked(StateDetails); err != nil {
		return nil, err
	}
	organizationName = strings.Join(strings.Fields(organizationName), " ")
	if organizationName == "" {
		return nil, dErrors.Wrap(ErrOrganizationNameRequired, dErrors.CodeInvalidInput, "organization name is required")
	}
	if strings.TrimSpace(domain) != "" {
		normalized, err := id.ParseDomain(domain)
		if err != nil {
			return nil, err
		}
		domain = normalized
	}

	m.s.OrganizationName = organizationName
	m.s.Domain = domain
	return m.enterEmailSentLocked(ctx)
}

// enterEmailSentLocked allocates the single-use correlation mailbox and the
// subject the participant must use.
func (m *Machine) enterEmailSentLocked(ctx context.Context) (*Instructions, error) {
	var subject string
	switch m.s.Role {
	case id.RolePatient:
		subject = fmt.Sprintf("REGISTER %s %s %s", m.s.Role, m.s.Email, m.s.Identity)
	case id.RoleHospital, id.RoleInsurer:
		subject = fmt.Sprintf("REGISTER %s %s %s", m.s.Role, m.s.OrganizationName, m.s.Identity)
	default:
		return nil, dErrors.New(dErrors.CodeInternal, "session has no role")
	}

	correlationID := id.NewCorrelationID()
	if err := m.transitionLocked(ctx, StateEmailSent); err != nil {
		return nil, err
	}
	m.s.CorrelationID = &correlationID
	m.s.Mailbox = correlationID.String() + "@" + m.env.cfg.InboxDomain
	m.s.Subject = subject

	m.env.logger.InfoContext(ctx, "verification email requested",
		"session_id", m.s.ID.String(),
		"correlation_id", correlationID.String(),
		"identity", m.s.Identity.String(),
		"role", m.s.Role.String(),
	)
	m.emitLocked(ctx, audit.EventRegistrationStarted)
	return m.s.Instructions(), nil
}

// AwaitEmail blocks until the verification email arrives. Cancelling ctx or
// calling Cancel stops the wait and leaves the session in EMAIL_SENT.
func (m *Machine) AwaitEmail(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := m.begin(StateEmailSent, cancel); err != nil {
		return err
	}
	defer m.end()
	defer m.observeStep("await_email", m.env.now())

	ctx, span := m.env.tracer.Start(ctx, tracer.SpanSessionTransition,
		tracer.String(tracer.AttrSessionID, m.s.ID.String()),
		tracer.String(tracer.AttrState, string(StateEmailCollected)),
	)
	defer func() { span.End(err) }()

	email, err := m.env.deps.Inbox.AwaitEmail(ctx, *m.s.CorrelationID)
	if err != nil {
		if isCancellation(err) {
			m.env.logger.InfoContext(ctx, "stopped waiting for verification email",
				"session_id", m.s.ID.String(),
				"correlation_id", m.s.CorrelationID.String(),
			)
			return dErrors.Wrap(err, dErrors.CodeTimeout, "stopped waiting for the verification email")
		}
		return m.fail(ctx, err)
	}
	if err := m.checkEmail(email.Raw); err != nil {
		return m.fail(ctx, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.Collected = email
	if err := m.transitionLocked(ctx, StateEmailCollected); err != nil {
		return err
	}
	m.emitLocked(ctx, audit.EventEmailCollected)
	return nil
}

// checkEmail matches the collected message against the subject handed out
// and, for patients, the sender address they declared.
func (m *Machine) checkEmail(raw []byte) error {
	parsed, err := proof.ParseEmail(raw)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "verification email could not be parsed")
	}
	if !strings.EqualFold(normalizeSpace(parsed.Subject), normalizeSpace(m.s.Subject)) {
		return dErrors.Wrap(ErrSubjectMismatch, dErrors.CodeValidation, "verification email subject does not match")
	}
	if m.s.Role == id.RolePatient && !strings.EqualFold(parsed.From, m.s.Email) {
		return dErrors.Wrap(ErrSenderMismatch, dErrors.CodeValidation, "verification email came from another address")
	}
	return nil
}

// GenerateProof binds the collected email to the identity and, for
// organizations, the claimed domain.
func (m *Machine) GenerateProof(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := m.begin(StateEmailCollected, cancel); err != nil {
		return err
	}
	defer m.end()
	defer m.observeStep("generate_proof", m.env.now())

	ctx, span := m.env.tracer.Start(ctx, tracer.SpanSessionTransition,
		tracer.String(tracer.AttrSessionID, m.s.ID.String()),
		tracer.String(tracer.AttrState, string(StateProofGenerated)),
	)
	defer func() { span.End(err) }()

	var claimed string
	if m.s.Role.IsOrganization() {
		claimed = m.s.Domain
	}
	bound, err := m.env.deps.Binder.Bind(ctx, m.s.Collected.Raw, m.s.Identity, claimed)
	if err != nil {
		if isCancellation(err) {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "proof generation was cancelled")
		}
		return m.fail(ctx, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.Role.IsOrganization() {
		bound.Payload.OrganizationName = m.s.OrganizationName
		m.s.Domain = bound.Payload.Domain
	}
	proofID := bound.Proof.ID()
	m.s.Bound = bound
	m.s.ProofID = &proofID
	if err := m.transitionLocked(ctx, StateProofGenerated); err != nil {
		return err
	}
	m.emitLocked(ctx, audit.EventProofGenerated)
	return nil
}

// Submit hands the bound proof to the registry, or files it with the admin
// queue when the role needs approval. SUBMITTED lasts only while that call
// is outstanding.
func (m *Machine) Submit(ctx context.Context) (err error) {
	// Once issued, a submission runs to completion: neither Cancel nor the
	// caller going away reaches the registry. Its own timeout bounds it.
	if err := m.begin(StateProofGenerated, nil); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	defer m.end()
	defer m.observeStep("submit", m.env.now())

	ctx, span := m.env.tracer.Start(ctx, tracer.SpanSessionTransition,
		tracer.String(tracer.AttrSessionID, m.s.ID.String()),
		tracer.String(tracer.AttrState, string(StateSubmitted)),
		tracer.String(tracer.AttrRole, m.s.Role.String()),
	)
	defer func() { span.End(err) }()

	m.mu.Lock()
	if err := m.transitionLocked(ctx, StateSubmitted); err != nil {
		m.mu.Unlock()
		return err
	}
	m.emitLocked(ctx, audit.EventRegistrationSubmitted)
	m.mu.Unlock()

	if m.env.cfg.requiresApproval(m.s.Role) {
		return m.fileForApproval(ctx)
	}

	receipt, err := m.env.deps.Registry.Submit(ctx, m.s.Bound.Proof, m.s.Bound.Payload, m.s.Role)
	if err != nil {
		return m.fail(ctx, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.Receipt = receipt
	m.s.Outcome = OutcomeRegistered
	if err := m.transitionLocked(ctx, StateComplete); err != nil {
		return err
	}
	if receipt.Reconciled {
		m.emitLocked(ctx, audit.EventRegistrationReconciled)
	} else {
		m.emitLocked(ctx, audit.EventRegistrationCompleted)
	}
	return nil
}

func (m *Machine) fileForApproval(ctx context.Context) error {
	queue := m.env.deps.Queue
	if queue == nil {
		return m.fail(ctx, dErrors.New(dErrors.CodeInternal, "approval queue is not configured"))
	}

	var (
		requestID id.RequestID
		err       error
	)
	switch m.s.Role {
	case id.RolePatient:
		req, qerr := queue.SubmitPatientRequest(ctx, m.s.Identity, *m.s.Bound)
		if req != nil {
			requestID = req.ID
		}
		err = qerr
	case id.RoleHospital, id.RoleInsurer:
		req, qerr := queue.SubmitOrganizationRequest(ctx, m.s.Identity, m.s.Role, *m.s.Bound)
		if req != nil {
			requestID = req.ID
		}
		err = qerr
	default:
		err = dErrors.New(dErrors.CodeInternal, "session has no role")
	}
	if err != nil {
		return m.fail(ctx, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.RequestID = &requestID
	m.s.Outcome = OutcomePendingApproval
	if err := m.transitionLocked(ctx, StateComplete); err != nil {
		return err
	}
	m.env.logger.InfoContext(ctx, "registration filed for approval",
		"session_id", m.s.ID.String(),
		"identity", m.s.Identity.String(),
		"role", m.s.Role.String(),
		"admin_request_id", requestID.String(),
	)
	m.emitLocked(ctx, audit.EventRegistrationCompleted)
	return nil
}

// Cancel stops a running AwaitEmail or GenerateProof without leaving the
// current state. It has no effect on a submission in flight.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
}

// releaseClaim drops the inbox claim for this session's mailbox.
func (m *Machine) releaseClaim(ctx context.Context) {
	m.mu.Lock()
	correlationID := m.s.CorrelationID
	m.mu.Unlock()
	if correlationID == nil {
		return
	}
	if err := m.env.deps.Inbox.Release(ctx, *correlationID); err != nil {
		m.env.logger.WarnContext(ctx, "failed to release inbox claim",
			"session_id", m.s.ID.String(),
			"correlation_id", correlationID.String(),
			"error", err,
		)
	}
}

// idleFor is how long the session has gone untouched. A running step keeps
// it active.
func (m *Machine) idleFor(now time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return 0
	}
	return now.Sub(m.s.UpdatedAt)
}

func (m *Machine) checkLocked(expected State) error {
	if m.busy {
		return dErrors.Wrap(ErrBusy, dErrors.CodeConflict, "another step of this registration is running")
	}
	if m.s.State != expected {
		return dErrors.Wrap(ErrOutOfOrder, dErrors.CodeConflict,
			fmt.Sprintf("registration is in %s; this step needs %s", m.s.State, expected))
	}
	return nil
}

func (m *Machine) begin(expected State, cancel context.CancelFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked(expected); err != nil {
		return err
	}
	m.busy = true
	m.cancel = cancel
	return nil
}

func (m *Machine) end() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	m.cancel = nil
}

// transitionLocked enforces the edge table and that no state is entered twice.
func (m *Machine) transitionLocked(ctx context.Context, to State) error {
	from := m.s.State
	if !CanTransition(from, to) || m.s.visited(to) {
		return dErrors.Wrap(ErrInvalidTransition, dErrors.CodeInvariantViolation,
			fmt.Sprintf("cannot move registration from %s to %s", from, to))
	}
	m.s.State = to
	m.s.History = append(m.s.History, to)
	m.s.UpdatedAt = m.env.now()

	if m.env.metrics != nil {
		m.env.metrics.IncTransition(string(to))
	}
	m.env.logger.DebugContext(ctx, "registration state changed",
		"session_id", m.s.ID.String(),
		"from", string(from),
		"to", string(to),
	)
	return nil
}

// fail moves the session to ERROR and returns the classified failure.
func (m *Machine) fail(ctx context.Context, err error) error {
	failure := Classify(err)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.Failure = &failure
	if terr := m.transitionLocked(ctx, StateError); terr != nil {
		return errors.Join(err, terr)
	}

	if m.env.metrics != nil {
		m.env.metrics.IncFailure(string(failure.Kind))
	}
	m.env.logger.WarnContext(ctx, "registration failed",
		"session_id", m.s.ID.String(),
		"identity", m.s.Identity.String(),
		"role", m.s.Role.String(),
		"failure_kind", string(failure.Kind),
		"error", err,
	)
	m.emitLocked(ctx, audit.EventRegistrationFailed)
	return &FailedError{Failure: failure, Err: err}
}

func (m *Machine) emitLocked(ctx context.Context, event audit.AuditEvent) {
	if m.env.auditor == nil {
		return
	}
	e := audit.Event{
		Action:    string(event),
		Subject:   m.s.Identity.String(),
		SessionID: m.s.ID.String(),
	}
	if m.s.Role.IsValid() {
		e.Role = m.s.Role.String()
	}
	if m.s.Failure != nil {
		e.Reason = string(m.s.Failure.Kind)
	}
	if m.s.RequestID != nil {
		e.AdminRequestID = m.s.RequestID.String()
	}
	if err := m.env.auditor.Emit(context.WithoutCancel(ctx), e); err != nil {
		m.env.logger.ErrorContext(ctx, "failed to emit audit event",
			"session_id", m.s.ID.String(),
			"action", string(event),
			"error", err,
		)
	}
}

func (m *Machine) observeStep(step string, start time.Time) {
	if m.env.metrics == nil {
		return
	}
	m.env.metrics.ObserveStep(step, m.env.now().Sub(start).Seconds())
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
