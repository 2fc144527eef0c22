package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"onboard/internal/admin/metrics"
	"onboard/internal/admin/models"
	"onboard/internal/proof"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/audit"
	"onboard/pkg/platform/sentinel"
	"onboard/pkg/platform/tracer"
)

const maxReasonLength = 1024

// Service files requests and lets admins decide them.
type Service struct {
	store    Store
	registry Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   tracer.Tracer
	auditor  audit.Emitter
	now      func() time.Time
}

type Option func(*Service)

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

func WithAuditor(a audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store Store, registry Registry, opts ...Option) *Service {
	s := &Service{
		store:    store,
		registry: registry,
		logger:   slog.Default(),
		tracer:   tracer.NewNoop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitPatientRequest queues a patient registration for approval.
func (s *Service) SubmitPatientRequest(ctx context.Context, requester id.Identity, bound proof.Bound) (*models.Request, error) {
	if err := validateBound(requester, bound); err != nil {
		return nil, err
	}
	return s.create(ctx, &models.Request{
		Requester: requester,
		Type:      models.RequestPatientRegistration,
		Patient: &models.PatientRegistration{
			EmailCommitment: bound.Payload.EmailCommitment,
			Domain:          bound.Payload.Domain,
			Proof:           bound.Proof,
		},
	})
}

// SubmitOrganizationRequest queues a hospital or insurer registration.
func (s *Service) SubmitOrganizationRequest(ctx context.Context, requester id.Identity, orgType id.Role, bound proof.Bound) (*models.Request, error) {
	if !orgType.IsOrganization() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "organization type must be HOSPITAL or INSURER")
	}
	if err := validateBound(requester, bound); err != nil {
		return nil, err
	}
	if strings.TrimSpace(bound.Payload.OrganizationName) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "organization name is required")
	}
	domain, err := id.ParseDomain(bound.Payload.Domain)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, &models.Request{
		Requester: requester,
		Type:      models.RequestOrganizationRegistration,
		Organization: &models.OrganizationRegistration{
			OrganizationType: orgType,
			Domain:           domain,
			OrganizationName: bound.Payload.OrganizationName,
			EmailCommitment:  bound.Payload.EmailCommitment,
			Proof:            bound.Proof,
		},
	})
}

// RequestAdminAccess asks for an admin role. An identity that already holds
// that role or a higher one cannot ask again.
func (s *Service) RequestAdminAccess(ctx context.Context, requester id.Identity, role id.AdminRole, reason string) (*models.Request, error) {
	if requester.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "requester identity is required")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown admin role")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > maxReasonLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "reason is too long")
	}

	existing, err := s.store.FindAdmin(ctx, requester)
	switch {
	case err == nil && existing.IsActive && existing.Role.AtLeast(role):
		return nil, dErrors.New(dErrors.CodeConflict, "identity already holds this admin role")
	case err != nil && !errors.Is(err, sentinel.ErrNotFound):
		return nil, s.translate(err)
	}

	return s.create(ctx, &models.Request{
		Requester:   requester,
		Type:        models.RequestAdminAccess,
		AdminAccess: &models.AdminAccess{AdminRole: role, Reason: reason},
	})
}

func (s *Service) create(ctx context.Context, req *models.Request) (*models.Request, error) {
	req.ID = id.NewRequestID()
	req.Status = models.StatusPending
	req.RequestTime = s.now()

	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, s.translate(err)
	}

	if s.metrics != nil {
		s.metrics.IncCreated(string(req.Type))
	}
	s.logger.InfoContext(ctx, "admin request created",
		"admin_request_id", req.ID.String(),
		"requester", req.Requester.String(),
		"type", string(req.Type),
	)
	s.emit(ctx, audit.Event{
		Action:         string(audit.EventRequestCreated),
		Actor:          req.Requester.String(),
		Subject:        req.Requester.String(),
		AdminRequestID: req.ID.String(),
		Role:           requestRole(req),
	})
	return req, nil
}

// ListPending returns pending requests, oldest first. An empty type lists all.
func (s *Service) ListPending(ctx context.Context, requestType models.RequestType) ([]*models.Request, error) {
	if requestType != "" {
		if _, ok := models.ParseRequestType(string(requestType)); !ok {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown request type")
		}
	}
	reqs, err := s.store.ListPending(ctx, models.RequestFilter{Type: requestType})
	if err != nil {
		return nil, s.translate(err)
	}
	return reqs, nil
}

func (s *Service) Get(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	req, err := s.store.FindRequest(ctx, requestID)
	if err != nil {
		return nil, s.translate(err)
	}
	return req, nil
}

func (s *Service) GetAdmin(ctx context.Context, identity id.Identity) (*models.AdminRecord, error) {
	rec, err := s.store.FindAdmin(ctx, identity)
	if err != nil {
		return nil, s.translate(err)
	}
	return rec, nil
}

// Approve decides a pending request in favor of the requester and performs
// its effect in the same transaction. If the effect fails the request stays
// PENDING.
func (s *Service) Approve(ctx context.Context, requestID id.RequestID, admin id.Identity) (req *models.Request, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanAdminProcess,
		tracer.String(tracer.AttrRequestID, requestID.String()),
		tracer.String(tracer.AttrDecision, "approve"),
	)
	defer func() { span.End(err) }()

	// An approval may write to the registry, so the admin disconnecting must
	// not abort the transaction around it.
	ctx = context.WithoutCancel(ctx)
	req, err = s.store.Process(ctx, requestID, func(ctx context.Context, tx Tx, req *models.Request) error {
		if err := s.authorize(ctx, tx, admin, req); err != nil {
			return err
		}
		if err := s.apply(ctx, tx, req); err != nil {
			return err
		}
		req.Approve(admin, s.now())
		return nil
	})
	if err != nil {
		return nil, s.processFailed(ctx, requestID, admin, "approve", err)
	}

	s.decided(ctx, req, admin, "approved")
	if req.AdminAccess != nil {
		s.emit(ctx, audit.Event{
			Action:         string(audit.EventAdminGranted),
			Actor:          admin.String(),
			Subject:        req.Requester.String(),
			AdminRequestID: req.ID.String(),
			Role:           req.AdminAccess.AdminRole.String(),
		})
	}
	return req, nil
}

// Reject closes a pending request without effect. The reason is required.
func (s *Service) Reject(ctx context.Context, requestID id.RequestID, admin id.Identity, reason string) (req *models.Request, err error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.Wrap(ErrReasonRequired, dErrors.CodeInvalidInput, "a rejection reason is required")
	}
	if len(reason) > maxReasonLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "reason is too long")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanAdminProcess,
		tracer.String(tracer.AttrRequestID, requestID.String()),
		tracer.String(tracer.AttrDecision, "reject"),
	)
	defer func() { span.End(err) }()

	req, err = s.store.Process(ctx, requestID, func(ctx context.Context, tx Tx, req *models.Request) error {
		if err := s.authorize(ctx, tx, admin, req); err != nil {
			return err
		}
		req.Reject(admin, reason, s.now())
		return nil
	})
	if err != nil {
		return nil, s.processFailed(ctx, requestID, admin, "reject", err)
	}

	s.decided(ctx, req, admin, "rejected")
	return req, nil
}

// SetRecordActive deactivates or reactivates a registry record.
func (s *Service) SetRecordActive(ctx context.Context, admin, identity id.Identity, active bool) error {
	rec, err := s.store.FindAdmin(ctx, admin)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return s.translate(err)
	}
	action := "deactivate_record"
	event := audit.EventRecordDeactivated
	if active {
		action = "activate_record"
		event = audit.EventRecordActivated
	}
	if rec == nil || !rec.IsActive {
		return s.deny(ctx, admin, action, dErrors.Wrap(ErrNotAdmin, dErrors.CodeForbidden, "caller is not an active admin"))
	}
	if !rec.Permissions.Has(models.PermDeactivateRecords) {
		return s.deny(ctx, admin, action, dErrors.Wrap(ErrInsufficientRole, dErrors.CodeForbidden, "admin role cannot change record status"))
	}

	if err := s.registry.SetActive(ctx, identity, active); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "registry record status changed",
		"admin", admin.String(),
		"identity", identity.String(),
		"active", active,
	)
	s.emit(ctx, audit.Event{
		Action:  string(event),
		Actor:   admin.String(),
		Subject: identity.String(),
	})
	return nil
}

// Bootstrap seeds identity as an active SUPER_ADMIN. It is idempotent and
// never lowers an existing record.
func (s *Service) Bootstrap(ctx context.Context, identity id.Identity) error {
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "bootstrap identity is required")
	}
	rec, err := s.store.FindAdmin(ctx, identity)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		rec = &models.AdminRecord{Identity: identity, AdminSince: s.now()}
	case err != nil:
		return s.translate(err)
	}
	rec.Grant(id.AdminSuperAdmin)
	if err := s.store.UpsertAdmin(ctx, rec); err != nil {
		return s.translate(err)
	}
	s.logger.InfoContext(ctx, "bootstrap admin seeded", "identity", identity.String())
	return nil
}

// authorize checks that admin may decide req. It runs inside the
// transaction so a concurrent demotion is observed.
func (s *Service) authorize(ctx context.Context, tx Tx, admin id.Identity, req *models.Request) error {
	rec, err := tx.FindAdmin(ctx, admin)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	switch {
	case rec == nil || !rec.IsActive:
		return dErrors.Wrap(ErrNotAdmin, dErrors.CodeForbidden, "caller is not an active admin")
	case req.Requester == admin:
		return dErrors.Wrap(ErrSelfApproval, dErrors.CodeForbidden, "admins cannot process their own requests")
	case !rec.CanProcess(req.Type):
		return dErrors.Wrap(ErrInsufficientRole, dErrors.CodeForbidden, "admin role is too low for this request type")
	case req.AdminAccess != nil && !rec.Role.AtLeast(req.AdminAccess.AdminRole):
		return dErrors.Wrap(ErrInsufficientRole, dErrors.CodeForbidden, "cannot grant a role above your own")
	}
	return nil
}

// apply performs the effect of an approval.
func (s *Service) apply(ctx context.Context, tx Tx, req *models.Request) error {
	switch req.Type {
	case models.RequestPatientRegistration, models.RequestOrganizationRegistration:
		p, payload, ok := req.Registration()
		if !ok {
			return dErrors.New(dErrors.CodeInternal, "registration request has no payload")
		}
		_, err := s.registry.SubmitForRequest(ctx, req.ID, p, payload, req.Role())
		return err
	case models.RequestAdminAccess:
		if req.AdminAccess == nil {
			return dErrors.New(dErrors.CodeInternal, "admin access request has no payload")
		}
		rec, err := tx.FindAdmin(ctx, req.Requester)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			rec = &models.AdminRecord{Identity: req.Requester, AdminSince: s.now()}
		case err != nil:
			return err
		}
		rec.Grant(req.AdminAccess.AdminRole)
		return tx.UpsertAdmin(ctx, rec)
	default:
		return dErrors.New(dErrors.CodeInternal, "unknown request type")
	}
}

func (s *Service) decided(ctx context.Context, req *models.Request, admin id.Identity, decision string) {
	if s.metrics != nil {
		s.metrics.IncProcessed(string(req.Type), decision)
	}
	s.logger.InfoContext(ctx, "admin request processed",
		"admin_request_id", req.ID.String(),
		"type", string(req.Type),
		"decision", decision,
		"admin", admin.String(),
	)
	action := audit.EventRequestApproved
	if req.Status == models.StatusRejected {
		action = audit.EventRequestRejected
	}
	s.emit(ctx, audit.Event{
		Action:         string(action),
		Actor:          admin.String(),
		Subject:        req.Requester.String(),
		AdminRequestID: req.ID.String(),
		Role:           requestRole(req),
		Decision:       decision,
		Reason:         req.RejectionReason,
	})
}

func (s *Service) processFailed(ctx context.Context, requestID id.RequestID, admin id.Identity, action string, err error) error {
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		if s.metrics != nil {
			s.metrics.IncConflict()
		}
	case dErrors.HasCode(err, dErrors.CodeForbidden):
		return s.deny(ctx, admin, action, err)
	default:
		s.logger.WarnContext(ctx, "admin request not processed",
			"admin_request_id", requestID.String(),
			"admin", admin.String(),
			"action", action,
			"error", err,
		)
	}
	return s.translate(err)
}

func (s *Service) deny(ctx context.Context, admin id.Identity, action string, err error) error {
	if s.metrics != nil {
		s.metrics.IncDenied(action)
	}
	s.logger.WarnContext(ctx, "admin action denied",
		"admin", admin.String(),
		"action", action,
		"error", err,
	)
	s.emit(ctx, audit.Event{
		Action:   string(audit.EventAdminDenied),
		Actor:    admin.String(),
		Decision: action,
		Reason:   err.Error(),
	})
	return err
}

// translate maps store errors to domain errors once. Errors that already
// carry a code keep it.
func (s *Service) translate(err error) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, ErrAlreadyProcessed):
		return dErrors.Wrap(err, dErrors.CodeConflict, "request has already been processed")
	case errors.Is(err, ErrPendingExists):
		return dErrors.Wrap(err, dErrors.CodeConflict, "a pending request of this type already exists")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "admin queue operation failed")
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(context.WithoutCancel(ctx), event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func validateBound(requester id.Identity, bound proof.Bound) error {
	switch {
	case requester.IsZero():
		return dErrors.New(dErrors.CodeInvalidInput, "requester identity is required")
	case bound.Payload.Identity != requester:
		return dErrors.New(dErrors.CodeInvalidInput, "proof is bound to another identity")
	case bound.Proof.IsEmpty():
		return dErrors.New(dErrors.CodeInvalidInput, "proof is required")
	case bound.Payload.EmailCommitment.IsZero():
		return dErrors.New(dErrors.CodeInvalidInput, "email commitment is required")
	}
	return nil
}

func requestRole(req *models.Request) string {
	if req.AdminAccess != nil {
		return req.AdminAccess.AdminRole.String()
	}
	if role := req.Role(); role.IsValid() {
		return role.String()
	}
	return ""
}
