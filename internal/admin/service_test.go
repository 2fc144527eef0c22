package admin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"onboard/internal/admin"
	"onboard/internal/admin/mocks"
	"onboard/internal/admin/models"
	"onboard/internal/admin/store"
	"onboard/internal/proof"
	regmodels "onboard/internal/registry/models"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/audit"
	"onboard/pkg/testutil"
)

type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *recordingAuditor) Emit(_ context.Context, e audit.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return nil
}

func (a *recordingAuditor) last() audit.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.events) == 0 {
		return audit.Event{}
	}
	return a.events[len(a.events)-1]
}

func (a *recordingAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Action)
	}
	return out
}

func boundFor(identity id.Identity, domain, orgName string) proof.Bound {
	return proof.Bound{
		Proof: proof.Proof{Data: []byte("proof-for-" + identity.String())},
		Payload: proof.Payload{
			Identity:         identity,
			Domain:           domain,
			EmailCommitment:  id.Commitment{0x01},
			OrganizationName: orgName,
		},
	}
}

type ServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	registry *mocks.MockRegistry
	store    *store.InMemory
	auditor  *recordingAuditor
	now      time.Time
	svc      *admin.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.registry = mocks.NewMockRegistry(s.ctrl)
	s.store = store.NewInMemory()
	s.auditor = &recordingAuditor{}
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.svc = admin.New(s.store, s.registry,
		admin.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		admin.WithAuditor(s.auditor),
		admin.WithClock(func() time.Time { return s.now }),
	)

	ctx := context.Background()
	s.Require().NoError(s.svc.Bootstrap(ctx, testutil.TestIdentities.SuperAdmin))
	s.seedAdmin(testutil.TestIdentities.Admin, id.AdminBasic)
	s.seedAdmin(testutil.TestIdentities.Moderator, id.AdminModerator)
}

func (s *ServiceSuite) seedAdmin(identity id.Identity, role id.AdminRole) {
	rec := &models.AdminRecord{Identity: identity, AdminSince: s.now}
	rec.Grant(role)
	s.Require().NoError(s.store.UpsertAdmin(context.Background(), rec))
}

func (s *ServiceSuite) TestSubmitPatientRequest() {
	ctx := context.Background()
	patient := testutil.TestIdentities.Patient

	s.Run("creates a pending request", func() {
		req, err := s.svc.SubmitPatientRequest(ctx, patient, boundFor(patient, "mail.example", ""))
		s.Require().NoError(err)
		s.Equal(models.StatusPending, req.Status)
		s.Equal(models.RequestPatientRegistration, req.Type)
		s.Equal(s.now, req.RequestTime)
		s.Require().NotNil(req.Patient)
		s.Equal("mail.example", req.Patient.Domain)

		event := s.auditor.last()
		s.Equal(string(audit.EventRequestCreated), event.Action)
		s.Equal(req.ID.String(), event.AdminRequestID)
		s.Equal("PATIENT", event.Role)
	})

	s.Run("second pending request conflicts", func() {
		_, err := s.svc.SubmitPatientRequest(ctx, patient, boundFor(patient, "mail.example", ""))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("proof bound to another identity is refused", func() {
		_, err := s.svc.SubmitPatientRequest(ctx, testutil.TestIdentities.Insurer, boundFor(patient, "mail.example", ""))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("empty proof is refused", func() {
		bound := boundFor(testutil.TestIdentities.Insurer, "mail.example", "")
		bound.Proof = proof.Proof{}
		_, err := s.svc.SubmitPatientRequest(ctx, testutil.TestIdentities.Insurer, bound)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestSubmitOrganizationRequest() {
	ctx := context.Background()
	hospital := testutil.TestIdentities.Hospital

	s.Run("organization type must be an organization", func() {
		_, err := s.svc.SubmitOrganizationRequest(ctx, hospital, id.RolePatient, boundFor(hospital, "clinic.example", "Clinic"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("organization name is required", func() {
		_, err := s.svc.SubmitOrganizationRequest(ctx, hospital, id.RoleHospital, boundFor(hospital, "clinic.example", " "))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("domain is normalized", func() {
		req, err := s.svc.SubmitOrganizationRequest(ctx, hospital, id.RoleHospital, boundFor(hospital, "Clinic.Example", "General Clinic"))
		s.Require().NoError(err)
		s.Require().NotNil(req.Organization)
		s.Equal("clinic.example", req.Organization.Domain)
		s.Equal(id.RoleHospital, req.Role())
	})
}

func (s *ServiceSuite) TestApproveRegistration() {
	ctx := context.Background()
	hospital := testutil.TestIdentities.Hospital
	req, err := s.svc.SubmitOrganizationRequest(ctx, hospital, id.RoleHospital, boundFor(hospital, "clinic.example", "General Clinic"))
	s.Require().NoError(err)

	s.registry.EXPECT().
		SubmitForRequest(gomock.Any(), req.ID, req.Organization.Proof, gomock.Any(), id.RoleHospital).
		DoAndReturn(func(_ context.Context, _ id.RequestID, _ proof.Proof, payload proof.Payload, role id.Role) (*regmodels.Receipt, error) {
			s.Equal(hospital, payload.Identity)
			s.Equal("clinic.example", payload.Domain)
			s.Equal("General Clinic", payload.OrganizationName)
			return &regmodels.Receipt{Identity: hospital, Role: role, OriginatingRequestID: &req.ID}, nil
		})

	approved, err := s.svc.Approve(ctx, req.ID, testutil.TestIdentities.Admin)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, approved.Status)
	s.Require().NotNil(approved.ProcessedBy)
	s.Equal(testutil.TestIdentities.Admin, *approved.ProcessedBy)

	event := s.auditor.last()
	s.Equal(string(audit.EventRequestApproved), event.Action)
	s.Equal("approved", event.Decision)

	pending, err := s.svc.ListPending(ctx, "")
	s.Require().NoError(err)
	s.Empty(pending)

	_, err = s.svc.Approve(ctx, req.ID, testutil.TestIdentities.Moderator)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.ErrorIs(err, admin.ErrAlreadyProcessed)
}

func (s *ServiceSuite) TestApproveRegistryFailureKeepsPending() {
	ctx := context.Background()
	patient := testutil.TestIdentities.Patient
	req, err := s.svc.SubmitPatientRequest(ctx, patient, boundFor(patient, "mail.example", ""))
	s.Require().NoError(err)

	s.registry.EXPECT().
		SubmitForRequest(gomock.Any(), req.ID, gomock.Any(), gomock.Any(), id.RolePatient).
		Return(nil, dErrors.New(dErrors.CodeConflict, "identity is already registered"))

	_, err = s.svc.Approve(ctx, req.ID, testutil.TestIdentities.Admin)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.NotErrorIs(err, admin.ErrAlreadyProcessed)

	stored, err := s.svc.Get(ctx, req.ID)
	s.Require().NoError(err)
	s.True(stored.IsPending())
}

func (s *ServiceSuite) TestApproveSurvivesCallerCancellation() {
	patient := testutil.TestIdentities.Patient
	req, err := s.svc.SubmitPatientRequest(context.Background(), patient, boundFor(patient, "mail.example", ""))
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	s.registry.EXPECT().
		SubmitForRequest(gomock.Any(), req.ID, gomock.Any(), gomock.Any(), id.RolePatient).
		DoAndReturn(func(ctx context.Context, _ id.RequestID, _ proof.Proof, _ proof.Payload, role id.Role) (*regmodels.Receipt, error) {
			cancel()
			s.NoError(ctx.Err())
			return &regmodels.Receipt{Identity: patient, Role: role, OriginatingRequestID: &req.ID}, nil
		})

	approved, err := s.svc.Approve(ctx, req.ID, testutil.TestIdentities.Admin)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, approved.Status)
}

func (s *ServiceSuite) TestAuthorization() {
	ctx := context.Background()

	s.Run("non admin is denied", func() {
		patient := testutil.TestIdentities.Patient
		req, err := s.svc.SubmitPatientRequest(ctx, patient, boundFor(patient, "mail.example", ""))
		s.Require().NoError(err)

		_, err = s.svc.Approve(ctx, req.ID, testutil.TestIdentities.Insurer)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.ErrorIs(err, admin.ErrNotAdmin)
		s.Equal(string(audit.EventAdminDenied), s.auditor.last().Action)

		stored, err := s.svc.Get(ctx, req.ID)
		s.Require().NoError(err)
		s.True(stored.IsPending())
	})

	s.Run("basic admin cannot process admin access", func() {
		req, err := s.svc.RequestAdminAccess(ctx, testutil.TestIdentities.Hospital, id.AdminBasic, "night shift")
		s.Require().NoError(err)

		_, err = s.svc.Approve(ctx, req.ID, testutil.TestIdentities.Admin)
		s.ErrorIs(err, admin.ErrInsufficientRole)
	})

	s.Run("no self approval", func() {
		req, err := s.svc.RequestAdminAccess(ctx, testutil.TestIdentities.Moderator, id.AdminSuperAdmin, "")
		s.Require().NoError(err)

		_, err = s.svc.Approve(ctx, req.ID, testutil.TestIdentities.Moderator)
		s.ErrorIs(err, admin.ErrSelfApproval)
		_, err = s.svc.Reject(ctx, req.ID, testutil.TestIdentities.Moderator, "withdrawn")
		s.ErrorIs(err, admin.ErrSelfApproval)
	})

	s.Run("moderator cannot grant super admin", func() {
		req, err := s.svc.RequestAdminAccess(ctx, testutil.TestIdentities.Insurer, id.AdminSuperAdmin, "")
		s.Require().NoError(err)

		_, err = s.svc.Approve(ctx, req.ID, testutil.TestIdentities.Moderator)
		s.ErrorIs(err, admin.ErrInsufficientRole)

		approved, err := s.svc.Approve(ctx, req.ID, testutil.TestIdentities.SuperAdmin)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, approved.Status)

		rec, err := s.svc.GetAdmin(ctx, testutil.TestIdentities.Insurer)
		s.Require().NoError(err)
		s.Equal(id.AdminSuperAdmin, rec.Role)
		s.True(rec.Permissions.Has(models.PermGrantSuperAdmin))
	})

	s.Run("deactivated admin is denied", func() {
		rec, err := s.store.FindAdmin(ctx, testutil.TestIdentities.Admin)
		s.Require().NoError(err)
		rec.IsActive = false
		s.Require().NoError(s.store.UpsertAdmin(ctx, rec))

		req, err := s.svc.SubmitOrganizationRequest(ctx, testutil.TestIdentities.Hospital, id.RoleHospital, boundFor(testutil.TestIdentities.Hospital, "clinic.example", "Clinic"))
		s.Require().NoError(err)
		_, err = s.svc.Approve(ctx, req.ID, testutil.TestIdentities.Admin)
		s.ErrorIs(err, admin.ErrNotAdmin)
	})
}

func (s *ServiceSuite) TestAdminAccessGrant() {
	ctx := context.Background()

	req, err := s.svc.RequestAdminAccess(ctx, testutil.TestIdentities.Patient, id.AdminBasic, "  help with triage  ")
	s.Require().NoError(err)
	s.Equal("help with triage", req.AdminAccess.Reason)

	_, err = s.svc.Approve(ctx, req.ID, testutil.TestIdentities.Moderator)
	s.Require().NoError(err)
	s.Equal([]string{
		string(audit.EventRequestCreated),
		string(audit.EventRequestApproved),
		string(audit.EventAdminGranted),
	}, s.auditor.actions())

	rec, err := s.svc.GetAdmin(ctx, testutil.TestIdentities.Patient)
	s.Require().NoError(err)
	s.True(rec.IsActive)
	s.Equal(id.AdminBasic, rec.Role)
	s.Equal(models.PermissionsFor(id.AdminBasic), rec.Permissions)

	_, err = s.svc.RequestAdminAccess(ctx, testutil.TestIdentities.Patient, id.AdminBasic, "")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.svc.RequestAdminAccess(ctx, testutil.TestIdentities.Patient, id.AdminModerator, "promotion")
	s.NoError(err)
}

func (s *ServiceSuite) TestReject() {
	ctx := context.Background()
	patient := testutil.TestIdentities.Patient
	req, err := s.svc.SubmitPatientRequest(ctx, patient, boundFor(patient, "mail.example", ""))
	s.Require().NoError(err)

	_, err = s.svc.Reject(ctx, req.ID, testutil.TestIdentities.Admin, "   ")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.ErrorIs(err, admin.ErrReasonRequired)

	rejected, err := s.svc.Reject(ctx, req.ID, testutil.TestIdentities.Admin, "unknown sender domain")
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, rejected.Status)
	s.Equal("unknown sender domain", rejected.RejectionReason)

	event := s.auditor.last()
	s.Equal(string(audit.EventRequestRejected), event.Action)
	s.Equal("unknown sender domain", event.Reason)

	_, err = s.svc.Approve(ctx, req.ID, testutil.TestIdentities.Admin)
	s.ErrorIs(err, admin.ErrAlreadyProcessed)

	// A rejected requester may ask again.
	_, err = s.svc.SubmitPatientRequest(ctx, patient, boundFor(patient, "mail.example", ""))
	s.NoError(err)
}

func (s *ServiceSuite) TestConcurrentApprovalsRegisterOnce() {
	ctx := context.Background()
	patient := testutil.TestIdentities.Patient
	req, err := s.svc.SubmitPatientRequest(ctx, patient, boundFor(patient, "mail.example", ""))
	s.Require().NoError(err)

	s.registry.EXPECT().
		SubmitForRequest(gomock.Any(), req.ID, gomock.Any(), gomock.Any(), id.RolePatient).
		Return(&regmodels.Receipt{Identity: patient, Role: id.RolePatient}, nil).
		Times(1)

	approvers := []id.Identity{
		testutil.TestIdentities.Admin,
		testutil.TestIdentities.Moderator,
		testutil.TestIdentities.SuperAdmin,
	}
	result := testutil.RunConcurrent(12, func(i int) error {
		_, err := s.svc.Approve(ctx, req.ID, approvers[i%len(approvers)])
		return err
	})
	s.Equal(int32(1), result.Successes)
	s.Equal(int32(11), result.Conflicts)
	s.Equal(int32(0), result.Errors)
}

func (s *ServiceSuite) TestSetRecordActive() {
	ctx := context.Background()
	hospital := testutil.TestIdentities.Hospital

	s.Run("basic admin lacks the permission", func() {
		err := s.svc.SetRecordActive(ctx, testutil.TestIdentities.Admin, hospital, false)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("moderator deactivates", func() {
		s.registry.EXPECT().SetActive(gomock.Any(), hospital, false).Return(nil)
		s.Require().NoError(s.svc.SetRecordActive(ctx, testutil.TestIdentities.Moderator, hospital, false))
		s.Equal(string(audit.EventRecordDeactivated), s.auditor.last().Action)
	})

	s.Run("registry errors pass through", func() {
		s.registry.EXPECT().SetActive(gomock.Any(), hospital, true).
			Return(dErrors.New(dErrors.CodeConflict, "domain is already claimed"))
		err := s.svc.SetRecordActive(ctx, testutil.TestIdentities.Moderator, hospital, true)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestBootstrap() {
	ctx := context.Background()

	s.Require().NoError(s.svc.Bootstrap(ctx, testutil.TestIdentities.SuperAdmin))
	rec, err := s.svc.GetAdmin(ctx, testutil.TestIdentities.SuperAdmin)
	s.Require().NoError(err)
	s.Equal(id.AdminSuperAdmin, rec.Role)
	s.True(rec.IsActive)

	s.Require().NoError(s.svc.Bootstrap(ctx, testutil.TestIdentities.Moderator))
	rec, err = s.svc.GetAdmin(ctx, testutil.TestIdentities.Moderator)
	s.Require().NoError(err)
	s.Equal(id.AdminSuperAdmin, rec.Role)

	s.True(dErrors.HasCode(s.svc.Bootstrap(ctx, id.Identity{}), dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestLookups() {
	ctx := context.Background()

	_, err := s.svc.Get(ctx, id.NewRequestID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.GetAdmin(ctx, testutil.TestIdentities.Patient)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.ListPending(ctx, models.RequestType("SOMETHING_ELSE"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestStoreFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	svc := admin.New(st, mocks.NewMockRegistry(ctrl),
		admin.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	ctx := context.Background()
	boom := errors.New("connection reset")

	st.EXPECT().CreateRequest(gomock.Any(), gomock.Any()).Return(boom)
	patient := testutil.TestIdentities.Patient
	_, err := svc.SubmitPatientRequest(ctx, patient, boundFor(patient, "mail.example", ""))
	if !dErrors.HasCode(err, dErrors.CodeInternal) || !errors.Is(err, boom) {
		t.Fatalf("expected internal error wrapping the store failure, got %v", err)
	}

	st.EXPECT().Process(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, boom)
	_, err = svc.Approve(ctx, id.NewRequestID(), testutil.TestIdentities.Admin)
	if !dErrors.HasCode(err, dErrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}
