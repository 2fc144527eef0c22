//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"onboard/internal/admin"
	"onboard/internal/admin/models"
	"onboard/internal/admin/store"
	"onboard/internal/proof"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/sentinel"
	"onboard/pkg/testutil"
	"onboard/pkg/testutil/containers"
)

type PostgresQueueSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	now      time.Time
}

func TestPostgresQueueSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresQueueSuite))
}

func (s *PostgresQueueSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresQueueSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresQueueSuite) organizationRequest(requester id.Identity, at time.Time) *models.Request {
	return &models.Request{
		ID:          id.NewRequestID(),
		Requester:   requester,
		Type:        models.RequestOrganizationRegistration,
		Status:      models.StatusPending,
		RequestTime: at,
		Organization: &models.OrganizationRegistration{
			OrganizationType: id.RoleHospital,
			Domain:           "clinic.example",
			OrganizationName: "General Clinic",
			EmailCommitment:  id.Commitment{0x0a},
			Proof:            proof.Proof{Data: []byte("proof-bytes")},
		},
	}
}

func (s *PostgresQueueSuite) TestPayloadRoundTrip() {
	ctx := context.Background()
	req := s.organizationRequest(testutil.TestIdentities.Hospital, s.now)
	s.Require().NoError(s.store.CreateRequest(ctx, req))

	got, err := s.store.FindRequest(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.RequestOrganizationRegistration, got.Type)
	s.Equal(models.StatusPending, got.Status)
	s.Equal(testutil.TestIdentities.Hospital, got.Requester)
	s.Require().NotNil(got.Organization)
	s.Equal(*req.Organization, *got.Organization)
	s.Nil(got.ProcessedBy)
	s.True(got.RequestTime.Equal(s.now))
}

func (s *PostgresQueueSuite) TestPendingUniqueness() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateRequest(ctx, s.organizationRequest(testutil.TestIdentities.Hospital, s.now)))

	err := s.store.CreateRequest(ctx, s.organizationRequest(testutil.TestIdentities.Hospital, s.now))
	s.ErrorIs(err, admin.ErrPendingExists)
}

func (s *PostgresQueueSuite) TestListPendingOrderAndFilter() {
	ctx := context.Background()
	org := s.organizationRequest(testutil.TestIdentities.Hospital, s.now.Add(time.Minute))
	access := &models.Request{
		ID:          id.NewRequestID(),
		Requester:   testutil.TestIdentities.Patient,
		Type:        models.RequestAdminAccess,
		Status:      models.StatusPending,
		RequestTime: s.now,
		AdminAccess: &models.AdminAccess{AdminRole: id.AdminModerator, Reason: "triage"},
	}
	s.Require().NoError(s.store.CreateRequest(ctx, org))
	s.Require().NoError(s.store.CreateRequest(ctx, access))

	all, err := s.store.ListPending(ctx, models.RequestFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(access.ID, all[0].ID)
	s.Equal(id.AdminModerator, all[0].AdminAccess.AdminRole)

	orgs, err := s.store.ListPending(ctx, models.RequestFilter{Type: models.RequestOrganizationRegistration})
	s.Require().NoError(err)
	s.Require().Len(orgs, 1)
	s.Equal(org.ID, orgs[0].ID)
}

func (s *PostgresQueueSuite) TestProcessCommitsDecisionAndAdminWrite() {
	ctx := context.Background()
	s.postgres.SeedAdmin(ctx, s.T(), testutil.TestIdentities.Moderator, id.AdminModerator, uint32(models.PermissionsFor(id.AdminModerator)))
	req := &models.Request{
		ID:          id.NewRequestID(),
		Requester:   testutil.TestIdentities.Patient,
		Type:        models.RequestAdminAccess,
		Status:      models.StatusPending,
		RequestTime: s.now,
		AdminAccess: &models.AdminAccess{AdminRole: id.AdminBasic},
	}
	s.Require().NoError(s.store.CreateRequest(ctx, req))

	decided, err := s.store.Process(ctx, req.ID, func(ctx context.Context, tx admin.Tx, r *models.Request) error {
		approver, err := tx.FindAdmin(ctx, testutil.TestIdentities.Moderator)
		if err != nil {
			return err
		}
		s.Equal(id.AdminModerator, approver.Role)
		rec := &models.AdminRecord{Identity: r.Requester, AdminSince: s.now}
		rec.Grant(r.AdminAccess.AdminRole)
		if err := tx.UpsertAdmin(ctx, rec); err != nil {
			return err
		}
		r.Approve(testutil.TestIdentities.Moderator, s.now)
		return nil
	})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, decided.Status)

	stored, err := s.store.FindRequest(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, stored.Status)
	s.Require().NotNil(stored.ProcessedBy)
	s.Equal(testutil.TestIdentities.Moderator, *stored.ProcessedBy)

	granted, err := s.store.FindAdmin(ctx, testutil.TestIdentities.Patient)
	s.Require().NoError(err)
	s.True(granted.IsActive)
	s.Equal(id.AdminBasic, granted.Role)
	s.Equal(models.PermissionsFor(id.AdminBasic), granted.Permissions)

	_, err = s.store.Process(ctx, req.ID, func(context.Context, admin.Tx, *models.Request) error {
		s.Fail("fn must not run for a decided request")
		return nil
	})
	s.ErrorIs(err, admin.ErrAlreadyProcessed)
}

func (s *PostgresQueueSuite) TestProcessRollsBackOnError() {
	ctx := context.Background()
	req := s.organizationRequest(testutil.TestIdentities.Hospital, s.now)
	s.Require().NoError(s.store.CreateRequest(ctx, req))

	boom := errors.New("ledger unavailable")
	_, err := s.store.Process(ctx, req.ID, func(ctx context.Context, tx admin.Tx, r *models.Request) error {
		rec := &models.AdminRecord{Identity: testutil.TestIdentities.Insurer}
		rec.Grant(id.AdminBasic)
		if err := tx.UpsertAdmin(ctx, rec); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	stored, err := s.store.FindRequest(ctx, req.ID)
	s.Require().NoError(err)
	s.True(stored.IsPending())
	_, err = s.store.FindAdmin(ctx, testutil.TestIdentities.Insurer)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresQueueSuite) TestConcurrentRejectsDecideOnce() {
	ctx := context.Background()
	req := s.organizationRequest(testutil.TestIdentities.Hospital, s.now)
	s.Require().NoError(s.store.CreateRequest(ctx, req))

	result := testutil.RunConcurrent(10, func(int) error {
		_, err := s.store.Process(ctx, req.ID, func(_ context.Context, _ admin.Tx, r *models.Request) error {
			r.Reject(testutil.TestIdentities.Admin, "duplicate clinic", s.now)
			return nil
		})
		if errors.Is(err, admin.ErrAlreadyProcessed) {
			return sentinel.ErrConflict
		}
		return err
	})
	s.Equal(int32(1), result.Successes)
	s.Equal(int32(9), result.Conflicts)
}
