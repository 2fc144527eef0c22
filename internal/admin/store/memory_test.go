package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboard/internal/admin"
	"onboard/internal/admin/models"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/sentinel"
	"onboard/pkg/testutil"
)

func accessRequest(requester id.Identity, at time.Time) *models.Request {
	return &models.Request{
		ID:          id.NewRequestID(),
		Requester:   requester,
		Type:        models.RequestAdminAccess,
		Status:      models.StatusPending,
		RequestTime: at,
		AdminAccess: &models.AdminAccess{AdminRole: id.AdminBasic, Reason: "on call"},
	}
}

func TestInMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("one pending request per requester and type", func(t *testing.T) {
		s := NewInMemory()
		require.NoError(t, s.CreateRequest(ctx, accessRequest(testutil.TestIdentities.Patient, now)))

		err := s.CreateRequest(ctx, accessRequest(testutil.TestIdentities.Patient, now))
		assert.ErrorIs(t, err, admin.ErrPendingExists)

		other := accessRequest(testutil.TestIdentities.Hospital, now)
		assert.NoError(t, s.CreateRequest(ctx, other))
	})

	t.Run("a decided request frees the slot", func(t *testing.T) {
		s := NewInMemory()
		req := accessRequest(testutil.TestIdentities.Patient, now)
		require.NoError(t, s.CreateRequest(ctx, req))

		_, err := s.Process(ctx, req.ID, func(_ context.Context, _ admin.Tx, r *models.Request) error {
			r.Reject(testutil.TestIdentities.Admin, "no", now)
			return nil
		})
		require.NoError(t, err)

		assert.NoError(t, s.CreateRequest(ctx, accessRequest(testutil.TestIdentities.Patient, now)))
	})

	t.Run("list pending is oldest first and filtered", func(t *testing.T) {
		s := NewInMemory()
		late := accessRequest(testutil.TestIdentities.Hospital, now.Add(time.Minute))
		early := accessRequest(testutil.TestIdentities.Patient, now)
		patient := &models.Request{
			ID:          id.NewRequestID(),
			Requester:   testutil.TestIdentities.Insurer,
			Type:        models.RequestPatientRegistration,
			Status:      models.StatusPending,
			RequestTime: now.Add(-time.Minute),
			Patient:     &models.PatientRegistration{Domain: "mail.example"},
		}
		for _, r := range []*models.Request{late, early, patient} {
			require.NoError(t, s.CreateRequest(ctx, r))
		}

		all, err := s.ListPending(ctx, models.RequestFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, patient.ID, all[0].ID)
		assert.Equal(t, early.ID, all[1].ID)
		assert.Equal(t, late.ID, all[2].ID)

		access, err := s.ListPending(ctx, models.RequestFilter{Type: models.RequestAdminAccess})
		require.NoError(t, err)
		assert.Len(t, access, 2)
	})

	t.Run("process rejects a decided request without calling fn", func(t *testing.T) {
		s := NewInMemory()
		req := accessRequest(testutil.TestIdentities.Patient, now)
		require.NoError(t, s.CreateRequest(ctx, req))
		approve := func(_ context.Context, _ admin.Tx, r *models.Request) error {
			r.Approve(testutil.TestIdentities.Admin, now)
			return nil
		}
		_, err := s.Process(ctx, req.ID, approve)
		require.NoError(t, err)

		called := false
		_, err = s.Process(ctx, req.ID, func(context.Context, admin.Tx, *models.Request) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, admin.ErrAlreadyProcessed)
		assert.False(t, called)

		stored, err := s.FindRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, stored.Status)
	})

	t.Run("failed fn writes nothing", func(t *testing.T) {
		s := NewInMemory()
		req := accessRequest(testutil.TestIdentities.Patient, now)
		require.NoError(t, s.CreateRequest(ctx, req))

		boom := errors.New("ledger down")
		_, err := s.Process(ctx, req.ID, func(ctx context.Context, tx admin.Tx, r *models.Request) error {
			require.NoError(t, tx.UpsertAdmin(ctx, &models.AdminRecord{Identity: r.Requester, IsActive: true, Role: id.AdminBasic}))
			r.Approve(testutil.TestIdentities.Admin, now)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		stored, err := s.FindRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsPending())
		_, err = s.FindAdmin(ctx, testutil.TestIdentities.Patient)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("tx reads its own writes", func(t *testing.T) {
		s := NewInMemory()
		req := accessRequest(testutil.TestIdentities.Patient, now)
		require.NoError(t, s.CreateRequest(ctx, req))

		_, err := s.Process(ctx, req.ID, func(ctx context.Context, tx admin.Tx, r *models.Request) error {
			rec := &models.AdminRecord{Identity: r.Requester}
			rec.Grant(id.AdminModerator)
			if err := tx.UpsertAdmin(ctx, rec); err != nil {
				return err
			}
			got, err := tx.FindAdmin(ctx, r.Requester)
			if err != nil {
				return err
			}
			assert.Equal(t, id.AdminModerator, got.Role)
			r.Approve(testutil.TestIdentities.Admin, now)
			return nil
		})
		require.NoError(t, err)

		rec, err := s.FindAdmin(ctx, testutil.TestIdentities.Patient)
		require.NoError(t, err)
		assert.True(t, rec.IsActive)
		assert.Equal(t, id.AdminModerator, rec.Role)
	})

	t.Run("concurrent decisions apply once", func(t *testing.T) {
		s := NewInMemory()
		req := accessRequest(testutil.TestIdentities.Patient, now)
		require.NoError(t, s.CreateRequest(ctx, req))

		result := testutil.RunConcurrent(20, func(int) error {
			_, err := s.Process(ctx, req.ID, func(_ context.Context, _ admin.Tx, r *models.Request) error {
				r.Approve(testutil.TestIdentities.Admin, now)
				return nil
			})
			if errors.Is(err, admin.ErrAlreadyProcessed) {
				return sentinel.ErrConflict
			}
			return err
		})
		assert.Equal(t, int32(1), result.Successes)
		assert.Equal(t, int32(19), result.Conflicts)
	})

	t.Run("unknown request", func(t *testing.T) {
		s := NewInMemory()
		_, err := s.FindRequest(ctx, id.NewRequestID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = s.Process(ctx, id.NewRequestID(), nil)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("returned requests are copies", func(t *testing.T) {
		s := NewInMemory()
		req := accessRequest(testutil.TestIdentities.Patient, now)
		require.NoError(t, s.CreateRequest(ctx, req))

		got, err := s.FindRequest(ctx, req.ID)
		require.NoError(t, err)
		got.AdminAccess.Reason = "changed"
		got.Status = models.StatusApproved

		again, err := s.FindRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, "on call", again.AdminAccess.Reason)
		assert.True(t, again.IsPending())
	})
}
