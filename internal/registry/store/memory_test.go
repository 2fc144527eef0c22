package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboard/internal/proof"
	"onboard/internal/registry"
	"onboard/internal/registry/models"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/sentinel"
	"onboard/pkg/testutil"
)

type acceptAll struct{}

func (acceptAll) Verify(context.Context, proof.Proof, proof.Payload) error { return nil }

func TestInMemory(t *testing.T) {
	ctx := context.Background()
	reg := func(identity id.Identity, domain, proofData string) models.Registration {
		return models.Registration{
			Proof: proof.Proof{Data: []byte(proofData)},
			Payload: proof.Payload{
				Identity:         identity,
				Domain:           domain,
				EmailCommitment:  id.Commitment{0x02},
				OrganizationName: "Org",
			},
		}
	}

	t.Run("records are copies", func(t *testing.T) {
		s := NewInMemory(acceptAll{})
		_, err := s.RegisterHospital(ctx, reg(testutil.TestIdentities.Hospital, "Clinic.Example", "p1"))
		require.NoError(t, err)

		rec, err := s.GetOrganizationRecord(ctx, testutil.TestIdentities.Hospital)
		require.NoError(t, err)
		assert.Equal(t, "clinic.example", rec.Domain)
		rec.IsActive = false

		again, err := s.GetRecord(ctx, testutil.TestIdentities.Hospital)
		require.NoError(t, err)
		assert.True(t, again.IsActive)
	})

	t.Run("patients do not hold domains", func(t *testing.T) {
		s := NewInMemory(acceptAll{})
		_, err := s.RegisterPatient(ctx, reg(testutil.TestIdentities.Patient, "clinic.example", "p1"))
		require.NoError(t, err)

		taken, err := s.IsDomainTaken(ctx, "clinic.example")
		require.NoError(t, err)
		assert.False(t, taken)

		_, err = s.RegisterHospital(ctx, reg(testutil.TestIdentities.Hospital, "clinic.example", "p2"))
		require.NoError(t, err)
	})

	t.Run("unknown identity", func(t *testing.T) {
		s := NewInMemory(acceptAll{})
		_, err := s.GetRecord(ctx, testutil.TestIdentities.Patient)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
		require.ErrorIs(t, s.SetActive(ctx, testutil.TestIdentities.Patient, false), sentinel.ErrNotFound)
	})

	t.Run("reactivating own domain is allowed", func(t *testing.T) {
		s := NewInMemory(acceptAll{})
		_, err := s.RegisterInsurer(ctx, reg(testutil.TestIdentities.Insurer, "insurer.example", "p1"))
		require.NoError(t, err)
		require.NoError(t, s.SetActive(ctx, testutil.TestIdentities.Insurer, false))
		require.NoError(t, s.SetActive(ctx, testutil.TestIdentities.Insurer, true))
	})

	t.Run("cancelled context writes nothing", func(t *testing.T) {
		s := NewInMemory(acceptAll{})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.RegisterPatient(cctx, reg(testutil.TestIdentities.Patient, "mail.example", "p1"))
		require.ErrorIs(t, err, context.Canceled)

		_, err = s.GetRecord(ctx, testutil.TestIdentities.Patient)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	var _ registry.Ledger = NewInMemory(acceptAll{})
}
