//go:build integration

package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"onboard/internal/proof"
	"onboard/internal/registry"
	"onboard/internal/registry/models"
	"onboard/internal/registry/store"
	id "onboard/pkg/domain"
	"onboard/pkg/testutil"
	"onboard/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	prover   *proof.LocalProver
	binder   *proof.Binder
	store    *store.Postgres
	seq      int
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	prover, err := proof.NewLocalProver([]byte("pg-ledger-key"))
	s.Require().NoError(err)
	s.prover = prover
	s.binder, err = proof.NewBinder(prover, []byte("pg-commitment-key"))
	s.Require().NoError(err)
	s.store = store.NewPostgres(s.postgres.DB, prover)
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresLedgerSuite) registration(identity id.Identity, sender, org string) models.Registration {
	s.seq++
	raw := testutil.NewEmail(sender).Body(fmt.Sprintf("message %d", s.seq)).Raw()
	bound, err := s.binder.Bind(context.Background(), raw, identity, "")
	s.Require().NoError(err)
	bound.Payload.OrganizationName = org
	return models.Registration{Proof: bound.Proof, Payload: bound.Payload}
}

func (s *PostgresLedgerSuite) TestRegisterAndRead() {
	ctx := context.Background()
	reqID := id.NewRequestID()
	reg := s.registration(testutil.TestIdentities.Hospital, "admin@Clinic.Example", "General Clinic")
	reg.OriginatingRequestID = &reqID

	receipt, err := s.store.RegisterHospital(ctx, reg)
	s.Require().NoError(err)
	s.Equal(reg.Proof.ID(), receipt.ProofID)

	rec, err := s.store.GetOrganizationRecord(ctx, testutil.TestIdentities.Hospital)
	s.Require().NoError(err)
	s.Equal(id.RoleHospital, rec.Role)
	s.Equal("clinic.example", rec.Domain)
	s.Equal("General Clinic", rec.OrganizationName)
	s.Equal(reg.Payload.EmailCommitment, rec.EmailCommitment)
	s.Require().NotNil(rec.OriginatingRequestID)
	s.Equal(reqID, *rec.OriginatingRequestID)
	s.True(rec.IsActive)

	taken, err := s.store.IsDomainTaken(ctx, "clinic.example")
	s.Require().NoError(err)
	s.True(taken)
	consumed, err := s.store.IsProofConsumed(ctx, reg.Proof.ID())
	s.Require().NoError(err)
	s.True(consumed)
}

func (s *PostgresLedgerSuite) TestInvariants() {
	ctx := context.Background()
	first := s.registration(testutil.TestIdentities.Hospital, "a@clinic.example", "Clinic")
	_, err := s.store.RegisterHospital(ctx, first)
	s.Require().NoError(err)

	_, err = s.store.RegisterPatient(ctx, s.registration(testutil.TestIdentities.Hospital, "a@clinic.example", ""))
	s.ErrorIs(err, registry.ErrDuplicateIdentity)

	replay := first
	replay.Payload.Identity = testutil.TestIdentities.Patient
	_, err = s.store.RegisterPatient(ctx, replay)
	s.ErrorIs(err, registry.ErrProofConsumed)

	_, err = s.store.RegisterInsurer(ctx, s.registration(testutil.TestIdentities.Insurer, "b@clinic.example", "Insurer"))
	s.ErrorIs(err, registry.ErrDomainTaken)

	bad := s.registration(testutil.TestIdentities.Insurer, "b@insurer.example", "Insurer")
	bad.Payload.Domain = "elsewhere.example"
	_, err = s.store.RegisterInsurer(ctx, bad)
	s.ErrorIs(err, registry.ErrProofRejected)
	consumed, err := s.store.IsProofConsumed(ctx, bad.Proof.ID())
	s.Require().NoError(err)
	s.False(consumed, "rolled back with the failed registration")
}

func (s *PostgresLedgerSuite) TestConcurrentDomainClaims() {
	ctx := context.Background()
	const n = 8
	regs := make([]models.Registration, n)
	for i := range n {
		regs[i] = s.registration(testutil.NewIdentity(), fmt.Sprintf("u%d@race.example", i), "Race")
	}

	successes, errs := testutil.RunConcurrentCollect(n, func(i int) error {
		_, err := s.store.RegisterHospital(ctx, regs[i])
		return err
	})

	s.Equal(int32(1), successes)
	for _, err := range errs {
		s.ErrorIs(err, registry.ErrDomainTaken)
	}
}

func (s *PostgresLedgerSuite) TestSetActiveAndStats() {
	ctx := context.Background()
	_, err := s.store.RegisterPatient(ctx, s.registration(testutil.TestIdentities.Patient, "p@mail.example", ""))
	s.Require().NoError(err)
	_, err = s.store.RegisterHospital(ctx, s.registration(testutil.TestIdentities.Hospital, "h@clinic.example", "Clinic"))
	s.Require().NoError(err)

	s.Require().NoError(s.store.SetActive(ctx, testutil.TestIdentities.Hospital, false))
	stats, err := s.store.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(models.Stats{TotalUsers: 1, Patients: 1}, *stats)

	_, err = s.store.RegisterInsurer(ctx, s.registration(testutil.TestIdentities.Insurer, "i@clinic.example", "Insurer"))
	s.Require().NoError(err, "deactivated organization no longer holds its domain")

	err = s.store.SetActive(ctx, testutil.TestIdentities.Hospital, true)
	s.ErrorIs(err, registry.ErrDomainTaken)
}
