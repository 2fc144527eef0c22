package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	adminmodels "onboard/internal/admin/models"
	"onboard/internal/inbox"
	"onboard/internal/proof"
	"onboard/internal/registry"
	"onboard/internal/registry/models"
	"onboard/internal/session/mocks"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/sentinel"
	"onboard/pkg/testutil"
)

const inboxDomain = "verify.onboard.local"

type MachineSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	inbox    *mocks.MockInbox
	registry *mocks.MockRegistry
	queue    *mocks.MockApprovalQueue
	binder   *proof.Binder
	logger   *slog.Logger
}

func TestMachineSuite(t *testing.T) {
	suite.Run(t, new(MachineSuite))
}

func (s *MachineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.inbox = mocks.NewMockInbox(s.ctrl)
	s.registry = mocks.NewMockRegistry(s.ctrl)
	s.queue = mocks.NewMockApprovalQueue(s.ctrl)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	prover, err := proof.NewLocalProver([]byte("session-test-prover"))
	s.Require().NoError(err)
	s.binder, err = proof.NewBinder(prover, []byte("session-test-commitment"))
	s.Require().NoError(err)
}

func (s *MachineSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *MachineSuite) newMachine(identity id.Identity, approval ...id.Role) *Machine {
	return NewMachine(identity, Deps{
		Inbox:    s.inbox,
		Binder:   s.binder,
		Registry: s.registry,
		Queue:    s.queue,
	}, Config{InboxDomain: inboxDomain, ApprovalRoles: approval}, WithLogger(s.logger))
}

// deliver makes the inbox return a message with the given sender and subject.
func (s *MachineSuite) deliver(from, subject string) {
	s.inbox.EXPECT().AwaitEmail(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, correlationID id.CorrelationID) (*inbox.Email, error) {
			return &inbox.Email{
				CorrelationID: correlationID,
				Raw:           testutil.NewEmail(from).Subject(subject).Raw(),
				ReceivedAt:    time.Now(),
			}, nil
		})
}

func (s *MachineSuite) receipt(identity id.Identity, role id.Role) *models.Receipt {
	return &models.Receipt{Identity: identity, Role: role, RegisteredAt: time.Now()}
}

func (s *MachineSuite) TestPatientHappyPath() {
	ctx := context.Background()
	identity := testutil.TestIdentities.Patient
	m := s.newMachine(identity)

	instructions, err := m.SelectRole(ctx, id.RolePatient, "Pat@Mail.Example")
	s.Require().NoError(err)
	s.Require().NotNil(instructions)
	s.Equal(instructions.CorrelationID.String()+"@"+inboxDomain, instructions.Mailbox)
	s.Equal(fmt.Sprintf("REGISTER PATIENT pat@mail.example %s", identity), instructions.Subject)
	s.Equal(StateEmailSent, m.State())

	s.deliver("pat@mail.example", instructions.Subject)
	s.Require().NoError(m.AwaitEmail(ctx))
	s.Equal(StateEmailCollected, m.State())

	s.Require().NoError(m.GenerateProof(ctx))
	snap := m.Snapshot()
	s.Require().NotNil(snap.ProofID)
	s.Equal(identity, snap.Bound.Payload.Identity)

	s.registry.EXPECT().
		Submit(gomock.Any(), snap.Bound.Proof, snap.Bound.Payload, id.RolePatient).
		Return(s.receipt(identity, id.RolePatient), nil)
	s.Require().NoError(m.Submit(ctx))

	snap = m.Snapshot()
	s.Equal(StateComplete, snap.State)
	s.Equal(OutcomeRegistered, snap.Outcome)
	s.NotNil(snap.Receipt)
	s.Equal([]State{
		StateRoleSelection, StateEmailSent, StateEmailCollected,
		StateProofGenerated, StateSubmitted, StateComplete,
	}, snap.History)
}

func (s *MachineSuite) TestOrganizationHappyPath() {
	ctx := context.Background()
	identity := testutil.TestIdentities.Hospital
	m := s.newMachine(identity)

	instructions, err := m.SelectRole(ctx, id.RoleHospital, "")
	s.Require().NoError(err)
	s.Nil(instructions)
	s.Equal(StateDetails, m.State())

	instructions, err = m.SubmitDetails(ctx, "  General   Clinic ", "Clinic.Example.")
	s.Require().NoError(err)
	s.Equal(fmt.Sprintf("REGISTER HOSPITAL General Clinic %s", identity), instructions.Subject)

	s.deliver("ops@clinic.example", instructions.Subject)
	s.Require().NoError(m.AwaitEmail(ctx))
	s.Require().NoError(m.GenerateProof(ctx))

	snap := m.Snapshot()
	s.Equal("clinic.example", snap.Bound.Payload.Domain)
	s.Equal("General Clinic", snap.Bound.Payload.OrganizationName)

	s.registry.EXPECT().
		Submit(gomock.Any(), gomock.Any(), snap.Bound.Payload, id.RoleHospital).
		Return(s.receipt(identity, id.RoleHospital), nil)
	s.Require().NoError(m.Submit(ctx))
	s.Equal([]State{
		StateRoleSelection, StateDetails, StateEmailSent, StateEmailCollected,
		StateProofGenerated, StateSubmitted, StateComplete,
	}, m.Snapshot().History)
}

func (s *MachineSuite) TestOrganizationWithoutClaimedDomainTakesSenderDomain() {
	ctx := context.Background()
	m := s.newMachine(testutil.TestIdentities.Insurer)

	_, err := m.SelectRole(ctx, id.RoleInsurer, "")
	s.Require().NoError(err)
	instructions, err := m.SubmitDetails(ctx, "Acme Health", "")
	s.Require().NoError(err)

	s.deliver("claims@acme.example", instructions.Subject)
	s.Require().NoError(m.AwaitEmail(ctx))
	s.Require().NoError(m.GenerateProof(ctx))
	s.Equal("acme.example", m.Snapshot().Domain)
}

func (s *MachineSuite) TestPreconditionsLeaveStateUnchanged() {
	ctx := context.Background()

	s.Run("wallet not connected", func() {
		m := s.newMachine(id.Identity{})
		_, err := m.SelectRole(ctx, id.RolePatient, "pat@mail.example")
		s.Require().ErrorIs(err, ErrWalletNotConnected)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Equal(StateRoleSelection, m.State())
		s.Nil(m.Snapshot().Failure)
	})

	s.Run("patient without email", func() {
		m := s.newMachine(testutil.TestIdentities.Patient)
		_, err := m.SelectRole(ctx, id.RolePatient, " ")
		s.Require().ErrorIs(err, ErrEmailRequired)
		s.Equal(StateRoleSelection, m.State())
	})

	s.Run("patient with display-name email", func() {
		m := s.newMachine(testutil.TestIdentities.Patient)
		_, err := m.SelectRole(ctx, id.RolePatient, "Pat <pat@mail.example>")
		s.Require().Error(err)
		s.Equal(StateRoleSelection, m.State())
	})

	s.Run("unknown role", func() {
		m := s.newMachine(testutil.TestIdentities.Patient)
		_, err := m.SelectRole(ctx, id.Role(0), "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Equal(StateRoleSelection, m.State())
	})

	s.Run("empty organization name", func() {
		m := s.newMachine(testutil.TestIdentities.Hospital)
		_, err := m.SelectRole(ctx, id.RoleHospital, "")
		s.Require().NoError(err)
		_, err = m.SubmitDetails(ctx, "   ", "clinic.example")
		s.Require().ErrorIs(err, ErrOrganizationNameRequired)
		s.Equal(StateDetails, m.State())
	})

	s.Run("malformed domain", func() {
		m := s.newMachine(testutil.TestIdentities.Hospital)
		_, err := m.SelectRole(ctx, id.RoleHospital, "")
		s.Require().NoError(err)
		_, err = m.SubmitDetails(ctx, "General Clinic", "not a domain")
		s.Require().Error(err)
		s.Equal(StateDetails, m.State())
	})

	s.Run("step out of order", func() {
		m := s.newMachine(testutil.TestIdentities.Patient)
		err := m.GenerateProof(ctx)
		s.Require().ErrorIs(err, ErrOutOfOrder)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(StateRoleSelection, m.State())

		_, err = m.SubmitDetails(ctx, "General Clinic", "")
		s.Require().ErrorIs(err, ErrOutOfOrder)
	})

	s.Run("role selected twice", func() {
		m := s.newMachine(testutil.TestIdentities.Patient)
		_, err := m.SelectRole(ctx, id.RolePatient, "pat@mail.example")
		s.Require().NoError(err)
		_, err = m.SelectRole(ctx, id.RolePatient, "pat@mail.example")
		s.Require().ErrorIs(err, ErrOutOfOrder)
		s.Equal(StateEmailSent, m.State())
	})
}

func (s *MachineSuite) TestAwaitEmailFailures() {
	ctx := context.Background()

	s.Run("not arrived is a correlation failure", func() {
		m := s.newMachine(testutil.TestIdentities.Patient)
		_, err := m.SelectRole(ctx, id.RolePatient, "pat@mail.example")
		s.Require().NoError(err)
		s.inbox.EXPECT().AwaitEmail(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(inbox.ErrNotArrived, dErrors.CodeNotArrived, "verification email did not arrive in time"))

		err = m.AwaitEmail(ctx)
		var failed *FailedError
		s.Require().ErrorAs(err, &failed)
		s.Equal(FailureCorrelation, failed.Failure.Kind)
		s.True(failed.Failure.Recoverable)

		snap := m.Snapshot()
		s.Equal(StateError, snap.State)
		s.Equal(FailureCorrelation, snap.Failure.Kind)
	})

	s.Run("subject mismatch is a parsing failure", func() {
		m := s.newMachine(testutil.TestIdentities.Patient)
		_, err := m.SelectRole(ctx, id.RolePatient, "pat@mail.example")
		s.Require().NoError(err)
		s.deliver("pat@mail.example", "hello")

		err = m.AwaitEmail(ctx)
		s.Require().ErrorIs(err, ErrSubjectMismatch)
		s.Equal(StateError, m.State())
		s.Equal(FailureParsing, m.Snapshot().Failure.Kind)
	})

	s.Run("patient sender mismatch is a parsing failure", func() {
		m := s.newMachine(testutil.TestIdentities.Patient)
		instructions, err := m.SelectRole(ctx, id.RolePatient, "pat@mail.example")
		s.Require().NoError(err)
		s.deliver("someone@else.example", instructions.Subject)

		err = m.AwaitEmail(ctx)
		s.Require().ErrorIs(err, ErrSenderMismatch)
		s.Equal(FailureParsing, m.Snapshot().Failure.Kind)
	})

	s.Run("missing From is a parsing failure", func() {
		m := s.newMachine(testutil.TestIdentities.Patient)
		instructions, err := m.SelectRole(ctx, id.RolePatient, "pat@mail.example")
		s.Require().NoError(err)
		s.deliver("", instructions.Subject)

		err = m.AwaitEmail(ctx)
		s.Require().ErrorIs(err, proof.ErrMalformedEmail)
		s.Equal(FailureParsing, m.Snapshot().Failure.Kind)
	})
}

func (s *MachineSuite) TestAwaitEmailCancellationKeepsEmailSent() {
	m := s.newMachine(testutil.TestIdentities.Patient)
	instructions, err := m.SelectRole(context.Background(), id.RolePatient, "pat@mail.example")
	s.Require().NoError(err)

	started := make(chan struct{})
	s.inbox.EXPECT().AwaitEmail(gomock.Any(), instructions.CorrelationID).
		DoAndReturn(func(ctx context.Context, _ id.CorrelationID) (*inbox.Email, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		})

	done := make(chan error, 1)
	go func() { done <- m.AwaitEmail(context.Background()) }()
	<-started

	// A second step while the wait is running is rejected without effect.
	err = m.AwaitEmail(context.Background())
	s.Require().ErrorIs(err, ErrBusy)

	m.Cancel()
	err = <-done
	s.Require().ErrorIs(err, context.Canceled)
	s.Equal(StateEmailSent, m.State())
	s.Nil(m.Snapshot().Failure)

	// The wait can be resumed afterwards.
	s.deliver("pat@mail.example", instructions.Subject)
	s.Require().NoError(m.AwaitEmail(context.Background()))
	s.Equal(StateEmailCollected, m.State())
}

func (s *MachineSuite) TestProofFailures() {
	ctx := context.Background()

	s.Run("domain mismatch is a parsing failure", func() {
		m := s.newMachine(testutil.TestIdentities.Hospital)
		_, err := m.SelectRole(ctx, id.RoleHospital, "")
		s.Require().NoError(err)
		instructions, err := m.SubmitDetails(ctx, "General Clinic", "clinic.example")
		s.Require().NoError(err)
		s.deliver("ops@elsewhere.example", instructions.Subject)
		s.Require().NoError(m.AwaitEmail(ctx))

		err = m.GenerateProof(ctx)
		s.Require().ErrorIs(err, proof.ErrDomainMismatch)
		s.Equal(FailureParsing, m.Snapshot().Failure.Kind)
	})

	s.Run("prover failure is fatal and surfaced verbatim", func() {
		binder := mocks.NewMockBinder(s.ctrl)
		m := NewMachine(testutil.TestIdentities.Patient, Deps{
			Inbox: s.inbox, Binder: binder, Registry: s.registry,
		}, Config{InboxDomain: inboxDomain}, WithLogger(s.logger))
		instructions, err := m.SelectRole(ctx, id.RolePatient, "pat@mail.example")
		s.Require().NoError(err)
		s.deliver("pat@mail.example", instructions.Subject)
		s.Require().NoError(m.AwaitEmail(ctx))

		cause := fmt.Errorf("%w: %w", proof.ErrGenerationFailed, errors.New("DKIM signature missing"))
		binder.EXPECT().Bind(gomock.Any(), gomock.Any(), testutil.TestIdentities.Patient, "").
			Return(nil, dErrors.Wrap(cause, dErrors.CodeProofRejected, "proof generation failed"))

		err = m.GenerateProof(ctx)
		var failed *FailedError
		s.Require().ErrorAs(err, &failed)
		s.Equal(FailureProof, failed.Failure.Kind)
		s.False(failed.Failure.Recoverable)
		s.Contains(failed.Failure.Message, "DKIM signature missing")
		s.Equal(StateError, m.State())
	})
}

func (s *MachineSuite) collected(identity id.Identity, role id.Role, approval ...id.Role) *Machine {
	ctx := context.Background()
	m := s.newMachine(identity, approval...)
	var instructions *Instructions
	var err error
	if role == id.RolePatient {
		instructions, err = m.SelectRole(ctx, role, "pat@mail.example")
		s.Require().NoError(err)
		s.deliver("pat@mail.example", instructions.Subject)
	} else {
		_, err = m.SelectRole(ctx, role, "")
		s.Require().NoError(err)
		instructions, err = m.SubmitDetails(ctx, "General Clinic", "clinic.example")
		s.Require().NoError(err)
		s.deliver("ops@clinic.example", instructions.Subject)
	}
	s.Require().NoError(m.AwaitEmail(ctx))
	s.Require().NoError(m.GenerateProof(ctx))
	return m
}

func (s *MachineSuite) TestSubmitFailures() {
	ctx := context.Background()
	cases := []struct {
		name        string
		err         error
		kind        FailureKind
		recoverable bool
	}{
		{"domain taken", dErrors.Wrap(registry.ErrDomainTaken, dErrors.CodeConflict, "domain taken"), FailureRegistry, false},
		{"duplicate identity", dErrors.Wrap(registry.ErrDuplicateIdentity, dErrors.CodeConflict, "duplicate"), FailureRegistry, false},
		{"proof consumed", dErrors.Wrap(registry.ErrProofConsumed, dErrors.CodeConflict, "consumed"), FailureRegistry, false},
		{"proof rejected", dErrors.Wrap(registry.ErrProofRejected, dErrors.CodeProofRejected, "rejected"), FailureProof, false},
		{"unknown outcome", dErrors.Wrap(registry.ErrUnknownOutcome, dErrors.CodeUnknownOutcome, "unknown"), FailureUnknownOutcome, false},
		{"ledger unavailable", dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeBadGateway, "unavailable"), FailureInternal, true},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			m := s.collected(testutil.TestIdentities.Hospital, id.RoleHospital)
			s.registry.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), id.RoleHospital).Return(nil, tc.err)

			err := m.Submit(ctx)
			var failed *FailedError
			s.Require().ErrorAs(err, &failed)
			s.Equal(tc.kind, failed.Failure.Kind)
			s.Equal(tc.recoverable, failed.Failure.Recoverable)

			snap := m.Snapshot()
			s.Equal(StateError, snap.State)
			s.Equal(StateSubmitted, snap.History[len(snap.History)-2])
		})
	}
}

func (s *MachineSuite) TestReconciledSubmitCompletes() {
	identity := testutil.TestIdentities.Patient
	m := s.collected(identity, id.RolePatient)
	receipt := s.receipt(identity, id.RolePatient)
	receipt.Reconciled = true
	s.registry.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), id.RolePatient).Return(receipt, nil)

	s.Require().NoError(m.Submit(context.Background()))
	s.True(m.Snapshot().Receipt.Reconciled)
	s.Equal(StateComplete, m.State())
}

func (s *MachineSuite) TestCancelDoesNotReachSubmission() {
	identity := testutil.TestIdentities.Patient
	m := s.collected(identity, id.RolePatient)

	started := make(chan struct{})
	release := make(chan struct{})
	s.registry.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), id.RolePatient).
		DoAndReturn(func(ctx context.Context, _ proof.Proof, _ proof.Payload, _ id.Role) (*models.Receipt, error) {
			close(started)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-release:
				return s.receipt(identity, id.RolePatient), nil
			}
		})

	callerCtx, callerCancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Submit(callerCtx) }()
	<-started

	m.Cancel()
	callerCancel()
	select {
	case err := <-done:
		s.FailNow("submission ended early", "err=%v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	s.Require().NoError(<-done)
	s.Equal(StateComplete, m.State())
	s.Equal(OutcomeRegistered, m.Snapshot().Outcome)
}

func (s *MachineSuite) TestApprovalRoleIsFiledWithQueue() {
	identity := testutil.TestIdentities.Hospital
	m := s.collected(identity, id.RoleHospital, id.RoleHospital)
	requestID := id.NewRequestID()
	s.queue.EXPECT().
		SubmitOrganizationRequest(gomock.Any(), identity, id.RoleHospital, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.Identity, _ id.Role, bound proof.Bound) (*adminmodels.Request, error) {
			s.Equal("General Clinic", bound.Payload.OrganizationName)
			return &adminmodels.Request{ID: requestID, Status: adminmodels.StatusPending}, nil
		})

	s.Require().NoError(m.Submit(context.Background()))
	snap := m.Snapshot()
	s.Equal(StateComplete, snap.State)
	s.Equal(OutcomePendingApproval, snap.Outcome)
	s.Equal(requestID, *snap.RequestID)
	s.Nil(snap.Receipt)
}

func (s *MachineSuite) TestPatientApprovalUsesPatientRequest() {
	identity := testutil.TestIdentities.Patient
	m := s.collected(identity, id.RolePatient, id.RolePatient)
	s.queue.EXPECT().SubmitPatientRequest(gomock.Any(), identity, gomock.Any()).
		Return(&adminmodels.Request{ID: id.NewRequestID()}, nil)

	s.Require().NoError(m.Submit(context.Background()))
	s.Equal(OutcomePendingApproval, m.Snapshot().Outcome)
}

func (s *MachineSuite) TestErrorIsAbsorbing() {
	m := s.collected(testutil.TestIdentities.Hospital, id.RoleHospital)
	s.registry.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.Wrap(registry.ErrDomainTaken, dErrors.CodeConflict, "domain taken"))
	s.Require().Error(m.Submit(context.Background()))

	err := m.Submit(context.Background())
	s.Require().ErrorIs(err, ErrOutOfOrder)
	s.Equal(StateError, m.State())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateRoleSelection, StateDetails))
	assert.True(t, CanTransition(StateRoleSelection, StateEmailSent))
	assert.True(t, CanTransition(StateSubmitted, StateComplete))
	assert.True(t, CanTransition(StateEmailCollected, StateError))

	assert.False(t, CanTransition(StateRoleSelection, StateProofGenerated))
	assert.False(t, CanTransition(StateEmailSent, StateRoleSelection))
	assert.False(t, CanTransition(StateComplete, StateError))
	assert.False(t, CanTransition(StateError, StateRoleSelection))
	assert.False(t, CanTransition(StateDetails, StateDetails))
}
