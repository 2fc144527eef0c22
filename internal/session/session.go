// Package session drives one participant through registration: role
// selection, the verification email round trip, proof generation and the
// registry submission.
package session

import (
	"errors"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"onboard/internal/inbox"
	"onboard/internal/proof"
	"onboard/internal/registry/models"
	id "onboard/pkg/domain"
)

// State is a registration step.
type State string

const (
	StateRoleSelection  State = "ROLE_SELECTION"
	StateDetails        State = "DETAILS"
	StateEmailSent      State = "EMAIL_SENT"
	StateEmailCollected State = "EMAIL_COLLECTED"
	StateProofGenerated State = "PROOF_GENERATED"
	StateSubmitted      State = "SUBMITTED"
	StateComplete       State = "COMPLETE"
	StateError          State = "ERROR"
)

// edges lists the forward transitions. ERROR is reachable from every
// non-terminal state and is not listed.
var edges = map[State][]State{
	StateRoleSelection:  {StateDetails, StateEmailSent},
	StateDetails:        {StateEmailSent},
	StateEmailSent:      {StateEmailCollected},
	StateEmailCollected: {StateProofGenerated},
	StateProofGenerated: {StateSubmitted},
	StateSubmitted:      {StateComplete},
}

func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateError
}

// CanTransition reports whether the edge table allows from → to.
func CanTransition(from, to State) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StateError {
		return true
	}
	return slices.Contains(edges[from], to)
}

// Outcome records how a completed session ended.
type Outcome string

const (
	OutcomeNone            Outcome = ""
	OutcomeRegistered      Outcome = "REGISTERED"
	OutcomePendingApproval Outcome = "PENDING_APPROVAL"
)

var (
	ErrWalletNotConnected       = errors.New("wallet not connected")
	ErrEmailRequired            = errors.New("sender email is required")
	ErrOrganizationNameRequired = errors.New("organization name is required")
	ErrOutOfOrder               = errors.New("step invoked out of order")
	ErrBusy                     = errors.New("another step is running")
	ErrInvalidTransition        = errors.New("invalid state transition")
	ErrSubjectMismatch          = errors.New("email subject does not match")
	ErrSenderMismatch           = errors.New("email sender does not match")
	ErrNotFound                 = errors.New("registration session not found")
)

// Instructions tell the participant where to send the verification email.
type Instructions struct {
	CorrelationID id.CorrelationID `json:"correlation_id"`
	Mailbox       string           `json:"mailbox"`
	Subject       string           `json:"subject"`
}

// Session is an ephemeral registration held in process memory.
type Session struct {
	ID               id.SessionID      `json:"id"`
	Identity         id.Identity       `json:"identity"`
	Role             id.Role           `json:"role,omitempty"`
	OrganizationName string            `json:"organization_name,omitempty"`
	Domain           string            `json:"domain,omitempty"`
	Email            string            `json:"-"`
	State            State             `json:"state"`
	CorrelationID    *id.CorrelationID `json:"correlation_id,omitempty"`
	Mailbox          string            `json:"mailbox,omitempty"`
	Subject          string            `json:"subject,omitempty"`
	Collected        *inbox.Email      `json:"-"`
	Bound            *proof.Bound      `json:"-"`
	ProofID          *common.Hash      `json:"proof_id,omitempty"`
	Receipt          *models.Receipt   `json:"receipt,omitempty"`
	RequestID        *id.RequestID     `json:"request_id,omitempty"`
	Outcome          Outcome           `json:"outcome,omitempty"`
	Failure          *Failure          `json:"failure,omitempty"`
	History          []State           `json:"history"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Instructions returns the email instructions once they have been issued.
func (s *Session) Instructions() *Instructions {
	if s.CorrelationID == nil {
		return nil
	}
	return &Instructions{
		CorrelationID: *s.CorrelationID,
		Mailbox:       s.Mailbox,
		Subject:       s.Subject,
	}
}

func (s *Session) visited(state State) bool {
	return slices.Contains(s.History, state)
}

func (s *Session) clone() *Session {
	c := *s
	c.History = slices.Clone(s.History)
	if s.Failure != nil {
		f := *s.Failure
		c.Failure = &f
	}
	return &c
}
