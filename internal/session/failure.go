package session

import (
	"errors"

	"onboard/internal/inbox"
	"onboard/internal/proof"
	"onboard/internal/registry"
	dErrors "onboard/pkg/domain-errors"
)

// FailureKind groups step failures by what the participant can do next.
type FailureKind string

const (
	FailureCorrelation    FailureKind = "correlation"
	FailureParsing        FailureKind = "parsing"
	FailureProof          FailureKind = "proof"
	FailureRegistry       FailureKind = "registry"
	FailureUnknownOutcome FailureKind = "unknown_outcome"
	FailureInternal       FailureKind = "internal"
)

// Failure is the user-facing account of why a session entered ERROR.
type Failure struct {
	Kind        FailureKind `json:"kind"`
	Message     string      `json:"message"`
	Recoverable bool        `json:"recoverable"`
}

// FailedError is returned by a step that moved the session to ERROR.
type FailedError struct {
	Failure Failure
	Err     error
}

func (e *FailedError) Error() string { return e.Err.Error() }

func (e *FailedError) Unwrap() error { return e.Err }

// Classify maps a step error to the message shown to the participant.
func Classify(err error) Failure {
	switch {
	case errors.Is(err, inbox.ErrNotArrived):
		return Failure{
			Kind:        FailureCorrelation,
			Message:     "The verification email did not arrive. Restart registration to get a new address and send it again.",
			Recoverable: true,
		}
	case errors.Is(err, inbox.ErrFetchFailed):
		return Failure{
			Kind:        FailureCorrelation,
			Message:     "The mail service could not be reached. Restart registration and try again.",
			Recoverable: true,
		}
	case errors.Is(err, ErrSubjectMismatch):
		return Failure{
			Kind:        FailureParsing,
			Message:     "The email subject did not match the one we asked for. Restart and send the email with the exact subject.",
			Recoverable: true,
		}
	case errors.Is(err, ErrSenderMismatch):
		return Failure{
			Kind:        FailureParsing,
			Message:     "The email was not sent from the address you entered. Restart and send it from that address.",
			Recoverable: true,
		}
	case errors.Is(err, proof.ErrDomainMismatch):
		return Failure{
			Kind:        FailureParsing,
			Message:     "The email was not sent from your organization's domain. Restart and send it from an address under that domain.",
			Recoverable: true,
		}
	case errors.Is(err, proof.ErrMalformedEmail):
		return Failure{
			Kind:        FailureParsing,
			Message:     "The email could not be read. Restart and send a plain email from your address.",
			Recoverable: true,
		}
	case errors.Is(err, proof.ErrGenerationFailed), errors.Is(err, registry.ErrProofRejected):
		return Failure{
			Kind:    FailureProof,
			Message: detail(err),
		}
	case errors.Is(err, registry.ErrDuplicateIdentity):
		return Failure{
			Kind:    FailureRegistry,
			Message: "This wallet is already registered. Contact support if you believe this is wrong.",
		}
	case errors.Is(err, registry.ErrDomainTaken):
		return Failure{
			Kind:    FailureRegistry,
			Message: "Another organization already holds this domain. Contact support to resolve ownership.",
		}
	case errors.Is(err, registry.ErrProofConsumed):
		return Failure{
			Kind:    FailureRegistry,
			Message: "This verification has already been used. Contact support.",
		}
	case errors.Is(err, registry.ErrUnknownOutcome):
		return Failure{
			Kind:    FailureUnknownOutcome,
			Message: "We could not confirm whether your registration was recorded. Check your registration status before trying again.",
		}
	case dErrors.HasCode(err, dErrors.CodeConflict):
		return Failure{
			Kind:    FailureRegistry,
			Message: detail(err),
		}
	default:
		return Failure{
			Kind:        FailureInternal,
			Message:     "Something went wrong on our side. Restart registration and try again.",
			Recoverable: true,
		}
	}
}

// detail is the message beneath any domain error wrapper, so a prover or
// registry reason reaches the participant unchanged.
func detail(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Err != nil {
		return de.Err.Error()
	}
	return err.Error()
}
