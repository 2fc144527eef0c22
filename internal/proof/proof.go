// Package proof turns a collected verification email into a proof that binds
// a wallet identity to the sender's domain, plus the registration payload the
// registry stores next to it.
package proof

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	id "onboard/pkg/domain"
)

var (
	// ErrMalformedEmail means the message or its From address could not be parsed strictly.
	ErrMalformedEmail = errors.New("malformed verification email")
	// ErrDomainMismatch means the sender's domain differs from the claimed organization domain.
	ErrDomainMismatch = errors.New("email domain does not match claimed domain")
	// ErrGenerationFailed means the proving service refused or failed to produce a proof.
	ErrGenerationFailed = errors.New("proof generation failed")
	// ErrInvalidProof means a proof does not bind the payload's identity and domain.
	ErrInvalidProof = errors.New("proof does not bind payload")
)

// Proof is the opaque artifact issued by the proving service.
type Proof struct {
	Data []byte `json:"data"`
}

// ID is the Keccak-256 digest of the proof bytes. The registry keys
// at-most-once consumption on it.
func (p Proof) ID() common.Hash {
	return crypto.Keccak256Hash(p.Data)
}

func (p Proof) IsEmpty() bool {
	return len(p.Data) == 0
}

// Payload is what a registration writes to the registry. It never carries
// the raw email address, only its commitment.
type Payload struct {
	Identity         id.Identity   `json:"identity"`
	Domain           string        `json:"domain"`
	EmailCommitment  id.Commitment `json:"email_commitment"`
	OrganizationName string        `json:"organization_name,omitempty"`
}

// Bound is the result of binding one email to one identity.
type Bound struct {
	Proof   Proof
	Payload Payload
}

// Prover generates proofs from raw email content.
type Prover interface {
	GenerateProof(ctx context.Context, emailContent []byte, identity id.Identity, domain string, commitment id.Commitment) (*Proof, error)
}

// Verifier checks that a proof binds the payload's identity and domain.
// It returns ErrInvalidProof when it does not.
type Verifier interface {
	Verify(ctx context.Context, proof Proof, payload Payload) error
}
