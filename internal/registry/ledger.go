// Package registry submits proofs to the registry and answers the public
// read queries over it. The registry itself sits behind the Ledger port: an
// in-memory store, a Postgres store or an Ethereum contract.
package registry

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"onboard/internal/registry/models"
	id "onboard/pkg/domain"
)

// Errors returned by Ledger implementations. The service wraps them in
// domain errors, so errors.Is keeps working on what callers receive.
var (
	ErrDuplicateIdentity = errors.New("identity already registered")
	ErrDomainTaken       = errors.New("domain already registered to an active organization")
	ErrProofRejected     = errors.New("proof rejected")
	ErrProofConsumed     = errors.New("proof already consumed")
	ErrUnknownOutcome    = errors.New("registration outcome unknown")
)

// Ledger is the authoritative registry. Every Register call enforces, in one
// transaction: one record per identity, unique domain across active
// organizations, at-most-once proof consumption, and proof verification.
//
// Reads return sentinel.ErrNotFound for unknown identities.
type Ledger interface {
	GetRecord(ctx context.Context, identity id.Identity) (*models.BaseRecord, error)
	GetOrganizationRecord(ctx context.Context, identity id.Identity) (*models.OrganizationRecord, error)
	IsDomainTaken(ctx context.Context, domain string) (bool, error)
	IsProofConsumed(ctx context.Context, proofID common.Hash) (bool, error)
	Stats(ctx context.Context) (*models.Stats, error)

	RegisterPatient(ctx context.Context, reg models.Registration) (*models.Receipt, error)
	RegisterHospital(ctx context.Context, reg models.Registration) (*models.Receipt, error)
	RegisterInsurer(ctx context.Context, reg models.Registration) (*models.Receipt, error)

	// SetActive flips IsActive. Reactivating an organization whose domain is
	// now held by another active organization fails with ErrDomainTaken.
	SetActive(ctx context.Context, identity id.Identity, active bool) error
}
