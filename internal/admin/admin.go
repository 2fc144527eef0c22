// Package admin is the approval queue for registrations and privileged
// access. Every request is decided exactly once by an authorized admin.
package admin

//go:generate mockgen -source=admin.go -destination=mocks/mocks.go -package=mocks Store,Tx,Registry

import (
	"context"
	"errors"

	"onboard/internal/admin/models"
	"onboard/internal/proof"
	regmodels "onboard/internal/registry/models"
	id "onboard/pkg/domain"
)

var (
	// ErrAlreadyProcessed means the request left PENDING before this decision.
	ErrAlreadyProcessed = errors.New("request already processed")
	// ErrPendingExists means the requester already has a pending request of this type.
	ErrPendingExists    = errors.New("a pending request of this type already exists")
	ErrNotAdmin         = errors.New("caller is not an active admin")
	ErrInsufficientRole = errors.New("admin role does not allow this action")
	ErrSelfApproval     = errors.New("admins cannot process their own requests")
	ErrReasonRequired   = errors.New("a rejection reason is required")
)

// Tx is the store view available inside Process.
type Tx interface {
	FindAdmin(ctx context.Context, identity id.Identity) (*models.AdminRecord, error)
	UpsertAdmin(ctx context.Context, record *models.AdminRecord) error
}

// Store persists requests and admin records.
type Store interface {
	// CreateRequest inserts a PENDING request. It returns ErrPendingExists
	// when the requester already has one of the same type.
	CreateRequest(ctx context.Context, req *models.Request) error
	FindRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	ListPending(ctx context.Context, filter models.RequestFilter) ([]*models.Request, error)
	// Process locks a PENDING request and runs fn in one transaction. fn
	// decides the request by mutating it; the new status is written only if
	// the row is still PENDING. If fn fails nothing is written. A request that
	// is not PENDING yields ErrAlreadyProcessed without calling fn.
	Process(ctx context.Context, requestID id.RequestID, fn func(ctx context.Context, tx Tx, req *models.Request) error) (*models.Request, error)
	FindAdmin(ctx context.Context, identity id.Identity) (*models.AdminRecord, error)
	UpsertAdmin(ctx context.Context, record *models.AdminRecord) error
}

// Registry is the registry client as seen by approvals.
type Registry interface {
	SubmitForRequest(ctx context.Context, requestID id.RequestID, p proof.Proof, payload proof.Payload, role id.Role) (*regmodels.Receipt, error)
	SetActive(ctx context.Context, identity id.Identity, active bool) error
}
