package session

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Inbox,Binder,Registry,ApprovalQueue

import (
	"context"

	adminmodels "onboard/internal/admin/models"
	"onboard/internal/inbox"
	"onboard/internal/proof"
	"onboard/internal/registry/models"
	id "onboard/pkg/domain"
)

// Inbox waits for the verification email addressed to a correlation mailbox.
type Inbox interface {
	AwaitEmail(ctx context.Context, correlationID id.CorrelationID) (*inbox.Email, error)
	Release(ctx context.Context, correlationID id.CorrelationID) error
}

// Binder turns the collected email into a proof bound to the identity.
type Binder interface {
	Bind(ctx context.Context, raw []byte, identity id.Identity, claimedDomain string) (*proof.Bound, error)
}

// Registry records the participant's role.
type Registry interface {
	Submit(ctx context.Context, p proof.Proof, payload proof.Payload, role id.Role) (*models.Receipt, error)
}

// ApprovalQueue files registrations that need an admin decision first.
type ApprovalQueue interface {
	SubmitPatientRequest(ctx context.Context, requester id.Identity, bound proof.Bound) (*adminmodels.Request, error)
	SubmitOrganizationRequest(ctx context.Context, requester id.Identity, orgType id.Role, bound proof.Bound) (*adminmodels.Request, error)
}
