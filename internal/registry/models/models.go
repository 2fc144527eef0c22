package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"onboard/internal/proof"
	id "onboard/pkg/domain"
)

// BaseRecord is the registry entry every participant gets. There is at most
// one per identity and it is never deleted; only IsActive changes.
type BaseRecord struct {
	Identity             id.Identity   `json:"identity"`
	Role                 id.Role       `json:"role"`
	EmailCommitment      id.Commitment `json:"email_commitment"`
	RegisteredAt         time.Time     `json:"registered_at"`
	IsActive             bool          `json:"is_active"`
	OriginatingRequestID *id.RequestID `json:"originating_request_id,omitempty"`
}

// OrganizationRecord extends BaseRecord for hospitals and insurers.
// Domain is unique across all active organization records of either type.
type OrganizationRecord struct {
	BaseRecord
	OrganizationType id.Role `json:"organization_type"`
	Domain           string  `json:"domain"`
	OrganizationName string  `json:"organization_name"`
}

// Registration is one write request against the registry.
type Registration struct {
	Proof                proof.Proof
	Payload              proof.Payload
	OriginatingRequestID *id.RequestID
}

// BaseRecord builds the record a successful registration stores.
func (r Registration) BaseRecord(role id.Role, now time.Time) BaseRecord {
	return BaseRecord{
		Identity:             r.Payload.Identity,
		Role:                 role,
		EmailCommitment:      r.Payload.EmailCommitment,
		RegisteredAt:         now,
		IsActive:             true,
		OriginatingRequestID: r.OriginatingRequestID,
	}
}

// Receipt confirms a registration. Reconciled is set when the write timed out
// and the outcome was recovered by reading the registry back.
type Receipt struct {
	Identity             id.Identity   `json:"identity"`
	Role                 id.Role       `json:"role"`
	ProofID              common.Hash   `json:"proof_id"`
	TxHash               *common.Hash  `json:"tx_hash,omitempty"`
	RegisteredAt         time.Time     `json:"registered_at"`
	Reconciled           bool          `json:"reconciled"`
	OriginatingRequestID *id.RequestID `json:"originating_request_id,omitempty"`
}

// Stats counts active records. It is derived on every read.
type Stats struct {
	TotalUsers int `json:"total_users"`
	Patients   int `json:"patients"`
	Hospitals  int `json:"hospitals"`
	Insurers   int `json:"insurers"`
}

// Add counts n active records of the given role.
func (s *Stats) Add(role id.Role, n int) {
	switch role {
	case id.RolePatient:
		s.Patients += n
	case id.RoleHospital:
		s.Hospitals += n
	case id.RoleInsurer:
		s.Insurers += n
	default:
		return
	}
	s.TotalUsers += n
}
