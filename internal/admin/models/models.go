// Package models holds the admin request queue records.
package models

import (
	"time"

	"onboard/internal/proof"
	id "onboard/pkg/domain"
)

// RequestType names the kind of action a request asks an admin to approve.
type RequestType string

const (
	RequestPatientRegistration      RequestType = "PATIENT_REGISTRATION"
	RequestOrganizationRegistration RequestType = "ORGANIZATION_REGISTRATION"
	RequestAdminAccess              RequestType = "ADMIN_ACCESS"
)

func ParseRequestType(s string) (RequestType, bool) {
	switch t := RequestType(s); t {
	case RequestPatientRegistration, RequestOrganizationRegistration, RequestAdminAccess:
		return t, true
	default:
		return "", false
	}
}

// MinimumAdminRole is the lowest admin role allowed to process requests of this type.
func (t RequestType) MinimumAdminRole() id.AdminRole {
	switch t {
	case RequestAdminAccess:
		return id.AdminModerator
	default:
		return id.AdminBasic
	}
}

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// PatientRegistration carries what approval needs to register a patient on
// the requester's behalf.
type PatientRegistration struct {
	EmailCommitment id.Commitment `json:"email_commitment"`
	Domain          string        `json:"domain"`
	Proof           proof.Proof   `json:"proof"`
}

type OrganizationRegistration struct {
	OrganizationType id.Role       `json:"organization_type"`
	Domain           string        `json:"domain"`
	OrganizationName string        `json:"organization_name"`
	EmailCommitment  id.Commitment `json:"email_commitment"`
	Proof            proof.Proof   `json:"proof"`
}

type AdminAccess struct {
	AdminRole id.AdminRole `json:"admin_role"`
	Reason    string       `json:"reason"`
}

// Request is one entry in the approval queue. Exactly one payload is set,
// matching Type. A request leaves PENDING once and is never mutated again.
type Request struct {
	ID              id.RequestID `json:"id"`
	Requester       id.Identity  `json:"requester"`
	Type            RequestType  `json:"type"`
	Status          Status       `json:"status"`
	RequestTime     time.Time    `json:"request_time"`
	ProcessedBy     *id.Identity `json:"processed_by,omitempty"`
	ProcessedTime   *time.Time   `json:"processed_time,omitempty"`
	RejectionReason string       `json:"rejection_reason,omitempty"`

	Patient      *PatientRegistration      `json:"patient,omitempty"`
	Organization *OrganizationRegistration `json:"organization,omitempty"`
	AdminAccess  *AdminAccess              `json:"admin_access,omitempty"`
}

func (r *Request) IsPending() bool {
	return r.Status == StatusPending
}

// Role is the participant role a registration request grants.
func (r *Request) Role() id.Role {
	switch {
	case r.Patient != nil:
		return id.RolePatient
	case r.Organization != nil:
		return r.Organization.OrganizationType
	default:
		return 0
	}
}

// Registration rebuilds the proof and payload submitted on approval.
func (r *Request) Registration() (proof.Proof, proof.Payload, bool) {
	switch {
	case r.Patient != nil:
		return r.Patient.Proof, proof.Payload{
			Identity:        r.Requester,
			Domain:          r.Patient.Domain,
			EmailCommitment: r.Patient.EmailCommitment,
		}, true
	case r.Organization != nil:
		return r.Organization.Proof, proof.Payload{
			Identity:         r.Requester,
			Domain:           r.Organization.Domain,
			EmailCommitment:  r.Organization.EmailCommitment,
			OrganizationName: r.Organization.OrganizationName,
		}, true
	default:
		return proof.Proof{}, proof.Payload{}, false
	}
}

// Approve stamps the request as approved by admin.
func (r *Request) Approve(admin id.Identity, now time.Time) {
	r.Status = StatusApproved
	r.ProcessedBy = &admin
	r.ProcessedTime = &now
}

func (r *Request) Reject(admin id.Identity, reason string, now time.Time) {
	r.Status = StatusRejected
	r.ProcessedBy = &admin
	r.ProcessedTime = &now
	r.RejectionReason = reason
}

// Permissions is a bitset of admin capabilities.
type Permissions uint32

const (
	PermProcessRegistrations Permissions = 1 << iota
	PermProcessAdminAccess
	PermDeactivateRecords
	PermGrantSuperAdmin
)

// PermissionsFor returns the capabilities an admin role carries.
func PermissionsFor(role id.AdminRole) Permissions {
	switch role {
	case id.AdminBasic:
		return PermProcessRegistrations
	case id.AdminModerator:
		return PermProcessRegistrations | PermProcessAdminAccess | PermDeactivateRecords
	case id.AdminSuperAdmin:
		return PermProcessRegistrations | PermProcessAdminAccess | PermDeactivateRecords | PermGrantSuperAdmin
	default:
		return 0
	}
}

func (p Permissions) Has(perm Permissions) bool {
	return p&perm == perm
}

// AdminRecord is an identity's administrative standing. It is separate from
// the participant registry.
type AdminRecord struct {
	Identity    id.Identity  `json:"identity"`
	IsActive    bool         `json:"is_active"`
	Role        id.AdminRole `json:"role"`
	Permissions Permissions  `json:"permissions"`
	AdminSince  time.Time    `json:"admin_since"`
}

// CanProcess reports whether the admin may decide requests of type t.
func (a *AdminRecord) CanProcess(t RequestType) bool {
	return a != nil && a.IsActive && a.Role.AtLeast(t.MinimumAdminRole())
}

// Grant raises the record to role. It never lowers it and keeps AdminSince.
func (a *AdminRecord) Grant(role id.AdminRole) {
	a.IsActive = true
	if role > a.Role {
		a.Role = role
	}
	a.Permissions = PermissionsFor(a.Role)
}

// RequestFilter narrows ListPending. A zero Type matches every type.
type RequestFilter struct {
	Type RequestType
}
