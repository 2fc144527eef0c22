package domain

import (
	"strings"

	dErrors "onboard/pkg/domain-errors"
)

// Role is the closed set of participant roles a registry record can carry.
// The zero value is not a role; callers must switch exhaustively over the
// three defined values.
type Role uint8

const (
	RolePatient Role = iota + 1
	RoleHospital
	RoleInsurer
)

// Roles lists every participant role in ledger order.
var Roles = []Role{RolePatient, RoleHospital, RoleInsurer}

// ParseRole accepts the canonical upper-case name in any case.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PATIENT":
		return RolePatient, nil
	case "HOSPITAL":
		return RoleHospital, nil
	case "INSURER":
		return RoleInsurer, nil
	default:
		return 0, dErrors.New(dErrors.CodeInvalidInput, "unknown role: "+s)
	}
}

func (r Role) String() string {
	switch r {
	case RolePatient:
		return "PATIENT"
	case RoleHospital:
		return "HOSPITAL"
	case RoleInsurer:
		return "INSURER"
	default:
		return "NONE"
	}
}

// IsValid reports whether r is one of the defined roles.
func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleHospital, RoleInsurer:
		return true
	default:
		return false
	}
}

// IsOrganization is true for roles that register an organization record.
func (r Role) IsOrganization() bool {
	return r == RoleHospital || r == RoleInsurer
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// AdminRole orders administrative privilege: BASIC < MODERATOR < SUPER_ADMIN.
type AdminRole uint8

const (
	AdminBasic AdminRole = iota + 1
	AdminModerator
	AdminSuperAdmin
)

func ParseAdminRole(s string) (AdminRole, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BASIC":
		return AdminBasic, nil
	case "MODERATOR":
		return AdminModerator, nil
	case "SUPER_ADMIN":
		return AdminSuperAdmin, nil
	default:
		return 0, dErrors.New(dErrors.CodeInvalidInput, "unknown admin role: "+s)
	}
}

func (r AdminRole) String() string {
	switch r {
	case AdminBasic:
		return "BASIC"
	case AdminModerator:
		return "MODERATOR"
	case AdminSuperAdmin:
		return "SUPER_ADMIN"
	default:
		return "NONE"
	}
}

func (r AdminRole) IsValid() bool {
	return r >= AdminBasic && r <= AdminSuperAdmin
}

// AtLeast reports whether r grants at least the privilege of min.
func (r AdminRole) AtLeast(min AdminRole) bool {
	return r.IsValid() && r >= min
}

func (r AdminRole) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *AdminRole) UnmarshalText(text []byte) error {
	parsed, err := ParseAdminRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
