package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	dErrors "onboard/pkg/domain-errors"
)

// Identity is a participant's wallet address. It is the primary key for a
// participant everywhere in the system. The zero value means no wallet is
// connected.
type Identity common.Address

// ParseIdentity parses a 0x-prefixed or bare 40-character hex wallet address.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "identity cannot be empty")
	}
	if !common.IsHexAddress(s) {
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "invalid identity format")
	}
	return Identity(common.HexToAddress(s)), nil
}

// MustIdentity is ParseIdentity for constants and tests. It panics on bad input.
func MustIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Address returns the go-ethereum address form.
func (i Identity) Address() common.Address { return common.Address(i) }

// String returns the EIP-55 checksummed hex form.
func (i Identity) String() string { return common.Address(i).Hex() }

// IsZero reports whether no wallet is connected.
func (i Identity) IsZero() bool { return common.Address(i) == (common.Address{}) }

func (i Identity) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

func (i *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
