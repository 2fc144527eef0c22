package domain

import (
	"encoding/hex"
	"strings"

	dErrors "onboard/pkg/domain-errors"
)

// Commitment is the opaque one-way digest that stands in for an email address
// wherever the registry would otherwise store it.
type Commitment [32]byte

func ParseCommitment(s string) (Commitment, error) {
	var c Commitment
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil || len(raw) != len(c) {
		return c, dErrors.New(dErrors.CodeInvalidInput, "invalid commitment format")
	}
	copy(c[:], raw)
	return c, nil
}

// Hex returns the 0x-prefixed hex form.
func (c Commitment) Hex() string { return "0x" + hex.EncodeToString(c[:]) }

func (c Commitment) String() string { return c.Hex() }

func (c Commitment) IsZero() bool { return c == Commitment{} }

func (c Commitment) MarshalText() ([]byte, error) { return []byte(c.Hex()), nil }

func (c *Commitment) UnmarshalText(text []byte) error {
	parsed, err := ParseCommitment(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
