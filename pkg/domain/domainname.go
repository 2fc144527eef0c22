package domain

import (
	"regexp"
	"strings"

	dErrors "onboard/pkg/domain-errors"
)

// dottedDomain accepts at least two dot-separated LDH labels.
var dottedDomain = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)+$`)

// ParseDomain lowercases and validates an organization domain name.
// A single trailing dot is accepted and dropped.
func ParseDomain(s string) (string, error) {
	d := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
	if d == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "domain cannot be empty")
	}
	if len(d) > 253 || !dottedDomain.MatchString(d) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid domain format")
	}
	return d, nil
}
