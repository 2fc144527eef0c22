package proof

import (
	"bytes"
	"fmt"
	"mime"
	"net/mail"
	"regexp"
	"strings"
)

// strictAddress is local-part@dotted.domain with no display name, comments
// or quoted local parts.
var strictAddress = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)+$`)

var headerDecoder = new(mime.WordDecoder)

// ParsedEmail holds the header fields the registration flow relies on.
type ParsedEmail struct {
	From    string // sender address, as written
	Domain  string // lowercased part after '@'
	Subject string // RFC 2047 decoded
}

// ParseEmail reads an RFC 5322 message and extracts its sender and subject.
// Errors wrap ErrMalformedEmail.
func ParseEmail(raw []byte) (*ParsedEmail, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEmail, err)
	}

	from := msg.Header.Get("From")
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("%w: missing From header", ErrMalformedEmail)
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable From header", ErrMalformedEmail)
	}
	if !strictAddress.MatchString(addr.Address) {
		return nil, fmt.Errorf("%w: sender address is not local-part@dotted.domain", ErrMalformedEmail)
	}

	at := strings.LastIndexByte(addr.Address, '@')
	subject := msg.Header.Get("Subject")
	if decoded, err := headerDecoder.DecodeHeader(subject); err == nil {
		subject = decoded
	}

	return &ParsedEmail{
		From:    addr.Address,
		Domain:  strings.ToLower(addr.Address[at+1:]),
		Subject: strings.TrimSpace(subject),
	}, nil
}

// ValidAddress reports whether s is a bare local-part@dotted.domain address.
func ValidAddress(s string) bool {
	return strictAddress.MatchString(s)
}
