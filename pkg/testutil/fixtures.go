package testutil

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	id "onboard/pkg/domain"
)

// TestIdentities provides fixed wallet identities for deterministic tests.
var TestIdentities = struct {
	Patient    id.Identity
	Hospital   id.Identity
	Insurer    id.Identity
	Admin      id.Identity
	Moderator  id.Identity
	SuperAdmin id.Identity
}{
	Patient:    id.MustIdentity("0x00000000000000000000000000000000000000a1"),
	Hospital:   id.MustIdentity("0x00000000000000000000000000000000000000b1"),
	Insurer:    id.MustIdentity("0x00000000000000000000000000000000000000c1"),
	Admin:      id.MustIdentity("0x00000000000000000000000000000000000000d1"),
	Moderator:  id.MustIdentity("0x00000000000000000000000000000000000000d2"),
	SuperAdmin: id.MustIdentity("0x00000000000000000000000000000000000000d3"),
}

// NewIdentity returns a fresh random wallet identity.
func NewIdentity() id.Identity {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(fmt.Sprintf("generate key: %v", err))
	}
	return id.Identity(crypto.PubkeyToAddress(key.PublicKey))
}

// EmailBuilder builds RFC 5322 messages as the mail service would store them.
type EmailBuilder struct {
	from    string
	to      string
	subject string
	body    string
	extra   []string
}

// NewEmail starts a message from the given sender.
func NewEmail(from string) *EmailBuilder {
	return &EmailBuilder{
		from: from,
		to:   "inbox@verify.onboard.local",
		body: "Please register me.",
	}
}

func (b *EmailBuilder) To(to string) *EmailBuilder {
	b.to = to
	return b
}

func (b *EmailBuilder) Subject(subject string) *EmailBuilder {
	b.subject = subject
	return b
}

func (b *EmailBuilder) Body(body string) *EmailBuilder {
	b.body = body
	return b
}

// Header adds an arbitrary header line, e.g. a DKIM-Signature.
func (b *EmailBuilder) Header(name, value string) *EmailBuilder {
	b.extra = append(b.extra, name+": "+value)
	return b
}

// Raw renders the message with CRLF line endings.
func (b *EmailBuilder) Raw() []byte {
	var sb strings.Builder
	if b.from != "" {
		sb.WriteString("From: " + b.from + "\r\n")
	}
	sb.WriteString("To: " + b.to + "\r\n")
	sb.WriteString("Subject: " + b.subject + "\r\n")
	for _, h := range b.extra {
		sb.WriteString(h + "\r\n")
	}
	sb.WriteString("\r\n")
	sb.WriteString(b.body)
	return []byte(sb.String())
}
