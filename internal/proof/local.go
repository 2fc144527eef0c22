package proof

import (
	"bytes"
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	id "onboard/pkg/domain"
)

const (
	localProofVersion = 0x01
	localProofSize    = 1 + 20 + 32 + 32
)

// LocalProver issues HMAC-SHA3-256 proofs in process. It stands in for the
// proving service in development and tests: it checks that the sender
// domain matches, and does not verify DKIM.
//
// Layout: version(1) | identity(20) | sha3(email)(32) | mac(32). The mac
// covers identity, domain, email digest and email commitment.
type LocalProver struct {
	key []byte
}

func NewLocalProver(key []byte) (*LocalProver, error) {
	if len(key) == 0 {
		return nil, errors.New("local prover key is required")
	}
	return &LocalProver{key: append([]byte(nil), key...)}, nil
}

func (p *LocalProver) GenerateProof(ctx context.Context, emailContent []byte, identity id.Identity, domain string, commitment id.Commitment) (*Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parsed, err := ParseEmail(emailContent)
	if err != nil {
		return nil, err
	}
	domain = strings.ToLower(domain)
	if parsed.Domain != domain {
		return nil, fmt.Errorf("sender domain %q is not %q", parsed.Domain, domain)
	}

	digest := sha3.Sum256(emailContent)
	data := make([]byte, 0, localProofSize)
	data = append(data, localProofVersion)
	data = append(data, identity.Address().Bytes()...)
	data = append(data, digest[:]...)
	data = append(data, p.mac(identity, domain, digest[:], commitment)...)
	return &Proof{Data: data}, nil
}

func (p *LocalProver) Verify(ctx context.Context, proof Proof, payload Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(proof.Data) != localProofSize || proof.Data[0] != localProofVersion {
		return fmt.Errorf("%w: unrecognized proof encoding", ErrInvalidProof)
	}
	identity := proof.Data[1:21]
	digest := proof.Data[21:53]
	mac := proof.Data[53:]

	if !bytes.Equal(identity, payload.Identity.Address().Bytes()) {
		return fmt.Errorf("%w: identity mismatch", ErrInvalidProof)
	}
	if !hmac.Equal(mac, p.mac(payload.Identity, strings.ToLower(payload.Domain), digest, payload.EmailCommitment)) {
		return fmt.Errorf("%w: domain or email commitment mismatch", ErrInvalidProof)
	}
	return nil
}

func (p *LocalProver) mac(identity id.Identity, domain string, digest []byte, commitment id.Commitment) []byte {
	h := hmac.New(sha3.New256, p.key)
	h.Write(identity.Address().Bytes())
	h.Write([]byte{byte(len(domain))})
	h.Write([]byte(domain))
	h.Write(digest)
	h.Write(commitment[:])
	return h.Sum(nil)
}

var (
	_ Prover   = (*LocalProver)(nil)
	_ Verifier = (*LocalProver)(nil)
)
