package proof

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "onboard/pkg/domain"
	"onboard/pkg/testutil"
)

func TestLocalProver(t *testing.T) {
	ctx := context.Background()
	prover, err := NewLocalProver([]byte("local-prover-test-key"))
	require.NoError(t, err)

	raw := testutil.NewEmail("alice@clinic.example").Subject("REGISTER HOSPITAL Clinic").Raw()
	identity := testutil.TestIdentities.Hospital
	commitment := id.Commitment{0xa1, 0xce}
	payload := Payload{Identity: identity, Domain: "clinic.example", EmailCommitment: commitment}

	p, err := prover.GenerateProof(ctx, raw, identity, "Clinic.Example", commitment)
	require.NoError(t, err)
	require.Len(t, p.Data, localProofSize)

	t.Run("verifies the payload it was generated for", func(t *testing.T) {
		require.NoError(t, prover.Verify(ctx, *p, payload))
	})

	t.Run("rejects another identity", func(t *testing.T) {
		other := payload
		other.Identity = testutil.TestIdentities.Insurer
		require.ErrorIs(t, prover.Verify(ctx, *p, other), ErrInvalidProof)
	})

	t.Run("rejects another domain", func(t *testing.T) {
		other := payload
		other.Domain = "other.example"
		require.ErrorIs(t, prover.Verify(ctx, *p, other), ErrInvalidProof)
	})

	t.Run("rejects another email commitment", func(t *testing.T) {
		other := payload
		other.EmailCommitment = id.Commitment{0xbe, 0xef}
		require.ErrorIs(t, prover.Verify(ctx, *p, other), ErrInvalidProof)
	})

	t.Run("rejects tampered bytes", func(t *testing.T) {
		tampered := Proof{Data: append([]byte(nil), p.Data...)}
		tampered.Data[len(tampered.Data)-1] ^= 0xff
		require.ErrorIs(t, prover.Verify(ctx, tampered, payload), ErrInvalidProof)
		require.ErrorIs(t, prover.Verify(ctx, Proof{Data: []byte("short")}, payload), ErrInvalidProof)
	})

	t.Run("a different key does not verify", func(t *testing.T) {
		other, err := NewLocalProver([]byte("another-key"))
		require.NoError(t, err)
		require.ErrorIs(t, other.Verify(ctx, *p, payload), ErrInvalidProof)
	})

	t.Run("refuses a sender outside the domain", func(t *testing.T) {
		_, err := prover.GenerateProof(ctx, raw, identity, "insurer.example", commitment)
		require.Error(t, err)
	})

	t.Run("distinct emails give distinct proof ids", func(t *testing.T) {
		again, err := prover.GenerateProof(ctx, testutil.NewEmail("bob@clinic.example").Raw(), identity, "clinic.example", commitment)
		require.NoError(t, err)
		assert.NotEqual(t, p.ID(), again.ID())
	})

	t.Run("requires a key", func(t *testing.T) {
		_, err := NewLocalProver(nil)
		require.Error(t, err)
	})
}
