package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "onboard/pkg/domain"
	"onboard/pkg/testutil"
)

func TestInMemoryClaimStoreFirstObservedWins(t *testing.T) {
	store := NewInMemoryClaimStore()
	cid := id.NewCorrelationID()
	ctx := context.Background()

	first, err := store.Claim(ctx, cid, []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(first))

	second, err := store.Claim(ctx, cid, []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(second))
}

func TestInMemoryClaimStoreConcurrentClaimsAgree(t *testing.T) {
	store := NewInMemoryClaimStore()
	cid := id.NewCorrelationID()
	results := make([]string, 20)

	res := testutil.RunConcurrent(20, func(idx int) error {
		got, err := store.Claim(context.Background(), cid, []byte(fmt.Sprintf("msg-%d", idx)))
		results[idx] = string(got)
		return err
	})

	require.Equal(t, int32(20), res.Successes)
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestInMemoryClaimStoreForget(t *testing.T) {
	store := NewInMemoryClaimStore()
	cid := id.NewCorrelationID()
	ctx := context.Background()

	_, err := store.Claim(ctx, cid, []byte("first"))
	require.NoError(t, err)
	require.NoError(t, store.Forget(ctx, cid))

	got, err := store.Claim(ctx, cid, []byte("again"))
	require.NoError(t, err)
	assert.Equal(t, "again", string(got))
}
