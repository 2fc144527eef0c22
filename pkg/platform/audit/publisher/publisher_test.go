package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "onboard/pkg/platform/audit"
	"onboard/pkg/platform/audit/outbox"
	"onboard/pkg/platform/audit/outbox/store/memory"
	"onboard/pkg/requestcontext"
)

type failingStore struct {
	*memory.Store
	err error
}

func (s *failingStore) Append(context.Context, *outbox.Entry) error {
	return s.err
}

func TestPublisher_EmitAppendsOutboxEntry(t *testing.T) {
	store := memory.New()
	pub := NewPublisher(store)

	err := pub.Emit(context.Background(), audit.Event{
		Action:         string(audit.EventRequestApproved),
		Actor:          "0x00000000000000000000000000000000000000a1",
		AdminRequestID: "r-42",
		Decision:       "approved",
	})
	require.NoError(t, err)

	entries, err := store.FetchUnprocessed(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "admin_request", entries[0].AggregateType)
	assert.Equal(t, "r-42", entries[0].AggregateID)
	assert.Equal(t, string(audit.CategoryCompliance), entries[0].Category)

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(entries[0].Payload, &decoded))
	assert.Equal(t, "approved", decoded.Decision)
}

func TestPublisher_StampsTimestampAndRequestID(t *testing.T) {
	store := memory.New()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pub := NewPublisher(store, WithClock(func() time.Time { return fixed }))

	requestID := uuid.NewString()
	ctx := requestcontext.WithRequestID(context.Background(), requestID)
	require.NoError(t, pub.Emit(ctx, audit.Event{Action: string(audit.EventRegistrationStarted), SessionID: "s-1"}))

	entries, err := store.FetchUnprocessed(context.Background(), 1)
	require.NoError(t, err)
	var decoded audit.Event
	require.NoError(t, json.Unmarshal(entries[0].Payload, &decoded))
	assert.True(t, fixed.Equal(decoded.Timestamp))
	assert.Equal(t, requestID, decoded.RequestID)
}

func TestPublisher_PropagatesStoreError(t *testing.T) {
	pub := NewPublisher(&failingStore{Store: memory.New(), err: errors.New("disk full")})

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventRecordDeactivated)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
