package producer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRecordOrdersHeaders(t *testing.T) {
	rec := toRecord(&Message{
		Topic: "audit",
		Key:   []byte("k"),
		Value: []byte("v"),
		Headers: map[string]string{
			"event_type":     "request_approved",
			"aggregate_type": "admin_request",
			"category":       "compliance",
		},
	})

	require.Len(t, rec.Headers, 3)
	assert.Equal(t, "aggregate_type", rec.Headers[0].Key)
	assert.Equal(t, "category", rec.Headers[1].Key)
	assert.Equal(t, "event_type", rec.Headers[2].Key)
	assert.Equal(t, "audit", rec.Topic)
}

func TestNewRequiresBrokers(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestNoopProducerDiscards(t *testing.T) {
	p := NewNoopProducer(nil)
	require.NoError(t, p.Produce(context.Background(), &Message{Topic: "audit"}))
	require.NoError(t, p.Close())
}
