package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, splitBrokers(""))
}

func TestNewAdminRequiresBrokers(t *testing.T) {
	_, err := NewAdmin(" , ")
	require.Error(t, err)

	admin, err := NewAdmin("localhost:9092")
	require.NoError(t, err)
	assert.NoError(t, admin.Close())
}
