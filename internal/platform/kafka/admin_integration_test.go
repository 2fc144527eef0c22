//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"onboard/internal/platform/kafka"
	"onboard/pkg/testutil/containers"
)

func TestAdminAgainstBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	broker := containers.GetManager().GetKafka(t)
	admin, err := kafka.NewAdmin(broker.Brokers)
	require.NoError(t, err)
	t.Cleanup(func() { _ = admin.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	require.NoError(t, admin.Check(ctx))
	require.NoError(t, admin.EnsureTopic(ctx, "onboard-admin-it", 1, 1))
	require.NoError(t, admin.EnsureTopic(ctx, "onboard-admin-it", 1, 1), "existing topic is not an error")
}
