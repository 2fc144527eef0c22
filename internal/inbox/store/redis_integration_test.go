//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"onboard/internal/inbox/store"
	id "onboard/pkg/domain"
	"onboard/pkg/testutil"
	"onboard/pkg/testutil/containers"
)

type RedisClaimStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisClaimStore
}

func TestRedisClaimStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisClaimStoreSuite))
}

func (s *RedisClaimStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedisClaimStore(s.redis.Client, time.Minute)
}

func (s *RedisClaimStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisClaimStoreSuite) TestFirstObservedWins() {
	ctx := context.Background()
	cid := id.NewCorrelationID()

	got, err := s.store.Claim(ctx, cid, []byte("first"))
	s.Require().NoError(err)
	s.Equal("first", string(got))

	got, err = s.store.Claim(ctx, cid, []byte("second"))
	s.Require().NoError(err)
	s.Equal("first", string(got))
}

func (s *RedisClaimStoreSuite) TestConcurrentClaimsAgree() {
	cid := id.NewCorrelationID()
	seen := make([]string, 16)

	res := testutil.RunConcurrent(16, func(idx int) error {
		got, err := s.store.Claim(context.Background(), cid, []byte{byte('a' + idx)})
		seen[idx] = string(got)
		return err
	})

	s.Equal(int32(16), res.Successes)
	for _, v := range seen {
		s.Equal(seen[0], v)
	}
}

func (s *RedisClaimStoreSuite) TestClaimExpires() {
	ctx := context.Background()
	short := store.NewRedisClaimStore(s.redis.Client, 50*time.Millisecond)
	cid := id.NewCorrelationID()

	_, err := short.Claim(ctx, cid, []byte("first"))
	s.Require().NoError(err)
	time.Sleep(150 * time.Millisecond)

	got, err := short.Claim(ctx, cid, []byte("later"))
	s.Require().NoError(err)
	s.Equal("later", string(got))
}
