package sync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardedMutex_LockUnlock(t *testing.T) {
	m := NewShardedMutex()

	m.Lock("identity-1")
	m.Unlock("identity-1")

	// Empty key falls back to shard 0
	m.Lock("")
	m.Unlock("")
}

func TestShardedMutex_SameKeySerializes(t *testing.T) {
	m := NewShardedMutex()
	counter := 0
	var wg sync.WaitGroup

	for range 100 {
		wg.Go(func() {
			m.Lock("request-1")
			defer m.Unlock("request-1")
			counter++
		})
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestShardedMutex_LockManyOverlappingSets(t *testing.T) {
	m := NewShardedMutex()
	counter := 0
	var wg sync.WaitGroup

	// Opposite key orders would deadlock without ordered acquisition.
	for i := range 200 {
		keys := []string{"identity:0xaaa", "domain:hospital.com", "proof:1"}
		if i%2 == 1 {
			keys = []string{"proof:1", "domain:hospital.com", "identity:0xaaa"}
		}
		wg.Go(func() {
			unlock := m.LockMany(keys...)
			defer unlock()
			counter++
		})
	}
	wg.Wait()

	assert.Equal(t, 200, counter)
}

func TestShardedMutex_LockManyDuplicateShards(t *testing.T) {
	m := NewShardedMutex()

	// The same key twice maps to one shard and must not self-deadlock.
	unlock := m.LockMany("same", "same", "")
	unlock()

	m.Lock("same")
	m.Unlock("same")
}

func TestShardedMutex_ShardDistribution(t *testing.T) {
	m := NewShardedMutex()

	shards := make(map[int]bool)
	keys := []string{"identity:0x01", "identity:0x02", "domain:a.com", "domain:b.org", "proof:aa", "proof:bb"}
	for _, key := range keys {
		shards[m.shardFor(key)] = true
	}

	assert.GreaterOrEqual(t, len(shards), 3, "expected keys to distribute across multiple shards")
}

func TestHashString(t *testing.T) {
	assert.Equal(t, hashString("test"), hashString("test"))
	assert.NotEqual(t, hashString("test1"), hashString("test2"))
	assert.Equal(t, uint32(0), hashString(""))
}
