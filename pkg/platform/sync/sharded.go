package sync

import (
	"slices"
	"sync"
)

// ShardedMutex provides fine-grained locking using sharded mutexes.
// Operations are distributed across N shards based on a hash of the resource
// key, so unrelated keys rarely contend.
type ShardedMutex struct {
	shards [32]sync.Mutex
}

// NewShardedMutex creates a new ShardedMutex with 32 shards.
func NewShardedMutex() *ShardedMutex {
	return &ShardedMutex{}
}

// Lock acquires the lock for the given key's shard.
// Empty keys default to shard 0.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the lock for the given key's shard.
func (m *ShardedMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

// LockMany acquires the shards of every key at once and returns the matching
// unlock function. Shards are taken in ascending order and each shard only
// once, so two callers locking overlapping key sets cannot deadlock.
func (m *ShardedMutex) LockMany(keys ...string) (unlock func()) {
	shards := make([]int, 0, len(keys))
	for _, key := range keys {
		shards = append(shards, m.shardFor(key))
	}
	slices.Sort(shards)
	shards = slices.Compact(shards)

	for _, shard := range shards {
		m.shards[shard].Lock()
	}
	return func() {
		for i := len(shards) - 1; i >= 0; i-- {
			m.shards[shards[i]].Unlock()
		}
	}
}

// shardFor returns the shard index for the given key.
func (m *ShardedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % uint32(len(m.shards)))
}

// hashString provides a simple multiplicative hash for shard selection.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
