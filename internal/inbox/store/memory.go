package store

import (
	"context"
	"sync"

	id "onboard/pkg/domain"
)

// InMemoryClaimStore keeps the first message seen per correlation id.
type InMemoryClaimStore struct {
	mu     sync.Mutex
	claims map[id.CorrelationID][]byte
}

func NewInMemoryClaimStore() *InMemoryClaimStore {
	return &InMemoryClaimStore{claims: make(map[id.CorrelationID][]byte)}
}

func (s *InMemoryClaimStore) Claim(_ context.Context, correlationID id.CorrelationID, raw []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.claims[correlationID]; ok {
		return stored, nil
	}
	cp := append([]byte(nil), raw...)
	s.claims[correlationID] = cp
	return cp, nil
}

// Forget drops a claim once its session is gone.
func (s *InMemoryClaimStore) Forget(_ context.Context, correlationID id.CorrelationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, correlationID)
	return nil
}
