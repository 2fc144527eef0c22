package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"onboard/internal/proof"
	"onboard/internal/registry"
	"onboard/internal/registry/models"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/sentinel"
	platformsync "onboard/pkg/platform/sync"
)

// InMemory is a Ledger held in process memory. A registration locks the
// shards of its identity, domain and proof id together so that writes which
// could violate the same invariant run one at a time.
type InMemory struct {
	verifier proof.Verifier
	locks    *platformsync.ShardedMutex
	now      func() time.Time

	mu       sync.RWMutex
	records  map[id.Identity]*models.OrganizationRecord
	consumed map[common.Hash]id.Identity
}

func NewInMemory(verifier proof.Verifier) *InMemory {
	return &InMemory{
		verifier: verifier,
		locks:    platformsync.NewShardedMutex(),
		now:      time.Now,
		records:  make(map[id.Identity]*models.OrganizationRecord),
		consumed: make(map[common.Hash]id.Identity),
	}
}

func (s *InMemory) GetRecord(_ context.Context, identity id.Identity) (*models.BaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[identity]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	base := rec.BaseRecord
	return &base, nil
}

func (s *InMemory) GetOrganizationRecord(_ context.Context, identity id.Identity) (*models.OrganizationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[identity]
	if !ok || !rec.Role.IsOrganization() {
		return nil, sentinel.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *InMemory) IsDomainTaken(_ context.Context, domain string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, taken := s.domainHolder(domain)
	return taken, nil
}

func (s *InMemory) IsProofConsumed(_ context.Context, proofID common.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.consumed[proofID]
	return ok, nil
}

func (s *InMemory) Stats(_ context.Context) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &models.Stats{}
	for _, rec := range s.records {
		if rec.IsActive {
			stats.Add(rec.Role, 1)
		}
	}
	return stats, nil
}

func (s *InMemory) RegisterPatient(ctx context.Context, reg models.Registration) (*models.Receipt, error) {
	return s.register(ctx, reg, id.RolePatient)
}

func (s *InMemory) RegisterHospital(ctx context.Context, reg models.Registration) (*models.Receipt, error) {
	return s.register(ctx, reg, id.RoleHospital)
}

func (s *InMemory) RegisterInsurer(ctx context.Context, reg models.Registration) (*models.Receipt, error) {
	return s.register(ctx, reg, id.RoleInsurer)
}

func (s *InMemory) register(ctx context.Context, reg models.Registration, role id.Role) (*models.Receipt, error) {
	identity := reg.Payload.Identity
	proofID := reg.Proof.ID()
	domain := strings.ToLower(reg.Payload.Domain)

	keys := []string{identityKey(identity), proofKey(proofID)}
	if role.IsOrganization() {
		keys = append(keys, domainKey(domain))
	}
	unlock := s.locks.LockMany(keys...)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	_, exists := s.records[identity]
	_, consumed := s.consumed[proofID]
	holder, taken := s.domainHolder(domain)
	s.mu.RUnlock()

	switch {
	case exists:
		return nil, registry.ErrDuplicateIdentity
	case consumed:
		return nil, registry.ErrProofConsumed
	case role.IsOrganization() && taken && holder != identity:
		return nil, registry.ErrDomainTaken
	}

	if err := s.verifier.Verify(ctx, reg.Proof, reg.Payload); err != nil {
		if errors.Is(err, proof.ErrInvalidProof) {
			return nil, fmt.Errorf("%w: %w", registry.ErrProofRejected, err)
		}
		return nil, fmt.Errorf("verify proof: %w", err)
	}

	now := s.now()
	rec := &models.OrganizationRecord{BaseRecord: reg.BaseRecord(role, now)}
	if role.IsOrganization() {
		rec.OrganizationType = role
		rec.Domain = domain
		rec.OrganizationName = strings.TrimSpace(reg.Payload.OrganizationName)
	}

	s.mu.Lock()
	s.records[identity] = rec
	s.consumed[proofID] = identity
	s.mu.Unlock()

	return &models.Receipt{
		Identity:             identity,
		Role:                 role,
		ProofID:              proofID,
		RegisteredAt:         now,
		OriginatingRequestID: reg.OriginatingRequestID,
	}, nil
}

func (s *InMemory) SetActive(ctx context.Context, identity id.Identity, active bool) error {
	s.mu.RLock()
	rec, ok := s.records[identity]
	var domain string
	if ok {
		domain = rec.Domain
	}
	s.mu.RUnlock()
	if !ok {
		return sentinel.ErrNotFound
	}

	keys := []string{identityKey(identity)}
	if domain != "" {
		keys = append(keys, domainKey(domain))
	}
	unlock := s.locks.LockMany(keys...)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if active && !rec.IsActive && rec.Role.IsOrganization() {
		if holder, taken := s.domainHolder(domain); taken && holder != identity {
			return registry.ErrDomainTaken
		}
	}
	rec.IsActive = active
	return nil
}

// domainHolder finds the active organization holding domain. Callers hold mu.
func (s *InMemory) domainHolder(domain string) (id.Identity, bool) {
	if domain == "" {
		return id.Identity{}, false
	}
	for identity, rec := range s.records {
		if rec.IsActive && rec.Role.IsOrganization() && strings.EqualFold(rec.Domain, domain) {
			return identity, true
		}
	}
	return id.Identity{}, false
}

func identityKey(identity id.Identity) string { return "identity:" + identity.String() }
func proofKey(h common.Hash) string           { return "proof:" + h.Hex() }
func domainKey(domain string) string          { return "domain:" + strings.ToLower(domain) }

var _ registry.Ledger = (*InMemory)(nil)
