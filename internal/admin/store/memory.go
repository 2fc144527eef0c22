package store

import (
	"context"
	"slices"
	"sync"

	"onboard/internal/admin"
	"onboard/internal/admin/models"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/sentinel"
	platformsync "onboard/pkg/platform/sync"
)

// InMemory keeps requests and admin records in process memory. Process holds
// the request's shard lock while fn runs, so two decisions on the same
// request run one at a time and the second sees it already processed.
type InMemory struct {
	locks *platformsync.ShardedMutex

	mu       sync.RWMutex
	requests map[id.RequestID]*models.Request
	admins   map[id.Identity]*models.AdminRecord
}

func NewInMemory() *InMemory {
	return &InMemory{
		locks:    platformsync.NewShardedMutex(),
		requests: make(map[id.RequestID]*models.Request),
		admins:   make(map[id.Identity]*models.AdminRecord),
	}
}

func (s *InMemory) CreateRequest(_ context.Context, req *models.Request) error {
	key := pendingKey(req.Requester, req.Type)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.IsPending() && existing.Requester == req.Requester && existing.Type == req.Type {
			return admin.ErrPendingExists
		}
	}
	s.requests[req.ID] = cloneRequest(req)
	return nil
}

func (s *InMemory) FindRequest(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRequest(req), nil
}

func (s *InMemory) ListPending(_ context.Context, filter models.RequestFilter) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Request, 0)
	for _, req := range s.requests {
		if !req.IsPending() {
			continue
		}
		if filter.Type != "" && req.Type != filter.Type {
			continue
		}
		out = append(out, cloneRequest(req))
	}
	slices.SortFunc(out, func(a, b *models.Request) int {
		return a.RequestTime.Compare(b.RequestTime)
	})
	return out, nil
}

func (s *InMemory) Process(ctx context.Context, requestID id.RequestID, fn func(ctx context.Context, tx admin.Tx, req *models.Request) error) (*models.Request, error) {
	key := requestKey(requestID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	s.mu.RLock()
	stored, ok := s.requests[requestID]
	var req *models.Request
	if ok {
		req = cloneRequest(stored)
	}
	s.mu.RUnlock()
	switch {
	case !ok:
		return nil, sentinel.ErrNotFound
	case !req.IsPending():
		return nil, admin.ErrAlreadyProcessed
	}

	tx := &memoryTx{store: s, writes: make(map[id.Identity]*models.AdminRecord)}
	if err := fn(ctx, tx, req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requests[requestID].IsPending() {
		return nil, admin.ErrAlreadyProcessed
	}
	s.requests[requestID] = cloneRequest(req)
	for identity, rec := range tx.writes {
		s.admins[identity] = rec
	}
	return req, nil
}

func (s *InMemory) FindAdmin(_ context.Context, identity id.Identity) (*models.AdminRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.admins[identity]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *InMemory) UpsertAdmin(_ context.Context, record *models.AdminRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.admins[record.Identity] = &clone
	return nil
}

// memoryTx buffers admin writes until Process commits.
type memoryTx struct {
	store  *InMemory
	writes map[id.Identity]*models.AdminRecord
}

func (t *memoryTx) FindAdmin(ctx context.Context, identity id.Identity) (*models.AdminRecord, error) {
	if rec, ok := t.writes[identity]; ok {
		clone := *rec
		return &clone, nil
	}
	return t.store.FindAdmin(ctx, identity)
}

func (t *memoryTx) UpsertAdmin(_ context.Context, record *models.AdminRecord) error {
	clone := *record
	t.writes[record.Identity] = &clone
	return nil
}

func cloneRequest(req *models.Request) *models.Request {
	clone := *req
	if req.ProcessedBy != nil {
		by := *req.ProcessedBy
		clone.ProcessedBy = &by
	}
	if req.ProcessedTime != nil {
		at := *req.ProcessedTime
		clone.ProcessedTime = &at
	}
	if req.Patient != nil {
		p := *req.Patient
		clone.Patient = &p
	}
	if req.Organization != nil {
		o := *req.Organization
		clone.Organization = &o
	}
	if req.AdminAccess != nil {
		a := *req.AdminAccess
		clone.AdminAccess = &a
	}
	return &clone
}

func requestKey(requestID id.RequestID) string { return "request:" + requestID.String() }

func pendingKey(requester id.Identity, t models.RequestType) string {
	return "pending:" + requester.String() + ":" + string(t)
}

var _ admin.Store = (*InMemory)(nil)
