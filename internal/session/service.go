package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/audit"
)

const shardCount = 32

type shard struct {
	mu       sync.RWMutex
	machines map[id.SessionID]*Machine
}

// Service keeps live sessions in memory. Nothing is persisted: a restart of
// the process drops every in-flight registration.
type Service struct {
	env    *env
	shards [shardCount]shard
}

// New builds the session service. Inbox, Binder and Registry are required;
// Queue is required when cfg names approval roles.
func New(deps Deps, cfg Config, opts ...Option) (*Service, error) {
	if deps.Inbox == nil || deps.Binder == nil || deps.Registry == nil {
		return nil, errors.New("inbox, binder and registry are required")
	}
	if len(cfg.ApprovalRoles) > 0 && deps.Queue == nil {
		return nil, errors.New("an approval queue is required when roles need approval")
	}
	if cfg.InboxDomain == "" {
		return nil, errors.New("inbox domain is required")
	}
	s := &Service{env: newEnv(deps, cfg, opts...)}
	for i := range s.shards {
		s.shards[i].machines = make(map[id.SessionID]*Machine)
	}
	return s, nil
}

// Create starts a registration for identity.
func (s *Service) Create(ctx context.Context, identity id.Identity) *Session {
	m := newMachine(identity, s.env)
	s.put(m)
	if s.env.metrics != nil {
		s.env.metrics.IncActive()
	}
	s.env.logger.InfoContext(ctx, "registration session created",
		"session_id", m.ID().String(),
		"identity", identity.String(),
	)
	return m.Snapshot()
}

func (s *Service) Get(_ context.Context, sessionID id.SessionID) (*Session, error) {
	m, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return m.Snapshot(), nil
}

func (s *Service) SelectRole(ctx context.Context, sessionID id.SessionID, role id.Role, email string) (*Session, error) {
	return s.step(ctx, sessionID, func(m *Machine) error {
		_, err := m.SelectRole(ctx, role, email)
		return err
	})
}

func (s *Service) SubmitDetails(ctx context.Context, sessionID id.SessionID, organizationName, domain string) (*Session, error) {
	return s.step(ctx, sessionID, func(m *Machine) error {
		_, err := m.SubmitDetails(ctx, organizationName, domain)
		return err
	})
}

func (s *Service) AwaitEmail(ctx context.Context, sessionID id.SessionID) (*Session, error) {
	return s.step(ctx, sessionID, func(m *Machine) error {
		return m.AwaitEmail(ctx)
	})
}

func (s *Service) GenerateProof(ctx context.Context, sessionID id.SessionID) (*Session, error) {
	return s.step(ctx, sessionID, func(m *Machine) error {
		return m.GenerateProof(ctx)
	})
}

// Submit completes the registration. A completed session is destroyed; the
// returned snapshot is the last view of it.
func (s *Service) Submit(ctx context.Context, sessionID id.SessionID) (*Session, error) {
	snap, err := s.step(ctx, sessionID, func(m *Machine) error {
		return m.Submit(ctx)
	})
	if err == nil && snap.State == StateComplete {
		s.destroy(ctx, sessionID)
	}
	return snap, err
}

// Restart discards the session and starts a fresh one for the same identity.
// Nothing carries over: the new session gets its own correlation mailbox.
func (s *Service) Restart(ctx context.Context, sessionID id.SessionID) (*Session, error) {
	old := s.destroy(ctx, sessionID)
	if old == nil {
		return nil, dErrors.Wrap(ErrNotFound, dErrors.CodeNotFound, "registration session not found")
	}
	identity := old.Snapshot().Identity

	fresh := s.Create(ctx, identity)
	old.mu.Lock()
	old.emitLocked(ctx, audit.EventRegistrationRestarted)
	old.mu.Unlock()
	return fresh, nil
}

// Abandon destroys the session, stopping any running step.
func (s *Service) Abandon(ctx context.Context, sessionID id.SessionID) error {
	m := s.destroy(ctx, sessionID)
	if m == nil {
		return dErrors.Wrap(ErrNotFound, dErrors.CodeNotFound, "registration session not found")
	}
	m.mu.Lock()
	m.emitLocked(ctx, audit.EventRegistrationAbandoned)
	m.mu.Unlock()
	return nil
}

// ExpireIdle destroys sessions untouched for longer than ttl. Sessions with
// a running step are never expired.
func (s *Service) ExpireIdle(ctx context.Context, ttl time.Duration) (int, error) {
	now := s.env.now()
	var expired []id.SessionID
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for sid, m := range sh.machines {
			if m.idleFor(now) > ttl {
				expired = append(expired, sid)
			}
		}
		sh.mu.RUnlock()
	}

	count := 0
	for _, sid := range expired {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if s.destroy(ctx, sid) != nil {
			count++
		}
	}
	if count > 0 {
		s.env.logger.InfoContext(ctx, "expired idle registration sessions", "count", count)
	}
	return count, nil
}

// Len is the number of live sessions.
func (s *Service) Len() int {
	n := 0
	for i := range s.shards {
		s.shards[i].mu.RLock()
		n += len(s.shards[i].machines)
		s.shards[i].mu.RUnlock()
	}
	return n
}

// step runs fn on the session and returns its snapshot, also on error, so
// a failed step still reports the ERROR state and its failure.
func (s *Service) step(ctx context.Context, sessionID id.SessionID, fn func(*Machine) error) (*Session, error) {
	m, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	err = fn(m)
	return m.Snapshot(), err
}

func (s *Service) lookup(sessionID id.SessionID) (*Machine, error) {
	sh := s.shardFor(sessionID)
	sh.mu.RLock()
	m, ok := sh.machines[sessionID]
	sh.mu.RUnlock()
	if !ok {
		return nil, dErrors.Wrap(ErrNotFound, dErrors.CodeNotFound, "registration session not found")
	}
	return m, nil
}

func (s *Service) put(m *Machine) {
	sh := s.shardFor(m.ID())
	sh.mu.Lock()
	sh.machines[m.ID()] = m
	sh.mu.Unlock()
}

// destroy removes the session, cancels any running step and releases its
// inbox claim. It returns nil when the session was already gone.
func (s *Service) destroy(ctx context.Context, sessionID id.SessionID) *Machine {
	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	m, ok := sh.machines[sessionID]
	delete(sh.machines, sessionID)
	sh.mu.Unlock()
	if !ok {
		return nil
	}

	m.Cancel()
	m.releaseClaim(context.WithoutCancel(ctx))
	if s.env.metrics != nil {
		s.env.metrics.DecActive()
	}
	s.env.logger.DebugContext(ctx, "registration session destroyed",
		"session_id", sessionID.String(),
	)
	return m
}

func (s *Service) shardFor(sessionID id.SessionID) *shard {
	u := uuid.UUID(sessionID)
	return &s.shards[int(u[15])%shardCount]
}
