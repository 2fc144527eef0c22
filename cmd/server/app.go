package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"onboard/internal/admin"
	adminhandler "onboard/internal/admin/handler"
	adminmetrics "onboard/internal/admin/metrics"
	adminstore "onboard/internal/admin/store"
	"onboard/internal/admin/token"
	"onboard/internal/inbox"
	inboxadapters "onboard/internal/inbox/adapters"
	inboxmetrics "onboard/internal/inbox/metrics"
	inboxstore "onboard/internal/inbox/store"
	"onboard/internal/platform/config"
	"onboard/internal/platform/database"
	"onboard/internal/platform/health"
	"onboard/internal/platform/kafka"
	"onboard/internal/platform/kafka/producer"
	"onboard/internal/platform/redis"
	"onboard/internal/proof"
	proofadapters "onboard/internal/proof/adapters"
	proofmetrics "onboard/internal/proof/metrics"
	"onboard/internal/registry"
	registryhandler "onboard/internal/registry/handler"
	"onboard/internal/registry/ledger"
	registrymetrics "onboard/internal/registry/metrics"
	registrystore "onboard/internal/registry/store"
	"onboard/internal/session"
	sessionhandler "onboard/internal/session/handler"
	sessionmetrics "onboard/internal/session/metrics"
	"onboard/internal/session/workers/cleanup"
	httptransport "onboard/internal/transport/http"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/audit/outbox"
	outboxmetrics "onboard/pkg/platform/audit/outbox/metrics"
	outboxmemory "onboard/pkg/platform/audit/outbox/store/memory"
	outboxpostgres "onboard/pkg/platform/audit/outbox/store/postgres"
	"onboard/pkg/platform/audit/outbox/worker"
	"onboard/pkg/platform/audit/publisher"
	"onboard/pkg/platform/middleware/request"
	"onboard/pkg/platform/tracer"
)

// app holds everything main starts and stops.
type app struct {
	router  http.Handler
	cleanup *cleanup.CleanupService
	outbox  *worker.Worker
	redis   *redis.Client
	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()
	checks := health.New(cfg.Environment)

	var db *sql.DB
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.Database.URL
	dbCfg.Migrate = cfg.Database.AutoMigrate
	pool, err := database.Open(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		db = pool.DB()
		a.closers = append(a.closers, pool.Close)
		checks.RegisterCheck("postgres", pool.Health)
	}

	a.redis, err = redis.New(cfg.Redis)
	if err != nil {
		return nil, err
	}
	if a.redis != nil {
		a.closers = append(a.closers, a.redis.Close)
		checks.RegisterCheck("redis", a.redis.Health)
	}

	// Audit trail: domain events go to the outbox, the worker ships them.
	var outboxStore outbox.Store = outboxmemory.New()
	if db != nil {
		outboxStore = outboxpostgres.New(db)
	}
	auditor := publisher.NewPublisher(outboxStore, publisher.WithPublisherLogger(log))

	var prod worker.Producer = producer.NewNoopProducer(log)
	if cfg.Kafka.Brokers != "" {
		kp, err := producer.New(producer.DefaultConfig(cfg.Kafka.Brokers), log)
		if err != nil {
			return nil, err
		}
		prod = kp
		a.closers = append(a.closers, kp.Close)

		kadmin, err := kafka.NewAdmin(cfg.Kafka.Brokers)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kadmin.Close)
		if err := kadmin.EnsureTopic(ctx, cfg.Kafka.AuditTopic, 1, 1); err != nil {
			log.Warn("audit topic not created, relying on broker auto-creation", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		// The outbox buffers while Kafka is down, so it does not gate readiness.
		checks.RegisterOptionalCheck("kafka", kadmin.Check)
	}
	a.outbox = worker.New(outboxStore, prod,
		worker.WithTopic(cfg.Kafka.AuditTopic),
		worker.WithMetrics(outboxmetrics.New()),
		worker.WithLogger(log),
	)

	// Proof binding.
	var (
		prover   proof.Prover
		verifier proof.Verifier
	)
	if cfg.Proof.ProverURL != "" {
		httpProver := proofadapters.NewHTTPProver(proofadapters.HTTPProverConfig{
			BaseURL: cfg.Proof.ProverURL,
			Logger:  log,
		})
		prover, verifier = httpProver, httpProver
	} else {
		local, err := proof.NewLocalProver([]byte(cfg.Proof.ProverKey))
		if err != nil {
			return nil, err
		}
		prover, verifier = local, local
	}
	binder, err := proof.NewBinder(prover, []byte(cfg.Proof.CommitmentKey),
		proof.WithMetrics(proofmetrics.New()),
		proof.WithLogger(log),
		proof.WithTracer(tracer.NewOTel("onboard/proof")),
	)
	if err != nil {
		return nil, err
	}

	// Inbox polling.
	var claims inbox.ClaimStore = inboxstore.NewInMemoryClaimStore()
	if a.redis != nil {
		claims = inboxstore.NewRedisClaimStore(a.redis.Client, inboxstore.DefaultClaimTTL)
	}
	poller := inbox.New(
		inboxadapters.NewHTTPFetcher(inboxadapters.HTTPFetcherConfig{BaseURL: cfg.Inbox.MailServiceURL}),
		claims,
		inbox.WithPolicy(inbox.RetryPolicy{Interval: cfg.Inbox.PollInterval, MaxAttempts: cfg.Inbox.MaxAttempts}),
		inbox.WithMetrics(inboxmetrics.New()),
		inbox.WithLogger(log),
		inbox.WithTracer(tracer.NewOTel("onboard/inbox")),
	)

	// Registry backend: the contract when configured, else Postgres, else memory.
	var reg registry.Ledger
	switch {
	case cfg.Ledger.Enabled():
		client, eth, err := ledger.Dial(ctx, ledger.DialConfig{
			RPCURL:     cfg.Ledger.RPCURL,
			Contract:   cfg.Ledger.Contract,
			PrivateKey: cfg.Ledger.PrivateKey,
			ChainID:    cfg.Ledger.ChainID,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { eth.Close(); return nil })
		checks.RegisterCheck("ledger", func(ctx context.Context) error {
			_, err := eth.BlockNumber(ctx)
			return err
		})
		reg = client
	case db != nil:
		reg = registrystore.NewPostgres(db, verifier)
	default:
		reg = registrystore.NewInMemory(verifier)
	}
	registrySvc := registry.New(reg,
		registry.WithSubmitTimeout(cfg.Registry.SubmitTimeout),
		registry.WithMetrics(registrymetrics.New()),
		registry.WithLogger(log),
		registry.WithTracer(tracer.NewOTel("onboard/registry")),
	)

	// Admin queue.
	var queueStore admin.Store = adminstore.NewInMemory()
	if db != nil {
		queueStore = adminstore.NewPostgres(db)
	}
	adminSvc := admin.New(queueStore, registrySvc,
		admin.WithMetrics(adminmetrics.New()),
		admin.WithLogger(log),
		admin.WithTracer(tracer.NewOTel("onboard/admin")),
		admin.WithAuditor(auditor),
	)
	if cfg.Admin.SuperAdminIdentity != "" {
		identity, err := id.ParseIdentity(cfg.Admin.SuperAdminIdentity)
		if err != nil {
			return nil, fmt.Errorf("SUPER_ADMIN_IDENTITY: %w", err)
		}
		if err := adminSvc.Bootstrap(ctx, identity); err != nil {
			return nil, fmt.Errorf("bootstrap super admin: %w", err)
		}
	}
	tokens, err := token.New(cfg.Admin.JWTSigningKey, "onboard", cfg.Admin.TokenTTL, token.WithEnv(cfg.Environment))
	if err != nil {
		return nil, err
	}

	// Sessions.
	approvalRoles, err := parseRoles(cfg.Registry.ApprovalRequiredRoles)
	if err != nil {
		return nil, err
	}
	sessionMetrics := sessionmetrics.New()
	sessions, err := session.New(
		session.Deps{Inbox: poller, Binder: binder, Registry: registrySvc, Queue: adminSvc},
		session.Config{InboxDomain: cfg.Inbox.Domain, ApprovalRoles: approvalRoles},
		session.WithMetrics(sessionMetrics),
		session.WithLogger(log),
		session.WithTracer(tracer.NewOTel("onboard/session")),
		session.WithAuditor(auditor),
	)
	if err != nil {
		return nil, err
	}
	a.cleanup, err = cleanup.New(sessions, cfg.Session.IdleTTL,
		cleanup.WithCleanupLogger(log),
		cleanup.WithCleanupMetrics(sessionMetrics),
	)
	if err != nil {
		return nil, err
	}

	a.router = httptransport.NewRouter(httptransport.Handlers{
		Sessions: sessionhandler.New(sessions, log),
		Registry: registryhandler.New(registrySvc, log),
		Admin:    adminhandler.New(adminSvc, log),
		Health:   checks,
	}, httptransport.Config{
		AdminTokens: tokens,
		Metrics:     request.NewMetrics(),
	}, log)

	return a, nil
}

func parseRoles(names []string) ([]id.Role, error) {
	roles := make([]id.Role, 0, len(names))
	for _, name := range names {
		role, err := id.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("APPROVAL_REQUIRED_ROLES: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, nil
}
