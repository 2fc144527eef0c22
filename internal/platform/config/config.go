package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults shared with tests and the CLI.
var (
	DefaultPollInterval   = 10 * time.Second
	DefaultPollAttempts   = 6
	DefaultSubmitTimeout  = 15 * time.Second
	DefaultAdminTokenTTL  = time.Hour
	DefaultSessionIdleTTL = 30 * time.Minute
	DefaultAuditTopic     = "onboard.audit.events"
	DefaultInboxDomain    = "verify.onboard.local"
	DefaultMailServiceURL = "http://localhost:8025"
	devCommitmentKey      = "dev-commitment-key-change-in-production"
	devProverKey          = "dev-prover-key-change-in-production"
	devAdminJWTSigningKey = "dev-admin-secret-change-in-production"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	Environment string
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Inbox       InboxConfig
	Proof       ProofConfig
	Ledger      LedgerConfig
	Registry    RegistryConfig
	Admin       AdminConfig
	Session     SessionConfig
	LogLevel    string
}

// DatabaseConfig selects the Postgres stores. Empty URL keeps everything in memory.
type DatabaseConfig struct {
	URL         string
	AutoMigrate bool
}

// RedisConfig configures the optional Redis client used for inbox claims.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures audit publishing. Empty Brokers disables the producer.
type KafkaConfig struct {
	Brokers    string
	AuditTopic string
}

// InboxConfig holds the mail collaborator location and the polling policy.
type InboxConfig struct {
	MailServiceURL string
	Domain         string
	PollInterval   time.Duration
	MaxAttempts    int
}

// ProofConfig selects the prover. Empty ProverURL uses the local HMAC prover.
type ProofConfig struct {
	ProverURL     string
	ProverKey     string
	CommitmentKey string
}

// LedgerConfig selects the on-chain registry. Empty RPCURL disables it.
type LedgerConfig struct {
	RPCURL     string
	Contract   string
	PrivateKey string
	ChainID    int64
}

// Enabled reports whether an Ethereum ledger backend is configured.
func (c LedgerConfig) Enabled() bool {
	return c.RPCURL != "" && c.Contract != ""
}

type RegistryConfig struct {
	SubmitTimeout         time.Duration
	ApprovalRequiredRoles []string
}

type AdminConfig struct {
	JWTSigningKey      string
	TokenTTL           time.Duration
	SuperAdminIdentity string
}

type SessionConfig struct {
	IdleTTL time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Malformed numeric values are reported; malformed durations fall back to defaults.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:        envOr("ONBOARD_ADDR", ":8080"),
		Environment: envOr("ONBOARD_ENV", "dev"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		Database: DatabaseConfig{
			URL:         os.Getenv("DATABASE_URL"),
			AutoMigrate: os.Getenv("DATABASE_AUTO_MIGRATE") == "true",
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  durationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			AuditTopic: envOr("AUDIT_TOPIC", DefaultAuditTopic),
		},
		Inbox: InboxConfig{
			MailServiceURL: envOr("MAIL_SERVICE_URL", DefaultMailServiceURL),
			Domain:         envOr("INBOX_DOMAIN", DefaultInboxDomain),
			PollInterval:   durationOr("INBOX_POLL_INTERVAL", DefaultPollInterval),
			MaxAttempts:    DefaultPollAttempts,
		},
		Proof: ProofConfig{
			ProverURL:     os.Getenv("PROVER_URL"),
			ProverKey:     envOr("PROVER_KEY", devProverKey),
			CommitmentKey: envOr("COMMITMENT_KEY", devCommitmentKey),
		},
		Ledger: LedgerConfig{
			RPCURL:     os.Getenv("LEDGER_RPC_URL"),
			Contract:   os.Getenv("LEDGER_CONTRACT"),
			PrivateKey: os.Getenv("LEDGER_PRIVATE_KEY"),
		},
		Registry: RegistryConfig{
			SubmitTimeout:         durationOr("REGISTRY_SUBMIT_TIMEOUT", DefaultSubmitTimeout),
			ApprovalRequiredRoles: splitList(os.Getenv("APPROVAL_REQUIRED_ROLES")),
		},
		Admin: AdminConfig{
			JWTSigningKey:      envOr("ADMIN_JWT_SIGNING_KEY", devAdminJWTSigningKey),
			TokenTTL:           durationOr("ADMIN_TOKEN_TTL", DefaultAdminTokenTTL),
			SuperAdminIdentity: os.Getenv("SUPER_ADMIN_IDENTITY"),
		},
		Session: SessionConfig{
			IdleTTL: durationOr("SESSION_IDLE_TTL", DefaultSessionIdleTTL),
		},
	}

	if v := os.Getenv("INBOX_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Server{}, fmt.Errorf("INBOX_MAX_ATTEMPTS must be a positive integer, got %q", v)
		}
		cfg.Inbox.MaxAttempts = n
	}
	if v := os.Getenv("REDIS_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Server{}, fmt.Errorf("REDIS_POOL_SIZE must be a positive integer, got %q", v)
		}
		cfg.Redis.PoolSize = n
	}
	if v := os.Getenv("LEDGER_CHAIN_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return Server{}, fmt.Errorf("LEDGER_CHAIN_ID must be a positive integer, got %q", v)
		}
		cfg.Ledger.ChainID = n
	}
	if cfg.Ledger.RPCURL != "" && cfg.Ledger.Contract == "" {
		return Server{}, fmt.Errorf("LEDGER_CONTRACT is required when LEDGER_RPC_URL is set")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
