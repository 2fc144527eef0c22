// Command registrar is the operator CLI for the registry and the admin
// request queue. It talks to the same backends the server does: the Postgres
// database and, when configured, the registry contract.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"onboard/internal/admin"
	"onboard/internal/admin/models"
	adminstore "onboard/internal/admin/store"
	"onboard/internal/platform/database"
	"onboard/internal/proof"
	"onboard/internal/registry"
	"onboard/internal/registry/ledger"
	registrystore "onboard/internal/registry/store"
	id "onboard/pkg/domain"
)

var (
	flagLogJSON = &cli.BoolFlag{
		Name:  "log-json",
		Usage: "log in JSON format",
	}
	flagLogDebug = &cli.BoolFlag{
		Name:  "log-debug",
		Usage: "log debug messages",
	}
	flagDatabaseURL = &cli.StringFlag{
		Name:    "database-url",
		EnvVars: []string{"DATABASE_URL"},
		Usage:   "Postgres DSN for the registry and the admin queue",
	}
	flagRPCURL = &cli.StringFlag{
		Name:    "rpc-url",
		EnvVars: []string{"LEDGER_RPC_URL"},
		Usage:   "Ethereum RPC endpoint. When set, registry reads and writes go to the contract",
	}
	flagContract = &cli.StringFlag{
		Name:    "contract",
		EnvVars: []string{"LEDGER_CONTRACT"},
		Usage:   "registry contract address, 0x-prefixed",
	}
	flagPrivateKey = &cli.StringFlag{
		Name:    "private-key",
		EnvVars: []string{"LEDGER_PRIVATE_KEY"},
		Usage:   "hex key used to sign registry transactions",
	}
	flagChainID = &cli.Int64Flag{
		Name:    "chain-id",
		EnvVars: []string{"LEDGER_CHAIN_ID"},
		Usage:   "chain id for transaction signing. Zero asks the node",
	}
	flagProverKey = &cli.StringFlag{
		Name:    "prover-key",
		EnvVars: []string{"PROVER_KEY"},
		Value:   "dev-prover-key-change-in-production",
		Usage:   "key of the local prover, used to verify proofs on the Postgres registry",
	}
	flagAdmin = &cli.StringFlag{
		Name:     "admin",
		Required: true,
		Usage:    "identity of the admin deciding the request",
	}
	flagType = &cli.StringFlag{
		Name:  "type",
		Usage: "filter by request type: PATIENT_REGISTRATION, ORGANIZATION_REGISTRATION or ADMIN_ACCESS",
	}
	flagReason = &cli.StringFlag{
		Name:     "reason",
		Required: true,
		Usage:    "rejection reason recorded on the request",
	}
)

func main() {
	app := &cli.App{
		Name:  "registrar",
		Usage: "inspect the registry and decide admin requests",
		Flags: []cli.Flag{
			flagLogJSON,
			flagLogDebug,
			flagDatabaseURL,
			flagRPCURL,
			flagContract,
			flagPrivateKey,
			flagChainID,
			flagProverKey,
		},
		Commands: []*cli.Command{
			{
				Name:      "role",
				Usage:     "print the active role of an identity",
				ArgsUsage: "<identity>",
				Action: withEnv(func(cCtx *cli.Context, e *env) error {
					identity, err := identityArg(cCtx)
					if err != nil {
						return err
					}
					role, err := e.registry.GetRole(cCtx.Context, identity)
					if err != nil {
						return err
					}
					return printJSON(map[string]any{"identity": identity, "role": role.String()})
				}),
			},
			{
				Name:      "org",
				Usage:     "print the organization record of an identity",
				ArgsUsage: "<identity>",
				Action: withEnv(func(cCtx *cli.Context, e *env) error {
					identity, err := identityArg(cCtx)
					if err != nil {
						return err
					}
					record, err := e.registry.GetOrganizationRecord(cCtx.Context, identity)
					if err != nil {
						return err
					}
					return printJSON(record)
				}),
			},
			{
				Name:      "domain",
				Usage:     "report whether an active organization holds a domain",
				ArgsUsage: "<domain>",
				Action: withEnv(func(cCtx *cli.Context, e *env) error {
					domain := cCtx.Args().First()
					taken, err := e.registry.IsDomainTaken(cCtx.Context, domain)
					if err != nil {
						return err
					}
					return printJSON(map[string]any{"domain": strings.ToLower(domain), "taken": taken})
				}),
			},
			{
				Name:  "stats",
				Usage: "print registration counts",
				Action: withEnv(func(cCtx *cli.Context, e *env) error {
					stats, err := e.registry.Stats(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(stats)
				}),
			},
			{
				Name:  "pending",
				Usage: "list pending admin requests, oldest first",
				Flags: []cli.Flag{flagType},
				Action: withQueue(func(cCtx *cli.Context, e *env) error {
					reqs, err := e.queue.ListPending(cCtx.Context, models.RequestType(strings.ToUpper(cCtx.String(flagType.Name))))
					if err != nil {
						return err
					}
					return printJSON(reqs)
				}),
			},
			{
				Name:      "approve",
				Usage:     "approve a pending request",
				ArgsUsage: "<request-id>",
				Flags:     []cli.Flag{flagAdmin},
				Action: withQueue(func(cCtx *cli.Context, e *env) error {
					requestID, adminID, err := decisionArgs(cCtx)
					if err != nil {
						return err
					}
					req, err := e.queue.Approve(cCtx.Context, requestID, adminID)
					if err != nil {
						return err
					}
					return printJSON(req)
				}),
			},
			{
				Name:      "reject",
				Usage:     "reject a pending request",
				ArgsUsage: "<request-id>",
				Flags:     []cli.Flag{flagAdmin, flagReason},
				Action: withQueue(func(cCtx *cli.Context, e *env) error {
					requestID, adminID, err := decisionArgs(cCtx)
					if err != nil {
						return err
					}
					req, err := e.queue.Reject(cCtx.Context, requestID, adminID, cCtx.String(flagReason.Name))
					if err != nil {
						return err
					}
					return printJSON(req)
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type env struct {
	log      *slog.Logger
	db       *sql.DB
	registry *registry.Service
	queue    *admin.Service
	closers  []func() error
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
}

// withEnv opens the registry backend for the duration of one command.
func withEnv(action func(*cli.Context, *env) error) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		e, err := openEnv(cCtx)
		if err != nil {
			return err
		}
		defer e.close()
		return action(cCtx, e)
	}
}

// withQueue additionally requires the Postgres admin queue.
func withQueue(action func(*cli.Context, *env) error) cli.ActionFunc {
	return withEnv(func(cCtx *cli.Context, e *env) error {
		if e.db == nil {
			return errors.New("--database-url is required for queue commands")
		}
		e.queue = admin.New(adminstore.NewPostgres(e.db), e.registry, admin.WithLogger(e.log))
		return action(cCtx, e)
	})
}

func openEnv(cCtx *cli.Context) (*env, error) {
	e := &env{log: setupLogger(cCtx)}
	ctx := cCtx.Context

	if dsn := cCtx.String(flagDatabaseURL.Name); dsn != "" {
		cfg := database.DefaultConfig()
		cfg.URL = dsn
		cfg.MaxOpenConns = 4
		pool, err := database.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		e.db = pool.DB()
		e.closers = append(e.closers, pool.Close)
	}

	backend, err := openLedger(ctx, cCtx, e)
	if err != nil {
		e.close()
		return nil, err
	}
	e.registry = registry.New(backend, registry.WithLogger(e.log))
	return e, nil
}

func openLedger(ctx context.Context, cCtx *cli.Context, e *env) (registry.Ledger, error) {
	if rpc := cCtx.String(flagRPCURL.Name); rpc != "" {
		client, eth, err := ledger.Dial(ctx, ledger.DialConfig{
			RPCURL:     rpc,
			Contract:   cCtx.String(flagContract.Name),
			PrivateKey: cCtx.String(flagPrivateKey.Name),
			ChainID:    cCtx.Int64(flagChainID.Name),
		})
		if err != nil {
			return nil, fmt.Errorf("could not dial ledger: %w", err)
		}
		e.closers = append(e.closers, func() error { eth.Close(); return nil })
		e.log.Debug("using contract registry", "contract", cCtx.String(flagContract.Name))
		return client, nil
	}
	if e.db == nil {
		return nil, errors.New("either --rpc-url or --database-url is required")
	}
	verifier, err := proof.NewLocalProver([]byte(cCtx.String(flagProverKey.Name)))
	if err != nil {
		return nil, err
	}
	e.log.Debug("using postgres registry")
	return registrystore.NewPostgres(e.db, verifier), nil
}

func setupLogger(cCtx *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if cCtx.Bool(flagLogDebug.Name) {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cCtx.Bool(flagLogJSON.Name) {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func identityArg(cCtx *cli.Context) (id.Identity, error) {
	identity, err := id.ParseIdentity(cCtx.Args().First())
	if err != nil {
		return id.Identity{}, fmt.Errorf("could not parse identity: %w", err)
	}
	return identity, nil
}

func decisionArgs(cCtx *cli.Context) (id.RequestID, id.Identity, error) {
	requestID, err := id.ParseRequestID(cCtx.Args().First())
	if err != nil {
		return id.RequestID{}, id.Identity{}, fmt.Errorf("could not parse request id: %w", err)
	}
	adminID, err := id.ParseIdentity(cCtx.String(flagAdmin.Name))
	if err != nil {
		return id.RequestID{}, id.Identity{}, fmt.Errorf("could not parse admin identity: %w", err)
	}
	return requestID, adminID, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
