// Package ledger is the Ethereum contract implementation of the registry
// Ledger port.
package ledger

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"

	"onboard/internal/registry"
	"onboard/internal/registry/models"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/sentinel"
)

// ErrNoTransactOpts is returned when a write is attempted on a read-only client.
var ErrNoTransactOpts = errors.New("no authorized transactor available")

// boundContract is the part of *bind.BoundContract the client uses.
type boundContract interface {
	Call(opts *bind.CallOpts, results *[]any, method string, params ...any) error
	Transact(opts *bind.TransactOpts, method string, params ...any) (*types.Transaction, error)
}

// Client implements registry.Ledger against the registry contract. Writes
// are sent from the operator account and wait for one confirmation.
type Client struct {
	contract  boundContract
	abi       abi.ABI
	auth      *bind.TransactOpts
	waitMined func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	now       func() time.Time
}

// NewClient binds the contract at address. auth may be nil for a read-only client.
func NewClient(backend bind.ContractBackend, deploy bind.DeployBackend, address common.Address, auth *bind.TransactOpts) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(RegistryABI))
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}
	return &Client{
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		abi:      parsed,
		auth:     auth,
		waitMined: func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
			return bind.WaitMined(ctx, deploy, tx)
		},
		now: time.Now,
	}, nil
}

// DialConfig is what Dial needs to reach the contract.
type DialConfig struct {
	RPCURL     string
	Contract   string
	PrivateKey string
	ChainID    int64
}

// Dial connects to an RPC endpoint and binds the contract. Without a private
// key the client is read-only.
func Dial(ctx context.Context, cfg DialConfig) (*Client, *ethclient.Client, error) {
	if !common.IsHexAddress(cfg.Contract) {
		return nil, nil, fmt.Errorf("invalid contract address %q", cfg.Contract)
	}
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial ledger rpc: %w", err)
	}

	var auth *bind.TransactOpts
	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			eth.Close()
			return nil, nil, fmt.Errorf("parse ledger private key: %w", err)
		}
		auth, err = transactor(ctx, eth, key, cfg.ChainID)
		if err != nil {
			eth.Close()
			return nil, nil, err
		}
	}

	client, err := NewClient(eth, eth, common.HexToAddress(cfg.Contract), auth)
	if err != nil {
		eth.Close()
		return nil, nil, err
	}
	return client, eth, nil
}

func transactor(ctx context.Context, eth *ethclient.Client, key *ecdsa.PrivateKey, chainID int64) (*bind.TransactOpts, error) {
	chain := big.NewInt(chainID)
	if chainID == 0 {
		var err error
		if chain, err = eth.ChainID(ctx); err != nil {
			return nil, fmt.Errorf("read chain id: %w", err)
		}
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, chain)
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}
	return auth, nil
}

func (c *Client) GetRecord(ctx context.Context, identity id.Identity) (*models.BaseRecord, error) {
	var out []any
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getRecord", identity.Address()); err != nil {
		return nil, c.mapError(ctx, err)
	}
	rec, err := decodeBase(identity, out)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) GetOrganizationRecord(ctx context.Context, identity id.Identity) (*models.OrganizationRecord, error) {
	var out []any
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getOrganizationRecord", identity.Address()); err != nil {
		return nil, c.mapError(ctx, err)
	}
	base, err := decodeBase(identity, out)
	if err != nil {
		return nil, err
	}
	if !base.Role.IsOrganization() || len(out) < 7 {
		return nil, sentinel.ErrNotFound
	}
	return &models.OrganizationRecord{
		BaseRecord:       *base,
		OrganizationType: base.Role,
		Domain:           *abi.ConvertType(out[5], new(string)).(*string),
		OrganizationName: *abi.ConvertType(out[6], new(string)).(*string),
	}, nil
}

func (c *Client) IsDomainTaken(ctx context.Context, domain string) (bool, error) {
	return c.callBool(ctx, "isDomainTaken", strings.ToLower(domain))
}

func (c *Client) IsProofConsumed(ctx context.Context, proofID common.Hash) (bool, error) {
	return c.callBool(ctx, "isProofConsumed", [32]byte(proofID))
}

func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var out []any
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "stats"); err != nil {
		return nil, c.mapError(ctx, err)
	}
	if len(out) != 3 {
		return nil, fmt.Errorf("stats: unexpected %d outputs", len(out))
	}
	stats := &models.Stats{}
	for i, role := range id.Roles {
		n := *abi.ConvertType(out[i], new(*big.Int)).(**big.Int)
		stats.Add(role, int(n.Int64()))
	}
	return stats, nil
}

func (c *Client) RegisterPatient(ctx context.Context, reg models.Registration) (*models.Receipt, error) {
	return c.register(ctx, reg, id.RolePatient, "registerPatient",
		reg.Payload.Identity.Address(),
		reg.Proof.Data,
		[32]byte(reg.Payload.EmailCommitment),
		strings.ToLower(reg.Payload.Domain),
		requestIDBytes(reg.OriginatingRequestID),
	)
}

func (c *Client) RegisterHospital(ctx context.Context, reg models.Registration) (*models.Receipt, error) {
	return c.registerOrganization(ctx, reg, id.RoleHospital, "registerHospital")
}

func (c *Client) RegisterInsurer(ctx context.Context, reg models.Registration) (*models.Receipt, error) {
	return c.registerOrganization(ctx, reg, id.RoleInsurer, "registerInsurer")
}

func (c *Client) registerOrganization(ctx context.Context, reg models.Registration, role id.Role, method string) (*models.Receipt, error) {
	return c.register(ctx, reg, role, method,
		reg.Payload.Identity.Address(),
		reg.Proof.Data,
		[32]byte(reg.Payload.EmailCommitment),
		strings.ToLower(reg.Payload.Domain),
		strings.TrimSpace(reg.Payload.OrganizationName),
		requestIDBytes(reg.OriginatingRequestID),
	)
}

// register checks the invariants the contract enforces so typed errors come
// back without paying for a reverted transaction, then sends the write.
func (c *Client) register(ctx context.Context, reg models.Registration, role id.Role, method string, params ...any) (*models.Receipt, error) {
	if c.auth == nil {
		return nil, ErrNoTransactOpts
	}
	identity := reg.Payload.Identity
	proofID := reg.Proof.ID()

	if _, err := c.GetRecord(ctx, identity); err == nil {
		return nil, registry.ErrDuplicateIdentity
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}
	consumed, err := c.IsProofConsumed(ctx, proofID)
	if err != nil {
		return nil, err
	}
	if consumed {
		return nil, registry.ErrProofConsumed
	}
	if role.IsOrganization() {
		taken, err := c.IsDomainTaken(ctx, reg.Payload.Domain)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, registry.ErrDomainTaken
		}
	}

	receipt, err := c.transact(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	txHash := receipt.TxHash
	return &models.Receipt{
		Identity:             identity,
		Role:                 role,
		ProofID:              proofID,
		TxHash:               &txHash,
		RegisteredAt:         c.now(),
		OriginatingRequestID: reg.OriginatingRequestID,
	}, nil
}

func (c *Client) SetActive(ctx context.Context, identity id.Identity, active bool) error {
	if c.auth == nil {
		return ErrNoTransactOpts
	}
	if _, err := c.GetRecord(ctx, identity); err != nil {
		return err
	}
	_, err := c.transact(ctx, "setActive", identity.Address(), active)
	return err
}

// transact sends a write and waits for it to be mined.
func (c *Client) transact(ctx context.Context, method string, params ...any) (*types.Receipt, error) {
	opts := *c.auth
	opts.Context = ctx
	tx, err := c.contract.Transact(&opts, method, params...)
	if err != nil {
		return nil, c.mapError(ctx, err)
	}
	receipt, err := c.waitMined(ctx, tx)
	if err != nil {
		return nil, c.mapError(ctx, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%s transaction %s reverted", method, tx.Hash().Hex())
	}
	return receipt, nil
}

func (c *Client) callBool(ctx context.Context, method string, params ...any) (bool, error) {
	var out []any
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return false, c.mapError(ctx, err)
	}
	if len(out) != 1 {
		return false, fmt.Errorf("%s: unexpected %d outputs", method, len(out))
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// mapError turns contract reverts into registry errors. Context errors are
// returned as they are so the caller can tell a timeout from a refusal.
func (c *Client) mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	switch c.revertName(err) {
	case "DuplicateIdentity":
		return registry.ErrDuplicateIdentity
	case "DomainTaken":
		return registry.ErrDomainTaken
	case "ProofConsumed":
		return registry.ErrProofConsumed
	case "InvalidProof":
		return fmt.Errorf("%w: contract rejected proof", registry.ErrProofRejected)
	case "UnknownIdentity":
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("ledger call: %w: %w", sentinel.ErrUnavailable, err)
}

// revertName decodes the custom error selector carried in an RPC error.
func (c *Client) revertName(err error) string {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return ""
	}
	data, ok := dataErr.ErrorData().(string)
	if !ok {
		return ""
	}
	raw, decodeErr := hexutil.Decode(data)
	if decodeErr != nil || len(raw) < 4 {
		return ""
	}
	for name, e := range c.abi.Errors {
		if bytes.Equal(e.ID[:4], raw[:4]) {
			return name
		}
	}
	return ""
}

func decodeBase(identity id.Identity, out []any) (*models.BaseRecord, error) {
	if len(out) < 5 {
		return nil, fmt.Errorf("record: unexpected %d outputs", len(out))
	}
	role := id.Role(*abi.ConvertType(out[0], new(uint8)).(*uint8))
	if !role.IsValid() {
		return nil, sentinel.ErrNotFound
	}
	commitment := *abi.ConvertType(out[1], new([32]byte)).(*[32]byte)
	registeredAt := *abi.ConvertType(out[2], new(uint64)).(*uint64)
	active := *abi.ConvertType(out[3], new(bool)).(*bool)
	requestID := *abi.ConvertType(out[4], new([16]byte)).(*[16]byte)

	rec := &models.BaseRecord{
		Identity:        identity,
		Role:            role,
		EmailCommitment: id.Commitment(commitment),
		RegisteredAt:    time.Unix(int64(registeredAt), 0).UTC(),
		IsActive:        active,
	}
	if requestID != ([16]byte{}) {
		reqID := id.RequestID(uuid.UUID(requestID))
		rec.OriginatingRequestID = &reqID
	}
	return rec, nil
}

func requestIDBytes(reqID *id.RequestID) [16]byte {
	if reqID == nil {
		return [16]byte{}
	}
	return [16]byte(uuid.UUID(*reqID))
}

var _ registry.Ledger = (*Client)(nil)
