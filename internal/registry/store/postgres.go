package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"onboard/internal/proof"
	"onboard/internal/registry"
	"onboard/internal/registry/models"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/sentinel"
)

const activeDomainIndex = "registry_records_active_domain_idx"

// Postgres is a Ledger backed by the registry_records and consumed_proofs
// tables. Each registration runs in one transaction.
type Postgres struct {
	db       *sql.DB
	verifier proof.Verifier
	now      func() time.Time
}

func NewPostgres(db *sql.DB, verifier proof.Verifier) *Postgres {
	return &Postgres{db: db, verifier: verifier, now: time.Now}
}

const recordColumns = `identity, role, email_commitment, registered_at, is_active, originating_request_id, domain, organization_name`

func (s *Postgres) GetRecord(ctx context.Context, identity id.Identity) (*models.BaseRecord, error) {
	rec, err := s.find(ctx, s.db, identity, false)
	if err != nil {
		return nil, err
	}
	base := rec.BaseRecord
	return &base, nil
}

func (s *Postgres) GetOrganizationRecord(ctx context.Context, identity id.Identity) (*models.OrganizationRecord, error) {
	rec, err := s.find(ctx, s.db, identity, false)
	if err != nil {
		return nil, err
	}
	if !rec.Role.IsOrganization() {
		return nil, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *Postgres) IsDomainTaken(ctx context.Context, domain string) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM registry_records
			WHERE lower(domain) = lower($1) AND is_active AND role IN (2, 3)
		)
	`, domain).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check domain: %w", err)
	}
	return taken, nil
}

func (s *Postgres) IsProofConsumed(ctx context.Context, proofID common.Hash) (bool, error) {
	var consumed bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM consumed_proofs WHERE proof_id = $1)`, proofID.Bytes()).Scan(&consumed)
	if err != nil {
		return false, fmt.Errorf("check proof: %w", err)
	}
	return consumed, nil
}

func (s *Postgres) Stats(ctx context.Context) (*models.Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, COUNT(*) FROM registry_records WHERE is_active GROUP BY role
	`)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	defer rows.Close()

	stats := &models.Stats{}
	for rows.Next() {
		var role int16
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		stats.Add(id.Role(role), count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return stats, nil
}

func (s *Postgres) RegisterPatient(ctx context.Context, reg models.Registration) (*models.Receipt, error) {
	return s.register(ctx, reg, id.RolePatient)
}

func (s *Postgres) RegisterHospital(ctx context.Context, reg models.Registration) (*models.Receipt, error) {
	return s.register(ctx, reg, id.RoleHospital)
}

func (s *Postgres) RegisterInsurer(ctx context.Context, reg models.Registration) (*models.Receipt, error) {
	return s.register(ctx, reg, id.RoleInsurer)
}

func (s *Postgres) register(ctx context.Context, reg models.Registration, role id.Role) (receipt *models.Receipt, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	identity := reg.Payload.Identity
	proofID := reg.Proof.ID()
	domain := strings.ToLower(reg.Payload.Domain)

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM registry_records WHERE identity = $1)`, identity.Address().Bytes()).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check identity: %w", err)
	}
	if exists {
		return nil, registry.ErrDuplicateIdentity
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO consumed_proofs (proof_id, identity)
		VALUES ($1, $2)
		ON CONFLICT (proof_id) DO NOTHING
	`, proofID.Bytes(), identity.Address().Bytes())
	if err != nil {
		return nil, fmt.Errorf("consume proof: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, registry.ErrProofConsumed
	}

	if role.IsOrganization() {
		var holder []byte
		err := tx.QueryRowContext(ctx, `
			SELECT identity FROM registry_records
			WHERE lower(domain) = $1 AND is_active AND role IN (2, 3)
			FOR UPDATE
		`, domain).Scan(&holder)
		switch {
		case err == nil:
			return nil, registry.ErrDomainTaken
		case !errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("check domain: %w", err)
		}
	}

	if err := s.verifier.Verify(ctx, reg.Proof, reg.Payload); err != nil {
		if errors.Is(err, proof.ErrInvalidProof) {
			return nil, fmt.Errorf("%w: %w", registry.ErrProofRejected, err)
		}
		return nil, fmt.Errorf("verify proof: %w", err)
	}

	now := s.now().UTC()
	var domainArg, nameArg sql.NullString
	if role.IsOrganization() {
		domainArg = sql.NullString{String: domain, Valid: true}
		nameArg = sql.NullString{String: strings.TrimSpace(reg.Payload.OrganizationName), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO registry_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6, $7)
	`,
		identity.Address().Bytes(),
		int16(role),
		reg.Payload.EmailCommitment[:],
		now,
		nullableRequestID(reg.OriginatingRequestID),
		domainArg,
		nameArg,
	)
	if err != nil {
		if e := uniqueViolation(err); e != nil {
			return nil, e
		}
		return nil, fmt.Errorf("insert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if e := uniqueViolation(err); e != nil {
			return nil, e
		}
		return nil, fmt.Errorf("commit registration: %w", err)
	}

	return &models.Receipt{
		Identity:             identity,
		Role:                 role,
		ProofID:              proofID,
		RegisteredAt:         now,
		OriginatingRequestID: reg.OriginatingRequestID,
	}, nil
}

func (s *Postgres) SetActive(ctx context.Context, identity id.Identity, active bool) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set active: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rec, err := s.find(ctx, tx, identity, true)
	if err != nil {
		return err
	}

	if active && !rec.IsActive && rec.Role.IsOrganization() {
		var holder []byte
		err := tx.QueryRowContext(ctx, `
			SELECT identity FROM registry_records
			WHERE lower(domain) = lower($1) AND is_active AND role IN (2, 3) AND identity <> $2
			FOR UPDATE
		`, rec.Domain, identity.Address().Bytes()).Scan(&holder)
		switch {
		case err == nil:
			return registry.ErrDomainTaken
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check domain: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE registry_records SET is_active = $2 WHERE identity = $1`, identity.Address().Bytes(), active); err != nil {
		if e := uniqueViolation(err); e != nil {
			return e
		}
		return fmt.Errorf("update record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set active: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) find(ctx context.Context, q queryer, identity id.Identity, forUpdate bool) (*models.OrganizationRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM registry_records WHERE identity = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rec, err := scanRecord(q.QueryRowContext(ctx, query, identity.Address().Bytes()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return rec, nil
}

func scanRecord(row *sql.Row) (*models.OrganizationRecord, error) {
	var (
		identity, commitment []byte
		role                 int16
		originating          uuid.NullUUID
		domain, name         sql.NullString
		rec                  models.OrganizationRecord
	)
	if err := row.Scan(&identity, &role, &commitment, &rec.RegisteredAt, &rec.IsActive, &originating, &domain, &name); err != nil {
		return nil, err
	}
	rec.Identity = id.Identity(common.BytesToAddress(identity))
	rec.Role = id.Role(role)
	copy(rec.EmailCommitment[:], commitment)
	if originating.Valid {
		reqID := id.RequestID(originating.UUID)
		rec.OriginatingRequestID = &reqID
	}
	if rec.Role.IsOrganization() {
		rec.OrganizationType = rec.Role
		rec.Domain = domain.String
		rec.OrganizationName = name.String
	}
	return &rec, nil
}

func nullableRequestID(reqID *id.RequestID) uuid.NullUUID {
	if reqID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*reqID), Valid: true}
}

// uniqueViolation maps a concurrent insert that lost the race on a unique
// index to the matching registry error.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch pgErr.ConstraintName {
	case activeDomainIndex:
		return registry.ErrDomainTaken
	case "consumed_proofs_pkey":
		return registry.ErrProofConsumed
	default:
		return registry.ErrDuplicateIdentity
	}
}

var _ registry.Ledger = (*Postgres)(nil)
