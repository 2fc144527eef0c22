package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"onboard/internal/admin"
	"onboard/internal/admin/models"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/sentinel"
)

const pendingIndex = "admin_requests_pending_idx"

// Postgres stores the queue in admin_requests and admin_records. Type and
// status are stored lowercase; the payload is the request's typed payload
// as JSONB.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const requestColumns = `id, requester, type, status, payload, request_time, processed_by, processed_time, rejection_reason`

type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) CreateRequest(ctx context.Context, req *models.Request) error {
	payload, err := encodePayload(req)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO admin_requests (id, requester, type, status, payload, request_time)
		VALUES ($1, $2, $3, 'pending', $4, $5)
	`,
		uuid.UUID(req.ID),
		req.Requester.Address().Bytes(),
		strings.ToLower(string(req.Type)),
		string(payload),
		req.RequestTime.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == pendingIndex {
			return admin.ErrPendingExists
		}
		return fmt.Errorf("insert admin request: %w", err)
	}
	return nil
}

func (s *Postgres) FindRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	req, err := scanRequest(s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM admin_requests WHERE id = $1`, uuid.UUID(requestID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find admin request: %w", err)
	}
	return req, nil
}

func (s *Postgres) ListPending(ctx context.Context, filter models.RequestFilter) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM admin_requests WHERE status = 'pending'`
	var args []any
	if filter.Type != "" {
		query += ` AND type = $1`
		args = append(args, strings.ToLower(string(filter.Type)))
	}
	query += ` ORDER BY request_time, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin requests: %w", err)
	}
	return out, nil
}

// Process locks the request row and runs fn. The UPDATE is guarded on the
// pending status as well, so a decision can never overwrite another one.
func (s *Postgres) Process(ctx context.Context, requestID id.RequestID, fn func(ctx context.Context, tx admin.Tx, req *models.Request) error) (_ *models.Request, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin process: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	req, err := scanRequest(tx.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM admin_requests WHERE id = $1 FOR UPDATE`, uuid.UUID(requestID)))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, sentinel.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("lock admin request: %w", err)
	case !req.IsPending():
		return nil, admin.ErrAlreadyProcessed
	}

	if err := fn(ctx, &postgresTx{q: tx}, req); err != nil {
		return nil, err
	}
	if req.ProcessedBy == nil || req.ProcessedTime == nil || req.IsPending() {
		return nil, fmt.Errorf("request %s was not decided", requestID)
	}

	var reason sql.NullString
	if req.RejectionReason != "" {
		reason = sql.NullString{String: req.RejectionReason, Valid: true}
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE admin_requests
		SET status = $2, processed_by = $3, processed_time = $4, rejection_reason = $5
		WHERE id = $1 AND status = 'pending'
	`,
		uuid.UUID(requestID),
		strings.ToLower(string(req.Status)),
		req.ProcessedBy.Address().Bytes(),
		req.ProcessedTime.UTC(),
		reason,
	)
	if err != nil {
		return nil, fmt.Errorf("update admin request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, admin.ErrAlreadyProcessed
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit process: %w", err)
	}
	return req, nil
}

func (s *Postgres) FindAdmin(ctx context.Context, identity id.Identity) (*models.AdminRecord, error) {
	return findAdmin(ctx, s.db, identity)
}

func (s *Postgres) UpsertAdmin(ctx context.Context, record *models.AdminRecord) error {
	return upsertAdmin(ctx, s.db, record)
}

type postgresTx struct {
	q execQueryer
}

func (t *postgresTx) FindAdmin(ctx context.Context, identity id.Identity) (*models.AdminRecord, error) {
	return findAdmin(ctx, t.q, identity)
}

func (t *postgresTx) UpsertAdmin(ctx context.Context, record *models.AdminRecord) error {
	return upsertAdmin(ctx, t.q, record)
}

func findAdmin(ctx context.Context, q execQueryer, identity id.Identity) (*models.AdminRecord, error) {
	var (
		rec         models.AdminRecord
		role        int16
		permissions int64
	)
	err := q.QueryRowContext(ctx, `
		SELECT role, permissions, is_active, admin_since FROM admin_records WHERE identity = $1
	`, identity.Address().Bytes()).Scan(&role, &permissions, &rec.IsActive, &rec.AdminSince)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	rec.Identity = identity
	rec.Role = id.AdminRole(role)
	rec.Permissions = models.Permissions(permissions)
	return &rec, nil
}

func upsertAdmin(ctx context.Context, q execQueryer, record *models.AdminRecord) error {
	since := record.AdminSince
	if since.IsZero() {
		since = time.Now()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO admin_records (identity, role, permissions, is_active, admin_since)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity) DO UPDATE
		SET role = EXCLUDED.role, permissions = EXCLUDED.permissions, is_active = EXCLUDED.is_active
	`,
		record.Identity.Address().Bytes(),
		int16(record.Role),
		int64(record.Permissions),
		record.IsActive,
		since.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		reqID         uuid.UUID
		requester     []byte
		reqType       string
		status        string
		payload       []byte
		processedBy   []byte
		processedTime sql.NullTime
		reason        sql.NullString
		req           models.Request
	)
	if err := row.Scan(&reqID, &requester, &reqType, &status, &payload, &req.RequestTime, &processedBy, &processedTime, &reason); err != nil {
		return nil, err
	}
	req.ID = id.RequestID(reqID)
	req.Requester = id.Identity(common.BytesToAddress(requester))
	req.Type = models.RequestType(strings.ToUpper(reqType))
	req.Status = models.Status(strings.ToUpper(status))
	if len(processedBy) > 0 {
		by := id.Identity(common.BytesToAddress(processedBy))
		req.ProcessedBy = &by
	}
	if processedTime.Valid {
		at := processedTime.Time
		req.ProcessedTime = &at
	}
	req.RejectionReason = reason.String
	if err := decodePayload(&req, payload); err != nil {
		return nil, err
	}
	return &req, nil
}

func encodePayload(req *models.Request) ([]byte, error) {
	var v any
	switch {
	case req.Type == models.RequestPatientRegistration && req.Patient != nil:
		v = req.Patient
	case req.Type == models.RequestOrganizationRegistration && req.Organization != nil:
		v = req.Organization
	case req.Type == models.RequestAdminAccess && req.AdminAccess != nil:
		v = req.AdminAccess
	default:
		return nil, fmt.Errorf("%w: request %s has no %s payload", sentinel.ErrInvalidInput, req.ID, req.Type)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

func decodePayload(req *models.Request, data []byte) error {
	var err error
	switch req.Type {
	case models.RequestPatientRegistration:
		req.Patient = &models.PatientRegistration{}
		err = json.Unmarshal(data, req.Patient)
	case models.RequestOrganizationRegistration:
		req.Organization = &models.OrganizationRegistration{}
		err = json.Unmarshal(data, req.Organization)
	case models.RequestAdminAccess:
		req.AdminAccess = &models.AdminAccess{}
		err = json.Unmarshal(data, req.AdminAccess)
	default:
		return fmt.Errorf("unknown request type %q", req.Type)
	}
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

var _ admin.Store = (*Postgres)(nil)
