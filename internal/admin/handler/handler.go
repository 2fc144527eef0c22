// Package handler exposes the admin request queue over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"onboard/internal/admin/models"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/httputil"
	"onboard/pkg/requestcontext"
)

type Service interface {
	RequestAdminAccess(ctx context.Context, requester id.Identity, role id.AdminRole, reason string) (*models.Request, error)
	ListPending(ctx context.Context, requestType models.RequestType) ([]*models.Request, error)
	Get(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	Approve(ctx context.Context, requestID id.RequestID, admin id.Identity) (*models.Request, error)
	Reject(ctx context.Context, requestID id.RequestID, admin id.Identity, reason string) (*models.Request, error)
	GetAdmin(ctx context.Context, identity id.Identity) (*models.AdminRecord, error)
	SetRecordActive(ctx context.Context, admin, identity id.Identity, active bool) error
}

type Handler struct {
	queue  Service
	logger *slog.Logger
}

func New(queue Service, logger *slog.Logger) *Handler {
	return &Handler{queue: queue, logger: logger}
}

// Register mounts the participant-facing route.
func (h *Handler) Register(r chi.Router) {
	r.Post("/requests/admin-access", h.handleRequestAccess)
}

// RegisterAdmin mounts the admin surface. The router must authenticate the
// caller first so that requestcontext.Admin is set.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/requests", h.handleListPending)
	r.Get("/admin/requests/{id}", h.handleGetRequest)
	r.Post("/admin/requests/{id}/approve", h.handleApprove)
	r.Post("/admin/requests/{id}/reject", h.handleReject)
	r.Get("/admin/admins/{identity}", h.handleGetAdmin)
	r.Post("/admin/records/{identity}/deactivate", h.handleSetActive(false))
	r.Post("/admin/records/{identity}/activate", h.handleSetActive(true))
}

type AccessRequest struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`
	Reason   string `json:"reason"`

	identity id.Identity
	role     id.AdminRole
}

func (r *AccessRequest) Normalize() {
	r.Identity = strings.TrimSpace(r.Identity)
	r.Role = strings.ToUpper(strings.TrimSpace(r.Role))
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *AccessRequest) Validate() error {
	identity, err := id.ParseIdentity(r.Identity)
	if err != nil {
		return err
	}
	role, err := id.ParseAdminRole(r.Role)
	if err != nil {
		return err
	}
	r.identity = identity
	r.role = role
	return nil
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

func (r *RejectRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

type ListResponse struct {
	Requests []*models.Request `json:"requests"`
	Count    int               `json:"count"`
}

func (h *Handler) handleRequestAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AccessRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	created, err := h.queue.RequestAdminAccess(ctx, req.identity, req.role, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	requestType := models.RequestType(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("type"))))
	reqs, err := h.queue.ListPending(r.Context(), requestType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Requests: reqs, Count: len(reqs)})
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := requestIDParam(w, r)
	if !ok {
		return
	}
	req, err := h.queue.Get(r.Context(), requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	admin, ok := adminFrom(w, r)
	if !ok {
		return
	}
	requestID, ok := requestIDParam(w, r)
	if !ok {
		return
	}
	req, err := h.queue.Approve(ctx, requestID, admin)
	if err != nil {
		h.logFailure(ctx, "approve", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	admin, ok := adminFrom(w, r)
	if !ok {
		return
	}
	requestID, ok := requestIDParam(w, r)
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[RejectRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	req, err := h.queue.Reject(ctx, requestID, admin, body.Reason)
	if err != nil {
		h.logFailure(ctx, "reject", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) handleGetAdmin(w http.ResponseWriter, r *http.Request) {
	identity, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.queue.GetAdmin(r.Context(), identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := adminFrom(w, r)
		if !ok {
			return
		}
		identity, err := id.ParseIdentity(chi.URLParam(r, "identity"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if err := h.queue.SetRecordActive(r.Context(), admin, identity, active); err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"identity":  identity,
			"is_active": active,
		})
	}
}

func (h *Handler) logFailure(ctx context.Context, action string, requestID id.RequestID, err error) {
	if !dErrors.HasCode(err, dErrors.CodeInternal) {
		return
	}
	h.logger.ErrorContext(ctx, "admin action failed",
		"request_id", requestcontext.RequestID(ctx),
		"admin_request_id", requestID.String(),
		"action", action,
		"error", err,
	)
}

func adminFrom(w http.ResponseWriter, r *http.Request) (id.Identity, bool) {
	admin, ok := requestcontext.Admin(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin identity missing"))
		return id.Identity{}, false
	}
	return admin, true
}

func requestIDParam(w http.ResponseWriter, r *http.Request) (id.RequestID, bool) {
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.RequestID{}, false
	}
	return requestID, true
}
