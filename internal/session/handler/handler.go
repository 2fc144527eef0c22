// Package handler exposes registration sessions over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"onboard/internal/session"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/httputil"
	"onboard/pkg/requestcontext"
)

// Service is the session API the handler drives.
type Service interface {
	Create(ctx context.Context, identity id.Identity) *session.Session
	Get(ctx context.Context, sessionID id.SessionID) (*session.Session, error)
	SelectRole(ctx context.Context, sessionID id.SessionID, role id.Role, email string) (*session.Session, error)
	SubmitDetails(ctx context.Context, sessionID id.SessionID, organizationName, domain string) (*session.Session, error)
	AwaitEmail(ctx context.Context, sessionID id.SessionID) (*session.Session, error)
	GenerateProof(ctx context.Context, sessionID id.SessionID) (*session.Session, error)
	Submit(ctx context.Context, sessionID id.SessionID) (*session.Session, error)
	Restart(ctx context.Context, sessionID id.SessionID) (*session.Session, error)
	Abandon(ctx context.Context, sessionID id.SessionID) error
}

type Handler struct {
	sessions Service
	logger   *slog.Logger
}

func New(sessions Service, logger *slog.Logger) *Handler {
	return &Handler{sessions: sessions, logger: logger}
}

// Register mounts every session route except the blocking email wait.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registrations", h.handleCreate)
	r.Get("/registrations/{id}", h.handleGet)
	r.Post("/registrations/{id}/role", h.handleSelectRole)
	r.Post("/registrations/{id}/details", h.handleSubmitDetails)
	r.Post("/registrations/{id}/proof", h.handleGenerateProof)
	r.Post("/registrations/{id}/submit", h.handleSubmit)
	r.Post("/registrations/{id}/restart", h.handleRestart)
	r.Delete("/registrations/{id}", h.handleAbandon)
}

// RegisterAwait mounts the email wait. It blocks for up to the poller's
// deadline and must not sit behind a short request timeout; a client
// disconnect cancels it.
func (h *Handler) RegisterAwait(r chi.Router) {
	r.Post("/registrations/{id}/email/await", h.handleAwaitEmail)
}

type CreateRequest struct {
	Identity string `json:"identity"`
}

type RoleRequest struct {
	Role  string `json:"role"`
	Email string `json:"email"`

	role id.Role
}

func (r *RoleRequest) Normalize() {
	r.Role = strings.ToUpper(strings.TrimSpace(r.Role))
	r.Email = strings.TrimSpace(r.Email)
}

func (r *RoleRequest) Validate() error {
	role, err := id.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.role = role
	return nil
}

type DetailsRequest struct {
	OrganizationName string `json:"organization_name"`
	Domain           string `json:"domain"`
}

func (r *DetailsRequest) Normalize() {
	r.OrganizationName = strings.TrimSpace(r.OrganizationName)
	r.Domain = strings.TrimSpace(r.Domain)
}

// Response is a session plus the email instructions once they exist.
type Response struct {
	*session.Session
	Instructions *session.Instructions `json:"instructions,omitempty"`
}

func toResponse(s *session.Session) Response {
	return Response{Session: s, Instructions: s.Instructions()}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeJSON[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	var identity id.Identity
	if strings.TrimSpace(req.Identity) != "" {
		parsed, err := id.ParseIdentity(req.Identity)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		identity = parsed
	}

	httputil.WriteJSON(w, http.StatusCreated, toResponse(h.sessions.Create(ctx, identity)))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	s, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(s))
}

func (h *Handler) handleSelectRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RoleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	s, err := h.sessions.SelectRole(ctx, sessionID, req.role, req.Email)
	h.respondStep(w, r, s, err)
}

func (h *Handler) handleSubmitDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DetailsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	s, err := h.sessions.SubmitDetails(ctx, sessionID, req.OrganizationName, req.Domain)
	h.respondStep(w, r, s, err)
}

func (h *Handler) handleAwaitEmail(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	s, err := h.sessions.AwaitEmail(r.Context(), sessionID)
	h.respondStep(w, r, s, err)
}

func (h *Handler) handleGenerateProof(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	s, err := h.sessions.GenerateProof(r.Context(), sessionID)
	h.respondStep(w, r, s, err)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	s, err := h.sessions.Submit(r.Context(), sessionID)
	h.respondStep(w, r, s, err)
}

func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	s, err := h.sessions.Restart(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(s))
}

func (h *Handler) handleAbandon(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Abandon(r.Context(), sessionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondStep reports a step that moved the session to ERROR as the session
// itself; its failure carries the participant-facing message. Precondition
// errors left the session untouched and go out as plain errors.
func (h *Handler) respondStep(w http.ResponseWriter, r *http.Request, s *session.Session, err error) {
	ctx := r.Context()
	var failed *session.FailedError
	switch {
	case err == nil:
		httputil.WriteJSON(w, http.StatusOK, toResponse(s))
	case errors.As(err, &failed) && s != nil:
		h.logger.InfoContext(ctx, "registration step failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", s.ID.String(),
			"failure_kind", string(failed.Failure.Kind),
		)
		httputil.WriteJSON(w, http.StatusOK, toResponse(s))
	default:
		if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			h.logger.ErrorContext(ctx, "registration step error",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
	}
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (id.SessionID, bool) {
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.SessionID{}, false
	}
	return sessionID, true
}
