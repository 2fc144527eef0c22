// Package handler exposes the unauthenticated registry reads over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"onboard/internal/registry/models"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/httputil"
	"onboard/pkg/requestcontext"
)

// Service is the read side of the registry client.
type Service interface {
	GetRole(ctx context.Context, identity id.Identity) (id.Role, error)
	GetOrganizationRecord(ctx context.Context, identity id.Identity) (*models.OrganizationRecord, error)
	IsDomainTaken(ctx context.Context, domain string) (bool, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

type Handler struct {
	registry Service
	logger   *slog.Logger
}

func New(registry Service, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/registry/roles/{identity}", h.handleGetRole)
	r.Get("/registry/organizations/{identity}", h.handleGetOrganization)
	r.Get("/registry/domains/{domain}", h.handleGetDomain)
	r.Get("/registry/stats", h.handleGetStats)
}

type RoleResponse struct {
	Identity id.Identity `json:"identity"`
	Role     string      `json:"role"`
}

type DomainResponse struct {
	Domain string `json:"domain"`
	Taken  bool   `json:"taken"`
}

func (h *Handler) handleGetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	role, err := h.registry.GetRole(ctx, identity)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read role",
			"request_id", requestcontext.RequestID(ctx),
			"identity", identity.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	// Role.String renders the zero value as NONE.
	httputil.WriteJSON(w, http.StatusOK, RoleResponse{Identity: identity, Role: role.String()})
}

func (h *Handler) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.registry.GetOrganizationRecord(ctx, identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	taken, err := h.registry.IsDomainTaken(ctx, domain)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	normalized, _ := id.ParseDomain(domain)
	httputil.WriteJSON(w, http.StatusOK, DomainResponse{Domain: normalized, Taken: taken})
}

func (h *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.registry.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read registry stats",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
