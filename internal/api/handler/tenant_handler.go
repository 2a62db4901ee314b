package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/tenantq/internal/api/middleware"
	"github.com/notifyhub/tenantq/internal/domain"
	"github.com/notifyhub/tenantq/internal/tenant"
)

// TenantHandler exposes tenant lifecycle operations.
type TenantHandler struct {
	mgr    *tenant.Manager
	logger *zap.Logger
}

func NewTenantHandler(mgr *tenant.Manager, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{mgr: mgr, logger: logger}
}

// Onboard handles POST /api/v1/tenants
//
// @Summary  Onboard a tenant: database, queue tables, scoped credential
// @Tags     tenants
// @Accept   json
// @Produce  json
// @Param    body  body      domain.OnboardRequest  true  "Tenant payload"
// @Success  201   {object}  domain.Tenant
// @Failure  409   {object}  map[string]string
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/tenants [post]
func (h *TenantHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	var req domain.OnboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	t, err := h.mgr.Onboard(r.Context(), req)
	if err != nil {
		h.logger.Warn("tenant onboarding failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("tenant", req.TenantID),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, t)
}

// Teardown handles DELETE /api/v1/tenants/{id}
//
// @Summary  Tear down a tenant and drop its storage domain
// @Tags     tenants
// @Param    id   path  string  true  "Tenant identifier"
// @Success  204
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/tenants/{id} [delete]
func (h *TenantHandler) Teardown(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.mgr.Teardown(r.Context(), id); err != nil {
		h.logger.Warn("tenant teardown failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("tenant", id),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/v1/tenants
//
// @Summary  List registered tenants
// @Tags     tenants
// @Produce  json
// @Success  200  {array}  domain.Tenant
// @Router   /api/v1/tenants [get]
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.mgr.List(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	if tenants == nil {
		tenants = []*domain.Tenant{}
	}
	respondJSON(w, http.StatusOK, tenants)
}

// ConnectionInfo handles GET /api/v1/tenants/{id}/connection
//
// @Summary  Connection descriptor for a tenant's database
// @Tags     tenants
// @Produce  json
// @Param    id   path      string  true  "Tenant identifier"
// @Success  200  {object}  domain.ConnectionInfo
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/tenants/{id}/connection [get]
func (h *TenantHandler) ConnectionInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := h.mgr.GetConnectionInfo(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}
