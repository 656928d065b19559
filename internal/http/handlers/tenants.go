package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/neurobridge/support-backend/internal/http/response"
	"github.com/neurobridge/support-backend/internal/modules/tenant"
	"github.com/neurobridge/support-backend/internal/platform/logger"
)

type TenantHandler struct {
	log *logger.Logger
	svc *tenant.Service
}

func NewTenantHandler(log *logger.Logger, svc *tenant.Service) *TenantHandler {
	return &TenantHandler{log: log.With("handler", "TenantHandler"), svc: svc}
}

// List handles GET /tenants.
func (h *TenantHandler) List(c *gin.Context) {
	tenants, err := h.svc.ListTenants(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err, "")
		return
	}
	response.RespondOK(c, gin.H{"tenants": tenants})
}

// Get handles GET /tenants/:tenant_id, returning the same stats shape as
// GET /documents/stats/:tenant_id.
func (h *TenantHandler) Get(c *gin.Context) {
	stats, err := h.svc.GetStats(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "tenant_id")
		return
	}
	response.RespondOK(c, stats)
}

// Delete handles DELETE /tenants/:tenant_id?confirm=true.
func (h *TenantHandler) Delete(c *gin.Context) {
	confirm, _ := strconv.ParseBool(c.Query("confirm"))
	result, err := h.svc.DeleteTenant(c.Request.Context(), c.Param("tenant_id"), confirm)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "")
		return
	}
	response.RespondOK(c, result)
}
