package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/workstream-hq/workstream/internal/middleware"
	"github.com/workstream-hq/workstream/internal/models"
	"github.com/workstream-hq/workstream/internal/repository"
)

// AuditHandler serves the admin-only audit trail. The RequireAdmin
// middleware gates both routes; the org predicate on every query is
// what keeps tenants from seeing each other's history.
type AuditHandler struct {
	repo   repository.AuditLogRepository
	logger *zap.Logger
}

func NewAuditHandler(repo repository.AuditLogRepository, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{repo: repo, logger: logger}
}

type auditListResponse struct {
	AuditLogs  []models.AuditLog `json:"audit_logs"`
	TotalCount int               `json:"total_count"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// List handles GET /v1/audit?entity_type&entity_id&action&user_id&limit&offset
// Newest first.
func (h *AuditHandler) List(c *gin.Context) {
	limit, offset, ok := paginationParams(c, 50, 200)
	if !ok {
		return
	}

	filter := repository.AuditFilter{
		EntityType: c.Query("entity_type"),
		Action:     c.Query("action"),
	}
	if raw := c.Query("entity_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity_id"})
			return
		}
		filter.EntityID = &id
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		filter.UserID = &id
	}

	logs, total, err := h.repo.List(c.Request.Context(), middleware.GetOrgID(c), filter, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, auditListResponse{
		AuditLogs:  logs,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	})
}

// EntityHistory handles GET /v1/audit/entity/:entity_type/:entity_id
// Oldest first — the evolution of one entity.
func (h *AuditHandler) EntityHistory(c *gin.Context) {
	entityType := c.Param("entity_type")
	entityID, err := uuid.Parse(c.Param("entity_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity ID"})
		return
	}

	limit, offset, ok := paginationParams(c, 100, 500)
	if !ok {
		return
	}

	logs, err := h.repo.EntityHistory(c.Request.Context(), middleware.GetOrgID(c), entityType, entityID, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, logs)
}
