package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/workstream-hq/workstream/internal/audit"
	"github.com/workstream-hq/workstream/internal/middleware"
	"github.com/workstream-hq/workstream/internal/models"
)

// ChannelService is the channel surface the handler consumes.
type ChannelService interface {
	Create(ctx context.Context, orgID, userID uuid.UUID, name, description string, isSystem bool, meta *audit.RequestMeta) (*models.Channel, error)
	Get(ctx context.Context, orgID, channelID uuid.UUID) (*models.Channel, error)
	List(ctx context.Context, orgID uuid.UUID) ([]models.Channel, error)
}

type ChannelsHandler struct {
	svc    ChannelService
	logger *zap.Logger
}

func NewChannelsHandler(svc ChannelService, logger *zap.Logger) *ChannelsHandler {
	return &ChannelsHandler{svc: svc, logger: logger}
}

type createChannelRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsSystem    bool   `json:"is_system"`
}

// Create handles POST /v1/channels
func (h *ChannelsHandler) Create(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel, err := h.svc.Create(
		c.Request.Context(),
		middleware.GetOrgID(c),
		middleware.GetUserID(c),
		req.Name,
		req.Description,
		req.IsSystem,
		audit.MetaFromRequest(c.Request),
	)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, channel)
}

// List handles GET /v1/channels
func (h *ChannelsHandler) List(c *gin.Context) {
	channels, err := h.svc.List(c.Request.Context(), middleware.GetOrgID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, channels)
}

// GetByID handles GET /v1/channels/:id
func (h *ChannelsHandler) GetByID(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	channel, err := h.svc.Get(c.Request.Context(), middleware.GetOrgID(c), channelID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, channel)
}
