package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/workstream-hq/workstream/internal/audit"
	"github.com/workstream-hq/workstream/internal/middleware"
	"github.com/workstream-hq/workstream/internal/models"
	"github.com/workstream-hq/workstream/internal/service"
)

// MessageService is the thread-service surface the handler consumes.
// Declared here so tests can drop in a fake.
type MessageService interface {
	Create(ctx context.Context, in service.CreateMessageInput) (*models.Message, error)
	Edit(ctx context.Context, in service.EditMessageInput) (*models.Message, error)
	ListThread(ctx context.Context, orgID, channelID, threadID uuid.UUID, limit, offset int) ([]models.Message, error)
}

type MessagesHandler struct {
	svc    MessageService
	logger *zap.Logger
}

func NewMessagesHandler(svc MessageService, logger *zap.Logger) *MessagesHandler {
	return &MessagesHandler{svc: svc, logger: logger}
}

type createMessageRequest struct {
	Body     string     `json:"body" binding:"required"`
	ThreadID *uuid.UUID `json:"thread_id"`
}

// Create handles POST /v1/messages?channel_id=<uuid>
func (h *MessagesHandler) Create(c *gin.Context) {
	channelID, err := uuid.Parse(c.Query("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel_id"})
		return
	}

	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.svc.Create(c.Request.Context(), service.CreateMessageInput{
		ChannelID: channelID,
		UserID:    middleware.GetUserID(c),
		OrgID:     middleware.GetOrgID(c),
		ThreadID:  req.ThreadID,
		Body:      req.Body,
		Meta:      audit.MetaFromRequest(c.Request),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

type editMessageRequest struct {
	Body    string `json:"body" binding:"required"`
	Version int    `json:"version" binding:"required"`
}

// Edit handles PATCH /v1/messages/:id
//
// The request carries the version the client last saw. A mismatch comes
// back as a 409 with the current version so the client can refetch and
// retry — there is no server-side merge.
func (h *MessagesHandler) Edit(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message ID"})
		return
	}

	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.svc.Edit(c.Request.Context(), service.EditMessageInput{
		MessageID:       messageID,
		UserID:          middleware.GetUserID(c),
		OrgID:           middleware.GetOrgID(c),
		Body:            req.Body,
		ExpectedVersion: req.Version,
		Meta:            audit.MetaFromRequest(c.Request),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, msg)
}

// ListThread handles GET /v1/messages/threads/:thread_id?channel_id=&limit=&offset=
func (h *MessagesHandler) ListThread(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("thread_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread ID"})
		return
	}
	channelID, err := uuid.Parse(c.Query("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel_id"})
		return
	}

	limit, offset, ok := paginationParams(c, 50, 100)
	if !ok {
		return
	}

	messages, err := h.svc.ListThread(c.Request.Context(), middleware.GetOrgID(c), channelID, threadID, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// paginationParams reads limit/offset with a default and cap. On a bad
// value it writes the 400 itself and reports false.
func paginationParams(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int, ok bool) {
	limit = defaultLimit
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' parameter"})
			return 0, 0, false
		}
		limit = parsed
		if limit > maxLimit {
			limit = maxLimit
		}
	}

	if o := c.Query("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'offset' parameter"})
			return 0, 0, false
		}
		offset = parsed
	}

	return limit, offset, true
}
