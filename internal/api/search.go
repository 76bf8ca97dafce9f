package api

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/workstream-hq/workstream/internal/middleware"
	"github.com/workstream-hq/workstream/internal/models"
	"github.com/workstream-hq/workstream/internal/repository"
	"github.com/workstream-hq/workstream/internal/search"
)

// MessageSearcher is the index facade the handler consumes.
type MessageSearcher interface {
	Search(ctx context.Context, q search.Query) ([]search.Hit, int, error)
}

// ChannelOrgResolver caches channel→org lookups (Redis in production).
type ChannelOrgResolver interface {
	GetOrg(ctx context.Context, channelID uuid.UUID) (uuid.UUID, bool, error)
	SetOrg(ctx context.Context, channelID, orgID uuid.UUID) error
}

// SearchHandler runs full-text queries against the external index and
// re-filters the hits by the caller's org. The index itself is not
// org-scoped, so this filter is load-bearing, not just defense in
// depth for the channel-scope check.
type SearchHandler struct {
	searcher MessageSearcher
	channels repository.ChannelRepository
	messages repository.MessageRepository
	orgCache ChannelOrgResolver
	logger   *zap.Logger
}

func NewSearchHandler(
	searcher MessageSearcher,
	channels repository.ChannelRepository,
	messages repository.MessageRepository,
	orgCache ChannelOrgResolver,
	logger *zap.Logger,
) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		channels: channels,
		messages: messages,
		orgCache: orgCache,
		logger:   logger,
	}
}

type searchResult struct {
	Message *models.Message `json:"message"`
	Snippet string          `json:"snippet,omitempty"`
}

type searchResponse struct {
	Query       string         `json:"query"`
	Results     []searchResult `json:"results"`
	TotalCount  int            `json:"total_count"`
	Limit       int            `json:"limit"`
	Offset      int            `json:"offset"`
	SearchScope string         `json:"search_scope,omitempty"`
}

// ftsSpecials strips characters with syntax meaning to text-query
// parsers, keeping word chars, whitespace, and -+* operators.
var ftsSpecials = regexp.MustCompile(`[^\w\s\-\+\*]`)

// Search handles GET /v1/search?q=&scope=channel:<uuid>&limit=&offset=
func (h *SearchHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" || len(q) > 200 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query must be between 1 and 200 characters"})
		return
	}

	limit, offset, ok := paginationParams(c, 50, 100)
	if !ok {
		return
	}

	orgID := middleware.GetOrgID(c)

	scope := c.Query("scope")
	channelID, ok := h.parseScope(c, scope)
	if !ok {
		return
	}
	if channelID != uuid.Nil {
		channel, err := h.channels.GetByID(c.Request.Context(), orgID, channelID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		if channel == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found or access denied"})
			return
		}
	}

	sanitized := strings.TrimSpace(ftsSpecials.ReplaceAllString(q, " "))
	if sanitized == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query contains no valid terms"})
		return
	}

	query := search.Query{Text: sanitized, Limit: limit, Offset: offset}
	if channelID != uuid.Nil {
		query.ChannelID = channelID.String()
	}

	hits, _, err := h.searcher.Search(c.Request.Context(), query)
	if err != nil {
		h.logger.Warn("search failed", zap.String("query", sanitized), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search query format"})
		return
	}

	results := h.filterByOrg(c.Request.Context(), orgID, hits)

	c.JSON(http.StatusOK, searchResponse{
		Query:       q,
		Results:     results,
		TotalCount:  len(results),
		Limit:       limit,
		Offset:      offset,
		SearchScope: scope,
	})
}

// parseScope understands "channel:<uuid>". Returns uuid.Nil for no
// scope; writes the 400 itself and reports false on a malformed one.
func (h *SearchHandler) parseScope(c *gin.Context, scope string) (uuid.UUID, bool) {
	if scope == "" {
		return uuid.Nil, true
	}
	raw, found := strings.CutPrefix(scope, "channel:")
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scope format, use 'channel:<uuid>'"})
		return uuid.Nil, false
	}
	channelID, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel ID in scope"})
		return uuid.Nil, false
	}
	return channelID, true
}

// filterByOrg resolves each hit's message within the caller's org,
// dropping everything else. The channel→org cache short-circuits hits
// that are already known to belong elsewhere.
func (h *SearchHandler) filterByOrg(ctx context.Context, orgID uuid.UUID, hits []search.Hit) []searchResult {
	results := make([]searchResult, 0, len(hits))
	for _, hit := range hits {
		if h.orgCache != nil {
			cachedOrg, found, err := h.orgCache.GetOrg(ctx, hit.ChannelID)
			if err != nil {
				h.logger.Warn("channel org cache lookup failed", zap.Error(err))
			} else if found && cachedOrg != orgID {
				continue
			}
		}

		// GetForOrg both fetches the representation and enforces the
		// tenancy boundary in one query.
		msg, err := h.messages.GetForOrg(ctx, hit.MessageID, orgID)
		if err != nil {
			h.logger.Warn("resolve search hit failed",
				zap.String("message_id", hit.MessageID.String()),
				zap.Error(err),
			)
			continue
		}
		if msg == nil {
			continue
		}

		if h.orgCache != nil {
			if err := h.orgCache.SetOrg(ctx, msg.ChannelID, orgID); err != nil {
				h.logger.Warn("channel org cache store failed", zap.Error(err))
			}
		}

		results = append(results, searchResult{Message: msg, Snippet: hit.Snippet})
	}
	return results
}
