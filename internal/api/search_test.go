package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/workstream-hq/workstream/internal/models"
	"github.com/workstream-hq/workstream/internal/repository"
	"github.com/workstream-hq/workstream/internal/search"
)

type stubSearcher struct {
	lastQuery search.Query
	hits      []search.Hit
	err       error
}

func (s *stubSearcher) Search(_ context.Context, q search.Query) ([]search.Hit, int, error) {
	s.lastQuery = q
	return s.hits, len(s.hits), s.err
}

// stubChannels resolves a fixed set of channels; the embedded interface
// panics on anything the handler shouldn't call.
type stubChannels struct {
	repository.ChannelRepository
	byID map[uuid.UUID]*models.Channel
}

func (s *stubChannels) GetByID(_ context.Context, orgID, channelID uuid.UUID) (*models.Channel, error) {
	ch, ok := s.byID[channelID]
	if !ok || ch.OrgID != orgID {
		return nil, nil
	}
	return ch, nil
}

type stubMessages struct {
	repository.MessageRepository
	byID    map[uuid.UUID]*models.Message
	orgs    map[uuid.UUID]uuid.UUID // message -> org
	queried []uuid.UUID
}

func (s *stubMessages) GetForOrg(_ context.Context, messageID, orgID uuid.UUID) (*models.Message, error) {
	s.queried = append(s.queried, messageID)
	msg, ok := s.byID[messageID]
	if !ok || s.orgs[messageID] != orgID {
		return nil, nil
	}
	return msg, nil
}

type stubOrgCache struct {
	orgs map[uuid.UUID]uuid.UUID // channel -> org
	sets int
}

func (s *stubOrgCache) GetOrg(_ context.Context, channelID uuid.UUID) (uuid.UUID, bool, error) {
	org, ok := s.orgs[channelID]
	return org, ok, nil
}

func (s *stubOrgCache) SetOrg(_ context.Context, channelID, orgID uuid.UUID) error {
	s.orgs[channelID] = orgID
	s.sets++
	return nil
}

type searchFixture struct {
	searcher *stubSearcher
	channels *stubChannels
	messages *stubMessages
	cache    *stubOrgCache
	router   *gin.Engine
	orgID    uuid.UUID
	userID   uuid.UUID
}

func newSearchFixture() *searchFixture {
	gin.SetMode(gin.TestMode)
	f := &searchFixture{
		searcher: &stubSearcher{},
		channels: &stubChannels{byID: map[uuid.UUID]*models.Channel{}},
		messages: &stubMessages{byID: map[uuid.UUID]*models.Message{}, orgs: map[uuid.UUID]uuid.UUID{}},
		cache:    &stubOrgCache{orgs: map[uuid.UUID]uuid.UUID{}},
		orgID:    uuid.New(),
		userID:   uuid.New(),
	}
	handler := NewSearchHandler(f.searcher, f.channels, f.messages, f.cache, zap.NewNop())
	f.router = gin.New()
	f.router.GET("/v1/search", stubIdentity(f.userID, f.orgID, "Ada"), handler.Search)
	return f
}

// addMessage registers a message hit resolvable within the given org.
func (f *searchFixture) addMessage(orgID uuid.UUID) *models.Message {
	msg := &models.Message{ID: uuid.New(), ChannelID: uuid.New(), Body: "deploy finished"}
	f.messages.byID[msg.ID] = msg
	f.messages.orgs[msg.ID] = orgID
	return msg
}

func (f *searchFixture) get(t *testing.T, query string) (*httptest.ResponseRecorder, searchResponse) {
	t.Helper()
	req := httptest.NewRequest("GET", "/v1/search?"+query, nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp searchResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestSearchFiltersHitsByOrg(t *testing.T) {
	f := newSearchFixture()
	mine := f.addMessage(f.orgID)
	foreign := f.addMessage(uuid.New())
	f.searcher.hits = []search.Hit{
		{MessageID: mine.ID, ChannelID: mine.ChannelID, Snippet: "<mark>deploy</mark> finished"},
		{MessageID: foreign.ID, ChannelID: foreign.ChannelID, Snippet: "other"},
	}

	w, resp := f.get(t, "q=deploy")

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, mine.ID, resp.Results[0].Message.ID)
	assert.Equal(t, "<mark>deploy</mark> finished", resp.Results[0].Snippet)
	assert.Equal(t, 1, resp.TotalCount)
}

func TestSearchCacheShortCircuitsForeignChannels(t *testing.T) {
	f := newSearchFixture()
	foreign := f.addMessage(uuid.New())
	f.cache.orgs[foreign.ChannelID] = uuid.New() // known foreign
	f.searcher.hits = []search.Hit{{MessageID: foreign.ID, ChannelID: foreign.ChannelID}}

	w, resp := f.get(t, "q=deploy")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resp.Results)
	// The DB was never asked — the cache answered.
	assert.Empty(t, f.messages.queried)
}

func TestSearchPopulatesCacheOnResolve(t *testing.T) {
	f := newSearchFixture()
	mine := f.addMessage(f.orgID)
	f.searcher.hits = []search.Hit{{MessageID: mine.ID, ChannelID: mine.ChannelID}}

	w, _ := f.get(t, "q=deploy")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.cache.sets)
	assert.Equal(t, f.orgID, f.cache.orgs[mine.ChannelID])
}

func TestSearchChannelScopeForwarded(t *testing.T) {
	f := newSearchFixture()
	channelID := uuid.New()
	f.channels.byID[channelID] = &models.Channel{ID: channelID, OrgID: f.orgID, Name: "general"}

	w, resp := f.get(t, "q=deploy&scope=channel:"+channelID.String())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, channelID.String(), f.searcher.lastQuery.ChannelID)
	assert.Equal(t, "channel:"+channelID.String(), resp.SearchScope)
}

func TestSearchScopeUnknownChannelIs404(t *testing.T) {
	f := newSearchFixture()

	w, _ := f.get(t, "q=deploy&scope=channel:"+uuid.NewString())

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Channel not found or access denied")
}

func TestSearchScopeForeignChannelIs404(t *testing.T) {
	f := newSearchFixture()
	channelID := uuid.New()
	f.channels.byID[channelID] = &models.Channel{ID: channelID, OrgID: uuid.New(), Name: "theirs"}

	w, _ := f.get(t, "q=deploy&scope=channel:"+channelID.String())

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchMalformedScopeIs400(t *testing.T) {
	f := newSearchFixture()

	for _, scope := range []string{"user:abc", "channel:not-a-uuid"} {
		w, _ := f.get(t, "q=deploy&scope="+url.QueryEscape(scope))
		assert.Equal(t, http.StatusBadRequest, w.Code, "scope %q", scope)
	}
}

func TestSearchSanitizesQuery(t *testing.T) {
	f := newSearchFixture()

	w, _ := f.get(t, "q="+url.QueryEscape("deploy! (urgent)"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deploy  urgent", f.searcher.lastQuery.Text)
}

func TestSearchOnlySpecialsIs400(t *testing.T) {
	f := newSearchFixture()

	w, _ := f.get(t, "q="+url.QueryEscape("!!!&&&"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no valid terms")
}

func TestSearchQueryLengthBounds(t *testing.T) {
	f := newSearchFixture()

	w, _ := f.get(t, "q=")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.get(t, "q="+strings.Repeat("a", 201))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchBackendErrorIs400(t *testing.T) {
	f := newSearchFixture()
	f.searcher.err = assert.AnError

	w, _ := f.get(t, "q=deploy")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid search query format")
}
