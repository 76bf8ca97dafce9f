package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/workstream-hq/workstream/internal/apperr"
	"github.com/workstream-hq/workstream/internal/models"
	"github.com/workstream-hq/workstream/internal/service"
)

type fakeMessageService struct {
	createIn  *service.CreateMessageInput
	editIn    *service.EditMessageInput
	msg       *models.Message
	threadOut []models.Message
	err       error
}

func (f *fakeMessageService) Create(_ context.Context, in service.CreateMessageInput) (*models.Message, error) {
	f.createIn = &in
	return f.msg, f.err
}

func (f *fakeMessageService) Edit(_ context.Context, in service.EditMessageInput) (*models.Message, error) {
	f.editIn = &in
	return f.msg, f.err
}

func (f *fakeMessageService) ListThread(_ context.Context, _, _, _ uuid.UUID, _, _ int) ([]models.Message, error) {
	return f.threadOut, f.err
}

func newMessagesRouter(svc MessageService, userID, orgID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handler := NewMessagesHandler(svc, zap.NewNop())
	grp := engine.Group("", stubIdentity(userID, orgID, "Ada"))
	grp.POST("/v1/messages", handler.Create)
	grp.PATCH("/v1/messages/:id", handler.Edit)
	grp.GET("/v1/messages/threads/:thread_id", handler.ListThread)
	return engine
}

func TestCreateMessagePassesIdentityAndChannel(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	channelID := uuid.New()
	msg := &models.Message{ID: uuid.New(), ChannelID: channelID, UserID: userID, Body: "hi", Version: 1}
	svc := &fakeMessageService{msg: msg}
	router := newMessagesRouter(svc, userID, orgID)

	body := strings.NewReader(`{"body": "hi"}`)
	req := httptest.NewRequest("POST", "/v1/messages?channel_id="+channelID.String(), body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.createIn)
	assert.Equal(t, channelID, svc.createIn.ChannelID)
	assert.Equal(t, userID, svc.createIn.UserID)
	assert.Equal(t, orgID, svc.createIn.OrgID)
	assert.Nil(t, svc.createIn.ThreadID)
	require.NotNil(t, svc.createIn.Meta)
	assert.Equal(t, "POST /v1/messages", svc.createIn.Meta.Endpoint)
}

func TestCreateMessageThreadIDForwarded(t *testing.T) {
	threadID := uuid.New()
	svc := &fakeMessageService{msg: &models.Message{ID: uuid.New()}}
	router := newMessagesRouter(svc, uuid.New(), uuid.New())

	body := strings.NewReader(`{"body": "reply", "thread_id": "` + threadID.String() + `"}`)
	req := httptest.NewRequest("POST", "/v1/messages?channel_id="+uuid.NewString(), body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.createIn.ThreadID)
	assert.Equal(t, threadID, *svc.createIn.ThreadID)
}

func TestCreateMessageRejectsBadChannelID(t *testing.T) {
	svc := &fakeMessageService{}
	router := newMessagesRouter(svc, uuid.New(), uuid.New())

	req := httptest.NewRequest("POST", "/v1/messages?channel_id=not-a-uuid", strings.NewReader(`{"body": "hi"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.createIn)
}

func TestEditMessageConflictCarriesCurrentVersion(t *testing.T) {
	svc := &fakeMessageService{err: apperr.VersionConflict(4)}
	router := newMessagesRouter(svc, uuid.New(), uuid.New())

	body := strings.NewReader(`{"body": "edit", "version": 2}`)
	req := httptest.NewRequest("PATCH", "/v1/messages/"+uuid.NewString(), body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(4), resp["current_version"])
	assert.Equal(t, "Message was modified by another user. Current version is 4", resp["error"])
}

func TestEditMessagePassesExpectedVersion(t *testing.T) {
	messageID := uuid.New()
	svc := &fakeMessageService{msg: &models.Message{ID: messageID, Version: 3}}
	router := newMessagesRouter(svc, uuid.New(), uuid.New())

	body := strings.NewReader(`{"body": "edit", "version": 2}`)
	req := httptest.NewRequest("PATCH", "/v1/messages/"+messageID.String(), body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.editIn)
	assert.Equal(t, messageID, svc.editIn.MessageID)
	assert.Equal(t, 2, svc.editIn.ExpectedVersion)
}

func TestEditMessageMissingVersionRejected(t *testing.T) {
	svc := &fakeMessageService{}
	router := newMessagesRouter(svc, uuid.New(), uuid.New())

	req := httptest.NewRequest("PATCH", "/v1/messages/"+uuid.NewString(), strings.NewReader(`{"body": "edit"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.editIn)
}

func TestListThreadRequiresChannelID(t *testing.T) {
	svc := &fakeMessageService{}
	router := newMessagesRouter(svc, uuid.New(), uuid.New())

	req := httptest.NewRequest("GET", "/v1/messages/threads/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListThreadNotFoundFromService(t *testing.T) {
	svc := &fakeMessageService{err: apperr.NotFound("Thread not found in this channel")}
	router := newMessagesRouter(svc, uuid.New(), uuid.New())

	url := "/v1/messages/threads/" + uuid.NewString() + "?channel_id=" + uuid.NewString()
	req := httptest.NewRequest("GET", url, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
		wantOK     bool
	}{
		{"defaults", "", 50, 0, true},
		{"explicit", "limit=10&offset=20", 10, 20, true},
		{"capped", "limit=9999", 100, 0, true},
		{"zero limit", "limit=0", 0, 0, false},
		{"negative offset", "offset=-1", 0, 0, false},
		{"garbage", "limit=abc", 0, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/?"+tc.query, nil)

			limit, offset, ok := paginationParams(c, 50, 100)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantLimit, limit)
				assert.Equal(t, tc.wantOffset, offset)
			} else {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}
