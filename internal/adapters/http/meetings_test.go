package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	router "github.com/parley-app/parley/internal/adapters/http"
	"github.com/parley-app/parley/internal/core"
	"github.com/parley-app/parley/internal/domain"
	"github.com/parley-app/parley/internal/store/memory"
)

func newAPI(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.NewStore()
	ctl := router.NewMeetingController(st, core.NewRegistry())

	r := gin.New()
	m := r.Group("/api/meetings")
	m.POST("", ctl.Create)
	m.GET("", ctl.ListActive)
	m.GET("/:id", ctl.Get)
	m.GET("/key/:key", ctl.GetByKey)
	m.POST("/:id/join", ctl.Join)
	m.POST("/:id/leave", ctl.Leave)
	m.GET("/:id/participants", ctl.Participants)
	m.DELETE("/:id", ctl.Close)
	return r, st
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

func TestCreateRoom(t *testing.T) {
	r, st := newAPI(t)

	w := doJSON(t, r, http.MethodPost, "/api/meetings", gin.H{
		"name": "planning", "max_participants": 8, "user_id": "alice",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	assert.Equal(t, "planning", body["name"])
	assert.Equal(t, float64(8), body["max_participants"])
	assert.Equal(t, true, body["is_active"])
	require.NotEmpty(t, body["id"])
	assert.Len(t, body["key"], 8)

	// Creator got the host record.
	m, err := st.GetParticipation(context.Background(), "alice", domain.RoomID(body["id"].(string)))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleHost, m.Role)
	assert.Equal(t, domain.StatusJoined, m.Status)
}

func TestCreateRoomValidation(t *testing.T) {
	r, _ := newAPI(t)

	w := doJSON(t, r, http.MethodPost, "/api/meetings", gin.H{"user_id": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/meetings", gin.H{
		"name": "x", "max_participants": 1, "user_id": "alice",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func createRoom(t *testing.T, r *gin.Engine, host string) (id, key string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/meetings", gin.H{
		"name": "standup", "max_participants": 5, "user_id": host,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	return body["id"].(string), body["key"].(string)
}

func TestGetRoomByIDAndKey(t *testing.T) {
	r, _ := newAPI(t)
	id, key := createRoom(t, r, "alice")

	w := doJSON(t, r, http.MethodGet, "/api/meetings/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode(t, w)["id"])

	w = doJSON(t, r, http.MethodGet, "/api/meetings/key/"+key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode(t, w)["id"])

	w = doJSON(t, r, http.MethodGet, "/api/meetings/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoinFilesPendingRecord(t *testing.T) {
	r, st := newAPI(t)
	id, _ := createRoom(t, r, "alice")

	w := doJSON(t, r, http.MethodPost, "/api/meetings/"+id+"/join", gin.H{"user_id": "bob"})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "pending", decode(t, w)["status"])

	m, err := st.GetParticipation(context.Background(), "bob", domain.RoomID(id))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, m.Status)
	assert.Equal(t, domain.RoleParticipant, m.Role)

	// Joining again is idempotent.
	w = doJSON(t, r, http.MethodPost, "/api/meetings/"+id+"/join", gin.H{"user_id": "bob"})
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestJoinRejectedUserForbidden(t *testing.T) {
	r, st := newAPI(t)
	id, _ := createRoom(t, r, "alice")

	require.NoError(t, st.UpsertParticipation(context.Background(), &domain.Membership{
		RoomID: domain.RoomID(id), UserID: "bob",
		Role: domain.RoleParticipant, Status: domain.StatusRejected,
	}))

	w := doJSON(t, r, http.MethodPost, "/api/meetings/"+id+"/join", gin.H{"user_id": "bob"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestJoinClosedRoomGone(t *testing.T) {
	r, st := newAPI(t)
	id, _ := createRoom(t, r, "alice")
	require.NoError(t, st.CloseRoom(context.Background(), domain.RoomID(id)))

	w := doJSON(t, r, http.MethodPost, "/api/meetings/"+id+"/join", gin.H{"user_id": "bob"})
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestLeaveAndParticipants(t *testing.T) {
	r, _ := newAPI(t)
	id, _ := createRoom(t, r, "alice")

	w := doJSON(t, r, http.MethodPost, "/api/meetings/"+id+"/join", gin.H{"user_id": "bob"})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/meetings/"+id+"/leave", gin.H{"user_id": "bob"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/meetings/"+id+"/participants", nil)
	require.Equal(t, http.StatusOK, w.Code)
	parts := decode(t, w)["participants"].([]any)
	require.Len(t, parts, 2)

	statuses := map[string]string{}
	for _, p := range parts {
		m := p.(map[string]any)
		statuses[m["user_id"].(string)] = m["status"].(string)
	}
	assert.Equal(t, "left", statuses["bob"])
	assert.Equal(t, "joined", statuses["alice"])
}

func TestCloseRoomHostOnly(t *testing.T) {
	r, _ := newAPI(t)
	id, _ := createRoom(t, r, "alice")

	w := doJSON(t, r, http.MethodPost, "/api/meetings/"+id+"/join", gin.H{"user_id": "bob"})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/meetings/"+id, gin.H{"user_id": "bob"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/meetings/"+id, gin.H{"user_id": "alice"})
	require.Equal(t, http.StatusOK, w.Code)

	// Closed room drops off the active list.
	w = doJSON(t, r, http.MethodGet, "/api/meetings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["rooms"])
}
