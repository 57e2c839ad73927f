package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/middleware"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/models"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/services"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceID = "0b6f3c1e-5b2a-4d7e-9c1f-2a3b4c5d6e7f"
	bobID   = "8d9e0f1a-2b3c-4d5e-8f6a-7b8c9d0e1f2a"
	adminID = "11111111-2222-4333-8444-555555555555"
)

type staticResolver map[string]string

func (s staticResolver) Resolve(_ context.Context, token string) (*services.Principal, error) {
	id, ok := s[token]
	if !ok {
		return nil, services.Unauthenticated("invalid or expired token")
	}
	return &services.Principal{ID: id}, nil
}

type testServer struct {
	app   *fiber.App
	store *storage.MemoryStore
}

func newTestServer(t *testing.T, thriftURL string) *testServer {
	t.Helper()
	store := storage.NewMemoryStore()
	ledger := services.NewPointsLedger(store, nil)
	importer := services.NewStoreImportService(
		store,
		services.NewThriftClient(thriftURL, "key", time.Second),
		storage.NewMemorySyncGuard(services.SyncTTL),
		services.ImportConfig{SystemUserID: adminID},
		nil,
	)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	requireAuth := middleware.RequireIdentity(staticResolver{"alice": aliceID, "bob": bobID, "admin": adminID})
	SetupHealthRoutes(app, nil)
	SetupLeaderboardRoutes(app, ledger)
	SetupUserQuestRoutes(app, services.NewQuestProgressService(store, ledger, nil), requireAuth)
	SetupLocationRoutes(app, importer, requireAuth)
	SetupPrivateLeaderboardRoutes(app, services.NewMembershipService(store, store, nil), requireAuth)
	return &testServer{app: app, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), string(b))
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "")
	status, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestQuestCompletionFlow(t *testing.T) {
	s := newTestServer(t, "")
	quest := s.store.PutQuest(models.Quest{Name: "Q1", LocationID: uuid.NewString(), PointsAchievable: "10", IsActive: true})

	status, _ := s.do(t, http.MethodPost, "/user-quests", "", map[string]string{"questId": quest.ID})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := s.do(t, http.MethodPost, "/user-quests", "alice", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "questId is required")

	status, body = s.do(t, http.MethodPost, "/user-quests", "alice", map[string]string{"questId": quest.ID})
	require.Equal(t, http.StatusCreated, status, string(body))
	uq := decode[models.UserQuest](t, body)
	assert.Equal(t, aliceID, uq.UserID)

	status, body = s.do(t, http.MethodPost, "/user-quests", "alice", map[string]string{"questId": quest.ID})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", decode[map[string]interface{}](t, body)["code"])

	status, body = s.do(t, http.MethodGet, "/user-quests", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.UserQuest](t, body), 1)

	status, _ = s.do(t, http.MethodPost, "/user-quests/"+uq.ID+"/complete", "bob", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = s.do(t, http.MethodPost, "/user-quests/"+uq.ID+"/complete", "alice", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	res := decode[services.CompletionResult](t, body)
	assert.True(t, res.OK)
	assert.Equal(t, int64(10), res.Awarded)

	status, _ = s.do(t, http.MethodPost, "/user-quests/"+uq.ID+"/complete", "alice", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, body = s.do(t, http.MethodGet, "/leaderboard?periodType=overall&userId="+aliceID, "", nil)
	require.Equal(t, http.StatusOK, status)
	entries := decode[[]models.LeaderboardEntry](t, body)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(10), entries[0].Points)
	assert.Nil(t, entries[0].PeriodStart)

	status, body = s.do(t, http.MethodGet, "/leaderboard?periodType=daily", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", decode[map[string]interface{}](t, body)["code"])

	status, body = s.do(t, http.MethodGet, "/leaderboard?userId="+bobID, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestPrivateLeaderboardFlow(t *testing.T) {
	s := newTestServer(t, "")

	status, body := s.do(t, http.MethodPost, "/private-leaderboards", "alice", map[string]string{
		"name":        "Friday crew",
		"periodType":  "weekly",
		"periodStart": "2024-05-13",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	lb := decode[models.PrivateLeaderboard](t, body)
	require.NotNil(t, lb.PeriodStart)

	status, body = s.do(t, http.MethodPost, "/private-leaderboards", "alice", map[string]string{"name": "x", "periodEnd": "soon"})
	assert.Equal(t, http.StatusBadRequest, status, string(body))

	status, _ = s.do(t, http.MethodGet, "/private-leaderboards/"+lb.ID, "bob", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(t, http.MethodPost, "/private-leaderboards/join", "bob", map[string]string{"inviteCode": lb.InviteCode})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, true, decode[map[string]interface{}](t, body)["ok"])

	status, body = s.do(t, http.MethodGet, "/private-leaderboards", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.PrivateLeaderboard](t, body), 1)

	status, body = s.do(t, http.MethodGet, "/private-leaderboards/"+lb.ID+"/members", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.PrivateLeaderboardMember](t, body), 2)

	status, body = s.do(t, http.MethodGet, "/private-leaderboards/"+lb.ID+"/standings", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Standing](t, body), 2)

	inactive := false
	status, _ = s.do(t, http.MethodPatch, "/private-leaderboards/"+lb.ID, "bob", map[string]interface{}{"isActive": inactive})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(t, http.MethodPatch, "/private-leaderboards/"+lb.ID, "alice", map[string]interface{}{"isActive": inactive})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.False(t, decode[models.PrivateLeaderboard](t, body).IsActive)

	status, body = s.do(t, http.MethodPost, "/private-leaderboards/join", "admin", map[string]string{"inviteCode": lb.InviteCode})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_state", decode[map[string]interface{}](t, body)["code"])

	status, body = s.do(t, http.MethodPost, "/private-leaderboards/"+lb.ID+"/invite-code", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEqual(t, lb.InviteCode, decode[map[string]string](t, body)["inviteCode"])

	status, _ = s.do(t, http.MethodPost, "/private-leaderboards/"+lb.ID+"/members", "alice", map[string]string{"userId": adminID})
	assert.Equal(t, http.StatusCreated, status)

	status, _ = s.do(t, http.MethodDelete, "/private-leaderboards/"+lb.ID+"/members/me", "bob", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = s.do(t, http.MethodDelete, "/private-leaderboards/"+lb.ID+"/members/"+aliceID, "alice", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.do(t, http.MethodDelete, "/private-leaderboards/"+lb.ID, "alice", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = s.do(t, http.MethodGet, "/private-leaderboards/"+lb.ID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateLeaderboardMultipartWithoutUploader(t *testing.T) {
	s := newTestServer(t, "")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("name", "With cover"))
	part, err := w.CreateFormFile("coverImage", "cover.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/private-leaderboards", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer alice")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestThriftImportRoute(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"storeName":"Hospice Shop","location":{"lat":-26.1929,"lng":28.0305}},
			{"storeName":"Vintage Corner","location":{"lat":"-26.1452","lng":"28.0411"}}
		]`))
	}))
	defer upstream.Close()
	s := newTestServer(t, upstream.URL)

	status, _ := s.do(t, http.MethodPost, "/locations/thrift/import", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := s.do(t, http.MethodPost, "/locations/thrift/import?dryRun=true", "admin", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	dry := decode[map[string]interface{}](t, body)
	assert.Equal(t, true, dry["dryRun"])
	assert.Equal(t, float64(2), dry["count"])

	status, body = s.do(t, http.MethodPost, "/locations/thrift/import", "admin", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	res := decode[map[string]interface{}](t, body)
	assert.Equal(t, float64(2), res["createdLocations"])
	assert.Equal(t, float64(2), res["questsCreated"])
	assert.NotZero(t, res["lastSync"])

	status, body = s.do(t, http.MethodPost, "/locations/thrift/import", "admin", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "fresh", decode[map[string]interface{}](t, body)["skipped"])

	status, body = s.do(t, http.MethodPost, "/locations/thrift/import?syncIfStale=false", "admin", nil)
	require.Equal(t, http.StatusOK, status)
	again := decode[map[string]interface{}](t, body)
	assert.Equal(t, float64(0), again["createdLocations"])
	assert.Equal(t, float64(2), again["skippedExisting"])
}

func TestThriftImportUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()
	s := newTestServer(t, upstream.URL)

	status, body := s.do(t, http.MethodPost, "/locations/thrift/import", "admin", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	res := decode[map[string]interface{}](t, body)
	assert.Equal(t, "upstream_error", res["code"])
	assert.Equal(t, float64(http.StatusBadGateway), res["upstreamStatus"])
}
