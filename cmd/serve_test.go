package cmd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/config"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/metrics"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/services"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noIdentity struct{}

func (noIdentity) Resolve(context.Context, string) (*services.Principal, error) {
	return nil, services.Unauthenticated("invalid or expired token")
}

func newTestApp(t *testing.T) (*appDeps, func(*http.Request) *http.Response) {
	t.Helper()
	thrift := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"storeName":"Campus Thrift","location":{"lat":-26.19,"lng":28.03}}]`))
	}))
	t.Cleanup(thrift.Close)

	cfg := &config.Config{
		ImportQuestPoints: "10",
		AllowedOrigins:    "http://localhost:3000",
		ThriftAPIBaseURL:  thrift.URL,
		SystemUserID:      "00000000-0000-0000-0000-000000000001",
	}
	store := storage.NewMemoryStore()
	m := metrics.New()
	ledger := services.NewPointsLedger(store, m)
	deps := &appDeps{
		metrics:    m,
		resolver:   noIdentity{},
		quests:     services.NewQuestProgressService(store, ledger, m),
		ledger:     ledger,
		importer:   newImporter(store, storage.NewMemorySyncGuard(services.SyncTTL), cfg, m),
		membership: services.NewMembershipService(store, store, nil),
		origins:    cfg.Origins(),
		serviceKey: "service-secret",
	}
	app := newApp(*deps)
	return deps, func(req *http.Request) *http.Response {
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}
}

func TestAppServesHealthAndMetrics(t *testing.T) {
	_, do := newTestApp(t)

	resp := do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(httptest.NewRequest(http.MethodGet, "/user-quests", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "witsquest_http_requests_total"), "request metrics are exported")
}

func TestAppCORS(t *testing.T) {
	_, do := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/leaderboard", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp := do(req)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMemoryGatewayNeedsNoDatabase(t *testing.T) {
	store, closeFn, err := openGateway(&config.Config{StoreBackend: config.BackendMemory}, true)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &storage.MemoryStore{}, store)

	guard, closeGuard, err := newSyncGuard(context.Background(), &config.Config{})
	require.NoError(t, err)
	defer closeGuard()
	assert.IsType(t, &storage.MemorySyncGuard{}, guard)
}

func TestImportAcceptsServiceKey(t *testing.T) {
	_, do := newTestApp(t)

	resp := do(httptest.NewRequest(http.MethodPost, "/locations/thrift/import?dryRun=true", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	req := httptest.NewRequest(http.MethodPost, "/locations/thrift/import?dryRun=true", nil)
	req.Header.Set("Authorization", "Bearer service-secret")
	resp = do(req)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"count":1`)
}
