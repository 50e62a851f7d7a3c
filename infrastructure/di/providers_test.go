package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitializeContainer_Memory(t *testing.T) {
	cfg := config.Default()

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, container.Gateway)
	assert.NotNil(t, container.Metrics)
	handler := container.Router.Setup()

	body := `{"data":{"anchorId":"a1","nodeId":"n1","extent":{"type":"text","startCharacter":0,"endCharacter":3,"text":"abc"}}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/immutable-text-anchor/", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/immutable-text-anchor/a1", nil))
	var resp struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "anchors_gateway_operations_total")
}

func TestInitializeContainer_SQLiteReadiness(t *testing.T) {
	cfg := config.Default()
	cfg.StoreDriver = config.DriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "anchors.db")
	cfg.EnableMetrics = false

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, container.Metrics)

	rec := httptest.NewRecorder()
	container.Router.Setup().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProvideLogger_InvalidLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "loud"

	_, err := ProvideLogger(cfg)
	assert.Error(t, err)
}

func TestProvideCollection_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.StoreDriver = "mongo"
	logger, err := ProvideLogger(cfg)
	require.NoError(t, err)

	_, _, err = ProvideCollection(context.Background(), cfg, logger)
	assert.Error(t, err)
}

func TestInitializeContainer_RemoteProxy(t *testing.T) {
	upstream, upstreamCleanup, err := InitializeContainer(context.Background(), config.Default())
	require.NoError(t, err)
	defer upstreamCleanup()
	server := httptest.NewServer(upstream.Router.Setup())
	defer server.Close()

	cfg := config.Default()
	cfg.RemoteBaseURL = server.URL
	cfg.EnableMetrics = false
	cfg.StoreDriver = "mongo"
	require.NoError(t, cfg.Validate())

	proxy, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()
	assert.Nil(t, proxy.Store)

	handler := proxy.Router.Setup()
	body := `{"data":{"anchorId":"p1","nodeId":"n1","mediaTimeStamp":7}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/immutable-text-anchor/", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	got := upstream.Gateway.GetAnchor(context.Background(), "p1")
	require.True(t, got.Success, got.Message)
	assert.Equal(t, "n1", got.Payload.NodeID)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProvideCollection_SkippedWhenProxying(t *testing.T) {
	cfg := config.Default()
	cfg.RemoteBaseURL = "http://anchors.internal"
	cfg.StoreDriver = config.DriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "never-created.db")

	collection, cleanup, err := ProvideCollection(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, collection)
	assert.Nil(t, ProvideReadinessCheck(collection))
	assert.NoFileExists(t, cfg.SQLitePath)
}

func TestInitializeContainer_InvalidRemote(t *testing.T) {
	cfg := config.Default()
	cfg.RemoteBaseURL = "ftp://example.com"

	_, _, err := InitializeContainer(context.Background(), cfg)
	assert.Error(t, err)
}
