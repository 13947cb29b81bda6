package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamCoscia/KnowledgeVIS/internal/config"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/client"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

func testConfig(backendURL string) *config.Config {
	cfg := config.Default()
	cfg.Backend.BaseURL = backendURL
	cfg.Cache.CleanupInterval = 0
	cfg.Metrics.Enabled = true
	cfg.Server.RateLimit = 1000
	return cfg
}

func buildApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	backend, err := client.NewClient(cfg.Backend.BaseURL, client.WithRetryMax(0))
	require.NoError(t, err)
	app, err := Build(context.Background(), cfg, logging.NewNopLogger(), backend, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app
}

func serve(app *App, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, req)
	return rec
}

func TestBuild_ServesHealthAndMetrics(t *testing.T) {
	backend, _ := newBackend(t)
	app := buildApp(t, testConfig(backend.URL))

	require.NotNil(t, app.Metrics)
	require.NotNil(t, app.Limiter)
	require.NotNil(t, app.Presets)

	rec := serve(app, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")

	rec = serve(app, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")

	rec = serve(app, http.MethodGet, config.DefaultMetricsPath, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestBuild_ReadinessFailsWithoutBackend(t *testing.T) {
	backend, _ := newBackend(t)
	cfg := testConfig(backend.URL)
	backend.Close()

	app := buildApp(t, cfg)
	rec := serve(app, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBuild_SessionQueryRoundTrip(t *testing.T) {
	backend, posts := newBackend(t)
	app := buildApp(t, testConfig(backend.URL))

	rec := serve(app, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	body := `{"model":"bert","topk":2,"prompts":[{"template":"a [subject] is a _.","subjects":["cat","dog"]}]}`
	rec = serve(app, http.MethodPost, "/api/v1/sessions/"+created.ID+"/query", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, posts.Load())

	rec = serve(app, http.MethodGet, "/api/v1/sessions/"+created.ID+"/views/heatmap", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pet")

	rec = serve(app, http.MethodGet, "/api/v1/presets", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuild_InvalidViewDefaults(t *testing.T) {
	backend, _ := newBackend(t)
	cfg := testConfig(backend.URL)
	cfg.Views.HeatMapSort = "sideways"

	c, err := client.NewClient(backend.URL)
	require.NoError(t, err)
	_, err = Build(context.Background(), cfg, logging.NewNopLogger(), c, "test")
	assert.Error(t, err)
}

func TestApp_Reload(t *testing.T) {
	backend, _ := newBackend(t)
	cfg := testConfig(backend.URL)
	app := buildApp(t, cfg)

	next := *cfg
	next.Server.RateLimit = 5
	next.Server.RateBurst = 2
	next.Server.Port = cfg.Server.Port + 1
	pending := app.Reload(&next)

	assert.Equal(t, []string{"server.host/port"}, pending)
	assert.Equal(t, 5.0, app.Config.Server.RateLimit)
	assert.Equal(t, 2, app.Config.Server.RateBurst)
	assert.Equal(t, cfg.Server.Port, app.Config.Server.Port)

	off := *app.Config
	off.Server.RateLimit = 0
	off.Cache.Driver = "redis"
	assert.Equal(t, []string{"server.rate_limit", "cache"}, app.Reload(&off))
	assert.Equal(t, 5.0, app.Config.Server.RateLimit)
}

func TestApp_CloseRunsNewestFirst(t *testing.T) {
	log := logging.NewNopLogger()
	app := &App{Logger: log}
	var order []string
	fail := errors.New(errors.ErrCodeInternal, "boom")
	app.onClose("first", func(context.Context) error { order = append(order, "first"); return nil })
	app.onClose("second", func(context.Context) error { order = append(order, "second"); return fail })

	assert.Equal(t, fail, app.Close(context.Background()))
	assert.Equal(t, []string{"second", "first"}, order)
	assert.NoError(t, app.Close(context.Background()))
}

func TestCoordinatorOptions(t *testing.T) {
	v := config.Default().Views
	opts, err := coordinatorOptions(v)
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	v.Scale = "cubic"
	_, err = coordinatorOptions(v)
	assert.Error(t, err)
}
