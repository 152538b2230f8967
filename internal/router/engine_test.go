package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/freshflower-auth/config"
	"github.com/oksasatya/freshflower-auth/internal/container"
	"github.com/oksasatya/freshflower-auth/internal/infrastructure/esaudit"
	"github.com/oksasatya/freshflower-auth/internal/infrastructure/memory"
	"github.com/oksasatya/freshflower-auth/pkg/helpers"
)

func newTestEngine(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	container.Reset()
	t.Cleanup(container.Reset)

	container.SetConfig(cfg)
	container.SetLogger(helpers.NopLogger())
	container.SetUserRepo(memory.NewUserRepository())
	return NewEngine(cfg)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestEngine_RegisterThenLogin(t *testing.T) {
	r := newTestEngine(t, &config.Config{BcryptCost: 4})

	rec := serve(r, postJSON("/api/auth/register", `{"email":"rose@example.com","password":"password123","fullName":"Rose"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(r, postJSON("/api/auth/login", `{"email":"rose@example.com","password":"password123"}`))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, postJSON("/api/auth/login", `{"email":"rose@example.com","password":"nope-nope"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(r, postJSON("/api/auth/login", `{"password":"password123"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error map[string]string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"email": "is required"}, body.Error)
}

func TestEngine_Fallbacks(t *testing.T) {
	r := newTestEngine(t, &config.Config{})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "route not found", body["message"])

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/auth/login", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEngine_HealthAndDebugVars(t *testing.T) {
	r := newTestEngine(t, &config.Config{DebugMetricsEnabled: true})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth_registrations")
}

func TestEngine_DebugVarsDisabled(t *testing.T) {
	r := newTestEngine(t, &config.Config{})
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEngine_CORSPreflight(t *testing.T) {
	r := newTestEngine(t, &config.Config{CORSAllowedOrigins: "http://localhost:5173"})

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/register", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(r, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/auth/register", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = serve(r, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildAuthDeps_OptionalSideChannels(t *testing.T) {
	container.Reset()
	t.Cleanup(container.Reset)
	container.SetUserRepo(memory.NewUserRepository())

	deps := buildAuthDeps()
	assert.Nil(t, deps.Service.Audit)
	assert.Nil(t, deps.Service.Mail)

	es, err := esaudit.NewClient([]string{"http://127.0.0.1:9200"}, "", "")
	require.NoError(t, err)
	container.SetES(es)
	container.SetConfig(&config.Config{ESAuditIndex: "auth-audit"})

	deps = buildAuthDeps()
	require.NotNil(t, deps.Service.Audit)
	assert.Nil(t, deps.Service.Mail)

	// Each service registers its audit flush; with nothing pending it returns at once.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, container.Shutdown(ctx))
}
