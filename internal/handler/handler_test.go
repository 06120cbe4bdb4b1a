package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/luvproxy/chat-proxy-api/internal/config"
	"github.com/luvproxy/chat-proxy-api/internal/domain/license"
	"github.com/luvproxy/chat-proxy-api/internal/handler/middleware"
	"github.com/luvproxy/chat-proxy-api/internal/service"
	"github.com/luvproxy/chat-proxy-api/internal/storage/memstorage"
	"github.com/luvproxy/chat-proxy-api/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const handlerTestKey = "AB12-CD34-EF56-GH78"

type apiFixture struct {
	router       *gin.Engine
	licenses     *memstorage.LicenseRepository
	tokens       *service.TokenService
	upstreamHits *atomic.Int64
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var hits atomic.Int64
	upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"AI response text"}`))
	}))
	t.Cleanup(upstreamServer.Close)

	log := zap.NewNop()
	licenses := memstorage.NewLicenseRepository()
	logs := memstorage.NewUsageLogRepository()
	historyRepo := memstorage.NewHistoryRepository()

	tokens, err := service.NewTokenService(&config.JWTConfig{Secret: "test-secret", TTL: time.Hour}, log)
	require.NoError(t, err)

	usageService := service.NewUsageService(licenses, logs, log)
	licenseService := service.NewLicenseService(licenses, tokens, usageService, log)
	proxyService := service.NewProxyService(licenseService, usageService, upstream.NewClient(upstreamServer.URL, 5*time.Second, log), log)
	syncService := service.NewSyncService(historyRepo, log)

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(log))

	apiV1 := router.Group("/api/v1")
	apiV1.POST("/auth", NewAuthHandler(licenseService, log).Authenticate)

	protected := apiV1.Group("")
	protected.Use(middleware.SessionAuthMiddleware(tokens, log))
	protected.POST("/proxy", NewProxyHandler(proxyService, log).Forward)
	protected.POST("/sync", NewSyncHandler(syncService, log).Sync)

	return &apiFixture{
		router:       router,
		licenses:     licenses,
		tokens:       tokens,
		upstreamHits: &hits,
	}
}

type apiEnvelope struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
	Error   string         `json:"error"`
}

func (f *apiFixture) post(t *testing.T, path, token string, body any) (int, apiEnvelope) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var envelope apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec.Code, envelope
}

func (f *apiFixture) createLicense(t *testing.T, lic *license.License) {
	t.Helper()
	_, err := f.licenses.Create(context.Background(), lic)
	require.NoError(t, err)
}

func (f *apiFixture) authenticate(t *testing.T) string {
	t.Helper()
	status, envelope := f.post(t, "/api/v1/auth", "", gin.H{"license_key": handlerTestKey})
	require.Equal(t, http.StatusOK, status)
	token, _ := envelope.Data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestAuthEndpoint_Success(t *testing.T) {
	f := newAPIFixture(t)
	f.createLicense(t, &license.License{
		LicenseKey:        handlerTestKey,
		PlanType:          license.PlanTrial,
		IsActive:          true,
		MaxRequestsPerDay: 10,
		RequestsToday:     3,
	})

	status, envelope := f.post(t, "/api/v1/auth", "", gin.H{"license_key": handlerTestKey})

	require.Equal(t, http.StatusOK, status)
	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data["token"])

	licenseInfo, ok := envelope.Data["license"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "trial", licenseInfo["plan_type"])
	assert.Equal(t, float64(3), licenseInfo["requests_today"])
	assert.Equal(t, float64(10), licenseInfo["max_requests_day"])
}

func TestAuthEndpoint_MalformedKey(t *testing.T) {
	f := newAPIFixture(t)

	status, envelope := f.post(t, "/api/v1/auth", "", gin.H{"license_key": "not-a-key"})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, envelope.Success)
	assert.NotEmpty(t, envelope.Error)
}

func TestAuthEndpoint_MissingKey(t *testing.T) {
	f := newAPIFixture(t)

	status, envelope := f.post(t, "/api/v1/auth", "", gin.H{})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, envelope.Success)
}

func TestAuthEndpoint_UnknownKey(t *testing.T) {
	f := newAPIFixture(t)

	status, envelope := f.post(t, "/api/v1/auth", "", gin.H{"license_key": handlerTestKey})

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "License not found", envelope.Error)
}

func TestAuthEndpoint_QuotaExceeded(t *testing.T) {
	f := newAPIFixture(t)
	f.createLicense(t, &license.License{
		LicenseKey:        handlerTestKey,
		PlanType:          license.PlanTrial,
		IsActive:          true,
		MaxRequestsPerDay: 10,
		RequestsToday:     10,
	})

	status, envelope := f.post(t, "/api/v1/auth", "", gin.H{"license_key": handlerTestKey})

	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, envelope.Success)
}

func TestProxyEndpoint_RequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	status, envelope := f.post(t, "/api/v1/proxy", "", gin.H{
		"project_id":    "proj-1",
		"session_token": "cred",
		"message":       "hi",
	})

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", envelope.Error)
	assert.Equal(t, int64(0), f.upstreamHits.Load())
}

func TestProxyEndpoint_RejectsForeignToken(t *testing.T) {
	f := newAPIFixture(t)

	foreign, err := service.NewTokenService(&config.JWTConfig{Secret: "other-secret", TTL: time.Hour}, zap.NewNop())
	require.NoError(t, err)
	token, err := foreign.Issue(&license.License{LicenseKey: handlerTestKey, PlanType: license.PlanPro})
	require.NoError(t, err)

	status, _ := f.post(t, "/api/v1/proxy", token, gin.H{
		"project_id":    "proj-1",
		"session_token": "cred",
		"message":       "hi",
	})

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, int64(0), f.upstreamHits.Load())
}

func TestProxyEndpoint_Success(t *testing.T) {
	f := newAPIFixture(t)
	f.createLicense(t, &license.License{
		LicenseKey:        handlerTestKey,
		PlanType:          license.PlanTrial,
		IsActive:          true,
		MaxRequestsPerDay: 10,
		RequestsToday:     3,
		RequestsTotal:     40,
	})
	token := f.authenticate(t)

	status, envelope := f.post(t, "/api/v1/proxy", token, gin.H{
		"project_id":    "proj-1",
		"session_token": "upstream-credential",
		"message":       "build me a landing page",
	})

	require.Equal(t, http.StatusOK, status)
	assert.True(t, envelope.Success)
	assert.Equal(t, "AI response text", envelope.Data["response"])

	usage, ok := envelope.Data["usage"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(4), usage["requests_today"])
	assert.Equal(t, float64(41), usage["requests_total"])
	assert.Equal(t, int64(1), f.upstreamHits.Load())
}

func TestProxyEndpoint_MissingFields(t *testing.T) {
	f := newAPIFixture(t)
	f.createLicense(t, &license.License{
		LicenseKey: handlerTestKey,
		PlanType:   license.PlanPro,
		IsActive:   true,
	})
	token := f.authenticate(t)

	status, envelope := f.post(t, "/api/v1/proxy", token, gin.H{"project_id": "proj-1"})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, envelope.Success)
	assert.Equal(t, int64(0), f.upstreamHits.Load())
}

func TestProxyEndpoint_RevokedLicenseAfterIssue(t *testing.T) {
	f := newAPIFixture(t)
	f.createLicense(t, &license.License{
		LicenseKey: handlerTestKey,
		PlanType:   license.PlanPro,
		IsActive:   true,
	})
	token := f.authenticate(t)

	require.NoError(t, f.licenses.Deactivate(context.Background(), handlerTestKey))

	status, envelope := f.post(t, "/api/v1/proxy", token, gin.H{
		"project_id":    "proj-1",
		"session_token": "cred",
		"message":       "hi",
	})

	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, envelope.Success)
	assert.Equal(t, int64(0), f.upstreamHits.Load())
}

func TestSyncEndpoint_RoundTrip(t *testing.T) {
	f := newAPIFixture(t)
	f.createLicense(t, &license.License{
		LicenseKey: handlerTestKey,
		PlanType:   license.PlanPro,
		IsActive:   true,
	})
	token := f.authenticate(t)

	status, envelope := f.post(t, "/api/v1/sync", token, gin.H{
		"action":     "save",
		"project_id": "proj-1",
		"messages":   []gin.H{{"role": "user", "content": "hi"}, {"role": "assistant", "content": "hello"}},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), envelope.Data["saved"])

	status, envelope = f.post(t, "/api/v1/sync", token, gin.H{
		"action":     "load",
		"project_id": "proj-1",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), envelope.Data["count"])

	status, _ = f.post(t, "/api/v1/sync", token, gin.H{
		"action":     "clear",
		"project_id": "proj-1",
	})
	require.Equal(t, http.StatusOK, status)

	status, envelope = f.post(t, "/api/v1/sync", token, gin.H{
		"action":     "load",
		"project_id": "proj-1",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), envelope.Data["count"])
}

func TestSyncEndpoint_InvalidAction(t *testing.T) {
	f := newAPIFixture(t)
	f.createLicense(t, &license.License{
		LicenseKey: handlerTestKey,
		PlanType:   license.PlanPro,
		IsActive:   true,
	})
	token := f.authenticate(t)

	status, envelope := f.post(t, "/api/v1/sync", token, gin.H{
		"action":     "purge",
		"project_id": "proj-1",
	})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, envelope.Success)
}

func TestSyncEndpoint_RequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	status, _ := f.post(t, "/api/v1/sync", "", gin.H{
		"action":     "load",
		"project_id": "proj-1",
	})

	assert.Equal(t, http.StatusUnauthorized, status)
}
