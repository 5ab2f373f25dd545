package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/app/handlers"
	"github.com/amirphl/quote-core/app/middleware"
	"github.com/amirphl/quote-core/app/services"
	businessflow "github.com/amirphl/quote-core/business_flow"
	"github.com/amirphl/quote-core/config"
	testutil "github.com/amirphl/quote-core/testing"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "router-test-secret"

type stubCalculationFlow struct {
	businessflow.CalculationFlow
}

func (stubCalculationFlow) Calculate(_ context.Context, req *dto.CreateCalculationRequest) (*dto.CalculationResponse, error) {
	return &dto.CalculationResponse{Message: "Calculation completed", UUID: uuid.New(), DocumentID: req.DocumentID}, nil
}

func (stubCalculationFlow) GetCalculation(context.Context, *dto.GetCalculationRequest) (*dto.CalculationResponse, error) {
	return nil, businessflow.NewBusinessError("CALCULATION_NOT_FOUND", "Calculation not found", nil)
}

type stubPricingAdminFlow struct {
	businessflow.PricingAdminFlow
}

func (stubPricingAdminFlow) ListPricingFactors(context.Context) (*dto.ListPricingFactorsResponse, error) {
	return &dto.ListPricingFactorsResponse{Message: "Pricing factors retrieved", Items: []dto.PricingFactorItem{}}, nil
}

func testConfig() *config.ProductionConfig {
	return &config.ProductionConfig{
		Server: config.ServerConfig{BodyLimit: 1 << 20},
		Security: config.SecurityConfig{
			AllowedOrigins:  []string{"https://ops.example.com"},
			GlobalRateLimit: 1000,
			AdminRateLimit:  1000,
			RateLimitWindow: time.Minute,
		},
		Metrics:    config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Deployment: config.DeploymentConfig{Environment: "development", Version: "test"},
	}
}

type routerFixture struct {
	app    *fiber.App
	tokens services.TokenService
}

func setupRouter(t *testing.T) *routerFixture {
	t.Helper()
	tdb, err := testutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tdb.TeardownTestDB() })

	tokens, err := services.NewTokenService("", "", false, "", testSecret)
	require.NoError(t, err)

	logger := zap.NewNop()
	h := Handlers{
		Calculation:  handlers.NewCalculationHandler(stubCalculationFlow{}, logger),
		Extraction:   handlers.NewExtractionHandler(nil, logger),
		Rule:         handlers.NewRuleHandler(nil, logger),
		Analysis:     handlers.NewAnalysisHandler(nil, logger),
		FixProposal:  handlers.NewFixProposalHandler(nil, logger),
		PricingAdmin: handlers.NewPricingAdminHandler(stubPricingAdminFlow{}, logger),
	}
	r := NewFiberRouter(testConfig(), h, middleware.NewAuthMiddleware(tokens), tdb.DB, nil, logger)
	r.SetupRoutes()
	return &routerFixture{app: r.GetApp(), tokens: tokens}
}

func (f *routerFixture) token(t *testing.T, role string) string {
	t.Helper()
	token, err := f.tokens.IssueToken("ops", "tenant-a", role, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *routerFixture) do(t *testing.T, method, target, token, body string) (*http.Response, dto.APIResponse, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env dto.APIResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(raw, &env)
	}
	return resp, env, raw
}

func errorCode(env dto.APIResponse) string {
	detail, _ := env.Error.(map[string]any)
	code, _ := detail["code"].(string)
	return code
}

func TestHealthIsPublic(t *testing.T) {
	f := setupRouter(t)

	resp, env, _ := f.do(t, http.MethodGet, "/api/v1/health", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := setupRouter(t)

	resp, env, _ := f.do(t, http.MethodPost, "/api/v1/calculations", "", `{"document_id":"doc-1","fields":{"a":"1"}}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_AUTHORIZATION_HEADER", errorCode(env))

	resp, env, _ = f.do(t, http.MethodPost, "/api/v1/calculations", "not-a-jwt", `{"document_id":"doc-1","fields":{"a":"1"}}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "TOKEN_INVALID", errorCode(env))
}

func TestCalculationRoutes(t *testing.T) {
	f := setupRouter(t)
	token := f.token(t, services.RoleOperator)

	resp, env, _ := f.do(t, http.MethodPost, "/api/v1/calculations", token, `{"document_id":"doc-1","fields":{"labor_hours":"18"}}`)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.True(t, env.Success)

	resp, env, _ = f.do(t, http.MethodGet, "/api/v1/calculations/"+uuid.NewString(), token, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "CALCULATION_NOT_FOUND", errorCode(env))
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	f := setupRouter(t)

	resp, env, _ := f.do(t, http.MethodGet, "/api/v1/admin/pricing-factors", f.token(t, services.RoleOperator), "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "ADMIN_ROLE_REQUIRED", errorCode(env))

	resp, env, _ = f.do(t, http.MethodPost, "/api/v1/fix-proposals/monitoring/evaluate", f.token(t, services.RoleOperator), "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "ADMIN_ROLE_REQUIRED", errorCode(env))

	resp, env, _ = f.do(t, http.MethodGet, "/api/v1/admin/pricing-factors", f.token(t, services.RoleAdmin), "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}

func TestUnknownRoutes(t *testing.T) {
	f := setupRouter(t)

	resp, env, _ := f.do(t, http.MethodGet, "/does-not-exist", "", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(env))

	resp, env, _ = f.do(t, http.MethodGet, "/api/v1/nothing-here", f.token(t, services.RoleOperator), "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(env))
}

func TestSwaggerAndMetrics(t *testing.T) {
	f := setupRouter(t)

	resp, _, body := f.do(t, http.MethodGet, "/api/v1/swagger.json", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Quote Core API")
	assert.Contains(t, string(body), "/api/v1/calculations")

	// one request so the route counter has a sample
	f.do(t, http.MethodGet, "/api/v1/health", "", "")
	resp, _, body = f.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "quote_core_http_requests_total")
}
