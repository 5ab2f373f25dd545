package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/app/middleware"
	businessflow "github.com/amirphl/quote-core/business_flow"
	"github.com/amirphl/quote-core/deployment"
	"github.com/amirphl/quote-core/routing"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeCalculationFlow struct {
	businessflow.CalculationFlow
	lastCreate *dto.CreateCalculationRequest
	lastGet    *dto.GetCalculationRequest
	err        error
}

func (f *fakeCalculationFlow) Calculate(_ context.Context, req *dto.CreateCalculationRequest) (*dto.CalculationResponse, error) {
	f.lastCreate = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.CalculationResponse{Message: "Calculation completed", UUID: uuid.New(), DocumentID: req.DocumentID}, nil
}

func (f *fakeCalculationFlow) GetCalculation(_ context.Context, req *dto.GetCalculationRequest) (*dto.CalculationResponse, error) {
	f.lastGet = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.CalculationResponse{Message: "Calculation retrieved", UUID: uuid.MustParse(req.UUID)}, nil
}

type fakeAnalysisFlow struct {
	businessflow.PatternAnalysisFlow
	export *dto.AnalysisExport
	err    error
	tenant string
}

func (f *fakeAnalysisFlow) ExportReport(_ context.Context, tenantID, _ string) (*dto.AnalysisExport, error) {
	f.tenant = tenantID
	if f.err != nil {
		return nil, f.err
	}
	return f.export, nil
}

type fakeFixProposalFlow struct {
	businessflow.FixProposalFlow
	lastDeploy *dto.DeployFixProposalRequest
	err        error
}

func (f *fakeFixProposalFlow) Deploy(_ context.Context, req *dto.DeployFixProposalRequest) (*dto.FixProposalResponse, error) {
	f.lastDeploy = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.FixProposalResponse{Message: "Fix proposal deployed"}, nil
}

// newTestApp authenticates every request as tenant-a/ops
func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(func(c fiber.Ctx) error {
		c.Locals(middleware.LocalTenantID, "tenant-a")
		c.Locals(middleware.LocalActor, "ops")
		return c.Next()
	})
	return app
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp, env
}

func TestCreateCalculationUsesTokenTenant(t *testing.T) {
	flow := &fakeCalculationFlow{}
	h := NewCalculationHandler(flow, zap.NewNop())
	app := newTestApp()
	app.Post("/calculations", h.CreateCalculation)

	resp, env := do(t, app, http.MethodPost, "/calculations", `{"document_id":"doc-1","fields":{"labor_hours":"18"}}`)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.True(t, env.Success)
	require.NotNil(t, flow.lastCreate)
	assert.Equal(t, "tenant-a", flow.lastCreate.TenantID)
	assert.Equal(t, "ops", flow.lastCreate.Actor)
	assert.Equal(t, "doc-1", flow.lastCreate.DocumentID)
}

func TestCreateCalculationValidation(t *testing.T) {
	flow := &fakeCalculationFlow{}
	h := NewCalculationHandler(flow, zap.NewNop())
	app := newTestApp()
	app.Post("/calculations", h.CreateCalculation)

	resp, env := do(t, app, http.MethodPost, "/calculations", `{"fields":{}}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	var details []string
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	assert.Contains(t, details, "DocumentID is required")
	assert.Nil(t, flow.lastCreate)

	resp, env = do(t, app, http.MethodPost, "/calculations", `{"document_id":`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
}

func TestCreateCalculationHumanReviewDetails(t *testing.T) {
	flow := &fakeCalculationFlow{
		err: businessflow.NewBusinessError("CALCULATION_HUMAN_REVIEW_REQUIRED", "Human review required",
			&routing.HumanReviewRequiredError{Fields: []string{"labor_hours"}}),
	}
	h := NewCalculationHandler(flow, zap.NewNop())
	app := newTestApp()
	app.Post("/calculations", h.CreateCalculation)

	resp, env := do(t, app, http.MethodPost, "/calculations", `{"document_id":"doc-1","fields":{"labor_hours":"18"}}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "CALCULATION_HUMAN_REVIEW_REQUIRED", env.Error.Code)

	var details struct {
		Fields []string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	assert.Equal(t, []string{"labor_hours"}, details.Fields)
}

func TestGetCalculation(t *testing.T) {
	flow := &fakeCalculationFlow{}
	h := NewCalculationHandler(flow, zap.NewNop())
	app := newTestApp()
	app.Get("/calculations/:uuid", h.GetCalculation)

	id := uuid.New().String()
	resp, env := do(t, app, http.MethodGet, "/calculations/"+id, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	assert.Equal(t, "tenant-a", flow.lastGet.TenantID)

	resp, env = do(t, app, http.MethodGet, "/calculations/not-a-uuid", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	flow.err = businessflow.NewBusinessError("CALCULATION_NOT_FOUND", "Calculation not found", nil)
	resp, env = do(t, app, http.MethodGet, "/calculations/"+id, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "CALCULATION_NOT_FOUND", env.Error.Code)
}

func TestUnexpectedErrorsAreLoggedNotLeaked(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	flow := &fakeCalculationFlow{err: errors.New("pq: connection refused")}
	h := NewCalculationHandler(flow, zap.New(core))
	app := newTestApp()
	app.Get("/calculations/:uuid", h.GetCalculation)

	resp, env := do(t, app, http.MethodGet, "/calculations/"+uuid.NewString(), "")
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "CALCULATION_FETCH_FAILED", env.Error.Code)
	assert.NotContains(t, env.Message, "pq")
	assert.Equal(t, 1, logs.FilterMessage("request failed").Len())

	flow.err = context.DeadlineExceeded
	resp, env = do(t, app, http.MethodGet, "/calculations/"+uuid.NewString(), "")
	assert.Equal(t, fiber.StatusGatewayTimeout, resp.StatusCode)
	assert.Equal(t, "REQUEST_TIMEOUT", env.Error.Code)
}

func TestExportReport(t *testing.T) {
	flow := &fakeAnalysisFlow{export: &dto.AnalysisExport{FileName: "analysis-report.xlsx", Content: []byte("PK\x03\x04")}}
	h := NewAnalysisHandler(flow, zap.NewNop())
	app := newTestApp()
	app.Get("/reports/:uuid/export", h.ExportReport)

	resp, _ := do(t, app, http.MethodGet, "/reports/"+uuid.NewString()+"/export", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, "attachment; filename=analysis-report.xlsx", resp.Header.Get(fiber.HeaderContentDisposition))
	assert.Equal(t, "tenant-a", flow.tenant)

	resp, env := do(t, app, http.MethodGet, "/reports/latest-ish/export", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_UUID", env.Error.Code)

	flow.err = businessflow.NewBusinessError("ANALYSIS_RUN_NOT_FOUND", "Analysis run not found", nil)
	resp, _ = do(t, app, http.MethodGet, "/reports/"+uuid.NewString()+"/export", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDeployGateFailureDetails(t *testing.T) {
	flow := &fakeFixProposalFlow{
		err: businessflow.NewBusinessError("VALIDATION_GATE_FAILED", "Fix proposal did not pass the validation gate",
			&deployment.ValidationGateError{Failures: []string{"success rate 0.80 below 0.95"}}),
	}
	h := NewFixProposalHandler(flow, zap.NewNop())
	app := newTestApp()
	app.Post("/fix-proposals/:uuid/deploy", h.DeployFixProposal)

	id := uuid.NewString()
	resp, env := do(t, app, http.MethodPost, "/fix-proposals/"+id+"/deploy", `{"notes":"ship it"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "VALIDATION_GATE_FAILED", env.Error.Code)
	assert.Contains(t, string(env.Error.Details), "success rate 0.80 below 0.95")

	require.NotNil(t, flow.lastDeploy)
	assert.Equal(t, id, flow.lastDeploy.UUID)
	assert.Equal(t, "tenant-a", flow.lastDeploy.TenantID)
	assert.Equal(t, "ship it", flow.lastDeploy.Notes)

	flow.err = nil
	resp, env = do(t, app, http.MethodPost, "/fix-proposals/"+id+"/deploy", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}

func TestDeploymentWindowDetails(t *testing.T) {
	next := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	err := businessflow.NewBusinessError("OUTSIDE_DEPLOYMENT_WINDOW", "Outside the deployment window",
		&deployment.DeploymentWindowError{At: next.Add(-12 * time.Hour), NextOpen: next})

	details, ok := errorDetails(err).(fiber.Map)
	require.True(t, ok)
	assert.Equal(t, "2026-03-10T09:00:00Z", details["next_open"])
}

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{"FIX_PROPOSAL_NOT_FOUND", fiber.StatusNotFound},
		{"CONCURRENT_DEPLOYMENT", fiber.StatusConflict},
		{"ROLLBACK_WINDOW_EXPIRED", fiber.StatusConflict},
		{"CALCULATION_INPUT_CONFLICT", fiber.StatusConflict},
		{"CALCULATION_CONFIGURATION_INVALID", fiber.StatusUnprocessableEntity},
		{"RULE_EVALUATION_FAILED", fiber.StatusUnprocessableEntity},
		{"ANALYSIS_WINDOW_INVALID", fiber.StatusBadRequest},
		{"TENANT_REQUIRED", fiber.StatusBadRequest},
		{"EXTRACTION_DUPLICATE_FIELD", fiber.StatusBadRequest},
		{"DATABASE_ERROR", fiber.StatusInternalServerError},
		{"", fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusForCode(tt.code), tt.code)
	}
}
