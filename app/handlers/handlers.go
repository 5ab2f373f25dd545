// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/app/middleware"
	businessflow "github.com/amirphl/quote-core/business_flow"
	"github.com/amirphl/quote-core/deployment"
	"github.com/amirphl/quote-core/routing"
	"github.com/amirphl/quote-core/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

// ErrorResponse writes a failed API envelope
func ErrorResponse(c fiber.Ctx, status int, message, code string, details any) error {
	return c.Status(status).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    code,
			Details: details,
		},
	})
}

// SuccessResponse writes a successful API envelope
func SuccessResponse(c fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// createRequestContext copies request-scoped values and the authenticated tenant into a context
// with the default timeout. The returned cancel func must be called once the handler is done.
func createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	requestID := c.Get("X-Request-ID")
	if requestID == "" {
		if v, ok := c.Locals(middleware.LocalRequest).(string); ok {
			requestID = v
		}
	}
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID)
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, requestTimeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	ctx = context.WithValue(ctx, utils.TenantIDKey, middleware.TenantID(c))
	ctx = context.WithValue(ctx, utils.ActorKey, middleware.Actor(c))
	return ctx, cancel
}

// bindJSON decodes the body into req and validates it, writing the error response itself.
// It reports false when the handler must return the written response.
func bindJSON(c fiber.Ctx, v *validator.Validate, req any) (bool, error) {
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(req); err != nil {
			return false, ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	return validate(c, v, req)
}

func validate(c fiber.Ctx, v *validator.Validate, req any) (bool, error) {
	if err := v.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return false, ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}
		details := make([]string, 0, len(fieldErrors))
		for _, e := range fieldErrors {
			details = append(details, getValidationErrorMessage(e))
		}
		return false, ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", details)
	}
	return true, nil
}

// statusForCode maps business error codes to HTTP statuses
func statusForCode(code string) int {
	switch {
	case code == "":
		return fiber.StatusInternalServerError
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return fiber.StatusNotFound
	case code == "CONCURRENT_DEPLOYMENT",
		code == "VALIDATION_GATE_FAILED",
		code == "FIX_PROPOSAL_INVALID_TRANSITION",
		code == "OUTSIDE_DEPLOYMENT_WINDOW",
		code == "ROLLBACK_WINDOW_EXPIRED",
		code == "MATERIAL_EXISTS",
		code == "CALCULATION_INPUT_CONFLICT":
		return fiber.StatusConflict
	case code == "CALCULATION_HUMAN_REVIEW_REQUIRED",
		code == "CALCULATION_CONFIGURATION_INVALID",
		code == "RULE_EVALUATION_FAILED":
		return fiber.StatusUnprocessableEntity
	case strings.HasSuffix(code, "_INVALID"),
		strings.HasSuffix(code, "_REQUIRED"),
		strings.HasSuffix(code, "_DUPLICATE_FIELD"):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// errorDetails exposes the structured part of core errors to clients
func errorDetails(err error) any {
	var (
		review *routing.HumanReviewRequiredError
		gate   *deployment.ValidationGateError
		window *deployment.DeploymentWindowError
	)
	switch {
	case errors.As(err, &review):
		return fiber.Map{"fields": review.Fields}
	case errors.As(err, &gate):
		return fiber.Map{"failures": gate.Failures}
	case errors.As(err, &window):
		if window.NextOpen.IsZero() {
			return nil
		}
		return fiber.Map{"next_open": window.NextOpen.UTC().Format(time.RFC3339)}
	default:
		return nil
	}
}

// handleFlowError writes the response for an error returned by a business flow
func handleFlowError(c fiber.Ctx, logger *zap.Logger, err error, fallbackMessage, fallbackCode string) error {
	var business *businessflow.BusinessError
	if errors.As(err, &business) {
		status := statusForCode(business.Code)
		if status >= fiber.StatusInternalServerError {
			logFailure(logger, business.Code, err)
			return ErrorResponse(c, status, business.Message, business.Code, nil)
		}
		return ErrorResponse(c, status, business.Message, business.Code, errorDetails(err))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorResponse(c, fiber.StatusGatewayTimeout, "Request timed out", "REQUEST_TIMEOUT", nil)
	}
	logFailure(logger, fallbackCode, err)
	return ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}

func logFailure(logger *zap.Logger, code string, err error) {
	if logger == nil {
		return
	}
	logger.Error("request failed", zap.String("code", code), zap.Error(err))
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "uuid":
		return err.Field() + " must be a valid UUID"
	case "uppercase":
		return err.Field() + " must be upper case"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
