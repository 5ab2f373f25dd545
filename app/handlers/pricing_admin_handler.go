package handlers

import (
	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/app/middleware"
	businessflow "github.com/amirphl/quote-core/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// PricingAdminHandlerInterface defines admin endpoints for pricing configuration.
// Tenant-scoped configuration always belongs to the tenant of the admin token.
type PricingAdminHandlerInterface interface {
	UpsertPricingFactor(c fiber.Ctx) error
	ListPricingFactors(c fiber.Ctx) error
	DisablePricingFactor(c fiber.Ctx) error
	UpsertCompanyConfig(c fiber.Ctx) error
	GetCompanyConfig(c fiber.Ctx) error
	CreateAdjustment(c fiber.Ctx) error
	ListAdjustments(c fiber.Ctx) error
	CreateMaterial(c fiber.Ctx) error
	ListMaterials(c fiber.Ctx) error
	CreateSurchargeRule(c fiber.Ctx) error
	ListSurchargeRules(c fiber.Ctx) error
}

type PricingAdminHandler struct {
	flow      businessflow.PricingAdminFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewPricingAdminHandler(flow businessflow.PricingAdminFlow, logger *zap.Logger) PricingAdminHandlerInterface {
	return &PricingAdminHandler{
		flow:      flow,
		validator: validator.New(),
		logger:    logger,
	}
}

// UpsertPricingFactor creates or replaces a TIER 1 factor
// @Summary Create/Update Pricing Factor (Admin)
// @Description Create a factor for a category/key or replace the factor of an existing one
// @Tags Admin Pricing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AdminCreatePricingFactorRequest true "Pricing factor"
// @Success 200 {object} dto.APIResponse{data=dto.PricingFactorResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/admin/pricing-factors [post]
func (h *PricingAdminHandler) UpsertPricingFactor(c fiber.Ctx) error {
	var req dto.AdminCreatePricingFactorRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/pricing-factors")
	defer cancel()

	res, err := h.flow.UpsertPricingFactor(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to save pricing factor", "PRICING_FACTOR_SAVE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// ListPricingFactors returns every TIER 1 factor
// @Summary List Pricing Factors (Admin)
// @Tags Admin Pricing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListPricingFactorsResponse}
// @Router /api/v1/admin/pricing-factors [get]
func (h *PricingAdminHandler) ListPricingFactors(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/pricing-factors")
	defer cancel()

	res, err := h.flow.ListPricingFactors(ctx)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to list pricing factors", "PRICING_FACTOR_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// DisablePricingFactor disables one factor
// @Summary Disable Pricing Factor (Admin)
// @Tags Admin Pricing
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Pricing factor UUID"
// @Success 200 {object} dto.APIResponse{data=dto.PricingFactorResponse}
// @Failure 404 {object} dto.APIResponse "Pricing factor not found"
// @Router /api/v1/admin/pricing-factors/{uuid}/disable [post]
func (h *PricingAdminHandler) DisablePricingFactor(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/pricing-factors/:uuid/disable")
	defer cancel()

	res, err := h.flow.DisablePricingFactor(ctx, c.Params("uuid"))
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to disable pricing factor", "PRICING_FACTOR_SAVE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// UpsertCompanyConfig stores a new TIER 2 configuration version
// @Summary Update Company Configuration (Admin)
// @Description Store a new version and deactivate the previous one; existing calculations keep their version
// @Tags Admin Pricing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpsertCompanyConfigRequest true "Company configuration"
// @Success 200 {object} dto.APIResponse{data=dto.CompanyConfigResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/admin/company-config [put]
func (h *PricingAdminHandler) UpsertCompanyConfig(c fiber.Ctx) error {
	var req dto.UpsertCompanyConfigRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}
	req.TenantID = middleware.TenantID(c)
	req.Actor = middleware.Actor(c)

	ctx, cancel := createRequestContext(c, "/api/v1/admin/company-config")
	defer cancel()

	res, err := h.flow.UpsertCompanyConfig(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to save company configuration", "COMPANY_CONFIG_SAVE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// GetCompanyConfig returns the active TIER 2 configuration
// @Summary Get Company Configuration (Admin)
// @Tags Admin Pricing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.CompanyConfigResponse}
// @Failure 404 {object} dto.APIResponse "No configuration"
// @Router /api/v1/admin/company-config [get]
func (h *PricingAdminHandler) GetCompanyConfig(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/company-config")
	defer cancel()

	res, err := h.flow.GetCompanyConfig(ctx, middleware.TenantID(c))
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to fetch company configuration", "COMPANY_CONFIG_FETCH_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// CreateAdjustment adds a TIER 3 dynamic adjustment
// @Summary Create Dynamic Adjustment (Admin)
// @Tags Admin Pricing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AdminCreateAdjustmentRequest true "Dynamic adjustment"
// @Success 201 {object} dto.APIResponse{data=dto.AdjustmentResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/admin/adjustments [post]
func (h *PricingAdminHandler) CreateAdjustment(c fiber.Ctx) error {
	var req dto.AdminCreateAdjustmentRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}
	req.TenantID = middleware.TenantID(c)

	ctx, cancel := createRequestContext(c, "/api/v1/admin/adjustments")
	defer cancel()

	res, err := h.flow.CreateAdjustment(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to save adjustment", "ADJUSTMENT_SAVE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, res.Message, res)
}

// ListAdjustments returns the tenant's adjustments in priority order
// @Summary List Dynamic Adjustments (Admin)
// @Tags Admin Pricing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListAdjustmentsResponse}
// @Router /api/v1/admin/adjustments [get]
func (h *PricingAdminHandler) ListAdjustments(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/adjustments")
	defer cancel()

	res, err := h.flow.ListAdjustments(ctx, middleware.TenantID(c))
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to list adjustments", "ADJUSTMENT_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// CreateMaterial adds a material catalog entry
// @Summary Create Material (Admin)
// @Tags Admin Pricing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AdminCreateMaterialRequest true "Material"
// @Success 201 {object} dto.APIResponse{data=dto.MaterialResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Stock key already exists"
// @Router /api/v1/admin/materials [post]
func (h *PricingAdminHandler) CreateMaterial(c fiber.Ctx) error {
	var req dto.AdminCreateMaterialRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}
	req.TenantID = middleware.TenantID(c)

	ctx, cancel := createRequestContext(c, "/api/v1/admin/materials")
	defer cancel()

	res, err := h.flow.CreateMaterial(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to save material", "MATERIAL_SAVE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, res.Message, res)
}

// ListMaterials returns the tenant's material catalog
// @Summary List Materials (Admin)
// @Tags Admin Pricing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListMaterialsResponse}
// @Router /api/v1/admin/materials [get]
func (h *PricingAdminHandler) ListMaterials(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/materials")
	defer cancel()

	res, err := h.flow.ListMaterials(ctx, middleware.TenantID(c))
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to list materials", "MATERIAL_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// CreateSurchargeRule adds a surcharge rule
// @Summary Create Surcharge Rule (Admin)
// @Description Conditional rules carry a rule tree that is validated before it is stored
// @Tags Admin Pricing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AdminCreateSurchargeRuleRequest true "Surcharge rule"
// @Success 201 {object} dto.APIResponse{data=dto.SurchargeRuleResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/admin/surcharge-rules [post]
func (h *PricingAdminHandler) CreateSurchargeRule(c fiber.Ctx) error {
	var req dto.AdminCreateSurchargeRuleRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}
	req.TenantID = middleware.TenantID(c)

	ctx, cancel := createRequestContext(c, "/api/v1/admin/surcharge-rules")
	defer cancel()

	res, err := h.flow.CreateSurchargeRule(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to save surcharge rule", "SURCHARGE_RULE_SAVE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, res.Message, res)
}

// ListSurchargeRules returns the tenant's surcharge rules
// @Summary List Surcharge Rules (Admin)
// @Tags Admin Pricing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListSurchargeRulesResponse}
// @Router /api/v1/admin/surcharge-rules [get]
func (h *PricingAdminHandler) ListSurchargeRules(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/surcharge-rules")
	defer cancel()

	res, err := h.flow.ListSurchargeRules(ctx, middleware.TenantID(c))
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to list surcharge rules", "SURCHARGE_RULE_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}
