package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"strings"

	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/app/services"
	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/repository"
	"github.com/amirphl/quote-core/routing"
	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Calculation outcomes recorded as metrics
const (
	outcomeOK         = "ok"
	outcomeUnverified = "unverified"
	outcomeBlocked    = "blocked"
	outcomeInvalid    = "invalid"
	outcomeConfig     = "configuration"
	outcomeFailed     = "failed"
)

// CalculationFlow prices documents from their extracted fields
type CalculationFlow interface {
	Calculate(ctx context.Context, req *dto.CreateCalculationRequest) (*dto.CalculationResponse, error)
	GetCalculation(ctx context.Context, req *dto.GetCalculationRequest) (*dto.CalculationResponse, error)
}

type CalculationFlowImpl struct {
	snapshots       *SnapshotLoader
	calculationRepo repository.PriceCalculationRepository
	policy          routing.Policy
	logger          *zap.Logger
}

func NewCalculationFlow(
	snapshots *SnapshotLoader,
	calculationRepo repository.PriceCalculationRepository,
	policy routing.Policy,
	logger *zap.Logger,
) CalculationFlow {
	return &CalculationFlowImpl{
		snapshots:       snapshots,
		calculationRepo: calculationRepo,
		policy:          policy,
		logger:          logger,
	}
}

// Calculate routes the fields, gates them by policy, prices the document and stores the reconciled breakdown.
// Nothing is stored when any step fails.
func (f *CalculationFlowImpl) Calculate(ctx context.Context, req *dto.CreateCalculationRequest) (*dto.CalculationResponse, error) {
	log := flowLogger(ctx, f.logger)

	tenantID, err := requireTenant(req.TenantID)
	if err != nil {
		return nil, err
	}
	documentID := strings.TrimSpace(req.DocumentID)
	if documentID == "" {
		return nil, NewBusinessError("CALCULATION_DOCUMENT_REQUIRED", "Document id is required", ErrDocumentIDRequired)
	}
	if len(req.Fields) == 0 {
		return nil, NewBusinessError("CALCULATION_FIELDS_REQUIRED", "At least one field is required", ErrFieldsRequired)
	}

	policy := f.policy
	if req.Policy != "" {
		policy, err = routing.ParsePolicy(req.Policy)
		if err != nil {
			return nil, NewBusinessError("CALCULATION_POLICY_INVALID", "Invalid human review policy", errors.Join(ErrInvalidPolicy, err))
		}
	}

	routes := routing.Annotate(req.Fields, req.Confidences)
	for _, r := range routes {
		services.ObserveRoutedField(r.Tier.String())
	}
	decision, err := routing.Gate(routes, policy)
	if err != nil {
		services.ObserveCalculation(outcomeBlocked)
		return nil, NewBusinessError("CALCULATION_HUMAN_REVIEW_REQUIRED", "Fields require human review before calculation", err)
	}

	fields := maps.Clone(req.Fields)
	for name, value := range req.Inputs {
		if _, clash := fields[name]; clash {
			services.ObserveCalculation(outcomeInvalid)
			return nil, NewBusinessErrorf("CALCULATION_INPUT_CONFLICT", "Input %s is also an extracted field", ErrInputConflictsWithField, name)
		}
		fields[name] = value
	}

	input, err := pricing.ParseFields(fields)
	if err != nil {
		services.ObserveCalculation(outcomeInvalid)
		return nil, NewBusinessError("CALCULATION_INPUT_INVALID", "Invalid calculation input", err)
	}
	if req.Audience != "" {
		input.Audience = pricing.Audience(req.Audience)
	}
	input.Date = utils.UTCNow()
	if req.Date != nil {
		input.Date = req.Date.UTC()
	}
	input.Unverified = decision.Unverified

	stockKeys := make([]string, 0, len(input.Lines))
	for _, line := range input.Lines {
		stockKeys = append(stockKeys, line.StockKey)
	}
	snap, company, err := f.snapshots.Load(ctx, tenantID, input.Date, stockKeys)
	if err != nil {
		if IsCompanyConfigNotFound(err) {
			services.ObserveCalculation(outcomeConfig)
			return nil, NewBusinessError("COMPANY_CONFIG_NOT_FOUND", "No active company configuration for tenant", err)
		}
		if pricing.IsConfigurationError(err) {
			services.ObserveCalculation(outcomeConfig)
			return nil, NewBusinessError("CALCULATION_CONFIGURATION_INVALID", "Pricing configuration is invalid", err)
		}
		services.ObserveCalculation(outcomeFailed)
		return nil, NewBusinessError("CALCULATION_SNAPSHOT_FAILED", "Failed to load pricing configuration", err)
	}

	breakdown, err := pricing.Calculate(input, snap)
	if err != nil {
		switch {
		case pricing.IsInvalidInput(err):
			services.ObserveCalculation(outcomeInvalid)
			return nil, NewBusinessError("CALCULATION_INPUT_INVALID", "Invalid calculation input", err)
		case pricing.IsConfigurationError(err):
			services.ObserveCalculation(outcomeConfig)
			return nil, NewBusinessError("CALCULATION_CONFIGURATION_INVALID", "Pricing configuration is invalid", err)
		default:
			services.ObserveCalculation(outcomeFailed)
			log.Error("price calculation failed", zap.String("document_id", documentID), zap.Error(err))
			return nil, NewBusinessError("CALCULATION_FAILED", "Price calculation failed", err)
		}
	}

	row, err := newPriceCalculation(tenantID, documentID, company.ID, actorOr(ctx, req.Actor, "api"), breakdown, snap)
	if err != nil {
		services.ObserveCalculation(outcomeFailed)
		return nil, NewBusinessError("CALCULATION_ENCODE_FAILED", "Failed to encode calculation", err)
	}
	if err := f.calculationRepo.Save(ctx, row); err != nil {
		services.ObserveCalculation(outcomeFailed)
		return nil, NewBusinessError("CALCULATION_SAVE_FAILED", "Failed to save calculation", err)
	}

	outcome := outcomeOK
	if row.Unverified {
		outcome = outcomeUnverified
	}
	services.ObserveCalculation(outcome)
	log.Info("price calculated",
		zap.String("document_id", documentID),
		zap.String("calculation_uuid", row.UUID.String()),
		zap.String("gross_total", breakdown.GrossTotal.StringFixed(2)),
		zap.Strings("unverified", breakdown.Unverified),
	)

	return &dto.CalculationResponse{
		Message:    "Price calculated successfully",
		UUID:       row.UUID,
		DocumentID: documentID,
		Routes:     routes,
		Decision:   decision,
		Unverified: row.Unverified,
		Breakdown:  breakdown,
		CreatedAt:  row.CreatedAt,
	}, nil
}

// GetCalculation returns a stored calculation of the tenant
func (f *CalculationFlowImpl) GetCalculation(ctx context.Context, req *dto.GetCalculationRequest) (*dto.CalculationResponse, error) {
	tenantID, err := requireTenant(req.TenantID)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(req.UUID); err != nil {
		return nil, NewBusinessError("CALCULATION_NOT_FOUND", "Calculation not found", ErrCalculationNotFound)
	}

	row, err := f.calculationRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("CALCULATION_FETCH_FAILED", "Failed to fetch calculation", err)
	}
	if row == nil || row.TenantID != tenantID {
		return nil, NewBusinessError("CALCULATION_NOT_FOUND", "Calculation not found", ErrCalculationNotFound)
	}

	breakdown, err := row.DecodeBreakdown()
	if err != nil {
		return nil, NewBusinessError("CALCULATION_DECODE_FAILED", "Failed to decode stored calculation", err)
	}

	var unverified []string
	if len(row.UnverifiedFields) > 0 {
		if err := json.Unmarshal(row.UnverifiedFields, &unverified); err != nil {
			return nil, NewBusinessError("CALCULATION_DECODE_FAILED", "Failed to decode stored calculation", err)
		}
	}

	return &dto.CalculationResponse{
		Message:    "Calculation retrieved successfully",
		UUID:       row.UUID,
		DocumentID: row.DocumentID,
		Decision:   routing.Decision{Unverified: unverified},
		Unverified: row.Unverified,
		Breakdown:  breakdown,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func newPriceCalculation(tenantID, documentID string, companyConfigID uint, actor string, b *pricing.PriceBreakdown, snap pricing.Snapshot) (*models.PriceCalculation, error) {
	breakdown, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	snapshot, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	unverified := b.Unverified
	if unverified == nil {
		unverified = []string{}
	}
	unverifiedRaw, err := json.Marshal(unverified)
	if err != nil {
		return nil, err
	}

	return &models.PriceCalculation{
		TenantID:         tenantID,
		DocumentID:       documentID,
		CompanyConfigID:  companyConfigID,
		NetTotal:         b.NetTotal,
		TaxAmount:        b.TaxAmount,
		GrossTotal:       b.GrossTotal,
		Currency:         b.Currency,
		Unverified:       len(unverified) > 0,
		UnverifiedFields: datatypes.JSON(unverifiedRaw),
		Breakdown:        datatypes.JSON(breakdown),
		ConfigSnapshot:   datatypes.JSON(snapshot),
		CreatedBy:        actor,
	}, nil
}
