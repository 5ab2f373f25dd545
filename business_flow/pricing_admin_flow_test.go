package businessflow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/config"
	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricingAdminFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("PricingFactors", func(t *testing.T) {
		env := newFlowEnv(t)

		created, err := env.admin.UpsertPricingFactor(ctx, &dto.AdminCreatePricingFactorRequest{
			Category: "material_kind", Key: "walnut", Factor: decimal.RequireFromString("1.45"),
		})
		require.NoError(t, err)
		assert.True(t, created.Item.Enabled)

		updated, err := env.admin.UpsertPricingFactor(ctx, &dto.AdminCreatePricingFactorRequest{
			Category: "material_kind", Key: "walnut", Factor: decimal.RequireFromString("1.5"),
		})
		require.NoError(t, err)
		assert.Equal(t, created.Item.UUID, updated.Item.UUID)
		assert.Equal(t, "1.5", updated.Item.Factor.String())

		list, err := env.admin.ListPricingFactors(ctx)
		require.NoError(t, err)
		require.Len(t, list.Items, 1)

		disabled, err := env.admin.DisablePricingFactor(ctx, created.Item.UUID.String())
		require.NoError(t, err)
		assert.False(t, disabled.Item.Enabled)

		stored, err := env.factorRepo.ByCategoryKey(ctx, "material_kind", "walnut")
		require.NoError(t, err)
		assert.False(t, stored.Enabled)

		_, err = env.admin.UpsertPricingFactor(ctx, &dto.AdminCreatePricingFactorRequest{
			Category: "color", Key: "red", Factor: decimal.NewFromInt(1),
		})
		requireBusinessCode(t, err, "PRICING_FACTOR_INVALID")
		_, err = env.admin.UpsertPricingFactor(ctx, &dto.AdminCreatePricingFactorRequest{
			Category: "material_kind", Key: "oak", Factor: decimal.Zero,
		})
		requireBusinessCode(t, err, "PRICING_FACTOR_INVALID")
		_, err = env.admin.DisablePricingFactor(ctx, "missing")
		requireBusinessCode(t, err, "PRICING_FACTOR_NOT_FOUND")
	})

	t.Run("SeedPricingFactors", func(t *testing.T) {
		env := newFlowEnv(t)
		seed, err := config.ParsePricingSeed([]byte(`
factors:
  - category: material_kind
    key: oak
    factor: "1.3"
  - category: surface_treatment
    key: lacquer
    factor: "1.1"
  - category: material_kind
    key: pine
    factor: "0.9"
    enabled: false
`))
		require.NoError(t, err)

		written, err := env.admin.SeedPricingFactors(ctx, seed)
		require.NoError(t, err)
		assert.Equal(t, 3, written)

		again, err := env.admin.SeedPricingFactors(ctx, seed)
		require.NoError(t, err)
		assert.Equal(t, 3, again)

		var count int64
		require.NoError(t, env.db.DB.Model(&models.PricingFactor{}).Count(&count).Error)
		assert.Equal(t, int64(3), count, "seeding twice updates in place")

		pine, err := env.factorRepo.ByCategoryKey(ctx, "material_kind", "pine")
		require.NoError(t, err)
		assert.False(t, pine.Enabled)

		bad := &config.PricingSeed{Factors: []config.PricingFactorSeed{
			{Category: "material_kind", Key: "maple", Factor: "1.2"},
			{Category: "material_kind", Key: "teak", Factor: "abc"},
		}}
		_, err = env.admin.SeedPricingFactors(ctx, bad)
		requireBusinessCode(t, err, "PRICING_FACTOR_INVALID")
		maple, err := env.factorRepo.ByCategoryKey(ctx, "material_kind", "maple")
		require.NoError(t, err)
		assert.Nil(t, maple, "a failed seed writes nothing")
	})

	t.Run("CompanyConfigVersions", func(t *testing.T) {
		env := newFlowEnv(t)
		_, err := env.fixtures.SeedWorkshop("tenant-a")
		require.NoError(t, err)

		before, err := env.calculations.Calculate(ctx, cabinetRequest("tenant-a"))
		require.NoError(t, err)

		resp, err := env.admin.UpsertCompanyConfig(ctx, &dto.UpsertCompanyConfigRequest{
			TenantID:           "tenant-a",
			Actor:              "owner",
			HourlyRate:         decimal.NewFromInt(60),
			OverheadMultiplier: decimal.RequireFromString("1.15"),
			MarginMultiplier:   decimal.RequireFromString("1.2"),
			TaxRate:            decimal.RequireFromString("0.19"),
		})
		require.NoError(t, err)
		assert.Equal(t, utils.EuroCurrency, resp.Item.Currency)
		assert.Equal(t, "owner", resp.Item.CreatedBy)

		var versions []models.CompanyConfig
		require.NoError(t, env.db.DB.Where("tenant_id = ?", "tenant-a").Order("id").Find(&versions).Error)
		require.Len(t, versions, 2)
		assert.False(t, versions[0].Active)
		assert.True(t, versions[1].Active)

		active, err := env.admin.GetCompanyConfig(ctx, "tenant-a")
		require.NoError(t, err)
		assert.Equal(t, resp.Item.UUID, active.Item.UUID)

		after, err := env.calculations.Calculate(ctx, cabinetRequest("tenant-a"))
		require.NoError(t, err)
		assert.True(t, after.Breakdown.GrossTotal.GreaterThan(before.Breakdown.GrossTotal))

		var stored models.PriceCalculation
		require.NoError(t, env.db.DB.Where("uuid = ?", before.UUID).First(&stored).Error)
		assert.Equal(t, versions[0].ID, stored.CompanyConfigID, "old calculations keep their configuration version")

		_, err = env.admin.UpsertCompanyConfig(ctx, &dto.UpsertCompanyConfigRequest{
			TenantID:           "tenant-a",
			HourlyRate:         decimal.NewFromInt(60),
			OverheadMultiplier: decimal.NewFromInt(1),
			MarginMultiplier:   decimal.NewFromInt(1),
			TaxRate:            decimal.NewFromInt(1),
		})
		requireBusinessCode(t, err, "COMPANY_CONFIG_INVALID")

		_, err = env.admin.GetCompanyConfig(ctx, "tenant-z")
		requireBusinessCode(t, err, "COMPANY_CONFIG_NOT_FOUND")
	})

	t.Run("Adjustments", func(t *testing.T) {
		env := newFlowEnv(t)
		from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		until := from.AddDate(0, 6, 0)

		low, err := env.admin.CreateAdjustment(ctx, &dto.AdminCreateAdjustmentRequest{
			TenantID: "tenant-a", Name: "winter", Kind: "percentage", Magnitude: decimal.NewFromInt(-5),
			ValidFrom: from, ValidUntil: &until, Priority: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, string(pricing.AudienceAll), low.Item.Audience)

		_, err = env.admin.CreateAdjustment(ctx, &dto.AdminCreateAdjustmentRequest{
			TenantID: "tenant-a", Name: "vip", Kind: "absolute", Magnitude: decimal.NewFromInt(-50),
			ValidFrom: from, Audience: "vip", Priority: 10,
		})
		require.NoError(t, err)

		list, err := env.admin.ListAdjustments(ctx, "tenant-a")
		require.NoError(t, err)
		require.Len(t, list.Items, 2)
		assert.Equal(t, "vip", list.Items[0].Name)

		_, err = env.admin.CreateAdjustment(ctx, &dto.AdminCreateAdjustmentRequest{
			TenantID: "tenant-a", Name: "bad", Kind: "percentage", ValidFrom: until, ValidUntil: &from,
		})
		requireBusinessCode(t, err, "ADJUSTMENT_INVALID")
		_, err = env.admin.CreateAdjustment(ctx, &dto.AdminCreateAdjustmentRequest{
			TenantID: "tenant-a", Name: "bad", Kind: "percentage", ValidFrom: from, Audience: "staff",
		})
		requireBusinessCode(t, err, "ADJUSTMENT_INVALID")
	})

	t.Run("Materials", func(t *testing.T) {
		env := newFlowEnv(t)
		resp, err := env.admin.CreateMaterial(ctx, &dto.AdminCreateMaterialRequest{
			TenantID: "tenant-a", StockKey: "BIRCH-PLY", Name: "Birch plywood",
			UnitCost: decimal.NewFromInt(42), PackagingUnit: "m²",
			BulkDiscounts: []pricing.BulkDiscount{{MinQuantity: decimal.NewFromInt(20), Percent: decimal.NewFromInt(7)}},
		})
		require.NoError(t, err)
		assert.Len(t, resp.Item.BulkDiscounts, 1)

		_, err = env.admin.CreateMaterial(ctx, &dto.AdminCreateMaterialRequest{
			TenantID: "tenant-a", StockKey: "BIRCH-PLY", Name: "Again", UnitCost: decimal.NewFromInt(1), PackagingUnit: "m²",
		})
		requireBusinessCode(t, err, "MATERIAL_EXISTS")

		_, err = env.admin.CreateMaterial(ctx, &dto.AdminCreateMaterialRequest{
			TenantID: "tenant-a", StockKey: "X", Name: "Bad", UnitCost: decimal.NewFromInt(1), PackagingUnit: "m",
			BulkDiscounts: []pricing.BulkDiscount{{MinQuantity: decimal.NewFromInt(5), Percent: decimal.NewFromInt(120)}},
		})
		requireBusinessCode(t, err, "MATERIAL_INVALID")

		list, err := env.admin.ListMaterials(ctx, "tenant-a")
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		assert.Equal(t, "7", list.Items[0].BulkDiscounts[0].Percent.String())
	})

	t.Run("SurchargeRules", func(t *testing.T) {
		env := newFlowEnv(t)
		_, err := env.fixtures.SeedWorkshop("tenant-a")
		require.NoError(t, err)

		rule := json.RawMessage(`{"type":"compare","op":">","left":{"type":"ref","key":"distance_km"},"right":{"type":"literal","value":50}}`)
		created, err := env.admin.CreateSurchargeRule(ctx, &dto.AdminCreateSurchargeRuleRequest{
			TenantID: "tenant-a", Name: "long delivery", Kind: "conditional",
			Amount: decimal.NewFromInt(60), Rule: rule, Priority: 5,
		})
		require.NoError(t, err)
		assert.JSONEq(t, string(rule), string(created.Item.Rule))

		_, err = env.admin.CreateSurchargeRule(ctx, &dto.AdminCreateSurchargeRuleRequest{
			TenantID: "tenant-a", Name: "no tree", Kind: "conditional", Amount: decimal.NewFromInt(60),
		})
		requireBusinessCode(t, err, "SURCHARGE_RULE_INVALID")

		_, err = env.admin.CreateSurchargeRule(ctx, &dto.AdminCreateSurchargeRuleRequest{
			TenantID: "tenant-a", Name: "bad tree", Kind: "conditional", Amount: decimal.NewFromInt(60),
			Rule: json.RawMessage(`{"type":"regex","pattern":".*"}`),
		})
		be := requireBusinessCode(t, err, "SURCHARGE_RULE_INVALID")
		assert.ErrorIs(t, be, ErrRuleInvalid)

		_, err = env.admin.CreateSurchargeRule(ctx, &dto.AdminCreateSurchargeRuleRequest{
			TenantID: "tenant-a", Name: "per km", Kind: "per_unit", Rate: decimal.NewFromInt(1),
		})
		requireBusinessCode(t, err, "SURCHARGE_RULE_INVALID")

		list, err := env.admin.ListSurchargeRules(ctx, "tenant-a")
		require.NoError(t, err)
		require.Len(t, list.Items, 1)

		far := cabinetRequest("tenant-a")
		far.Inputs = map[string]string{"distance_km": "75"}
		resp, err := env.calculations.Calculate(ctx, far)
		require.NoError(t, err)
		require.Len(t, resp.Breakdown.Surcharges, 1)
		assert.Equal(t, "60.00", resp.Breakdown.Surcharges[0].Amount.StringFixed(2))

		near := cabinetRequest("tenant-a")
		near.Inputs = map[string]string{"distance_km": "20"}
		resp, err = env.calculations.Calculate(ctx, near)
		require.NoError(t, err)
		assert.Empty(t, resp.Breakdown.Surcharges)
	})
}
