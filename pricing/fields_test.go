package pricing

import (
	"testing"
	"time"

	"github.com/amirphl/quote-core/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw       string
		expected  string
		expectErr bool
	}{
		{"18", "18", false},
		{" 2,5 ", "2.5", false},
		{"1.234,50", "1234.5", false},
		{"1,234.50", "1234.5", false},
		{"1 250", "1250", false},
		{"0,125", "0.125", false},
		{"1234,567", "1234.567", false},
		{"-2,5", "-2.5", false},
		{"12 m²", "", true},
		{"", "", true},
		{"1e20000000", "", true},
		{"1E3", "", true},
		{"1,234", "", true},
		{"12.500", "", true},
		{"1234567890123", "", true},
		{"0,0000001", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.raw)
		if tt.expectErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.True(t, got.Equal(d(tt.expected)), "%q parsed as %s", tt.raw, got)
	}
}

func TestParseFields(t *testing.T) {
	in, err := ParseFields(map[string]string{
		"labor_hours":       "18",
		"stock_key":         "OAK-BOARD",
		"quantity":          "2,5",
		"material_kind":     "oak",
		"surface_treatment": "lacquer",
		"labor_hours.1":     "0",
		"stock_key.1":       "PINE-STRIP",
		"quantity.1":        "60",
		"material_kind.1":   "standard",
		"customer_audience": "vip",
		"distance_km":       "75",
		"express":           "TRUE",
		"note":              "call before delivery",
	})
	require.NoError(t, err)

	require.Len(t, in.Lines, 2)
	assert.Equal(t, "OAK-BOARD", in.Lines[0].StockKey)
	assert.True(t, in.Lines[0].Quantity.Equal(d("2.5")))
	assert.Equal(t, "lacquer", in.Lines[0].SurfaceTreatment)
	assert.Equal(t, "PINE-STRIP", in.Lines[1].StockKey)
	assert.True(t, in.Lines[1].LaborHours.IsZero())
	assert.Equal(t, AudienceVIP, in.Audience)

	assert.True(t, in.RuleInputs["distance_km"].Equal(rules.Int(75)))
	assert.True(t, in.RuleInputs["express"].Equal(rules.Bool(true)))
	assert.True(t, in.RuleInputs["note"].Equal(rules.String("call before delivery")))
}

func TestParseFieldsRejectsBadInput(t *testing.T) {
	_, err := ParseFields(map[string]string{"quantity": "two"})
	var inputErr *InvalidInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "quantity", inputErr.Field)

	_, err = ParseFields(map[string]string{"quantity": "1", "quantity.2": "4"})
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "lines[1]", inputErr.Field)
}

func TestParseAmountErrors(t *testing.T) {
	_, err := ParseAmount("1e20000000")
	assert.ErrorIs(t, err, ErrNotANumber)

	_, err = ParseAmount("1,234")
	assert.ErrorIs(t, err, ErrAmbiguousAmount)

	_, err = ParseAmount("999999999999,5")
	assert.NoError(t, err)
	_, err = ParseAmount("9999999999999")
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestParseFieldsBoundsNumbers(t *testing.T) {
	start := time.Now()
	_, err := ParseFields(map[string]string{"quantity": "1e20000000"})
	var inputErr *InvalidInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "quantity", inputErr.Field)
	assert.Less(t, time.Since(start), time.Second)

	_, err = ParseFields(map[string]string{"quantity": "1,234"})
	require.ErrorAs(t, err, &inputErr)
	assert.Contains(t, inputErr.Reason, "ambiguous")

	_, err = ParseFields(map[string]string{"quantity": "1", "distance_km": "99999999999999999"})
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "distance_km", inputErr.Field)

	in, err := ParseFields(map[string]string{"quantity": "1", "reference": "1e5"})
	require.NoError(t, err)
	assert.True(t, in.RuleInputs["reference"].Equal(rules.String("1e5")))
}

func TestParseFieldsRejectsDuplicateLineField(t *testing.T) {
	_, err := ParseFields(map[string]string{"labor_hours": "18", "labor_hours.0": "20"})
	var inputErr *InvalidInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "labor_hours.0", inputErr.Field)
	assert.Contains(t, inputErr.Reason, "line 0")

	in, err := ParseFields(map[string]string{"labor_hours.0": "18", "labor_hours.1": "2"})
	require.NoError(t, err)
	assert.Len(t, in.Lines, 2)
}
