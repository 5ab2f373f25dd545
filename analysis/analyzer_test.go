package analysis

import (
	"fmt"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var windowStart = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func extraction(field, value string, confidence float64, offset time.Duration) Extraction {
	return Extraction{
		TenantID:    "tenant-a",
		DocumentID:  fmt.Sprintf("doc-%s-%d", field, offset),
		FieldName:   field,
		RawValue:    value,
		Confidence:  confidence,
		ExtractedAt: windowStart.Add(offset),
	}
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		confidence float64
		bucket     Bucket
		failed     bool
	}{
		{0.99, "", false},
		{0.85, "", false},
		{0.849, BucketMedium, true},
		{0.70, BucketMedium, true},
		{0.6999, BucketLow, true},
		{0.50, BucketLow, true},
		{0.4999, BucketVeryLow, true},
		{0, BucketVeryLow, true},
		{math.NaN(), BucketVeryLow, true},
	}
	for _, tt := range tests {
		bucket, failed := BucketFor(tt.confidence)
		assert.Equal(t, tt.failed, failed, "confidence %v", tt.confidence)
		assert.Equal(t, tt.bucket, bucket, "confidence %v", tt.confidence)
	}
}

func TestSeverityIsMonotonic(t *testing.T) {
	assert.Equal(t, SeverityLow, SeverityFor(3.99))
	assert.Equal(t, SeverityMedium, SeverityFor(4))
	assert.Equal(t, SeverityHigh, SeverityFor(10))
	assert.Equal(t, SeverityCritical, SeverityFor(20))

	prev := SeverityFor(0)
	for s := 0.0; s <= 40; s += 0.25 {
		cur := SeverityFor(s)
		assert.GreaterOrEqual(t, cur.Rank(), prev.Rank())
		prev = cur
	}

	sev, err := ParseSeverity("high")
	require.NoError(t, err)
	assert.Equal(t, SeverityHigh, sev)
	_, err = ParseSeverity("urgent")
	assert.Error(t, err)
}

func TestInferCause(t *testing.T) {
	tests := []struct {
		field    string
		value    string
		expected Cause
	}{
		{"customer_name", "Tischlerei Huber", CauseMissingLegalSuffix},
		{"customer_name", "Tischlerei Huber GmbH", CauseLowOCRQuality},
		{"supplier_company", "Holzhandel Meier GmbH & Co. KG", CauseLowOCRQuality},
		{"invoice_date", "31.13.2026", CauseUnparseableDate},
		{"invoice_date", "14.05.2026", CauseLowOCRQuality},
		{"quantity", "2,5", CauseLocaleNumberFormat},
		{"total_amount", "1.234,50", CauseLocaleNumberFormat},
		{"quantity", "12 m²", CauseUnitSuffix},
		{"labor_hours", "18h", CauseUnitSuffix},
		{"quantity", "   ", CauseEmptyValue},
		{"contact_email", "info(at)huber.de", CauseMalformedEmail},
		{"contact_email", "info@huber.de", CauseLowOCRQuality},
		{"iban", "DE89 3704 0044 0532 0130 01", CauseMalformedIBAN},
		{"iban", "DE89 3704 0044 0532 0130 00", CauseLowOCRQuality},
		{"notes", "smudged", CauseLowOCRQuality},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, InferCause(tt.field, tt.value), "%s=%q", tt.field, tt.value)
	}
	assert.Equal(t, FixEntitySuffixNormalization, CauseMissingLegalSuffix.FixCategory())
	assert.Equal(t, FixOCRPreprocessing, CauseLowOCRQuality.FixCategory())
}

func TestAnalyzeGroupsAndRanks(t *testing.T) {
	var results []Extraction
	// 30 customer names without a legal suffix at 0.6: score 30 * 0.4 = 12 -> HIGH
	for i := range 30 {
		results = append(results, extraction("customer_name", "Tischlerei Huber", 0.6, time.Duration(i)*time.Hour))
	}
	// 5 quantities with comma decimals at 0.75: score 5 * 0.25 = 1.25 -> LOW
	for i := range 5 {
		results = append(results, extraction("quantity", "2,5", 0.75, time.Duration(i)*time.Minute))
	}
	// 25 very low dates at 0.1: score 25 * 0.9 = 22.5 -> CRITICAL
	for i := range 25 {
		results = append(results, extraction("delivery_date", "next tuesday", 0.1, time.Duration(i)*time.Minute))
	}
	// successes and out-of-window failures are ignored
	results = append(results,
		extraction("customer_name", "Tischlerei Huber GmbH", 0.97, time.Hour),
		extraction("quantity", "2,5", 0.2, -time.Hour),
		extraction("quantity", "2,5", 0.2, 8*24*time.Hour),
	)

	window := Window{Start: windowStart, End: windowStart.Add(7 * 24 * time.Hour)}
	original := slices.Clone(results)
	report := Analyze(results, window)
	assert.Equal(t, original, results, "input must not be modified")

	assert.Equal(t, 61, report.TotalExtractions)
	assert.Equal(t, 60, report.FailureCount)
	require.Len(t, report.Groups, 3)
	assert.Equal(t, "customer_name", report.Groups[0].FieldName)
	assert.Equal(t, "delivery_date", report.Groups[1].FieldName)
	assert.Equal(t, "quantity", report.Groups[2].FieldName)

	names := report.Groups[0]
	assert.Equal(t, BucketLow, names.Bucket)
	assert.Equal(t, 30, names.Count)
	assert.InDelta(t, 0.6, names.AverageConfidence, 1e-9)
	assert.InDelta(t, 12.0, names.Score, 1e-9)
	assert.Equal(t, SeverityHigh, names.Severity)
	assert.Equal(t, CauseMissingLegalSuffix, names.Cause)
	assert.Equal(t, windowStart, names.FirstSeen)
	assert.Equal(t, windowStart.Add(29*time.Hour), names.LastSeen)

	require.Len(t, report.Recommendations, 3)
	assert.Equal(t, "delivery_date", report.Recommendations[0].FieldName)
	assert.Equal(t, SeverityCritical, report.Recommendations[0].Severity)
	assert.Equal(t, CauseUnparseableDate, report.Recommendations[0].Cause)
	assert.Equal(t, FixDateFormatRule, report.Recommendations[0].FixCategory)
	assert.Equal(t, 25, report.Recommendations[0].AffectedExtractions)
	assert.Equal(t, 1, report.Recommendations[0].Rank)
	assert.Equal(t, "customer_name", report.Recommendations[1].FieldName)
	assert.Equal(t, "quantity", report.Recommendations[2].FieldName)
	assert.Equal(t, SeverityLow, report.Recommendations[2].Severity)
	assert.Contains(t, report.Recommendations[1].Description, "missing_legal_suffix")
}

func TestRankingTieBreakers(t *testing.T) {
	var results []Extraction
	// Same severity and score, higher count wins: 8 * 0.5 = 4 and 5 * 0.8 = 4
	for i := range 8 {
		results = append(results, extraction("b_field", "x", 0.5, time.Duration(i)))
	}
	for i := range 5 {
		results = append(results, extraction("a_field", "x", 0.2, time.Duration(i)))
	}
	// Identical groups fall back to field name
	for i := range 5 {
		results = append(results, extraction("c_field", "x", 0.2, time.Duration(i)))
	}

	report := Analyze(results, Window{})
	require.Len(t, report.Recommendations, 3)
	assert.Equal(t, "b_field", report.Recommendations[0].FieldName)
	assert.Equal(t, "a_field", report.Recommendations[1].FieldName)
	assert.Equal(t, "c_field", report.Recommendations[2].FieldName)
}

func TestMajorityCause(t *testing.T) {
	results := []Extraction{
		extraction("customer_name", "Huber", 0.4, 0),
		extraction("customer_name", "Meier", 0.4, 1),
		extraction("customer_name", "", 0.4, 2),
	}
	report := Analyze(results, Window{})
	require.Len(t, report.Groups, 1)
	assert.Equal(t, CauseMissingLegalSuffix, report.Groups[0].Cause)
	assert.Equal(t, 2, report.Groups[0].CauseVotes[CauseMissingLegalSuffix])
	assert.Equal(t, 1, report.Groups[0].CauseVotes[CauseEmptyValue])
}

func TestAnalyzeEmpty(t *testing.T) {
	report := Analyze(nil, Window{})
	assert.Zero(t, report.TotalExtractions)
	assert.Empty(t, report.Groups)
	assert.NotNil(t, report.Recommendations)
}
