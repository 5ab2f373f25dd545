package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/amirphl/quote-core/analysis"
	"github.com/amirphl/quote-core/config"
	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/routing"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "quote:pricing_factors:enabled", RedisKey(config.CacheConfig{RedisPrefix: "quote:"}, "pricing_factors:enabled"))
	assert.Equal(t, "quote:x", RedisKey(config.CacheConfig{RedisPrefix: "quote"}, "x"))
	assert.Equal(t, "x", RedisKey(config.CacheConfig{}, "x"))
}

func TestServicesWithoutRedis(t *testing.T) {
	ctx := context.Background()

	cache := NewFactorCache(nil, config.CacheConfig{}, time.Minute)
	require.NoError(t, cache.Set(ctx, []pricing.Factor{{Key: "oak"}}))
	factors, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, factors)
	assert.NoError(t, cache.Invalidate(ctx))

	queue := NewVerificationQueue(nil, config.CacheConfig{})
	n, err := queue.Enqueue(ctx, []VerificationTask{{Field: "company_name", Tier: routing.TierAgentVerify}})
	require.NoError(t, err)
	assert.Zero(t, n)

	locker := NewDeployLocker(nil, config.CacheConfig{}, time.Second)
	release, err := locker.Acquire(ctx, 1)
	require.NoError(t, err)
	release()
}

func TestExportAnalysisReport(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	report := analysis.Report{
		Window:           analysis.Window{Start: start, End: start.Add(24 * time.Hour)},
		TotalExtractions: 40,
		FailureCount:     12,
		Groups: []analysis.Group{{
			FieldName:         "company_name",
			Bucket:            analysis.BucketLow,
			Count:             12,
			AverageConfidence: 0.6,
			Score:             4.8,
			Severity:          analysis.SeverityMedium,
			FirstSeen:         start,
			LastSeen:          start.Add(time.Hour),
		}},
		Recommendations: []analysis.Recommendation{{
			Rank:                1,
			FieldName:           "company_name",
			Bucket:              analysis.BucketLow,
			Severity:            analysis.SeverityMedium,
			Score:               4.8,
			AffectedExtractions: 12,
			Description:         "company_name: 12 extractions",
		}},
	}

	raw, err := ExportAnalysisReport("tenant-a", report)
	require.NoError(t, err)

	xl, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	assert.Equal(t, []string{SummarySheet, PatternsSheet, RecommendationsSheet}, xl.GetSheetList())

	tenant, err := xl.GetCellValue(SummarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", tenant)

	rows, err := xl.GetRows(PatternsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "company_name", rows[1][0])
	assert.Equal(t, "low", rows[1][1])
	assert.Equal(t, "12", rows[1][2])

	recs, err := xl.GetRows(RecommendationsSheet)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[1][0])
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(calculationsTotal.WithLabelValues("ok"))
	ObserveCalculation("ok")
	assert.Equal(t, before+1, testutil.ToFloat64(calculationsTotal.WithLabelValues("ok")))

	before = testutil.ToFloat64(pipelineTransitionsTotal.WithLabelValues("validated", "deployed", "manual"))
	ObserveTransition("validated", "deployed", "manual")
	assert.Equal(t, before+1, testutil.ToFloat64(pipelineTransitionsTotal.WithLabelValues("validated", "deployed", "manual")))
}
