package utils

import (
	"time"
)

// Routing constants
const (
	// AutoAcceptThreshold is the lowest confidence accepted without further processing
	AutoAcceptThreshold = 0.92

	// AgentVerifyThreshold is the lowest confidence handled by a lightweight verification pass
	AgentVerifyThreshold = 0.80

	// AgentExtractThreshold is the lowest confidence handled by a full re-extraction
	AgentExtractThreshold = 0.70

	// FailureConfidenceCeiling separates successful extractions from failures in analysis and monitoring
	FailureConfidenceCeiling = 0.85
)

// Deployment pipeline constants
const (
	// MinTestSuccessRate is required to move a fix proposal from testing to validated (85%)
	MinTestSuccessRate = 0.85

	// MinConfidenceScore is required to move a fix proposal from testing to validated (80%)
	MinConfidenceScore = 0.80

	// MonitoringWindow is the post-deployment observation period (7 days)
	MonitoringWindow = 7 * 24 * time.Hour

	// RollbackWindow bounds how long after deployment a rollback is allowed (30 days)
	RollbackWindow = 30 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Pricing constants
const (
	// EuroCurrency is the default currency of company configurations
	EuroCurrency = "EUR"

	// MoneyScale is the number of decimal places every monetary step is rounded to
	MoneyScale = 2
)

// Cache and queue keys (prefixed with CacheConfig.RedisPrefix at runtime)
const (
	PricingFactorsCacheKey = "pricing_factors:enabled"
	DeployLockKeyPrefix    = "fix_proposal:deploy_lock:"
	AgentVerifyQueueKey    = "verification:agent_verify"
	AgentExtractQueueKey   = "verification:agent_extract"
	HumanReviewQueueKey    = "verification:human_review"
)
