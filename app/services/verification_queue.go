package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/quote-core/config"
	"github.com/amirphl/quote-core/routing"
	"github.com/amirphl/quote-core/utils"
	"github.com/redis/go-redis/v9"
)

// VerificationTask asks a secondary processor to verify or re-extract one field
type VerificationTask struct {
	TenantID   string       `json:"tenant_id"`
	DocumentID string       `json:"document_id"`
	Field      string       `json:"field"`
	Value      string       `json:"value"`
	Confidence float64      `json:"confidence"`
	Tier       routing.Tier `json:"tier"`
	Action     string       `json:"action"`
	QueuedAt   time.Time    `json:"queued_at"`
}

// VerificationQueue hands routed fields to the processors of their tier
type VerificationQueue interface {
	// Enqueue pushes tasks onto the list of their tier and returns how many were queued.
	// AUTO_ACCEPT tasks are skipped.
	Enqueue(ctx context.Context, tasks []VerificationTask) (int, error)
}

// NewVerificationQueue returns a Redis list backed queue, or a queue that drops everything when rc is nil
func NewVerificationQueue(rc *redis.Client, cfg config.CacheConfig) VerificationQueue {
	if rc == nil {
		return noopVerificationQueue{}
	}
	return &redisVerificationQueue{
		rc: rc,
		keys: map[routing.Tier]string{
			routing.TierAgentVerify:  RedisKey(cfg, utils.AgentVerifyQueueKey),
			routing.TierAgentExtract: RedisKey(cfg, utils.AgentExtractQueueKey),
			routing.TierHumanReview:  RedisKey(cfg, utils.HumanReviewQueueKey),
		},
	}
}

type redisVerificationQueue struct {
	rc   *redis.Client
	keys map[routing.Tier]string
}

func (q *redisVerificationQueue) Enqueue(ctx context.Context, tasks []VerificationTask) (int, error) {
	grouped := make(map[string][]any)
	queued := 0
	for _, task := range tasks {
		key, ok := q.keys[task.Tier]
		if !ok {
			continue
		}
		if task.Action == "" {
			task.Action = task.Tier.Action().Name
		}
		raw, err := json.Marshal(task)
		if err != nil {
			return 0, fmt.Errorf("failed to encode verification task %s: %w", task.Field, err)
		}
		grouped[key] = append(grouped[key], raw)
		queued++
	}
	if queued == 0 {
		return 0, nil
	}

	pipe := q.rc.TxPipeline()
	for key, values := range grouped {
		pipe.RPush(ctx, key, values...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to enqueue verification tasks: %w", err)
	}
	return queued, nil
}

type noopVerificationQueue struct{}

func (noopVerificationQueue) Enqueue(context.Context, []VerificationTask) (int, error) { return 0, nil }
