package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MonitoringScheduler periodically resolves fix proposals whose monitoring window has closed.
// Evaluation is idempotent so a failed tick is simply retried on the next one.
type MonitoringScheduler struct {
	evaluator MonitoringEvaluator
	interval  time.Duration
	logger    *zap.Logger
}

func NewMonitoringScheduler(evaluator MonitoringEvaluator, interval time.Duration, logger *zap.Logger) *MonitoringScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitoringScheduler{
		evaluator: evaluator,
		interval:  interval,
		logger:    logger.Named("monitoring_scheduler"),
	}
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *MonitoringScheduler) Start(parent context.Context) func() {
	t := &ticker{
		name:     "monitoring_evaluation",
		interval: s.interval,
		timeout:  s.interval,
		logger:   s.logger,
		job:      s.runOnce,
	}
	return t.start(parent)
}

func (s *MonitoringScheduler) runOnce(ctx context.Context) {
	res, err := s.evaluator.EvaluateMonitoring(ctx)
	if err != nil {
		s.logger.Error("monitoring evaluation failed", zap.Error(err))
		return
	}
	if res.Evaluated == 0 {
		return
	}
	s.logger.Info("monitoring evaluation finished",
		zap.Int("evaluated", res.Evaluated),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("rolled_back", res.RolledBack),
		zap.Int("failed", res.Failed),
	)
}
