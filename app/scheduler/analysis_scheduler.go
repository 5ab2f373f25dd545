package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AnalysisScheduler periodically runs the pattern analysis for every tenant
type AnalysisScheduler struct {
	runner   AnalysisRunner
	interval time.Duration
	logger   *zap.Logger
}

func NewAnalysisScheduler(runner AnalysisRunner, interval time.Duration, logger *zap.Logger) *AnalysisScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisScheduler{
		runner:   runner,
		interval: interval,
		logger:   logger.Named("analysis_scheduler"),
	}
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *AnalysisScheduler) Start(parent context.Context) func() {
	t := &ticker{
		name:     "pattern_analysis",
		interval: s.interval,
		timeout:  s.interval,
		logger:   s.logger,
		job:      s.runOnce,
	}
	return t.start(parent)
}

func (s *AnalysisScheduler) runOnce(ctx context.Context) {
	started := time.Now()
	tenants, err := s.runner.RunAllTenants(ctx)
	if err != nil {
		s.logger.Error("pattern analysis failed",
			zap.Int("tenants_analysed", tenants),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("pattern analysis finished",
		zap.Int("tenants_analysed", tenants),
		zap.Duration("took", time.Since(started)),
	)
}
