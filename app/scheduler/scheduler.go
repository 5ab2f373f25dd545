// Package scheduler runs the periodic pattern analysis and the post-deployment monitoring evaluation
package scheduler

import (
	"context"
	"time"

	"github.com/amirphl/quote-core/app/dto"
	"go.uber.org/zap"
)

// AnalysisRunner analyses every tenant with recent extraction results
type AnalysisRunner interface {
	RunAllTenants(ctx context.Context) (int, error)
}

// MonitoringEvaluator resolves proposals whose monitoring window has closed
type MonitoringEvaluator interface {
	EvaluateMonitoring(ctx context.Context) (*dto.EvaluateMonitoringResponse, error)
}

// ticker runs job once at start and then on every interval until the context is cancelled.
// A tick never overlaps the previous one.
type ticker struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	job      func(ctx context.Context)
}

func (t *ticker) start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		tick := time.NewTicker(t.interval)
		defer tick.Stop()

		t.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				t.runOnce(ctx)
			}
		}
	}()

	t.logger.Info("scheduler started", zap.String("job", t.name), zap.Duration("interval", t.interval))
	return func() {
		cancel()
		<-done
		t.logger.Info("scheduler stopped", zap.String("job", t.name))
	}
}

func (t *ticker) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("scheduler job panicked", zap.String("job", t.name), zap.Any("panic", r))
		}
	}()
	t.job(runCtx)
}
