package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirphl/quote-core/app/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRunner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRunner) RunAllTenants(context.Context) (int, error) {
	f.calls.Add(1)
	return 3, f.err
}

type fakeEvaluator struct {
	calls atomic.Int32
	panic bool
}

func (f *fakeEvaluator) EvaluateMonitoring(context.Context) (*dto.EvaluateMonitoringResponse, error) {
	n := f.calls.Add(1)
	if f.panic && n == 1 {
		panic("boom")
	}
	return &dto.EvaluateMonitoringResponse{Evaluated: 2, Succeeded: 1, RolledBack: 1}, nil
}

func TestAnalysisScheduler(t *testing.T) {
	t.Run("RunsImmediatelyAndOnEveryTick", func(t *testing.T) {
		runner := &fakeRunner{}
		s := NewAnalysisScheduler(runner, 10*time.Millisecond, zap.NewNop())

		stop := s.Start(context.Background())
		require.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
		stop()

		after := runner.calls.Load()
		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, after, runner.calls.Load(), "no runs after stop")
	})

	t.Run("FailureIsLogged", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		runner := &fakeRunner{err: errors.New("database unavailable")}
		s := NewAnalysisScheduler(runner, time.Hour, zap.New(core))

		stop := s.Start(context.Background())
		require.Eventually(t, func() bool {
			return logs.FilterMessage("pattern analysis failed").Len() == 1
		}, time.Second, 5*time.Millisecond)
		stop()
	})

	t.Run("DefaultInterval", func(t *testing.T) {
		s := NewAnalysisScheduler(&fakeRunner{}, 0, nil)
		assert.Equal(t, 24*time.Hour, s.interval)
	})
}

func TestMonitoringScheduler(t *testing.T) {
	t.Run("RecoversFromPanic", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		evaluator := &fakeEvaluator{panic: true}
		s := NewMonitoringScheduler(evaluator, 10*time.Millisecond, zap.New(core))

		stop := s.Start(context.Background())
		require.Eventually(t, func() bool { return evaluator.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
		stop()

		assert.Equal(t, 1, logs.FilterMessage("scheduler job panicked").Len())
		assert.GreaterOrEqual(t, logs.FilterMessage("monitoring evaluation finished").Len(), 1)
	})

	t.Run("StopsWithParentContext", func(t *testing.T) {
		evaluator := &fakeEvaluator{}
		ctx, cancel := context.WithCancel(context.Background())
		s := NewMonitoringScheduler(evaluator, 10*time.Millisecond, nil)

		stop := s.Start(ctx)
		require.Eventually(t, func() bool { return evaluator.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
		cancel()
		stop()
		assert.Equal(t, time.Hour, NewMonitoringScheduler(evaluator, -1, nil).interval)
	})
}
