package deployment

import (
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday 13 May 2026, 10:00 UTC
var openTime = time.Date(2026, 5, 13, 10, 0, 0, 0, time.UTC)

func validatedProposal(t *testing.T, p *Pipeline) Proposal {
	t.Helper()
	prop, _, err := p.StartTesting(Proposal{ID: 7, Status: StatusProposed}, "alice", openTime)
	require.NoError(t, err)
	prop, err = p.RecordTestResults(prop, TestResults{SampleSize: 50, SuccessRate: 0.92, ConfidenceScore: 0.90})
	require.NoError(t, err)
	prop, _, err = p.Validate(prop, "alice", openTime)
	require.NoError(t, err)
	return prop
}

func deployedProposal(t *testing.T, p *Pipeline) Proposal {
	t.Helper()
	prop, _, err := p.Deploy(validatedProposal(t, p), "alice", "", openTime)
	require.NoError(t, err)
	return prop
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusProposed, StatusTesting, true},
		{StatusTesting, StatusValidated, true},
		{StatusValidated, StatusDeployed, true},
		{StatusDeployed, StatusMonitoring, true},
		{StatusMonitoring, StatusDeployedSuccess, true},
		{StatusMonitoring, StatusRolledBack, true},
		{StatusDeployedSuccess, StatusRolledBack, true},
		{StatusProposed, StatusDeployed, false},
		{StatusTesting, StatusDeployed, false},
		{StatusValidated, StatusMonitoring, false},
		{StatusRolledBack, StatusDeployed, false},
		{StatusRolledBack, StatusTesting, false},
		{StatusDeployedSuccess, StatusMonitoring, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
	assert.True(t, StatusMonitoring.Open())
	assert.False(t, StatusRolledBack.Open())
	assert.False(t, Status("paused").Valid())
}

func TestValidatePassesGates(t *testing.T) {
	p := NewPipeline(DefaultGates())
	prop, _, err := p.StartTesting(Proposal{ID: 1, Status: StatusProposed}, "alice", openTime)
	require.NoError(t, err)
	prop, err = p.RecordTestResults(prop, TestResults{SampleSize: 40, SuccessRate: 0.92, ConfidenceScore: 0.90})
	require.NoError(t, err)

	prop, audit, err := p.Validate(prop, "alice", openTime)
	require.NoError(t, err)
	assert.Equal(t, StatusValidated, prop.Status)
	assert.Equal(t, StatusTesting, audit.From)
	assert.Equal(t, StatusValidated, audit.To)
	assert.Equal(t, "alice", audit.Actor)
	assert.Equal(t, TriggerManual, audit.Trigger)
	assert.Contains(t, audit.Reason, "92%")
}

func TestValidateRejectsLowSuccessRate(t *testing.T) {
	p := NewPipeline(DefaultGates())
	prop := Proposal{ID: 1, Status: StatusTesting, TestSampleSize: 40, TestSuccessRate: 0.78, ConfidenceScore: 0.90}

	got, _, err := p.Validate(prop, "alice", openTime)
	require.Error(t, err)
	assert.Equal(t, StatusTesting, got.Status)

	var gateErr *ValidationGateError
	require.True(t, errors.As(err, &gateErr))
	require.Len(t, gateErr.Failures, 1)
	assert.Contains(t, gateErr.Failures[0], "78")
	assert.Contains(t, gateErr.Failures[0], "85")
	assert.Equal(t, "validation gate failed: test success rate 78% below required 85%", err.Error())
}

func TestValidationGatesAreIndependent(t *testing.T) {
	p := NewPipeline(DefaultGates())
	tests := []struct {
		name     string
		prop     Proposal
		failures int
		contains string
	}{
		{"confidence only", Proposal{TestSampleSize: 10, TestSuccessRate: 0.95, ConfidenceScore: 0.79}, 1, "confidence score 79%"},
		{"success only", Proposal{TestSampleSize: 10, TestSuccessRate: 0.84, ConfidenceScore: 0.95}, 1, "test success rate 84%"},
		{"empty sample", Proposal{TestSampleSize: 0, TestSuccessRate: 0.95, ConfidenceScore: 0.95}, 1, "sample size"},
		{"all failing", Proposal{TestSuccessRate: 0.5, ConfidenceScore: 0.5}, 3, "50%"},
		{"exact thresholds", Proposal{TestSampleSize: 1, TestSuccessRate: 0.85, ConfidenceScore: 0.80}, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failures := p.CheckValidationGates(tt.prop)
			assert.Len(t, failures, tt.failures)
			if tt.contains != "" {
				assert.Contains(t, strings.Join(failures, "; "), tt.contains)
			}
		})
	}
}

func TestRecordTestResults(t *testing.T) {
	p := NewPipeline(DefaultGates())
	_, err := p.RecordTestResults(Proposal{Status: StatusProposed}, TestResults{SampleSize: 1})
	var transitionErr *InvalidTransitionError
	assert.True(t, errors.As(err, &transitionErr))

	_, err = p.RecordTestResults(Proposal{Status: StatusTesting}, TestResults{SampleSize: 1, SuccessRate: 1.2})
	assert.Error(t, err)
}

func TestDeployEntersMonitoring(t *testing.T) {
	p := NewPipeline(DefaultGates())
	prop, audits, err := p.Deploy(validatedProposal(t, p), "alice", "rolled to eu cluster", openTime)
	require.NoError(t, err)

	assert.Equal(t, StatusMonitoring, prop.Status)
	require.NotNil(t, prop.AppliedAt)
	require.NotNil(t, prop.MonitoringUntil)
	assert.Equal(t, openTime, *prop.AppliedAt)
	assert.Equal(t, openTime.Add(7*24*time.Hour), *prop.MonitoringUntil)
	assert.Equal(t, "rolled to eu cluster", prop.DeploymentNotes)

	require.Len(t, audits, 2)
	assert.Equal(t, StatusValidated, audits[0].From)
	assert.Equal(t, StatusDeployed, audits[0].To)
	assert.Equal(t, "alice", audits[0].Actor)
	assert.Equal(t, StatusDeployed, audits[1].From)
	assert.Equal(t, StatusMonitoring, audits[1].To)
	assert.Equal(t, SystemActor, audits[1].Actor)
	assert.Equal(t, TriggerAutomatic, audits[1].Trigger)
}

func TestDeployRequiresValidated(t *testing.T) {
	p := NewPipeline(DefaultGates())
	for _, status := range []Status{StatusProposed, StatusTesting, StatusRolledBack} {
		_, _, err := p.Deploy(Proposal{Status: status}, "alice", "", openTime)
		var transitionErr *InvalidTransitionError
		assert.True(t, errors.As(err, &transitionErr), "status %s", status)
	}
}

func TestDeployIsNotRepeatable(t *testing.T) {
	p := NewPipeline(DefaultGates())
	prop := deployedProposal(t, p)

	_, _, err := p.Deploy(prop, "bob", "", openTime.Add(time.Minute))
	var concurrent *ConcurrentDeploymentError
	require.True(t, errors.As(err, &concurrent))
	assert.Equal(t, uint(7), concurrent.ProposalID)
}

func TestDeployWindow(t *testing.T) {
	p := NewPipeline(DefaultGates())
	prop := validatedProposal(t, p)

	saturday := time.Date(2026, 5, 16, 11, 0, 0, 0, time.UTC)
	_, _, err := p.Deploy(prop, "alice", "", saturday)
	var windowErr *DeploymentWindowError
	require.True(t, errors.As(err, &windowErr))
	assert.Equal(t, time.Date(2026, 5, 18, 9, 0, 0, 0, time.UTC), windowErr.NextOpen)

	evening := time.Date(2026, 5, 13, 17, 0, 0, 0, time.UTC)
	assert.Error(t, p.CanApply(prop, evening))
	assert.NoError(t, p.CanApply(prop, time.Date(2026, 5, 13, 16, 59, 0, 0, time.UTC)))
}

func TestNewWindow(t *testing.T) {
	w, err := NewWindow("Europe/Berlin", []string{"Monday", "tue", "WED"}, 9, 16)
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday}, w.Weekdays)

	// 13 May 2026 is CEST (UTC+2): 06:59 UTC is 08:59, 07:00 UTC is 09:00
	assert.False(t, w.Contains(time.Date(2026, 5, 13, 6, 59, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2026, 5, 13, 7, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC)))

	_, err = NewWindow("Mars/Olympus", []string{"mon"}, 9, 16)
	assert.Error(t, err)
	_, err = NewWindow("UTC", []string{"someday"}, 9, 16)
	assert.Error(t, err)
	_, err = NewWindow("UTC", []string{"mon"}, 16, 9)
	assert.Error(t, err)
	_, err = NewWindow("UTC", nil, 9, 16)
	assert.Error(t, err)
}

func TestEvaluateMonitoring(t *testing.T) {
	p := NewPipeline(DefaultGates())
	afterWindow := openTime.Add(7*24*time.Hour + time.Minute)

	t.Run("window still open", func(t *testing.T) {
		prop := deployedProposal(t, p)
		got, audit, err := p.EvaluateMonitoring(prop, Observation{SampleSize: 100, SuccessCount: 99}, openTime.Add(24*time.Hour))
		require.NoError(t, err)
		assert.Nil(t, audit)
		assert.Equal(t, StatusMonitoring, got.Status)
	})

	t.Run("success", func(t *testing.T) {
		prop := deployedProposal(t, p)
		got, audit, err := p.EvaluateMonitoring(prop, Observation{SampleSize: 40, SuccessCount: 36}, afterWindow)
		require.NoError(t, err)
		require.NotNil(t, audit)
		assert.Equal(t, StatusDeployedSuccess, got.Status)
		assert.Equal(t, SystemActor, audit.Actor)
		assert.Equal(t, 40, got.PostDeploySampleSize)
		require.NotNil(t, got.PostDeploySuccessRate)
		assert.InDelta(t, 0.9, *got.PostDeploySuccessRate, 1e-9)
		assert.Nil(t, got.RolledBackAt)
	})

	t.Run("regression rolls back", func(t *testing.T) {
		prop := deployedProposal(t, p)
		got, audit, err := p.EvaluateMonitoring(prop, Observation{SampleSize: 40, SuccessCount: 30}, afterWindow)
		require.NoError(t, err)
		require.NotNil(t, audit)
		assert.Equal(t, StatusRolledBack, got.Status)
		assert.Equal(t, TriggerAutomatic, audit.Trigger)
		assert.Contains(t, got.RollbackReason, "75%")
		require.NotNil(t, got.RolledBackAt)
	})

	t.Run("too few samples rolls back", func(t *testing.T) {
		prop := deployedProposal(t, p)
		got, _, err := p.EvaluateMonitoring(prop, Observation{SampleSize: 3, SuccessCount: 3}, afterWindow)
		require.NoError(t, err)
		assert.Equal(t, StatusRolledBack, got.Status)
		assert.Contains(t, got.RollbackReason, "insufficient")
	})

	t.Run("resolved proposals are left alone", func(t *testing.T) {
		got, audit, err := p.EvaluateMonitoring(Proposal{Status: StatusDeployedSuccess}, Observation{}, afterWindow)
		require.NoError(t, err)
		assert.Nil(t, audit)
		assert.Equal(t, StatusDeployedSuccess, got.Status)
	})
}

func TestRollback(t *testing.T) {
	p := NewPipeline(DefaultGates())

	t.Run("reason required", func(t *testing.T) {
		_, _, err := p.Rollback(deployedProposal(t, p), "alice", "  ", openTime.Add(time.Hour))
		assert.ErrorIs(t, err, ErrRollbackReasonRequired)
	})

	t.Run("during monitoring", func(t *testing.T) {
		got, audit, err := p.Rollback(deployedProposal(t, p), "alice", "wrong suffixes", openTime.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, StatusRolledBack, got.Status)
		assert.Equal(t, "wrong suffixes", got.RollbackReason)
		assert.Equal(t, TriggerManual, audit.Trigger)
		assert.Equal(t, StatusMonitoring, audit.From)
	})

	t.Run("after success within window", func(t *testing.T) {
		prop := deployedProposal(t, p)
		prop, _, err := p.EvaluateMonitoring(prop, Observation{SampleSize: 20, SuccessCount: 20}, openTime.Add(8*24*time.Hour))
		require.NoError(t, err)
		require.Equal(t, StatusDeployedSuccess, prop.Status)

		got, _, err := p.Rollback(prop, "alice", "customer complaint", openTime.Add(29*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, StatusRolledBack, got.Status)
	})

	t.Run("window expired", func(t *testing.T) {
		_, _, err := p.Rollback(deployedProposal(t, p), "alice", "late", openTime.Add(31*24*time.Hour))
		var expired *RollbackWindowExpiredError
		require.True(t, errors.As(err, &expired))
		assert.Equal(t, openTime.Add(30*24*time.Hour), expired.Deadline)
	})

	t.Run("not deployed", func(t *testing.T) {
		_, _, err := p.Rollback(Proposal{Status: StatusValidated}, "alice", "nope", openTime)
		var transitionErr *InvalidTransitionError
		assert.True(t, errors.As(err, &transitionErr))
	})

	t.Run("rolled back twice", func(t *testing.T) {
		got, _, err := p.Rollback(deployedProposal(t, p), "alice", "first", openTime.Add(time.Hour))
		require.NoError(t, err)
		_, _, err = p.Rollback(got, "alice", "second", openTime.Add(2*time.Hour))
		assert.Error(t, err)
	})
}
