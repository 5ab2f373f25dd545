package deployment

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/quote-core/utils"
)

// Proposal is the part of a fix proposal the lifecycle reads and writes
type Proposal struct {
	ID                    uint
	Status                Status
	TestSampleSize        int
	TestSuccessRate       float64
	ConfidenceScore       float64
	PostDeploySampleSize  int
	PostDeploySuccessRate *float64
	AppliedAt             *time.Time
	MonitoringUntil       *time.Time
	RolledBackAt          *time.Time
	RollbackReason        string
	DeploymentNotes       string
}

// Audit is one immutable lifecycle event
type Audit struct {
	ProposalID uint
	From       Status
	To         Status
	Actor      string
	Trigger    Trigger
	Reason     string
	At         time.Time
}

// TestResults are the measured outcome of testing a fix on a sample
type TestResults struct {
	SampleSize      int
	SuccessRate     float64
	ConfidenceScore float64
}

// Observation summarises post-deployment extractions of the affected field
type Observation struct {
	SampleSize   int
	SuccessCount int
}

// SuccessRate returns SuccessCount / SampleSize, or 0 without samples
func (o Observation) SuccessRate() float64 {
	if o.SampleSize <= 0 {
		return 0
	}
	return float64(o.SuccessCount) / float64(o.SampleSize)
}

// Gates configures every guard of the lifecycle
type Gates struct {
	MinTestSuccessRate   float64
	MinConfidenceScore   float64
	MonitoringWindow     time.Duration
	RollbackWindow       time.Duration
	MinPostDeploySamples int
	Window               Window
}

// DefaultGates returns the standard thresholds with a Monday to Friday 09-17 UTC window
func DefaultGates() Gates {
	return Gates{
		MinTestSuccessRate:   utils.MinTestSuccessRate,
		MinConfidenceScore:   utils.MinConfidenceScore,
		MonitoringWindow:     utils.MonitoringWindow,
		RollbackWindow:       utils.RollbackWindow,
		MinPostDeploySamples: 10,
		Window: Window{
			Location:  time.UTC,
			Weekdays:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			StartHour: 9,
			EndHour:   17,
		},
	}
}

// Pipeline applies lifecycle transitions. It holds no mutable state.
type Pipeline struct {
	gates Gates
}

// NewPipeline creates a pipeline with the given gates
func NewPipeline(gates Gates) *Pipeline {
	return &Pipeline{gates: gates}
}

// Gates returns the configured gates
func (p *Pipeline) Gates() Gates {
	return p.gates
}

// percent formats a 0..1 rate as a whole or decimal percentage, 0.78 -> "78"
func percent(rate float64) string {
	return strconv.FormatFloat(math.Round(rate*10000)/100, 'f', -1, 64)
}

func transition(prop Proposal, to Status, actor string, trigger Trigger, reason string, now time.Time) (Proposal, Audit, error) {
	if !CanTransition(prop.Status, to) {
		return prop, Audit{}, &InvalidTransitionError{From: prop.Status, To: to}
	}
	audit := Audit{
		ProposalID: prop.ID,
		From:       prop.Status,
		To:         to,
		Actor:      actor,
		Trigger:    trigger,
		Reason:     reason,
		At:         now,
	}
	prop.Status = to
	return prop, audit, nil
}

// StartTesting moves a proposal into testing
func (p *Pipeline) StartTesting(prop Proposal, actor string, now time.Time) (Proposal, Audit, error) {
	return transition(prop, StatusTesting, actor, TriggerManual, "testing started", now)
}

// RecordTestResults stores measured test results on a proposal under test
func (p *Pipeline) RecordTestResults(prop Proposal, res TestResults) (Proposal, error) {
	if prop.Status != StatusTesting {
		return prop, &InvalidTransitionError{From: prop.Status, To: StatusTesting}
	}
	if res.SampleSize < 0 {
		return prop, &ValidationGateError{Failures: []string{"test sample size must not be negative"}}
	}
	if res.SuccessRate < 0 || res.SuccessRate > 1 || res.ConfidenceScore < 0 || res.ConfidenceScore > 1 {
		return prop, &ValidationGateError{Failures: []string{"test success rate and confidence score must be within 0..1"}}
	}
	prop.TestSampleSize = res.SampleSize
	prop.TestSuccessRate = res.SuccessRate
	prop.ConfidenceScore = res.ConfidenceScore
	return prop, nil
}

// CheckValidationGates returns every unmet testing condition. Each gate is checked independently.
func (p *Pipeline) CheckValidationGates(prop Proposal) []string {
	var failures []string
	if prop.TestSampleSize <= 0 {
		failures = append(failures, "test sample size must be positive")
	}
	if prop.TestSuccessRate < p.gates.MinTestSuccessRate {
		failures = append(failures, fmt.Sprintf("test success rate %s%% below required %s%%",
			percent(prop.TestSuccessRate), percent(p.gates.MinTestSuccessRate)))
	}
	if prop.ConfidenceScore < p.gates.MinConfidenceScore {
		failures = append(failures, fmt.Sprintf("confidence score %s%% below required %s%%",
			percent(prop.ConfidenceScore), percent(p.gates.MinConfidenceScore)))
	}
	return failures
}

// Validate moves a tested proposal to validated when every gate passes
func (p *Pipeline) Validate(prop Proposal, actor string, now time.Time) (Proposal, Audit, error) {
	if prop.Status != StatusTesting {
		return prop, Audit{}, &InvalidTransitionError{From: prop.Status, To: StatusValidated}
	}
	if failures := p.CheckValidationGates(prop); len(failures) > 0 {
		return prop, Audit{}, &ValidationGateError{Failures: failures}
	}
	reason := fmt.Sprintf("success rate %s%%, confidence %s%% on %d samples",
		percent(prop.TestSuccessRate), percent(prop.ConfidenceScore), prop.TestSampleSize)
	return transition(prop, StatusValidated, actor, TriggerManual, reason, now)
}

// CanApply reports whether a deploy may start right now
func (p *Pipeline) CanApply(prop Proposal, now time.Time) error {
	switch prop.Status {
	case StatusValidated:
	case StatusDeployed, StatusMonitoring, StatusDeployedSuccess:
		return &ConcurrentDeploymentError{ProposalID: prop.ID, Reason: "proposal is already deployed"}
	default:
		return &InvalidTransitionError{From: prop.Status, To: StatusDeployed}
	}
	if prop.AppliedAt != nil {
		return &ConcurrentDeploymentError{ProposalID: prop.ID, Reason: "proposal was applied before"}
	}
	if !p.gates.Window.Contains(now) {
		return &DeploymentWindowError{At: now, NextOpen: p.gates.Window.NextOpen(now)}
	}
	return nil
}

// Deploy applies a validated proposal and immediately starts its monitoring window.
// It returns the validated->deployed and deployed->monitoring audits.
func (p *Pipeline) Deploy(prop Proposal, actor string, notes string, now time.Time) (Proposal, []Audit, error) {
	if err := p.CanApply(prop, now); err != nil {
		return prop, nil, err
	}

	deployed, first, err := transition(prop, StatusDeployed, actor, TriggerManual, "fix applied", now)
	if err != nil {
		return prop, nil, err
	}
	until := now.Add(p.gates.MonitoringWindow)
	monitoring, second, err := transition(deployed, StatusMonitoring, SystemActor, TriggerAutomatic,
		"monitoring until "+until.UTC().Format(time.RFC3339), now)
	if err != nil {
		return prop, nil, err
	}

	applied := now
	monitoring.AppliedAt = &applied
	monitoring.MonitoringUntil = &until
	if strings.TrimSpace(notes) != "" {
		monitoring.DeploymentNotes = notes
	}
	return monitoring, []Audit{first, second}, nil
}

// EvaluateMonitoring resolves a proposal whose monitoring window has closed.
// It returns a nil audit, and the proposal unchanged, when there is nothing to do.
func (p *Pipeline) EvaluateMonitoring(prop Proposal, obs Observation, now time.Time) (Proposal, *Audit, error) {
	if prop.Status != StatusMonitoring {
		return prop, nil, nil
	}
	until := prop.MonitoringUntil
	if until == nil && prop.AppliedAt != nil {
		t := prop.AppliedAt.Add(p.gates.MonitoringWindow)
		until = &t
	}
	if until != nil && now.Before(*until) {
		return prop, nil, nil
	}

	rate := obs.SuccessRate()
	prop.PostDeploySampleSize = obs.SampleSize
	prop.PostDeploySuccessRate = &rate

	var (
		next   Proposal
		audit  Audit
		err    error
		reason string
	)
	switch {
	case obs.SampleSize < p.gates.MinPostDeploySamples:
		reason = fmt.Sprintf("insufficient post-deployment samples: %d below required %d", obs.SampleSize, p.gates.MinPostDeploySamples)
		next, audit, err = transition(prop, StatusRolledBack, SystemActor, TriggerAutomatic, reason, now)
	case rate < p.gates.MinTestSuccessRate:
		reason = fmt.Sprintf("post-deployment success rate %s%% below required %s%%", percent(rate), percent(p.gates.MinTestSuccessRate))
		next, audit, err = transition(prop, StatusRolledBack, SystemActor, TriggerAutomatic, reason, now)
	default:
		reason = fmt.Sprintf("post-deployment success rate %s%% on %d samples", percent(rate), obs.SampleSize)
		next, audit, err = transition(prop, StatusDeployedSuccess, SystemActor, TriggerAutomatic, reason, now)
	}
	if err != nil {
		return prop, nil, err
	}
	if next.Status == StatusRolledBack {
		rolledBack := now
		next.RolledBackAt = &rolledBack
		next.RollbackReason = reason
	}
	return next, &audit, nil
}

// Rollback reverts a deployed proposal on request. Allowed only within the rollback window after AppliedAt.
func (p *Pipeline) Rollback(prop Proposal, actor, reason string, now time.Time) (Proposal, Audit, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return prop, Audit{}, ErrRollbackReasonRequired
	}
	if !CanTransition(prop.Status, StatusRolledBack) {
		return prop, Audit{}, &InvalidTransitionError{From: prop.Status, To: StatusRolledBack}
	}
	if prop.AppliedAt == nil {
		return prop, Audit{}, &InvalidTransitionError{From: prop.Status, To: StatusRolledBack}
	}
	deadline := prop.AppliedAt.Add(p.gates.RollbackWindow)
	if now.After(deadline) {
		return prop, Audit{}, &RollbackWindowExpiredError{AppliedAt: *prop.AppliedAt, Deadline: deadline}
	}

	next, audit, err := transition(prop, StatusRolledBack, actor, TriggerManual, reason, now)
	if err != nil {
		return prop, Audit{}, err
	}
	rolledBack := now
	next.RolledBackAt = &rolledBack
	next.RollbackReason = reason
	return next, audit, nil
}
