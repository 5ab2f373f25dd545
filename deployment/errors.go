package deployment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrRollbackReasonRequired is returned when a manual rollback has no reason
var ErrRollbackReasonRequired = errors.New("rollback reason is required")

// InvalidTransitionError is returned for moves outside the transition table
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s is not allowed", e.From, e.To)
}

// ValidationGateError lists every unmet validation condition
type ValidationGateError struct {
	Failures []string
}

func (e *ValidationGateError) Error() string {
	return "validation gate failed: " + strings.Join(e.Failures, "; ")
}

// DeploymentWindowError is returned when a deploy is attempted outside the window
type DeploymentWindowError struct {
	At       time.Time
	NextOpen time.Time
}

func (e *DeploymentWindowError) Error() string {
	if e.NextOpen.IsZero() {
		return fmt.Sprintf("deployment not allowed at %s: outside deployment window", e.At.Format(time.RFC3339))
	}
	return fmt.Sprintf("deployment not allowed at %s: outside deployment window, next opens %s",
		e.At.Format(time.RFC3339), e.NextOpen.Format(time.RFC3339))
}

// ConcurrentDeploymentError is returned when a proposal was deployed or changed by another request
type ConcurrentDeploymentError struct {
	ProposalID uint
	Reason     string
}

func (e *ConcurrentDeploymentError) Error() string {
	return fmt.Sprintf("fix proposal %d: concurrent deployment rejected: %s", e.ProposalID, e.Reason)
}

// RollbackWindowExpiredError is returned when a rollback is attempted after the rollback window
type RollbackWindowExpiredError struct {
	AppliedAt time.Time
	Deadline  time.Time
}

func (e *RollbackWindowExpiredError) Error() string {
	return fmt.Sprintf("rollback window closed at %s (applied %s); ship a forward fix instead",
		e.Deadline.Format(time.RFC3339), e.AppliedAt.Format(time.RFC3339))
}
