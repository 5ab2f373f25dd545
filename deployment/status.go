// Package deployment implements the gated lifecycle of extraction fix proposals
package deployment

import (
	"database/sql/driver"
	"fmt"
	"slices"
)

// Status is the lifecycle state of a fix proposal
type Status string

const (
	StatusProposed        Status = "proposed"
	StatusTesting         Status = "testing"
	StatusValidated       Status = "validated"
	StatusDeployed        Status = "deployed"
	StatusMonitoring      Status = "monitoring"
	StatusDeployedSuccess Status = "deployed_success"
	StatusRolledBack      Status = "rolled_back"
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s Status) Valid() bool {
	switch s {
	case StatusProposed, StatusTesting, StatusValidated, StatusDeployed,
		StatusMonitoring, StatusDeployedSuccess, StatusRolledBack:
		return true
	default:
		return false
	}
}

// Open reports whether the proposal still awaits an outcome
func (s Status) Open() bool {
	return s != StatusDeployedSuccess && s != StatusRolledBack
}

// Scan implements the sql.Scanner interface for Status
func (s *Status) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = Status(v)
	case []byte:
		*s = Status(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Status", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for Status
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid Status: %s", s)
	}
	return string(s), nil
}

// transitions lists every allowed move. deployed_success -> rolled_back is a
// manual rollback inside the rollback window.
var transitions = map[Status][]Status{
	StatusProposed:        {StatusTesting},
	StatusTesting:         {StatusValidated},
	StatusValidated:       {StatusDeployed},
	StatusDeployed:        {StatusMonitoring},
	StatusMonitoring:      {StatusDeployedSuccess, StatusRolledBack},
	StatusDeployedSuccess: {StatusRolledBack},
}

// CanTransition reports whether from -> to is in the transition table
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Trigger records what caused a transition
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerAutomatic Trigger = "automatic"
)

// SystemActor is the actor recorded for automatic transitions
const SystemActor = "system"
