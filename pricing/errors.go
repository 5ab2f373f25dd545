package pricing

import (
	"errors"
	"fmt"

	"github.com/amirphl/quote-core/rules"
)

// InvalidInputError reports a missing, out-of-range or unknown calculation input
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

// ConfigurationError reports a snapshot value that cannot be priced with
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid pricing configuration %s: %s", e.Field, e.Reason)
}

// SurchargeRuleError wraps a failure while computing one surcharge
type SurchargeRuleError struct {
	Surcharge string
	Err       error
}

func (e *SurchargeRuleError) Error() string {
	return fmt.Sprintf("surcharge %q: %v", e.Surcharge, e.Err)
}

func (e *SurchargeRuleError) Unwrap() error {
	return e.Err
}

// ReconciliationError reports a breakdown whose totals do not add up
type ReconciliationError struct {
	Reason string
}

func (e *ReconciliationError) Error() string {
	return "price breakdown does not reconcile: " + e.Reason
}

// IsInvalidInput reports whether err was caused by document input
func IsInvalidInput(err error) bool {
	var inputErr *InvalidInputError
	return errors.As(err, &inputErr)
}

// IsConfigurationError reports whether err was caused by tenant or admin configuration
func IsConfigurationError(err error) bool {
	var (
		cfgErr       *ConfigurationError
		surchargeErr *SurchargeRuleError
	)
	return errors.As(err, &cfgErr) || errors.As(err, &surchargeErr) || rules.IsConfigurationError(err)
}
