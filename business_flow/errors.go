// Package businessflow contains the use cases of the pricing and extraction-improvement service
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Request-related errors
	ErrTenantRequired          = errors.New("tenant is required")
	ErrDocumentIDRequired      = errors.New("document id is required")
	ErrFieldsRequired          = errors.New("at least one field is required")
	ErrDuplicateField          = errors.New("field is listed more than once")
	ErrInputConflictsWithField = errors.New("declared input conflicts with an extracted field")
	ErrInvalidPolicy           = errors.New("invalid human review policy")

	// Pricing configuration errors
	ErrCompanyConfigNotFound = errors.New("company configuration not found")
	ErrCompanyConfigInvalid  = errors.New("company configuration is invalid")
	ErrPricingFactorNotFound = errors.New("pricing factor not found")
	ErrPricingFactorInvalid  = errors.New("pricing factor is invalid")
	ErrAdjustmentInvalid     = errors.New("dynamic adjustment is invalid")
	ErrMaterialInvalid       = errors.New("material is invalid")
	ErrSurchargeRuleInvalid  = errors.New("surcharge rule is invalid")
	ErrRuleInvalid           = errors.New("rule tree is invalid")

	// Calculation errors
	ErrCalculationNotFound = errors.New("calculation not found")

	// Analysis errors
	ErrAnalysisRunNotFound   = errors.New("analysis run not found")
	ErrAnalysisWindowInvalid = errors.New("analysis window is invalid")

	// Fix proposal errors
	ErrFixProposalNotFound     = errors.New("fix proposal not found")
	ErrFixProposalFieldMissing = errors.New("fix proposal field name is required")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsTenantRequired(err error) bool {
	return errors.Is(err, ErrTenantRequired)
}

func IsDuplicateField(err error) bool {
	return errors.Is(err, ErrDuplicateField)
}

func IsInputConflictsWithField(err error) bool {
	return errors.Is(err, ErrInputConflictsWithField)
}

func IsCompanyConfigNotFound(err error) bool {
	return errors.Is(err, ErrCompanyConfigNotFound)
}

func IsCompanyConfigInvalid(err error) bool {
	return errors.Is(err, ErrCompanyConfigInvalid)
}

func IsPricingFactorNotFound(err error) bool {
	return errors.Is(err, ErrPricingFactorNotFound)
}

func IsPricingFactorInvalid(err error) bool {
	return errors.Is(err, ErrPricingFactorInvalid)
}

func IsAdjustmentInvalid(err error) bool {
	return errors.Is(err, ErrAdjustmentInvalid)
}

func IsMaterialInvalid(err error) bool {
	return errors.Is(err, ErrMaterialInvalid)
}

func IsSurchargeRuleInvalid(err error) bool {
	return errors.Is(err, ErrSurchargeRuleInvalid)
}

func IsRuleInvalid(err error) bool {
	return errors.Is(err, ErrRuleInvalid)
}

func IsCalculationNotFound(err error) bool {
	return errors.Is(err, ErrCalculationNotFound)
}

func IsAnalysisRunNotFound(err error) bool {
	return errors.Is(err, ErrAnalysisRunNotFound)
}

func IsAnalysisWindowInvalid(err error) bool {
	return errors.Is(err, ErrAnalysisWindowInvalid)
}

func IsFixProposalNotFound(err error) bool {
	return errors.Is(err, ErrFixProposalNotFound)
}

// IsNotFound reports whether err names a missing entity
func IsNotFound(err error) bool {
	return IsCompanyConfigNotFound(err) || IsPricingFactorNotFound(err) || IsCalculationNotFound(err) ||
		IsAnalysisRunNotFound(err) || IsFixProposalNotFound(err)
}
