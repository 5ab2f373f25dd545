package analysis

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Cause is an inferred root-cause label for low-confidence extractions
type Cause string

const (
	CauseMissingLegalSuffix Cause = "missing_legal_suffix"
	CauseUnparseableDate    Cause = "unparseable_date"
	CauseLocaleNumberFormat Cause = "locale_number_format"
	CauseUnitSuffix         Cause = "unit_suffix"
	CauseEmptyValue         Cause = "empty_value"
	CauseMalformedEmail     Cause = "malformed_email"
	CauseMalformedIBAN      Cause = "malformed_iban"
	CauseLowOCRQuality      Cause = "low_ocr_quality"
)

// FixCategory is the kind of remediation suggested for a cause
type FixCategory string

const (
	FixEntitySuffixNormalization FixCategory = "entity_suffix_normalization"
	FixDateFormatRule            FixCategory = "date_format_rule"
	FixNumberLocaleNormalization FixCategory = "number_locale_normalization"
	FixUnitStripping             FixCategory = "unit_stripping"
	FixFieldPresenceCheck        FixCategory = "field_presence_check"
	FixEmailPatternRule          FixCategory = "email_pattern_rule"
	FixIBANValidationRule        FixCategory = "iban_validation_rule"
	FixOCRPreprocessing          FixCategory = "ocr_preprocessing"
)

// FixCategory returns the suggested remediation for the cause
func (c Cause) FixCategory() FixCategory {
	switch c {
	case CauseMissingLegalSuffix:
		return FixEntitySuffixNormalization
	case CauseUnparseableDate:
		return FixDateFormatRule
	case CauseLocaleNumberFormat:
		return FixNumberLocaleNormalization
	case CauseUnitSuffix:
		return FixUnitStripping
	case CauseEmptyValue:
		return FixFieldPresenceCheck
	case CauseMalformedEmail:
		return FixEmailPatternRule
	case CauseMalformedIBAN:
		return FixIBANValidationRule
	default:
		return FixOCRPreprocessing
	}
}

var legalSuffixes = []string{"gmbh", "ag", "ug", "kg", "e.k.", "ohg", "gbr", "ltd", "inc", "gmbh & co. kg", "mbh", "se", "e.v."}

var (
	emailPattern   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[a-zA-Z]{2,}$`)
	unitPattern    = regexp.MustCompile(`^[€$]?\s*[0-9][0-9.,\s]*\s*(€|eur|m²|m2|m³|m3|qm|lfm|mm|cm|m|kg|g|h|std|stk|pcs|%)$`)
	localePattern  = regexp.MustCompile(`^[0-9]{1,3}(\.[0-9]{3})*,[0-9]+$|^[0-9]+,[0-9]+$`)
	ibanCharsetRgx = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)
)

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2.1.2006",
	"02.01.06",
	"02/01/2006",
	"2006-01-02T15:04:05Z07:00",
	"2. January 2006",
}

func fieldHas(field string, parts ...string) bool {
	f := strings.ToLower(field)
	for _, p := range parts {
		if strings.Contains(f, p) {
			return true
		}
	}
	return false
}

// InferCause guesses why a field extraction was not confident, from its name and value shape
func InferCause(field, value string) Cause {
	v := strings.TrimSpace(value)
	if v == "" {
		return CauseEmptyValue
	}

	switch {
	case fieldHas(field, "email", "e_mail"):
		if !emailPattern.MatchString(v) {
			return CauseMalformedEmail
		}
	case fieldHas(field, "iban"):
		if !validIBAN(v) {
			return CauseMalformedIBAN
		}
	case fieldHas(field, "company", "customer_name", "supplier", "vendor", "firma"):
		if !hasLegalSuffix(v) {
			return CauseMissingLegalSuffix
		}
	case fieldHas(field, "date", "datum"):
		if !parsesAsDate(v) {
			return CauseUnparseableDate
		}
	case fieldHas(field, "amount", "price", "quantity", "hours", "total", "cost", "rate", "qty", "menge"):
		lower := strings.ToLower(v)
		if unitPattern.MatchString(lower) {
			return CauseUnitSuffix
		}
		if localePattern.MatchString(v) {
			return CauseLocaleNumberFormat
		}
	}
	return CauseLowOCRQuality
}

func hasLegalSuffix(name string) bool {
	lower := strings.ToLower(strings.TrimRight(strings.TrimSpace(name), ","))
	for _, suffix := range legalSuffixes {
		if lower == suffix || strings.HasSuffix(lower, " "+suffix) {
			return true
		}
	}
	return false
}

func parsesAsDate(v string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// validIBAN checks the shape and the ISO 7064 mod-97 checksum
func validIBAN(raw string) bool {
	iban := strings.ToUpper(strings.ReplaceAll(raw, " ", ""))
	if !ibanCharsetRgx.MatchString(iban) {
		return false
	}
	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			digits.WriteString(strconv.Itoa(int(r-'A') + 10))
		} else {
			digits.WriteRune(r)
		}
	}
	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}
