package pricing

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/amirphl/quote-core/rules"
	"github.com/shopspring/decimal"
)

// Field names understood by ParseFields. A ".N" suffix addresses line N; no suffix is line 0.
const (
	FieldLaborHours          = "labor_hours"
	FieldStockKey            = "stock_key"
	FieldQuantity            = "quantity"
	FieldMaterialKind        = "material_kind"
	FieldSurfaceTreatment    = "surface_treatment"
	FieldComplexityTechnique = "complexity_technique"
	FieldAudience            = "customer_audience"
)

var lineFields = []string{FieldLaborHours, FieldStockKey, FieldQuantity, FieldMaterialKind, FieldSurfaceTreatment, FieldComplexityTechnique}

// Bounds on any number accepted from a document or a request
const (
	MaxIntegerDigits = 12
	MaxDecimalPlaces = 6
)

var (
	ErrNotANumber       = errors.New("not a number")
	ErrAmbiguousAmount  = errors.New("ambiguous separator, a single group of three digits may be thousands")
	ErrAmountOutOfRange = errors.New("number out of range")
)

// plain digits with optional sign and separators, no exponent
var amountPattern = regexp.MustCompile(`^[+-]?[0-9.,]*[0-9][0-9.,]*$`)

// ParseAmount parses extracted numbers such as "1234.5", "1234,5", "1.234,50" or "1,234.50".
// When both separators occur the last one is the decimal separator. A lone separator
// followed by exactly three digits ("1,234", "12.500") is rejected; "0,125" and "1234,567" are not.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if !amountPattern.MatchString(s) {
		return decimal.Decimal{}, ErrNotANumber
	}
	lastComma := strings.LastIndexByte(s, ',')
	lastDot := strings.LastIndexByte(s, '.')
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0 || lastDot >= 0:
		if ambiguousGroup(s) {
			return decimal.Decimal{}, ErrAmbiguousAmount
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrNotANumber
	}
	if err := CheckBounds(d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

// ambiguousGroup reports whether s has one separator, one to three leading digits
// other than "0", and exactly three digits after it.
func ambiguousGroup(s string) bool {
	if strings.Count(s, ",")+strings.Count(s, ".") != 1 {
		return false
	}
	sep := strings.IndexAny(s, ",.")
	intPart := strings.TrimLeft(s[:sep], "+-")
	return len(s)-sep-1 == 3 && len(intPart) >= 1 && len(intPart) <= 3 && intPart != "0"
}

// CheckBounds rejects numbers with more than MaxIntegerDigits integer digits or
// more than MaxDecimalPlaces decimal places. It never expands the coefficient.
func CheckBounds(d decimal.Decimal) error {
	exp := int64(d.Exponent())
	if exp < -MaxDecimalPlaces {
		return ErrAmountOutOfRange
	}
	if int64(d.NumDigits())+exp > MaxIntegerDigits {
		return ErrAmountOutOfRange
	}
	return nil
}

// ParseFields turns a field->value mapping into an Input. Fields other than the
// line fields and customer_audience become rule inputs: numbers when they parse,
// booleans for true/false, strings otherwise. Date and unverified fields are left to the caller.
func ParseFields(fields map[string]string) (Input, error) {
	lines := make(map[int]*Line)
	var in Input
	in.RuleInputs = make(map[string]rules.Value)
	seen := make(map[string]string)

	for name, raw := range fields {
		base, index, isLine, err := splitLineField(name)
		if err != nil {
			return Input{}, err
		}
		if !isLine {
			if name == FieldAudience {
				in.Audience = Audience(strings.TrimSpace(raw))
				continue
			}
			v, err := inferValue(raw)
			if err != nil {
				return Input{}, &InvalidInputError{Field: name, Reason: fmt.Sprintf("%s: %q", err, raw)}
			}
			in.RuleInputs[name] = v
			continue
		}

		key := fmt.Sprintf("%s.%d", base, index)
		if other, dup := seen[key]; dup {
			first, second := other, name
			if second < first {
				first, second = second, first
			}
			return Input{}, &InvalidInputError{Field: second, Reason: fmt.Sprintf("line %d already set by %s", index, first)}
		}
		seen[key] = name

		line := lines[index]
		if line == nil {
			line = &Line{}
			lines[index] = line
		}
		value := strings.TrimSpace(raw)
		switch base {
		case FieldLaborHours, FieldQuantity:
			d, err := ParseAmount(value)
			if err != nil {
				return Input{}, &InvalidInputError{Field: name, Reason: fmt.Sprintf("%s: %q", err, raw)}
			}
			if base == FieldLaborHours {
				line.LaborHours = d
			} else {
				line.Quantity = d
			}
		case FieldStockKey:
			line.StockKey = value
		case FieldMaterialKind:
			line.MaterialKind = value
		case FieldSurfaceTreatment:
			line.SurfaceTreatment = value
		case FieldComplexityTechnique:
			line.ComplexityTechnique = value
		}
	}

	indexes := make([]int, 0, len(lines))
	for i := range lines {
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)
	for pos, i := range indexes {
		if pos != i {
			return Input{}, &InvalidInputError{Field: fmt.Sprintf("lines[%d]", pos), Reason: "line is missing"}
		}
		in.Lines = append(in.Lines, *lines[i])
	}
	return in, nil
}

func splitLineField(name string) (base string, index int, isLine bool, err error) {
	base = name
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		n, convErr := strconv.Atoi(name[dot+1:])
		if convErr == nil {
			if n < 0 {
				return "", 0, false, &InvalidInputError{Field: name, Reason: "negative line index"}
			}
			base, index = name[:dot], n
		}
	}
	return base, index, slices.Contains(lineFields, base), nil
}

// inferValue keeps non-numeric text as a string; numeric text must parse within bounds
func inferValue(raw string) (rules.Value, error) {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "true":
		return rules.Bool(true), nil
	case "false":
		return rules.Bool(false), nil
	}
	d, err := ParseAmount(s)
	switch {
	case err == nil:
		return rules.Number(d), nil
	case errors.Is(err, ErrNotANumber):
		return rules.String(s), nil
	default:
		return rules.Value{}, err
	}
}
