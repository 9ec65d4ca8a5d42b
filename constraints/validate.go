package constraints

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the declared validation kind of a form field.
type Kind string

const (
	// KindDecimal routes to ValidateDecimal.
	KindDecimal Kind = "dec"
	// KindInteger routes to ValidatePositiveInt with the field's bound maximum.
	KindInteger Kind = "int"
)

// Result is the outcome of validating one field. Validation never fails with a
// Go error; a rejected value is reported here.
type Result struct {
	Valid   bool
	Message string
	Err     *FieldValidationError
}

func pass() Result { return Result{Valid: true} }

func fail(field, msg string) Result {
	return Result{
		Valid:   false,
		Message: msg,
		Err:     &FieldValidationError{Field: field, Message: msg},
	}
}

// DecimalMessage is the feedback shown for an out of range or malformed decimal.
func (s *Set) DecimalMessage() string {
	return fmt.Sprintf("Please enter a number between -10^%d and 10^%d (exclusive).",
		s.maxDecIntDigits, s.maxDecIntDigits)
}

// PositiveIntMessage is the feedback shown for a rejected integer field.
func PositiveIntMessage(upperLimit string) string {
	return fmt.Sprintf("Please enter a positive integer whose value is at most %s.", upperLimit)
}

// ValidDecimal reports whether raw lies strictly inside (SQLDecMin, SQLDecMax).
func (s *Set) ValidDecimal(raw string) bool {
	f, ok := parseNumber(raw)
	return ok && f > s.sqlDecMin && f < s.sqlDecMax
}

// ValidateDecimal checks a decimal field value.
func (s *Set) ValidateDecimal(raw string) Result {
	return s.validateDecimal("", raw)
}

func (s *Set) validateDecimal(field, raw string) Result {
	if !s.ValidDecimal(raw) {
		return fail(field, s.DecimalMessage())
	}
	return pass()
}

// ValidPositiveInt reports whether raw is an integer in [1, upperLimit].
//
// The integer prefix parse and the full numeric parse must agree, which
// rejects "3.5" and "1e3" but accepts "3.0".
func ValidPositiveInt(raw string, upperLimit float64) bool {
	f, ok := parseNumber(raw)
	if !ok {
		return false
	}
	i, ok := parseIntPrefix(raw)
	if !ok {
		return false
	}
	return i > 0 && float64(i) <= upperLimit && f == float64(i)
}

// ValidatePositiveInt checks an integer field value against upperLimit.
func ValidatePositiveInt(raw string, upperLimit float64) Result {
	return validatePositiveInt("", raw, upperLimit, formatNumber(upperLimit))
}

func validatePositiveInt(field, raw string, upperLimit float64, shown string) Result {
	if !ValidPositiveInt(raw, upperLimit) {
		return fail(field, PositiveIntMessage(shown))
	}
	return pass()
}

// Validate dispatches on kind. max is the field's published maximum as a
// string; an integer field whose maximum is missing or not numeric rejects
// every value. Unknown kinds always pass.
func (s *Set) Validate(field string, kind Kind, raw, max string) Result {
	switch kind {
	case KindDecimal:
		return s.validateDecimal(field, raw)
	case KindInteger:
		limit, ok := parseNumber(max)
		if !ok {
			limit = math.NaN()
		}
		return validatePositiveInt(field, raw, limit, max)
	}
	return pass()
}

// parseNumber is a strict numeric parse: surrounding whitespace is ignored,
// the rest must be a finite decimal literal.
func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if !isDecimalLiteral(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// isDecimalLiteral accepts [+-]digits[.digits][e[+-]digits] with at least one
// mantissa digit. It keeps strconv extensions (hex, inf, underscores) out.
func isDecimalLiteral(s string) bool {
	i := 0
	if s[i] == '+' || s[i] == '-' {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(s)
}

// parseIntPrefix reads the leading integer of raw ("3.9" -> 3, "12abc" -> 12).
func parseIntPrefix(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == start {
		return 0, false
	}
	i, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
