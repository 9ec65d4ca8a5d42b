// Package constraints models the server-issued limits for Julia set parameters
// and validates raw form input against them.
//
// The decimal bounds mirror a SQL DECIMAL(length, precision) column: values are
// accepted only strictly inside (-10^D, 10^D), where D = length - precision + 1.
package constraints

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"juliaform/params"
)

// JSON keys of the constraints payload.
const (
	KeySQLIntMin       = "sqlIntMin"
	KeySQLIntMax       = "sqlIntMax"
	KeySQLDecLength    = "sqlDecLength"
	KeySQLDecPrecision = "sqlDecPrecision"
	KeyIterationsLimit = "iterationsLimit"
	KeyModulusLimit    = "modulusLimit"
	KeyResolutionLimit = "resolutionLimit"
)

var requiredKeys = []string{
	KeySQLIntMin,
	KeySQLIntMax,
	KeySQLDecLength,
	KeySQLDecPrecision,
	KeyIterationsLimit,
	KeyModulusLimit,
	KeyResolutionLimit,
}

// LimitBinder receives the upper bound published for a field.
// The value is a string, the way a form "max" attribute holds it.
type LimitBinder interface {
	SetMax(field, max string)
}

// Set is an immutable constraint set parsed from the constraints endpoint.
type Set struct {
	sqlIntMin       float64
	sqlIntMax       float64
	sqlDecLength    int
	sqlDecPrecision int
	iterationsLimit float64
	modulusLimit    float64
	resolutionLimit float64

	maxDecIntDigits int
	sqlDecMax       float64
	sqlDecMin       float64
}

// FromJSON parses a constraints payload and derives the decimal bounds.
func FromJSON(payload []byte) (*Set, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &MalformedConstraintsError{Reason: "not a JSON object", Err: err}
	}
	if raw == nil {
		return nil, &MalformedConstraintsError{Reason: "payload is null"}
	}

	values := make(map[string]float64, len(requiredKeys))
	for _, key := range requiredKeys {
		msg, ok := raw[key]
		if !ok {
			return nil, &MalformedConstraintsError{Field: key, Reason: "missing"}
		}
		if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			return nil, &MalformedConstraintsError{Field: key, Reason: "null"}
		}
		var f float64
		if err := json.Unmarshal(msg, &f); err != nil {
			return nil, &MalformedConstraintsError{Field: key, Reason: "not a number", Err: err}
		}
		values[key] = f
	}

	length, ok := asInt(values[KeySQLDecLength])
	if !ok {
		return nil, &MalformedConstraintsError{Field: KeySQLDecLength, Reason: "not an integer"}
	}
	precision, ok := asInt(values[KeySQLDecPrecision])
	if !ok {
		return nil, &MalformedConstraintsError{Field: KeySQLDecPrecision, Reason: "not an integer"}
	}

	s := &Set{
		sqlIntMin:       values[KeySQLIntMin],
		sqlIntMax:       values[KeySQLIntMax],
		sqlDecLength:    length,
		sqlDecPrecision: precision,
		iterationsLimit: values[KeyIterationsLimit],
		modulusLimit:    values[KeyModulusLimit],
		resolutionLimit: values[KeyResolutionLimit],
	}
	s.maxDecIntDigits = length - precision + 1
	s.sqlDecMax = math.Pow10(s.maxDecIntDigits)
	s.sqlDecMin = -s.sqlDecMax
	return s, nil
}

func asInt(f float64) (int, bool) {
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// Bind publishes the field maxima derived from the limits:
// iterations, maxModulus, pictureWidth and pictureHeight.
func (s *Set) Bind(b LimitBinder) {
	for field, limit := range s.FieldLimits() {
		b.SetMax(field, formatNumber(limit))
	}
}

// FieldLimits returns the upper bound associated with each integer field.
func (s *Set) FieldLimits() map[string]float64 {
	return map[string]float64{
		params.Iterations:    s.iterationsLimit,
		params.MaxModulus:    s.modulusLimit,
		params.PictureWidth:  s.resolutionLimit,
		params.PictureHeight: s.resolutionLimit,
	}
}

// SQLIntMin returns the smallest integer the backing store accepts.
func (s *Set) SQLIntMin() float64 { return s.sqlIntMin }

// SQLIntMax returns the largest integer the backing store accepts.
func (s *Set) SQLIntMax() float64 { return s.sqlIntMax }

// SQLDecLength returns the total digit count of the decimal columns.
func (s *Set) SQLDecLength() int { return s.sqlDecLength }

// SQLDecPrecision returns the fractional digit count of the decimal columns.
func (s *Set) SQLDecPrecision() int { return s.sqlDecPrecision }

// IterationsLimit is the maximum bound to the iterations field.
func (s *Set) IterationsLimit() float64 { return s.iterationsLimit }

// ModulusLimit is the maximum bound to the maxModulus field.
func (s *Set) ModulusLimit() float64 { return s.modulusLimit }

// ResolutionLimit is the maximum bound to pictureWidth and pictureHeight.
func (s *Set) ResolutionLimit() float64 { return s.resolutionLimit }

// MaxDecIntDigits is SQLDecLength - SQLDecPrecision + 1.
func (s *Set) MaxDecIntDigits() int { return s.maxDecIntDigits }

// SQLDecMax is 10^MaxDecIntDigits, the exclusive upper decimal bound.
func (s *Set) SQLDecMax() float64 { return s.sqlDecMax }

// SQLDecMin is -SQLDecMax, the exclusive lower decimal bound.
func (s *Set) SQLDecMin() float64 { return s.sqlDecMin }

// Summary is a JSON friendly view of the set, used by the form session.
type Summary struct {
	SQLIntMin       float64 `json:"sqlIntMin"`
	SQLIntMax       float64 `json:"sqlIntMax"`
	SQLDecLength    int     `json:"sqlDecLength"`
	SQLDecPrecision int     `json:"sqlDecPrecision"`
	IterationsLimit float64 `json:"iterationsLimit"`
	ModulusLimit    float64 `json:"modulusLimit"`
	ResolutionLimit float64 `json:"resolutionLimit"`
	MaxDecIntDigits int     `json:"maxDecIntDigits"`
	SQLDecMax       float64 `json:"sqlDecMax"`
	SQLDecMin       float64 `json:"sqlDecMin"`
}

// Summary returns a copy of every raw and derived value.
func (s *Set) Summary() Summary {
	return Summary{
		SQLIntMin:       s.sqlIntMin,
		SQLIntMax:       s.sqlIntMax,
		SQLDecLength:    s.sqlDecLength,
		SQLDecPrecision: s.sqlDecPrecision,
		IterationsLimit: s.iterationsLimit,
		ModulusLimit:    s.modulusLimit,
		ResolutionLimit: s.resolutionLimit,
		MaxDecIntDigits: s.maxDecIntDigits,
		SQLDecMax:       s.sqlDecMax,
		SQLDecMin:       s.sqlDecMin,
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
