// Package params captures Julia set form parameters as comparable snapshots.
package params

import "net/url"

// Field names used by the form and as query parameters on the generate endpoint.
const (
	RealComponent      = "realComponent"
	ImaginaryComponent = "imaginaryComponent"
	MinXValue          = "minXValue"
	MaxXValue          = "maxXValue"
	MinYValue          = "minYValue"
	MaxYValue          = "maxYValue"
	PictureWidth       = "pictureWidth"
	PictureHeight      = "pictureHeight"
	Iterations         = "iterations"
	MaxModulus         = "maxModulus"
)

// FieldNames lists every tracked field in form order.
var FieldNames = []string{
	RealComponent,
	ImaginaryComponent,
	MinXValue,
	MaxXValue,
	MinYValue,
	MaxYValue,
	PictureWidth,
	PictureHeight,
	Iterations,
	MaxModulus,
}

// FieldReader gives read access to the current raw value of a form field.
// Missing fields must read as "".
type FieldReader interface {
	Value(name string) string
}

// Snapshot is the set of form values at one point in time. Values are kept
// exactly as typed, including malformed text, so that any edit is detectable.
type Snapshot struct {
	RealComponent      string `json:"realComponent" yaml:"realComponent"`
	ImaginaryComponent string `json:"imaginaryComponent" yaml:"imaginaryComponent"`
	MinXValue          string `json:"minXValue" yaml:"minXValue"`
	MaxXValue          string `json:"maxXValue" yaml:"maxXValue"`
	MinYValue          string `json:"minYValue" yaml:"minYValue"`
	MaxYValue          string `json:"maxYValue" yaml:"maxYValue"`
	PictureWidth       string `json:"pictureWidth" yaml:"pictureWidth"`
	PictureHeight      string `json:"pictureHeight" yaml:"pictureHeight"`
	Iterations         string `json:"iterations" yaml:"iterations"`
	MaxModulus         string `json:"maxModulus" yaml:"maxModulus"`
}

// Capture reads all tracked fields from r.
func Capture(r FieldReader) Snapshot {
	return Snapshot{
		RealComponent:      r.Value(RealComponent),
		ImaginaryComponent: r.Value(ImaginaryComponent),
		MinXValue:          r.Value(MinXValue),
		MaxXValue:          r.Value(MaxXValue),
		MinYValue:          r.Value(MinYValue),
		MaxYValue:          r.Value(MaxYValue),
		PictureWidth:       r.Value(PictureWidth),
		PictureHeight:      r.Value(PictureHeight),
		Iterations:         r.Value(Iterations),
		MaxModulus:         r.Value(MaxModulus),
	}
}

// Equal reports whether a and b hold the same text in every field.
// No numeric coercion is applied: "1" and "1.0" differ.
func Equal(a, b Snapshot) bool {
	return a == b
}

// Equal is the method form of the package level Equal.
func (s Snapshot) Equal(other Snapshot) bool {
	return Equal(s, other)
}

// Get returns the value of the named field, or "" for an unknown name.
func (s Snapshot) Get(name string) string {
	switch name {
	case RealComponent:
		return s.RealComponent
	case ImaginaryComponent:
		return s.ImaginaryComponent
	case MinXValue:
		return s.MinXValue
	case MaxXValue:
		return s.MaxXValue
	case MinYValue:
		return s.MinYValue
	case MaxYValue:
		return s.MaxYValue
	case PictureWidth:
		return s.PictureWidth
	case PictureHeight:
		return s.PictureHeight
	case Iterations:
		return s.Iterations
	case MaxModulus:
		return s.MaxModulus
	}
	return ""
}

// Value implements FieldReader so a snapshot can seed a form.
func (s Snapshot) Value(name string) string {
	return s.Get(name)
}

// Values encodes the snapshot as query parameters, one per field, sent as strings.
func (s Snapshot) Values() url.Values {
	v := make(url.Values, len(FieldNames))
	for _, name := range FieldNames {
		v.Set(name, s.Get(name))
	}
	return v
}

// IsZero reports whether no field has been captured yet.
func (s Snapshot) IsZero() bool {
	return s == Snapshot{}
}
