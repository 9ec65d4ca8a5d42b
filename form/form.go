// Package form holds the Julia set parameter form: raw field values, the
// metadata each field declares (validation kind, maximum), and the error state
// that validation results are rendered into.
package form

import (
	"sync"

	"juliaform/constraints"
	"juliaform/params"
)

// Field is one input of the form.
type Field struct {
	Name     string           `json:"field"`
	Kind     constraints.Kind `json:"kind"`
	Value    string           `json:"value"`
	Max      string           `json:"max,omitempty"`
	Invalid  bool             `json:"invalid"`
	Feedback string           `json:"message,omitempty"`
}

// Form is a concurrency-safe set of fields plus the image display region.
type Form struct {
	mu     sync.RWMutex
	order  []string
	fields map[string]*Field
	image  string
}

// New creates a form with the given fields, in order.
func New(fields ...Field) *Form {
	f := &Form{fields: make(map[string]*Field, len(fields))}
	for _, fd := range fields {
		fd := fd
		if _, dup := f.fields[fd.Name]; !dup {
			f.order = append(f.order, fd.Name)
		}
		f.fields[fd.Name] = &fd
	}
	return f
}

// NewJuliaForm creates the standard form: six decimal fields for the complex
// constant and the window, four integer fields for resolution, iterations and
// modulus.
func NewJuliaForm() *Form {
	return New(
		Field{Name: params.RealComponent, Kind: constraints.KindDecimal},
		Field{Name: params.ImaginaryComponent, Kind: constraints.KindDecimal},
		Field{Name: params.MinXValue, Kind: constraints.KindDecimal},
		Field{Name: params.MaxXValue, Kind: constraints.KindDecimal},
		Field{Name: params.MinYValue, Kind: constraints.KindDecimal},
		Field{Name: params.MaxYValue, Kind: constraints.KindDecimal},
		Field{Name: params.PictureWidth, Kind: constraints.KindInteger},
		Field{Name: params.PictureHeight, Kind: constraints.KindInteger},
		Field{Name: params.Iterations, Kind: constraints.KindInteger},
		Field{Name: params.MaxModulus, Kind: constraints.KindInteger},
	)
}

// Value returns the raw text of a field, "" if the field does not exist.
func (f *Form) Value(name string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if fd, ok := f.fields[name]; ok {
		return fd.Value
	}
	return ""
}

// SetValue replaces the raw text of a field. It reports false for unknown fields.
func (f *Form) SetValue(name, value string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	fd, ok := f.fields[name]
	if !ok {
		return false
	}
	fd.Value = value
	return true
}

// Fill copies every value of a snapshot into the matching fields.
func (f *Form) Fill(s params.Snapshot) {
	for _, name := range params.FieldNames {
		f.SetValue(name, s.Get(name))
	}
}

// SetMax implements constraints.LimitBinder.
func (f *Form) SetMax(name, max string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fd, ok := f.fields[name]; ok {
		fd.Max = max
	}
}

// Field returns a copy of the named field.
func (f *Form) Field(name string) (Field, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fd, ok := f.fields[name]
	if !ok {
		return Field{}, false
	}
	return *fd, true
}

// Fields returns copies of all fields in form order.
func (f *Form) Fields() []Field {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Field, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, *f.fields[name])
	}
	return out
}

// Names returns the field names in form order.
func (f *Form) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.order...)
}

// Apply renders a validation result into the field's error state: an invalid
// result marks the field and sets its feedback, a valid one clears both.
func (f *Form) Apply(name string, res constraints.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fd, ok := f.fields[name]
	if !ok {
		return
	}
	fd.Invalid = !res.Valid
	fd.Feedback = res.Message
	if res.Valid {
		fd.Feedback = ""
	}
}

// ShowImage replaces the content of the image display region.
func (f *Form) ShowImage(markup string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.image = markup
}

// Image returns the content of the image display region.
func (f *Form) Image() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.image
}
