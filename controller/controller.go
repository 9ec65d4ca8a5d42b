// Package controller decides when the Julia set image is re-requested.
//
// A Controller owns the constraint set, the last accepted parameter snapshot
// and the request state. A generate trigger issues a request only when the
// form differs from the accepted snapshot and every field validates; the
// accepted snapshot moves forward only when that request succeeds.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"juliaform/constraints"
	"juliaform/form"
	"juliaform/params"
)

// ErrConstraintsNotLoaded is returned by Generate before Load has succeeded.
var ErrConstraintsNotLoaded = errors.New("controller: constraints not loaded")

// notLoadedMessage is the field feedback shown while no constraints are known.
const notLoadedMessage = "Validation limits are not available yet."

// ImageService is the remote side: the constraints endpoint and the renderer.
type ImageService interface {
	GetConstraints(ctx context.Context) ([]byte, error)
	GenerateImage(ctx context.Context, s params.Snapshot) (string, error)
}

// View is the form the controller reads from and renders into.
type View interface {
	params.FieldReader
	constraints.LimitBinder
	Names() []string
	Field(name string) (form.Field, bool)
	Apply(name string, res constraints.Result)
	ShowImage(markup string)
}

// State of the request gate.
type State int

const (
	Idle State = iota
	Requesting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requesting:
		return "requesting"
	default:
		return "unknown"
	}
}

// Outcome says what a generate trigger did.
type Outcome int

const (
	// Unchanged: the form matches the accepted snapshot, nothing was sent.
	Unchanged Outcome = iota
	// Invalid: at least one field failed validation, nothing was sent.
	Invalid
	// Rendered: the request succeeded and the snapshot was accepted.
	Rendered
	// Failed: the request failed; the accepted snapshot is unchanged.
	Failed
	// Busy: another request was in flight, the trigger was dropped.
	Busy
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Invalid:
		return "invalid"
	case Rendered:
		return "rendered"
	case Failed:
		return "failed"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// GenerateResult describes one pass through the gate.
type GenerateResult struct {
	Outcome   Outcome
	RequestID string // set when a request was issued
	Snapshot  params.Snapshot
	Duration  time.Duration
}

// Controller is safe for concurrent use.
type Controller struct {
	svc    ImageService
	view   View
	logger *zap.Logger

	mu      sync.Mutex
	set     *constraints.Set
	current params.Snapshot
	state   State
}

// New creates a Controller in the Idle state with an empty accepted snapshot.
func New(svc ImageService, view View, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		svc:    svc,
		view:   view,
		logger: logger.Named("controller"),
	}
}

// Load fetches the constraints, binds the field maxima and then makes a first
// generate attempt so the image matches the form. A constraints failure is
// reported as Failed.
func (c *Controller) Load(ctx context.Context) (GenerateResult, error) {
	payload, err := c.svc.GetConstraints(ctx)
	if err != nil {
		c.logger.Error("fetching constraints failed", zap.Error(err))
		return GenerateResult{Outcome: Failed}, fmt.Errorf("load constraints: %w", err)
	}

	set, err := constraints.FromJSON(payload)
	if err != nil {
		c.logger.Error("constraints payload rejected", zap.Error(err))
		return GenerateResult{Outcome: Failed}, fmt.Errorf("load constraints: %w", err)
	}

	c.mu.Lock()
	set.Bind(c.view)
	c.set = set
	c.mu.Unlock()

	c.logger.Info("constraints loaded",
		zap.Int("max_dec_int_digits", set.MaxDecIntDigits()),
		zap.Float64("iterations_limit", set.IterationsLimit()),
		zap.Float64("modulus_limit", set.ModulusLimit()),
		zap.Float64("resolution_limit", set.ResolutionLimit()))

	return c.Generate(ctx)
}

// FieldChanged revalidates one field and renders the result into the view.
func (c *Controller) FieldChanged(name string) constraints.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateField(name)
}

// AllParamsValid validates every field. All fields are checked, even after
// a failure, so that every invalid field shows its feedback.
func (c *Controller) AllParamsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allParamsValid()
}

// Generate runs the request gate once: Begin, then Do when a request is due.
func (c *Controller) Generate(ctx context.Context) (GenerateResult, error) {
	req, res, err := c.Begin()
	if req == nil {
		return res, err
	}
	return req.Do(ctx)
}

// Request is an image request that passed the gate. The controller stays
// Requesting until Do returns.
type Request struct {
	c    *Controller
	id   string
	snap params.Snapshot
}

// Begin captures the form and decides whether a request is due. The snapshot
// is taken now, so later edits do not leak into the request. It returns a
// nil Request together with the final result when nothing is to be sent.
func (c *Controller) Begin() (*Request, GenerateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Requesting {
		c.logger.Debug("generate dropped, request in flight")
		return nil, GenerateResult{Outcome: Busy}, nil
	}
	if c.set == nil {
		return nil, GenerateResult{Outcome: Invalid}, ErrConstraintsNotLoaded
	}

	snap := params.Capture(c.view)
	if params.Equal(snap, c.current) {
		return nil, GenerateResult{Outcome: Unchanged, Snapshot: snap}, nil
	}
	if !c.allParamsValid() {
		return nil, GenerateResult{Outcome: Invalid, Snapshot: snap}, nil
	}

	c.state = Requesting
	return &Request{c: c, id: uuid.NewString(), snap: snap}, GenerateResult{}, nil
}

// ID returns the request ID.
func (r *Request) ID() string { return r.id }

// Snapshot returns the parameters captured by Begin.
func (r *Request) Snapshot() params.Snapshot { return r.snap }

// Do sends the request, then returns the controller to Idle. On success the
// markup is shown and the snapshot becomes the accepted one.
func (r *Request) Do(ctx context.Context) (GenerateResult, error) {
	c, snap := r.c, r.snap
	log := c.logger.With(zap.String("request_id", r.id))
	log.Info("requesting image",
		zap.String("real", snap.RealComponent),
		zap.String("imaginary", snap.ImaginaryComponent),
		zap.String("width", snap.PictureWidth),
		zap.String("height", snap.PictureHeight),
		zap.String("iterations", snap.Iterations))

	start := time.Now()
	markup, err := c.svc.GenerateImage(ctx, snap)
	res := GenerateResult{RequestID: r.id, Snapshot: snap, Duration: time.Since(start)}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Idle

	if err != nil {
		log.Error("image request failed", zap.Error(err), zap.Duration("elapsed", res.Duration))
		res.Outcome = Failed
		return res, fmt.Errorf("generate image: %w", err)
	}

	c.view.ShowImage(markup)
	c.current = snap
	res.Outcome = Rendered
	log.Info("image rendered", zap.Duration("elapsed", res.Duration), zap.Int("markup_bytes", len(markup)))
	return res, nil
}

// Current returns the last accepted snapshot.
func (c *Controller) Current() params.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// State returns the gate state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Constraints returns the loaded constraint set, or nil before Load.
func (c *Controller) Constraints() *constraints.Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set
}

func (c *Controller) allParamsValid() bool {
	valid := true
	for _, name := range c.view.Names() {
		res := c.validateField(name)
		valid = valid && res.Valid
	}
	return valid
}

// validateField must be called with c.mu held.
func (c *Controller) validateField(name string) constraints.Result {
	fd, ok := c.view.Field(name)
	if !ok {
		return constraints.Result{Valid: true}
	}

	var res constraints.Result
	if c.set == nil {
		res = constraints.Result{
			Valid:   false,
			Message: notLoadedMessage,
			Err:     &constraints.FieldValidationError{Field: name, Message: notLoadedMessage},
		}
	} else {
		res = c.set.Validate(name, fd.Kind, fd.Value, fd.Max)
	}

	c.view.Apply(name, res)
	if !res.Valid {
		c.logger.Debug("field invalid", zap.String("field", name), zap.String("value", fd.Value))
	}
	return res
}
