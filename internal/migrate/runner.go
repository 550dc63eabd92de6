package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/stateshift/internal/reconcile"
	"github.com/roach88/stateshift/internal/state"
)

// Applied records one successfully stamped step.
type Applied struct {
	Version  int           `json:"version"`
	Name     string        `json:"name"`
	Before   string        `json:"before"`
	After    string        `json:"after"`
	Duration time.Duration `json:"duration"`
}

// Result is the outcome of a run. On failure Document is the last
// successfully stamped document, never a partially applied one.
type Result struct {
	Document state.Document `json:"-"`
	From     int            `json:"from"`
	To       int            `json:"to"`
	Applied  []Applied      `json:"applied"`

	// Added lists the provider ids the run appended, in document order.
	Added []string `json:"added,omitempty"`
}

// Changed reports whether any step ran.
func (r Result) Changed() bool {
	return len(r.Applied) > 0
}

// CheckpointFunc persists the document after a step is stamped.
type CheckpointFunc func(ctx context.Context, doc state.Document, step Applied) error

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithCheckpoint persists the document after every stamped step, so a crash
// resumes from the last completed step.
func WithCheckpoint(fn CheckpointFunc) Option {
	return func(r *Runner) { r.checkpoint = fn }
}

// WithClock sets the time source used for step durations.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// Runner applies pending steps to a document.
type Runner struct {
	registry   *Registry
	env        Env
	log        zerolog.Logger
	checkpoint CheckpointFunc
	now        func() time.Time
}

// NewRunner creates a runner over registry.
func NewRunner(registry *Registry, env Env, opts ...Option) *Runner {
	r := &Runner{
		registry: registry,
		env:      env,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// With returns a copy of the runner with opts applied on top of its
// current configuration.
func (r *Runner) With(opts ...Option) *Runner {
	cp := *r
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Registry returns the step table the runner applies.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Env returns the collaborators handed to each step.
func (r *Runner) Env() Env {
	return r.env
}

// Run folds doc through every step newer than its stamped version, in
// ascending order, stamping the version after each step.
//
// A document already at the latest version is returned unchanged. On error
// the Result still carries the last good document and the steps that
// completed before the failure.
func (r *Runner) Run(ctx context.Context, doc state.Document) (Result, error) {
	if doc.IsZero() {
		return Result{}, fmt.Errorf("%w: no document", ErrMalformedDocument)
	}

	from, err := doc.Version()
	if err != nil {
		return Result{Document: doc}, err
	}
	start, err := doc.Providers()
	if err != nil {
		return Result{Document: doc, From: from, To: from}, err
	}

	res := Result{Document: doc, From: from, To: from}
	latest := r.registry.Latest()
	if from > latest {
		return res, fmt.Errorf("%w: document at %d, latest step %d", ErrVersionAhead, from, latest)
	}
	if err := r.registry.checkReachable(from); err != nil {
		return res, err
	}

	pending := r.registry.Pending(from)
	if len(pending) == 0 {
		r.log.Debug().Int("version", from).Msg("document is current")
		return res, nil
	}

	r.log.Info().Int("from", from).Int("to", latest).Int("steps", len(pending)).Msg("migrating document")

	for _, step := range pending {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("migration interrupted at %d: %w", res.To, err)
		}

		applied, next, err := r.apply(step, res.Document)
		if err != nil {
			r.log.Error().Err(err).Int("version", step.Version).Str("step", step.Name).
				Int("stamped", res.To).Msg("migration step failed")
			return res, err
		}

		res.Document = next
		res.To = step.Version
		res.Applied = append(res.Applied, applied)

		r.log.Debug().Int("version", step.Version).Str("step", step.Name).
			Str("before", short(applied.Before)).Str("after", short(applied.After)).
			Dur("took", applied.Duration).Msg("step applied")

		if r.checkpoint != nil {
			if err := r.checkpoint(ctx, next, applied); err != nil {
				return res, fmt.Errorf("checkpoint after step %d: %w", step.Version, err)
			}
		}
	}

	final, err := res.Document.Providers()
	if err != nil {
		return res, err
	}
	res.Added = reconcile.Added(start, final)

	r.log.Info().Int("from", res.From).Int("to", res.To).Int("applied", len(res.Applied)).
		Strs("added", res.Added).Msg("migration complete")
	return res, nil
}

// apply runs one step and stamps its version. Any failure leaves cur as
// the document of record.
func (r *Runner) apply(step Step, cur state.Document) (applied Applied, next state.Document, err error) {
	fail := func(cause error) (Applied, state.Document, error) {
		return Applied{}, cur, &StepError{Version: step.Version, Name: step.Name, Err: cause}
	}

	before, err := state.Fingerprint(cur)
	if err != nil {
		return fail(err)
	}

	start := r.now()
	out, err := r.call(step, cur)
	if err != nil {
		return fail(err)
	}
	if out.IsZero() {
		return fail(errors.New("step returned no document"))
	}

	out, err = out.WithVersion(step.Version)
	if err != nil {
		return fail(err)
	}
	if err := checkProtected(cur, out); err != nil {
		return fail(err)
	}

	after, err := state.Fingerprint(out)
	if err != nil {
		return fail(err)
	}

	return Applied{
		Version:  step.Version,
		Name:     step.Name,
		Before:   before,
		After:    after,
		Duration: r.now().Sub(start),
	}, out, nil
}

func (r *Runner) call(step Step, doc state.Document) (out state.Document, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return step.Apply(r.env, doc)
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
