// Package bootstrap brackets a migration run with load and save.
//
// Initialize is called once when the host starts. It loads the persisted
// document, brings it to the latest schema version, and saves it back. A
// host must treat any returned error as an initialization failure and must
// not continue with the document it had before.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/roach88/stateshift/internal/migrate"
	"github.com/roach88/stateshift/internal/state"
	"github.com/roach88/stateshift/internal/store"
)

// DocumentStore loads and saves the single persisted document.
type DocumentStore interface {
	Load(ctx context.Context) (state.Document, bool, error)
	Save(ctx context.Context, doc state.Document) error
}

// History is implemented by stores that keep a record of migration runs.
// When the DocumentStore passed to Initialize also implements History,
// every run and step is recorded.
type History interface {
	BeginRun(ctx context.Context, run store.Run) error
	Checkpoint(ctx context.Context, doc state.Document, step store.StepRecord) error
	RecordStep(ctx context.Context, step store.StepRecord) error
	FinishRun(ctx context.Context, runID string, status store.RunStatus, to int, runErr string, at time.Time) error
}

// Options configures Initialize.
type Options struct {
	// IDFunc returns the id of the run. Defaults to a random UUID.
	IDFunc func() string

	// Clock stamps run start and finish times. Defaults to time.Now.
	Clock func() time.Time

	// Checkpoint saves the document after every step instead of once at the
	// end, so an interrupted run resumes from the last completed step.
	Checkpoint bool

	// Logger receives lifecycle events. Nil discards them.
	Logger *zerolog.Logger
}

// Outcome describes what Initialize did.
type Outcome struct {
	RunID    string          `json:"runId"`
	Status   store.RunStatus `json:"status"`
	Result   migrate.Result  `json:"result"`
	Document state.Document  `json:"-"`
}

// Initialize loads the document from ds and migrates it with runner.
//
// A store with no document is seeded with the default document at the
// latest version. A current document is returned as loaded. Otherwise the
// pending steps run and the migrated document is saved. On failure the
// error is returned together with the run id; Outcome.Document is left
// empty so callers cannot mistake a partial result for the current state.
func Initialize(ctx context.Context, ds DocumentStore, runner *migrate.Runner, opts Options) (Outcome, error) {
	opts = withDefaults(opts)
	log := *opts.Logger
	hist, _ := ds.(History)

	out := Outcome{RunID: opts.IDFunc()}
	log = log.With().Str("run", out.RunID).Logger()

	doc, ok, err := ds.Load(ctx)
	if err != nil {
		return out, fmt.Errorf("load document: %w", err)
	}
	if !ok {
		return seed(ctx, ds, hist, runner, opts, log, out)
	}

	from, err := doc.Version()
	if err != nil {
		return out, fmt.Errorf("load document: %w", err)
	}
	if hist != nil {
		if err := hist.BeginRun(ctx, store.Run{ID: out.RunID, From: from, StartedAt: opts.Clock()}); err != nil {
			return out, err
		}
	}

	res, err := runner.With(migrate.WithCheckpoint(checkpointer(ds, hist, out.RunID, opts.Checkpoint))).Run(ctx, doc)
	out.Result = res
	if err != nil {
		out.Status = store.RunFailed
		log.Error().Err(err).Int("from", res.From).Int("stamped", res.To).Msg("initialization failed")
		return out, fail(ctx, hist, out.RunID, res.To, err, opts.Clock)
	}

	if !res.Changed() {
		out.Status = store.RunCurrent
		out.Document = res.Document
		log.Debug().Int("version", res.To).Msg("document is current")
		return out, finish(ctx, hist, out.RunID, store.RunCurrent, res.To, opts.Clock)
	}

	if !opts.Checkpoint {
		if err := ds.Save(ctx, res.Document); err != nil {
			out.Status = store.RunFailed
			return out, fail(ctx, hist, out.RunID, res.From, fmt.Errorf("save document: %w", err), opts.Clock)
		}
	}

	out.Status = store.RunCompleted
	out.Document = res.Document
	log.Info().Int("from", res.From).Int("to", res.To).Int("applied", len(res.Applied)).Msg("document migrated")
	return out, finish(ctx, hist, out.RunID, store.RunCompleted, res.To, opts.Clock)
}

// seed writes the default document for a fresh install.
func seed(ctx context.Context, ds DocumentStore, hist History, runner *migrate.Runner, opts Options, log zerolog.Logger, out Outcome) (Outcome, error) {
	latest := runner.Registry().Latest()
	doc, err := migrate.DefaultDocument(runner.Env(), latest)
	if err != nil {
		return out, fmt.Errorf("default document: %w", err)
	}

	if hist != nil {
		if err := hist.BeginRun(ctx, store.Run{ID: out.RunID, From: latest, StartedAt: opts.Clock()}); err != nil {
			return out, err
		}
	}
	if err := ds.Save(ctx, doc); err != nil {
		out.Status = store.RunFailed
		return out, fail(ctx, hist, out.RunID, latest, fmt.Errorf("save default document: %w", err), opts.Clock)
	}

	out.Status = store.RunSeeded
	out.Document = doc
	out.Result = migrate.Result{Document: doc, From: latest, To: latest}
	log.Info().Int("version", latest).Msg("seeded default document")
	return out, finish(ctx, hist, out.RunID, store.RunSeeded, latest, opts.Clock)
}

// checkpointer persists each stamped step. With history the document and
// step record are written together; without checkpointing only the step is
// recorded and the document is saved once at the end.
func checkpointer(ds DocumentStore, hist History, runID string, enabled bool) migrate.CheckpointFunc {
	return func(ctx context.Context, doc state.Document, step migrate.Applied) error {
		rec := store.StepRecord{
			RunID:    runID,
			Version:  step.Version,
			Name:     step.Name,
			Before:   step.Before,
			After:    step.After,
			Duration: step.Duration,
		}
		switch {
		case enabled && hist != nil:
			return hist.Checkpoint(ctx, doc, rec)
		case enabled:
			return ds.Save(ctx, doc)
		case hist != nil:
			return hist.RecordStep(ctx, rec)
		}
		return nil
	}
}

func finish(ctx context.Context, hist History, runID string, status store.RunStatus, to int, clock func() time.Time) error {
	if hist == nil {
		return nil
	}
	return hist.FinishRun(ctx, runID, status, to, "", clock())
}

// fail records the failed run and returns cause. History is written with a
// fresh context so a canceled run is still recorded.
func fail(ctx context.Context, hist History, runID string, to int, cause error, clock func() time.Time) error {
	if hist == nil {
		return cause
	}
	if err := hist.FinishRun(context.WithoutCancel(ctx), runID, store.RunFailed, to, cause.Error(), clock()); err != nil {
		return errors.Join(cause, fmt.Errorf("record failed run: %w", err))
	}
	return cause
}

func withDefaults(opts Options) Options {
	if opts.IDFunc == nil {
		opts.IDFunc = uuid.NewString
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	return opts
}
