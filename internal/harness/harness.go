package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/stateshift/internal/bootstrap"
	"github.com/roach88/stateshift/internal/locale"
	"github.com/roach88/stateshift/internal/migrate"
	"github.com/roach88/stateshift/internal/state"
	"github.com/roach88/stateshift/internal/store"
	"github.com/roach88/stateshift/internal/testutil"
)

// DocumentKey is the store key scenarios run against.
const DocumentKey = "root"

// ErrorKinds maps the error names scenarios may expect to the sentinel they
// match with errors.Is. More specific kinds come first.
var ErrorKinds = []struct {
	Name string
	Err  error
}{
	{"protected_field", migrate.ErrProtectedField},
	{"unknown_provider", migrate.ErrUnknownProvider},
	{"version_gap", migrate.ErrUnknownVersionGap},
	{"version_ahead", migrate.ErrVersionAhead},
	{"malformed", migrate.ErrMalformedDocument},
	{"step_failure", migrate.ErrStepFailure},
}

func errorKind(name string) (error, bool) {
	for _, k := range ErrorKinds {
		if k.Name == name {
			return k.Err, true
		}
	}
	return nil, false
}

// Classify names the most specific error kind err matches, or "" when it
// matches none.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range ErrorKinds {
		if errors.Is(err, k.Err) {
			return k.Name
		}
	}
	return ""
}

// Harness holds the per-scenario collaborators.
type Harness struct {
	store  *store.Store
	docs   *store.Documents
	runner *migrate.Runner
	clock  *testutil.DeterministicClock
	ids    *testutil.SequentialIDs
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Store the scenario document, if any, exactly as written
// 3. Run the bootstrap lifecycle over it
// 4. Read back the stored document and recorded history
// 5. Check the expect clause and evaluate assertions
//
// The returned error reports harness failures only. Migration errors are
// captured in Result.Err and checked against the expect clause.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(st, scenario)
	if err != nil {
		return nil, err
	}

	if scenario.Document != "" {
		if err := h.seed(ctx, scenario.Document); err != nil {
			return nil, fmt.Errorf("failed to store scenario document: %w", err)
		}
	}

	result := NewResult()
	_, result.Err = bootstrap.Initialize(ctx, h.docs, h.runner, bootstrap.Options{
		IDFunc:     h.ids.Generate,
		Clock:      h.clock.Now,
		Checkpoint: scenario.Checkpoint,
	})

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}

	checkExpect(result, scenario.Expect)

	actx := &AssertionContext{
		Ctx:    ctx,
		Runner: h.runner,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func newHarness(st *store.Store, scenario *Scenario) (*Harness, error) {
	tag := scenario.Locale
	if tag == "" {
		tag = locale.Fallback
	}
	env, err := migrate.BuiltinEnv(tag)
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in environment: %w", err)
	}

	reg := migrate.Builtin()
	if scenario.Through > 0 {
		reg = reg.Through(scenario.Through)
	}

	clock := testutil.NewDeterministicClock(time.Millisecond)
	return &Harness{
		store:  st,
		docs:   st.Documents(DocumentKey),
		runner: migrate.NewRunner(reg, env, migrate.WithClock(clock.Now)),
		clock:  clock,
		ids:    testutil.NewSequentialIDs("run"),
	}, nil
}

// seed stores body verbatim, bypassing the validation Save performs, so
// scenarios can start from documents no current release would write.
func (h *Harness) seed(ctx context.Context, body string) error {
	_, err := h.store.DB().ExecContext(ctx, `
		INSERT INTO documents (key, body, schema_version, fingerprint, seq)
		VALUES (?, ?, 0, '', 0)
	`, DocumentKey, body)
	return err
}

// collect reads back the stored document and history into result.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	doc, ok, err := h.docs.Load(ctx)
	if err == nil && ok {
		result.Document = doc
	}

	runs, err := h.store.Runs(ctx, DocumentKey)
	if err != nil {
		return fmt.Errorf("failed to read runs: %w", err)
	}
	for _, run := range runs {
		steps, err := h.store.Steps(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("failed to read steps of %s: %w", run.ID, err)
		}
		for _, st := range steps {
			result.Trace = append(result.Trace, TraceEvent{
				RunID:   st.RunID,
				Version: st.Version,
				Name:    st.Name,
				Before:  st.Before,
				After:   st.After,
			})
		}
	}
	if len(runs) > 0 {
		last := runs[len(runs)-1]
		result.Status = last.Status
		result.From = last.From
		result.To = last.To
	}
	return nil
}

// checkExpect compares the run outcome with the expect clause. Without a
// clause any error fails the scenario.
func checkExpect(result *Result, expect *ExpectClause) {
	if expect == nil {
		if result.Err != nil {
			result.AddError(fmt.Sprintf("unexpected error: %v", result.Err))
		}
		return
	}

	if expect.Status != "" && result.Status != expect.Status {
		result.AddError(fmt.Sprintf("expected status %s, got %q", expect.Status, result.Status))
	}

	if expect.Error == "" {
		if result.Err != nil {
			result.AddError(fmt.Sprintf("unexpected error: %v", result.Err))
		}
		return
	}
	want, _ := errorKind(expect.Error)
	switch {
	case result.Err == nil:
		result.AddError(fmt.Sprintf("expected %s error, run succeeded", expect.Error))
	case !errors.Is(result.Err, want):
		result.AddError(fmt.Sprintf("expected %s error, got %s: %v", expect.Error, kindOrUnknown(result.Err), result.Err))
	}
}

func kindOrUnknown(err error) string {
	if k := Classify(err); k != "" {
		return k
	}
	return "unclassified"
}

// stored reports whether a readable document is in the store.
func (r *Result) stored() bool {
	return !r.Document.IsZero()
}

// providerIDs lists provider ids of the stored document.
func providerIDs(doc state.Document) ([]string, error) {
	providers, err := doc.Providers()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(providers))
	for i, p := range providers {
		ids[i] = p.ID
	}
	return ids, nil
}
