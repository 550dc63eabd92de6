package harness

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/roach88/stateshift/internal/migrate"
	"github.com/roach88/stateshift/internal/state"
)

// AssertionContext provides the collaborators assertions may need.
type AssertionContext struct {
	Ctx    context.Context
	Runner *migrate.Runner
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Recorded steps for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nRecorded steps:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s (%s)\n", ev.Version, ev.Name, ev.RunID)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	if a.Type == AssertStepsApplied {
		return assertStepsApplied(result, a)
	}
	if !result.stored() {
		return &AssertionError{Type: a.Type, Expected: "a stored document", Actual: "none", Trace: result.Trace}
	}

	switch a.Type {
	case AssertVersion:
		return assertVersion(result, a)
	case AssertProviders:
		return assertProviders(result, a)
	case AssertPathEquals:
		return assertPathEquals(result, a)
	case AssertPathAbsent:
		return assertPathAbsent(result, a)
	case AssertIdempotent:
		return assertIdempotent(result, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertVersion(result *Result, a Assertion) error {
	got, err := result.Document.Version()
	if err != nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("version %v", a.Value), Actual: err.Error(), Trace: result.Trace}
	}
	if want, _ := a.Value.(int); got != want {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("version %d", want),
			Actual:   fmt.Sprintf("version %d", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertProviders(result *Result, a Assertion) error {
	got, err := providerIDs(result.Document)
	if err != nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("providers %v", a.IDs), Actual: err.Error(), Trace: result.Trace}
	}
	if !slices.Equal(got, a.IDs) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("providers %v", a.IDs),
			Actual:   fmt.Sprintf("providers %v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertPathEquals(result *Result, a Assertion) error {
	r := result.Document.Get(a.Path)
	if !r.Exists() {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %v", a.Path, a.Value),
			Actual:   "path not found",
			Trace:    result.Trace,
		}
	}

	want, err := normalize(a.Value)
	if err != nil {
		return fmt.Errorf("expected value for %s: %w", a.Path, err)
	}
	if got := r.Value(); !reflect.DeepEqual(got, want) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %v", a.Path, want),
			Actual:   fmt.Sprintf("%s = %s", a.Path, r.Raw),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertPathAbsent(result *Result, a Assertion) error {
	if r := result.Document.Get(a.Path); r.Exists() {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s absent", a.Path),
			Actual:   fmt.Sprintf("%s = %s", a.Path, r.Raw),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertStepsApplied(result *Result, a Assertion) error {
	if got := result.Versions(); !slices.Equal(got, a.Steps) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("steps %v", a.Steps),
			Actual:   fmt.Sprintf("steps %v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertIdempotent applies the recorded steps to the stored document again
// and requires each to leave its fingerprint unchanged. With nothing
// recorded, as after seeding, every step up to the stored version is
// applied instead.
func assertIdempotent(result *Result, actx *AssertionContext) error {
	if actx == nil || actx.Runner == nil {
		return fmt.Errorf("idempotent requires a runner")
	}
	env := actx.Runner.Env()
	doc := result.Document

	want, err := state.Fingerprint(doc)
	if err != nil {
		return err
	}
	for _, step := range replaySteps(result, actx.Runner.Registry()) {
		out, err := step.Apply(env, doc)
		if err != nil {
			return &AssertionError{
				Type:     AssertIdempotent,
				Expected: fmt.Sprintf("step %d (%s) to succeed", step.Version, step.Name),
				Actual:   err.Error(),
				Trace:    result.Trace,
			}
		}
		got, err := state.Fingerprint(out)
		if err != nil {
			return err
		}
		if got != want {
			return &AssertionError{
				Type:     AssertIdempotent,
				Expected: fmt.Sprintf("step %d (%s) to leave %s", step.Version, step.Name, want[:12]),
				Actual:   fmt.Sprintf("changed to %s", got[:12]),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

func replaySteps(result *Result, reg *migrate.Registry) []migrate.Step {
	var steps []migrate.Step
	if len(result.Trace) > 0 {
		for _, ev := range result.Trace {
			if step, ok := reg.Step(ev.Version); ok {
				steps = append(steps, step)
			}
		}
		return steps
	}
	version, err := result.Document.Version()
	if err != nil {
		return nil
	}
	for _, step := range reg.Steps() {
		if step.Version <= version {
			steps = append(steps, step)
		}
	}
	return steps
}

// normalize converts a YAML-decoded value into the shape gjson.Result.Value
// produces: float64 numbers, map[string]any objects and []any arrays.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
