package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stateshift/internal/migrate"
	"github.com/roach88/stateshift/internal/state"
	"github.com/roach88/stateshift/internal/testutil"
)

const sampleDoc = `{
	"schemaVersion": 4,
	"providers": [
		{"id": "alpha", "name": "Alpha", "apiKey": "k", "models": [{"id": "a-large"}, {"id": "a-small"}]},
		{"id": "beta", "name": "Beta", "apiKey": "", "models": []}
	],
	"settings": {"theme": "dark", "fontSize": 14, "tags": ["x", "y"]}
}`

func sampleResult(t *testing.T) *Result {
	t.Helper()
	r := NewResult()
	r.Document = testutil.Doc(t, sampleDoc)
	r.Trace = []TraceEvent{
		{RunID: "run-1", Version: 2, Name: "seed-beta"},
		{RunID: "run-1", Version: 3, Name: "bump"},
	}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	assertions := []Assertion{
		{Type: AssertVersion, Value: 4},
		{Type: AssertProviders, IDs: []string{"alpha", "beta"}},
		{Type: AssertPathEquals, Path: "settings.theme", Value: "dark"},
		{Type: AssertPathEquals, Path: "settings.fontSize", Value: 14},
		{Type: AssertPathEquals, Path: "settings.tags", Value: []any{"x", "y"}},
		{Type: AssertPathEquals, Path: `providers.#(id=="alpha").models.#.id`, Value: []any{"a-large", "a-small"}},
		{Type: AssertPathEquals, Path: `providers.#(id=="beta").apiKey`, Value: ""},
		{Type: AssertPathAbsent, Path: "settings.proxyUrl"},
		{Type: AssertStepsApplied, Steps: []int{2, 3}},
	}

	errs := EvaluateAssertions(sampleResult(t), assertions, nil)
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantMsg   string
	}{
		{
			name:      "version",
			assertion: Assertion{Type: AssertVersion, Value: 5},
			wantMsg:   "Expected: version 5",
		},
		{
			name:      "providers order",
			assertion: Assertion{Type: AssertProviders, IDs: []string{"beta", "alpha"}},
			wantMsg:   "Actual: providers [alpha beta]",
		},
		{
			name:      "path value",
			assertion: Assertion{Type: AssertPathEquals, Path: "settings.theme", Value: "light"},
			wantMsg:   `Actual: settings.theme = "dark"`,
		},
		{
			name:      "path missing",
			assertion: Assertion{Type: AssertPathEquals, Path: "settings.language", Value: "en-US"},
			wantMsg:   "Actual: path not found",
		},
		{
			name:      "number type",
			assertion: Assertion{Type: AssertPathEquals, Path: "settings.fontSize", Value: "14"},
			wantMsg:   "Actual: settings.fontSize = 14",
		},
		{
			name:      "path present",
			assertion: Assertion{Type: AssertPathAbsent, Path: "settings.theme"},
			wantMsg:   "Expected: settings.theme absent",
		},
		{
			name:      "steps",
			assertion: Assertion{Type: AssertStepsApplied, Steps: []int{2}},
			wantMsg:   "Actual: steps [2 3]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(t), []Assertion{tt.assertion}, nil)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "assertions[0]: Assertion failed: "+tt.assertion.Type)
			assert.Contains(t, errs[0], tt.wantMsg)
		})
	}
}

func TestEvaluateAssertions_NoStoredDocument(t *testing.T) {
	r := NewResult()

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertVersion, Value: 1},
		{Type: AssertStepsApplied, Steps: []int{}},
	}, nil)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Expected: a stored document")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertVersion,
		Expected: "version 3",
		Actual:   "version 2",
		Trace: []TraceEvent{
			{RunID: "run-1", Version: 2, Name: "seed-yi"},
		},
	}

	want := "Assertion failed: version\n" +
		"  Expected: version 3\n" +
		"  Actual: version 2\n" +
		"\nRecorded steps:\n" +
		"  [2] seed-yi (run-1)\n"
	assert.Equal(t, want, err.Error())
}

func smallRunner(t *testing.T, steps ...migrate.Step) *migrate.Runner {
	t.Helper()
	env := migrate.Env{Catalog: testutil.SmallCatalog(t)}
	return migrate.NewRunner(migrate.MustRegistry(steps...), env)
}

func TestAssertIdempotent(t *testing.T) {
	seedBeta := migrate.SeedStep(2, "seed-beta", "beta")
	counter := migrate.Step{Version: 3, Name: "counter", Apply: func(env migrate.Env, doc state.Document) (state.Document, error) {
		return doc.Set("counter", doc.Get("counter").Int()+1)
	}}

	t.Run("replays recorded steps", func(t *testing.T) {
		runner := smallRunner(t, seedBeta)
		res, err := runner.Run(context.Background(), testutil.Doc(t, `{"schemaVersion":1,"providers":[]}`))
		require.NoError(t, err)

		r := NewResult()
		r.Document = res.Document
		r.Trace = []TraceEvent{{Version: 2, Name: "seed-beta"}}

		errs := EvaluateAssertions(r, []Assertion{{Type: AssertIdempotent}}, &AssertionContext{Ctx: context.Background(), Runner: runner})
		assert.Empty(t, errs)
	})

	t.Run("detects a step that is not idempotent", func(t *testing.T) {
		runner := smallRunner(t, seedBeta, counter)

		r := NewResult()
		r.Document = testutil.Doc(t, `{"schemaVersion":3,"providers":[],"counter":1}`)
		r.Trace = []TraceEvent{{Version: 3, Name: "counter"}}

		errs := EvaluateAssertions(r, []Assertion{{Type: AssertIdempotent}}, &AssertionContext{Runner: runner})
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "step 3 (counter) to leave")
	})

	t.Run("without a trace replays up to the stored version", func(t *testing.T) {
		runner := smallRunner(t, seedBeta, counter)

		r := NewResult()
		r.Document = testutil.Doc(t, `{"schemaVersion":2,"providers":[]}`)

		errs := EvaluateAssertions(r, []Assertion{{Type: AssertIdempotent}}, &AssertionContext{Runner: runner})
		require.Len(t, errs, 1, "seed-beta adds beta to a document that lacks it")
		assert.Contains(t, errs[0], "step 2 (seed-beta)")
	})

	t.Run("requires a runner", func(t *testing.T) {
		errs := EvaluateAssertions(sampleResult(t), []Assertion{{Type: AssertIdempotent}}, nil)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "idempotent requires a runner")
	})
}

func TestNormalize(t *testing.T) {
	got, err := normalize(map[string]any{"n": 1, "list": []any{true, "s"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(1), "list": []any{true, "s"}}, got)

	got, err = normalize(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
