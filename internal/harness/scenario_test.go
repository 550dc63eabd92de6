package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stateshift/internal/store"
)

func TestLoadScenario_Valid(t *testing.T) {
	sc, err := LoadScenario(filepath.Join(scenarioDir, "legacy-v1-through-3.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "legacy-v1-through-3", sc.Name)
	assert.Equal(t, 3, sc.Through)
	assert.True(t, sc.Checkpoint)
	assert.Contains(t, sc.Document, `"schemaVersion": 1`)
	require.NotNil(t, sc.Expect)
	assert.Equal(t, store.RunCompleted, sc.Expect.Status)
	require.Len(t, sc.Assertions, 6)
	assert.Equal(t, AssertVersion, sc.Assertions[0].Type)
	assert.Equal(t, 3, sc.Assertions[0].Value)
	assert.Equal(t, []string{"openai", "yi", "zhipu"}, sc.Assertions[1].IDs)
	assert.Equal(t, []int{2, 3}, sc.Assertions[5].Steps)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "unknown field",
			yaml: `
name: x
description: d
assertion:
  - type: idempotent
`,
			wantErr: "failed to parse YAML",
		},
		{
			name: "missing name",
			yaml: `
description: d
assertions:
  - type: idempotent
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			yaml: `
name: x
assertions:
  - type: idempotent
`,
			wantErr: "description is required",
		},
		{
			name: "nothing to check",
			yaml: `
name: x
description: d
`,
			wantErr: "expect or a non-empty assertions list is required",
		},
		{
			name: "negative through",
			yaml: `
name: x
description: d
through: -1
assertions:
  - type: idempotent
`,
			wantErr: "through must be non-negative",
		},
		{
			name: "unknown status",
			yaml: `
name: x
description: d
expect:
  status: done
`,
			wantErr: `unknown status "done"`,
		},
		{
			name: "unknown error kind",
			yaml: `
name: x
description: d
expect:
  error: exploded
`,
			wantErr: `unknown error kind "exploded"`,
		},
		{
			name: "missing assertion type",
			yaml: `
name: x
description: d
assertions:
  - path: a
`,
			wantErr: "assertions[0]: type is required",
		},
		{
			name: "unknown assertion type",
			yaml: `
name: x
description: d
assertions:
  - type: trace_contains
`,
			wantErr: `assertions[0]: unknown assertion type "trace_contains"`,
		},
		{
			name: "version without integer",
			yaml: `
name: x
description: d
assertions:
  - type: version
    value: latest
`,
			wantErr: "integer value is required for version",
		},
		{
			name: "providers without ids",
			yaml: `
name: x
description: d
assertions:
  - type: providers
`,
			wantErr: "ids list is required for providers",
		},
		{
			name: "path_equals without path",
			yaml: `
name: x
description: d
assertions:
  - type: idempotent
  - type: path_equals
    value: 1
`,
			wantErr: "assertions[1]: path is required for path_equals",
		},
		{
			name: "path_absent without path",
			yaml: `
name: x
description: d
assertions:
  - type: path_absent
`,
			wantErr: "path is required for path_absent",
		},
		{
			name: "steps_applied without steps",
			yaml: `
name: x
description: d
assertions:
  - type: steps_applied
`,
			wantErr: "steps list is required for steps_applied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_ExpectOnly(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: x
description: d
expect:
  status: failed
  error: version_ahead
`))
	require.NoError(t, err)
	assert.Equal(t, store.RunFailed, sc.Expect.Status)
	assert.Equal(t, "version_ahead", sc.Expect.Error)
	assert.Empty(t, sc.Assertions)
}

func TestLoadScenarios(t *testing.T) {
	scenarios, err := LoadScenarios(scenarioDir)
	require.NoError(t, err)

	names := make([]string, len(scenarios))
	for i, sc := range scenarios {
		names[i] = sc.Name
	}
	assert.Contains(t, names, "fresh-install")
	assert.Contains(t, names, "zhipu-stale-fix")
	assert.IsIncreasing(t, names, "scenarios are loaded in file name order")
}

func TestLoadScenarios_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	body := []byte("name: same\ndescription: d\nassertions:\n  - type: idempotent\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), body, 0o644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario name "same" already used by a.yaml`)
}

func TestLoadScenarios_BadFileNamed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0o644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}
