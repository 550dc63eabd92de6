package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/roach88/stateshift/internal/migrate"
)

// execute runs the root command with an isolated env file and a fixed
// locale.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out, errb := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errb)
	base := []string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "--locale", "en-US"}
	cmd.SetArgs(append(base, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errb.String(), err
}

func TestMigrate_SeedsFreshDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "state.db")

	out, _, err := execute(t, "migrate", "--db", db, "--format", "json")
	require.NoError(t, err)

	assert.Equal(t, "ok", gjson.Get(out, "status").String())
	assert.Equal(t, "seeded", gjson.Get(out, "data.status").String())
	assert.Equal(t, int64(migrate.Builtin().Latest()), gjson.Get(out, "data.to").Int())
	assert.NotEmpty(t, gjson.Get(out, "data.runId").String())
	assert.Len(t, gjson.Get(out, "data.fingerprint").String(), 64)
}

func TestMigrate_ThenStatusIsCurrent(t *testing.T) {
	db := filepath.Join(t.TempDir(), "state.db")

	_, _, err := execute(t, "migrate", "--db", db)
	require.NoError(t, err)

	out, _, err := execute(t, "status", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Up to date.")

	out, _, err = execute(t, "migrate", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Document is current")
}

func TestMigrate_FileDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schemaVersion":1,"providers":[{"id":"openai","apiKey":"sk-live","models":[]}]}`), 0o644))

	out, _, err := execute(t, "migrate", "--file", path, "--format", "json")
	require.NoError(t, err)

	latest := migrate.Builtin().Latest()
	assert.Equal(t, "completed", gjson.Get(out, "data.status").String())
	assert.Equal(t, int64(1), gjson.Get(out, "data.from").Int())
	assert.Equal(t, int64(latest), gjson.Get(out, "data.to").Int())
	assert.Equal(t, int64(latest-1), gjson.Get(out, "data.applied.#").Int())
	assert.Equal(t, "seed-yi", gjson.Get(out, "data.applied.0.name").String())
	added := stringsOf(gjson.Get(out, "data.addedProviders"))
	assert.Equal(t, "yi", added[0])
	assert.Contains(t, added, "anthropic")
	assert.NotContains(t, added, "openai")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(latest), gjson.GetBytes(raw, "schemaVersion").Int())
	assert.Equal(t, "sk-live", gjson.GetBytes(raw, "providers.0.apiKey").String())
}

func TestMigrate_DryRunWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	before := []byte(`{"schemaVersion":5,"providers":[]}`)
	require.NoError(t, os.WriteFile(path, before, 0o644))

	out, _, err := execute(t, "migrate", "--file", path, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "[dry run]")
	assert.Contains(t, out, "from version 5")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMigrate_VersionAheadFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schemaVersion":99,"providers":[]}`), 0o644))

	out, _, err := execute(t, "migrate", "--file", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "error", gjson.Get(out, "status").String())
	assert.Equal(t, ErrCodeVersionAhead, gjson.Get(out, "error.code").String())
}

func TestMigrate_MalformedDocumentFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schemaVersion":3,"providers":{"id":"x"}}`), 0o644))

	out, _, err := execute(t, "migrate", "--file", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, ErrCodeMalformed, gjson.Get(out, "error.code").String())
}

func TestStatus_NoDocument(t *testing.T) {
	db := filepath.Join(t.TempDir(), "state.db")

	out, _, err := execute(t, "status", "--db", db, "--format", "json")
	require.NoError(t, err)
	assert.False(t, gjson.Get(out, "data.exists").Bool())
	assert.Equal(t, int64(0), gjson.Get(out, "data.pending.#").Int())
}

func TestStatus_ListsPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schemaVersion":17,"providers":[]}`), 0o644))

	out, _, err := execute(t, "status", "--file", path, "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, int64(17), gjson.Get(out, "data.version").Int())
	assert.Equal(t, []string{"reserved", "agents-ollama-keepalive"}, stringsOf(gjson.Get(out, "data.pending.#.name")))
}

func TestSteps_ListsRegistry(t *testing.T) {
	out, _, err := execute(t, "steps", "--format", "json")
	require.NoError(t, err)

	reg := migrate.Builtin()
	assert.Equal(t, int64(reg.Len()), gjson.Get(out, "data.steps.#").Int())
	assert.Equal(t, int64(reg.Latest()), gjson.Get(out, "data.latest").Int())
	assert.Equal(t, int64(2), gjson.Get(out, "data.steps.0.version").Int())
	assert.Equal(t, []string{"yi"}, stringsOf(gjson.Get(out, "data.steps.0.seeds")))
	assert.Equal(t, []string{"dashscope", "anthropic"}, stringsOf(gjson.Get(out, "data.steps.#(version==11).seeds")))
	assert.False(t, gjson.Get(out, "data.steps.#(version==7).seeds").Exists())
}

func TestSteps_TextShowsSeeds(t *testing.T) {
	out, _, err := execute(t, "steps")
	require.NoError(t, err)
	assert.Contains(t, out, "seed-yi (+yi)")
}

func TestCatalog_AsOf(t *testing.T) {
	out, _, err := execute(t, "catalog", "--as-of", "1", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "silicon", "deepseek", "groq"}, stringsOf(gjson.Get(out, "data.providers.#.id")))
}

func TestCatalog_Text(t *testing.T) {
	out, _, err := execute(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "13 provider(s)")
	assert.Contains(t, out, "* openai")
}

func TestCatalog_Source(t *testing.T) {
	out, _, err := execute(t, "catalog", "--source")
	require.NoError(t, err)
	assert.Contains(t, out, "#Provider")
}

func TestDefault_PrintsLatestDocument(t *testing.T) {
	out, _, err := execute(t, "default", "--format", "json")
	require.NoError(t, err)

	assert.Equal(t, int64(migrate.Builtin().Latest()), gjson.Get(out, "data.schemaVersion").Int())
	assert.Equal(t, int64(13), gjson.Get(out, "data.providers.#").Int())
	assert.Equal(t, "en-US", gjson.Get(out, "data.settings.language").String())
}

func TestDefault_TextIsCanonical(t *testing.T) {
	out, _, err := execute(t, "default")
	require.NoError(t, err)
	require.True(t, gjson.Valid(out))
	assert.Equal(t, byte('{'), out[0])
	assert.Contains(t, out, `"agents":{"agents":[]}`)
}

func TestHistory_AfterMigrate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "state.db")
	_, _, err := execute(t, "migrate", "--db", db)
	require.NoError(t, err)

	out, _, err := execute(t, "history", "--db", db, "--steps", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, "root", gjson.Get(out, "data.key").String())
	assert.Equal(t, int64(1), gjson.Get(out, "data.runs.#").Int())
	assert.Equal(t, "seeded", gjson.Get(out, "data.runs.0.status").String())
}

func TestHistory_FileStoreUnsupported(t *testing.T) {
	out, _, err := execute(t, "history", "--file", filepath.Join(t.TempDir(), "state.json"), "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeUnsupported, gjson.Get(out, "error.code").String())
}

func TestSchema_DescribesSnapshot(t *testing.T) {
	out, _, err := execute(t, "schema", "--format", "json")
	require.NoError(t, err)

	assert.Equal(t, "stateshift document", gjson.Get(out, "data.title").String())
	assert.True(t, gjson.Get(out, "data.properties.providers").Exists())
	assert.True(t, gjson.Get(out, "data.properties.schemaVersion").Exists())
}

func TestSchema_Text(t *testing.T) {
	out, _, err := execute(t, "schema")
	require.NoError(t, err)
	assert.True(t, gjson.Valid(out))
	assert.Equal(t, "stateshift document", gjson.Get(out, "title").String())
}

func stringsOf(r gjson.Result) []string {
	var out []string
	for _, v := range r.Array() {
		out = append(out, v.String())
	}
	return out
}
