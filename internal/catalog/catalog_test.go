package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(providers []Provider) []string {
	out := make([]string, len(providers))
	for i, p := range providers {
		out[i] = p.ID
	}
	return out
}

func builtinCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Builtin()
	require.NoError(t, err)
	return c
}

func TestBuiltin_Compiles(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"openai", "silicon", "deepseek", "yi", "zhipu", "moonshot", "baichuan",
		"dashscope", "anthropic", "aihubmix", "openrouter", "groq", "ollama",
	}, ids(c.All()))
}

func TestBuiltin_Defaults(t *testing.T) {
	c := builtinCatalog(t)

	openai, ok := c.Provider("openai")
	require.True(t, ok)
	assert.True(t, openai.Enabled)
	assert.True(t, openai.EditableEndpoint)
	assert.Equal(t, "https://api.openai.com", openai.Endpoint)

	groq, ok := c.Provider("groq")
	require.True(t, ok)
	assert.False(t, groq.Enabled)
	assert.False(t, groq.EditableEndpoint)

	gpt4, ok := openai.Model("gpt-4")
	require.True(t, ok)
	assert.False(t, gpt4.Enabled, "unset enabled falls back to the schema default")

	ollama, ok := c.Provider("ollama")
	require.True(t, ok)
	assert.Empty(t, ollama.Models)
	assert.Empty(t, ollama.Websites.APIKey)
}

func TestProvidersAsOf(t *testing.T) {
	c := builtinCatalog(t)

	assert.Equal(t, []string{"openai", "silicon", "deepseek", "groq"}, ids(c.ProvidersAsOf(1)))
	assert.Equal(t, []string{
		"openai", "silicon", "deepseek", "yi", "zhipu", "moonshot", "openrouter", "groq", "ollama",
	}, ids(c.ProvidersAsOf(6)))
	assert.Len(t, c.ProvidersAsOf(19), c.Len())
	assert.Empty(t, c.ProvidersAsOf(0))
}

func TestIntroducedAt(t *testing.T) {
	c := builtinCatalog(t)

	assert.Equal(t, []string{"dashscope", "anthropic"}, ids(c.IntroducedAt(11)))
	assert.Equal(t, []string{"zhipu"}, ids(c.IntroducedAt(3)))
	assert.Empty(t, c.IntroducedAt(7))
}

func TestDefaultModels(t *testing.T) {
	zhipu, ok := builtinCatalog(t).Provider("zhipu")
	require.True(t, ok)

	var got []string
	for _, m := range zhipu.DefaultModels() {
		got = append(got, m.ID)
	}
	assert.Equal(t, []string{"glm-4", "glm-4-flash", "glm-4-air"}, got)
}

func TestProvider_ReturnsCopy(t *testing.T) {
	c := builtinCatalog(t)

	p, _ := c.Provider("openai")
	p.Models[0].ID = "mutated"

	again, _ := c.Provider("openai")
	assert.Equal(t, "gpt-4o", again.Models[0].ID)
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		providers []Provider
	}{
		{"empty id", []Provider{{Since: 1}}},
		{"duplicate id", []Provider{{ID: "a", Since: 1}, {ID: "a", Since: 2}}},
		{"zero since", []Provider{{ID: "a"}}},
		{"duplicate model", []Provider{{ID: "a", Since: 1, Models: []Model{{ID: "m"}, {ID: "m"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.providers...)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

const schemaPrelude = `
#Model: {
	id:      string & !=""
	name:    string
	group:   string
	enabled: bool | *false
}
#Provider: {
	id:               string
	name:             string
	endpoint:         string & =~"^https?://"
	editableEndpoint: bool | *false
	enabled:          bool | *false
	since:            int & >=1
	websites: {...}
	models: [...#Model]
}
providers: [...#Provider]
`

func TestCompile_Minimal(t *testing.T) {
	src := schemaPrelude + `
providers: [{
	id: "local", name: "Local", endpoint: "http://localhost:1234", since: 1, websites: {}
	models: [{id: "m1", name: "M1", group: "g", enabled: true}]
}]
`
	c, err := Compile("test.cue", []byte(src))
	require.NoError(t, err)

	p, ok := c.Provider("local")
	require.True(t, ok)
	assert.Equal(t, 1, p.Since)
	assert.Len(t, p.DefaultModels(), 1)
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := Compile("broken.cue", []byte(`providers: [`))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "broken.cue")
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestCompile_SchemaViolation(t *testing.T) {
	src := schemaPrelude + `
providers: [{
	id: "local", name: "Local", endpoint: "ftp://nope", since: 1, websites: {}, models: []
}]
`
	_, err := Compile("bad.cue", []byte(src))
	require.Error(t, err)

	var ce *CompileError
	assert.True(t, errors.As(err, &ce))
}

func TestCompile_DuplicateProvider(t *testing.T) {
	src := schemaPrelude + `
providers: [
	{id: "a", name: "A", endpoint: "https://a", since: 1, websites: {}, models: []},
	{id: "a", name: "A again", endpoint: "https://a", since: 2, websites: {}, models: []},
]
`
	_, err := Compile("dup.cue", []byte(src))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "providers[1].id", ce.Field)
	assert.Contains(t, ce.Message, `duplicate provider "a"`)
}

func TestCompile_MissingProviders(t *testing.T) {
	_, err := Compile("empty.cue", []byte(`other: 1`))

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "providers", ce.Field)
}
