package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/roach88/stateshift/internal/state"
)

func TestDefaultDocument_IsAtLatest(t *testing.T) {
	env := testEnv(t, "en-US")
	reg := Builtin()

	doc, err := DefaultDocument(env, reg.Latest())
	require.NoError(t, err)

	assert.Equal(t, reg.Latest(), version(t, doc))

	res, err := NewRunner(reg, env).Run(context.Background(), doc)
	require.NoError(t, err)
	assert.False(t, res.Changed(), "fresh install needs no migration")
}

func TestDefaultDocument_Contents(t *testing.T) {
	env := testEnv(t, "en-US")

	doc, err := DefaultDocument(env, 19)
	require.NoError(t, err)

	assert.Len(t, providerIDs(t, doc), env.Catalog.Len())
	assert.Equal(t, "openai", providerIDs(t, doc)[0])
	assert.True(t, doc.Get("providers.0.enabled").Bool())
	assert.Equal(t, "gpt-4o", doc.Get("defaultModel.id").String())
	assert.Equal(t, "gpt-4o", doc.Get("topicNamingModel.id").String())
	assert.Equal(t, "gpt-4o", doc.Get("translateModel.id").String())
	assert.Equal(t, "Default Assistant", doc.Get("assistants.defaultAssistant.name").String())
	assert.Equal(t, "Default Topic", doc.Get("assistants.defaultAssistant.topics.0.name").String())
	assert.Equal(t, int64(1), doc.Get("assistants.assistants.#").Int())
	assert.Equal(t, "[]", doc.Get("agents.agents").Raw)
	assert.Equal(t, "en-US", doc.Get("settings.language").String())
}

func TestDefaultDocument_AsOfEarlierVersion(t *testing.T) {
	env := testEnv(t, "en-US")

	doc, err := DefaultDocument(env, 6)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"openai", "silicon", "deepseek", "yi", "zhipu", "moonshot", "openrouter", "groq", "ollama",
	}, providerIDs(t, doc))
}

func TestDefaultDocument_SettingsCoverMigratedKeys(t *testing.T) {
	env := testEnv(t, "en-US")

	fresh, err := DefaultDocument(env, 19)
	require.NoError(t, err)
	migrated, err := NewRunner(Builtin(), env).Run(context.Background(), state.Empty())
	require.NoError(t, err)

	migrated.Document.Get("settings").ForEach(func(key, value gjson.Result) bool {
		assert.Equal(t, value.Raw, fresh.Get("settings."+key.String()).Raw, key.String())
		return true
	})
	assert.Equal(t,
		migrated.Document.Get("llmSettings.ollama.keepAliveTime").Int(),
		fresh.Get("llmSettings.ollama.keepAliveTime").Int())
}

func TestDefaultDocument_NoCatalog(t *testing.T) {
	_, err := DefaultDocument(Env{}, 19)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
