package migrate

import (
	"fmt"
	"slices"

	"github.com/tidwall/gjson"

	"github.com/roach88/stateshift/internal/reconcile"
	"github.com/roach88/stateshift/internal/state"
)

// StaleZhipuModel is the first model id of a zhipu entry that was seeded
// with the wrong model list by an early release.
const StaleZhipuModel = "llama3-70b-8192"

// untranslatedDefaultNames are the default assistant names older releases
// stored literally instead of resolving through translation.
var untranslatedDefaultNames = []string{"Default Assistant", "默认助手"}

// Builtin returns the step table shipped with this release.
func Builtin() *Registry {
	return MustRegistry(BuiltinSteps()...)
}

// BuiltinSteps lists the shipped steps in version order.
func BuiltinSteps() []Step {
	return []Step{
		SeedStep(2, "seed-yi", "yi"),
		SeedStep(3, "seed-zhipu", "zhipu"),
		SeedStep(4, "seed-ollama", "ollama"),
		SeedStep(5, "seed-moonshot", "moonshot"),
		SeedStep(6, "seed-openrouter", "openrouter"),
		{Version: 7, Name: "seed-language", Apply: seedLanguage},
		{Version: 8, Name: "fill-assistant-names", Apply: fillAssistantNames},
		{Version: 9, Name: "fix-zhipu-models", Apply: fixZhipuModels},
		SeedStep(10, "seed-baichuan", "baichuan"),
		SeedStep(11, "seed-dashscope-anthropic", "dashscope", "anthropic"),
		SeedStep(12, "seed-aihubmix", "aihubmix"),
		{Version: 13, Name: "localize-default-assistant", Apply: localizeDefaultAssistant},
		{Version: 14, Name: "show-assistants-drop-proxy", Apply: showAssistantsDropProxy},
		{Version: 15, Name: "user-name-message-divider", Apply: settingsDefaults(map[string]any{
			"userName":           "",
			"showMessageDivider": true,
		})},
		{Version: 16, Name: "message-font-token-estimate", Apply: settingsDefaults(map[string]any{
			"messageFont":              "system",
			"showInputEstimatedTokens": false,
		})},
		{Version: 17, Name: "theme", Apply: settingsDefaults(map[string]any{
			"theme": "auto",
		})},
		// 18 was never released; the slot is kept so the table has no holes.
		{Version: 18, Name: "reserved", Apply: noop},
		{Version: 19, Name: "agents-ollama-keepalive", Apply: agentsAndKeepAlive},
	}
}

// SeedStep returns a step that appends the named catalog providers to
// documents that lack them.
func SeedStep(version int, name string, ids ...string) Step {
	return Step{Version: version, Name: name, Apply: seedProviders(version, ids...)}
}

// seedProviders appends the named catalog providers when the document
// lacks them.
func seedProviders(version int, ids ...string) Func {
	return func(env Env, doc state.Document) (state.Document, error) {
		canonical, err := env.canonical(version, ids...)
		if err != nil {
			return doc, err
		}
		existing, err := doc.Providers()
		if err != nil {
			return doc, err
		}
		return doc.WithProviders(reconcile.MergeProviders(existing, canonical))
	}
}

func seedLanguage(env Env, doc state.Document) (state.Document, error) {
	return doc.SetDefault("settings.language", env.locale())
}

// fillAssistantNames gives unnamed assistants and topics their translated
// default names.
func fillAssistantNames(env Env, doc state.Document) (state.Document, error) {
	doc, err := fillAssistant(env, doc, "assistants.defaultAssistant")
	if err != nil {
		return doc, err
	}

	list := doc.Get("assistants.assistants")
	if !list.IsArray() {
		return doc, nil
	}
	for i := range list.Array() {
		doc, err = fillAssistant(env, doc, fmt.Sprintf("assistants.assistants.%d", i))
		if err != nil {
			return doc, err
		}
	}
	return doc, nil
}

func fillAssistant(env Env, doc state.Document, path string) (state.Document, error) {
	a := doc.Get(path)
	if !a.IsObject() {
		return doc, nil
	}
	id := a.Get("id").String()

	var err error
	if isBlank(a.Get("name")) {
		doc, err = doc.Set(path+".name", env.translate("assistant."+id+".name"))
		if err != nil {
			return doc, err
		}
	}

	topics := a.Get("topics")
	if !topics.IsArray() {
		return doc, nil
	}
	for i, topic := range topics.Array() {
		if !topic.IsObject() || !isBlank(topic.Get("name")) {
			continue
		}
		doc, err = doc.Set(fmt.Sprintf("%s.topics.%d.name", path, i), env.translate("assistant."+id+".topic.name"))
		if err != nil {
			return doc, err
		}
	}
	return doc, nil
}

// fixZhipuModels replaces the zhipu model list only when it still starts
// with the stale seed. Any other zhipu list is the user's and stays.
func fixZhipuModels(env Env, doc state.Document) (state.Document, error) {
	providers, err := doc.Providers()
	if err != nil {
		return doc, err
	}
	i := state.FindProvider(providers, "zhipu")
	if i < 0 || len(providers[i].Models) == 0 || providers[i].Models[0].ID != StaleZhipuModel {
		return doc, nil
	}

	canonical, err := env.canonical(9, "zhipu")
	if err != nil {
		return doc, err
	}
	seeded := reconcile.SeedProvider(canonical[0])
	providers[i].Models = seeded.Models
	return doc.WithProviders(providers)
}

func localizeDefaultAssistant(env Env, doc state.Document) (state.Document, error) {
	const path = "assistants.defaultAssistant.name"
	name := doc.Get(path)
	if name.Type != gjson.String || !slices.Contains(untranslatedDefaultNames, name.String()) {
		return doc, nil
	}
	return doc.Set(path, env.translate("assistant.default.name"))
}

func showAssistantsDropProxy(env Env, doc state.Document) (state.Document, error) {
	doc, err := doc.SetDefault("settings.showAssistants", true)
	if err != nil {
		return doc, err
	}
	return doc.Delete("settings.proxyUrl")
}

// settingsDefaults writes each value under settings unless the key is
// already present.
func settingsDefaults(values map[string]any) Func {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return func(env Env, doc state.Document) (state.Document, error) {
		var err error
		for _, k := range keys {
			doc, err = doc.SetDefault("settings."+k, values[k])
			if err != nil {
				return doc, err
			}
		}
		return doc, nil
	}
}

func agentsAndKeepAlive(env Env, doc state.Document) (state.Document, error) {
	doc, err := doc.SetDefaultRaw("agents.agents", []byte("[]"))
	if err != nil {
		return doc, err
	}
	return doc.SetDefault("llmSettings.ollama.keepAliveTime", DefaultKeepAliveMinutes)
}

func noop(env Env, doc state.Document) (state.Document, error) {
	return doc, nil
}

// isBlank reports a missing, null or empty-string value.
func isBlank(r gjson.Result) bool {
	return !r.Exists() || r.Type == gjson.Null || (r.Type == gjson.String && r.Str == "")
}
