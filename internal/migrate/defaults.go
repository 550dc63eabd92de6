package migrate

import (
	"fmt"

	"github.com/roach88/stateshift/internal/reconcile"
	"github.com/roach88/stateshift/internal/state"
)

// DefaultKeepAliveMinutes is how long ollama keeps a model loaded.
const DefaultKeepAliveMinutes = 5

// DefaultAssistantID identifies the assistant every install starts with.
const DefaultAssistantID = "default"

// DefaultDocument builds the document a fresh install starts from, already
// stamped at latest. It carries every catalog provider introduced at or
// before latest and the settings each step up to latest would have added.
func DefaultDocument(env Env, latest int) (state.Document, error) {
	if env.Catalog == nil {
		return state.Document{}, fmt.Errorf("default document: %w: no catalog configured", ErrUnknownProvider)
	}

	canonical := env.Catalog.ProvidersAsOf(latest)
	providers := reconcile.MergeProviders(nil, canonical)

	snap := state.Snapshot{
		SchemaVersion: latest,
		Providers:     providers,
		LLMSettings: state.LLMSettings{
			Ollama: state.OllamaSettings{KeepAliveTime: DefaultKeepAliveMinutes},
		},
		Settings: state.Settings{
			Language:                 env.locale(),
			ShowAssistants:           true,
			UserName:                 "",
			ShowMessageDivider:       true,
			MessageFont:              "system",
			ShowInputEstimatedTokens: false,
			Theme:                    "auto",
			SendMessageShortcut:      "Enter",
		},
		Agents: state.AgentsState{Agents: []state.Agent{}},
	}

	if m, ok := primaryModel(providers); ok {
		snap.DefaultModel = &m
		topic, translate := m.Clone(), m.Clone()
		snap.TopicNamingModel = &topic
		snap.TranslateModel = &translate
	}

	assistant := defaultAssistant(env)
	snap.Assistants = state.AssistantsState{
		DefaultAssistant: assistant,
		Assistants:       []state.Assistant{defaultAssistant(env)},
	}

	return snap.Document()
}

// primaryModel picks the first model of the first enabled provider, falling
// back to the first provider that has any model.
func primaryModel(providers []state.Provider) (state.Model, bool) {
	for _, p := range providers {
		if p.Enabled && len(p.Models) > 0 {
			return p.Models[0].Clone(), true
		}
	}
	for _, p := range providers {
		if len(p.Models) > 0 {
			return p.Models[0].Clone(), true
		}
	}
	return state.Model{}, false
}

func defaultAssistant(env Env) state.Assistant {
	return state.Assistant{
		ID:     DefaultAssistantID,
		Name:   env.translate("assistant.default.name"),
		Prompt: "",
		Topics: []state.Topic{{
			ID:       DefaultAssistantID,
			Name:     env.translate("assistant.default.topic.name"),
			Messages: []any{},
		}},
	}
}
