package state

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Snapshot is the fully typed shape of a document at the latest schema
// version. It builds compiled-in defaults and drives the published JSON
// Schema; migrations themselves work on Document paths so that fields this
// struct does not know about survive.
type Snapshot struct {
	SchemaVersion    int             `json:"schemaVersion" jsonschema:"minimum=0"`
	Providers        []Provider      `json:"providers"`
	DefaultModel     *Model          `json:"defaultModel,omitempty"`
	TopicNamingModel *Model          `json:"topicNamingModel,omitempty"`
	TranslateModel   *Model          `json:"translateModel,omitempty"`
	LLMSettings      LLMSettings     `json:"llmSettings"`
	Settings         Settings        `json:"settings"`
	Assistants       AssistantsState `json:"assistants"`
	Agents           AgentsState     `json:"agents"`
}

type LLMSettings struct {
	Ollama OllamaSettings `json:"ollama"`
}

type OllamaSettings struct {
	KeepAliveTime int `json:"keepAliveTime" jsonschema:"description=minutes a loaded model stays resident"`
}

// Settings holds application-wide preferences.
type Settings struct {
	Language                 string `json:"language"`
	ShowAssistants           bool   `json:"showAssistants"`
	ProxyURL                 string `json:"proxyUrl,omitempty"`
	UserName                 string `json:"userName"`
	ShowMessageDivider       bool   `json:"showMessageDivider"`
	MessageFont              string `json:"messageFont" jsonschema:"enum=system,enum=serif"`
	ShowInputEstimatedTokens bool   `json:"showInputEstimatedTokens"`
	Theme                    string `json:"theme" jsonschema:"enum=auto,enum=light,enum=dark"`
	SendMessageShortcut      string `json:"sendMessageShortcut,omitempty"`
}

type AssistantsState struct {
	DefaultAssistant Assistant   `json:"defaultAssistant"`
	Assistants       []Assistant `json:"assistants"`
}

type Assistant struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Prompt      string             `json:"prompt"`
	Topics      []Topic            `json:"topics"`
	Emoji       string             `json:"emoji,omitempty"`
	Description string             `json:"description,omitempty"`
	Model       *Model             `json:"model,omitempty"`
	Settings    *AssistantSettings `json:"settings,omitempty"`
}

type AssistantSettings struct {
	ContextCount    int     `json:"contextCount"`
	Temperature     float64 `json:"temperature"`
	MaxTokens       *int    `json:"maxTokens,omitempty"`
	EnableMaxTokens bool    `json:"enableMaxTokens"`
}

type Topic struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Messages []any  `json:"messages"`
}

type AgentsState struct {
	Agents []Agent `json:"agents"`
}

type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	Description string `json:"description,omitempty"`
	Prompt      string `json:"prompt"`
	Group       string `json:"group"`
}

// Document encodes the snapshot.
func (s Snapshot) Document() (Document, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return Document{}, fmt.Errorf("encode snapshot: %w", err)
	}
	return Parse(raw)
}

// DecodeSnapshot reads d into the typed shape. Unknown keys are ignored.
func DecodeSnapshot(d Document) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(d.raw, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return s, nil
}
