package state

import (
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Provider is a user-owned LLM provider entry.
//
// APIKey and Endpoint belong to the user once the entry exists; migrations
// may append models but never rewrite those fields.
type Provider struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	APIKey    string  `json:"apiKey"`
	Endpoint  string  `json:"apiHost"`
	Models    []Model `json:"models"`
	Enabled   bool    `json:"enabled"`
	IsBuiltIn bool    `json:"isSystem"`

	// Extra holds keys this version does not know about.
	Extra map[string]json.RawMessage `json:"-"`
}

// Model is a model entry inside a provider's model collection.
type Model struct {
	ID          string `json:"id"`
	Provider    string `json:"provider"`
	Name        string `json:"name"`
	Group       string `json:"group"`
	OwnedBy     string `json:"owned_by,omitempty"`
	Description string `json:"description,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type providerFields Provider

type modelFields Model

func (p Provider) MarshalJSON() ([]byte, error) {
	fields := providerFields(p)
	if fields.Models == nil {
		fields.Models = []Model{}
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return joinExtra(out, p.Extra)
}

// UnmarshalJSON decodes the known keys leniently. A known key holding a value
// of the wrong type (a string "enabled", a model list with bare strings) is
// kept verbatim in Extra and the field is left at its zero value, so the
// entry still migrates and the value is written back unchanged.
func (p *Provider) UnmarshalJSON(data []byte) error {
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("provider is %s, want object", describe(root))
	}
	var out Provider
	root.ForEach(func(key, value gjson.Result) bool {
		ok := true
		switch key.String() {
		case "id":
			out.ID, ok = stringValue(value)
		case "name":
			out.Name, ok = stringValue(value)
		case "apiKey":
			out.APIKey, ok = stringValue(value)
		case "apiHost":
			out.Endpoint, ok = stringValue(value)
		case "enabled":
			out.Enabled, ok = boolValue(value)
		case "isSystem":
			out.IsBuiltIn, ok = boolValue(value)
		case "models":
			out.Models, ok = modelsValue(value)
		default:
			ok = false
		}
		if !ok {
			out.Extra = keepExtra(out.Extra, key.String(), value)
		}
		return true
	})
	*p = out
	return nil
}

func (m Model) MarshalJSON() ([]byte, error) {
	out, err := json.Marshal(modelFields(m))
	if err != nil {
		return nil, err
	}
	return joinExtra(out, m.Extra)
}

// UnmarshalJSON follows the same rules as Provider.UnmarshalJSON.
func (m *Model) UnmarshalJSON(data []byte) error {
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("model is %s, want object", describe(root))
	}
	var out Model
	root.ForEach(func(key, value gjson.Result) bool {
		ok := true
		switch key.String() {
		case "id":
			out.ID, ok = stringValue(value)
		case "provider":
			out.Provider, ok = stringValue(value)
		case "name":
			out.Name, ok = stringValue(value)
		case "group":
			out.Group, ok = stringValue(value)
		case "owned_by":
			out.OwnedBy, ok = stringValue(value)
		case "description":
			out.Description, ok = stringValue(value)
		default:
			ok = false
		}
		if !ok {
			out.Extra = keepExtra(out.Extra, key.String(), value)
		}
		return true
	})
	*m = out
	return nil
}

// HasAPIKey reports whether the user has supplied a key.
func (p Provider) HasAPIKey() bool {
	return p.APIKey != ""
}

// ModelIDs lists model ids in collection order.
func (p Provider) ModelIDs() []string {
	ids := make([]string, len(p.Models))
	for i, m := range p.Models {
		ids[i] = m.ID
	}
	return ids
}

// Clone returns a deep copy, so callers can edit models without aliasing.
func (p Provider) Clone() Provider {
	out := p
	if p.Models != nil {
		out.Models = make([]Model, len(p.Models))
		for i, m := range p.Models {
			out.Models[i] = m.Clone()
		}
	}
	out.Extra = cloneExtra(p.Extra)
	return out
}

func (m Model) Clone() Model {
	out := m
	out.Extra = cloneExtra(m.Extra)
	return out
}

// FindProvider returns the index of the provider with id, or -1.
func FindProvider(providers []Provider, id string) int {
	for i, p := range providers {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func stringValue(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.String:
		return v.Str, true
	case gjson.Null:
		return "", true
	}
	return "", false
}

func boolValue(v gjson.Result) (bool, bool) {
	switch v.Type {
	case gjson.True, gjson.False:
		return v.Bool(), true
	case gjson.Null:
		return false, true
	}
	return false, false
}

// modelsValue decodes a model list. Anything but an array of objects is
// reported as a mismatch.
func modelsValue(v gjson.Result) ([]Model, bool) {
	if v.Type == gjson.Null {
		return nil, true
	}
	if !v.IsArray() {
		return nil, false
	}
	items := v.Array()
	models := make([]Model, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			return nil, false
		}
		var m Model
		if err := m.UnmarshalJSON([]byte(item.Raw)); err != nil {
			return nil, false
		}
		models = append(models, m)
	}
	return models, true
}

func keepExtra(extra map[string]json.RawMessage, key string, value gjson.Result) map[string]json.RawMessage {
	if extra == nil {
		extra = make(map[string]json.RawMessage)
	}
	extra[key] = json.RawMessage(value.Raw)
	return extra
}

func joinExtra(out []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var err error
	for _, k := range keys {
		out, err = sjson.SetRawBytes(out, escapePath(k), extra[k])
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func cloneExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		raw := make(json.RawMessage, len(v))
		copy(raw, v)
		out[k] = raw
	}
	return out
}

// escapePath escapes gjson/sjson path metacharacters in a single key.
func escapePath(key string) string {
	if !strings.ContainsAny(key, `.*?|#@!\`) {
		return key
	}
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
