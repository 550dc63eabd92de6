package locale

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var messagesSource []byte

// Bundle maps a BCP 47 tag to its flat key/message table.
type Bundle map[string]map[string]string

// ParseBundle decodes a YAML bundle. Every top-level key must be a valid tag.
func ParseBundle(data []byte) (Bundle, error) {
	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse message bundle: %w", err)
	}
	for tag := range b {
		if _, err := language.Parse(tag); err != nil {
			return nil, fmt.Errorf("message bundle: invalid locale %q: %w", tag, err)
		}
	}
	if _, ok := b[Fallback]; !ok {
		return nil, fmt.Errorf("message bundle: missing %s table", Fallback)
	}
	return b, nil
}

var (
	builtinOnce   sync.Once
	builtinBundle Bundle
	builtinErr    error
)

// Builtin returns the embedded message bundle.
func Builtin() (Bundle, error) {
	builtinOnce.Do(func() {
		builtinBundle, builtinErr = ParseBundle(messagesSource)
	})
	return builtinBundle, builtinErr
}

// Translator resolves message keys for one locale.
type Translator struct {
	locale   string
	messages map[string]string
	fallback map[string]string
}

// NewTranslator picks the bundle table that best matches locale. When no
// table matches, the Fallback table is used.
func NewTranslator(bundle Bundle, locale string) *Translator {
	tags := make([]string, 0, len(bundle))
	for tag := range bundle {
		if tag != Fallback {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	// The fallback goes first so it is returned on no match.
	tags = append([]string{Fallback}, tags...)

	supported := make([]language.Tag, len(tags))
	for i, tag := range tags {
		supported[i] = language.MustParse(tag)
	}

	chosen := Fallback
	if want, err := language.Parse(Normalize(locale)); err == nil {
		_, idx, conf := language.NewMatcher(supported).Match(want)
		if conf != language.No {
			chosen = tags[idx]
		}
	}

	return &Translator{
		locale:   chosen,
		messages: bundle[chosen],
		fallback: bundle[Fallback],
	}
}

// Locale reports the bundle table in use.
func (t *Translator) Locale() string {
	return t.locale
}

// Translate returns the message for key. Missing keys fall back to the
// Fallback table and then to the key itself.
func (t *Translator) Translate(key string) string {
	if msg, ok := t.messages[key]; ok {
		return msg
	}
	if msg, ok := t.fallback[key]; ok {
		return msg
	}
	return key
}
