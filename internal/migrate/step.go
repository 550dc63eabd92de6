package migrate

import (
	"fmt"

	"github.com/roach88/stateshift/internal/catalog"
	"github.com/roach88/stateshift/internal/locale"
	"github.com/roach88/stateshift/internal/state"
)

// Func transforms a document into the next schema version. It must not
// stamp the version itself; the runner does that after it returns.
type Func func(env Env, doc state.Document) (state.Document, error)

// Step is one version-tagged schema change.
type Step struct {
	Version int
	Name    string
	Apply   Func
}

// Env carries the read-only collaborators steps may consult.
type Env struct {
	Catalog *catalog.Catalog

	// Locale returns the current locale as a BCP 47 tag.
	Locale func() string

	// Translate resolves a message key. Missing keys return the key.
	Translate func(key string) string
}

// BuiltinEnv wires the embedded catalog and message bundle. An empty
// localeOverride resolves the locale from the environment each time a step
// asks for it.
func BuiltinEnv(localeOverride string) (Env, error) {
	cat, err := catalog.Builtin()
	if err != nil {
		return Env{}, err
	}
	bundle, err := locale.Builtin()
	if err != nil {
		return Env{}, err
	}
	current := func() string { return locale.Current(localeOverride) }
	return Env{
		Catalog: cat,
		Locale:  current,
		Translate: func(key string) string {
			return locale.NewTranslator(bundle, current()).Translate(key)
		},
	}, nil
}

func (e Env) locale() string {
	if e.Locale == nil {
		return locale.Fallback
	}
	return e.Locale()
}

func (e Env) translate(key string) string {
	if e.Translate == nil {
		return key
	}
	return e.Translate(key)
}

// canonical resolves catalog providers for the step at version. Referencing
// an id the catalog does not have as of version is an error.
func (e Env) canonical(version int, ids ...string) ([]catalog.Provider, error) {
	if e.Catalog == nil {
		return nil, fmt.Errorf("%w: no catalog configured", ErrUnknownProvider)
	}
	out := make([]catalog.Provider, 0, len(ids))
	for _, id := range ids {
		p, ok := e.Catalog.Provider(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
		}
		if p.Since > version {
			return nil, fmt.Errorf("%w: %q is introduced at version %d, after %d", ErrUnknownProvider, id, p.Since, version)
		}
		out = append(out, p)
	}
	return out, nil
}
