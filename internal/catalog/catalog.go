// Package catalog holds the built-in providers and models shipped with the
// application.
//
// The table lives in catalog.cue and is compiled with the CUE Go API when
// first requested. A Catalog is read-only once built; every accessor returns
// copies so callers cannot edit the shared table.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"
)

//go:embed catalog.cue
var builtinSource []byte

// BuiltinFilename is the name CUE positions report for the embedded table.
const BuiltinFilename = "catalog.cue"

// ErrInvalidCatalog reports a table that violates catalog rules
// (duplicate ids, missing introduction version).
var ErrInvalidCatalog = errors.New("invalid catalog")

// Provider is a built-in provider definition.
type Provider struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Endpoint         string   `json:"endpoint"`
	EditableEndpoint bool     `json:"editableEndpoint"`
	Enabled          bool     `json:"enabled"`
	Since            int      `json:"since"`
	Websites         Websites `json:"websites"`
	Models           []Model  `json:"models"`
}

// Websites are the provider's public links.
type Websites struct {
	Official string `json:"official,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
	Docs     string `json:"docs,omitempty"`
	Models   string `json:"models,omitempty"`
}

// Model is a built-in model. Enabled marks models seeded into a fresh
// provider entry.
type Model struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Group   string `json:"group"`
	Enabled bool   `json:"enabled"`
}

// DefaultModels returns the models enabled by default, in catalog order.
func (p Provider) DefaultModels() []Model {
	out := make([]Model, 0, len(p.Models))
	for _, m := range p.Models {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

// Model looks up a model by id.
func (p Provider) Model(id string) (Model, bool) {
	for _, m := range p.Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

func (p Provider) clone() Provider {
	out := p
	out.Models = append([]Model(nil), p.Models...)
	return out
}

// Catalog is an ordered, read-only set of providers.
type Catalog struct {
	providers []Provider
	byID      map[string]int
}

// New builds a catalog from providers, preserving their order.
func New(providers ...Provider) (*Catalog, error) {
	c := &Catalog{
		providers: make([]Provider, 0, len(providers)),
		byID:      make(map[string]int, len(providers)),
	}
	for i, p := range providers {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: provider[%d] has no id", ErrInvalidCatalog, i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate provider %q", ErrInvalidCatalog, p.ID)
		}
		if p.Since < 1 {
			return nil, fmt.Errorf("%w: provider %q: since must be >= 1, got %d", ErrInvalidCatalog, p.ID, p.Since)
		}
		seen := make(map[string]struct{}, len(p.Models))
		for _, m := range p.Models {
			if _, dup := seen[m.ID]; dup {
				return nil, fmt.Errorf("%w: provider %q: duplicate model %q", ErrInvalidCatalog, p.ID, m.ID)
			}
			seen[m.ID] = struct{}{}
		}
		c.byID[p.ID] = len(c.providers)
		c.providers = append(c.providers, p.clone())
	}
	return c, nil
}

// Provider looks up a provider by id.
func (c *Catalog) Provider(id string) (Provider, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Provider{}, false
	}
	return c.providers[i].clone(), true
}

// All returns every provider in catalog order.
func (c *Catalog) All() []Provider {
	return c.filter(func(Provider) bool { return true })
}

// ProvidersAsOf returns the providers a document at version has been seeded
// with, in catalog order.
func (c *Catalog) ProvidersAsOf(version int) []Provider {
	return c.filter(func(p Provider) bool { return p.Since <= version })
}

// IntroducedAt returns the providers first seeded by the step at version.
func (c *Catalog) IntroducedAt(version int) []Provider {
	return c.filter(func(p Provider) bool { return p.Since == version })
}

// Len returns the number of providers.
func (c *Catalog) Len() int {
	return len(c.providers)
}

func (c *Catalog) filter(keep func(Provider) bool) []Provider {
	out := make([]Provider, 0, len(c.providers))
	for _, p := range c.providers {
		if keep(p) {
			out = append(out, p.clone())
		}
	}
	return out
}

var (
	builtinOnce sync.Once
	builtin     *Catalog
	builtinErr  error
)

// Builtin returns the catalog compiled from the embedded table.
func Builtin() (*Catalog, error) {
	builtinOnce.Do(func() {
		builtin, builtinErr = Compile(BuiltinFilename, builtinSource)
	})
	return builtin, builtinErr
}

// Source returns the embedded CUE table.
func Source() []byte {
	return append([]byte(nil), builtinSource...)
}
