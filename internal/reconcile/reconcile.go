// Package reconcile merges user-owned provider and model collections with
// the built-in catalog.
//
// Merges only ever add. An entry already present in the user collection is
// kept exactly as the user left it, including its API key and endpoint;
// built-in entries the user lacks are appended after the existing ones in
// catalog order. Inputs are never modified.
package reconcile

import (
	"github.com/roach88/stateshift/internal/catalog"
	"github.com/roach88/stateshift/internal/state"
)

// MergeProviders appends a seeded entry for every canonical provider whose
// id is absent from existing.
func MergeProviders(existing []state.Provider, canonical []catalog.Provider) []state.Provider {
	out := make([]state.Provider, 0, len(existing)+len(canonical))
	present := make(map[string]struct{}, len(existing)+len(canonical))
	for _, p := range existing {
		out = append(out, p.Clone())
		present[p.ID] = struct{}{}
	}
	for _, c := range canonical {
		if _, ok := present[c.ID]; ok {
			continue
		}
		out = append(out, SeedProvider(c))
		present[c.ID] = struct{}{}
	}
	return out
}

// MergeModels returns the union of existing and canonical keyed on model id.
// The first occurrence of an id wins, so duplicates already present in
// existing collapse onto the earlier entry.
func MergeModels(providerID string, existing []state.Model, canonical []catalog.Model) []state.Model {
	out := make([]state.Model, 0, len(existing)+len(canonical))
	present := make(map[string]struct{}, len(existing)+len(canonical))
	for _, m := range existing {
		if _, dup := present[m.ID]; dup {
			continue
		}
		out = append(out, m.Clone())
		present[m.ID] = struct{}{}
	}
	for _, c := range canonical {
		if _, dup := present[c.ID]; dup {
			continue
		}
		out = append(out, SeedModel(providerID, c))
		present[c.ID] = struct{}{}
	}
	return out
}

// SeedProvider builds the user entry a fresh install or an upgrade gets for
// a built-in provider: no key, the default endpoint and the models enabled
// by default.
func SeedProvider(c catalog.Provider) state.Provider {
	defaults := c.DefaultModels()
	models := make([]state.Model, 0, len(defaults))
	for _, m := range defaults {
		models = append(models, SeedModel(c.ID, m))
	}
	return state.Provider{
		ID:        c.ID,
		Name:      c.Name,
		APIKey:    "",
		Endpoint:  c.Endpoint,
		Models:    models,
		Enabled:   c.Enabled,
		IsBuiltIn: true,
	}
}

// SeedModel converts a catalog model into a user model owned by providerID.
func SeedModel(providerID string, m catalog.Model) state.Model {
	return state.Model{
		ID:       m.ID,
		Provider: providerID,
		Name:     m.Name,
		Group:    m.Group,
	}
}

// Added lists ids in merged that are absent from existing, in merged order.
func Added(existing, merged []state.Provider) []string {
	present := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		present[p.ID] = struct{}{}
	}
	var ids []string
	for _, p := range merged {
		if _, ok := present[p.ID]; !ok {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
