package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stateshift/internal/catalog"
	"github.com/roach88/stateshift/internal/state"
)

// SmallCatalog returns a two-provider catalog: "alpha" since version 1 and
// "beta" since version 2. Use it with a registry built from SeedSteps.
func SmallCatalog(t testing.TB) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(
		catalog.Provider{
			ID:       "alpha",
			Name:     "Alpha",
			Endpoint: "https://alpha.example",
			Enabled:  true,
			Since:    1,
			Models: []catalog.Model{
				{ID: "a-large", Name: "A Large", Group: "a", Enabled: true},
				{ID: "a-small", Name: "A Small", Group: "a", Enabled: true},
			},
		},
		catalog.Provider{
			ID:       "beta",
			Name:     "Beta",
			Endpoint: "https://beta.example",
			Since:    2,
			Models: []catalog.Model{
				{ID: "b-1", Name: "B One", Group: "b", Enabled: true},
				{ID: "b-legacy", Name: "B Legacy", Group: "b"},
			},
		},
	)
	require.NoError(t, err)
	return c
}

// Doc parses a JSON object literal into a document.
func Doc(t testing.TB, s string) state.Document {
	t.Helper()
	d, err := state.Parse([]byte(s))
	require.NoError(t, err)
	return d
}

// ProviderIDs returns the provider ids of d in order.
func ProviderIDs(t testing.TB, d state.Document) []string {
	t.Helper()
	providers, err := d.Providers()
	require.NoError(t, err)
	ids := make([]string, len(providers))
	for i, p := range providers {
		ids[i] = p.ID
	}
	return ids
}

// Version returns the stamped version of d.
func Version(t testing.TB, d state.Document) int {
	t.Helper()
	v, err := d.Version()
	require.NoError(t, err)
	return v
}
