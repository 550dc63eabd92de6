package migrate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stateshift/internal/catalog"
	"github.com/roach88/stateshift/internal/locale"
	"github.com/roach88/stateshift/internal/state"
)

func testEnv(t *testing.T, loc string) Env {
	t.Helper()
	bundle, err := locale.Builtin()
	require.NoError(t, err)
	tr := locale.NewTranslator(bundle, loc)
	cat, err := catalog.Builtin()
	require.NoError(t, err)
	return Env{
		Catalog:   cat,
		Locale:    func() string { return loc },
		Translate: tr.Translate,
	}
}

func parse(t *testing.T, s string) state.Document {
	t.Helper()
	d, err := state.Parse([]byte(s))
	require.NoError(t, err)
	return d
}

func providerIDs(t *testing.T, d state.Document) []string {
	t.Helper()
	providers, err := d.Providers()
	require.NoError(t, err)
	ids := make([]string, len(providers))
	for i, p := range providers {
		ids[i] = p.ID
	}
	return ids
}

func version(t *testing.T, d state.Document) int {
	t.Helper()
	v, err := d.Version()
	require.NoError(t, err)
	return v
}
