package migrate

import (
	"fmt"

	"github.com/roach88/stateshift/internal/state"
)

// checkProtected compares the documents on either side of a step. A step
// may add providers and models, but it may not drop a provider, change a
// key the user entered, or move the version stamp backwards.
func checkProtected(before, after state.Document) error {
	vBefore, err := before.Version()
	if err != nil {
		return err
	}
	vAfter, err := after.Version()
	if err != nil {
		return err
	}
	if vAfter < vBefore {
		return &ProtectedFieldError{
			Field:  state.VersionKey,
			Reason: fmt.Sprintf("decreased from %d to %d", vBefore, vAfter),
		}
	}

	old, err := before.Providers()
	if err != nil {
		return err
	}
	cur, err := after.Providers()
	if err != nil {
		return err
	}

	// Ids are not required to be unique, so entries are matched by their
	// occurrence among providers sharing an id.
	byID := make(map[string][]state.Provider, len(cur))
	for _, p := range cur {
		byID[p.ID] = append(byID[p.ID], p)
	}

	seen := make(map[string]int, len(old))
	for _, p := range old {
		n := seen[p.ID]
		seen[p.ID] = n + 1
		if n >= len(byID[p.ID]) {
			return &ProtectedFieldError{ProviderID: p.ID, Field: "id", Reason: "provider removed"}
		}
		if next := byID[p.ID][n]; p.HasAPIKey() && next.APIKey != p.APIKey {
			return &ProtectedFieldError{ProviderID: p.ID, Field: "apiKey", Reason: "user key overwritten"}
		}
	}
	return nil
}
