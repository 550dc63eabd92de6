package harness

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/sebdah/goldie/v2"

	"github.com/roach88/stateshift/internal/state"
)

// Snapshot is the golden view of a scenario run. It leaves out
// fingerprints and run ids so it stays readable when steps change.
type Snapshot struct {
	Scenario  string         `json:"scenario"`
	Status    string         `json:"status,omitempty"`
	From      int            `json:"from"`
	To        int            `json:"to"`
	Steps     []SnapshotStep `json:"steps"`
	Version   *int           `json:"version,omitempty"`
	Providers []string       `json:"providers,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// SnapshotStep is one applied step in a Snapshot.
type SnapshotStep struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
}

// NewSnapshot summarizes result for golden comparison.
func NewSnapshot(name string, result *Result) Snapshot {
	snap := Snapshot{
		Scenario: name,
		Status:   string(result.Status),
		From:     result.From,
		To:       result.To,
		Steps:    make([]SnapshotStep, len(result.Trace)),
		Error:    Classify(result.Err),
	}
	for i, ev := range result.Trace {
		snap.Steps[i] = SnapshotStep{Version: ev.Version, Name: ev.Name}
	}
	if result.stored() {
		if v, err := result.Document.Version(); err == nil {
			snap.Version = &v
		}
		if ids, err := providerIDs(result.Document); err == nil {
			snap.Providers = ids
		}
	}
	return snap
}

// MarshalCanonical encodes the snapshot as canonical JSON.
func (s Snapshot) MarshalCanonical() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	doc, err := state.Parse(data)
	if err != nil {
		return nil, err
	}
	return state.MarshalCanonical(doc)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can make further checks. Test failure
// (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the snapshot of an existing result against a
// golden file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
