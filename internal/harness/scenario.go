package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stateshift/internal/store"
)

// Scenario defines a migration scenario: a stored document, the step table
// to run over it and the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Locale is the locale handed to steps. Defaults to en-US.
	Locale string `yaml:"locale,omitempty"`

	// Through truncates the shipped step table at this version. Zero runs
	// the whole table.
	Through int `yaml:"through,omitempty"`

	// Checkpoint persists the document after every step.
	Checkpoint bool `yaml:"checkpoint,omitempty"`

	// Document is the stored JSON body before the run. Empty means a fresh
	// install with nothing stored.
	Document string `yaml:"document,omitempty"`

	// Expect checks the run status and error.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the stored document and recorded history.
	Assertions []Assertion `yaml:"assertions"`
}

// ExpectClause specifies the expected run outcome.
type ExpectClause struct {
	// Status is the expected status of the last run.
	Status store.RunStatus `yaml:"status,omitempty"`

	// Error is the expected error kind. Empty expects success.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the stored document or the recorded history.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Path is a gjson path (path_equals, path_absent).
	Path string `yaml:"path,omitempty"`

	// Value is the expected value (version, path_equals).
	Value any `yaml:"value,omitempty"`

	// IDs are the expected provider ids in order (providers).
	IDs []string `yaml:"ids,omitempty"`

	// Steps are the expected recorded step versions (steps_applied).
	Steps []int `yaml:"steps,omitempty"`
}

// Assertion type constants.
const (
	AssertVersion      = "version"
	AssertProviders    = "providers"
	AssertPathEquals   = "path_equals"
	AssertPathAbsent   = "path_absent"
	AssertStepsApplied = "steps_applied"
	AssertIdempotent   = "idempotent"
)

var runStatuses = []store.RunStatus{
	store.RunSeeded, store.RunCurrent, store.RunCompleted, store.RunFailed,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario from YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		sc, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if prev, dup := seen[sc.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", filepath.Base(path), sc.Name, prev)
		}
		seen[sc.Name] = filepath.Base(path)
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Through < 0 {
		return fmt.Errorf("through must be non-negative, got %d", s.Through)
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or a non-empty assertions list is required")
	}

	if s.Expect != nil {
		if s.Expect.Status != "" && !slices.Contains(runStatuses, s.Expect.Status) {
			return fmt.Errorf("expect: unknown status %q", s.Expect.Status)
		}
		if s.Expect.Error != "" {
			if _, ok := errorKind(s.Expect.Error); !ok {
				return fmt.Errorf("expect: unknown error kind %q", s.Expect.Error)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertVersion:
		if _, ok := a.Value.(int); !ok {
			return fmt.Errorf("assertions[%d]: integer value is required for version", index)
		}
	case AssertProviders:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids list is required for providers", index)
		}
	case AssertPathEquals:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for path_equals", index)
		}
	case AssertPathAbsent:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for path_absent", index)
		}
	case AssertStepsApplied:
		if a.Steps == nil {
			return fmt.Errorf("assertions[%d]: steps list is required for steps_applied", index)
		}
	case AssertIdempotent:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
