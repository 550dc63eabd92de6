package migrate

import (
	"cmp"
	"fmt"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry is the contiguous, ascending table of steps.
//
// Versions at or below Base are the original format and need no step.
// Every version in (Base, Latest] has exactly one step.
type Registry struct {
	steps *orderedmap.OrderedMap[int, Step]
}

// NewRegistry sorts steps by version and validates the table: versions are
// at least 1, unique and contiguous.
func NewRegistry(steps ...Step) (*Registry, error) {
	sorted := slices.Clone(steps)
	slices.SortStableFunc(sorted, func(a, b Step) int {
		return cmp.Compare(a.Version, b.Version)
	})

	om := orderedmap.New[int, Step]()
	for i, s := range sorted {
		if s.Version < 1 {
			return nil, fmt.Errorf("%w: step %q has version %d", ErrInvalidVersion, s.Name, s.Version)
		}
		if s.Apply == nil {
			return nil, fmt.Errorf("%w: step %d (%s) has no apply function", ErrInvalidVersion, s.Version, s.Name)
		}
		if prev, ok := om.Get(s.Version); ok {
			return nil, fmt.Errorf("%w: %d registered as %q and %q", ErrDuplicateVersion, s.Version, prev.Name, s.Name)
		}
		if i > 0 && s.Version != sorted[i-1].Version+1 {
			return nil, &GapError{
				After:   sorted[i-1].Version,
				Missing: sorted[i-1].Version + 1,
				Latest:  sorted[len(sorted)-1].Version,
			}
		}
		om.Set(s.Version, s)
	}
	return &Registry{steps: om}, nil
}

// MustRegistry is like NewRegistry but panics on an invalid table.
func MustRegistry(steps ...Step) *Registry {
	r, err := NewRegistry(steps...)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of steps.
func (r *Registry) Len() int {
	return r.steps.Len()
}

// Base is the version the first step upgrades from. An empty registry has
// base 0.
func (r *Registry) Base() int {
	first := r.steps.Oldest()
	if first == nil {
		return 0
	}
	return first.Key - 1
}

// Latest is the highest registered version, or Base for an empty registry.
func (r *Registry) Latest() int {
	last := r.steps.Newest()
	if last == nil {
		return r.Base()
	}
	return last.Key
}

// Step looks up the step for version.
func (r *Registry) Step(version int) (Step, bool) {
	return r.steps.Get(version)
}

// Steps returns every step in ascending order.
func (r *Registry) Steps() []Step {
	out := make([]Step, 0, r.steps.Len())
	for pair := r.steps.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Pending returns the steps with a version strictly greater than from,
// ascending.
func (r *Registry) Pending(from int) []Step {
	var out []Step
	for pair := r.steps.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key > from {
			out = append(out, pair.Value)
		}
	}
	slices.SortFunc(out, func(a, b Step) int {
		return cmp.Compare(a.Version, b.Version)
	})
	return out
}

// Through returns the prefix of the registry ending at version.
func (r *Registry) Through(version int) *Registry {
	om := orderedmap.New[int, Step]()
	for pair := r.steps.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key > version {
			break
		}
		om.Set(pair.Key, pair.Value)
	}
	return &Registry{steps: om}
}

// checkReachable reports a gap between from and the first step. Version 0
// means the document predates version stamps and is treated as Base.
func (r *Registry) checkReachable(from int) error {
	if r.Len() == 0 || from == 0 || from >= r.Base() {
		return nil
	}
	return &GapError{After: from, Missing: from + 1, Latest: r.Latest()}
}
