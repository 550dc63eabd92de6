package catalog

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Compile evaluates a CUE catalog table and builds a Catalog from its
// top-level providers list.
//
// Schema violations (unknown fields, wrong types, malformed endpoints) are
// reported by CUE with positions; duplicate ids are reported against the
// offending entry.
func Compile(filename string, src []byte) (*Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	list := v.LookupPath(cue.ParsePath("providers"))
	if !list.Exists() {
		return nil, &CompileError{
			Field:   "providers",
			Message: "providers is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var providers []Provider
	seen := make(map[string]token.Pos)
	for i := 0; iter.Next(); i++ {
		item := iter.Value()

		var p Provider
		if err := item.Decode(&p); err != nil {
			return nil, formatCUEError(err)
		}

		if prev, dup := seen[p.ID]; dup {
			return nil, &CompileError{
				Field:   fmt.Sprintf("providers[%d].id", i),
				Message: fmt.Sprintf("duplicate provider %q (first defined at %s)", p.ID, prev),
				Pos:     item.Pos(),
			}
		}
		seen[p.ID] = item.Pos()

		if err := checkModels(item, p); err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	return New(providers...)
}

func checkModels(item cue.Value, p Provider) error {
	ids := make(map[string]struct{}, len(p.Models))
	for j, m := range p.Models {
		if _, dup := ids[m.ID]; dup {
			pos := item.LookupPath(cue.MakePath(cue.Str("models"), cue.Index(j))).Pos()
			return &CompileError{
				Field:   fmt.Sprintf("%s.models[%d].id", p.ID, j),
				Message: fmt.Sprintf("duplicate model %q", m.ID),
				Pos:     pos,
			}
		}
		ids[m.ID] = struct{}{}
	}
	return nil
}

// CompileError is a catalog error with an optional CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets callers match any compile failure with ErrInvalidCatalog.
func (e *CompileError) Is(target error) bool {
	return target == ErrInvalidCatalog
}

// formatCUEError converts the first CUE error into a CompileError carrying
// its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return &CompileError{Field: "cue", Message: first.Error()}
}
