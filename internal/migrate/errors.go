package migrate

import (
	"errors"
	"fmt"

	"github.com/roach88/stateshift/internal/state"
)

var (
	// ErrMalformedDocument reports a document too corrupt to migrate, such
	// as a non-object root or a providers value that is not a collection.
	ErrMalformedDocument = state.ErrMalformed

	// ErrStepFailure reports a step that returned an error, panicked or
	// broke a protected field. Use errors.As with *StepError for details.
	ErrStepFailure = errors.New("migration step failed")

	// ErrUnknownVersionGap reports a hole in the step table between the
	// document's version and the latest registered version.
	ErrUnknownVersionGap = errors.New("unknown version gap")

	// ErrProtectedField reports a step that rewrote user-owned data.
	ErrProtectedField = errors.New("protected field changed")

	// ErrVersionAhead reports a document stamped by a newer release.
	ErrVersionAhead = errors.New("document version ahead of registry")

	// ErrDuplicateVersion reports two steps registered for one version.
	ErrDuplicateVersion = errors.New("duplicate step version")

	// ErrInvalidVersion reports a step version below 1.
	ErrInvalidVersion = errors.New("invalid step version")

	// ErrUnknownProvider reports a step referencing a catalog provider that
	// does not exist at the step's version.
	ErrUnknownProvider = errors.New("unknown catalog provider")
)

// StepError wraps the failure of a single step. The document returned
// alongside it is the one stamped by the previous step.
type StepError struct {
	Version int
	Name    string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Version, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Is makes every StepError match ErrStepFailure.
func (e *StepError) Is(target error) bool {
	return target == ErrStepFailure
}

// GapError names the first missing version.
type GapError struct {
	After   int
	Missing int
	Latest  int
}

func (e *GapError) Error() string {
	return fmt.Sprintf("no step registered for version %d (after %d, latest %d)", e.Missing, e.After, e.Latest)
}

func (e *GapError) Is(target error) bool {
	return target == ErrUnknownVersionGap
}

// ProtectedFieldError describes a rewrite of user-owned data. Field values
// are never included since they may be secrets.
type ProtectedFieldError struct {
	ProviderID string
	Field      string
	Reason     string
}

func (e *ProtectedFieldError) Error() string {
	if e.ProviderID == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("provider %q %s: %s", e.ProviderID, e.Field, e.Reason)
}

func (e *ProtectedFieldError) Is(target error) bool {
	return target == ErrProtectedField
}
