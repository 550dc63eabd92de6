package harness

import (
	"github.com/roach88/stateshift/internal/state"
	"github.com/roach88/stateshift/internal/store"
)

// TraceEvent is one step recorded in migration history.
type TraceEvent struct {
	RunID   string `json:"run_id"`
	Version int    `json:"version"`
	Name    string `json:"name"`
	Before  string `json:"before"`
	After   string `json:"after"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the expect clause and every assertion hold.
	Pass bool `json:"pass"`

	// Status is the status of the last recorded run. Empty when the
	// document was rejected before a run began.
	Status store.RunStatus `json:"status,omitempty"`

	From int `json:"from"`
	To   int `json:"to"`

	// Trace holds the recorded steps of every run, oldest first.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expect and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Document is the document left in the store after the run.
	Document state.Document `json:"-"`

	// Err is the error Initialize returned, if any.
	Err error `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Versions lists the recorded step versions in trace order.
func (r *Result) Versions() []int {
	out := make([]int, len(r.Trace))
	for i, ev := range r.Trace {
		out[i] = ev.Version
	}
	return out
}
