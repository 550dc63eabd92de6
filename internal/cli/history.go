package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/stateshift/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Steps bool
}

// RunHistory is one run with, optionally, its steps.
type RunHistory struct {
	store.Run
	Steps []store.StepRecord `json:"steps,omitempty"`
}

// HistoryResult lists recorded runs oldest first.
type HistoryResult struct {
	Key  string       `json:"key"`
	Runs []RunHistory `json:"runs"`
}

func (r HistoryResult) String() string {
	var b strings.Builder
	if len(r.Runs) == 0 {
		fmt.Fprintf(&b, "No runs recorded for %q.\n", r.Key)
		return b.String()
	}
	for _, run := range r.Runs {
		fmt.Fprintf(&b, "%-4d %-36s %-9s %d -> %d  %s\n",
			run.Seq, run.ID, run.Status, run.From, run.To, run.StartedAt.Format(time.RFC3339))
		if run.Error != "" {
			fmt.Fprintf(&b, "     error: %s\n", run.Error)
		}
		for _, st := range run.Steps {
			fmt.Fprintf(&b, "     %3d  %-28s %s -> %s\n", st.Version, st.Name, short(st.Before), short(st.After))
		}
	}
	return b.String()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded migration runs",
		Long: `Show the migration runs recorded for the document key, oldest first.

History is only kept by the SQLite store.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Steps, "steps", false, "include the steps of each run")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return outputError(formatter, "loading configuration", err)
	}
	defer s.Close()

	if s.cfg.UseFile() {
		_ = formatter.Error(ErrCodeUnsupported, "history is only recorded by the sqlite store", nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: history needs the sqlite store", ErrCodeUnsupported))
	}
	if err := s.openStore(); err != nil {
		return outputStoreError(formatter, err)
	}

	ctx := commandContext(cmd)
	runs, err := s.db.Runs(ctx, s.cfg.Key)
	if err != nil {
		return outputError(formatter, "reading history", err)
	}

	res := HistoryResult{Key: s.cfg.Key, Runs: make([]RunHistory, 0, len(runs))}
	for _, run := range runs {
		h := RunHistory{Run: run}
		if opts.Steps {
			if h.Steps, err = s.db.Steps(ctx, run.ID); err != nil {
				return outputError(formatter, "reading history", err)
			}
		}
		res.Runs = append(res.Runs, h)
	}
	return formatter.Success(res)
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
