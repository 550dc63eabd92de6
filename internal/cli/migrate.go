package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stateshift/internal/bootstrap"
	"github.com/roach88/stateshift/internal/migrate"
	"github.com/roach88/stateshift/internal/state"
	"github.com/roach88/stateshift/internal/store"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	DryRun     bool
	Checkpoint bool

	// IDFunc overrides the run id generator (for testing).
	IDFunc func() string
}

// MigrateReport summarizes a migrate invocation.
type MigrateReport struct {
	RunID       string            `json:"runId,omitempty"`
	Status      store.RunStatus   `json:"status"`
	Location    string            `json:"location"`
	From        int               `json:"from"`
	To          int               `json:"to"`
	Applied     []migrate.Applied `json:"applied"`
	Added       []string          `json:"addedProviders,omitempty"`
	Fingerprint string            `json:"fingerprint"`
	DryRun      bool              `json:"dryRun,omitempty"`
}

func (r MigrateReport) String() string {
	var b strings.Builder
	prefix := ""
	if r.DryRun {
		prefix = "[dry run] "
	}
	switch r.Status {
	case store.RunSeeded:
		fmt.Fprintf(&b, "%s✓ Seeded default document at version %d (%s)\n", prefix, r.To, r.Location)
	case store.RunCurrent:
		fmt.Fprintf(&b, "%s✓ Document is current at version %d (%s)\n", prefix, r.To, r.Location)
	default:
		fmt.Fprintf(&b, "%s✓ Migrated %s from version %d to %d\n", prefix, r.Location, r.From, r.To)
		for _, a := range r.Applied {
			fmt.Fprintf(&b, "  %3d  %s\n", a.Version, a.Name)
		}
		if len(r.Added) > 0 {
			fmt.Fprintf(&b, "Added providers: %s\n", strings.Join(r.Added, ", "))
		}
	}
	fmt.Fprintf(&b, "Fingerprint: %s\n", r.Fingerprint)
	return b.String()
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the stored document to the latest version",
		Long: `Load the stored document, apply every pending migration step, and save it.

A store without a document is seeded with the default document. With
--dry-run the steps run in memory and nothing is written.

Exit codes:
  0 - Document is current
  1 - A step failed or the document cannot be migrated
  2 - Command error (config, store, etc.)

Examples:
  stateshift migrate
  stateshift migrate --db ./state.db --key profile
  stateshift migrate --file ./state.json --dry-run --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "run steps in memory without saving")
	cmd.Flags().BoolVar(&opts.Checkpoint, "checkpoint", true, "save after every step (overrides STATESHIFT_CHECKPOINT)")

	return cmd
}

func runMigrate(opts *MigrateOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return outputError(formatter, "loading configuration", err)
	}
	defer s.Close()

	if err := s.openStore(); err != nil {
		return outputStoreError(formatter, err)
	}
	formatter.VerboseLog("Store: %s", s.location())

	if opts.DryRun {
		return dryRun(commandContext(cmd), formatter, s)
	}

	checkpoint := s.cfg.Checkpoint
	if cmd.Flags().Changed("checkpoint") {
		checkpoint = opts.Checkpoint
	}

	out, err := bootstrap.Initialize(commandContext(cmd), s.docs, s.runner(), bootstrap.Options{
		IDFunc:     opts.IDFunc,
		Checkpoint: checkpoint,
		Logger:     &s.log,
	})
	if err != nil {
		return outputError(formatter, "migration failed", err)
	}

	fp, err := state.Fingerprint(out.Document)
	if err != nil {
		return outputError(formatter, "fingerprint", err)
	}
	return formatter.Success(MigrateReport{
		RunID:       out.RunID,
		Status:      out.Status,
		Location:    s.location(),
		From:        out.Result.From,
		To:          out.Result.To,
		Applied:     nonNilApplied(out.Result.Applied),
		Added:       out.Result.Added,
		Fingerprint: fp,
	})
}

func dryRun(ctx context.Context, formatter *OutputFormatter, s *session) error {
	doc, ok, err := s.docs.Load(ctx)
	if err != nil {
		return outputError(formatter, "loading document", err)
	}

	latest := s.reg.Latest()
	report := MigrateReport{Location: s.location(), DryRun: true, Applied: []migrate.Applied{}}
	if !ok {
		def, err := migrate.DefaultDocument(s.env, latest)
		if err != nil {
			return outputError(formatter, "building default document", err)
		}
		report.Status = store.RunSeeded
		report.From, report.To = latest, latest
		report.Fingerprint = state.MustFingerprint(def)
		return formatter.Success(report)
	}

	res, err := s.runner().Run(ctx, doc)
	if err != nil {
		return outputError(formatter, "migration failed", err)
	}
	report.Status = store.RunCompleted
	if !res.Changed() {
		report.Status = store.RunCurrent
	}
	report.From, report.To = res.From, res.To
	report.Applied = nonNilApplied(res.Applied)
	report.Added = res.Added
	report.Fingerprint = state.MustFingerprint(res.Document)
	return formatter.Success(report)
}

func nonNilApplied(a []migrate.Applied) []migrate.Applied {
	if a == nil {
		return []migrate.Applied{}
	}
	return a
}
