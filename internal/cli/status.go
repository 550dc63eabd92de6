package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stateshift/internal/state"
)

// StatusReport describes the stored document relative to this release.
type StatusReport struct {
	Location    string     `json:"location"`
	Exists      bool       `json:"exists"`
	Version     int        `json:"version"`
	Latest      int        `json:"latest"`
	Ahead       bool       `json:"ahead,omitempty"`
	Pending     []StepInfo `json:"pending"`
	Providers   int        `json:"providers"`
	Fingerprint string     `json:"fingerprint,omitempty"`
}

func (r StatusReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Location: %s\n", r.Location)
	if !r.Exists {
		fmt.Fprintf(&b, "No document stored; migrate will seed version %d.\n", r.Latest)
		return b.String()
	}
	fmt.Fprintf(&b, "Version:  %d (latest %d)\n", r.Version, r.Latest)
	fmt.Fprintf(&b, "Providers: %d\n", r.Providers)
	fmt.Fprintf(&b, "Fingerprint: %s\n", r.Fingerprint)
	switch {
	case r.Ahead:
		b.WriteString("Document is newer than this release.\n")
	case len(r.Pending) == 0:
		b.WriteString("Up to date.\n")
	default:
		fmt.Fprintf(&b, "Pending (%d):\n", len(r.Pending))
		for _, s := range r.Pending {
			fmt.Fprintf(&b, "  %3d  %s\n", s.Version, s.Name)
		}
	}
	return b.String()
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored document version and pending steps",
		Long: `Show the schema version of the stored document and the steps a migrate
would apply. Nothing is written.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := newSession(opts, cmd)
	if err != nil {
		return outputError(formatter, "loading configuration", err)
	}
	defer s.Close()

	if err := s.openStore(); err != nil {
		return outputStoreError(formatter, err)
	}

	doc, ok, err := s.docs.Load(commandContext(cmd))
	if err != nil {
		return outputError(formatter, "loading document", err)
	}

	report := StatusReport{
		Location: s.location(),
		Exists:   ok,
		Latest:   s.reg.Latest(),
		Pending:  []StepInfo{},
	}
	if !ok {
		return formatter.Success(report)
	}

	if report.Version, err = doc.Version(); err != nil {
		return outputError(formatter, "reading document", err)
	}
	providers, err := doc.Providers()
	if err != nil {
		return outputError(formatter, "reading document", err)
	}
	report.Providers = len(providers)
	report.Fingerprint = state.MustFingerprint(doc)
	report.Ahead = report.Version > report.Latest
	for _, step := range s.reg.Pending(report.Version) {
		report.Pending = append(report.Pending, StepInfo{Version: step.Version, Name: step.Name})
	}
	return formatter.Success(report)
}
