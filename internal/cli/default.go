package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/stateshift/internal/migrate"
	"github.com/roach88/stateshift/internal/state"
)

// document wraps a state document so text output is canonical JSON and
// structured output embeds it as a value.
type document struct {
	doc state.Document
}

func (d document) String() string {
	b, err := state.MarshalCanonical(d.doc)
	if err != nil {
		return d.doc.String() + "\n"
	}
	return string(b) + "\n"
}

func (d document) MarshalJSON() ([]byte, error) {
	return state.MarshalCanonical(d.doc)
}

// NewDefaultCommand creates the default command.
func NewDefaultCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "default",
		Short: "Print the document a fresh install starts from",
		Long: `Print the default document at the latest version as canonical JSON.

The assistant names are resolved for the configured locale.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDefault(rootOpts, cmd)
		},
	}
}

func runDefault(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := newSession(opts, cmd)
	if err != nil {
		return outputError(formatter, "loading configuration", err)
	}
	defer s.Close()

	doc, err := migrate.DefaultDocument(s.env, s.reg.Latest())
	if err != nil {
		return outputError(formatter, "building default document", err)
	}
	return formatter.Success(document{doc: doc})
}
