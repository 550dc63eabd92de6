package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stateshift/internal/catalog"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	AsOf   int
	Source bool
}

// CatalogResult lists catalog providers.
type CatalogResult struct {
	AsOf      int                `json:"asOf,omitempty"`
	Providers []catalog.Provider `json:"providers"`
}

func (r CatalogResult) String() string {
	var b strings.Builder
	if r.AsOf > 0 {
		fmt.Fprintf(&b, "%d provider(s) as of version %d\n", len(r.Providers), r.AsOf)
	} else {
		fmt.Fprintf(&b, "%d provider(s)\n", len(r.Providers))
	}
	for _, p := range r.Providers {
		mark := " "
		if p.Enabled {
			mark = "*"
		}
		fmt.Fprintf(&b, "%s %-12s since %-3d %-3d model(s)  %s\n", mark, p.ID, p.Since, len(p.Models), p.Endpoint)
	}
	return b.String()
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the built-in provider catalog",
		Long: `List the providers compiled into this release.

With --as-of N only providers a document at version N has been seeded with
are listed. --source prints the CUE definition instead.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.AsOf, "as-of", 0, "only providers introduced at or before this version")
	cmd.Flags().BoolVar(&opts.Source, "source", false, "print the catalog CUE source")

	return cmd
}

func runCatalog(opts *CatalogOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Source {
		_, err := cmd.OutOrStdout().Write(catalog.Source())
		return err
	}
	if opts.AsOf < 0 {
		_ = formatter.Error(ErrCodeGeneric, "--as-of must not be negative", nil)
		return NewExitError(ExitCommandError, "--as-of must not be negative")
	}

	cat, err := catalog.Builtin()
	if err != nil {
		return outputError(formatter, "compiling catalog", err)
	}

	res := CatalogResult{AsOf: opts.AsOf, Providers: cat.All()}
	if opts.AsOf > 0 {
		res.Providers = cat.ProvidersAsOf(opts.AsOf)
	}
	return formatter.Success(res)
}
