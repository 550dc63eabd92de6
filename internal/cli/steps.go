package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stateshift/internal/catalog"
	"github.com/roach88/stateshift/internal/migrate"
)

// StepInfo identifies one registered migration step.
type StepInfo struct {
	Version int    `json:"version"`
	Name    string `json:"name"`

	// Seeds lists the catalog providers the step introduces.
	Seeds []string `json:"seeds,omitempty"`
}

// StepsResult lists the registered steps.
type StepsResult struct {
	Base   int        `json:"base"`
	Latest int        `json:"latest"`
	Steps  []StepInfo `json:"steps"`
}

func (r StepsResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d step(s), versions %d..%d\n", len(r.Steps), r.Base+1, r.Latest)
	for _, s := range r.Steps {
		if len(s.Seeds) > 0 {
			fmt.Fprintf(&b, "  %3d  %s (+%s)\n", s.Version, s.Name, strings.Join(s.Seeds, ", +"))
			continue
		}
		fmt.Fprintf(&b, "  %3d  %s\n", s.Version, s.Name)
	}
	return b.String()
}

// NewStepsCommand creates the steps command.
func NewStepsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "steps",
		Short:         "List the registered migration steps",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			cat, err := catalog.Builtin()
			if err != nil {
				_ = formatter.Error(ErrCodeCatalog, err.Error(), nil)
				return WrapExitError(ExitCommandError, "loading catalog", err)
			}
			return formatter.Success(listSteps(migrate.Builtin(), cat))
		},
	}
}

func listSteps(reg *migrate.Registry, cat *catalog.Catalog) StepsResult {
	res := StepsResult{Base: reg.Base(), Latest: reg.Latest(), Steps: make([]StepInfo, 0, reg.Len())}
	for _, s := range reg.Steps() {
		info := StepInfo{Version: s.Version, Name: s.Name}
		for _, p := range cat.IntroducedAt(s.Version) {
			info.Seeds = append(info.Seeds, p.ID)
		}
		res.Steps = append(res.Steps, info)
	}
	return res
}
