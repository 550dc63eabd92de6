package cli

import (
	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/roach88/stateshift/internal/state"
)

// SchemaID is the $id of the published document schema.
const SchemaID = "https://github.com/roach88/stateshift/schema/state.json"

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the latest document shape",
		Long: `Print the JSON Schema of a document at the latest version.

Additional properties are allowed everywhere: migrations preserve keys they
do not know about.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			schema := documentSchema()
			if formatter.Format == "text" {
				out, err := json.MarshalIndent(schema, "", "  ")
				if err != nil {
					_ = formatter.Error(ErrCodeSchemaFailure, err.Error(), nil)
					return WrapExitError(ExitFailure, ErrCodeSchemaFailure, err)
				}
				_, err = cmd.OutOrStdout().Write(append(out, '\n'))
				return err
			}
			return formatter.Success(schema)
		},
	}
}

// documentSchema reflects state.Snapshot into a JSON Schema.
func documentSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
	}
	schema := r.Reflect(&state.Snapshot{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "stateshift document"
	return schema
}
