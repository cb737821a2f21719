package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/open-sync-router/pkg/entitymap"
)

type buildOptions struct {
	entity string
	side   string
	input  string
	wrap   bool
}

func newBuildCmd(rootOpts *RootOptions) *cobra.Command {
	opts := buildOptions{side: string(entitymap.SideSource), input: "-"}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the target write payload from a normalized record",
		Long: `Build the nested target payload from a normalized record (a JSON object
keyed by norm_name), exactly as a create or update would send it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(rootOpts, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.entity, "entity", "e", "", "entity name used to look up the map")
	fs.StringVar(&opts.side, "side", opts.side, "side the entity name belongs to (source|target)")
	fs.StringVarP(&opts.input, "input", "i", opts.input, "normalized record JSON file, - for stdin")
	fs.BoolVar(&opts.wrap, "wrap", false, "wrap the payload under the target fields key")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

func runBuild(rootOpts *RootOptions, opts buildOptions, in io.Reader, out io.Writer) error {
	side, err := entitymap.ParseSide(opts.side)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --side", err)
	}
	env, err := loadEnvironment(rootOpts)
	if err != nil {
		return err
	}
	em, err := findEntity(env, opts.entity, side)
	if err != nil {
		return err
	}
	norm := entitymap.NewRecord()
	if err := readJSONInput(opts.input, in, norm); err != nil {
		return WrapExitError(ExitCommandError, "read input", err)
	}

	payload := entitymap.BuildPayload(norm, em, env.PayloadOptions())
	if opts.wrap {
		return writeJSON(out, map[string]any{env.Target.FieldsKey: payload})
	}
	return writeJSON(out, payload)
}
