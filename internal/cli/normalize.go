package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/open-sync-router/pkg/config"
	"github.com/r9s-ai/open-sync-router/pkg/entitymap"
)

type normalizeOptions struct {
	entity string
	side   string
	input  string
}

func newNormalizeCmd(rootOpts *RootOptions) *cobra.Command {
	opts := normalizeOptions{side: string(entitymap.SideSource), input: "-"}
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize a raw source or target record through an entity map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(rootOpts, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.entity, "entity", "e", "", "entity name on the chosen side")
	fs.StringVar(&opts.side, "side", opts.side, "side the raw record comes from (source|target)")
	fs.StringVarP(&opts.input, "input", "i", opts.input, "raw record JSON file, - for stdin")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

func runNormalize(rootOpts *RootOptions, opts normalizeOptions, in io.Reader, out io.Writer) error {
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
	var raw any
	if err := readJSONInput(opts.input, in, &raw); err != nil {
		return WrapExitError(ExitCommandError, "read input", err)
	}

	norm := entitymap.Normalize(raw, em, side)
	if rootOpts.Format == "json" {
		return writeJSON(out, norm)
	}
	for _, k := range norm.Keys() {
		v, _ := norm.Get(k)
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%s = %s\n", k, b); err != nil {
			return err
		}
	}
	return nil
}

func findEntity(env *config.Environment, name string, side entitymap.Side) (entitymap.EntityMap, error) {
	em, ok := env.Entities.Find(name, side)
	if !ok {
		return entitymap.EntityMap{}, NewExitError(ExitCommandError,
			fmt.Sprintf("%s entity %q not found in environment %q (known: %v)", side, name, env.Name, env.Entities.Names(side)))
	}
	return em, nil
}
