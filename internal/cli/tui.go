package cli

import (
	"github.com/spf13/cobra"

	"github.com/r9s-ai/open-sync-router/internal/tui"
)

func newTUICmd(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse environments, entity maps and fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			envs, err := loadEnvironments(rootOpts)
			if err != nil {
				return err
			}
			return tui.Run(envs, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
