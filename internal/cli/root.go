package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/open-sync-router/pkg/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string
	Env     string
	Format  string // "text" | "json"
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "osr-admin",
		Short:         "Inspect and exercise open-sync-router entity maps offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "./env.yaml", "environments file path")
	cmd.PersistentFlags().StringVar(&opts.Env, "env", "", "environment name (default: the file's default)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(newNormalizeCmd(opts))
	cmd.AddCommand(newBuildCmd(opts))
	cmd.AddCommand(newTUICmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func loadEnvironments(opts *RootOptions) (*config.Environments, error) {
	envs, err := config.LoadEnvironments(opts.EnvFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load environments", err)
	}
	return envs, nil
}

func loadEnvironment(opts *RootOptions) (*config.Environment, error) {
	envs, err := loadEnvironments(opts)
	if err != nil {
		return nil, err
	}
	env, err := envs.Get(opts.Env)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "select environment", err)
	}
	return env, nil
}
