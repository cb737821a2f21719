package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/r9s-ai/open-sync-router/pkg/config"
	"github.com/r9s-ai/open-sync-router/pkg/entitymap"
)

var (
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

type envIssues struct {
	Env    string            `json:"env"`
	Issues []entitymap.Issue `json:"issues"`
}

type validateResult struct {
	Valid        bool        `json:"valid"`
	Environments []envIssues `json:"environments"`
}

func newValidateCmd(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Lint every environment's entity maps",
		Long: `Load the environments file and lint all entity maps.

Errors (missing entity names, empty or duplicate norm_name) make the file
unloadable. Warnings flag path characters the tokenizer silently drops,
positional indexes in read paths and target paths that can never be written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd.OutOrStdout())
		},
	}
}

func runValidate(opts *RootOptions, out io.Writer) error {
	// Lint runs on the raw file: loading would stop at the first error.
	envs, err := config.LoadEnvironmentsUnvalidated(opts.EnvFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "load environments", err)
	}

	res := validateResult{Valid: true}
	for _, name := range envs.Names() {
		env, err := envs.Get(name)
		if err != nil {
			continue
		}
		issues := entitymap.LintAll(env.Entities, env.PayloadOptions())
		if err := env.ValidateEndpoints(); err != nil {
			issues = append(issues, entitymap.Issue{Severity: entitymap.SeverityError, Entity: "(endpoints)", Message: err.Error()})
		}
		if entitymap.HasErrors(issues) {
			res.Valid = false
		}
		if issues == nil {
			issues = []entitymap.Issue{}
		}
		res.Environments = append(res.Environments, envIssues{Env: name, Issues: issues})
	}

	if opts.Format == "json" {
		if err := writeJSON(out, res); err != nil {
			return err
		}
	} else {
		printValidateText(out, res)
	}
	if !res.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func printValidateText(out io.Writer, res validateResult) {
	for _, e := range res.Environments {
		_, _ = fmt.Fprintln(out, headerStyle.Render("environment "+e.Env))
		if len(e.Issues) == 0 {
			_, _ = fmt.Fprintln(out, "  "+okStyle.Render("ok"))
			continue
		}
		for _, is := range e.Issues {
			style := warningStyle
			if is.Severity == entitymap.SeverityError {
				style = errorStyle
			}
			_, _ = fmt.Fprintln(out, "  "+style.Render(is.String()))
		}
	}
}
