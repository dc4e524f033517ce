// Package cli assembles the sitedata command tree.
package cli

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/campusweb/sitedata/internal/appctx"
	"github.com/campusweb/sitedata/internal/commands"
	"github.com/campusweb/sitedata/internal/config"
	"github.com/campusweb/sitedata/internal/output"
	"github.com/campusweb/sitedata/internal/version"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:   "sitedata",
		Short: "Locale-aware client for the institution website API",
		Long: `sitedata reads content from the institution website API in the active
language, falling back to the default language when the server fails.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip setup for help and version commands
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(config.FlagOverrides{
				BaseURL: flags.BaseURL,
				Locale:  flags.Lang,
			})
			if err != nil {
				return output.ErrUsageHint("Invalid configuration", err.Error())
			}

			app, err := appctx.NewApp(cfg)
			if err != nil {
				return err
			}
			resolvePreferences(cmd, cfg, &flags)
			app.Stdout = cmd.OutOrStdout()
			app.Stderr = cmd.ErrOrStderr()
			app.Flags = flags
			app.ApplyFlags()

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}
	cmd.SetVersionTemplate(version.Full() + "\n")

	// Allow flags anywhere in the command line
	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	// Output format flags
	cmd.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	cmd.PersistentFlags().BoolVar(&flags.YAML, "yaml", false, "Output as YAML")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	cmd.PersistentFlags().BoolVar(&flags.Styled, "styled", false, "Force styled output (ANSI colors)")
	cmd.PersistentFlags().BoolVar(&flags.Count, "count", false, "Output only count")

	// Context flags
	cmd.PersistentFlags().StringVar(&flags.BaseURL, "base-url", "", "Site API base URL")
	cmd.PersistentFlags().StringVarP(&flags.Lang, "lang", "l", "", "Locale to request (e.g. ru, en, kg)")

	// Behavior flags
	cmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for fetches, -vv for requests)")
	cmd.PersistentFlags().BoolVar(&flags.Stats, "stats", false, "Show session statistics")

	return cmd
}

// resolvePreferences applies config-file preferences for flags the user did
// not pass explicitly.
func resolvePreferences(cmd *cobra.Command, cfg *config.Config, flags *appctx.GlobalFlags) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(name)
		}
		return f != nil && f.Changed
	}
	if !changed("stats") && cfg.Stats != nil {
		flags.Stats = *cfg.Stats
	}
	if !changed("verbose") && cfg.Verbose != nil {
		flags.Verbose = *cfg.Verbose
	}
}

// NewApplication returns the root command with every subcommand attached.
func NewApplication() *cobra.Command {
	cmd := NewRootCmd()
	cmd.AddCommand(
		commands.NewGetCmd(),
		commands.NewSearchCmd(),
		commands.NewBrowseCmd(),
		commands.NewLocalesCmd(),
		commands.NewConfigCmd(),
		commands.NewCommandsCmd(),
		commands.NewVersionCmd(),
	)
	return cmd
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	return run(NewApplication(), os.Args[1:])
}

// run executes cmd with args. Errors are rendered through the app's writer
// when setup succeeded, or directly to the command's output otherwise.
func run(cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	executedCmd, err := cmd.ExecuteC()
	if err == nil {
		return output.ExitOK
	}

	err = transformCobraError(err)
	apiErr := output.AsError(err)

	// app.Err adds --stats output when available
	if executedCmd != nil {
		if app := appctx.FromContext(executedCmd.Context()); app != nil {
			_ = app.Err(err)
			return apiErr.ExitCode()
		}
	}

	// Setup failed before the app existed; pick the format from flags.
	pf := cmd.PersistentFlags()
	format := output.FormatAuto
	quiet, _ := pf.GetBool("quiet")
	count, _ := pf.GetBool("count")
	styled, _ := pf.GetBool("styled")
	yamlFlag, _ := pf.GetBool("yaml")
	jsonFlag, _ := pf.GetBool("json")

	switch {
	case quiet:
		format = output.FormatQuiet
	case count:
		format = output.FormatCount
	case jsonFlag:
		format = output.FormatJSON
	case yamlFlag:
		format = output.FormatYAML
	case styled:
		format = output.FormatStyled
	}

	writer := output.New(output.Options{Format: format, Writer: cmd.OutOrStdout()})
	_ = writer.Err(err)

	return apiErr.ExitCode()
}

var shorthandFlagRe = regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)

// transformCobraError turns cobra's argument and flag errors into usage
// errors so they map to the usage exit code.
func transformCobraError(err error) error {
	var outErr *output.Error
	if errors.As(err, &outErr) {
		return err
	}
	msg := err.Error()

	// "flag needs an argument: --FLAG" → "--FLAG requires a value"
	if strings.HasPrefix(msg, "flag needs an argument: ") {
		flag := strings.TrimPrefix(msg, "flag needs an argument: ")
		return output.ErrUsage(flag + " requires a value")
	}

	if strings.HasPrefix(msg, "unknown flag: ") {
		flag := strings.TrimPrefix(msg, "unknown flag: ")
		return output.ErrUsage("Unknown option: " + flag)
	}

	if strings.HasPrefix(msg, "unknown shorthand flag: ") {
		if matches := shorthandFlagRe.FindStringSubmatch(msg); len(matches) > 1 {
			return output.ErrUsage("Unknown option: " + matches[1])
		}
	}

	if strings.HasPrefix(msg, "unknown command ") {
		return output.ErrUsageHint(msg, "Run 'sitedata commands' to list commands")
	}

	if strings.Contains(msg, "invalid argument") {
		return output.ErrUsage(msg)
	}

	// "accepts 1 arg(s), received 0" and friends
	if strings.Contains(msg, "arg(s)") {
		return output.ErrUsage(fmt.Sprintf("Wrong number of arguments: %s", msg))
	}

	return err
}
