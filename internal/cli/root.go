// Package cli is the docwatch command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"docwatch/internal/app"
	"docwatch/internal/config"
)

const defaultConfigPath = "./docwatch.yaml"

type RootOptions struct {
	ConfigPath string
	EnvFile    string
	Format     string // "text" | "json"

	// configSet is true when --config was given explicitly.
	configSet bool

	// newApp builds the application; tests replace it.
	newApp func(cfg *config.Config) (*app.App, error)
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{
		newApp: func(cfg *config.Config) (*app.App, error) { return app.New(cfg) },
	}
	return newRootCommand(opts)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docwatch",
		Short: "Watch a remote document and deliver it as PDF when it changes",
		Long: `docwatch downloads a document from a web page on a schedule, detects
content changes by fingerprint, converts changed documents to PDF and sends
the PDF to a Telegram chat. The same content is never delivered twice.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if f := cmd.Flag("config"); f != nil {
				opts.configSet = f.Changed
			}
			if opts.Format != "text" && opts.Format != "json" {
				return exitErr(ExitCommandError, fmt.Sprintf("invalid format %q: must be text or json", opts.Format), nil)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath, "path to config file (yaml or json); without it only DOCWATCH_* variables are used")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the config")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(
		newRunCommand(opts),
		newOnceCommand(opts),
		newNotifyCommand(opts),
		newStatusCommand(opts),
	)
	return cmd
}

// configPath is the file to load. A missing default file means an
// environment-only setup; a missing explicit file is an error.
func (o *RootOptions) configPath() string {
	if o.configSet {
		return o.ConfigPath
	}
	if _, err := os.Stat(o.ConfigPath); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return o.ConfigPath
}

// open loads config and builds the app. The caller closes the app.
func (o *RootOptions) open() (*app.App, error) {
	cfg, err := config.Load(o.configPath(), o.EnvFile)
	if err != nil {
		return nil, exitErr(ExitCommandError, "config", err)
	}
	a, err := o.newApp(cfg)
	if err != nil {
		return nil, exitErr(ExitCommandError, "startup", err)
	}
	return a, nil
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "docwatch:", err)
	}
	return ExitCode(err)
}
