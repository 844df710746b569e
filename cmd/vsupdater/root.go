// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for vsupdater.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/Tander/vs-updater/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "vsupdater",
		Short: "Update and back up a self-hosted Vintage Story server",
		Long: TitleStyle.Render("vsupdater") + SubtitleStyle.Render(" - Vintage Story dedicated server updater") + `

vsupdater keeps a self-hosted Vintage Story server up to date: it checks
the vendor file server for new releases, downloads and applies updates in
place with automatic rollback, and archives the world save data before
risky operations.

Before updating, set the ABSOLUTE path to your server instance:

  vsupdater configure /absolute/path/to/your/server

` + SubtitleStyle.Render("Examples:") + `
  vsupdater check             Report whether an update is available
  vsupdater update            Download and apply the newest release
  vsupdater update --force    Reinstall regardless of the version check
  vsupdater worldbackup       Archive the world save data
  vsupdater autoupdate        Back up and update when needed (for cron)`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/vsupdater/config.toml)")

	// Add subcommands
	rootCmd.AddCommand(newConfigureCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newUpdateCommand())
	rootCmd.AddCommand(newWorldBackupCommand())
	rootCmd.AddCommand(newAutoUpdateCommand())
	rootCmd.AddCommand(newConfigCommand())
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig wires the --config flag into the config package before any
// command runs.
func initRootConfig() {
	if cfgFile != "" {
		config.SetConfigFilePathOverride(cfgFile)
	}
}

// loadConfig loads the configuration for a command, surfacing load errors
// with the config file path for context.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}
