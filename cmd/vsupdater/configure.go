// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Tander/vs-updater/internal/config"
)

// configureParams bundles the inputs for the configure command so
// runConfigure can be tested without a real Cobra command.
type configureParams struct {
	stdout     io.Writer
	cfg        *config.Config
	serverPath string // positional argument, may be relative
	dataPath   string // --data flag, may be empty
	url        string // --url flag, may be empty
	cdnURL     string // --cdn-url flag, may be empty
	save       func(*config.Config) error
}

// newConfigureCommand creates the `vsupdater configure` command, which records
// the server instance path (and optionally the world data path) in the config
// file.
func newConfigureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure <server-path>",
		Short: "Set the path to the server instance vsupdater manages",
		Long: `Set the path to the server instance vsupdater manages.

The rollback directory is derived automatically as a sibling of the server
directory ("server_old"). Use --data to also record the world data path used
by the worldbackup command.`,
		Example: `  # Record the server location
  vsupdater configure /srv/vintagestory/server

  # Also record the world data directory
  vsupdater configure /srv/vintagestory/server --data /srv/vintagestory/data`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			dataFlag, _ := cmd.Flags().GetString("data")
			urlFlag, _ := cmd.Flags().GetString("url")
			cdnFlag, _ := cmd.Flags().GetString("cdn-url")

			p := configureParams{
				stdout:     cmd.OutOrStdout(),
				cfg:        cfg,
				serverPath: args[0],
				dataPath:   dataFlag,
				url:        urlFlag,
				cdnURL:     cdnFlag,
				save:       config.Save,
			}

			return runConfigure(p)
		},
	}

	cmd.Flags().String("data", "", "world data directory to archive with 'worldbackup'")
	cmd.Flags().String("url", "", "override the file server index URL")
	cmd.Flags().String("cdn-url", "", "override the archive download URL")

	return cmd
}

// runConfigure resolves the given paths to absolute form, derives the
// rollback and world-backup locations, and persists the configuration.
func runConfigure(p configureParams) error {
	serverPath, err := filepath.Abs(p.serverPath)
	if err != nil {
		return fmt.Errorf("resolving server path: %w", err)
	}

	p.cfg.LocalServer.ServerPath = serverPath
	// The rollback directory lives next to the server directory so os.Rename
	// stays a same-filesystem move.
	p.cfg.LocalServer.BackupPath = filepath.Join(filepath.Dir(serverPath), "server_old")

	if p.dataPath != "" {
		dataPath, absErr := filepath.Abs(p.dataPath)
		if absErr != nil {
			return fmt.Errorf("resolving world data path: %w", absErr)
		}
		p.cfg.World.DataPath = dataPath
		if p.cfg.World.BackupDir == "" {
			p.cfg.World.BackupDir = filepath.Join(filepath.Dir(dataPath), "world_backups")
		}
	}

	if p.url != "" {
		p.cfg.Fileserver.URL = p.url
	}
	if p.cdnURL != "" {
		p.cfg.Fileserver.CDNURL = p.cdnURL
	}

	if err := p.save(p.cfg); err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "Server path:   %s\n", CmdStyle.Render(p.cfg.LocalServer.ServerPath))
	fmt.Fprintf(p.stdout, "Rollback path: %s\n", CmdStyle.Render(p.cfg.LocalServer.BackupPath))
	if p.cfg.World.DataPath != "" {
		fmt.Fprintf(p.stdout, "World data:    %s\n", CmdStyle.Render(p.cfg.World.DataPath))
		fmt.Fprintf(p.stdout, "World backups: %s\n", CmdStyle.Render(p.cfg.World.BackupDir))
	}
	fmt.Fprintln(p.stdout, SuccessStyle.Render("Configuration saved."))

	return nil
}
