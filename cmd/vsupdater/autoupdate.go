// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Tander/vs-updater/internal/backup"
	"github.com/Tander/vs-updater/internal/updater"
)

// autoUpdateParams bundles the dependencies for the autoupdate command so
// runAutoUpdate can be tested without a real Cobra command.
type autoUpdateParams struct {
	stdout   io.Writer
	stderr   io.Writer
	updater  *updater.Updater
	archiver *backup.Archiver // nil when no world data path is configured
}

// newAutoUpdateCommand creates the `vsupdater autoupdate` command: check,
// back up, and update in one non-interactive invocation, intended for cron.
func newAutoUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "autoupdate",
		Short: "Back up the world and update the server when a new release is out",
		Long: `Back up the world and update the server when a new release is out.

autoupdate never prompts: when the installed version is current it exits
quietly, otherwise it archives the world data (when a data path is
configured) and applies the update. Intended to run from cron.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			u, err := newUpdater(cfg)
			if err != nil {
				return err
			}

			p := autoUpdateParams{
				stdout:  cmd.OutOrStdout(),
				stderr:  cmd.ErrOrStderr(),
				updater: u,
			}

			if cfg.World.DataPath != "" {
				p.archiver, err = newArchiver(cfg)
				if err != nil {
					return err
				}
			}

			if err := runAutoUpdate(cmd.Context(), p); err != nil {
				fmt.Fprintln(p.stderr, ErrorStyle.Render("Error: ")+formatUpdateError(err))
				return &ExitError{Code: classifyUpdateExitCode(err), Err: err}
			}

			return nil
		},
	}
}

// runAutoUpdate applies the newest release when the installed server is
// outdated, taking a world backup first. Up to date is a quiet no-op.
func runAutoUpdate(ctx context.Context, p autoUpdateParams) error {
	check, err := p.updater.Check(ctx, "")
	if err != nil {
		return fmt.Errorf("checking for update: %w", err)
	}

	if !check.UpdateAvailable {
		fmt.Fprintln(p.stdout, check.Message)
		return nil
	}

	fmt.Fprintln(p.stdout, check.Message)

	if p.archiver != nil {
		archivePath, backupErr := p.archiver.Create(ctx, check.CurrentVersion)
		if backupErr != nil {
			return fmt.Errorf("world backup: %w", backupErr)
		}
		fmt.Fprintf(p.stdout, "World archived to %s\n", archivePath)

		if _, pruneErr := p.archiver.Prune(); pruneErr != nil {
			fmt.Fprintln(p.stderr, WarningStyle.Render("Warning: ")+pruneErr.Error())
		}
	}

	if err := p.updater.Apply(ctx, check.LatestVersion); err != nil {
		return fmt.Errorf("applying update: %w", err)
	}

	fmt.Fprintf(p.stdout, "Server updated to %s\n", check.LatestVersion)
	return nil
}
