// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tander/vs-updater/internal/backup"
	"github.com/Tander/vs-updater/internal/config"
	"github.com/Tander/vs-updater/internal/tui"
	"github.com/Tander/vs-updater/internal/updater"
)

// updateParams bundles the dependencies and flags for the update command,
// enabling the core logic in runUpdate to be tested without a real Cobra
// command or live file server.
type updateParams struct {
	stdout   io.Writer
	stderr   io.Writer
	updater  *updater.Updater
	archiver *backup.Archiver // nil when no world backup should be taken
	target   string           // target version (empty = newest)
	force    bool             // --force: apply regardless of the version check
	yes      bool             // --yes: skip confirmation prompt
	confirm  func(title string) (bool, error)
}

// newUpdateCommand creates the `vsupdater update` command, which downloads
// and applies a server update with automatic rollback on failure.
func newUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [version]",
		Short: "Download and apply a server update",
		Long: `Download and apply a server update.

The update command downloads the release archive from the vendor CDN,
verifies its SHA256 checksum when one is published, moves the current
installation aside, and unpacks the new release in its place. The launcher
script (server.sh) is carried over from the previous installation. On any
failure the previous installation is restored.

Unless --skip-backup is given (or no world data path is configured), the
world save data is archived before the installation is touched.`,
		Example: `  # Update to the newest release
  vsupdater update

  # Reinstall regardless of the version check
  vsupdater update --force

  # Update to a specific version without prompting
  vsupdater update 1.19.8 --yes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			forceFlag, _ := cmd.Flags().GetBool("force")
			yesFlag, _ := cmd.Flags().GetBool("yes")
			skipBackupFlag, _ := cmd.Flags().GetBool("skip-backup")

			var target string
			if len(args) > 0 {
				target = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			u, err := newUpdater(cfg)
			if err != nil {
				return err
			}

			p := updateParams{
				stdout:  cmd.OutOrStdout(),
				stderr:  cmd.ErrOrStderr(),
				updater: u,
				target:  target,
				force:   forceFlag,
				yes:     yesFlag,
				confirm: confirmPrompt,
			}

			// A world backup is taken when a data path is configured; it is
			// never an error to have none, the update simply proceeds without.
			if !skipBackupFlag && cfg.World.DataPath != "" {
				p.archiver, err = newArchiver(cfg)
				if err != nil {
					return err
				}
			}

			if err := runUpdate(cmd.Context(), p); err != nil {
				fmt.Fprintln(p.stderr, ErrorStyle.Render("Error: ")+formatUpdateError(err))
				return &ExitError{Code: classifyUpdateExitCode(err), Err: err}
			}

			return nil
		},
	}

	cmd.Flags().Bool("force", false, "apply the update regardless of the version check")
	cmd.Flags().BoolP("yes", "y", false, "skip confirmation prompt")
	cmd.Flags().Bool("skip-backup", false, "do not archive the world data before updating")

	return cmd
}

// runUpdate is the core update logic, separated from Cobra for testability.
// All user-facing output goes through p.stdout and p.stderr.
//
// Flow:
//  1. Compare the installed version against the newest (or target) release.
//  2. If up to date and not --force, report status and return.
//  3. Confirm with the user (unless --yes).
//  4. Archive the world data (unless suppressed or unconfigured).
//  5. Download, verify, and install; the updater rolls back on failure.
func runUpdate(ctx context.Context, p updateParams) error {
	check, err := p.updater.Check(ctx, p.target)
	if err != nil {
		return fmt.Errorf("checking for update: %w", err)
	}

	fmt.Fprintf(p.stdout, "Installed version: %s\n", check.CurrentVersion)
	fmt.Fprintf(p.stdout, "Published version: %s\n", check.LatestVersion)

	if !check.UpdateAvailable {
		if !p.force {
			fmt.Fprintf(p.stdout, "\n%s\n", check.Message)
			return nil
		}
		fmt.Fprintln(p.stdout, WarningStyle.Render("--force given, updating the server anyway."))
	}

	if !p.yes {
		confirmed, confirmErr := p.confirm(
			fmt.Sprintf("Update server from %s to %s?", check.CurrentVersion, check.LatestVersion))
		if confirmErr != nil {
			if errors.Is(confirmErr, tui.ErrCancelled) {
				return nil
			}
			return fmt.Errorf("confirmation prompt: %w", confirmErr)
		}
		if !confirmed {
			return nil
		}
	}

	if p.archiver != nil {
		fmt.Fprintln(p.stdout, "Archiving world data...")
		archivePath, backupErr := p.archiver.Create(ctx, check.CurrentVersion)
		if backupErr != nil {
			return fmt.Errorf("world backup: %w", backupErr)
		}
		fmt.Fprintf(p.stdout, "World archived to %s\n", CmdStyle.Render(archivePath))

		if _, pruneErr := p.archiver.Prune(); pruneErr != nil {
			// Pruning failures must not abort the update.
			fmt.Fprintln(p.stderr, WarningStyle.Render("Warning: ")+pruneErr.Error())
		}
	}

	fmt.Fprintf(p.stdout, "\nDownloading server %s...\n", check.LatestVersion)

	if err := p.updater.Apply(ctx, check.LatestVersion); err != nil {
		return fmt.Errorf("applying update: %w", err)
	}

	fmt.Fprintln(p.stdout, SuccessStyle.Render(
		fmt.Sprintf("Server successfully updated to %s", check.LatestVersion)))

	return nil
}

// confirmPrompt shows the interactive yes/no prompt for the update flow.
func confirmPrompt(title string) (bool, error) {
	return tui.Confirm(tui.ConfirmOptions{
		Title:       title,
		Affirmative: "Yes",
		Negative:    "No",
		Default:     true,
	})
}

// classifyUpdateExitCode maps an update error to the appropriate process exit
// code. User-correctable conditions (missing configuration or installation,
// unknown version) use exit code 1; unexpected or transient failures use 2.
func classifyUpdateExitCode(err error) int {
	switch {
	case errors.Is(err, config.ErrNotConfigured):
		return 1
	case errors.Is(err, updater.ErrNotInstalled):
		return 1
	case errors.Is(err, updater.ErrVersionNotFound):
		return 1
	case errors.Is(err, updater.ErrInvalidVersion):
		return 1
	case errors.Is(err, os.ErrPermission):
		return 1
	default:
		return 2
	}
}

// formatUpdateError produces a user-friendly error message with actionable
// remediation guidance tailored to the specific error type.
func formatUpdateError(err error) string {
	var checksumErr *updater.ChecksumError
	if errors.As(err, &checksumErr) {
		return fmt.Sprintf("checksum verification failed for %s\n\nExpected: %s\nGot:      %s\n\nThe download may be corrupted. Please try again.",
			checksumErr.Filename, checksumErr.Expected, checksumErr.Got)
	}

	if errors.Is(err, updater.ErrNotInstalled) {
		return fmt.Sprintf("%s\n\nCheck the configured server path with 'vsupdater config show'.", err.Error())
	}

	if errors.Is(err, updater.ErrVersionNotFound) {
		return fmt.Sprintf("%s\n\nThe file server may be temporarily unavailable, or the requested version was never published.", err.Error())
	}

	if errors.Is(err, os.ErrPermission) {
		return "insufficient permissions to modify the server directory\n\nTry running as the user that owns the server files."
	}

	return fmt.Sprintf("%s\n\nCheck your network connection and try again.", err.Error())
}
