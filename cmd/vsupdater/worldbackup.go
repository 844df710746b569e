// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Tander/vs-updater/internal/backup"
	"github.com/Tander/vs-updater/internal/updater"
)

// worldBackupParams bundles the dependencies and flags for the worldbackup
// command so runWorldBackup can be tested without a real Cobra command.
type worldBackupParams struct {
	stdout       io.Writer
	archiver     *backup.Archiver
	versionLabel string // installed server version, empty when unreadable
	list         bool   // --list: show existing archives instead of creating one
}

// newWorldBackupCommand creates the `vsupdater worldbackup` command, which
// archives the world data directory and prunes old archives.
func newWorldBackupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worldbackup",
		Short: "Archive the world save data",
		Long: `Archive the world save data.

The configured world data directory is packed into a timestamped tar.gz in
the backup directory, and the oldest archives beyond the retention count are
removed. Use --list to show the existing archives instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			listFlag, _ := cmd.Flags().GetBool("list")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			archiver, err := newArchiver(cfg)
			if err != nil {
				return err
			}

			p := worldBackupParams{
				stdout:   cmd.OutOrStdout(),
				archiver: archiver,
				list:     listFlag,
			}

			// The installed version labels the archive; an unreadable
			// installation falls back to an unlabeled name.
			if version, verErr := updater.InstalledVersion(cfg.LocalServer.ServerPath); verErr == nil {
				p.versionLabel = version
			}

			if err := runWorldBackup(cmd.Context(), p); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+err.Error())
				code := 2
				if errors.Is(err, backup.ErrNoDataPath) || errors.Is(err, backup.ErrNoBackupDir) {
					code = 1
				}
				return &ExitError{Code: code, Err: err}
			}

			return nil
		},
	}

	cmd.Flags().Bool("list", false, "list existing world archives instead of creating one")

	return cmd
}

// runWorldBackup creates a new archive (or lists the existing ones) and
// prunes old archives beyond the retention count.
func runWorldBackup(ctx context.Context, p worldBackupParams) error {
	if p.list {
		archives, err := p.archiver.List()
		if err != nil {
			return err
		}
		if len(archives) == 0 {
			fmt.Fprintln(p.stdout, "No world archives found.")
			return nil
		}
		for _, a := range archives {
			fmt.Fprintf(p.stdout, "%s  %s  (%d bytes)\n",
				a.ModTime.UTC().Format("2006-01-02 15:04:05"), CmdStyle.Render(a.Name), a.Size)
		}
		return nil
	}

	archivePath, err := p.archiver.Create(ctx, p.versionLabel)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.stdout, "World archived to %s\n", CmdStyle.Render(archivePath))

	removed, err := p.archiver.Prune()
	if err != nil {
		return err
	}
	for _, name := range removed {
		fmt.Fprintf(p.stdout, "Pruned old archive %s\n", name)
	}

	fmt.Fprintln(p.stdout, SuccessStyle.Render("World backup complete."))
	return nil
}
