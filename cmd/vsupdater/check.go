// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Tander/vs-updater/internal/updater"
)

// checkParams bundles the dependencies for the check command, enabling the
// core logic in runCheck to be tested without a real Cobra command or live
// file server.
type checkParams struct {
	stdout  io.Writer
	updater *updater.Updater
}

// newCheckCommand creates the `vsupdater check` command, which reports
// whether a newer server release has been published.
func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check whether a server update is available",
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

			p := checkParams{
				stdout:  cmd.OutOrStdout(),
				updater: u,
			}

			if err := runCheck(cmd.Context(), p); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+formatUpdateError(err))
				return &ExitError{Code: classifyUpdateExitCode(err), Err: err}
			}

			return nil
		},
	}
}

// runCheck fetches the newest published version, compares it with the
// installed one, and reports the result.
func runCheck(ctx context.Context, p checkParams) error {
	check, err := p.updater.Check(ctx, "")
	if err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "Installed version: %s\n", check.CurrentVersion)
	fmt.Fprintf(p.stdout, "Published version: %s\n", check.LatestVersion)
	fmt.Fprintln(p.stdout)

	if check.UpdateAvailable {
		fmt.Fprintln(p.stdout, WarningStyle.Render(check.Message))
		fmt.Fprintln(p.stdout, "Run 'vsupdater update' to install.")
	} else {
		fmt.Fprintln(p.stdout, SuccessStyle.Render(check.Message))
	}

	return nil
}
