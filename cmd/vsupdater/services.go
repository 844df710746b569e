// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/Tander/vs-updater/internal/backup"
	"github.com/Tander/vs-updater/internal/config"
	"github.com/Tander/vs-updater/internal/updater"
)

// newUpdater builds the updater facade from the loaded configuration.
// Fails when the server path has not been configured yet.
func newUpdater(cfg *config.Config) (*updater.Updater, error) {
	serverPath, err := cfg.RequireServerPath()
	if err != nil {
		return nil, err
	}

	client := updater.NewClient(
		updater.WithBaseURL(cfg.Fileserver.URL),
		updater.WithCDNURL(cfg.Fileserver.CDNURL),
		updater.WithUserAgent("vsupdater/"+Version),
	)

	return updater.New(serverPath, cfg.LocalServer.BackupPath,
		updater.WithClient(client),
		updater.WithLogger(newLogger("updater")),
	), nil
}

// newArchiver builds the world-backup archiver from the loaded configuration.
// Fails when the world data path has not been configured yet.
func newArchiver(cfg *config.Config) (*backup.Archiver, error) {
	dataPath, err := cfg.RequireDataPath()
	if err != nil {
		return nil, err
	}

	return backup.NewArchiver(dataPath, cfg.World.BackupDir,
		backup.WithKeep(cfg.World.Keep),
		backup.WithLogger(newLogger("backup")),
	), nil
}

// newLogger creates a prefixed logger for a domain component, honoring the
// global --verbose flag.
func newLogger(prefix string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: prefix,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
