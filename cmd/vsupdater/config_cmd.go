// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tander/vs-updater/internal/config"
)

// newConfigCommand creates the `vsupdater config` command tree for inspecting
// and bootstrapping the configuration file.
func newConfigCommand() *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vsupdater configuration",
		Long: `Manage vsupdater configuration.

Configuration is stored in:
  - Linux: ~/.config/vsupdater/config.toml
  - macOS: ~/Library/Application Support/vsupdater/config.toml
  - Windows: %APPDATA%\vsupdater\config.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig()
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.FilePath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfigFile()
		},
	})

	return cfgCmd
}

// showConfig prints the resolved configuration with the shared style palette.
func showConfig() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path, err := config.FilePath()
	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render("Current Configuration"))
	fmt.Println()

	if _, statErr := os.Stat(path); statErr == nil {
		fmt.Printf("%s: %s\n", CmdStyle.Render("Config file"), path)
	} else {
		fmt.Printf("%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Println()

	fmt.Printf("%s: %s\n", CmdStyle.Render("fileserver.url"), SuccessStyle.Render(cfg.Fileserver.URL))
	fmt.Printf("%s: %s\n", CmdStyle.Render("fileserver.cdn_url"), SuccessStyle.Render(cfg.Fileserver.CDNURL))
	fmt.Printf("%s: %s\n", CmdStyle.Render("local_server.server_path"), renderValue(cfg.LocalServer.ServerPath))
	fmt.Printf("%s: %s\n", CmdStyle.Render("local_server.backup_path"), renderValue(cfg.LocalServer.BackupPath))
	fmt.Printf("%s: %s\n", CmdStyle.Render("world.data_path"), renderValue(cfg.World.DataPath))
	fmt.Printf("%s: %s\n", CmdStyle.Render("world.backup_dir"), renderValue(cfg.World.BackupDir))
	fmt.Printf("%s: %s\n", CmdStyle.Render("world.keep"), SuccessStyle.Render(fmt.Sprintf("%d", cfg.World.Keep)))

	return nil
}

// renderValue styles a config value, marking unset strings.
func renderValue(v string) string {
	if v == "" {
		return SubtitleStyle.Render("(not set)")
	}
	return SuccessStyle.Render(v)
}

// initConfigFile writes the default configuration, refusing to overwrite an
// existing file.
func initConfigFile() error {
	path, err := config.FilePath()
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(path); statErr == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := config.Save(config.DefaultConfig()); err != nil {
		return err
	}

	fmt.Printf("Created %s\n", CmdStyle.Render(path))
	return nil
}
