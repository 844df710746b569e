// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tander/vs-updater/internal/config"
)

func TestRunConfigure_DerivesRollbackPath(t *testing.T) {
	t.Parallel()

	var saved *config.Config
	cfg := config.DefaultConfig()

	var out bytes.Buffer
	p := configureParams{
		stdout:     &out,
		cfg:        cfg,
		serverPath: filepath.Join(t.TempDir(), "server"),
		save: func(c *config.Config) error {
			saved = c
			return nil
		},
	}

	if err := runConfigure(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if saved == nil {
		t.Fatal("save was not called")
	}
	if !filepath.IsAbs(saved.LocalServer.ServerPath) {
		t.Errorf("server path %q is not absolute", saved.LocalServer.ServerPath)
	}
	wantBackup := filepath.Join(filepath.Dir(saved.LocalServer.ServerPath), "server_old")
	if saved.LocalServer.BackupPath != wantBackup {
		t.Errorf("backup path = %q, want %q", saved.LocalServer.BackupPath, wantBackup)
	}
	if !strings.Contains(out.String(), "Configuration saved.") {
		t.Errorf("output %q does not confirm the save", out.String())
	}
}

func TestRunConfigure_ResolvesRelativePath(t *testing.T) {
	t.Parallel()

	var saved *config.Config
	p := configureParams{
		stdout:     &bytes.Buffer{},
		cfg:        config.DefaultConfig(),
		serverPath: "server",
		save: func(c *config.Config) error {
			saved = c
			return nil
		},
	}

	if err := runConfigure(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filepath.IsAbs(saved.LocalServer.ServerPath) {
		t.Errorf("relative input not resolved, got %q", saved.LocalServer.ServerPath)
	}
}

func TestRunConfigure_DataPathDerivesBackupDir(t *testing.T) {
	t.Parallel()

	base := t.TempDir()

	var saved *config.Config
	p := configureParams{
		stdout:     &bytes.Buffer{},
		cfg:        config.DefaultConfig(),
		serverPath: filepath.Join(base, "server"),
		dataPath:   filepath.Join(base, "data"),
		save: func(c *config.Config) error {
			saved = c
			return nil
		},
	}

	if err := runConfigure(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if saved.World.DataPath != filepath.Join(base, "data") {
		t.Errorf("data path = %q, want %q", saved.World.DataPath, filepath.Join(base, "data"))
	}
	if want := filepath.Join(base, "world_backups"); saved.World.BackupDir != want {
		t.Errorf("world backup dir = %q, want derived %q", saved.World.BackupDir, want)
	}
}

func TestRunConfigure_KeepsExplicitBackupDir(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.World.BackupDir = filepath.Join(base, "custom_backups")

	var saved *config.Config
	p := configureParams{
		stdout:     &bytes.Buffer{},
		cfg:        cfg,
		serverPath: filepath.Join(base, "server"),
		dataPath:   filepath.Join(base, "data"),
		save: func(c *config.Config) error {
			saved = c
			return nil
		},
	}

	if err := runConfigure(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(base, "custom_backups"); saved.World.BackupDir != want {
		t.Errorf("world backup dir = %q, want preserved %q", saved.World.BackupDir, want)
	}
}

func TestRunConfigure_URLOverrides(t *testing.T) {
	t.Parallel()

	var saved *config.Config
	p := configureParams{
		stdout:     &bytes.Buffer{},
		cfg:        config.DefaultConfig(),
		serverPath: filepath.Join(t.TempDir(), "server"),
		url:        "https://mirror.example.com/stable/",
		cdnURL:     "https://cdn.example.com/stable/",
		save: func(c *config.Config) error {
			saved = c
			return nil
		},
	}

	if err := runConfigure(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Fileserver.URL != "https://mirror.example.com/stable/" {
		t.Errorf("fileserver url = %q, want override", saved.Fileserver.URL)
	}
	if saved.Fileserver.CDNURL != "https://cdn.example.com/stable/" {
		t.Errorf("cdn url = %q, want override", saved.Fileserver.CDNURL)
	}
}

func TestRunConfigure_SaveError(t *testing.T) {
	t.Parallel()

	saveErr := errors.New("disk full")
	p := configureParams{
		stdout:     &bytes.Buffer{},
		cfg:        config.DefaultConfig(),
		serverPath: filepath.Join(t.TempDir(), "server"),
		save:       func(*config.Config) error { return saveErr },
	}

	if err := runConfigure(p); !errors.Is(err, saveErr) {
		t.Errorf("error = %v, want %v", err, saveErr)
	}
}
