// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
)

func TestRunAutoUpdate_UpToDateIsQuiet(t *testing.T) {
	t.Parallel()

	serverPath, backupPath := installFixture(t, "1.19.8")
	srv := newFileServer(t, "1.19.8", nil)
	defer srv.Close()

	var out bytes.Buffer
	p := autoUpdateParams{
		stdout:  &out,
		stderr:  &out,
		updater: newTestUpdater(srv, serverPath, backupPath),
	}

	if err := runAutoUpdate(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "up to date") {
		t.Errorf("output %q does not report up to date", out.String())
	}
	if got := installedVersion(t, serverPath); got != "1.19.8" {
		t.Errorf("installed version = %q, want untouched 1.19.8", got)
	}
}

func TestRunAutoUpdate_AppliesWithoutPrompt(t *testing.T) {
	t.Parallel()

	serverPath, backupPath := installFixture(t, "1.19.7")
	srv := newFileServer(t, "1.19.8", releaseArchive(t, "1.19.8"))
	defer srv.Close()

	var out bytes.Buffer
	p := autoUpdateParams{
		stdout:  &out,
		stderr:  &out,
		updater: newTestUpdater(srv, serverPath, backupPath),
	}

	if err := runAutoUpdate(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := installedVersion(t, serverPath); got != "1.19.8" {
		t.Errorf("installed version = %q, want 1.19.8", got)
	}
	if !strings.Contains(out.String(), "Server updated to 1.19.8") {
		t.Errorf("output %q does not report the update", out.String())
	}
}

func TestRunAutoUpdate_ArchivesWorldFirst(t *testing.T) {
	t.Parallel()

	serverPath, backupPath := installFixture(t, "1.19.7")
	srv := newFileServer(t, "1.19.8", releaseArchive(t, "1.19.8"))
	defer srv.Close()

	archiver, backupDir := newTestArchiver(t)

	var out bytes.Buffer
	p := autoUpdateParams{
		stdout:   &out,
		stderr:   &out,
		updater:  newTestUpdater(srv, serverPath, backupPath),
		archiver: archiver,
	}

	if err := runAutoUpdate(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		t.Fatalf("reading world backup dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d world archives, want 1", len(entries))
	}
	if !strings.Contains(entries[0].Name(), "1.19.7") {
		t.Errorf("archive name %q not labeled with previous version", entries[0].Name())
	}
}
