// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Tander/vs-updater/internal/updater"
)

func TestRunCheck_UpdateAvailable(t *testing.T) {
	t.Parallel()

	serverPath, backupPath := installFixture(t, "1.19.7")
	srv := newFileServer(t, "1.19.8", nil)
	defer srv.Close()

	var out bytes.Buffer
	p := checkParams{
		stdout:  &out,
		updater: newTestUpdater(srv, serverPath, backupPath),
	}

	if err := runCheck(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "Installed version: 1.19.7") {
		t.Errorf("output %q lacks installed version", got)
	}
	if !strings.Contains(got, "Published version: 1.19.8") {
		t.Errorf("output %q lacks published version", got)
	}
	if !strings.Contains(got, "vsupdater update") {
		t.Errorf("output %q lacks update hint", got)
	}
}

func TestRunCheck_UpToDate(t *testing.T) {
	t.Parallel()

	serverPath, backupPath := installFixture(t, "1.19.8")
	srv := newFileServer(t, "1.19.8", nil)
	defer srv.Close()

	var out bytes.Buffer
	p := checkParams{
		stdout:  &out,
		updater: newTestUpdater(srv, serverPath, backupPath),
	}

	if err := runCheck(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "up to date") {
		t.Errorf("output %q does not report up to date", got)
	}
	if strings.Contains(got, "vsupdater update") {
		t.Errorf("output %q suggests an update when none is available", got)
	}
}

func TestRunCheck_NotInstalled(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	srv := newFileServer(t, "1.19.8", nil)
	defer srv.Close()

	p := checkParams{
		stdout:  &bytes.Buffer{},
		updater: newTestUpdater(srv, tmp+"/missing", tmp+"/missing_old"),
	}

	err := runCheck(context.Background(), p)
	if !errors.Is(err, updater.ErrNotInstalled) {
		t.Errorf("error = %v, want %v", err, updater.ErrNotInstalled)
	}
}
