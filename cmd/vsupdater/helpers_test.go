// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/Tander/vs-updater/internal/backup"
	"github.com/Tander/vs-updater/internal/updater"
)

// infoPlist renders a minimal Info.plist for the given version.
func infoPlist(version string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleShortVersionString</key>
	<string>` + version + `</string>
</dict>
</plist>
`
}

// installFixture creates a fake server installation and returns the server
// and rollback paths.
func installFixture(t *testing.T, version string) (serverPath, backupPath string) {
	t.Helper()

	root := t.TempDir()
	serverPath = filepath.Join(root, "server")
	backupPath = filepath.Join(root, "server_old")

	if err := os.Mkdir(serverPath, 0o755); err != nil {
		t.Fatalf("creating server dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(serverPath, "Info.plist"), []byte(infoPlist(version)), 0o644); err != nil {
		t.Fatalf("writing Info.plist: %v", err)
	}
	if err := os.WriteFile(filepath.Join(serverPath, "server.sh"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("writing server.sh: %v", err)
	}

	return serverPath, backupPath
}

// releaseArchive builds a tar.gz server release for the given version.
func releaseArchive(t *testing.T, version string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	files := map[string]string{
		"Info.plist": infoPlist(version),
		"server.sh":  "#!/bin/sh\n# stock\n",
	}
	for name, content := range files {
		hdr := &tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header: %v", err)
		}
		if _, err := io.WriteString(tw, content); err != nil {
			t.Fatalf("writing tar body: %v", err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}

	return buf.Bytes()
}

// newFileServer serves a directory index and archive downloads for a single
// published version, with no checksum sidecar.
func newFileServer(t *testing.T, version string, archive []byte) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/index/":
			_, _ = io.WriteString(w,
				`<a href="vs_server_`+version+`.tar.gz">vs_server_`+version+`.tar.gz</a>`)
		case "/files/vs_server_" + version + ".tar.gz":
			_, _ = w.Write(archive)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// newTestUpdater wires an Updater against the given test file server.
func newTestUpdater(srv *httptest.Server, serverPath, backupPath string) *updater.Updater {
	client := updater.NewClient(
		updater.WithBaseURL(srv.URL+"/index/"),
		updater.WithCDNURL(srv.URL+"/files/"),
	)
	return updater.New(serverPath, backupPath,
		updater.WithClient(client),
		updater.WithLogger(log.New(io.Discard)),
	)
}

// newTestArchiver builds a quiet Archiver over a fresh world fixture.
func newTestArchiver(t *testing.T) (*backup.Archiver, string) {
	t.Helper()

	root := t.TempDir()
	dataPath := filepath.Join(root, "data")
	backupDir := filepath.Join(root, "world_backups")
	if err := os.MkdirAll(filepath.Join(dataPath, "Saves"), 0o755); err != nil {
		t.Fatalf("creating world fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataPath, "Saves", "default.vcdbs"), []byte("world"), 0o644); err != nil {
		t.Fatalf("writing world fixture: %v", err)
	}

	return backup.NewArchiver(dataPath, backupDir, backup.WithLogger(log.New(io.Discard))), backupDir
}

// installedVersion reads the version of the fixture installation.
func installedVersion(t *testing.T, serverPath string) string {
	t.Helper()

	v, err := updater.InstalledVersion(serverPath)
	if err != nil {
		t.Fatalf("reading installed version: %v", err)
	}
	return v
}
