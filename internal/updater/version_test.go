// SPDX-License-Identifier: MPL-2.0

package updater

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeInfoPlist writes a minimal Info.plist with the given version into dir.
func writeInfoPlist(t *testing.T, dir, version string) {
	t.Helper()

	content := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleShortVersionString</key>
	<string>` + version + `</string>
</dict>
</plist>
`
	if err := os.WriteFile(filepath.Join(dir, infoPlistName), []byte(content), 0o644); err != nil {
		t.Fatalf("writing Info.plist: %v", err)
	}
}

func TestInstalledVersion_ReadsPlist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInfoPlist(t, dir, "1.19.8")

	got, err := InstalledVersion(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "1.19.8" {
		t.Errorf("InstalledVersion() = %q, want %q", got, "1.19.8")
	}
}

func TestInstalledVersion_MissingPlist(t *testing.T) {
	t.Parallel()

	_, err := InstalledVersion(t.TempDir())
	if !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("got %v, want ErrNotInstalled", err)
	}
}

func TestInstalledVersion_EmptyVersionField(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0"><dict><key>CFBundleName</key><string>vintagestory</string></dict></plist>`
	if err := os.WriteFile(filepath.Join(dir, infoPlistName), []byte(content), 0o644); err != nil {
		t.Fatalf("writing Info.plist: %v", err)
	}

	_, err := InstalledVersion(dir)
	if err == nil {
		t.Fatal("expected error for plist without version field, got nil")
	}
}

func TestNormalizeVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1.19.8", "v1.19.8", false},
		{"v1.19.8", "v1.19.8", false},
		{"1.20.0-rc.1", "v1.20.0-rc.1", false},
		{"1.19", "v1.19", false},
		{"banana", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := normalizeVersion(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidVersion) {
				t.Errorf("normalizeVersion(%q) error = %v, want ErrInvalidVersion", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizeVersion(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("normalizeVersion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"1.19.8", "1.19.8", 0},
		{"1.19.7", "1.19.8", -1},
		{"1.19.8", "1.19.7", 1},
		{"1.9.14", "1.19.8", -1},
		{"1.20.0-rc.1", "1.20.0", -1},
	}

	for _, tt := range tests {
		got, err := CompareVersions(tt.a, tt.b)
		if err != nil {
			t.Errorf("CompareVersions(%q, %q) unexpected error: %v", tt.a, tt.b, err)
			continue
		}
		if got != tt.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareVersions_InvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := CompareVersions("not-a-version", "1.19.8"); !errors.Is(err, ErrInvalidVersion) {
		t.Fatalf("got %v, want ErrInvalidVersion", err)
	}
}
