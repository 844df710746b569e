// SPDX-License-Identifier: MPL-2.0

package updater

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"howett.net/plist"
)

// infoPlistName is the bundle metadata file shipped at the root of every
// server release; its CFBundleShortVersionString records the version.
const infoPlistName = "Info.plist"

var (
	// ErrNotInstalled indicates no server installation was found at the
	// configured path (the version file is missing).
	ErrNotInstalled = errors.New("server is not installed")

	// ErrInvalidVersion indicates a version string is not valid semver after
	// normalization.
	ErrInvalidVersion = errors.New("invalid version")
)

// bundleInfo is the subset of Info.plist relevant to version detection.
type bundleInfo struct {
	ShortVersion string `plist:"CFBundleShortVersionString"`
}

// InstalledVersion reads the version of the server installed at serverPath
// from its Info.plist. A missing file wraps ErrNotInstalled so callers can
// distinguish "not installed" from a corrupt installation.
func InstalledVersion(serverPath string) (string, error) {
	plistPath := filepath.Join(serverPath, infoPlistName)

	f, err := os.Open(plistPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("version file %s not found: %w", plistPath, ErrNotInstalled)
		}
		return "", fmt.Errorf("opening version file: %w", err)
	}
	defer func() { _ = f.Close() }() // read-only file handle

	var info bundleInfo
	if err := plist.NewDecoder(f).Decode(&info); err != nil {
		return "", fmt.Errorf("decoding %s: %w", plistPath, err)
	}

	if info.ShortVersion == "" {
		return "", fmt.Errorf("%s has no CFBundleShortVersionString", plistPath)
	}

	return info.ShortVersion, nil
}

// CompareVersions compares two version strings semantically after
// normalization. The result follows semver.Compare: -1 when a < b, 0 when
// equal, +1 when a > b.
func CompareVersions(a, b string) (int, error) {
	na, err := normalizeVersion(a)
	if err != nil {
		return 0, err
	}
	nb, err := normalizeVersion(b)
	if err != nil {
		return 0, err
	}
	return semver.Compare(na, nb), nil
}

// normalizeVersion ensures the version string has a "v" prefix as required by
// the semver package, and validates that the result is a well-formed semantic
// version. Vintage Story publishes versions without the prefix (e.g. "1.19.8").
// Returns ErrInvalidVersion if the input cannot be normalized to valid semver.
func normalizeVersion(v string) (string, error) {
	norm := v
	if !strings.HasPrefix(norm, "v") {
		norm = "v" + norm
	}
	if !semver.IsValid(norm) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	return norm, nil
}
