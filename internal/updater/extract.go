// SPDX-License-Identifier: MPL-2.0

package updater

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxEntryBytes is the upper bound on a single extracted file (1 GB).
// Prevents decompression bombs when unpacking a release archive.
const maxEntryBytes = 1 << 30

// ExtractArchive unpacks the tar.gz archive at archivePath into destDir.
// Directory entries are created with their recorded modes, regular files are
// streamed with a per-entry size bound, and anything else (symlinks, devices)
// is skipped. Entries that would escape destDir are rejected.
func ExtractArchive(archivePath, destDir string) (err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer func() {
		// Read-only file handle; close errors are exotic.
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() {
		// Gzip reader wraps the underlying file; close errors are not
		// actionable here since we only read from it.
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return fmt.Errorf("reading tar entry: %w", nextErr)
		}

		target, pathErr := securePath(destDir, hdr.Name)
		if pathErr != nil {
			return pathErr
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if mkErr := os.MkdirAll(target, hdr.FileInfo().Mode().Perm()); mkErr != nil {
				return fmt.Errorf("creating directory %s: %w", target, mkErr)
			}
		case tar.TypeReg:
			if wErr := writeEntry(tr, target, hdr.FileInfo().Mode().Perm()); wErr != nil {
				return wErr
			}
		default:
			// Symlinks and special files are not part of server releases.
			continue
		}
	}

	return nil
}

// securePath joins an archive entry name onto destDir and rejects entries
// that would resolve outside of it (absolute paths or ".." components).
// Entries like "./" that resolve to destDir itself are valid: GNU tar
// produces them when packing a directory with `tar -C dir .`.
func securePath(destDir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("archive entry %q has an absolute path", name)
	}

	base := filepath.Clean(destDir)
	target := filepath.Join(destDir, name)
	if target == base {
		return target, nil
	}
	if !strings.HasPrefix(target, base+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination directory", name)
	}

	return target, nil
}

// writeEntry streams a single regular-file entry to target with the given mode.
func writeEntry(r io.Reader, target string, mode os.FileMode) (err error) {
	if mkErr := os.MkdirAll(filepath.Dir(target), 0o755); mkErr != nil {
		return fmt.Errorf("creating parent directory for %s: %w", target, mkErr)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", target, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(out, io.LimitReader(r, maxEntryBytes)); err != nil {
		return fmt.Errorf("extracting %s: %w", target, err)
	}

	return nil
}
