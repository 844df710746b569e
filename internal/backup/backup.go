// SPDX-License-Identifier: MPL-2.0

// Package backup archives the server's world data directory into timestamped
// tar.gz files and prunes old archives according to a retention count.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// archivePrefix and archiveExt frame every world archive filename.
	archivePrefix = "world_"
	archiveExt    = ".tar.gz"

	// timestampFormat is the UTC timestamp embedded in archive names. It
	// sorts lexically in chronological order.
	timestampFormat = "20060102-150405"

	// DefaultKeep is the number of archives retained when no retention count
	// is configured.
	DefaultKeep = 5
)

var (
	// ErrNoDataPath indicates the world data directory is not configured or
	// does not exist.
	ErrNoDataPath = errors.New("world data directory not found")

	// ErrNoBackupDir indicates no backup directory is configured.
	ErrNoBackupDir = errors.New("world backup directory not set")
)

type (
	// Archive describes a single world backup on disk.
	Archive struct {
		Name    string
		Path    string
		Size    int64
		ModTime time.Time
	}

	// Archiver creates and prunes world backups for a single data directory.
	Archiver struct {
		dataPath  string // world data directory to archive
		backupDir string // directory receiving the archives
		keep      int    // archives retained by Prune
		logger    *log.Logger
		now       func() time.Time // clock seam for tests
	}

	// ArchiverOption configures an Archiver during construction.
	ArchiverOption func(*Archiver)
)

// WithKeep sets the number of archives Prune retains.
func WithKeep(n int) ArchiverOption {
	return func(a *Archiver) {
		if n > 0 {
			a.keep = n
		}
	}
}

// WithLogger overrides the Archiver's logger.
func WithLogger(l *log.Logger) ArchiverOption {
	return func(a *Archiver) {
		a.logger = l
	}
}

// WithClock overrides the clock used for archive timestamps, for tests.
func WithClock(now func() time.Time) ArchiverOption {
	return func(a *Archiver) {
		a.now = now
	}
}

// NewArchiver creates an Archiver that backs up dataPath into backupDir.
func NewArchiver(dataPath, backupDir string, opts ...ArchiverOption) *Archiver {
	a := &Archiver{
		dataPath:  dataPath,
		backupDir: backupDir,
		keep:      DefaultKeep,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "backup",
		})
	}
	return a
}

// Create archives the world data directory into a new timestamped tar.gz and
// returns its path. versionLabel, when non-empty, is embedded in the archive
// name (typically the installed server version). The context is checked
// between files so a cancelled backup stops promptly; the partial archive is
// removed on any failure.
func (a *Archiver) Create(ctx context.Context, versionLabel string) (_ string, err error) {
	info, err := os.Stat(a.dataPath)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("world data directory %q: %w", a.dataPath, ErrNoDataPath)
	}

	if a.backupDir == "" {
		return "", ErrNoBackupDir
	}

	if err := os.MkdirAll(a.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	name := a.archiveName(versionLabel)
	target := filepath.Join(a.backupDir, name)

	a.logger.Info("archiving world data", "source", a.dataPath, "archive", name)

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating archive %s: %w", target, err)
	}

	// Remove the partial archive when anything below fails.
	committed := false
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if !committed {
			_ = os.Remove(target)
		}
	}()

	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)

	if err := a.writeTree(ctx, tw); err != nil {
		return "", err
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("finalizing tar stream: %w", err)
	}
	if err := gw.Close(); err != nil {
		return "", fmt.Errorf("finalizing gzip stream: %w", err)
	}

	committed = true
	return target, nil
}

// List returns the world archives in the backup directory, newest first.
func (a *Archiver) List() ([]Archive, error) {
	entries, err := os.ReadDir(a.backupDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var archives []Archive
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), archivePrefix) || !strings.HasSuffix(e.Name(), archiveExt) {
			continue
		}
		fi, statErr := e.Info()
		if statErr != nil {
			continue
		}
		archives = append(archives, Archive{
			Name:    e.Name(),
			Path:    filepath.Join(a.backupDir, e.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}

	// Newest first. The embedded timestamp makes names sort chronologically,
	// but modification time is authoritative when labels differ in length.
	slices.SortStableFunc(archives, func(x, y Archive) int {
		return y.ModTime.Compare(x.ModTime)
	})

	return archives, nil
}

// Prune removes the oldest archives beyond the retention count and returns
// the names of the removed archives.
func (a *Archiver) Prune() ([]string, error) {
	archives, err := a.List()
	if err != nil {
		return nil, err
	}

	if len(archives) <= a.keep {
		return nil, nil
	}

	var removed []string
	for _, old := range archives[a.keep:] {
		if err := os.Remove(old.Path); err != nil {
			return removed, fmt.Errorf("removing old archive %s: %w", old.Name, err)
		}
		a.logger.Info("pruned old world archive", "archive", old.Name)
		removed = append(removed, old.Name)
	}

	return removed, nil
}

// archiveName builds the archive filename from the optional version label and
// the current UTC time.
func (a *Archiver) archiveName(versionLabel string) string {
	ts := a.now().UTC().Format(timestampFormat)
	if versionLabel == "" {
		return archivePrefix + ts + archiveExt
	}
	return archivePrefix + versionLabel + "_" + ts + archiveExt
}

// writeTree walks the data directory and streams every regular file and
// directory into the tar writer, with entry names relative to the data root.
func (a *Archiver) writeTree(ctx context.Context, tw *tar.Writer) error {
	return filepath.WalkDir(a.dataPath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("backup canceled: %w", ctx.Err())
		default:
		}

		rel, err := filepath.Rel(a.dataPath, path)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", path, err)
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("inspecting %s: %w", path, err)
		}

		// World data consists of regular files and directories; sockets or
		// symlinks left behind by the server process are not backed up.
		switch {
		case d.IsDir():
			hdr := &tar.Header{
				Name:     filepath.ToSlash(rel) + "/",
				Mode:     int64(info.Mode().Perm()),
				ModTime:  info.ModTime(),
				Typeflag: tar.TypeDir,
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return fmt.Errorf("writing directory header %s: %w", rel, err)
			}
		case info.Mode().IsRegular():
			if err := writeFileEntry(tw, path, filepath.ToSlash(rel), info); err != nil {
				return err
			}
		}

		return nil
	})
}

// writeFileEntry streams a single regular file into the tar writer.
func writeFileEntry(tw *tar.Writer, path, name string, info fs.FileInfo) (err error) {
	hdr := &tar.Header{
		Name:     name,
		Mode:     int64(info.Mode().Perm()),
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing header %s: %w", name, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }() // read-only file handle

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("archiving %s: %w", name, err)
	}

	return nil
}
