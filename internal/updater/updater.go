// SPDX-License-Identifier: MPL-2.0

package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/mod/semver"
)

// serverScriptName is the launcher script the server admin customizes; it is
// carried over from the previous installation after an update.
const serverScriptName = "server.sh"

type (
	// UpdateCheck holds the result of a version comparison between the
	// installed server and the newest (or target) published release.
	UpdateCheck struct {
		CurrentVersion  string // Version of the installed server
		LatestVersion   string // Newest (or requested) published version
		UpdateAvailable bool   // True when the published version is newer
		Message         string // Human-readable status message
	}

	// Updater composes the file server client, installed-version inspection,
	// and checksum verification into an end-to-end update flow. It is the
	// primary facade for the updater package.
	Updater struct {
		client     *Client
		serverPath string // live server installation directory
		backupPath string // previous-version directory used for rollback
		logger     *log.Logger
	}

	// UpdaterOption configures an Updater during construction.
	UpdaterOption func(*Updater)
)

// WithClient overrides the default file server Client used by the Updater.
func WithClient(c *Client) UpdaterOption {
	return func(u *Updater) {
		u.client = c
	}
}

// WithLogger overrides the Updater's logger.
func WithLogger(l *log.Logger) UpdaterOption {
	return func(u *Updater) {
		u.logger = l
	}
}

// New creates an Updater for the server installed at serverPath, using
// backupPath as the rollback directory. If no WithClient option is provided,
// a default Client is created.
func New(serverPath, backupPath string, opts ...UpdaterOption) *Updater {
	u := &Updater{
		serverPath: serverPath,
		backupPath: backupPath,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.client == nil {
		u.client = NewClient()
	}
	if u.logger == nil {
		u.logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "updater",
		})
	}
	return u
}

// Check determines whether an update is available by comparing the installed
// version against the newest published release (or a specific targetVersion).
func (u *Updater) Check(ctx context.Context, targetVersion string) (*UpdateCheck, error) {
	var target string
	if targetVersion != "" {
		if _, err := normalizeVersion(targetVersion); err != nil {
			return nil, err
		}
		target = targetVersion
	} else {
		latest, err := u.client.LatestVersion(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving latest version: %w", err)
		}
		target = latest
	}

	current, err := InstalledVersion(u.serverPath)
	if err != nil {
		return nil, err
	}

	currentNorm, err := normalizeVersion(current)
	if err != nil {
		return nil, fmt.Errorf("installed version: %w", err)
	}
	targetNorm, err := normalizeVersion(target)
	if err != nil {
		return nil, fmt.Errorf("published version: %w", err)
	}

	// Equal or newer: nothing to do. A local version ahead of the published
	// one can happen when running an unstable build against the stable channel.
	if semver.Compare(currentNorm, targetNorm) >= 0 {
		return &UpdateCheck{
			CurrentVersion: current,
			LatestVersion:  target,
			Message:        fmt.Sprintf("Server version %s is up to date.", current),
		}, nil
	}

	return &UpdateCheck{
		CurrentVersion:  current,
		LatestVersion:   target,
		UpdateAvailable: true,
		Message:         fmt.Sprintf("Update available: %s -> %s", current, target),
	}, nil
}

// Apply downloads, verifies, and installs the given server version. The live
// installation is only touched after the archive has been downloaded and its
// checksum verified; from that point on, any failure rolls the previous
// installation back into place.
func (u *Updater) Apply(ctx context.Context, version string) error {
	if _, err := os.Stat(u.serverPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("server directory %q not found: %w", u.serverPath, ErrNotInstalled)
		}
		return fmt.Errorf("checking server directory: %w", err)
	}

	// Download to a temp file in the server's parent directory so the archive
	// and the installation share a filesystem.
	u.logger.Info("downloading server archive", "version", version)
	archivePath, err := u.downloadToTempFile(ctx, version, filepath.Dir(u.serverPath))
	if err != nil {
		return fmt.Errorf("downloading archive: %w", err)
	}
	defer func() { _ = os.Remove(archivePath) }()

	// Verify against the published sidecar when the vendor provides one.
	expectedHash, published, err := u.client.FetchChecksum(ctx, version)
	if err != nil {
		return fmt.Errorf("fetching checksum: %w", err)
	}
	if published {
		u.logger.Info("verifying archive checksum")
		if err := VerifyFile(archivePath, expectedHash); err != nil {
			return fmt.Errorf("verifying archive: %w", err)
		}
	} else {
		u.logger.Warn("no checksum published for this release, skipping verification")
	}

	u.logger.Info("rotating server directory", "backup", u.backupPath)
	if err := u.rotateServerDir(); err != nil {
		return fmt.Errorf("preparing server directory: %w", err)
	}

	// The live directory is now empty; restore the previous installation on
	// any failure from here on.
	installed := false
	defer func() {
		if !installed {
			u.rollback()
		}
	}()

	u.logger.Info("unpacking server archive")
	if err := ExtractArchive(archivePath, u.serverPath); err != nil {
		return fmt.Errorf("unpacking archive: %w", err)
	}

	if err := u.patchServerScript(); err != nil {
		return err
	}

	installed = true
	return nil
}

// rotateServerDir moves the live installation aside and creates a fresh,
// empty server directory. Any previous rollback directory is discarded first.
func (u *Updater) rotateServerDir() error {
	if _, err := os.Stat(u.backupPath); err == nil {
		if err := os.RemoveAll(u.backupPath); err != nil {
			return fmt.Errorf("removing previous backup %s: %w", u.backupPath, err)
		}
	}

	if err := os.Rename(u.serverPath, u.backupPath); err != nil {
		return fmt.Errorf("moving server directory aside: %w", err)
	}

	if err := os.Mkdir(u.serverPath, 0o755); err != nil {
		return fmt.Errorf("creating new server directory: %w", err)
	}

	return nil
}

// rollback restores the rotated previous installation after a failed update.
// Errors are logged rather than returned: rollback runs on an already-failing
// path and the original update error must win.
func (u *Updater) rollback() {
	u.logger.Error("update failed, restoring previous server version")

	if _, err := os.Stat(u.serverPath); err == nil {
		if err := os.RemoveAll(u.serverPath); err != nil {
			u.logger.Error("removing broken installation", "err", err)
			return
		}
	}

	if err := os.Rename(u.backupPath, u.serverPath); err != nil {
		u.logger.Error("restoring previous installation", "err", err)
	}
}

// patchServerScript carries the admin-customized launcher script over from
// the previous installation. A missing script is only a warning: fresh
// installs ship a default one.
func (u *Updater) patchServerScript() error {
	src := filepath.Join(u.backupPath, serverScriptName)
	if _, err := os.Stat(src); err != nil {
		u.logger.Warn("no launcher script in previous installation, adjust the default one manually",
			"script", serverScriptName)
		return nil
	}

	dst := filepath.Join(u.serverPath, serverScriptName)
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("copying %s from previous installation: %w", serverScriptName, err)
	}

	return nil
}

// downloadToTempFile streams the release archive for version into a temporary
// file in dir and returns its path. The caller is responsible for removing
// the file when done.
func (u *Updater) downloadToTempFile(ctx context.Context, version, dir string) (_ string, err error) {
	body, err := u.client.DownloadArchive(ctx, version)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }() // read-only HTTP response body

	tmp, err := os.CreateTemp(dir, "vsupdater-download-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if closeErr := tmp.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		// Best-effort removal of partially written temp file.
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("writing to temp file: %w", err)
	}

	return tmp.Name(), nil
}

// copyFile copies src to dst, preserving the source file's mode.
func copyFile(src, dst string) (err error) {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }() // read-only file handle

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
