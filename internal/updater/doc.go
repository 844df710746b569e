// SPDX-License-Identifier: MPL-2.0

// Package updater implements the update flow for a Vintage Story dedicated
// server installation. It provides a client for the vendor file server,
// installed-version inspection, SHA256 checksum verification, archive
// extraction, and in-place update application with rollback.
//
// The package is organized into five concerns:
//   - fileserver.go: HTTP client for the vendor file server (version listing, archive download)
//   - version.go: Installed-version detection (Info.plist) and semver comparison
//   - checksum.go: SHA256 sidecar parsing and file verification
//   - extract.go: tar.gz extraction with path-traversal protection
//   - updater.go: Updater type that composes the above for the end-to-end update flow
package updater
