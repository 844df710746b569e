// SPDX-License-Identifier: MPL-2.0

package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	// DefaultFileServerURL is the vendor's stable-channel directory index.
	DefaultFileServerURL = "https://account.vintagestory.at/files/stable/"

	// DefaultCDNURL is the vendor CDN that serves the release archives.
	DefaultCDNURL = "https://cdn.vintagestory.at/gamefiles/stable/"

	// archiveNameFormat is the release archive filename for a given version.
	archiveNameFormat = "vs_server_%s.tar.gz"

	// checksumSuffix is appended to the archive name for the SHA256 sidecar.
	checksumSuffix = ".sha256"

	// maxIndexBytes is the upper bound on the directory index response (4 MB).
	// Prevents unbounded memory consumption from a misbehaving server.
	maxIndexBytes = 4 << 20

	// maxChecksumBytes is the upper bound on the checksum sidecar response (4 KB).
	maxChecksumBytes = 4 << 10
)

// ErrVersionNotFound is returned when the file server index contains no
// server archive links, or a requested version has no published archive.
var ErrVersionNotFound = errors.New("server version not found on file server")

// archiveLinkRe matches server archive links on the Apache directory index,
// capturing the version number, e.g. href="vs_server_1.19.8.tar.gz".
var archiveLinkRe = regexp.MustCompile(`href="vs_server_([\d.]+)\.tar\.gz"`)

type (
	// Client queries the vendor file server for published server versions and
	// downloads release archives from the CDN.
	Client struct {
		httpClient *http.Client
		baseURL    string // directory index URL (default: stable channel)
		cdnURL     string // archive download base URL
		userAgent  string // User-Agent header value
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(fc *Client) {
		fc.httpClient = c
	}
}

// WithBaseURL overrides the directory index URL, primarily for test servers
// or the unstable release channel.
func WithBaseURL(base string) ClientOption {
	return func(fc *Client) {
		fc.baseURL = ensureTrailingSlash(base)
	}
}

// WithCDNURL overrides the archive download base URL.
func WithCDNURL(cdn string) ClientOption {
	return func(fc *Client) {
		fc.cdnURL = ensureTrailingSlash(cdn)
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(fc *Client) {
		fc.userAgent = ua
	}
}

// NewClient creates a Client with sensible defaults.
// Defaults: baseURL=DefaultFileServerURL, cdnURL=DefaultCDNURL,
// userAgent="vsupdater/dev", httpClient=http.DefaultClient.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultFileServerURL,
		cdnURL:     DefaultCDNURL,
		userAgent:  "vsupdater/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListVersions fetches the directory index and returns all published server
// versions, sorted by semantic version in descending order. The index is
// requested sorted by modification time (newest first), matching the vendor's
// Apache DirectoryIndex query parameters, but the result order relies on the
// semver sort rather than the server's.
func (c *Client) ListVersions(ctx context.Context) ([]string, error) {
	// C=M, O=D: sort by modification time, descending.
	indexURL := c.baseURL + "?C=M&O=D"

	resp, err := c.doRequest(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("fetching file server index: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching file server index: unexpected status %d", resp.StatusCode)
	}

	versions, err := parseIndex(io.LimitReader(resp.Body, maxIndexBytes))
	if err != nil {
		return nil, fmt.Errorf("parsing file server index: %w", err)
	}
	if len(versions) == 0 {
		return nil, ErrVersionNotFound
	}

	sortVersionsDesc(versions)

	return versions, nil
}

// LatestVersion returns the highest published server version.
func (c *Client) LatestVersion(ctx context.Context) (string, error) {
	versions, err := c.ListVersions(ctx)
	if err != nil {
		return "", err
	}
	return versions[0], nil
}

// ArchiveURL returns the CDN download URL for the given version's archive.
func (c *Client) ArchiveURL(version string) string {
	return c.cdnURL + fmt.Sprintf(archiveNameFormat, version)
}

// DownloadArchive streams the release archive for the given version. The
// caller is responsible for closing the returned ReadCloser. Returns
// ErrVersionNotFound when the CDN responds 404 for the archive.
func (c *Client) DownloadArchive(ctx context.Context, version string) (io.ReadCloser, error) {
	archiveURL := c.ArchiveURL(version)

	resp, err := c.doRequest(ctx, archiveURL)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", redactURL(archiveURL), err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("downloading %s: %w", redactURL(archiveURL), ErrVersionNotFound)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("downloading %s: unexpected status %d", redactURL(archiveURL), resp.StatusCode)
	}

	return resp.Body, nil
}

// FetchChecksum retrieves the SHA256 sidecar for the given version's archive.
// The second return value reports whether a sidecar was published: a 404 is
// not an error, it simply means the vendor provides no checksum for this
// release and verification should be skipped.
func (c *Client) FetchChecksum(ctx context.Context, version string) (string, bool, error) {
	sidecarURL := c.ArchiveURL(version) + checksumSuffix

	resp, err := c.doRequest(ctx, sidecarURL)
	if err != nil {
		return "", false, fmt.Errorf("fetching checksum: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("fetching checksum: unexpected status %d", resp.StatusCode)
	}

	hash, err := ParseChecksumSidecar(io.LimitReader(resp.Body, maxChecksumBytes))
	if err != nil {
		return "", false, fmt.Errorf("parsing checksum sidecar: %w", err)
	}

	return hash, true, nil
}

// doRequest creates and executes a GET request with common headers.
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	return resp, nil
}

// parseIndex collects the distinct versions of all server archive links in
// the directory index. The index may be minified to a single line, so the
// whole (already size-bounded) body is matched at once.
func parseIndex(body io.Reader) ([]string, error) {
	page, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}

	seen := make(map[string]struct{})
	var versions []string

	for _, match := range archiveLinkRe.FindAllSubmatch(page, -1) {
		v := string(match[1])
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		versions = append(versions, v)
	}

	return versions, nil
}

// sortVersionsDesc sorts versions by semantic version in descending order.
// Versions that do not normalize to valid semver are placed at the end.
// Uses a stable sort so equal versions preserve their original ordering.
func sortVersionsDesc(versions []string) {
	slices.SortStableFunc(versions, func(a, b string) int {
		na, errA := normalizeVersion(a)
		nb, errB := normalizeVersion(b)
		switch {
		case errA != nil && errB != nil:
			return 0
		case errA != nil:
			return 1
		case errB != nil:
			return -1
		}
		return semver.Compare(nb, na)
	})
}

// ensureTrailingSlash normalizes a base URL so path concatenation is safe.
func ensureTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

// redactURL strips query parameters and fragments from a URL for safe
// inclusion in error messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
