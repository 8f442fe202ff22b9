// Package source downloads and unpacks upstream release archives.
package source

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	fluxtar "github.com/fluxcd/pkg/tar"
	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"
)

// ErrMalformedArchive reports an archive that could not be unpacked or lacks
// the expected top-level directory.
var ErrMalformedArchive = errors.New("malformed archive")

// Fetcher downloads release archives.
type Fetcher struct {
	client *retryablehttp.Client
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*retryablehttp.Client)

// WithRetries sets how many times a failed download is retried. The default is
// zero: a failed download fails the build.
func WithRetries(n int) FetcherOption {
	return func(c *retryablehttp.Client) {
		c.RetryMax = n
	}
}

// WithTimeout bounds each download attempt.
func WithTimeout(d time.Duration) FetcherOption {
	return func(c *retryablehttp.Client) {
		c.HTTPClient.Timeout = d
	}
}

// NewFetcher returns a Fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	c := retryablehttp.NewClient()
	c.RetryMax = 0
	c.RetryWaitMin = 2 * time.Second
	c.RetryWaitMax = 5 * time.Second
	c.HTTPClient.Timeout = 10 * time.Minute
	c.Logger = nil
	for _, opt := range opts {
		opt(c)
	}
	return &Fetcher{client: c}
}

// Acquire downloads the gzip tarball at url and moves its top-level directory
// named extracted to dst. If dst already exists it is reused as is.
func (f *Fetcher) Acquire(ctx context.Context, url, extracted, dst string) error {
	log := logr.FromContextOrDiscard(ctx)
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		log.Info("reusing sources", "dir", dst)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	tmp, err := os.MkdirTemp(filepath.Dir(dst), ".extract-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	log.Info("downloading sources", "url", url)
	body, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	archive := stripExtended(body)
	defer archive.Close()
	if err := fluxtar.Untar(archive, tmp, fluxtar.WithMaxUntarSize(-1), fluxtar.WithSkipSymlinks()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedArchive, url, err)
	}

	root := filepath.Join(tmp, extracted)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s has no top-level directory %s", ErrMalformedArchive, url, extracted)
	}
	return os.Rename(root, dst)
}

func (f *Fetcher) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}

// stripExtended re-packs a gzip tarball keeping only directories, regular
// files and symlinks. Other entries, such as the pax global header GitHub adds
// to release archives, are dropped before extraction.
func stripExtended(r io.Reader) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(repack(r, pw))
	}()
	return pr
}

func repack(r io.Reader, w io.Writer) error {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()
	tr := tar.NewReader(zr)

	zw := gzip.NewWriter(w)
	tw := tar.NewWriter(zw)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir, tar.TypeReg, tar.TypeSymlink:
		default:
			continue
		}
		hdr.PAXRecords = nil
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := io.Copy(tw, tr); err != nil {
				return err
			}
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return zw.Close()
}
