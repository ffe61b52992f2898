// Package fetch downloads the raw study inputs: the community-area
// boundary archive, the socioeconomic indicator table and the business
// license extract. Sources live behind HTTP or FTP; everything lands in a
// local cache directory keyed by file name, and downloads are skipped when
// the cached copy already has content.
package fetch

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data. The HTTP
// fetcher additionally supports conditional downloads via ETags; see
// HTTPFetcher.DownloadIfChanged.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}
