package fetch

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cache downloads source files into a local directory and skips work when a
// non-empty copy is already present. Deleting the directory forces a fresh
// pull of everything.
type Cache struct {
	dir  string
	http Fetcher
	ftp  Fetcher
}

// NewCache creates a cache rooted at dir.
func NewCache(dir string, httpFetcher, ftpFetcher Fetcher) *Cache {
	return &Cache{dir: dir, http: httpFetcher, ftp: ftpFetcher}
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

// Ensure downloads rawURL into the cache under name, which may be empty to
// derive it from the URL path. It returns the local path.
func (c *Cache) Ensure(ctx context.Context, rawURL, name string) (string, error) {
	if name == "" {
		var err error
		name, err = fileNameFor(rawURL)
		if err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", eris.Wrap(err, "fetch: create cache dir")
	}
	dest := filepath.Join(c.dir, name)

	log := zap.L().With(
		zap.String("component", "fetch.cache"),
		zap.String("url", rawURL),
		zap.String("path", dest),
	)

	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		log.Debug("cached copy exists, skipping download")
		return dest, nil
	}

	fetcher, err := c.fetcherFor(rawURL)
	if err != nil {
		return "", err
	}

	log.Info("downloading source file")
	n, err := fetcher.DownloadToFile(ctx, rawURL, dest)
	if err != nil {
		// A partial file would be mistaken for a cached copy next run.
		_ = os.Remove(dest)
		return "", eris.Wrapf(err, "fetch: download %s", rawURL)
	}
	log.Info("download complete", zap.Int64("bytes", n))

	return dest, nil
}

// EnsureShapefile downloads a zipped shapefile, extracts it next to the
// archive and returns the path of the .shp member.
func (c *Cache) EnsureShapefile(ctx context.Context, rawURL, name string) (string, error) {
	if name == "" {
		name = "regions.zip"
	}
	zipPath, err := c.Ensure(ctx, rawURL, name)
	if err != nil {
		return "", err
	}

	extractDir := strings.TrimSuffix(zipPath, filepath.Ext(zipPath))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "fetch: create extract dir")
	}
	if _, err := ExtractZIP(zipPath, extractDir); err != nil {
		return "", eris.Wrap(err, "fetch: extract shapefile archive")
	}

	shpPath, err := FindByExt(extractDir, ".shp")
	if err != nil {
		return "", eris.Wrap(err, "fetch: locate .shp member")
	}
	return shpPath, nil
}

// fetcherFor dispatches on the URL scheme.
func (c *Cache) fetcherFor(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse url %s", rawURL)
	}
	switch u.Scheme {
	case "http", "https":
		return c.http, nil
	case "ftp":
		return c.ftp, nil
	}
	return nil, eris.Errorf("fetch: unsupported scheme %q", u.Scheme)
}

// fileNameFor derives a cache file name from the last URL path segment.
func fileNameFor(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: parse url %s", rawURL)
	}
	name := filepath.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", eris.Errorf("fetch: cannot derive file name from %s", rawURL)
	}
	return name, nil
}
