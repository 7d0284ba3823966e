// Package fetcher loads manifest files from local paths, HTTP(S), or FTP,
// and parses the CSV and XLSX shapes carriers publish them in.
package fetcher

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Open returns a reader for the given source: an ftp:// or http(s):// URL,
// or a local file path. The caller must close the reader.
func Open(ctx context.Context, source string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(source, "ftp://"):
		return NewFTPFetcher(FTPOptions{}).Download(ctx, source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return NewHTTPFetcher(HTTPOptions{}).Download(ctx, source)
	default:
		f, err := os.Open(source)
		return f, eris.Wrapf(err, "fetcher: open %s", source)
	}
}

// FetchToFile materializes a source to a local path. XLSX parsing needs a
// seekable file, so remote workbooks go through here first.
func FetchToFile(ctx context.Context, source, path string) (int64, error) {
	rc, err := Open(ctx, source)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	f, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: create %s", path)
	}
	defer f.Close()

	n, err := io.Copy(f, rc)
	return n, eris.Wrap(err, "fetcher: copy")
}

// IsRemote reports whether source needs a network fetch.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "ftp://") ||
		strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "https://")
}
