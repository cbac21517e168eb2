// Package targz expands gzip compressed tar archives into an in-memory afero filesystem.
package targz

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"path"
	"strings"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// LoadOptions provides configuration for loading files into memory
type LoadOptions struct {
	// StripComponents removes the specified number of leading path components
	// Similar to tar's --strip-components
	StripComponents int

	// Filter allows filtering files during loading
	// Return true to load the file, false to skip it
	Filter func(header *tar.Header) bool

	// MaxFileSize skips entries larger than this many bytes. Zero means no limit.
	MaxFileSize int64
}

// LoadIntoFs expands the regular files of a tar.gz archive into a fresh memory filesystem.
func LoadIntoFs(data []byte, opts LoadOptions) (afero.Fs, error) {
	fs := afero.NewMemMapFs()
	if err := LoadInto(fs, data, opts); err != nil {
		return nil, err
	}
	return fs, nil
}

// LoadInto expands the regular files of a tar.gz archive into fs.
func LoadInto(fs afero.Fs, data []byte, opts LoadOptions) error {
	gzr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return errors.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Errorf("reading tar: %w", err)
		}

		// Skip if not a regular file
		if header.Typeflag != tar.TypeReg {
			continue
		}

		components := SplitPath(header.Name)
		if len(components) <= opts.StripComponents {
			continue
		}
		stripped := path.Join(components[opts.StripComponents:]...)

		if opts.Filter != nil && !opts.Filter(header) {
			continue
		}
		if opts.MaxFileSize > 0 && header.Size > opts.MaxFileSize {
			continue
		}

		if exists, _ := afero.Exists(fs, stripped); exists {
			return errors.Errorf("file collision: %s (original: %s) already exists", stripped, header.Name)
		}

		if dir := path.Dir(stripped); dir != "." {
			if err := fs.MkdirAll(dir, 0o755); err != nil {
				return errors.Errorf("creating directory %s: %w", dir, err)
			}
		}

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return errors.Errorf("reading file %s: %w", header.Name, err)
		}

		if err := afero.WriteFile(fs, stripped, buf.Bytes(), 0o644); err != nil {
			return errors.Errorf("writing file %s: %w", stripped, err)
		}
	}
}

// SplitPath splits a slash separated archive path into components, ignoring
// empty and "." segments.
func SplitPath(p string) []string {
	var components []string
	for _, c := range strings.Split(strings.Trim(p, "/"), "/") {
		if c == "" || c == "." {
			continue
		}
		components = append(components, c)
	}
	return components
}
