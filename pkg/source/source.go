// Package source opens external dataset files. Files ending in .gz or .zst
// are decompressed transparently and a leading UTF-8 byte order mark is
// dropped.
package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ParseError reports a source that could not be opened or decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse source %s: %v", e.Path, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

var bom = []byte{0xEF, 0xBB, 0xBF}

type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open returns a reader over the decoded content of path. Errors are
// returned as *ParseError.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	rc := &readCloser{Reader: f, closers: []func() error{f.Close}}

	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			rc.Close()
			return nil, &ParseError{Path: path, Err: fmt.Errorf("gzip: %w", err)}
		}
		rc.Reader = zr
		rc.closers = append(rc.closers, zr.Close)
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			rc.Close()
			return nil, &ParseError{Path: path, Err: fmt.Errorf("zstd: %w", err)}
		}
		rc.Reader = zr
		rc.closers = append(rc.closers, func() error { zr.Close(); return nil })
	}

	br := bufio.NewReaderSize(rc.Reader, 64*1024)
	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		_, _ = br.Discard(len(bom))
	}
	rc.Reader = br
	return rc, nil
}
