// SPDX-License-Identifier: MPL-2.0

// Package wheel reads Python wheel archives and extracts their METADATA
// entry.
//
// A wheel is an ordinary ZIP container. Opening one only parses the
// central directory at the archive tail, so a wheel served over a
// range-capable HTTP endpoint is never downloaded in full: the storage
// object's ReadAt calls pull just the directory and the one entry that
// is read.
package wheel

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/flate"

	"wheelmeta/internal/storage"
)

// metadataSuffix matches the single wheel entry holding package
// metadata, e.g. "pkgA-1.0.dist-info/METADATA".
const metadataSuffix = "/METADATA"

var (
	// ErrInvalidFormat is returned when the ZIP central directory
	// cannot be located or parsed.
	ErrInvalidFormat = errors.New("invalid wheel format")

	// ErrNoMetadata is returned when no entry matches */METADATA.
	ErrNoMetadata = errors.New("no METADATA entry in wheel")

	// ErrInvalidEncoding is returned when the METADATA entry is not
	// valid UTF-8.
	ErrInvalidEncoding = errors.New("METADATA is not valid UTF-8")
)

// Archive is an opened wheel: the parsed entry directory plus the
// random-access stream entries are read through. It is owned by one
// fetch task and discarded once the metadata entry has been read.
type Archive struct {
	zr *zip.Reader
}

// Open parses the ZIP central directory from the tail of obj. Entry
// bodies are not touched until ReadEntry.
func Open(obj storage.Object) (*Archive, error) {
	zr, err := zip.NewReader(obj, obj.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	// Wheels store entries with Deflate; decode them with the faster
	// flate implementation.
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
	return &Archive{zr: zr}, nil
}

// Entries returns the entry names in central directory order.
func (a *Archive) Entries() []string {
	names := make([]string, len(a.zr.File))
	for i, f := range a.zr.File {
		names[i] = f.Name
	}
	return names
}

// FindMetadata returns the index of the first entry, in central
// directory order, whose full path ends in /METADATA. When several
// entries match, the earliest wins; well-formed wheels have exactly
// one.
func (a *Archive) FindMetadata() (int, error) {
	for i, f := range a.zr.File {
		if strings.HasSuffix(f.Name, metadataSuffix) {
			return i, nil
		}
	}
	return 0, ErrNoMetadata
}

// ReadEntry decompresses the entry at index i fully into memory.
func (a *Archive) ReadEntry(i int) ([]byte, error) {
	f := a.zr.File[i]
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	buf, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", f.Name, err)
	}
	return buf, nil
}

// DecodeMetadata validates entry bytes as UTF-8 text.
func DecodeMetadata(buf []byte) (string, error) {
	if !utf8.Valid(buf) {
		return "", ErrInvalidEncoding
	}
	return string(buf), nil
}

// Metadata locates, reads, and UTF-8 decodes the wheel's METADATA
// entry.
func (a *Archive) Metadata() (string, error) {
	i, err := a.FindMetadata()
	if err != nil {
		return "", err
	}
	buf, err := a.ReadEntry(i)
	if err != nil {
		return "", err
	}
	return DecodeMetadata(buf)
}
