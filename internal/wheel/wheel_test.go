// SPDX-License-Identifier: MPL-2.0

package wheel

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

// memObject adapts an in-memory buffer to the storage.Object interface.
type memObject struct {
	*bytes.Reader
}

func (memObject) Close() error { return nil }

// buildWheel assembles a ZIP archive with the given entries in order.
func buildWheel(t *testing.T, entries map[string]string, order []string) memObject {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return memObject{bytes.NewReader(buf.Bytes())}
}

func TestMetadataRoundTrip(t *testing.T) {
	t.Parallel()

	const want = "Metadata-Version: 2.1\nName: pkgA\nVersion: 1.0\n"
	obj := buildWheel(t, map[string]string{
		"pkgA-1.0.dist-info/RECORD":   "ignored",
		"pkgA-1.0.dist-info/METADATA": want,
		"pkgA/__init__.py":            "",
	}, []string{"pkgA-1.0.dist-info/RECORD", "pkgA-1.0.dist-info/METADATA", "pkgA/__init__.py"})

	a, err := Open(obj)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := a.Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if got != want {
		t.Errorf("Metadata = %q, want %q", got, want)
	}
}

func TestFindMetadataFirstMatchWins(t *testing.T) {
	t.Parallel()

	obj := buildWheel(t, map[string]string{
		"zzz-2.0.dist-info/METADATA": "second",
		"aaa-1.0.dist-info/METADATA": "first",
	}, []string{"zzz-2.0.dist-info/METADATA", "aaa-1.0.dist-info/METADATA"})

	a, err := Open(obj)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Directory order decides, not lexical order.
	i, err := a.FindMetadata()
	if err != nil {
		t.Fatalf("FindMetadata: %v", err)
	}
	if got := a.Entries()[i]; got != "zzz-2.0.dist-info/METADATA" {
		t.Errorf("first match = %q, want directory-order first entry", got)
	}
}

func TestFindMetadataRequiresDirectorySegment(t *testing.T) {
	t.Parallel()

	// A bare top-level METADATA does not match */METADATA.
	obj := buildWheel(t, map[string]string{
		"METADATA":  "top level",
		"notes.txt": "x",
	}, []string{"METADATA", "notes.txt"})

	a, err := Open(obj)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := a.FindMetadata(); !errors.Is(err, ErrNoMetadata) {
		t.Errorf("FindMetadata error = %v, want ErrNoMetadata", err)
	}
}

func TestFindMetadataMissing(t *testing.T) {
	t.Parallel()

	obj := buildWheel(t, map[string]string{
		"pkgA-1.0.dist-info/RECORD": "x",
	}, []string{"pkgA-1.0.dist-info/RECORD"})

	a, err := Open(obj)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := a.FindMetadata(); !errors.Is(err, ErrNoMetadata) {
		t.Errorf("FindMetadata error = %v, want ErrNoMetadata", err)
	}
}

func TestMetadataInvalidUTF8(t *testing.T) {
	t.Parallel()

	obj := buildWheel(t, map[string]string{
		"pkgA-1.0.dist-info/METADATA": "Name: \xff\xfe pkgA",
	}, []string{"pkgA-1.0.dist-info/METADATA"})

	a, err := Open(obj)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := a.Metadata(); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("Metadata error = %v, want ErrInvalidEncoding", err)
	}
}

func TestOpenInvalidFormat(t *testing.T) {
	t.Parallel()

	obj := memObject{bytes.NewReader([]byte("this is not a zip archive"))}
	if _, err := Open(obj); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Open error = %v, want ErrInvalidFormat", err)
	}
}

func TestDecodeMetadata(t *testing.T) {
	t.Parallel()

	if s, err := DecodeMetadata([]byte("Name: pkgA")); err != nil || s != "Name: pkgA" {
		t.Errorf("DecodeMetadata = %q, %v; want round-trip", s, err)
	}
	if _, err := DecodeMetadata([]byte{0xff, 0xfe}); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("DecodeMetadata error = %v, want ErrInvalidEncoding", err)
	}
}
