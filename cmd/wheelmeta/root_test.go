// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"wheelmeta/internal/config"
	"wheelmeta/internal/locator"
)

// wheelFixture assembles a wheel with one METADATA entry.
func wheelFixture(t *testing.T, distInfo, metadata string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(distInfo + "/METADATA")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := w.Write([]byte(metadata)); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func testParams(t *testing.T, stdout io.Writer, locators ...locator.Locator) extractParams {
	t.Helper()
	return extractParams{
		stdout:   stdout,
		logger:   log.New(io.Discard),
		cfg:      config.DefaultConfig(),
		locators: locators,
	}
}

func mustParse(t *testing.T, raw string) locator.Locator {
	t.Helper()
	l, err := locator.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return l
}

func TestRunExtractLocalWheels(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.whl"), wheelFixture(t, "pkgA-1.0.dist-info", "Name: A"), 0o644); err != nil {
		t.Fatalf("write a.whl: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.whl"), wheelFixture(t, "pkgB-2.0.dist-info", "Name: B"), 0o644); err != nil {
		t.Fatalf("write b.whl: %v", err)
	}

	var out bytes.Buffer
	p := testParams(t, &out,
		mustParse(t, "file://"+filepath.Join(dir, "a.whl")),
		mustParse(t, "file://"+filepath.Join(dir, "b.whl")),
	)

	if err := runExtract(context.Background(), p); err != nil {
		t.Fatalf("runExtract: %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out.String())
	}
	if len(decoded) != 2 {
		t.Fatalf("got %d members, want 2: %v", len(decoded), decoded)
	}
	if decoded["a.whl"] != "Name: A" {
		t.Errorf("a.whl = %q, want %q", decoded["a.whl"], "Name: A")
	}
	if decoded["b.whl"] != "Name: B" {
		t.Errorf("b.whl = %q, want %q", decoded["b.whl"], "Name: B")
	}
}

func TestRunExtractRemoteWheelUsesRangeReads(t *testing.T) {
	t.Parallel()

	body := wheelFixture(t, "pkgR-3.0.dist-info", "Name: R\nVersion: 3.0")

	var (
		mu       sync.Mutex
		unranged int
		requests int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		if r.Method == http.MethodGet {
			requests++
			if r.Header.Get("Range") == "" {
				unranged++
			}
		}
		mu.Unlock()
		http.ServeContent(w, r, "pkgR.whl", time.Time{}, bytes.NewReader(body))
	}))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	p := testParams(t, &out, mustParse(t, srv.URL+"/pkgR.whl"))

	if err := runExtract(context.Background(), p); err != nil {
		t.Fatalf("runExtract: %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["pkgR.whl"] != "Name: R\nVersion: 3.0" {
		t.Errorf("pkgR.whl = %q", decoded["pkgR.whl"])
	}

	mu.Lock()
	defer mu.Unlock()
	if requests == 0 {
		t.Fatal("no GET requests reached the server")
	}
	if unranged != 0 {
		t.Errorf("%d of %d GETs had no Range header; the wheel must not be downloaded in full", unranged, requests)
	}
}

func TestRunExtractCompletionOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "local.whl"), wheelFixture(t, "local-1.0.dist-info", "Name: local"), 0o644); err != nil {
		t.Fatalf("write local.whl: %v", err)
	}

	slowBody := wheelFixture(t, "slow-1.0.dist-info", "Name: slow")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		http.ServeContent(w, r, "slow.whl", time.Time{}, bytes.NewReader(slowBody))
	}))
	t.Cleanup(srv.Close)

	// Slow remote wheel first in the input; the local wheel must still
	// appear first in the output bytes.
	var out bytes.Buffer
	p := testParams(t, &out,
		mustParse(t, srv.URL+"/slow.whl"),
		mustParse(t, filepath.Join(dir, "local.whl")),
	)

	if err := runExtract(context.Background(), p); err != nil {
		t.Fatalf("runExtract: %v", err)
	}

	s := out.String()
	localAt := strings.Index(s, `"local.whl"`)
	slowAt := strings.Index(s, `"slow.whl"`)
	if localAt < 0 || slowAt < 0 {
		t.Fatalf("members missing from output: %s", s)
	}
	if localAt > slowAt {
		t.Errorf("local.whl should complete (and stream) before slow.whl:\n%s", s)
	}
}

func TestRunExtractOmitsFailedWheels(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "good.whl"), wheelFixture(t, "good-1.0.dist-info", "Name: good"), 0o644); err != nil {
		t.Fatalf("write good.whl: %v", err)
	}
	var noMeta bytes.Buffer
	zw := zip.NewWriter(&noMeta)
	if _, err := zw.Create("nothing.txt"); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "nometa.whl"), noMeta.Bytes(), 0o644); err != nil {
		t.Fatalf("write nometa.whl: %v", err)
	}

	var out bytes.Buffer
	p := testParams(t, &out,
		mustParse(t, filepath.Join(dir, "good.whl")),
		mustParse(t, filepath.Join(dir, "nometa.whl")),
	)

	err := runExtract(context.Background(), p)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitFetchFailed {
		t.Fatalf("runExtract error = %v, want ExitError with code %d", err, ExitFetchFailed)
	}

	// The object must still be complete, valid JSON with only the
	// successful member.
	var decoded map[string]string
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON after partial failure: %v\n%s", err, out.String())
	}
	if len(decoded) != 1 {
		t.Fatalf("got %d members, want 1: %v", len(decoded), decoded)
	}
	if decoded["good.whl"] != "Name: good" {
		t.Errorf("good.whl = %q", decoded["good.whl"])
	}
}

func TestParseLocatorsRejectsBadArgsUpFront(t *testing.T) {
	t.Parallel()

	if _, err := parseLocators([]string{"/tmp/a.whl", "s3://bucket/b.whl"}); !errors.Is(err, locator.ErrUnsupportedScheme) {
		t.Errorf("parseLocators error = %v, want ErrUnsupportedScheme", err)
	}
	if _, err := parseLocators([]string{"relative/path.whl"}); !errors.Is(err, locator.ErrNotAbsolute) {
		t.Errorf("parseLocators error = %v, want ErrNotAbsolute", err)
	}
}
