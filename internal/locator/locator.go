// SPDX-License-Identifier: MPL-2.0

// Package locator parses wheel locator strings into typed references.
//
// A locator names one wheel archive to fetch: either a remote HTTP(S)
// URL or a local filesystem path (bare absolute path or file:// URL).
// Parsed locators are immutable values; the Origin they report is the
// key under which storage backends are shared.
package locator

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

var (
	// ErrUnsupportedScheme is returned when a URL uses a scheme other
	// than http, https, or file.
	ErrUnsupportedScheme = errors.New("unsupported scheme")

	// ErrNotAbsolute is returned for bare filesystem paths that are not
	// absolute. Local wheels are addressed from the filesystem root;
	// no working-directory semantics exist here.
	ErrNotAbsolute = errors.New("path is not absolute")

	// ErrNoFileName is returned when a locator's path has no final
	// segment to derive a display name from.
	ErrNoFileName = errors.New("no file name in path")
)

type (
	// Kind discriminates remote from local locators.
	Kind int

	// Origin identifies the storage backend a locator routes through.
	// All locators with an equal Origin share one backend. For remote
	// locators the endpoint is "scheme://host"; for local locators it
	// is the filesystem root "/".
	Origin struct {
		Kind     Kind
		Endpoint string
	}

	// Locator is a parsed reference to a wheel archive. Exactly one
	// variant is populated: a remote URL or a local path. The zero
	// value is not a valid Locator; construct via Parse.
	Locator struct {
		kind Kind
		url  *url.URL // remote only
		path string   // local only
	}
)

const (
	// KindRemote is a wheel fetched over HTTP(S) with range reads.
	KindRemote Kind = iota
	// KindLocal is a wheel read from the local filesystem.
	KindLocal
)

// String returns the kind as a short lowercase word for logs and spans.
func (k Kind) String() string {
	if k == KindRemote {
		return "remote"
	}
	return "local"
}

// Parse converts a raw command-line argument into a Locator.
//
// The argument is tried as a URL first. http and https URLs become
// remote locators; file URLs become local locators using only the URL's
// path component; any other scheme is rejected. Arguments that are not
// URLs (no scheme) are treated as bare filesystem paths and must be
// absolute.
func Parse(raw string) (Locator, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return parsePath(raw)
	}

	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return Locator{}, fmt.Errorf("parse locator %q: missing host", raw)
		}
		return Locator{kind: KindRemote, url: u}, nil
	case "file":
		return parsePath(u.Path)
	default:
		return Locator{}, fmt.Errorf("parse locator %q: %w: %s", raw, ErrUnsupportedScheme, u.Scheme)
	}
}

// parsePath builds a local Locator from a bare filesystem path.
func parsePath(p string) (Locator, error) {
	if p == "" || !strings.HasPrefix(p, "/") {
		return Locator{}, fmt.Errorf("parse locator %q: %w", p, ErrNotAbsolute)
	}
	return Locator{kind: KindLocal, path: path.Clean(p)}, nil
}

// Kind reports whether the locator is remote or local.
func (l Locator) Kind() Kind { return l.kind }

// String renders the locator back to a human-readable form: the
// original URL for remote wheels, the bare path for local ones.
func (l Locator) String() string {
	if l.kind == KindRemote {
		return l.url.String()
	}
	return l.path
}

// Path returns the object path to open through the storage backend.
// For remote locators this is the URL path (the backend supplies the
// endpoint); for local locators it is the absolute filesystem path.
func (l Locator) Path() string {
	if l.kind == KindRemote {
		return l.url.Path
	}
	return l.path
}

// FileName returns the final path segment of the locator.
func (l Locator) FileName() (string, error) {
	name := path.Base(l.Path())
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("locator %q: %w", l.String(), ErrNoFileName)
	}
	return name, nil
}

// DisplayName is the key the locator contributes to the output object:
// the file name when one exists, otherwise the full locator string.
func (l Locator) DisplayName() string {
	if name, err := l.FileName(); err == nil {
		return name
	}
	return l.String()
}

// Origin returns the backend-sharing key for this locator.
func (l Locator) Origin() Origin {
	if l.kind == KindRemote {
		return Origin{Kind: KindRemote, Endpoint: l.url.Scheme + "://" + l.url.Host}
	}
	return Origin{Kind: KindLocal, Endpoint: "/"}
}
