// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	bufra "github.com/avvmoto/buf-readerat"
	"github.com/snabb/httpreaderat"
)

const (
	// DefaultHTTPTimeout bounds each individual range request.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultBufferSize is the read-ahead window layered over the
	// ranged reader. Central-directory parsing does many small,
	// clustered reads at the archive tail; buffering turns those into
	// a handful of range requests instead of one per read.
	DefaultBufferSize = 1 << 20
)

// httpBackend reads objects from one HTTP(S) endpoint using byte-range
// requests. The endpoint carries scheme and host ("https://host"); the
// object path is appended per request. One httpBackend (and its
// http.Client connection pool) is shared by all wheels of that origin.
type httpBackend struct {
	endpoint  string
	client    *http.Client
	userAgent string
	bufSize   int
}

func newHTTPBackend(endpoint string, client *http.Client, userAgent string, bufSize int) *httpBackend {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &httpBackend{
		endpoint:  endpoint,
		client:    client,
		userAgent: userAgent,
		bufSize:   bufSize,
	}
}

func (b *httpBackend) Name() string { return b.endpoint }

// Open prepares a ranged reader over the object. httpreaderat issues an
// initial probe to learn the object size and range support, then serves
// ReadAt calls as HTTP Range requests; the whole body is never fetched
// in one piece.
func (b *httpBackend) Open(ctx context.Context, path string) (Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s%s: %w", b.endpoint, path, err)
	}
	if b.userAgent != "" {
		req.Header.Set("User-Agent", b.userAgent)
	}

	r, err := httpreaderat.New(b.client, req, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s%s: %w", b.endpoint, path, err)
	}

	return &httpObject{
		ReaderAt: bufra.NewBufReaderAt(r, b.bufSize),
		size:     r.Size(),
	}, nil
}

// httpObject pairs the buffered ranged reader with the probed size.
type httpObject struct {
	io.ReaderAt
	size int64
}

func (o *httpObject) Size() int64 { return o.size }

// Close is a no-op: range requests hold no long-lived resources beyond
// the backend's shared connection pool.
func (o *httpObject) Close() error { return nil }
