// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"net/http"
	"sync"

	"github.com/charmbracelet/log"

	"wheelmeta/internal/locator"
)

type (
	// Constructor builds a backend for an origin. It is a test seam:
	// tests substitute it to count constructions or to inject fakes.
	Constructor func(origin locator.Origin) (Backend, error)

	// Resolver caches one Backend per origin. It is the only shared
	// mutable state between concurrent fetch tasks; the mutex
	// guarantees at most one backend construction per distinct origin
	// regardless of how many tasks hit it first.
	Resolver struct {
		mu       sync.Mutex
		backends map[locator.Origin]Backend

		construct  Constructor
		logger     *log.Logger
		httpClient *http.Client
		userAgent  string
		bufSize    int
	}

	// ResolverOption configures a Resolver during construction.
	ResolverOption func(*Resolver)
)

// WithConstructor overrides backend construction, primarily for tests.
func WithConstructor(c Constructor) ResolverOption {
	return func(r *Resolver) { r.construct = c }
}

// WithLogger sets the logger used by the instrumentation layer.
func WithLogger(l *log.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// WithHTTPClient sets the client shared by all remote backends, useful
// for tests or custom transports.
func WithHTTPClient(c *http.Client) ResolverOption {
	return func(r *Resolver) { r.httpClient = c }
}

// WithUserAgent sets the User-Agent header sent with every range request.
func WithUserAgent(ua string) ResolverOption {
	return func(r *Resolver) { r.userAgent = ua }
}

// WithBufferSize sets the read-ahead window over ranged readers.
func WithBufferSize(n int) ResolverOption {
	return func(r *Resolver) { r.bufSize = n }
}

// NewResolver creates a Resolver with an empty cache. The cache lives
// for one run; backends need no explicit teardown beyond the process.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		backends: make(map[locator.Origin]Backend),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.construct == nil {
		r.construct = r.defaultConstruct
	}
	return r
}

// Resolve returns the backend for the locator's origin, constructing
// and caching it on first use.
func (r *Resolver) Resolve(l locator.Locator) (Backend, error) {
	origin := l.Origin()

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.backends[origin]; ok {
		return b, nil
	}
	b, err := r.construct(origin)
	if err != nil {
		return nil, err
	}
	r.backends[origin] = b
	return b, nil
}

// defaultConstruct dispatches on the origin kind. This is the one place
// the remote/local split is decided; both variants come back wrapped in
// the instrumentation layer.
func (r *Resolver) defaultConstruct(origin locator.Origin) (Backend, error) {
	var b Backend
	switch origin.Kind {
	case locator.KindRemote:
		b = newHTTPBackend(origin.Endpoint, r.httpClient, r.userAgent, r.bufSize)
	default:
		b = newFileBackend()
	}
	return instrument(b, r.logger), nil
}
