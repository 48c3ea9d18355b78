// SPDX-License-Identifier: MPL-2.0

// Package storage provides random-access read backends for wheel
// archives.
//
// A Backend is bound to one origin (an HTTP endpoint or the local
// filesystem root) and opens objects as random-access byte streams. The
// Resolver caches one Backend per origin so locators sharing an origin
// reuse the same connection state. Every backend is wrapped in an
// instrumentation layer that logs and traces each storage operation.
package storage

import (
	"context"
	"io"
)

type (
	// Object is a random-access view of one stored archive. It is
	// owned by a single fetch task and must be closed when the task is
	// done with it.
	Object interface {
		io.ReaderAt

		// Size returns the total object size in bytes. Archive parsing
		// needs it to locate the central directory at the tail.
		Size() int64

		io.Closer
	}

	// Backend opens objects belonging to one origin for random-access
	// reads. Implementations are safe for concurrent use; the objects
	// they return are not shared between tasks.
	Backend interface {
		// Open opens the object at path. For remote backends path is
		// the URL path under the backend's endpoint; for the local
		// backend it is an absolute filesystem path.
		Open(ctx context.Context, path string) (Object, error)

		// Name identifies the backend in logs and trace spans.
		Name() string
	}
)
