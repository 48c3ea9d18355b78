// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"context"
	"fmt"
	"os"
)

// fileBackend reads objects straight from the local filesystem. It is
// rooted at "/": object paths are absolute paths.
type fileBackend struct{}

func newFileBackend() *fileBackend { return &fileBackend{} }

func (b *fileBackend) Name() string { return "file:/" }

func (b *fileBackend) Open(ctx context.Context, path string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	return &fileObject{File: f, size: info.Size()}, nil
}

// fileObject is an os.File plus its size at open time. os.File already
// implements io.ReaderAt and io.Closer.
type fileObject struct {
	*os.File
	size int64
}

func (o *fileObject) Size() int64 { return o.size }
