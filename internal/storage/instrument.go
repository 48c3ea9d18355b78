// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope for storage spans.
const tracerName = "wheelmeta/internal/storage"

// instrument wraps a backend so every storage operation — open, each
// ranged read, close — is logged at debug level and recorded as a trace
// span. The wrapping is uniform across backend kinds; backends
// themselves stay free of observability concerns.
func instrument(b Backend, logger *log.Logger) Backend {
	return &instrumentedBackend{
		inner:  b,
		logger: logger.With("backend", b.Name()),
		tracer: otel.Tracer(tracerName),
	}
}

type instrumentedBackend struct {
	inner  Backend
	logger *log.Logger
	tracer trace.Tracer
}

func (b *instrumentedBackend) Name() string { return b.inner.Name() }

func (b *instrumentedBackend) Open(ctx context.Context, path string) (Object, error) {
	ctx, span := b.tracer.Start(ctx, "storage.open",
		trace.WithAttributes(
			attribute.String("storage.backend", b.inner.Name()),
			attribute.String("storage.path", path),
		))
	defer span.End()

	start := time.Now()
	obj, err := b.inner.Open(ctx, path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		b.logger.Debug("open failed", "path", path, "err", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("storage.size", obj.Size()))
	b.logger.Debug("open", "path", path, "size", obj.Size(), "elapsed", time.Since(start))

	return &instrumentedObject{
		inner:  obj,
		ctx:    ctx,
		path:   path,
		logger: b.logger,
		tracer: b.tracer,
	}, nil
}

// instrumentedObject forwards reads to the underlying object after
// recording them. The context captured at open time scopes the read
// spans; the object is task-owned, so the context's lifetime matches.
type instrumentedObject struct {
	inner  Object
	ctx    context.Context
	path   string
	logger *log.Logger
	tracer trace.Tracer
}

func (o *instrumentedObject) ReadAt(p []byte, off int64) (int, error) {
	_, span := o.tracer.Start(o.ctx, "storage.read",
		trace.WithAttributes(
			attribute.String("storage.path", o.path),
			attribute.Int64("storage.offset", off),
			attribute.Int("storage.length", len(p)),
		))
	defer span.End()

	n, err := o.inner.ReadAt(p, off)
	if err != nil && err != io.EOF {
		span.SetStatus(codes.Error, err.Error())
	}
	o.logger.Debug("read", "path", o.path, "offset", off, "n", n, "err", err)
	return n, err
}

func (o *instrumentedObject) Size() int64 { return o.inner.Size() }

func (o *instrumentedObject) Close() error {
	err := o.inner.Close()
	o.logger.Debug("close", "path", o.path, "err", err)
	return err
}
