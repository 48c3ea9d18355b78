// SPDX-License-Identifier: MPL-2.0

// Package extract orchestrates concurrent wheel metadata fetches.
//
// One task runs per input locator: resolve the storage backend for the
// locator's origin, open the wheel with random-access reads, locate the
// METADATA entry, read and decode it. Results flow out on a channel in
// completion order — a fast wheel is never held behind a slow one, and
// one wheel's failure never cancels its siblings.
package extract

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"wheelmeta/internal/locator"
	"wheelmeta/internal/storage"
	"wheelmeta/internal/wheel"
)

// Step names the stage a fetch task was in when it failed.
type Step string

const (
	StepResolve Step = "resolve backend"
	StepOpen    Step = "open object"
	StepArchive Step = "parse archive"
	StepLocate  Step = "locate METADATA"
	StepRead    Step = "read METADATA"
	StepDecode  Step = "decode METADATA"
)

type (
	// Error is a task-scoped failure tagged with its originating
	// locator and the step that failed. It never aborts the run;
	// it travels out through the Result stream.
	Error struct {
		Locator locator.Locator
		Step    Step
		Cause   error
	}

	// Result is the terminal state of one fetch task: the extracted
	// metadata text, or the error that stopped it.
	Result struct {
		Locator locator.Locator
		Text    string
		Err     error
	}

	// Options configures a run.
	Options struct {
		// Resolver supplies storage backends. Required.
		Resolver *storage.Resolver

		// Limit bounds the number of tasks in flight. Zero means one
		// task per locator, all concurrent.
		Limit int
	}
)

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Locator, e.Step, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Run launches one fetch task per locator and returns the stream of
// results in completion order. The channel closes once every task has
// finished; callers must drain it. Task failures are carried in
// Result.Err, never through panics or cancellation of other tasks.
func Run(ctx context.Context, locators []locator.Locator, opts Options) <-chan Result {
	out := make(chan Result)

	var g errgroup.Group
	if opts.Limit > 0 {
		g.SetLimit(opts.Limit)
	}

	// Spawning happens off the caller's goroutine: with a limit set,
	// g.Go blocks until a slot frees up, and slots free up only once
	// the caller starts draining the channel.
	go func() {
		for _, l := range locators {
			g.Go(func() error {
				text, err := fetchOne(ctx, opts.Resolver, l)
				out <- Result{Locator: l, Text: text, Err: err}
				return nil
			})
		}
		g.Wait() //nolint:errcheck // tasks report through the channel, never an error return
		close(out)
	}()

	return out
}

// fetchOne drives a single locator through the fetch pipeline:
// resolve -> open -> parse archive -> extract metadata.
func fetchOne(ctx context.Context, resolver *storage.Resolver, l locator.Locator) (string, error) {
	backend, err := resolver.Resolve(l)
	if err != nil {
		return "", &Error{Locator: l, Step: StepResolve, Cause: err}
	}

	obj, err := backend.Open(ctx, l.Path())
	if err != nil {
		return "", &Error{Locator: l, Step: StepOpen, Cause: err}
	}
	defer obj.Close() //nolint:errcheck // read-only object

	archive, err := wheel.Open(obj)
	if err != nil {
		return "", &Error{Locator: l, Step: StepArchive, Cause: err}
	}

	entry, err := archive.FindMetadata()
	if err != nil {
		return "", &Error{Locator: l, Step: StepLocate, Cause: err}
	}

	buf, err := archive.ReadEntry(entry)
	if err != nil {
		return "", &Error{Locator: l, Step: StepRead, Cause: err}
	}

	text, err := wheel.DecodeMetadata(buf)
	if err != nil {
		return "", &Error{Locator: l, Step: StepDecode, Cause: err}
	}
	return text, nil
}
