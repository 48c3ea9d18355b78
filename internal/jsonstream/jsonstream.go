// SPDX-License-Identifier: MPL-2.0

// Package jsonstream writes a JSON object incrementally.
//
// Members are emitted the moment they are supplied, in the order they
// arrive; the whole object is never materialized in memory. The caller
// decides member order — here, task completion order.
package jsonstream

import (
	"encoding/json"
	"io"
)

// ObjectWriter emits one JSON object with string values onto w. Call
// Member for each pair as it becomes available, then Close to terminate
// the object. Not safe for concurrent use; the single consumer of the
// completion stream drives it.
type ObjectWriter struct {
	w       io.Writer
	started bool
	err     error
}

// NewObjectWriter returns a writer for one JSON object. Nothing is
// written until the first Member (or Close, which yields "{}").
func NewObjectWriter(w io.Writer) *ObjectWriter {
	return &ObjectWriter{w: w}
}

// Member writes one key/value member, preceded by "{" for the first
// member and "," for every later one. The pair reaches w before Member
// returns. After an error the writer is poisoned and further calls
// return the same error.
func (o *ObjectWriter) Member(key, value string) error {
	if o.err != nil {
		return o.err
	}

	sep := ","
	if !o.started {
		sep = "{"
		o.started = true
	}

	k, err := json.Marshal(key)
	if err != nil {
		return o.fail(err)
	}
	v, err := json.Marshal(value)
	if err != nil {
		return o.fail(err)
	}

	buf := make([]byte, 0, len(sep)+len(k)+1+len(v))
	buf = append(buf, sep...)
	buf = append(buf, k...)
	buf = append(buf, ':')
	buf = append(buf, v...)

	if _, err := o.w.Write(buf); err != nil {
		return o.fail(err)
	}
	return nil
}

// Close terminates the object. An ObjectWriter with no members yields
// "{}".
func (o *ObjectWriter) Close() error {
	if o.err != nil {
		return o.err
	}

	closing := "}"
	if !o.started {
		closing = "{}"
		o.started = true
	}
	if _, err := io.WriteString(o.w, closing); err != nil {
		return o.fail(err)
	}
	return nil
}

func (o *ObjectWriter) fail(err error) error {
	o.err = err
	return err
}
