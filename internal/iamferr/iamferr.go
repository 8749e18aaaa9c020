// Package iamferr defines the error taxonomy shared by every layer of the
// IAMF encoder: the bit buffer, the OBU model, the parameter engine, the
// assembler, the sequencer, and the encoder façade all return errors
// wrapping one of these sentinels so a caller can classify a failure with
// errors.Is regardless of which layer raised it.
package iamferr

import (
	"errors"
	"fmt"
)

var (
	// InvalidArgument covers malformed input: ULEB128 overflow, a
	// param-definition that disagrees with an earlier copy under the same
	// id, a count_label mismatch, a trim invariant violation, an
	// unsupported codec parameter.
	InvalidArgument = errors.New("invalid argument")

	// OutOfRange covers a write or read whose requested field width
	// exceeds the declared precision of the value or destination.
	OutOfRange = errors.New("out of range")

	// ResourceExhausted covers a read-buffer source that ran out of bits
	// before satisfying a request.
	ResourceExhausted = errors.New("resource exhausted")

	// FailedPrecondition covers use of a writer after it has been
	// aborted, or an attempt to emit a temporal unit before the
	// descriptor prologue has been validated.
	FailedPrecondition = errors.New("failed precondition")

	// Unknown covers an opaque failure surfaced by an external
	// collaborator (codec, renderer, loudness calculator, WAV writer).
	Unknown = errors.New("unknown")
)

// Wrap annotates err with msg and marks it as matching kind for errors.Is.
func Wrap(kind error, msg string) error {
	return &wrapped{kind: kind, msg: msg}
}

type wrapped struct {
	kind error
	msg  string
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.kind }

// Wrapf is Wrap with fmt-style formatting.
func Wrapf(kind error, format string, args ...any) error {
	return Wrap(kind, fmt.Sprintf(format, args...))
}
