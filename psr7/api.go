// Package psr7 provides readable byte streams for HTTP message bodies and
// bounded windows over them.
//
// The central type is LimitStream, which exposes a byte range of a larger
// stream as if it were the whole stream. Windows never copy data: they
// translate positions onto the wrapped stream's cursor, which they share with
// every other holder of that stream.
package psr7

import (
	"errors"
	"fmt"
	"io"
)

// -----------------------------------------------------------------------------
// Core interfaces
// -----------------------------------------------------------------------------

// Source is the minimal capability set a window needs from the stream it wraps.
//
// Seeking and size reporting are optional; they are probed at runtime through
// the Seekable and Sizer interfaces.
type Source interface {
	io.Reader

	// Tell returns the current absolute position of the cursor.
	Tell() (int64, error)

	// EOF reports whether a read has hit the end of the stream.
	EOF() bool
}

// Seekable is implemented by sources whose seek support is decided at runtime.
//
// A source that implements io.Seeker without Seekable is assumed seekable.
type Seekable interface {
	Seekable() bool
}

// Sizer is implemented by sources that may know their total size.
type Sizer interface {
	// Size returns the total size in bytes and whether it is known.
	Size() (int64, bool)
}

// Stream is the full stream capability set.
//
// Every stream in this package implements Stream, so a window can be used
// anywhere a plain stream is expected.
type Stream interface {
	Source
	Sizer
	Seekable
	io.Seeker
	io.Closer

	// Contents returns the remaining bytes of the stream.
	Contents() ([]byte, error)

	// String rewinds the stream when possible and returns its contents.
	// It returns an empty string if the stream cannot be read from the start.
	String() string
}

// Unbounded is the window limit meaning "until the end of the wrapped stream".
const Unbounded int64 = -1

// chunkSize is the read size used when draining streams.
const chunkSize = 32 * 1024

// -----------------------------------------------------------------------------
// Capability probing
// -----------------------------------------------------------------------------

// seekerOf returns the seeker of src if it can currently seek.
func seekerOf(src Source) (io.Seeker, bool) {
	sk, ok := src.(io.Seeker)
	if !ok {
		return nil, false
	}
	if s, ok := src.(Seekable); ok && !s.Seekable() {
		return nil, false
	}
	return sk, true
}

// sizeOf returns the size of src when it reports one.
func sizeOf(src Source) (int64, bool) {
	s, ok := src.(Sizer)
	if !ok {
		return 0, false
	}
	return s.Size()
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// Error sentinel values for common conditions.
var (
	// ErrNotSeekable indicates a seek on a stream that cannot seek.
	ErrNotSeekable = errNotSeekable{}

	// ErrSeekWhence indicates a seek origin other than io.SeekStart on a window.
	ErrSeekWhence = errSeekWhence{}

	// ErrNegativeSeek indicates a seek target before the start of the stream
	// or window.
	ErrNegativeSeek = errNegativeSeek{}

	// ErrUnreachableOffset indicates a target offset behind the cursor of a
	// stream that cannot move backward.
	ErrUnreachableOffset = errUnreachableOffset{}

	// ErrClosed indicates an operation on a closed stream.
	ErrClosed = errors.New("stream is closed")

	// ErrNotImplemented indicates an FnStream method with no function set.
	ErrNotImplemented = errors.New("stream method not implemented")

	// ErrInvalidWindow indicates a negative window offset or a limit below
	// Unbounded.
	ErrInvalidWindow = errors.New("invalid window: offset must be >= 0 and limit >= -1")
)

type errNotSeekable struct{}

func (errNotSeekable) Error() string { return "stream is not seekable" }

type errSeekWhence struct{}

func (errSeekWhence) Error() string { return "cannot seek: only io.SeekStart is supported" }

type errNegativeSeek struct{}

func (errNegativeSeek) Error() string { return "cannot seek: negative position" }

type errUnreachableOffset struct{}

func (errUnreachableOffset) Error() string { return "cannot seek: offset is behind the stream position" }

// OffsetError reports a stream offset that could not be reached.
type OffsetError struct {
	// Offset is the absolute offset that was requested.
	Offset int64

	// Position is the absolute cursor position at the time of the request.
	Position int64
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("could not seek to stream offset %d", e.Offset)
}

// Is matches ErrUnreachableOffset.
func (e *OffsetError) Is(target error) bool {
	return target == ErrUnreachableOffset
}
