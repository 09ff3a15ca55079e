package psr7

import (
	"errors"
	"fmt"
	"io"
)

// LimitStream is a window over the byte range [offset, offset+limit) of a
// source stream.
//
// The window keeps no cursor of its own. Every position it reports is derived
// from the source's cursor, so anything else that reads or seeks the same
// source moves the window too. Only one window over a given source should be
// active at a time.
//
// Closing a LimitStream does not close the source.
type LimitStream struct {
	src    Source
	offset int64
	limit  int64
}

var _ Stream = (*LimitStream)(nil)

// NewLimitStream creates a window over src starting at the absolute offset and
// spanning at most limit bytes. Pass Unbounded as limit to extend the window
// to the end of src.
//
// A seekable source is moved to offset. A forward-only source that is behind
// offset is advanced by reading; one that is already past offset is left where
// it is.
func NewLimitStream(src Source, offset, limit int64) (*LimitStream, error) {
	if offset < 0 || limit < Unbounded {
		return nil, ErrInvalidWindow
	}
	l := &LimitStream{src: src, limit: limit}
	if err := l.SetOffset(offset); err != nil {
		var oe *OffsetError
		if !errors.As(err, &oe) {
			return nil, err
		}
		// Forward-only source already past offset: keep the window and let
		// the caller decide how to reposition.
		l.offset = offset
	}
	return l, nil
}

// Offset returns the absolute start of the window in the source.
func (l *LimitStream) Offset() int64 { return l.offset }

// Limit returns the window length, or Unbounded.
func (l *LimitStream) Limit() int64 { return l.limit }

// Source returns the wrapped stream.
func (l *LimitStream) Source() Source { return l.src }

// SetOffset moves the window to start at the absolute offset n.
//
// A seekable source is sought to n. A forward-only source is advanced by
// reading when n is ahead of its cursor; when n is behind it, SetOffset fails
// with an *OffsetError and the window is unchanged.
func (l *LimitStream) SetOffset(n int64) error {
	if n < 0 {
		return ErrNegativeSeek
	}
	cur, err := l.src.Tell()
	if err != nil {
		return err
	}
	if cur != n {
		if sk, ok := seekerOf(l.src); ok {
			if _, err := sk.Seek(n, io.SeekStart); err != nil {
				return err
			}
		} else if cur > n {
			return &OffsetError{Offset: n, Position: cur}
		} else if err := skip(l.src, n-cur); err != nil {
			return fmt.Errorf("could not skip to stream offset %d: %w", n, err)
		}
	}
	l.offset = n
	return nil
}

// SetLimit changes the window length. Unbounded removes the limit.
func (l *LimitStream) SetLimit(n int64) error {
	if n < Unbounded {
		return ErrInvalidWindow
	}
	l.limit = n
	return nil
}

func (l *LimitStream) bounded() bool { return l.limit != Unbounded }

// Tell returns the position relative to the start of the window.
func (l *LimitStream) Tell() (int64, error) {
	pos, err := l.src.Tell()
	if err != nil {
		return 0, err
	}
	return pos - l.offset, nil
}

// EOF reports whether the source is exhausted or the window end was reached.
func (l *LimitStream) EOF() bool {
	if l.src.EOF() {
		return true
	}
	if !l.bounded() {
		return false
	}
	pos, err := l.Tell()
	if err != nil {
		return true
	}
	return pos >= l.limit
}

// Size returns the window length. For an unbounded window it is the source
// size minus the offset, and unknown when the source size is unknown.
func (l *LimitStream) Size() (int64, bool) {
	if l.bounded() {
		return l.limit, true
	}
	size, ok := sizeOf(l.src)
	if !ok {
		return 0, false
	}
	return size - l.offset, true
}

// Read reads from the source without crossing the end of the window. An
// exhausted window returns 0, io.EOF without touching the source.
func (l *LimitStream) Read(p []byte) (int, error) {
	if !l.bounded() {
		return l.src.Read(p)
	}
	pos, err := l.Tell()
	if err != nil {
		return 0, err
	}
	remaining := l.limit - pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	return l.src.Read(p)
}

// Seekable reports whether the source can currently seek.
func (l *LimitStream) Seekable() bool {
	_, ok := seekerOf(l.src)
	return ok
}

// Seek moves to a position relative to the start of the window. Only
// io.SeekStart is supported. Positions past the end of a bounded window land on
// the end; negative positions fail and leave the source untouched.
func (l *LimitStream) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart {
		return 0, fmt.Errorf("%w: offset %d with whence %d", ErrSeekWhence, offset, whence)
	}
	if offset < 0 {
		return 0, fmt.Errorf("%w: offset %d", ErrNegativeSeek, offset)
	}
	sk, ok := seekerOf(l.src)
	if !ok {
		return 0, ErrNotSeekable
	}
	if l.bounded() && offset > l.limit {
		offset = l.limit
	}
	abs, err := sk.Seek(l.offset+offset, io.SeekStart)
	if err != nil {
		return 0, err
	}
	return abs - l.offset, nil
}

// Contents drains the rest of the window. It never seeks, so it works on
// forward-only sources.
func (l *LimitStream) Contents() ([]byte, error) {
	return readRest(l)
}

// String rewinds to the start of the window and returns its contents. It
// returns an empty string if the window cannot be rewound or read.
func (l *LimitStream) String() string {
	if err := Rewind(l); err != nil {
		return ""
	}
	b, err := l.Contents()
	if err != nil {
		return ""
	}
	return string(b)
}

// Close releases the window. The source stays open.
func (l *LimitStream) Close() error {
	return nil
}

// skip advances a forward-only source by n bytes.
func skip(src Source, n int64) error {
	got, err := drain(io.Discard, src, n)
	if err != nil {
		return err
	}
	if got < n {
		return io.ErrUnexpectedEOF
	}
	return nil
}
