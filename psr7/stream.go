package psr7

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// stream implements Stream over an arbitrary io.Reader.
type stream struct {
	r      io.Reader
	seeker io.Seeker
	size   func() (int64, bool)
	pos    int64
	eof    bool
	closed bool
}

// StreamOption configures a stream created by NewStream.
type StreamOption func(*stream)

// WithSize sets a known total size for readers that cannot report one.
func WithSize(n int64) StreamOption {
	return func(s *stream) {
		s.size = func() (int64, bool) { return n, true }
	}
}

// WithoutSeek treats the reader as forward-only even if it implements io.Seeker.
func WithoutSeek() StreamOption {
	return func(s *stream) {
		s.seeker = nil
	}
}

// NewStream wraps r as a Stream.
//
// Seek support is taken from io.Seeker. The size is taken from a Size() int64
// method (bytes.Reader, strings.Reader), from os.File metadata, or from
// WithSize. The cursor starts at the reader's current offset when it can seek,
// and at zero otherwise.
func NewStream(r io.Reader, opts ...StreamOption) Stream {
	s := &stream{r: r, size: sizeProbe(r)}
	if sk, ok := r.(io.Seeker); ok {
		s.seeker = sk
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.seeker != nil {
		if pos, err := s.seeker.Seek(0, io.SeekCurrent); err == nil {
			s.pos = pos
		} else {
			s.seeker = nil
		}
	}
	return s
}

// FromString returns a seekable stream over s.
func FromString(s string) Stream {
	return NewStream(strings.NewReader(s))
}

// FromBytes returns a seekable stream over b. The slice is not copied.
func FromBytes(b []byte) Stream {
	return NewStream(bytes.NewReader(b))
}

func sizeProbe(r io.Reader) func() (int64, bool) {
	switch v := r.(type) {
	case interface{ Size() int64 }:
		return func() (int64, bool) { return v.Size(), true }
	case *os.File:
		return func() (int64, bool) {
			info, err := v.Stat()
			if err != nil || !info.Mode().IsRegular() {
				return 0, false
			}
			return info.Size(), true
		}
	default:
		return func() (int64, bool) { return 0, false }
	}
}

func (s *stream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n, err := s.r.Read(p)
	s.pos += int64(n)
	if errors.Is(err, io.EOF) {
		s.eof = true
	}
	return n, err
}

func (s *stream) Tell() (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	return s.pos, nil
}

func (s *stream) EOF() bool {
	return s.closed || s.eof
}

func (s *stream) Size() (int64, bool) {
	if s.closed {
		return 0, false
	}
	return s.size()
}

func (s *stream) Seekable() bool {
	return !s.closed && s.seeker != nil
}

func (s *stream) Seek(offset int64, whence int) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if s.seeker == nil {
		return s.pos, ErrNotSeekable
	}
	pos, err := s.seeker.Seek(offset, whence)
	if err != nil {
		return s.pos, fmt.Errorf("unable to seek to stream position %d with whence %d: %w", offset, whence, err)
	}
	s.pos = pos
	s.eof = false
	return pos, nil
}

func (s *stream) Contents() ([]byte, error) {
	return readRest(s)
}

func (s *stream) String() string {
	if err := Rewind(s); err != nil {
		return ""
	}
	b, err := s.Contents()
	if err != nil {
		return ""
	}
	return string(b)
}

func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
