package psr7

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// A bundle is a body made of several parts written back to back, followed by
// an encoded part index and a fixed-size trailer:
//
//	part 0 | part 1 | ... | index | magic (8 bytes) | index length (8 bytes, big endian)
//
// Parts are served as windows over the bundle body, so reading a part never
// copies the rest of the bundle.
const (
	bundleMagic       = "PSR7BNDL"
	bundleTrailerSize = 16
)

// Bundle errors.
var (
	// ErrInvalidBundle indicates a body without a valid bundle trailer or index.
	ErrInvalidBundle = errors.New("invalid bundle")

	// ErrPartNotFound indicates a part name missing from the bundle index.
	ErrPartNotFound = errors.New("part not found")
)

// Part is one input to WriteBundle.
type Part struct {
	Name        string
	ContentType string
	Body        Source
}

// countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteBundle writes parts, the index encoded with codec, and the trailer to
// w. Each part body is drained from its current position. It returns the index
// that was written.
func WriteBundle(w io.Writer, codec IndexCodec, parts []Part) ([]PartRef, error) {
	cw := &countingWriter{w: w}
	seen := make(map[string]bool, len(parts))
	refs := make([]PartRef, 0, len(parts))

	for _, p := range parts {
		if p.Name == "" || seen[p.Name] {
			return nil, fmt.Errorf("%w: part name %q is empty or duplicated", ErrInvalidBundle, p.Name)
		}
		seen[p.Name] = true

		start := cw.n
		if _, err := CopyToStream(cw, p.Body); err != nil {
			return nil, fmt.Errorf("bundle: writing part %q: %w", p.Name, err)
		}
		refs = append(refs, PartRef{
			Name:        p.Name,
			ContentType: p.ContentType,
			Offset:      start,
			Length:      cw.n - start,
		})
	}

	indexStart := cw.n
	if err := codec.Encode(cw, refs); err != nil {
		return nil, fmt.Errorf("bundle: writing %s index: %w", codec.Name(), err)
	}

	var trailer [bundleTrailerSize]byte
	copy(trailer[:8], bundleMagic)
	binary.BigEndian.PutUint64(trailer[8:], uint64(cw.n-indexStart))
	if _, err := cw.Write(trailer[:]); err != nil {
		return nil, fmt.Errorf("bundle: writing trailer: %w", err)
	}
	return refs, nil
}

// Bundle gives access to the parts of a bundle body.
//
// All parts share the cursor of the bundle body: reading one part moves every
// other part obtained from the same Bundle. Use one part at a time.
type Bundle struct {
	src    Stream
	parts  []PartRef
	byName map[string]int
}

// OpenBundle reads the trailer and index of a bundle body. s must be seekable
// and report its size.
func OpenBundle(s Stream, codec IndexCodec) (*Bundle, error) {
	if !s.Seekable() {
		return nil, fmt.Errorf("bundle: %w", ErrNotSeekable)
	}
	size, ok := s.Size()
	if !ok {
		return nil, fmt.Errorf("%w: body size is unknown", ErrInvalidBundle)
	}
	if size < bundleTrailerSize {
		return nil, fmt.Errorf("%w: body is %d bytes, shorter than the trailer", ErrInvalidBundle, size)
	}

	tw, err := NewLimitStream(s, size-bundleTrailerSize, bundleTrailerSize)
	if err != nil {
		return nil, err
	}
	trailer, err := tw.Contents()
	if err != nil {
		return nil, fmt.Errorf("bundle: reading trailer: %w", err)
	}
	if len(trailer) != bundleTrailerSize || !bytes.Equal(trailer[:8], []byte(bundleMagic)) {
		return nil, fmt.Errorf("%w: missing trailer", ErrInvalidBundle)
	}

	indexLen := int64(binary.BigEndian.Uint64(trailer[8:]))
	indexStart := size - bundleTrailerSize - indexLen
	if indexLen < 0 || indexStart < 0 {
		return nil, fmt.Errorf("%w: index length %d exceeds body", ErrInvalidBundle, indexLen)
	}

	iw, err := NewLimitStream(s, indexStart, indexLen)
	if err != nil {
		return nil, err
	}
	parts, err := codec.Decode(iw)
	if err != nil {
		return nil, fmt.Errorf("bundle: decoding %s index: %w", codec.Name(), err)
	}

	b := &Bundle{src: s, parts: parts, byName: make(map[string]int, len(parts))}
	for i, p := range parts {
		if p.Offset < 0 || p.Length < 0 || p.Offset > indexStart-p.Length {
			return nil, fmt.Errorf("%w: part %q [%d, +%d) outside body", ErrInvalidIndex, p.Name, p.Offset, p.Length)
		}
		b.byName[p.Name] = i
	}
	return b, nil
}

// Parts returns the bundle index in write order.
func (b *Bundle) Parts() []PartRef {
	out := make([]PartRef, len(b.parts))
	copy(out, b.parts)
	return out
}

// Part returns a window over the named part, positioned at its start.
func (b *Bundle) Part(name string) (*LimitStream, error) {
	i, ok := b.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPartNotFound, name)
	}
	ref := b.parts[i]
	return NewLimitStream(b.src, ref.Offset, ref.Length)
}
