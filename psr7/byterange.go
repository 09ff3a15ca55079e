package psr7

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Range errors.
var (
	// ErrInvalidRange indicates a Range header that cannot be parsed.
	ErrInvalidRange = errors.New("invalid range header")

	// ErrRangeNotSatisfiable indicates a Range header whose ranges all fall
	// outside the body.
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
)

// ByteRange is a resolved, non-empty byte range of a body of known size.
type ByteRange struct {
	Start  int64
	Length int64
}

// End returns the inclusive last byte offset.
func (r ByteRange) End() int64 { return r.Start + r.Length - 1 }

// ContentRange renders the Content-Range header value for a body of the given
// size.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End(), size)
}

// Open returns a window over the range of src.
func (r ByteRange) Open(src Source) (*LimitStream, error) {
	return NewLimitStream(src, r.Start, r.Length)
}

// ParseRange parses an HTTP Range header ("bytes=0-99", "bytes=100-",
// "bytes=-500", or comma-separated sets of those) against a body of the given
// size.
//
// End offsets past the body are clamped to the last byte. Ranges starting at
// or past the end are dropped; if none remain, ErrRangeNotSatisfiable is
// returned. An empty header yields no ranges and no error.
func ParseRange(header string, size int64) ([]ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, header)
	}

	var ranges []ByteRange
	for _, part := range strings.Split(header[len(prefix):], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		first, last, ok := strings.Cut(part, "-")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRange, part)
		}
		first, last = strings.TrimSpace(first), strings.TrimSpace(last)

		var r ByteRange
		if first == "" {
			// Suffix range: the last n bytes.
			n, err := strconv.ParseInt(last, 10, 64)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: %q", ErrInvalidRange, part)
			}
			if n == 0 || size == 0 {
				continue
			}
			if n > size {
				n = size
			}
			r = ByteRange{Start: size - n, Length: n}
		} else {
			start, err := strconv.ParseInt(first, 10, 64)
			if err != nil || start < 0 {
				return nil, fmt.Errorf("%w: %q", ErrInvalidRange, part)
			}
			if start >= size {
				continue
			}
			end := size - 1
			if last != "" {
				end, err = strconv.ParseInt(last, 10, 64)
				if err != nil || end < start {
					return nil, fmt.Errorf("%w: %q", ErrInvalidRange, part)
				}
				if end >= size {
					end = size - 1
				}
			}
			r = ByteRange{Start: start, Length: end - start + 1}
		}
		ranges = append(ranges, r)
	}

	if len(ranges) == 0 {
		return nil, ErrRangeNotSatisfiable
	}
	return ranges, nil
}
