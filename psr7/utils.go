package psr7

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// CopyToString reads up to maxLen bytes from src, or everything when maxLen is
// negative, and returns them as a string.
func CopyToString(src Source, maxLen int64) (string, error) {
	var buf bytes.Buffer
	_, err := drain(&buf, src, maxLen)
	return buf.String(), err
}

// CopyToStream copies the rest of src to dst and returns the number of bytes
// written.
func CopyToStream(dst io.Writer, src Source) (int64, error) {
	return drain(dst, src, -1)
}

// Rewind moves src back to position zero.
//
// A source already at zero is left alone, so forward-only sources that have not
// been read can still be rewound.
func Rewind(src Source) error {
	pos, err := src.Tell()
	if err == nil && pos == 0 {
		return nil
	}
	sk, ok := seekerOf(src)
	if !ok {
		return ErrNotSeekable
	}
	_, err = sk.Seek(0, io.SeekStart)
	return err
}

// readRest drains src without seeking.
func readRest(src Source) ([]byte, error) {
	var buf bytes.Buffer
	_, err := drain(&buf, src, -1)
	return buf.Bytes(), err
}

// drain copies from src to dst in chunks until src reports the end, returns an
// empty read, or max bytes have been copied. A negative max means no cap.
func drain(dst io.Writer, src Source, max int64) (int64, error) {
	chunk := make([]byte, chunkSize)
	var total int64
	for max < 0 || total < max {
		if src.EOF() {
			break
		}
		p := chunk
		if max >= 0 && max-total < int64(len(p)) {
			p = p[:max-total]
		}
		n, err := src.Read(p)
		if n > 0 {
			if _, werr := dst.Write(p[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// -----------------------------------------------------------------------------
// ReaderAt adapter
// -----------------------------------------------------------------------------

// readerAt implements io.ReaderAt by seeking a stream before every read.
type readerAt struct {
	s  Source
	sk io.Seeker
}

// NewReaderAt returns an io.ReaderAt over a seekable source.
//
// Every ReadAt moves the source's cursor, so the returned value is not safe for
// concurrent use and disturbs other readers of the same source.
func NewReaderAt(src Source) (io.ReaderAt, error) {
	sk, ok := seekerOf(src)
	if !ok {
		return nil, ErrNotSeekable
	}
	return &readerAt{s: src, sk: sk}, nil
}

func (r *readerAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeSeek
	}
	if _, err := r.sk.Seek(off, io.SeekStart); err != nil {
		return 0, fmt.Errorf("read at %d: %w", off, err)
	}
	n, err := io.ReadFull(r.s, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}
