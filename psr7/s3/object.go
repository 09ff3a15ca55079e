package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/phillmac/psr7/psr7"
)

// objectStream implements psr7.Stream over an S3 object using ranged reads.
//
// At most one response body is open at a time. It is opened on the first read
// after a seek and dropped on seeks that cannot be served by discarding.
type objectStream struct {
	ctx   context.Context
	store *Store
	key   string
	size  int64

	// end is the last byte fetches may request, or -1 for the object end.
	end int64

	pos    int64
	body   io.ReadCloser
	eof    bool
	closed bool
}

var _ psr7.Stream = (*objectStream)(nil)

func (o *objectStream) Read(p []byte) (int, error) {
	if o.closed {
		return 0, psr7.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if o.pos >= o.size {
		o.eof = true
		return 0, io.EOF
	}

	for {
		fresh := o.body == nil
		if fresh {
			if err := o.fetch(); err != nil {
				return 0, err
			}
			if o.body == nil {
				o.eof = true
				return 0, io.EOF
			}
		}

		n, err := o.body.Read(p)
		o.pos += int64(n)
		if errors.Is(err, io.EOF) {
			o.dropBody()
			if o.pos >= o.size {
				o.eof = true
				return n, io.EOF
			}
			if n > 0 {
				return n, nil
			}
			if fresh {
				return 0, fmt.Errorf("s3: reading %s at %d: %w", o.key, o.pos, io.ErrUnexpectedEOF)
			}
			// The fetched range ended before the object did.
			continue
		}
		if err != nil {
			o.dropBody()
			return n, fmt.Errorf("s3: reading %s at %d: %w", o.key, o.pos, err)
		}
		return n, nil
	}
}

// fetch opens a response body starting at the current position.
func (o *objectStream) fetch() error {
	rangeHeader := fmt.Sprintf("bytes=%d-", o.pos)
	if o.end >= o.pos {
		rangeHeader = fmt.Sprintf("bytes=%d-%d", o.pos, o.end)
	}
	o.store.log(psr7.LogLevelDebug, "s3: get %s range %s", o.key, rangeHeader)

	out, err := o.store.client.GetObject(o.ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.store.bucket),
		Key:    aws.String(o.key),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		if isInvalidRange(err) {
			return nil
		}
		if isNotFound(err) {
			return psr7.ErrNotFound
		}
		o.store.log(psr7.LogLevelWarn, "s3: get %s range %s failed: %v", o.key, rangeHeader, err)
		return fmt.Errorf("s3: range read: %w", err)
	}
	o.body = out.Body
	return nil
}

func (o *objectStream) dropBody() {
	if o.body != nil {
		_ = o.body.Close()
		o.body = nil
	}
}

func (o *objectStream) Tell() (int64, error) {
	if o.closed {
		return 0, psr7.ErrClosed
	}
	return o.pos, nil
}

func (o *objectStream) EOF() bool {
	return o.closed || o.eof
}

func (o *objectStream) Size() (int64, bool) {
	return o.size, !o.closed
}

func (o *objectStream) Seekable() bool {
	return !o.closed
}

func (o *objectStream) Seek(offset int64, whence int) (int64, error) {
	if o.closed {
		return 0, psr7.ErrClosed
	}

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = o.pos + offset
	case io.SeekEnd:
		abs = o.size + offset
	default:
		return o.pos, fmt.Errorf("%w: whence %d", psr7.ErrSeekWhence, whence)
	}
	if abs < 0 {
		return o.pos, fmt.Errorf("%w: offset %d", psr7.ErrNegativeSeek, abs)
	}

	o.eof = false
	if abs == o.pos {
		return abs, nil
	}

	diff := abs - o.pos
	if o.body != nil && diff > 0 && diff <= maxDiscard {
		o.store.log(psr7.LogLevelDebug, "s3: seek %s: discarding %d bytes", o.key, diff)
		n, err := io.CopyN(io.Discard, o.body, diff)
		o.pos += n
		if err == nil {
			return abs, nil
		}
		o.dropBody()
	} else {
		o.dropBody()
	}
	o.pos = abs
	return abs, nil
}

func (o *objectStream) Contents() ([]byte, error) {
	var buf bytes.Buffer
	_, err := psr7.CopyToStream(&buf, o)
	return buf.Bytes(), err
}

func (o *objectStream) String() string {
	if err := psr7.Rewind(o); err != nil {
		return ""
	}
	b, err := o.Contents()
	if err != nil {
		return ""
	}
	return string(b)
}

func (o *objectStream) Close() error {
	if o.closed {
		return nil
	}
	o.dropBody()
	o.closed = true
	return nil
}
