package psr7

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compressor handles compression and decompression of bodies.
type Compressor interface {
	// Name returns the compressor identifier (for example, "gzip", "zstd", "noop").
	Name() string

	// Encoding returns the Content-Encoding token, empty for identity.
	Encoding() string

	// Compress wraps a writer with compression.
	Compress(w io.Writer) (io.WriteCloser, error)

	// Decompress wraps a reader with decompression.
	Decompress(r io.Reader) (io.ReadCloser, error)
}

// Inflate returns a forward-only stream of the decompressed contents of s,
// read from its current position. Closing the result closes the decompressor
// but not s.
//
// The decompressed size is unknown, so unbounded windows over the result
// report an unknown size and can only be drained, never rewound.
func Inflate(c Compressor, s Source) (Stream, error) {
	rc, err := c.Decompress(s)
	if err != nil {
		return nil, err
	}
	return NewStream(rc, WithoutSeek()), nil
}

// CompressorFor returns the compressor for a Content-Encoding token, and false
// when the encoding is not supported.
func CompressorFor(encoding string) (Compressor, bool) {
	switch encoding {
	case "", "identity":
		return NewNoOpCompressor(), true
	case "gzip", "x-gzip":
		return NewGzipCompressor(), true
	case "zstd":
		return NewZstdCompressor(), true
	default:
		return nil, false
	}
}

// -----------------------------------------------------------------------------
// Gzip Compressor
// -----------------------------------------------------------------------------

type gzipCompressor struct{}

// NewGzipCompressor creates a gzip compressor.
func NewGzipCompressor() Compressor {
	return &gzipCompressor{}
}

func (g *gzipCompressor) Name() string     { return "gzip" }
func (g *gzipCompressor) Encoding() string { return "gzip" }

func (g *gzipCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (g *gzipCompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// -----------------------------------------------------------------------------
// Zstd Compressor
// -----------------------------------------------------------------------------

type zstdCompressor struct{}

// NewZstdCompressor creates a zstd compressor.
func NewZstdCompressor() Compressor {
	return &zstdCompressor{}
}

func (z *zstdCompressor) Name() string     { return "zstd" }
func (z *zstdCompressor) Encoding() string { return "zstd" }

func (z *zstdCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

func (z *zstdCompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

// -----------------------------------------------------------------------------
// NoOp Compressor
// -----------------------------------------------------------------------------

type noopCompressor struct{}

// NewNoOpCompressor creates a compressor that passes data through unchanged.
func NewNoOpCompressor() Compressor {
	return &noopCompressor{}
}

func (n *noopCompressor) Name() string     { return "noop" }
func (n *noopCompressor) Encoding() string { return "" }

func (n *noopCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (n *noopCompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
