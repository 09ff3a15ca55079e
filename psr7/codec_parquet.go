package psr7

import (
	"bytes"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// ParquetCompression specifies internal Parquet compression.
type ParquetCompression int

// Parquet compression options for internal file compression.
const (
	ParquetCompressionNone ParquetCompression = iota
	ParquetCompressionSnappy
	ParquetCompressionGzip
	ParquetCompressionZstd
)

// ParquetOption configures Parquet codec behavior.
type ParquetOption func(*parquetCodec)

// WithParquetCompression sets internal Parquet compression.
func WithParquetCompression(codec ParquetCompression) ParquetOption {
	return func(c *parquetCodec) {
		c.compression = codec
	}
}

// parquetCodec implements IndexCodec with one Parquet row per part.
type parquetCodec struct {
	compression ParquetCompression
}

// NewParquetCodec creates an index codec storing the part index as a Parquet
// file.
//
// Parquet keeps its metadata in a footer, so Decode needs random access. A
// seekable stream of known size (such as a window over a bundle) is read in
// place; anything else is buffered in memory first.
func NewParquetCodec(opts ...ParquetOption) IndexCodec {
	c := &parquetCodec{compression: ParquetCompressionSnappy}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *parquetCodec) Name() string {
	return "parquet"
}

func (c *parquetCodec) Encode(w io.Writer, parts []PartRef) error {
	if err := parquet.Write(w, parts, c.compressionOption()); err != nil {
		return fmt.Errorf("parquet: write index: %w", err)
	}
	return nil
}

func (c *parquetCodec) Decode(s Stream) ([]PartRef, error) {
	ra, size, err := randomAccess(s)
	if err != nil {
		return nil, fmt.Errorf("parquet: read index: %w", err)
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: empty parquet index", ErrInvalidIndex)
	}

	parts, err := parquet.Read[PartRef](ra, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}
	return parts, nil
}

func (c *parquetCodec) compressionOption() parquet.WriterOption {
	switch c.compression {
	case ParquetCompressionSnappy:
		return parquet.Compression(&parquet.Snappy)
	case ParquetCompressionGzip:
		return parquet.Compression(&parquet.Gzip)
	case ParquetCompressionZstd:
		return parquet.Compression(&parquet.Zstd)
	default:
		return parquet.Compression(&parquet.Uncompressed)
	}
}

// randomAccess returns an io.ReaderAt over the whole of s and its size. Seekable
// streams of known size are used directly; others are drained into memory.
func randomAccess(s Stream) (io.ReaderAt, int64, error) {
	if size, ok := s.Size(); ok {
		if ra, err := NewReaderAt(s); err == nil {
			return ra, size, nil
		}
	}
	data, err := s.Contents()
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}
