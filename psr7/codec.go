package psr7

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

const maxScanTokenSize = 1024 * 1024 // 1MB

// PartRef locates one part inside a bundle body.
type PartRef struct {
	// Name identifies the part within its bundle.
	Name string `json:"name" parquet:"name"`

	// ContentType is the media type of the part, if known.
	ContentType string `json:"content_type,omitempty" parquet:"content_type,optional"`

	// Offset is the absolute position of the first byte of the part.
	Offset int64 `json:"offset" parquet:"offset"`

	// Length is the number of bytes in the part.
	Length int64 `json:"length" parquet:"length"`
}

// ErrInvalidIndex indicates an index that cannot be decoded or that describes
// parts outside the body.
var ErrInvalidIndex = errors.New("invalid part index")

// IndexCodec serializes the part index of a bundle.
type IndexCodec interface {
	// Name returns the codec identifier (for example, "jsonl" or "parquet").
	Name() string

	// Encode writes parts to w.
	Encode(w io.Writer, parts []PartRef) error

	// Decode reads every part from s, starting at its current position.
	Decode(s Stream) ([]PartRef, error)
}

// -----------------------------------------------------------------------------
// JSONL Codec
// -----------------------------------------------------------------------------

type jsonlCodec struct{}

// NewJSONLCodec creates an index codec writing one JSON object per line.
func NewJSONLCodec() IndexCodec {
	return &jsonlCodec{}
}

func (j *jsonlCodec) Name() string {
	return "jsonl"
}

func (j *jsonlCodec) Encode(w io.Writer, parts []PartRef) error {
	enc := jsonCodec.NewEncoder(w)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	return nil
}

func (j *jsonlCodec) Decode(s Stream) ([]PartRef, error) {
	var parts []PartRef
	scanner := bufio.NewScanner(s)
	scanner.Buffer(make([]byte, 0, 4*1024), maxScanTokenSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p PartRef
		if err := jsonCodec.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
		}
		parts = append(parts, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return parts, nil
}
