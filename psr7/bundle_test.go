package psr7

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func sampleParts() []Part {
	return []Part{
		{Name: "headers", ContentType: "text/plain", Body: FromString("Host: example.com\r\n")},
		{Name: "body", ContentType: "application/json", Body: FromString(`{"ok":true}`)},
		{Name: "empty", Body: FromString("")},
		{Name: "tail", Body: NoSeek(FromString("forward-only part"))},
	}
}

func writeSampleBundle(t *testing.T, codec IndexCodec) ([]byte, []PartRef) {
	t.Helper()
	var buf bytes.Buffer
	refs, err := WriteBundle(&buf, codec, sampleParts())
	if err != nil {
		t.Fatalf("WriteBundle failed: %v", err)
	}
	return buf.Bytes(), refs
}

func TestBundle_RoundTrip(t *testing.T) {
	want := map[string]string{
		"headers": "Host: example.com\r\n",
		"body":    `{"ok":true}`,
		"empty":   "",
		"tail":    "forward-only part",
	}

	for _, codec := range []IndexCodec{NewJSONLCodec(), NewParquetCodec()} {
		t.Run(codec.Name(), func(t *testing.T) {
			data, refs := writeSampleBundle(t, codec)

			b, err := OpenBundle(FromBytes(data), codec)
			if err != nil {
				t.Fatalf("OpenBundle failed: %v", err)
			}
			parts := b.Parts()
			if len(parts) != len(refs) {
				t.Fatalf("Parts() returned %d entries, want %d", len(parts), len(refs))
			}
			for i := range refs {
				if parts[i] != refs[i] {
					t.Errorf("Parts()[%d] = %+v, want %+v", i, parts[i], refs[i])
				}
			}

			for name, content := range want {
				p, err := b.Part(name)
				if err != nil {
					t.Fatalf("Part(%q) failed: %v", name, err)
				}
				if got := p.String(); got != content {
					t.Errorf("Part(%q) = %q, want %q", name, got, content)
				}
				size, ok := p.Size()
				if !ok || size != int64(len(content)) {
					t.Errorf("Part(%q).Size() = (%d, %v), want (%d, true)", name, size, ok, len(content))
				}
			}
		})
	}
}

func TestBundle_PartsShareCursor(t *testing.T) {
	data, _ := writeSampleBundle(t, NewJSONLCodec())
	b, err := OpenBundle(FromBytes(data), NewJSONLCodec())
	if err != nil {
		t.Fatal(err)
	}

	headers, err := b.Part("headers")
	if err != nil {
		t.Fatal(err)
	}
	body, err := b.Part("body")
	if err != nil {
		t.Fatal(err)
	}

	// body was opened last, so the shared cursor sits at its start.
	if got := readString(t, body, 3); got != `{"o` {
		t.Errorf("body Read = %q", got)
	}
	if _, err := headers.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	if got := readString(t, headers, 4); got != "Host" {
		t.Errorf("headers Read = %q", got)
	}
}

func TestBundle_PartFromStore(t *testing.T) {
	data, _ := writeSampleBundle(t, NewParquetCodec())
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(t.Context(), "bundles/sample.bin", bytes.NewReader(data)); err != nil {
		t.Fatal(err)
	}

	s, err := store.Open(t.Context(), "bundles/sample.bin")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()

	b, err := OpenBundle(s, NewParquetCodec())
	if err != nil {
		t.Fatalf("OpenBundle failed: %v", err)
	}
	p, err := b.Part("tail")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.String(); got != "forward-only part" {
		t.Errorf("Part(tail) = %q", got)
	}
}

func TestBundle_PartNotFound(t *testing.T) {
	data, _ := writeSampleBundle(t, NewJSONLCodec())
	b, err := OpenBundle(FromBytes(data), NewJSONLCodec())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Part("missing"); !errors.Is(err, ErrPartNotFound) {
		t.Errorf("expected ErrPartNotFound, got: %v", err)
	}
}

func TestWriteBundle_InvalidNames(t *testing.T) {
	tests := []struct {
		name  string
		parts []Part
	}{
		{"empty name", []Part{{Name: "", Body: FromString("x")}}},
		{"duplicate", []Part{{Name: "a", Body: FromString("x")}, {Name: "a", Body: FromString("y")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WriteBundle(io.Discard, NewJSONLCodec(), tt.parts)
			if !errors.Is(err, ErrInvalidBundle) {
				t.Errorf("expected ErrInvalidBundle, got: %v", err)
			}
		})
	}
}

// trailer builds a bundle trailer for an index of n bytes.
func trailer(n uint64) []byte {
	out := make([]byte, bundleTrailerSize)
	copy(out, bundleMagic)
	binary.BigEndian.PutUint64(out[8:], n)
	return out
}

func TestOpenBundle_Invalid(t *testing.T) {
	index := `{"name":"a","offset":0,"length":50}` + "\n"
	outside := append([]byte("abc"+index), trailer(uint64(len(index)))...)

	tests := []struct {
		name string
		s    Stream
		want error
	}{
		{"forward-only", NoSeek(FromString("whatever")), ErrNotSeekable},
		{"too short", FromString("short"), ErrInvalidBundle},
		{"bad magic", FromString("0123456789abcdefXXXXXXXX"), ErrInvalidBundle},
		{"index longer than body", FromBytes(trailer(1000)), ErrInvalidBundle},
		{"part outside body", FromBytes(outside), ErrInvalidIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenBundle(tt.s, NewJSONLCodec())
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got: %v", tt.want, err)
			}
		})
	}
}

func TestOpenBundle_UnknownSize(t *testing.T) {
	s := Decorate(FromString("0123456789abcdefghij"), FnStream{
		SizeFn: func() (int64, bool) { return 0, false },
	})
	if _, err := OpenBundle(s, NewJSONLCodec()); !errors.Is(err, ErrInvalidBundle) {
		t.Errorf("expected ErrInvalidBundle, got: %v", err)
	}
}
