package psr7

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors_ErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrNotSeekable", ErrNotSeekable, "stream is not seekable"},
		{"ErrSeekWhence", ErrSeekWhence, "cannot seek: only io.SeekStart is supported"},
		{"ErrNegativeSeek", ErrNegativeSeek, "cannot seek: negative position"},
		{"ErrUnreachableOffset", ErrUnreachableOffset, "cannot seek: offset is behind the stream position"},
		{"ErrClosed", ErrClosed, "stream is closed"},
		{"ErrNotImplemented", ErrNotImplemented, "stream method not implemented"},
		{"ErrInvalidWindow", ErrInvalidWindow, "invalid window: offset must be >= 0 and limit >= -1"},
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrPathExists", ErrPathExists, "path exists"},
		{"ErrInvalidRange", ErrInvalidRange, "invalid range header"},
		{"ErrRangeNotSatisfiable", ErrRangeNotSatisfiable, "range not satisfiable"},
		{"ErrInvalidIndex", ErrInvalidIndex, "invalid part index"},
		{"ErrInvalidBundle", ErrInvalidBundle, "invalid bundle"},
		{"ErrPartNotFound", ErrPartNotFound, "part not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("%s.Error() = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestOffsetError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("window: %w", &OffsetError{Offset: 4, Position: 9})

	if !errors.Is(err, ErrUnreachableOffset) {
		t.Error("expected wrapped OffsetError to match ErrUnreachableOffset")
	}
	if errors.Is(err, ErrNegativeSeek) {
		t.Error("OffsetError must not match ErrNegativeSeek")
	}
	var oe *OffsetError
	if !errors.As(err, &oe) {
		t.Fatal("expected errors.As to find OffsetError")
	}
	if oe.Offset != 4 || oe.Position != 9 {
		t.Errorf("got %+v", *oe)
	}
}
