package psr7

// noSeekStream hides the seek capability of a wrapped stream.
type noSeekStream struct {
	Stream
}

// NoSeek returns a stream that reads from s but never seeks.
func NoSeek(s Stream) Stream {
	return &noSeekStream{Stream: s}
}

func (n *noSeekStream) Seekable() bool { return false }

func (n *noSeekStream) Seek(int64, int) (int64, error) {
	return 0, ErrNotSeekable
}

func (n *noSeekStream) Contents() ([]byte, error) {
	return readRest(n)
}

// String returns the remaining contents; a forward-only stream cannot rewind.
func (n *noSeekStream) String() string {
	b, err := n.Contents()
	if err != nil {
		return ""
	}
	return string(b)
}
