package psr7

// FnStream is a Stream built from functions. Each method calls the matching
// field; methods whose field is nil report ErrNotImplemented, or the zero
// answer for methods that cannot fail.
//
// FnStream is useful to model sources with unusual capabilities, or to
// decorate an existing stream by overriding a few of its methods:
//
//	fs := psr7.Decorate(s, psr7.FnStream{
//		SizeFn: func() (int64, bool) { return 0, false },
//	})
type FnStream struct {
	ReadFn     func(p []byte) (int, error)
	TellFn     func() (int64, error)
	EOFFn      func() bool
	SizeFn     func() (int64, bool)
	SeekableFn func() bool
	SeekFn     func(offset int64, whence int) (int64, error)
	CloseFn    func() error
	ContentsFn func() ([]byte, error)
	StringFn   func() string
}

var _ Stream = (*FnStream)(nil)

// Decorate returns an FnStream that forwards to s except where overrides sets
// a function.
func Decorate(s Stream, overrides FnStream) *FnStream {
	fs := &FnStream{
		ReadFn:     s.Read,
		TellFn:     s.Tell,
		EOFFn:      s.EOF,
		SizeFn:     s.Size,
		SeekableFn: s.Seekable,
		SeekFn:     s.Seek,
		CloseFn:    s.Close,
		ContentsFn: s.Contents,
		StringFn:   s.String,
	}
	if overrides.ReadFn != nil {
		fs.ReadFn = overrides.ReadFn
	}
	if overrides.TellFn != nil {
		fs.TellFn = overrides.TellFn
	}
	if overrides.EOFFn != nil {
		fs.EOFFn = overrides.EOFFn
	}
	if overrides.SizeFn != nil {
		fs.SizeFn = overrides.SizeFn
	}
	if overrides.SeekableFn != nil {
		fs.SeekableFn = overrides.SeekableFn
	}
	if overrides.SeekFn != nil {
		fs.SeekFn = overrides.SeekFn
	}
	if overrides.CloseFn != nil {
		fs.CloseFn = overrides.CloseFn
	}
	if overrides.ContentsFn != nil {
		fs.ContentsFn = overrides.ContentsFn
	}
	if overrides.StringFn != nil {
		fs.StringFn = overrides.StringFn
	}
	return fs
}

func (f *FnStream) Read(p []byte) (int, error) {
	if f.ReadFn == nil {
		return 0, ErrNotImplemented
	}
	return f.ReadFn(p)
}

func (f *FnStream) Tell() (int64, error) {
	if f.TellFn == nil {
		return 0, ErrNotImplemented
	}
	return f.TellFn()
}

func (f *FnStream) EOF() bool {
	if f.EOFFn == nil {
		return false
	}
	return f.EOFFn()
}

func (f *FnStream) Size() (int64, bool) {
	if f.SizeFn == nil {
		return 0, false
	}
	return f.SizeFn()
}

// Seekable defaults to whether SeekFn is set.
func (f *FnStream) Seekable() bool {
	if f.SeekableFn == nil {
		return f.SeekFn != nil
	}
	return f.SeekableFn()
}

func (f *FnStream) Seek(offset int64, whence int) (int64, error) {
	if f.SeekFn == nil {
		return 0, ErrNotSeekable
	}
	return f.SeekFn(offset, whence)
}

func (f *FnStream) Close() error {
	if f.CloseFn == nil {
		return nil
	}
	return f.CloseFn()
}

// Contents defaults to draining ReadFn.
func (f *FnStream) Contents() ([]byte, error) {
	if f.ContentsFn == nil {
		if f.ReadFn == nil {
			return nil, ErrNotImplemented
		}
		return readRest(f)
	}
	return f.ContentsFn()
}

func (f *FnStream) String() string {
	if f.StringFn == nil {
		if err := Rewind(f); err != nil {
			return ""
		}
		b, err := f.Contents()
		if err != nil {
			return ""
		}
		return string(b)
	}
	return f.StringFn()
}
