// Package rangeserver serves bodies from a psr7.Store over HTTP with Range
// support. Every range is answered with a window over the stored body, so
// partial responses never read bytes outside the requested range.
package rangeserver

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phillmac/psr7/psr7"
)

// Config holds configuration for the range server.
type Config struct {
	// Store holds the bodies. Required.
	Store psr7.Store

	// Prefix is the URL path under which bodies are served. Defaults to
	// "/bodies".
	Prefix string

	// Log receives one line per request. Nil disables logging.
	Log psr7.LogFunc
}

type server struct {
	store psr7.Store
	log   psr7.LogFunc
}

// New returns a gin engine serving GET and HEAD requests for stored bodies.
func New(cfg Config) (*gin.Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("rangeserver: store is required")
	}
	prefix := strings.TrimSuffix(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "/bodies"
	}
	logf := cfg.Log
	if logf == nil {
		logf = psr7.NopLog
	}

	s := &server{store: cfg.Store, log: logf}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog)
	r.GET(prefix+"/*path", s.handleBody)
	r.HEAD(prefix+"/*path", s.handleBody)
	return r, nil
}

func (s *server) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log(psr7.LogLevelInfo, "%s %s %q -> %d (%s)",
		c.Request.Method, c.Request.URL.Path, c.GetHeader("Range"),
		c.Writer.Status(), time.Since(start))
}

func (s *server) handleBody(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("path"), "/")

	body, err := s.store.Open(c.Request.Context(), name)
	switch {
	case errors.Is(err, psr7.ErrNotFound):
		c.AbortWithStatus(http.StatusNotFound)
		return
	case errors.Is(err, psr7.ErrInvalidPath):
		c.AbortWithStatus(http.StatusBadRequest)
		return
	case err != nil:
		s.log(psr7.LogLevelError, "open %s: %v", name, err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	defer func() { _ = body.Close() }()

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	size, ok := body.Size()
	if !ok {
		c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
		return
	}
	c.Header("Accept-Ranges", "bytes")

	ranges, err := psr7.ParseRange(c.GetHeader("Range"), size)
	switch {
	case errors.Is(err, psr7.ErrRangeNotSatisfiable):
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
		c.AbortWithStatus(http.StatusRequestedRangeNotSatisfiable)
		return
	case err != nil:
		// A malformed Range header is ignored.
		s.log(psr7.LogLevelDebug, "ignoring range %q: %v", c.GetHeader("Range"), err)
		ranges = nil
	}

	switch len(ranges) {
	case 0:
		c.DataFromReader(http.StatusOK, size, contentType, body, nil)
	case 1:
		w, err := ranges[0].Open(body)
		if err != nil {
			s.log(psr7.LogLevelError, "open range %s of %s: %v", ranges[0].ContentRange(size), name, err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.DataFromReader(http.StatusPartialContent, ranges[0].Length, contentType, w, map[string]string{
			"Content-Range": ranges[0].ContentRange(size),
		})
	default:
		s.writeMultipart(c, body, ranges, size, contentType)
	}
}

// writeMultipart answers a multi-range request with a multipart/byteranges
// body. Parts are written in request order through one window each.
func (s *server) writeMultipart(c *gin.Context, body psr7.Stream, ranges []psr7.ByteRange, size int64, contentType string) {
	mw := multipart.NewWriter(c.Writer)
	c.Header("Content-Type", "multipart/byteranges; boundary="+mw.Boundary())
	c.Status(http.StatusPartialContent)
	if c.Request.Method == http.MethodHead {
		return
	}

	for _, r := range ranges {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":  {contentType},
			"Content-Range": {r.ContentRange(size)},
		})
		if err != nil {
			s.log(psr7.LogLevelWarn, "multipart write: %v", err)
			return
		}
		w, err := r.Open(body)
		if err != nil {
			s.log(psr7.LogLevelError, "open range %s: %v", r.ContentRange(size), err)
			return
		}
		if _, err := psr7.CopyToStream(part, w); err != nil {
			s.log(psr7.LogLevelWarn, "copy range %s: %v", r.ContentRange(size), err)
			return
		}
	}
	if err := mw.Close(); err != nil {
		s.log(psr7.LogLevelWarn, "multipart close: %v", err)
	}
}
