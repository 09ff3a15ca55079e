// Package s3 provides an S3-compatible body store.
//
// The store supports AWS S3, MinIO, LocalStack, Cloudflare R2, and other
// S3-compatible object stores.
//
// Bodies are opened as seekable streams backed by ranged GetObject calls:
//   - Open: HeadObject for the size, then lazy "bytes=pos-" fetches
//   - OpenRange: the same stream, with fetches capped at the end of the range,
//     wrapped in a window
//   - Short forward seeks discard from the open response body; any other seek
//     drops the body and the next read fetches from the new position
//   - Put: spools to a temp file, then PutObject with If-None-Match
//
// # Consistency
//
// AWS S3 provides strong read-after-write consistency. Other S3-compatible
// backends may not; consult their documentation.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/phillmac/psr7/psr7"
)

// maxPutSize is the S3 PutObject limit.
const maxPutSize = 5 * 1024 * 1024 * 1024 // 5GB

// maxDiscard is how far a forward seek may skip by reading the open body
// before a new ranged request is cheaper.
const maxDiscard = 1 * 1024 * 1024 // 1MB

// API defines the subset of the S3 client interface used by the store.
// This enables testing with mock implementations.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config holds configuration for the S3 store.
type Config struct {
	// Bucket is the S3 bucket name. Required.
	Bucket string

	// Prefix is an optional key prefix for all operations.
	// A trailing slash is added if missing.
	Prefix string

	// Log receives request-level diagnostics. Nil disables logging.
	Log psr7.LogFunc
}

// Store implements psr7.Store using an S3-compatible backend.
type Store struct {
	client     API
	bucket     string
	prefix     string
	log        psr7.LogFunc
	createTemp func() (*os.File, error)
}

var _ psr7.Store = (*Store)(nil)

// New creates a new S3 store with the given client and configuration.
//
// The client must be pre-configured with credentials, region, and endpoint.
// Use github.com/aws/aws-sdk-go-v2/config to load configuration.
func New(client API, cfg Config) (*Store, error) {
	if client == nil {
		return nil, errors.New("s3: client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	logf := cfg.Log
	if logf == nil {
		logf = psr7.NopLog
	}

	return &Store{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     prefix,
		log:        logf,
		createTemp: func() (*os.File, error) { return os.CreateTemp("", "psr7-s3-*") },
	}, nil
}

// Put writes a body to the given key.
// Returns ErrPathExists if the key already exists.
//
// The body is spooled to a temp file first so the upload is seekable and its
// length is known.
func (s *Store) Put(ctx context.Context, key string, r io.Reader) error {
	fullKey, err := s.validateKey(key)
	if err != nil {
		return err
	}

	tmpFile, err := s.createTemp()
	if err != nil {
		return fmt.Errorf("s3: creating temp file: %w", err)
	}
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
	}()

	size, err := io.Copy(tmpFile, r)
	if err != nil {
		return fmt.Errorf("s3: writing temp file: %w", err)
	}
	if size > maxPutSize {
		return fmt.Errorf("s3: body size %d exceeds maximum %d", size, maxPutSize)
	}
	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("s3: seeking temp file: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(fullKey),
		Body:          tmpFile,
		ContentLength: aws.Int64(size),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			code := apiErr.ErrorCode()
			if code == "PreconditionFailed" || code == "412" {
				return psr7.ErrPathExists
			}
		}
		return fmt.Errorf("s3: put object: %w", err)
	}
	s.log(psr7.LogLevelDebug, "s3: put %s (%d bytes)", fullKey, size)
	return nil
}

// Open returns a seekable stream over the object at key.
// Returns ErrNotFound if the key does not exist.
//
// The stream keeps ctx for the ranged requests it makes while being read.
func (s *Store) Open(ctx context.Context, key string) (psr7.Stream, error) {
	return s.open(ctx, key, -1)
}

// OpenRange returns a window over [offset, offset+length) of the object at
// key. Ranged requests made through the window stop at the end of the range.
func (s *Store) OpenRange(ctx context.Context, key string, offset, length int64) (psr7.Stream, error) {
	if err := psr7.ValidateRange(offset, length); err != nil {
		return nil, err
	}
	end := int64(-1)
	if length > 0 {
		end = offset + length - 1
	}
	obj, err := s.open(ctx, key, end)
	if err != nil {
		return nil, err
	}
	return psr7.NewOwnedWindow(obj, offset, length)
}

func (s *Store) open(ctx context.Context, key string, end int64) (*objectStream, error) {
	fullKey, err := s.validateKey(key)
	if err != nil {
		return nil, err
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, psr7.ErrNotFound
		}
		return nil, fmt.Errorf("s3: head object: %w", err)
	}

	return &objectStream{
		ctx:   ctx,
		store: s,
		key:   fullKey,
		size:  aws.ToInt64(head.ContentLength),
		end:   end,
	}, nil
}

// Exists checks whether a key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	fullKey, err := s.validateKey(key)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3: head object: %w", err)
	}
	return true, nil
}

// List returns all keys under the given prefix, relative to the store prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix, err := s.validatePrefix(prefix)
	if err != nil {
		return nil, err
	}

	var keys []string
	var continuationToken *string

	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(fullPrefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("s3: list objects: %w", err)
		}

		for _, obj := range out.Contents {
			if obj.Key != nil {
				keys = append(keys, strings.TrimPrefix(*obj.Key, s.prefix))
			}
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		continuationToken = out.NextContinuationToken
	}

	return keys, nil
}

// Delete removes the key if it exists.
func (s *Store) Delete(ctx context.Context, key string) error {
	fullKey, err := s.validateKey(key)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		return fmt.Errorf("s3: delete object: %w", err)
	}
	return nil
}

// validateKey validates and returns the full key for object operations.
func (s *Store) validateKey(key string) (string, error) {
	if key == "" {
		return "", psr7.ErrInvalidPath
	}

	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", psr7.ErrInvalidPath
	}
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return "", psr7.ErrInvalidPath
	}

	return s.prefix + cleaned, nil
}

// validatePrefix validates and returns the full prefix for list operations.
func (s *Store) validatePrefix(prefix string) (string, error) {
	if prefix == "" {
		return s.prefix, nil
	}

	cleaned := path.Clean(prefix)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", psr7.ErrInvalidPath
	}
	if cleaned == "." {
		return s.prefix, nil
	}
	cleaned = strings.TrimPrefix(cleaned, "/")

	return s.prefix + cleaned, nil
}

// isNotFound checks if an error indicates the object was not found.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}
	return false
}

// isInvalidRange checks if an error reports a range starting past the object end.
func isInvalidRange(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidRange"
}
