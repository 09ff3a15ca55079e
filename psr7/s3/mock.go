package s3

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// MockS3Client is an in-memory test double for API.
type MockS3Client struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// Call counters for test assertions
	PutObjectCalls int
	GetObjectCalls int

	// Ranges records the Range header of every GetObject call.
	Ranges []string
}

// NewMockS3Client creates a new mock S3 client for testing.
func NewMockS3Client() *MockS3Client {
	return &MockS3Client{
		objects: make(map[string][]byte),
	}
}

// ResetCounts resets call counters for test isolation.
func (m *MockS3Client) ResetCounts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutObjectCalls = 0
	m.GetObjectCalls = 0
	m.Ranges = nil
}

// PutObject implements API.PutObject for testing.
func (m *MockS3Client) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(params.Key)
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutObjectCalls++

	if aws.ToString(params.IfNoneMatch) == "*" {
		if _, exists := m.objects[key]; exists {
			return nil, &smithyAPIError{code: "PreconditionFailed", message: "object already exists"}
		}
	}

	m.objects[key] = data
	return &s3.PutObjectOutput{}, nil
}

// GetObject implements API.GetObject for testing. It understands
// "bytes=start-end" and "bytes=start-" ranges.
func (m *MockS3Client) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(params.Key)

	m.mu.Lock()
	m.GetObjectCalls++
	m.Ranges = append(m.Ranges, aws.ToString(params.Range))
	data, exists := m.objects[key]
	m.mu.Unlock()

	if !exists {
		return nil, &types.NoSuchKey{}
	}

	if params.Range != nil {
		rng := strings.TrimPrefix(aws.ToString(params.Range), "bytes=")
		first, last, _ := strings.Cut(rng, "-")
		start, err := strconv.ParseInt(first, 10, 64)
		if err != nil {
			return nil, &smithyAPIError{code: "InvalidArgument", message: "bad range"}
		}
		end := int64(len(data)) - 1
		if last != "" {
			if end, err = strconv.ParseInt(last, 10, 64); err != nil {
				return nil, &smithyAPIError{code: "InvalidArgument", message: "bad range"}
			}
		}

		if start >= int64(len(data)) {
			return nil, &smithyAPIError{code: "InvalidRange", message: "range not satisfiable"}
		}
		if end >= int64(len(data)) {
			end = int64(len(data)) - 1
		}
		data = data[start : end+1]
	}

	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

// HeadObject implements API.HeadObject for testing.
func (m *MockS3Client) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	key := aws.ToString(params.Key)

	m.mu.RLock()
	data, exists := m.objects[key]
	m.mu.RUnlock()

	if !exists {
		return nil, &types.NoSuchKey{}
	}

	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

// DeleteObject implements API.DeleteObject for testing.
func (m *MockS3Client) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	delete(m.objects, aws.ToString(params.Key))
	m.mu.Unlock()

	return &s3.DeleteObjectOutput{}, nil
}

// ListObjectsV2 implements API.ListObjectsV2 for testing.
func (m *MockS3Client) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(params.Prefix)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var contents []types.Object
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			k := key
			contents = append(contents, types.Object{Key: &k})
		}
	}

	return &s3.ListObjectsV2Output{
		Contents:    contents,
		IsTruncated: aws.Bool(false),
	}, nil
}

// smithyAPIError implements smithy.APIError for testing.
type smithyAPIError struct {
	code    string
	message string
}

func (e *smithyAPIError) Error() string        { return e.message }
func (e *smithyAPIError) ErrorCode() string    { return e.code }
func (e *smithyAPIError) ErrorMessage() string { return e.message }

func (e *smithyAPIError) ErrorFault() smithy.ErrorFault {
	return smithy.FaultUnknown
}
