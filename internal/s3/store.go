// Package s3 implements ticklake.ObjectStore over S3-compatible object
// storage. It supports AWS S3, MinIO, and LocalStack.
//
// Dataset buckets are read-only from this package's point of view: the
// store only checks for and fetches objects, mirroring them into local
// files.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/quantarc/ticklake/ticklake"
)

// API defines the subset of the S3 client interface used by the store.
// This enables testing with mock implementations.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Store fetches dataset objects from an S3-compatible backend.
type Store struct {
	client API
}

// New creates a store over a pre-configured S3 client.
//
// The client must be pre-configured with credentials, region, and endpoint.
// Use NewClient or one of the endpoint presets to build it.
func New(client API) (*Store, error) {
	if client == nil {
		return nil, errors.New("s3: client is required")
	}
	return &Store{client: client}, nil
}

// Exists reports whether bucket/key is present.
func (s *Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3: head object: %w", err)
	}
	return true, nil
}

// Fetch downloads bucket/key into localPath, creating parent directories,
// and returns the bytes written. A missing object is reported as
// ticklake.ErrNotFound so callers can skip it.
//
// The object streams through a temporary file that is renamed into place
// on success, so a failed transfer never leaves a truncated mirror file.
func (s *Store) Fetch(ctx context.Context, bucket, key, localPath string) (int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, ticklake.ErrNotFound
		}
		return 0, fmt.Errorf("s3: get object: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return 0, fmt.Errorf("s3: create mirror directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(localPath), "."+filepath.Base(localPath)+".*")
	if err != nil {
		return 0, fmt.Errorf("s3: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, out.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("s3: download %s/%s: %w", bucket, key, err)
	}
	if err := os.Rename(tmpName, localPath); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("s3: finalize %s: %w", localPath, err)
	}
	return n, nil
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

var _ ticklake.ObjectStore = (*Store)(nil)

// -----------------------------------------------------------------------------
// Mock S3 Client for Testing
// -----------------------------------------------------------------------------

// MockS3Client is a test double for API backed by an in-memory
// bucket/key map.
type MockS3Client struct {
	mu      sync.RWMutex
	objects map[string][]byte
	fail    map[string]error
}

// NewMockS3Client creates a new mock S3 client for testing.
func NewMockS3Client() *MockS3Client {
	return &MockS3Client{
		objects: make(map[string][]byte),
		fail:    make(map[string]error),
	}
}

// SeedObject stores an object under bucket/key.
func (m *MockS3Client) SeedObject(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = data
}

// FailObject makes GetObject on bucket/key return err.
func (m *MockS3Client) FailObject(bucket, key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[bucket+"/"+key] = err
}

// GetObject implements API.GetObject for testing.
func (m *MockS3Client) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	full := aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key)

	m.mu.RLock()
	failErr := m.fail[full]
	data, exists := m.objects[full]
	m.mu.RUnlock()

	if failErr != nil {
		return nil, failErr
	}
	if !exists {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(string(data))),
	}, nil
}

// HeadObject implements API.HeadObject for testing.
func (m *MockS3Client) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	full := aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key)

	m.mu.RLock()
	_, exists := m.objects[full]
	m.mu.RUnlock()

	if !exists {
		return nil, &types.NoSuchKey{}
	}
	return &s3.HeadObjectOutput{}, nil
}

var _ API = (*MockS3Client)(nil)

// smithyAPIError implements smithy.APIError for testing.
type smithyAPIError struct {
	code    string
	message string
}

func (e *smithyAPIError) Error() string {
	return e.message
}

func (e *smithyAPIError) ErrorCode() string {
	return e.code
}

func (e *smithyAPIError) ErrorMessage() string {
	return e.message
}

func (e *smithyAPIError) ErrorFault() smithy.ErrorFault {
	return smithy.FaultUnknown
}
