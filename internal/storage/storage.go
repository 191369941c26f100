// Package storage writes and reads profile picture objects in durable object storage.
// Swap backends by changing the concrete Bucket injected at startup: the MinIO
// implementation works with any S3-compatible provider, the S3 one goes through
// the AWS SDK.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrObjectNotFound is returned by Bucket.Get when no object exists at the key.
var ErrObjectNotFound = errors.New("object not found")

// Bucket is a single key-addressed container of binary objects.
type Bucket interface {
	// EnsureExists creates the container if it is missing. Safe to call repeatedly.
	EnsureExists(ctx context.Context) error
	// Put overwrites the object at key with data.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns the full object bytes, or ErrObjectNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
}

// Error is a durable-storage I/O failure.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
