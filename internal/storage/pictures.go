package storage

import (
	"context"
	"errors"
	"path"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const (
	originalName = "original.png"
	scaledName   = "profile.png"
	contentType  = "image/png"
)

// PictureStore stores the original and scaled picture of each user under
// "{userID}/original.png" and "{userID}/profile.png".
type PictureStore struct {
	bucket Bucket
	ready  atomic.Bool
}

// NewPictureStore creates a PictureStore on top of bucket. The bucket is created
// lazily by the first upload.
func NewPictureStore(bucket Bucket) *PictureStore {
	return &PictureStore{bucket: bucket}
}

// Paths returns the deterministic object keys for a user.
func Paths(userID string) (original, scaled string) {
	return path.Join(userID, originalName), path.Join(userID, scaledName)
}

// Upload writes both pictures concurrently and returns their keys. It succeeds
// only if both writes succeed; otherwise the first failure is returned as *Error.
// Existing objects are overwritten.
func (s *PictureStore) Upload(ctx context.Context, userID string, original, scaled []byte) (string, string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", "", err
	}

	originalPath, scaledPath := Paths(userID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.put(gctx, originalPath, original)
	})
	g.Go(func() error {
		return s.put(gctx, scaledPath, scaled)
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return originalPath, scaledPath, nil
}

// DownloadScaled returns the object stored at scaledPath. A missing object is
// reported as ErrObjectNotFound, not as *Error.
func (s *PictureStore) DownloadScaled(ctx context.Context, scaledPath string) ([]byte, error) {
	data, err := s.bucket.Get(ctx, scaledPath)
	if errors.Is(err, ErrObjectNotFound) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, &Error{Op: "get", Key: scaledPath, Err: err}
	}
	return data, nil
}

func (s *PictureStore) ensureBucket(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	if err := s.bucket.EnsureExists(ctx); err != nil {
		return &Error{Op: "ensure bucket", Err: err}
	}
	s.ready.Store(true)
	return nil
}

func (s *PictureStore) put(ctx context.Context, key string, data []byte) error {
	if err := s.bucket.Put(ctx, key, data, contentType); err != nil {
		return &Error{Op: "put", Key: key, Err: err}
	}
	return nil
}
