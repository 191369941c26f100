package storage

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// memBucket is an in-memory Bucket with injectable failures.
type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	ensureCalls atomic.Int32
	ensureErr   error
	failKeys    map[string]error
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	putDelay    time.Duration
}

func newMemBucket() *memBucket {
	return &memBucket{
		objects:  map[string][]byte{},
		types:    map[string]string{},
		failKeys: map[string]error{},
	}
}

func (b *memBucket) EnsureExists(ctx context.Context) error {
	b.ensureCalls.Add(1)
	return b.ensureErr
}

func (b *memBucket) Put(ctx context.Context, key string, data []byte, contentType string) error {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		cur := b.maxInFlight.Load()
		if n <= cur || b.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if b.putDelay > 0 {
		time.Sleep(b.putDelay)
	}
	if err := b.failKeys[key]; err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), data...)
	b.types[key] = contentType
	return nil
}

func (b *memBucket) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return data, nil
}

func TestPaths(t *testing.T) {
	orig, scaled := Paths("1f3c")
	if orig != "1f3c/original.png" || scaled != "1f3c/profile.png" {
		t.Fatalf("unexpected paths %q %q", orig, scaled)
	}
}

func TestUploadWritesBothObjectsConcurrently(t *testing.T) {
	b := newMemBucket()
	b.putDelay = 20 * time.Millisecond
	s := NewPictureStore(b)

	orig, scaled, err := s.Upload(context.Background(), "u1", []byte("orig"), []byte("small"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if orig == scaled {
		t.Fatalf("expected distinct paths, got %q", orig)
	}
	if got, _ := b.Get(context.Background(), orig); string(got) != "orig" {
		t.Fatalf("original object = %q", got)
	}
	if got, _ := b.Get(context.Background(), scaled); string(got) != "small" {
		t.Fatalf("scaled object = %q", got)
	}
	if b.types[scaled] != "image/png" {
		t.Fatalf("expected image/png content type, got %q", b.types[scaled])
	}
	if b.maxInFlight.Load() != 2 {
		t.Fatalf("expected both writes in flight together, max was %d", b.maxInFlight.Load())
	}
}

func TestUploadEnsuresBucketOnce(t *testing.T) {
	b := newMemBucket()
	s := NewPictureStore(b)
	for i := 0; i < 3; i++ {
		if _, _, err := s.Upload(context.Background(), "u1", []byte("a"), []byte("b")); err != nil {
			t.Fatalf("Upload %d: %v", i, err)
		}
	}
	if n := b.ensureCalls.Load(); n != 1 {
		t.Fatalf("expected one EnsureExists call, got %d", n)
	}
}

func TestUploadRetriesEnsureAfterFailure(t *testing.T) {
	b := newMemBucket()
	b.ensureErr = errors.New("unreachable")
	s := NewPictureStore(b)

	_, _, err := s.Upload(context.Background(), "u1", []byte("a"), []byte("b"))
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("expected *Error, got %v", err)
	}

	b.ensureErr = nil
	if _, _, err := s.Upload(context.Background(), "u1", []byte("a"), []byte("b")); err != nil {
		t.Fatalf("second Upload: %v", err)
	}
	if n := b.ensureCalls.Load(); n != 2 {
		t.Fatalf("expected EnsureExists to be retried, got %d calls", n)
	}
}

func TestUploadPartialFailureIsStorageError(t *testing.T) {
	b := newMemBucket()
	_, scaledPath := Paths("u1")
	b.failKeys[scaledPath] = errors.New("disk full")
	s := NewPictureStore(b)

	orig, scaled, err := s.Upload(context.Background(), "u1", []byte("a"), []byte("b"))
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if serr.Key != scaledPath {
		t.Fatalf("expected failing key %q, got %q", scaledPath, serr.Key)
	}
	if orig != "" || scaled != "" {
		t.Fatalf("expected no paths on failure, got %q %q", orig, scaled)
	}
}

func TestUploadOverwrites(t *testing.T) {
	b := newMemBucket()
	s := NewPictureStore(b)
	ctx := context.Background()

	_, p1, err := s.Upload(ctx, "u1", []byte("a"), []byte("first"))
	if err != nil {
		t.Fatal(err)
	}
	_, p2, err := s.Upload(ctx, "u1", []byte("a"), []byte("second"))
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Fatalf("expected stable path, got %q then %q", p1, p2)
	}
	got, err := s.DownloadScaled(ctx, p2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("second")) {
		t.Fatalf("expected last write to win, got %q", got)
	}
}

func TestDownloadScaledMissing(t *testing.T) {
	s := NewPictureStore(newMemBucket())
	_, err := s.DownloadScaled(context.Background(), "nobody/profile.png")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
	var serr *Error
	if errors.As(err, &serr) {
		t.Fatalf("missing object must not be a storage error")
	}
}
