package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeS3 answers just enough of the S3 API for MinioBucket.
func fakeS3(t *testing.T) (*httptest.Server, map[string][]byte) {
	t.Helper()
	var mu sync.Mutex
	objects := map[string][]byte{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = body
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			data, ok := objects[r.URL.Path]
			if !ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
					`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message>`+
					`<Key>`+r.URL.Path+`</Key><RequestId>1</RequestId></Error>`)
				return
			}
			w.Header().Set("Content-Type", "image/png")
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
			_, _ = w.Write(data)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, objects
}

func newTestMinioBucket(t *testing.T, srv *httptest.Server) *MinioBucket {
	t.Helper()
	endpoint := strings.TrimPrefix(srv.URL, "http://")
	b, err := NewMinioBucket(endpoint, "key", "secret", "profile-pictures", "us-east-1", false)
	if err != nil {
		t.Fatalf("NewMinioBucket: %v", err)
	}
	return b
}

func TestMinioBucketPutAndGet(t *testing.T) {
	srv, objects := fakeS3(t)
	b := newTestMinioBucket(t, srv)
	ctx := context.Background()

	if err := b.Put(ctx, "u1/profile.png", []byte("png-bytes"), "image/png"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok := objects["/profile-pictures/u1/profile.png"]; !ok {
		t.Fatalf("expected object at path-style key, have %v", objects)
	}

	got, err := b.Get(ctx, "u1/profile.png")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "png-bytes" {
		t.Fatalf("Get = %q", got)
	}
}

func TestMinioBucketGetMissing(t *testing.T) {
	srv, _ := fakeS3(t)
	b := newTestMinioBucket(t, srv)

	_, err := b.Get(context.Background(), "ghost/profile.png")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}
