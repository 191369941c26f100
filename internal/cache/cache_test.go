package cache

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSetGetInvalidate(t *testing.T) {
	m := NewMemory(time.Minute)

	if _, ok := m.Get("profile-picture:a"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	m.Set("profile-picture:a", []byte("png"), time.Minute)
	got, ok := m.Get("profile-picture:a")
	if !ok || string(got) != "png" {
		t.Fatalf("expected hit with png, got %q %v", got, ok)
	}

	m.Invalidate("profile-picture:a")
	if _, ok := m.Get("profile-picture:a"); ok {
		t.Fatalf("expected miss after invalidate")
	}

	// Absent keys are fine.
	m.Invalidate("profile-picture:missing")
}

func TestEntriesExpire(t *testing.T) {
	m := NewMemory(time.Minute)
	m.Set("k", []byte("v"), 30*time.Millisecond)

	if _, ok := m.Get("k"); !ok {
		t.Fatalf("expected hit before expiry")
	}
	time.Sleep(60 * time.Millisecond)
	if _, ok := m.Get("k"); ok {
		t.Fatalf("expected miss after expiry")
	}
}

func TestSetCopiesValue(t *testing.T) {
	m := NewMemory(time.Minute)
	buf := []byte("abc")
	m.Set("k", buf, time.Minute)
	buf[0] = 'z'

	got, _ := m.Get("k")
	if string(got) != "abc" {
		t.Fatalf("cache entry changed with caller buffer: %q", got)
	}
}

func TestConcurrentAccessNeverTears(t *testing.T) {
	m := NewMemory(time.Minute)
	values := [][]byte{
		bytes.Repeat([]byte{'a'}, 4096),
		bytes.Repeat([]byte{'b'}, 4096),
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				switch (i + j) % 3 {
				case 0:
					m.Set("shared", values[j%2], time.Minute)
				case 1:
					m.Invalidate("shared")
				default:
					if got, ok := m.Get("shared"); ok {
						if !bytes.Equal(got, values[0]) && !bytes.Equal(got, values[1]) {
							panic(fmt.Sprintf("torn value of len %d", len(got)))
						}
					}
				}
			}
		}(i)
	}
	wg.Wait()
}
