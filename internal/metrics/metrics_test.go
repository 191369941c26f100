package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPicturesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPictures(reg)

	p.CacheLookup(true)
	p.CacheLookup(false)
	p.CacheLookup(false)
	p.Upload(UploadOK)
	p.ObserveScale(15 * time.Millisecond)

	if got := testutil.ToFloat64(p.cacheLookups.WithLabelValues("hit")); got != 1 {
		t.Fatalf("hits = %v", got)
	}
	if got := testutil.ToFloat64(p.cacheLookups.WithLabelValues("miss")); got != 2 {
		t.Fatalf("misses = %v", got)
	}
	if got := testutil.ToFloat64(p.uploads.WithLabelValues(UploadOK)); got != 1 {
		t.Fatalf("uploads ok = %v", got)
	}
}

func TestNilPicturesIsNoop(t *testing.T) {
	var p *Pictures
	p.CacheLookup(true)
	p.Upload(UploadFailed)
	p.ObserveScale(time.Second)
}

func TestHandlerExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPictures(reg).Upload(UploadInvalid)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `profile_picture_uploads_total{result="invalid"} 1`) {
		t.Fatalf("metrics output missing upload counter:\n%s", body)
	}
}
