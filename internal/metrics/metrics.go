// Package metrics exposes Prometheus instrumentation for the picture pipelines.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upload outcomes recorded in profile_picture_uploads_total.
const (
	UploadOK           = "ok"
	UploadInvalid      = "invalid"
	UploadNotFound     = "not_found"
	UploadStorageError = "storage_error"
	UploadFailed       = "failed"
)

// Pictures groups the profile picture collectors. A nil *Pictures records nothing.
type Pictures struct {
	cacheLookups *prometheus.CounterVec
	uploads      *prometheus.CounterVec
	scaleSeconds prometheus.Histogram
}

// NewPictures registers the picture collectors on reg.
func NewPictures(reg prometheus.Registerer) *Pictures {
	f := promauto.With(reg)
	return &Pictures{
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_picture_cache_lookups_total",
				Help: "Profile picture read cache lookups",
			},
			[]string{"result"}, // hit or miss
		),
		uploads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_picture_uploads_total",
				Help: "Profile picture uploads by outcome",
			},
			[]string{"result"},
		),
		scaleSeconds: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "profile_picture_scale_seconds",
				Help:    "Time spent decoding and resizing uploaded pictures",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// CacheLookup records a cache hit or miss.
func (p *Pictures) CacheLookup(hit bool) {
	if p == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(result).Inc()
}

// Upload records the outcome of one upload.
func (p *Pictures) Upload(result string) {
	if p == nil {
		return
	}
	p.uploads.WithLabelValues(result).Inc()
}

// ObserveScale records how long one image transform took.
func (p *Pictures) ObserveScale(d time.Duration) {
	if p == nil {
		return
	}
	p.scaleSeconds.Observe(d.Seconds())
}

// Handler serves the metrics gathered by g in Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
