package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// AlbumIngestions результат загрузки альбома: committed, rejected, rolled_back.
	AlbumIngestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_ingestions_total",
			Help: "Album creation attempts by outcome",
		},
		[]string{"result"},
	)

	AlbumIngestionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "album_ingestion_duration_seconds",
			Help:    "Time to validate, transcode and persist an album",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	PhotosTranscoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photos_transcoded_total",
			Help: "Transcoded photos by number of encoder passes",
		},
		[]string{"passes"},
	)

	TakenAtSources = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_taken_at_source_total",
			Help: "Where the capture time of a photo came from",
		},
		[]string{"source"},
	)
)

const (
	ResultCommitted  = "committed"
	ResultRejected   = "rejected"
	ResultRolledBack = "rolled_back"
)
