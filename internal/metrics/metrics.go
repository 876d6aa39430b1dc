// Package metrics defines Prometheus instrumentation for the storage
// subsystem.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UploadsTotal counts completed asset uploads by provider.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "storage",
		Name:      "uploads_total",
		Help:      "Number of completed asset uploads.",
	}, []string{"provider"})

	// UploadBytesTotal counts uploaded bytes by provider.
	UploadBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "storage",
		Name:      "upload_bytes_total",
		Help:      "Total bytes uploaded to the storage backend.",
	}, []string{"provider"})

	// DeletesTotal counts deleted objects by provider.
	DeletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "storage",
		Name:      "deletes_total",
		Help:      "Number of deleted objects.",
	}, []string{"provider"})

	// ActiveProvider reports the resolved storage backend as a one-hot
	// gauge: 1 for the provider in use, 0 for the others.
	ActiveProvider = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dispatch",
		Subsystem: "storage",
		Name:      "active_provider",
		Help:      "Storage provider currently in use.",
	}, []string{"provider"})

	// PurgesTotal counts CDN purge attempts by provider and outcome.
	PurgesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "cdn",
		Name:      "purges_total",
		Help:      "Number of CDN cache purge attempts.",
	}, []string{"provider", "outcome"})
)
