// Package metrics exposes Prometheus instrumentation for the job
// orchestrator, the enrichment cache and the merge pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsCreated counts video jobs accepted by the orchestrator.
	JobsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "krafity_jobs_created_total",
		Help: "Number of video generation jobs created.",
	})

	// JobsCompleted counts jobs whose generation finished successfully.
	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "krafity_jobs_completed_total",
		Help: "Number of video generation jobs completed.",
	})

	// JobsFailed counts jobs whose background pipeline failed.
	JobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "krafity_jobs_failed_total",
		Help: "Number of video generation jobs failed.",
	})

	// CacheHits counts enrichment cache hits, labeled by artifact kind.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "krafity_enrichment_cache_hits_total",
		Help: "Number of enrichment cache hits.",
	}, []string{"kind"})

	// CacheMisses counts enrichment cache misses, labeled by artifact kind.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "krafity_enrichment_cache_misses_total",
		Help: "Number of enrichment cache misses.",
	}, []string{"kind"})

	// Merges counts merge invocations by outcome.
	Merges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "krafity_merges_total",
		Help: "Number of merge pipeline invocations.",
	}, []string{"outcome"})

	// MergeDuration observes wall time of merge invocations.
	MergeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "krafity_merge_duration_seconds",
		Help:    "Duration of merge pipeline invocations.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)
