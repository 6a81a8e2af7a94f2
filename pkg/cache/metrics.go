package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks snapshot cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vk_snapshot_cache_hits_total",
			Help: "Total number of snapshot cache hits",
		},
	)

	// CacheMisses tracks snapshot cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vk_snapshot_cache_misses_total",
			Help: "Total number of snapshot cache misses",
		},
	)

	// CacheWrites tracks records written to the cache
	CacheWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vk_snapshot_cache_writes_total",
			Help: "Total number of records written to the snapshot cache",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vk_snapshot_cache_errors_total",
			Help: "Total number of snapshot cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
