package cachestore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathermart_cachestore_lookups_total",
			Help: "Cache entry lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	writesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathermart_cachestore_writes_total",
			Help: "Cache entry writes by result",
		},
		[]string{"result"}, // "ok", "noop", "error"
	)

	hotLayerTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathermart_cachestore_hot_total",
			Help: "Hot-layer file reads by outcome",
		},
		[]string{"outcome"}, // "hit", "miss"
	)

	chunkBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weathermart_cachestore_chunk_bytes_written_total",
			Help: "Bytes of framed chunk payload written to disk",
		},
	)
)
