// Package metrics exposes Prometheus counters and a histogram for endpoint
// traffic and process-exit drain latency, modeled on the teacher's
// stats.Tracker registration style but scoped to a single process-wide
// registry rather than a cluster stats daemon.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	FramesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commcore",
		Name:      "frames_sent_total",
		Help:      "Frames successfully handed to a transport driver.",
	}, []string{"kind"})

	FramesRecv = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commcore",
		Name:      "frames_received_total",
		Help:      "Frames successfully pulled from a transport driver.",
	}, []string{"kind"})

	BytesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commcore",
		Name:      "bytes_sent_total",
		Help:      "Payload bytes sent, excluding header overhead.",
	}, []string{"kind"})

	BytesRecv = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commcore",
		Name:      "bytes_received_total",
		Help:      "Payload bytes received, excluding header overhead.",
	}, []string{"kind"})

	EOFsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commcore",
		Name:      "eof_sent_total",
		Help:      "EOF sentinels emitted.",
	}, []string{"kind"})

	DrainDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "commcore",
		Name:      "exit_drain_seconds",
		Help:      "Wall-clock time spent draining one endpoint at process exit.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(FramesSent, FramesRecv, BytesSent, BytesRecv, EOFsSent, DrainDuration)
}

// EndpointStats holds per-endpoint atomic counters, mirroring the teacher's
// transport.Stats (atomic fields read without locking the endpoint itself).
type EndpointStats struct {
	FramesSent int64
	FramesRecv int64
	BytesSent  int64
	BytesRecv  int64
}

func (s *EndpointStats) AddSent(n int) {
	atomic.AddInt64(&s.FramesSent, 1)
	atomic.AddInt64(&s.BytesSent, int64(n))
}

func (s *EndpointStats) AddRecv(n int) {
	atomic.AddInt64(&s.FramesRecv, 1)
	atomic.AddInt64(&s.BytesRecv, int64(n))
}

func (s *EndpointStats) Snapshot() (sent, recv, bytesSent, bytesRecv int64) {
	return atomic.LoadInt64(&s.FramesSent), atomic.LoadInt64(&s.FramesRecv),
		atomic.LoadInt64(&s.BytesSent), atomic.LoadInt64(&s.BytesRecv)
}
