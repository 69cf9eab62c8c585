// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	m "github.com/tollgate/tollgate/pkg/metrics"
)

type apiMetrics struct {
	RequestCount prometheus.Counter
}

func newMetrics() apiMetrics {
	subsystem := "api"

	return apiMetrics{
		RequestCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "request_count",
			Help:      "Number of API requests.",
		}),
	}
}

func newMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		// register standard metrics
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{
			Namespace: m.Namespace,
		}),
		prometheus.NewGoCollector(),
	)

	return registry
}

func (s *server) Metrics() (cs []prometheus.Collector) {
	return m.PrometheusCollectorsFromFields(s.metrics)
}

func (s *server) pageviewMetricsHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.RequestCount.Inc()
		h.ServeHTTP(w, r)
	})
}
