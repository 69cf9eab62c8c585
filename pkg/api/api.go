// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package api exposes the settlement engine over HTTP. All monetary amounts
// cross the wire as decimal strings.
package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tollgate/tollgate/pkg/logging"
	"github.com/tollgate/tollgate/pkg/metrics"
	"github.com/tollgate/tollgate/pkg/paymaster"
)

type Service interface {
	http.Handler
	Metrics() (cs []prometheus.Collector)
}

type server struct {
	Options
	http.Handler
	metrics         apiMetrics
	metricsRegistry *prometheus.Registry
}

type Options struct {
	Paymaster paymaster.Service
	// Operator is the wallet address administrative requests act as.
	Operator           common.Address
	Logger             logging.Logger
	CORSAllowedOrigins []string
}

func New(o Options) Service {
	s := &server{
		Options:         o,
		metrics:         newMetrics(),
		metricsRegistry: newMetricsRegistry(),
	}

	for _, c := range s.Metrics() {
		s.metricsRegistry.MustRegister(c)
	}
	if c, ok := o.Paymaster.(metrics.Collector); ok {
		s.metricsRegistry.MustRegister(c.Metrics()...)
	}

	s.setupRouting()

	return s
}
