// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package paymaster

import (
	"github.com/prometheus/client_golang/prometheus"
	m "github.com/tollgate/tollgate/pkg/metrics"
)

type metrics struct {
	TotalSettlements     prometheus.Counter
	UtilitySettlements   prometheus.Counter
	StableSettlements    prometheus.Counter
	NativeSettlements    prometheus.Counter
	TokenSettlements     prometheus.Counter
	SettlementFailures   prometheus.Counter
	TotalUtilityBurned   prometheus.Counter
	TierPriceUpdates     prometheus.Counter
	ReentrancyRejections prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "paymaster"

	return metrics{
		TotalSettlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "total_settlements",
			Help:      "Number of successful settlements across all paths.",
		}),
		UtilitySettlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "utility_settlements",
			Help:      "Number of settlements funded directly in the utility token.",
		}),
		StableSettlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "stable_settlements",
			Help:      "Number of settlements funded in the stable token.",
		}),
		NativeSettlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "native_settlements",
			Help:      "Number of settlements funded with native value.",
		}),
		TokenSettlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "token_settlements",
			Help:      "Number of settlements funded with an arbitrary token.",
		}),
		SettlementFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "settlement_failures",
			Help:      "Number of settlement attempts that returned an error.",
		}),
		TotalUtilityBurned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "total_utility_burned",
			Help:      "Total amount of utility token burned by settlements.",
		}),
		TierPriceUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "tier_price_updates",
			Help:      "Number of administrative tier price updates.",
		}),
		ReentrancyRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "reentrancy_rejections",
			Help:      "Number of calls rejected by the reentrancy guard.",
		}),
	}
}

func (s *service) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(s.metrics)
}
