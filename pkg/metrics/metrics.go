// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metrics

import (
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is prefixed before every metric. If it is changed, it must be done
// before any metrics collector is registered.
var Namespace = "tollgate"

// Collector exposes the prometheus collectors a service contributes to the
// registry.
type Collector interface {
	Metrics() []prometheus.Collector
}

// PrometheusCollectorsFromFields returns the prometheus collectors found on
// the exported fields of the supplied struct. Fields that do not implement
// prometheus.Collector are skipped.
func PrometheusCollectorsFromFields(i interface{}) (cs []prometheus.Collector) {
	v := reflect.Indirect(reflect.ValueOf(i))
	for f := 0; f < v.NumField(); f++ {
		if !v.Field(f).CanInterface() {
			continue
		}
		if u, ok := v.Field(f).Interface().(prometheus.Collector); ok {
			cs = append(cs, u)
		}
	}
	return cs
}
