// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"resenje.org/web"

	"github.com/tollgate/tollgate/pkg/jsonhttp"
	"github.com/tollgate/tollgate/pkg/logging/httpaccess"
)

const payRequestMaxSize = 4096

func (s *server) setupRouting() {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(jsonhttp.NotFoundHandler)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "tollgate")
	})

	router.Handle("/health", web.ChainHandlers(
		httpaccess.SetAccessLogLevelHandler(0), // suppress access log messages
		web.FinalHandlerFunc(statusHandler),
	))
	router.Handle("/readiness", web.ChainHandlers(
		httpaccess.SetAccessLogLevelHandler(0), // suppress access log messages
		web.FinalHandlerFunc(statusHandler),
	))

	router.Path("/metrics").Handler(web.ChainHandlers(
		httpaccess.SetAccessLogLevelHandler(0), // suppress access log messages
		web.FinalHandler(promhttp.InstrumentMetricHandler(
			s.metricsRegistry,
			promhttp.HandlerFor(s.metricsRegistry, promhttp.HandlerOpts{}),
		)),
	))

	router.Handle("/debug/pprof", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := r.URL
		u.Path += "/"
		http.Redirect(w, r, u.String(), http.StatusPermanentRedirect)
	}))
	router.Handle("/debug/pprof/cmdline", http.HandlerFunc(pprof.Cmdline))
	router.Handle("/debug/pprof/profile", http.HandlerFunc(pprof.Profile))
	router.Handle("/debug/pprof/symbol", http.HandlerFunc(pprof.Symbol))
	router.Handle("/debug/pprof/trace", http.HandlerFunc(pprof.Trace))
	router.PathPrefix("/debug/pprof/").Handler(http.HandlerFunc(pprof.Index))
	router.Handle("/debug/vars", expvar.Handler())

	router.Handle("/tiers", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.tiersHandler),
	})
	router.Handle("/tiers/{tier}/quote", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.quoteHandler),
	})
	router.Handle("/tiers/{tier}/price", jsonhttp.MethodHandler{
		"PUT": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(payRequestMaxSize),
			web.FinalHandlerFunc(s.setTierPriceHandler),
		),
	})

	router.Handle("/payments", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.paymentsHandler),
	})
	router.Handle("/payments/utility", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(payRequestMaxSize),
			web.FinalHandlerFunc(s.payWithUtilityHandler),
		),
	})
	router.Handle("/payments/stable", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(payRequestMaxSize),
			web.FinalHandlerFunc(s.payWithStableHandler),
		),
	})
	router.Handle("/payments/native", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(payRequestMaxSize),
			web.FinalHandlerFunc(s.payWithNativeHandler),
		),
	})
	router.Handle("/payments/token", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(payRequestMaxSize),
			web.FinalHandlerFunc(s.payWithTokenHandler),
		),
	})

	s.Handler = web.ChainHandlers(
		httpaccess.NewHTTPAccessLogHandler(s.Logger, logrus.InfoLevel, "api access"),
		handlers.CompressHandler,
		s.pageviewMetricsHandler,
		func(h http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if o := r.Header.Get("Origin"); o != "" && s.checkOrigin(r) {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Set("Access-Control-Allow-Origin", o)
					w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Authorization, Content-Type, X-Requested-With, Access-Control-Request-Headers, Access-Control-Request-Method")
					w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS, POST, PUT, DELETE")
					w.Header().Set("Access-Control-Max-Age", "3600")
				}
				h.ServeHTTP(w, r)
			})
		},
		web.FinalHandler(router),
	)
}

func (s *server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	for _, v := range s.CORSAllowedOrigins {
		if v == origin || v == "*" {
			return true
		}
	}
	return false
}

type statusResponse struct {
	Status string `json:"status"`
}

func statusHandler(w http.ResponseWriter, _ *http.Request) {
	jsonhttp.OK(w, statusResponse{
		Status: "ok",
	})
}
