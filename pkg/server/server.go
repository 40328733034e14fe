// Copyright (c) 2026 Tigera, Inc. All rights reserved.

// Package server exposes the policy queries of an engine Holder over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tigera/policyq/pkg/engine"
	"github.com/tigera/policyq/pkg/metrics"
)

const (
	DefaultAddr        = ":8080"
	DefaultReadTimeout = 45 * time.Second
)

// Server answers CanI, CanConnect and WhoCan queries against the current snapshot of a Holder.
type Server struct {
	http        *http.Server
	addr        string
	readTimeout time.Duration

	holder    *engine.Holder    // Source of the snapshot for every request
	collector metrics.Collector // Optional, exposes /metrics when set
}

// New returns a new query server. A Holder must be provided with WithHolder.
func New(opts ...Option) (*Server, error) {
	srv := &Server{
		addr:        DefaultAddr,
		readTimeout: DefaultReadTimeout,
	}
	for _, o := range opts {
		if err := o(srv); err != nil {
			return nil, errors.WithMessage(err, "applying option failed")
		}
	}
	if srv.holder == nil {
		return nil, errors.New("a snapshot holder is required")
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", srv.handleHealth).Methods(http.MethodGet).Name("health")
	router.HandleFunc("/version", handleVersion).Methods(http.MethodGet).Name("version")
	if srv.collector != nil {
		router.Handle("/metrics", srv.collector.Handler()).Methods(http.MethodGet).Name("metrics")
	}

	router.HandleFunc("/v1/can-i", srv.handleCanI).Methods(http.MethodPost).Name("can-i")
	router.HandleFunc("/v1/can-connect", srv.handleCanConnect).Methods(http.MethodPost).Name("can-connect")
	router.HandleFunc("/v1/who-can", srv.handleWhoCan).Methods(http.MethodPost).Name("who-can")

	router.Use(logRequest)

	srv.http = &http.Server{
		Addr:        srv.addr,
		Handler:     router,
		ReadTimeout: srv.readTimeout,
	}
	return srv, nil
}

// Handler returns the routed handler of the server.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe starts listening and serving HTTP requests. It returns http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe() error {
	log.Infof("Starting server on %v", s.addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Tracef("%s for %s from %s", r.Method, r.URL, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
