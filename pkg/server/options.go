// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package server

import (
	"time"

	"github.com/pkg/errors"

	"github.com/tigera/policyq/pkg/engine"
	"github.com/tigera/policyq/pkg/metrics"
)

// Option is a common format for New() options
type Option func(*Server) error

// WithAddr changes the address where the server accepts connections.
func WithAddr(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithHolder sets the holder of the snapshot the queries are answered from. It is required.
func WithHolder(h *engine.Holder) Option {
	return func(s *Server) error {
		if h == nil {
			return errors.New("nil snapshot holder")
		}
		s.holder = h
		return nil
	}
}

// WithCollector exposes the collector's metrics on /metrics.
func WithCollector(c metrics.Collector) Option {
	return func(s *Server) error {
		s.collector = c
		return nil
	}
}

// WithReadTimeout overrides DefaultReadTimeout.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) error {
		if d <= 0 {
			return errors.Errorf("read timeout must be positive: %s", d)
		}
		s.readTimeout = d
		return nil
	}
}
