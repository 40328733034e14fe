// Copyright (c) 2026 Tigera, Inc. All rights reserved.

// Package engine is the policy decision engine. It composes the RBAC and NetworkPolicy evaluators over an immutable
// snapshot and exposes the CanI and CanConnect queries.
//
// A Store is built by LoadSnapshot and never changes. Any number of queries may run against a Store concurrently.
// Use a Holder to swap in a new Store when the cluster view changes.
package engine

import (
	"time"

	log "github.com/sirupsen/logrus"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/tigera/policyq/pkg/metrics"
	"github.com/tigera/policyq/pkg/netpol"
	"github.com/tigera/policyq/pkg/rbac"
	"github.com/tigera/policyq/pkg/selector"
	"github.com/tigera/policyq/pkg/store"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	fullTrace bool
}

// WithFullTrace records every binding and policy considered in the trace, including those that did not match. By
// default only matches and denial summaries are recorded.
func WithFullTrace() Option {
	return func(o *options) {
		o.fullTrace = true
	}
}

// Store is a loaded, validated and compiled snapshot.
type Store struct {
	snapshot  *store.Snapshot
	rbac      *rbac.Evaluator
	netpol    *netpol.Evaluator
	selectors *selector.Cache
	opts      options
	loadedAt  time.Time
}

// LoadSnapshot validates the objects and compiles them into a Store. Every problem with the objects is collected
// into the returned LoadError; a Store is only returned when there are none.
func LoadSnapshot(objs store.Objects, opts ...Option) (*Store, error) {
	s := &Store{loadedAt: time.Now()}
	for _, o := range opts {
		o(&s.opts)
	}

	snapshot, errs := store.New(objs)
	if len(errs) > 0 {
		return nil, loadFailed(errs)
	}
	s.snapshot = snapshot
	s.selectors = selector.NewCache()

	var rerrs, nerrs field.ErrorList
	s.rbac, rerrs = rbac.NewEvaluator(snapshot, s.selectors)
	s.netpol, nerrs = netpol.NewEvaluator(snapshot, s.selectors)
	if errs = append(rerrs, nerrs...); len(errs) > 0 {
		return nil, loadFailed(errs)
	}

	log.WithFields(log.Fields{
		"objects":   snapshot.Len(),
		"selectors": s.selectors.Len(),
	}).Info("Loaded snapshot")
	metrics.ObserveSnapshot(objs.Counts())
	return s, nil
}

func loadFailed(errs field.ErrorList) error {
	log.WithField("errors", len(errs)).Warn("Snapshot failed to load")
	metrics.ObserveSnapshotFailure()
	return &LoadError{Errs: errs}
}

// Snapshot returns the objects the Store was built from.
func (s *Store) Snapshot() *store.Snapshot {
	return s.snapshot
}

// LoadedAt returns the time the Store was built.
func (s *Store) LoadedAt() time.Time {
	return s.loadedAt
}
