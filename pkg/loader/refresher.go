// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package loader

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"github.com/tigera/policyq/pkg/engine"
	"github.com/tigera/policyq/pkg/store"
)

// Source produces a complete set of snapshot objects.
type Source func(ctx context.Context) (store.Objects, error)

// ManifestSource returns a Source reading the manifests on every call.
func ManifestSource(paths ...string) Source {
	return func(context.Context) (store.Objects, error) {
		return FromManifests(paths...)
	}
}

// ClusterSource returns a Source listing the cluster objects on every call.
func ClusterSource(client kubernetes.Interface) Source {
	return func(ctx context.Context) (store.Objects, error) {
		return FromCluster(ctx, client)
	}
}

// Refresher periodically reloads the objects from a Source into a Holder. A failed reload leaves the current
// snapshot in place.
type Refresher struct {
	source   Source
	holder   *engine.Holder
	interval time.Duration
}

// NewRefresher creates a Refresher. An interval of zero disables periodic reloads; Run then loads once and waits for
// the context to be done.
func NewRefresher(source Source, holder *engine.Holder, interval time.Duration) *Refresher {
	return &Refresher{source: source, holder: holder, interval: interval}
}

// Refresh loads the objects and swaps them into the Holder.
func (r *Refresher) Refresh(ctx context.Context) error {
	objs, err := r.source(ctx)
	if err != nil {
		return err
	}
	return r.holder.Update(objs)
}

// Run refreshes the Holder until the context is done.
func (r *Refresher) Run(ctx context.Context) {
	refresh := func(ctx context.Context) {
		if err := r.Refresh(ctx); err != nil {
			log.WithError(err).Error("Failed to refresh snapshot")
			return
		}
		log.Debug("Refreshed snapshot")
	}

	if r.interval <= 0 {
		refresh(ctx)
		<-ctx.Done()
		return
	}
	wait.UntilWithContext(ctx, refresh, r.interval)
}
