// Copyright (c) 2026 Tigera, Inc. All rights reserved.
package engine

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/tigera/policyq/pkg/store"
)

// Holder holds the current Store. Replacing the Store is a single atomic pointer swap, so a query that has obtained
// a Store always sees a consistent snapshot, either entirely the old one or entirely the new one.
type Holder struct {
	current atomic.Pointer[Store]
	opts    []Option
}

// NewHolder creates an empty Holder. The options are applied to every Store built by Update.
func NewHolder(opts ...Option) *Holder {
	return &Holder{opts: opts}
}

// Load returns the current Store, or ErrNoSnapshot if none has been loaded.
func (h *Holder) Load() (*Store, error) {
	if s := h.current.Load(); s != nil {
		return s, nil
	}
	return nil, ErrNoSnapshot
}

// Update builds a new Store from the objects and swaps it in. If the objects fail to load the current Store is left
// in place and the LoadError is returned.
func (h *Holder) Update(objs store.Objects) error {
	s, err := LoadSnapshot(objs, h.opts...)
	if err != nil {
		return err
	}
	old := h.current.Swap(s)
	if old != nil {
		log.WithField("previous", old.LoadedAt()).Debug("Replaced snapshot")
	}
	return nil
}
