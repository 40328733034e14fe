// Copyright (c) 2026 Tigera, Inc. All rights reserved.
package selector

import (
	log "github.com/sirupsen/logrus"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Cache holds compiled selectors keyed by their canonical string so that identical selectors appearing in many
// policies are only compiled once. A Cache is not safe for concurrent writes; it is populated while a snapshot is
// compiled and only read afterwards.
type Cache struct {
	selectors map[string]Selector
}

// NewCache creates a new selector Cache.
func NewCache() *Cache {
	return &Cache{selectors: make(map[string]Selector)}
}

// Get returns the compiled selector, compiling and caching it if this is the first time it has been requested.
func (c *Cache) Get(ls *metav1.LabelSelector) (Selector, error) {
	key := String(ls)
	if s, ok := c.selectors[key]; ok {
		log.WithField("selector", key).Debug("Returning cached selector")
		return s, nil
	}

	s, err := Compile(ls)
	if err != nil {
		return Selector{}, err
	}
	c.selectors[key] = s
	return s, nil
}

// Len returns the number of distinct selectors in the cache.
func (c *Cache) Len() int {
	return len(c.selectors)
}
