// Copyright (c) 2026 Tigera, Inc. All rights reserved.
package netpol

import (
	log "github.com/sirupsen/logrus"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/tigera/policyq/pkg/selector"
)

// NewNamespaceHandler creates a new NamespaceHandler.
func NewNamespaceHandler(n []*corev1.Namespace, selectors *selector.Cache) *NamespaceHandler {
	nh := &NamespaceHandler{
		namespaces:         make(map[string]map[string]string, len(n)),
		selectorNamespaces: make(map[string]sets.Set[string]),
		selectors:          selectors,
	}
	for i := range n {
		nh.namespaces[n[i].Name] = n[i].Labels
	}
	return nh
}

// NamespaceHandler is used for handling namespace selector matches. The handler is programmed from the snapshot
// namespaces, and once programmed resolves namespace selectors to the set of namespaces they select.
type NamespaceHandler struct {
	namespaces         map[string]map[string]string
	selectorNamespaces map[string]sets.Set[string]
	selectors          *selector.Cache
}

// GetNamespaceSelectorMatches returns the set of namespaces selected by the namespace selector. The result is cached
// by selector so that every policy using the same namespace selector shares one set.
func (n *NamespaceHandler) GetNamespaceSelectorMatches(ls *metav1.LabelSelector) (sets.Set[string], error) {
	key := selector.String(ls)
	if m, ok := n.selectorNamespaces[key]; ok {
		log.WithField("selector", key).Debug("Returning cached namespace selector")
		return m, nil
	}

	sel, err := n.selectors.Get(ls)
	if err != nil {
		return nil, err
	}

	// Construct the set of namespaces whose labels match the selector.
	namespaces := sets.New[string]()
	for name, labels := range n.namespaces {
		if sel.Matches(labels) {
			log.WithField("selector", key).Debugf("Selector matches namespace %s", name)
			namespaces.Insert(name)
		}
	}

	n.selectorNamespaces[key] = namespaces
	return namespaces, nil
}
