// Copyright (c) 2026 Tigera, Inc. All rights reserved.

// Package selector evaluates Kubernetes label selectors against label maps.
//
// A nil selector selects nothing and an empty selector ({}) selects everything. The equality map and each of the
// set based expressions (In, NotIn, Exists, DoesNotExist) are evaluated independently and AND'd together.
package selector

import (
	log "github.com/sirupsen/logrus"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
)

const (
	// DescriptionAll is used in traces for an empty selector.
	DescriptionAll = "<all>"

	// DescriptionNone is used in traces for a nil selector.
	DescriptionNone = "<none>"
)

// Selector is a compiled label selector.
type Selector struct {
	sel  labels.Selector
	desc string
}

// Compile validates the label selector and compiles it for repeated evaluation.
func Compile(ls *metav1.LabelSelector) (Selector, error) {
	s, err := metav1.LabelSelectorAsSelector(ls)
	if err != nil {
		return Selector{}, err
	}
	return Selector{sel: s, desc: String(ls)}, nil
}

// Matches returns true if the compiled selector selects the supplied labels. The zero Selector selects nothing.
func (s Selector) Matches(lbls map[string]string) bool {
	if s.sel == nil {
		return false
	}
	return s.sel.Matches(labels.Set(lbls))
}

// String returns the human readable form of the selector.
func (s Selector) String() string {
	if s.sel == nil {
		return DescriptionNone
	}
	return s.desc
}

// Matches returns true if the label selector selects the supplied labels. An invalid selector selects nothing.
func Matches(ls *metav1.LabelSelector, lbls map[string]string) bool {
	s, err := Compile(ls)
	if err != nil {
		log.WithError(err).Debugf("Selector %s is not valid, treating as no match", String(ls))
		return false
	}
	return s.Matches(lbls)
}

// String returns the canonical human readable form of the label selector.
func String(ls *metav1.LabelSelector) string {
	switch {
	case ls == nil:
		return DescriptionNone
	case len(ls.MatchLabels) == 0 && len(ls.MatchExpressions) == 0:
		return DescriptionAll
	default:
		return metav1.FormatLabelSelector(ls)
	}
}
