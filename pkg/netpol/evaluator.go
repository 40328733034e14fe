// Copyright (c) 2026 Tigera, Inc. All rights reserved.

// Package netpol evaluates Kubernetes NetworkPolicy reachability between two pods.
//
// Egress from the source and ingress to the destination are independent gates and traffic is only allowed when both
// allow it. In each direction a pod that no policy selects is unrestricted. Once any policy selects the pod for a
// direction, that direction is denied unless some rule of some selecting policy allows the traffic. Policies and
// rules combine with OR and never narrow one another.
package netpol

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/tigera/policyq/pkg/selector"
	"github.com/tigera/policyq/pkg/store"
	"github.com/tigera/policyq/pkg/trace"
)

const (
	kindNetworkPolicy = "NetworkPolicy"
	kindPod           = "Pod"
)

// Evaluator evaluates connections against the compiled NetworkPolicies of a snapshot. It is immutable once created
// and safe for concurrent use.
type Evaluator struct {
	policiesByNamespace map[string][]*compiledPolicy
	numPolicies         int
}

// NewEvaluator compiles every NetworkPolicy in the snapshot. All problems with all policies are returned together.
func NewEvaluator(s *store.Snapshot, selectors *selector.Cache) (*Evaluator, field.ErrorList) {
	c := &compiler{
		namespaces: NewNamespaceHandler(s.Namespaces(), selectors),
		selectors:  selectors,
	}
	e := &Evaluator{policiesByNamespace: make(map[string][]*compiledPolicy)}
	var errs field.ErrorList
	for _, ns := range s.Namespaces() {
		for _, np := range s.NetworkPoliciesInNamespace(ns.Name) {
			cp, perrs := c.compile(np)
			if len(perrs) > 0 {
				errs = append(errs, perrs...)
				continue
			}
			e.policiesByNamespace[ns.Name] = append(e.policiesByNamespace[ns.Name], cp)
			e.numPolicies++
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	log.WithField("policies", e.numPolicies).Debug("Compiled network policies")
	return e, nil
}

// Connect returns true if the source pod may connect to the destination pod on the port and protocol.
func (e *Evaluator) Connect(src, dst *corev1.Pod, port int32, protocol corev1.Protocol, tb *trace.Builder) bool {
	c := &connection{src: src, dst: dst, port: port, protocol: protocol}
	log.WithField("connection", c).Debug("Evaluating connection")

	// Both directions are always evaluated so that the trace explains each gate.
	egress := e.allowed(DirectionEgress, c, tb)
	ingress := e.allowed(DirectionIngress, c, tb)
	log.WithFields(log.Fields{"egress": egress, "ingress": ingress}).Debug("Evaluated connection")
	return egress && ingress
}

// allowed evaluates one direction. For egress the source pod is the selected pod and the destination the peer; for
// ingress it is the other way around.
func (e *Evaluator) allowed(d Direction, c *connection, tb *trace.Builder) bool {
	pod, other := c.src, c.dst
	if d == DirectionIngress {
		pod, other = c.dst, c.src
	}
	podName := pod.Namespace + "/" + pod.Name

	var selecting []string
	for _, p := range e.policiesByNamespace[pod.Namespace] {
		if !p.types.Has(d) {
			tb.Miss(kindNetworkPolicy, p.name, "does not apply to %s", d.lower())
			continue
		}
		if !p.podSelector.Matches(pod.Labels) {
			tb.Miss(kindNetworkPolicy, p.name, "podSelector %s does not select pod %s", p.podSelector, podName)
			continue
		}
		log.Debugf("NetworkPolicy %s selects pod %s for %s", p.name, podName, d.lower())
		selecting = append(selecting, p.name)

		rules := p.rules(d)
		if len(rules) == 0 {
			tb.Miss(kindNetworkPolicy, p.name, "selects pod %s for %s and has no %s rules", podName, d.lower(), d.lower())
			continue
		}
		for _, r := range rules {
			reason, ok := r.matches(other, c)
			if ok {
				tb.Match(kindNetworkPolicy, p.name, "%s rule %d allows %s: %s", d.lower(), r.index, c, reason)
				return true
			}
			tb.Miss(kindNetworkPolicy, p.name, "%s rule %d does not allow %s: %s", d.lower(), r.index, c, reason)
		}
	}

	if len(selecting) == 0 {
		log.Debugf("No policy selects pod %s for %s", podName, d.lower())
		tb.Match(kindPod, podName, "no NetworkPolicy selects the pod for %s, allowed by default", d.lower())
		return true
	}

	tb.Summary(kindPod, podName, "selected for %s by %s and no %s rule allows %s",
		d.lower(), strings.Join(selecting, ","), d.lower(), c)
	return false
}

// matches returns true if the rule allows the other endpoint of the connection. The reason describes the peer and
// port that matched, or why the rule did not match.
func (r *rule) matches(other *corev1.Pod, c *connection) (string, bool) {
	peerDesc := "all peers"
	if !r.allPeers {
		var matched *peer
		for _, p := range r.peers {
			if p.matches(other) {
				matched = p
				break
			}
		}
		if matched == nil {
			return fmt.Sprintf("no peer selects pod %s/%s", other.Namespace, other.Name), false
		}
		peerDesc = matched.String()
	}

	if len(r.ports) > 0 {
		var matched *port
		for _, p := range r.ports {
			if p.matches(c.port, c.protocol, c.dst) {
				matched = p
				break
			}
		}
		if matched == nil {
			return fmt.Sprintf("%s matches but port %s/%d is not in %s", peerDesc, c.protocol, c.port, portsString(r.ports)), false
		}
	}
	return fmt.Sprintf("%s on %s", peerDesc, portsString(r.ports)), true
}

// connection is a single connection attempt.
type connection struct {
	src, dst *corev1.Pod
	port     int32
	protocol corev1.Protocol
}

func (c *connection) String() string {
	return fmt.Sprintf("%s/%s -> %s/%s on %s/%d", c.src.Namespace, c.src.Name, c.dst.Namespace, c.dst.Name,
		c.protocol, c.port)
}
