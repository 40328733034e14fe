// Copyright (c) 2026 Tigera, Inc. All rights reserved.
package engine

import (
	"time"

	log "github.com/sirupsen/logrus"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/tigera/policyq/pkg/metrics"
	"github.com/tigera/policyq/pkg/netpol"
	"github.com/tigera/policyq/pkg/rbac"
	"github.com/tigera/policyq/pkg/selector"
	"github.com/tigera/policyq/pkg/trace"
)

// Decision is the result of a query.
type Decision struct {
	Allowed bool `json:"allowed"`
}

// PodRef identifies a pod in the snapshot.
type PodRef struct {
	Namespace string `json:"namespace" yaml:"namespace" validate:"required"`
	Name      string `json:"name" yaml:"name" validate:"required"`
}

func (p PodRef) String() string {
	return p.Namespace + "/" + p.Name
}

// CanI returns whether the principal may perform the verb on the resource. An empty namespace asks about a
// cluster-wide grant. An empty resource name asks about the resource type as a whole.
func (s *Store) CanI(
	principal rbac.Principal, verb, apiGroup, resource, resourceName, namespace string,
) (Decision, trace.Trace, error) {
	start := time.Now()
	if err := validateQuery(canIQuery{User: principal.User, Verb: verb, Resource: resource}); err != nil {
		metrics.ObserveQuery(metrics.QueryCanI, metrics.DecisionInvalid, start)
		return Decision{}, trace.Trace{}, err
	}

	tb := trace.NewBuilder(trace.SubsystemRBAC, s.opts.fullTrace)
	allowed := s.rbac.Authorize(rbac.Request{
		Principal:    principal,
		Verb:         verb,
		APIGroup:     apiGroup,
		Resource:     resource,
		ResourceName: resourceName,
		Namespace:    namespace,
	}, tb)

	metrics.ObserveQuery(metrics.QueryCanI, metrics.Decision(allowed), start)
	return Decision{Allowed: allowed}, tb.Trace(), nil
}

// CanConnect returns whether the source pod may open a connection to the destination pod on the port. The protocol
// is TCP or UDP, case-insensitive. Both pods must be in the snapshot.
func (s *Store) CanConnect(source, dest PodRef, port int, protocol string) (Decision, trace.Trace, error) {
	start := time.Now()
	if err := validateQuery(canConnectQuery{Source: source, Dest: dest, Port: port, Protocol: protocol}); err != nil {
		metrics.ObserveQuery(metrics.QueryCanConnect, metrics.DecisionInvalid, start)
		return Decision{}, trace.Trace{}, err
	}

	src, dst := s.snapshot.Pod(source.Namespace, source.Name), s.snapshot.Pod(dest.Namespace, dest.Name)
	var unknown []string
	if src == nil {
		unknown = append(unknown, "source pod "+source.String()+" does not exist")
	}
	if dst == nil {
		unknown = append(unknown, "dest pod "+dest.String()+" does not exist")
	}
	if len(unknown) > 0 {
		metrics.ObserveQuery(metrics.QueryCanConnect, metrics.DecisionInvalid, start)
		return Decision{}, trace.Trace{}, invalidQuery(unknown...)
	}

	// The protocol has been validated.
	proto, _ := netpol.ParseProtocol(protocol)

	tb := trace.NewBuilder(trace.SubsystemNetPol, s.opts.fullTrace)
	allowed := s.netpol.Connect(src, dst, int32(port), proto, tb)

	metrics.ObserveQuery(metrics.QueryCanConnect, metrics.Decision(allowed), start)
	return Decision{Allowed: allowed}, tb.Trace(), nil
}

// WhoCan returns every grant that allows the verb on the resource, cluster-wide grants first. An empty namespace
// only considers cluster-wide grants.
func (s *Store) WhoCan(verb, apiGroup, resource, resourceName, namespace string) ([]rbac.Grant, error) {
	start := time.Now()
	if err := validateQuery(whoCanQuery{Verb: verb, Resource: resource}); err != nil {
		metrics.ObserveQuery(metrics.QueryWhoCan, metrics.DecisionInvalid, start)
		return nil, err
	}
	grants := s.rbac.WhoCan(rbac.Request{
		Verb:         verb,
		APIGroup:     apiGroup,
		Resource:     resource,
		ResourceName: resourceName,
		Namespace:    namespace,
	})
	metrics.ObserveQuery(metrics.QueryWhoCan, metrics.Decision(len(grants) > 0), start)
	return grants, nil
}

// SelectPods returns the pods the label selector selects, ordered by namespace and name. An empty namespace selects
// across all namespaces. A nil selector selects nothing.
func (s *Store) SelectPods(namespace string, ls *metav1.LabelSelector) ([]*corev1.Pod, error) {
	start := time.Now()
	sel, err := selector.Compile(ls)
	if err != nil {
		metrics.ObserveQuery(metrics.QuerySelectPods, metrics.DecisionInvalid, start)
		return nil, invalidQuery("invalid selector: " + err.Error())
	}

	pods := s.snapshot.Pods()
	if namespace != "" {
		pods = s.snapshot.PodsInNamespace(namespace)
	}
	var selected []*corev1.Pod
	for _, p := range pods {
		if sel.Matches(p.Labels) {
			selected = append(selected, p)
		}
	}
	log.WithField("selector", sel.String()).Debugf("Selected %d pods", len(selected))
	metrics.ObserveQuery(metrics.QuerySelectPods, metrics.Decision(len(selected) > 0), start)
	return selected, nil
}
