// Copyright (c) 2026 Tigera, Inc. All rights reserved.

// Package rbac evaluates Kubernetes RBAC authorization requests against a snapshot.
//
// RBAC is purely additive. A request is allowed if any rule of any role bound to the principal allows it. A
// ClusterRoleBinding grants cluster-wide, whereas a RoleBinding only ever grants within its own namespace, even when
// it references a ClusterRole.
package rbac

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/tigera/policyq/pkg/resources"
	"github.com/tigera/policyq/pkg/selector"
	"github.com/tigera/policyq/pkg/store"
	"github.com/tigera/policyq/pkg/trace"
)

var (
	kindRole               = resources.TypeK8sRoles.Kind
	kindClusterRole        = resources.TypeK8sClusterRoles.Kind
	kindRoleBinding        = resources.TypeK8sRoleBindings.Kind
	kindClusterRoleBinding = resources.TypeK8sClusterRoleBindings.Kind
)

// Evaluator authorizes requests against a snapshot. It is immutable once created and safe for concurrent use.
type Evaluator struct {
	snapshot *store.Snapshot

	// The effective rules of each ClusterRole, including any aggregated rules.
	clusterRoleRules map[string][]rbacv1.PolicyRule
}

// NewEvaluator creates an Evaluator for the snapshot, resolving ClusterRole aggregation. Invalid aggregation
// selectors are returned as errors.
func NewEvaluator(s *store.Snapshot, selectors *selector.Cache) (*Evaluator, field.ErrorList) {
	e := &Evaluator{
		snapshot:         s,
		clusterRoleRules: make(map[string][]rbacv1.PolicyRule, len(s.ClusterRoles())),
	}
	var errs field.ErrorList
	for _, cr := range s.ClusterRoles() {
		rules, aggErrs := e.aggregate(cr, selectors)
		errs = append(errs, aggErrs...)
		e.clusterRoleRules[cr.Name] = rules
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return e, nil
}

// aggregate returns the effective rules of the ClusterRole: its own rules followed by the rules of every other
// ClusterRole selected by its aggregation rule, in name order. Aggregation is resolved one level deep.
func (e *Evaluator) aggregate(cr *rbacv1.ClusterRole, selectors *selector.Cache) ([]rbacv1.PolicyRule, field.ErrorList) {
	if cr.AggregationRule == nil || len(cr.AggregationRule.ClusterRoleSelectors) == 0 {
		return cr.Rules, nil
	}

	path := store.ObjectPath(cr).Child("aggregationRule", "clusterRoleSelectors")
	var errs field.ErrorList
	var sels []selector.Selector
	for i := range cr.AggregationRule.ClusterRoleSelectors {
		sel, err := selectors.Get(&cr.AggregationRule.ClusterRoleSelectors[i])
		if err != nil {
			errs = append(errs, field.Invalid(path.Index(i), selector.String(&cr.AggregationRule.ClusterRoleSelectors[i]), err.Error()))
			continue
		}
		sels = append(sels, sel)
	}

	rules := append([]rbacv1.PolicyRule(nil), cr.Rules...)
	for _, other := range e.snapshot.ClusterRoles() {
		if other.Name == cr.Name {
			continue
		}
		for _, sel := range sels {
			if sel.Matches(other.Labels) {
				log.Debugf("ClusterRole %s aggregates rules from %s", cr.Name, other.Name)
				rules = append(rules, other.Rules...)
				break
			}
		}
	}
	return rules, errs
}

// Authorize returns true if the request is allowed. Matching bindings are recorded in the trace; a denial is always
// explained with a summary entry.
func (e *Evaluator) Authorize(req Request, tb *trace.Builder) bool {
	id := newIdentity(req.Principal)
	log.WithFields(log.Fields{
		"principal": req.Principal.String(),
		"action":    req.action(),
		"namespace": req.Namespace,
	}).Debug("Authorizing request")

	for _, crb := range e.snapshot.ClusterRoleBindings() {
		if !id.matchesAny(crb.Subjects) {
			tb.Miss(kindClusterRoleBinding, crb.Name, "no subject matches %s", req.Principal)
			continue
		}
		rules := e.clusterRoleRules[crb.RoleRef.Name]
		if idx := firstMatchingRule(rules, req); idx >= 0 {
			log.Debugf("ClusterRoleBinding %s allows request", crb.Name)
			tb.Match(kindClusterRoleBinding, crb.Name, "ClusterRole %s rule %d grants %s cluster-wide",
				crb.RoleRef.Name, idx, req.action())
			return true
		}
		tb.Miss(kindClusterRoleBinding, crb.Name, "ClusterRole %s has no rule granting %s", crb.RoleRef.Name, req.action())
	}

	if req.Namespace != "" {
		for _, rb := range e.snapshot.RoleBindingsInNamespace(req.Namespace) {
			name := rb.Namespace + "/" + rb.Name
			if !id.matchesAny(rb.Subjects) {
				tb.Miss(kindRoleBinding, name, "no subject matches %s", req.Principal)
				continue
			}
			rules := e.roleRefRules(rb)
			if idx := firstMatchingRule(rules, req); idx >= 0 {
				log.Debugf("RoleBinding %s allows request", name)
				tb.Match(kindRoleBinding, name, "%s %s rule %d grants %s in namespace %s",
					rb.RoleRef.Kind, rb.RoleRef.Name, idx, req.action(), rb.Namespace)
				return true
			}
			tb.Miss(kindRoleBinding, name, "%s %s has no rule granting %s", rb.RoleRef.Kind, rb.RoleRef.Name, req.action())
		}
	}

	log.Debug("No binding allows request")
	tb.Summary("Decision", "", "%s %s to user=%s or groups [%s]",
		denialPrefix(req), req.action(), req.Principal.User, strings.Join(req.Principal.Groups, ","))
	return false
}

func denialPrefix(req Request) string {
	if req.Namespace == "" {
		return "no ClusterRoleBinding grants (cluster-wide)"
	}
	return fmt.Sprintf("no ClusterRoleBinding or RoleBinding in namespace %s grants", req.Namespace)
}

// roleRefRules returns the rules of the role referenced by a RoleBinding.
func (e *Evaluator) roleRefRules(rb *rbacv1.RoleBinding) []rbacv1.PolicyRule {
	if rb.RoleRef.Kind == kindClusterRole {
		return e.clusterRoleRules[rb.RoleRef.Name]
	}
	if r := e.snapshot.Role(rb.Namespace, rb.RoleRef.Name); r != nil {
		return r.Rules
	}
	return nil
}

// firstMatchingRule returns the index of the first rule that allows the request, or -1.
func firstMatchingRule(rules []rbacv1.PolicyRule, req Request) int {
	for i := range rules {
		if RuleAllows(&rules[i], req) {
			return i
		}
	}
	return -1
}

// RuleAllows returns true if the rule allows the request. The API group, resource and verb must each be listed in
// the rule, or the rule must list the wildcard. If the rule lists resource names then the requested name must be
// one of them.
func RuleAllows(rule *rbacv1.PolicyRule, req Request) bool {
	if !hasOrWildcard(rule.Verbs, req.Verb) ||
		!hasOrWildcard(rule.APIGroups, req.APIGroup) ||
		!hasOrWildcard(rule.Resources, req.Resource) {
		return false
	}
	if len(rule.ResourceNames) == 0 {
		return true
	}
	return has(rule.ResourceNames, req.ResourceName)
}

func hasOrWildcard(items []string, value string) bool {
	for _, item := range items {
		if item == Wildcard || item == value {
			return true
		}
	}
	return false
}

func has(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}

// identity is the set of subjects a principal is known as.
type identity struct {
	user   string
	groups sets.Set[string]
}

func newIdentity(p Principal) identity {
	return identity{user: p.User, groups: sets.New(p.Groups...)}
}

func (id identity) matches(s rbacv1.Subject) bool {
	switch s.Kind {
	case rbacv1.UserKind:
		return s.Name == id.user
	case rbacv1.GroupKind:
		return id.groups.Has(s.Name)
	case rbacv1.ServiceAccountKind:
		return id.user == ServiceAccountUsername(s.Namespace, s.Name)
	}
	return false
}

func (id identity) matchesAny(subjects []rbacv1.Subject) bool {
	for _, s := range subjects {
		if id.matches(s) {
			return true
		}
	}
	return false
}
