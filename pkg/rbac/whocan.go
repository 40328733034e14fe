// Copyright (c) 2026 Tigera, Inc. All rights reserved.
package rbac

import (
	"strings"

	rbacv1 "k8s.io/api/rbac/v1"
)

// WhoCan returns every grant that allows the action described by the request. The principal of the request is
// ignored. Grants from ClusterRoleBindings are listed first, in binding name order, followed by grants from
// RoleBindings in the request namespace. Every matching rule produces a grant for each subject of the binding. Grants to
// a service account group list the service accounts of the snapshot that belong to the group.
func (e *Evaluator) WhoCan(req Request) []Grant {
	var grants []Grant
	for _, crb := range e.snapshot.ClusterRoleBindings() {
		grants = appendGrants(grants, crb.Subjects, e.clusterRoleRules[crb.RoleRef.Name], req, Grant{
			BindingKind: kindClusterRoleBinding,
			BindingName: crb.Name,
			RoleKind:    crb.RoleRef.Kind,
			RoleName:    crb.RoleRef.Name,
			Scope:       ScopeClusterWide,
		})
	}
	if req.Namespace != "" {
		for _, rb := range e.snapshot.RoleBindingsInNamespace(req.Namespace) {
			grants = appendGrants(grants, rb.Subjects, e.roleRefRules(rb), req, Grant{
				BindingKind:      kindRoleBinding,
				BindingName:      rb.Name,
				BindingNamespace: rb.Namespace,
				RoleKind:         rb.RoleRef.Kind,
				RoleName:         rb.RoleRef.Name,
				Scope:            ScopeNamespace,
			})
		}
	}
	for i := range grants {
		grants[i].ServiceAccounts = e.serviceAccountMembers(grants[i].Subject)
	}
	return grants
}

// serviceAccountMembers returns the service accounts, as namespace/name, that authenticate with the group subject.
func (e *Evaluator) serviceAccountMembers(s rbacv1.Subject) []string {
	if s.Kind != rbacv1.GroupKind {
		return nil
	}
	var namespace string
	switch {
	case s.Name == AllServiceAccountsGroup:
	case strings.HasPrefix(s.Name, AllServiceAccountsGroup+":"):
		namespace = strings.TrimPrefix(s.Name, AllServiceAccountsGroup+":")
	default:
		return nil
	}
	var members []string
	for _, sa := range e.snapshot.ServiceAccounts() {
		if namespace == "" || sa.Namespace == namespace {
			members = append(members, sa.Namespace+"/"+sa.Name)
		}
	}
	return members
}

func appendGrants(grants []Grant, subjects []rbacv1.Subject, rules []rbacv1.PolicyRule, req Request, tmpl Grant) []Grant {
	for i := range rules {
		if !RuleAllows(&rules[i], req) {
			continue
		}
		for _, s := range subjects {
			g := tmpl
			g.Subject = s
			g.RuleIndex = i
			grants = append(grants, g)
		}
	}
	return grants
}
