// Copyright (c) 2020, 2026 Tigera, Inc. All rights reserved.
package rbac

import (
	"fmt"
	"strings"

	rbacv1 "k8s.io/api/rbac/v1"
)

const (
	// ServiceAccountUsernamePrefix is the prefix of the username a service account authenticates as.
	ServiceAccountUsernamePrefix = "system:serviceaccount:"

	// AllServiceAccountsGroup is the group every service account belongs to.
	AllServiceAccountsGroup = "system:serviceaccounts"

	// Wildcard is the only wildcard token recognized in rules. It is matched literally.
	Wildcard = rbacv1.ResourceAll
)

// Principal is the identity a request is authorized for. It is supplied with each query and is not stored.
type Principal struct {
	User   string   `json:"user" yaml:"user" validate:"required"`
	Groups []string `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// ServiceAccountPrincipal returns the principal a service account authenticates as.
func ServiceAccountPrincipal(namespace, name string) Principal {
	return Principal{
		User:   ServiceAccountUsername(namespace, name),
		Groups: []string{AllServiceAccountsGroup, AllServiceAccountsGroup + ":" + namespace},
	}
}

// NewPrincipal returns the principal for the username and groups. A service account username also receives the
// groups Kubernetes adds when a service account authenticates.
func NewPrincipal(user string, groups []string) Principal {
	if rest := strings.TrimPrefix(user, ServiceAccountUsernamePrefix); rest != user {
		if parts := strings.Split(rest, ":"); len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			p := ServiceAccountPrincipal(parts[0], parts[1])
			for _, g := range groups {
				if !has(p.Groups, g) {
					p.Groups = append(p.Groups, g)
				}
			}
			return p
		}
	}
	return Principal{User: user, Groups: groups}
}

// ServiceAccountUsername returns the username a service account authenticates as.
func ServiceAccountUsername(namespace, name string) string {
	return ServiceAccountUsernamePrefix + namespace + ":" + name
}

func (p Principal) String() string {
	return fmt.Sprintf("user=%s groups=[%s]", p.User, strings.Join(p.Groups, ","))
}

// ResourceType encapsulates the APIGroup and Resource. The Resource is the lowercase plural kind used in the RBAC
// configuration (e.g. pods).
type ResourceType struct {
	APIGroup string `json:"apiGroup"`
	Resource string `json:"resource"`
}

func (r ResourceType) String() string {
	if r.APIGroup == "" {
		return r.Resource
	}
	return r.Resource + "." + r.APIGroup
}

// Request is a single authorization query.
type Request struct {
	Principal    Principal
	Verb         string
	APIGroup     string
	Resource     string
	ResourceName string

	// Namespace is empty for a cluster-wide request.
	Namespace string
}

func (r Request) ResourceType() ResourceType {
	return ResourceType{APIGroup: r.APIGroup, Resource: r.Resource}
}

// action describes the request without the principal, e.g. "verb=get resource=pods name=web".
func (r Request) action() string {
	s := fmt.Sprintf("verb=%s resource=%s", r.Verb, r.ResourceType())
	if r.ResourceName != "" {
		s += " name=" + r.ResourceName
	}
	return s
}

func (r Request) scope() string {
	if r.Namespace == "" {
		return "cluster-wide"
	}
	return "in namespace " + r.Namespace
}

// Scope of a grant.
type Scope string

const (
	ScopeNamespace   Scope = "namespace"
	ScopeClusterWide Scope = "cluster-wide"
)

// Grant is a single path by which an action is granted: a binding connecting a subject to a role whose rule allows
// the action.
type Grant struct {
	BindingKind      string         `json:"bindingKind"`
	BindingName      string         `json:"bindingName"`
	BindingNamespace string         `json:"bindingNamespace,omitempty"`
	Subject          rbacv1.Subject `json:"subject"`
	RoleKind         string         `json:"roleKind"`
	RoleName         string         `json:"roleName"`
	RuleIndex        int            `json:"ruleIndex"`
	Scope            Scope          `json:"scope"`

	// ServiceAccounts holds the members of a service account group subject, as namespace/name.
	ServiceAccounts []string `json:"serviceAccounts,omitempty"`
}

// SubjectString renders the subject in kubectl style, e.g. "ServiceAccount staging/builder".
func (g Grant) SubjectString() string {
	if g.Subject.Kind == rbacv1.ServiceAccountKind {
		return g.Subject.Kind + " " + g.Subject.Namespace + "/" + g.Subject.Name
	}
	return g.Subject.Kind + " " + g.Subject.Name
}
