// Copyright (c) 2026 Tigera, Inc. All rights reserved.
package store

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/tigera/policyq/pkg/resources"
)

// Objects is the set of objects that make up a snapshot. It is the unit handed from a loader to the engine.
type Objects struct {
	Namespaces          []*corev1.Namespace
	Pods                []*corev1.Pod
	ServiceAccounts     []*corev1.ServiceAccount
	Roles               []*rbacv1.Role
	ClusterRoles        []*rbacv1.ClusterRole
	RoleBindings        []*rbacv1.RoleBinding
	ClusterRoleBindings []*rbacv1.ClusterRoleBinding
	NetworkPolicies     []*networkingv1.NetworkPolicy
}

// Add appends the object to the appropriate list. List types are expanded. Objects of a kind the engine does not
// evaluate are rejected.
func (o *Objects) Add(obj runtime.Object) error {
	switch t := obj.(type) {
	case *corev1.Namespace:
		o.Namespaces = append(o.Namespaces, t)
	case *corev1.Pod:
		o.Pods = append(o.Pods, t)
	case *corev1.ServiceAccount:
		o.ServiceAccounts = append(o.ServiceAccounts, t)
	case *rbacv1.Role:
		o.Roles = append(o.Roles, t)
	case *rbacv1.ClusterRole:
		o.ClusterRoles = append(o.ClusterRoles, t)
	case *rbacv1.RoleBinding:
		o.RoleBindings = append(o.RoleBindings, t)
	case *rbacv1.ClusterRoleBinding:
		o.ClusterRoleBindings = append(o.ClusterRoleBindings, t)
	case *networkingv1.NetworkPolicy:
		o.NetworkPolicies = append(o.NetworkPolicies, t)
	case *corev1.NamespaceList:
		for i := range t.Items {
			o.Namespaces = append(o.Namespaces, &t.Items[i])
		}
	case *corev1.PodList:
		for i := range t.Items {
			o.Pods = append(o.Pods, &t.Items[i])
		}
	case *corev1.ServiceAccountList:
		for i := range t.Items {
			o.ServiceAccounts = append(o.ServiceAccounts, &t.Items[i])
		}
	case *rbacv1.RoleList:
		for i := range t.Items {
			o.Roles = append(o.Roles, &t.Items[i])
		}
	case *rbacv1.ClusterRoleList:
		for i := range t.Items {
			o.ClusterRoles = append(o.ClusterRoles, &t.Items[i])
		}
	case *rbacv1.RoleBindingList:
		for i := range t.Items {
			o.RoleBindings = append(o.RoleBindings, &t.Items[i])
		}
	case *rbacv1.ClusterRoleBindingList:
		for i := range t.Items {
			o.ClusterRoleBindings = append(o.ClusterRoleBindings, &t.Items[i])
		}
	case *networkingv1.NetworkPolicyList:
		for i := range t.Items {
			o.NetworkPolicies = append(o.NetworkPolicies, &t.Items[i])
		}
	default:
		return fmt.Errorf("unsupported object kind: %s", obj.GetObjectKind().GroupVersionKind().Kind)
	}
	return nil
}

// Len returns the total number of objects.
func (o Objects) Len() int {
	return len(o.Namespaces) + len(o.Pods) + len(o.ServiceAccounts) + len(o.Roles) + len(o.ClusterRoles) +
		len(o.RoleBindings) + len(o.ClusterRoleBindings) + len(o.NetworkPolicies)
}

// Counts returns the number of objects of each kind, keyed by kind.
func (o Objects) Counts() map[string]int {
	return map[string]int{
		resources.TypeK8sNamespaces.Kind:          len(o.Namespaces),
		resources.TypeK8sPods.Kind:                len(o.Pods),
		resources.TypeK8sServiceAccounts.Kind:     len(o.ServiceAccounts),
		resources.TypeK8sRoles.Kind:               len(o.Roles),
		resources.TypeK8sClusterRoles.Kind:        len(o.ClusterRoles),
		resources.TypeK8sRoleBindings.Kind:        len(o.RoleBindings),
		resources.TypeK8sClusterRoleBindings.Kind: len(o.ClusterRoleBindings),
		resources.TypeK8sNetworkPolicies.Kind:     len(o.NetworkPolicies),
	}
}

// DeepCopy returns a deep copy of the objects so that later changes by the caller cannot leak into a snapshot.
func (o Objects) DeepCopy() Objects {
	var c Objects
	for _, x := range o.Namespaces {
		c.Namespaces = append(c.Namespaces, x.DeepCopy())
	}
	for _, x := range o.Pods {
		c.Pods = append(c.Pods, x.DeepCopy())
	}
	for _, x := range o.ServiceAccounts {
		c.ServiceAccounts = append(c.ServiceAccounts, x.DeepCopy())
	}
	for _, x := range o.Roles {
		c.Roles = append(c.Roles, x.DeepCopy())
	}
	for _, x := range o.ClusterRoles {
		c.ClusterRoles = append(c.ClusterRoles, x.DeepCopy())
	}
	for _, x := range o.RoleBindings {
		c.RoleBindings = append(c.RoleBindings, x.DeepCopy())
	}
	for _, x := range o.ClusterRoleBindings {
		c.ClusterRoleBindings = append(c.ClusterRoleBindings, x.DeepCopy())
	}
	for _, x := range o.NetworkPolicies {
		c.NetworkPolicies = append(c.NetworkPolicies, x.DeepCopy())
	}
	return c
}
