// Copyright (c) 2026 Tigera, Inc. All rights reserved.
package store

import (
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/tigera/policyq/pkg/resources"
)

// Len returns the total number of objects in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.objects)
}

func (s *Snapshot) Namespace(name string) *corev1.Namespace {
	ns, _ := s.get(resources.TypeK8sNamespaces, "", name).(*corev1.Namespace)
	return ns
}

func (s *Snapshot) Pod(namespace, name string) *corev1.Pod {
	p, _ := s.get(resources.TypeK8sPods, namespace, name).(*corev1.Pod)
	return p
}

func (s *Snapshot) Role(namespace, name string) *rbacv1.Role {
	r, _ := s.get(resources.TypeK8sRoles, namespace, name).(*rbacv1.Role)
	return r
}

func (s *Snapshot) ClusterRole(name string) *rbacv1.ClusterRole {
	cr, _ := s.get(resources.TypeK8sClusterRoles, "", name).(*rbacv1.ClusterRole)
	return cr
}

// Namespaces returns all namespaces ordered by name.
func (s *Snapshot) Namespaces() []*corev1.Namespace {
	return s.namespaces
}

// Pods returns all pods ordered by namespace and name.
func (s *Snapshot) Pods() []*corev1.Pod {
	return s.pods
}

// PodsInNamespace returns the pods in the namespace ordered by name.
func (s *Snapshot) PodsInNamespace(namespace string) []*corev1.Pod {
	return s.podsByNamespace[namespace]
}

// ServiceAccounts returns all service accounts ordered by namespace and name.
func (s *Snapshot) ServiceAccounts() []*corev1.ServiceAccount {
	return s.serviceAccounts
}

// ClusterRoles returns all cluster roles ordered by name.
func (s *Snapshot) ClusterRoles() []*rbacv1.ClusterRole {
	return s.clusterRoles
}

// RoleBindingsInNamespace returns the role bindings in the namespace ordered by name.
func (s *Snapshot) RoleBindingsInNamespace(namespace string) []*rbacv1.RoleBinding {
	return s.roleBindingsByNamespace[namespace]
}

// ClusterRoleBindings returns all cluster role bindings ordered by name.
func (s *Snapshot) ClusterRoleBindings() []*rbacv1.ClusterRoleBinding {
	return s.clusterRoleBindings
}

// NetworkPoliciesInNamespace returns the network policies in the namespace ordered by name.
func (s *Snapshot) NetworkPoliciesInNamespace(namespace string) []*networkingv1.NetworkPolicy {
	return s.networkPoliciesByNamespace[namespace]
}

func (s *Snapshot) get(tm metav1.TypeMeta, namespace, name string) resources.Resource {
	return s.objects[resources.ResourceID{TypeMeta: tm, Namespace: namespace, Name: name}]
}
