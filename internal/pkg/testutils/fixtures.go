// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package testutils

import (
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// Labels builds a label map from alternating key and value strings.
func Labels(kv ...string) map[string]string {
	if len(kv)%2 != 0 {
		panic("Labels requires key/value pairs")
	}
	l := make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		l[kv[i]] = kv[i+1]
	}
	return l
}

// Selector builds an equality label selector from alternating key and value strings. With no arguments it returns
// the empty selector, which selects everything.
func Selector(kv ...string) *metav1.LabelSelector {
	if len(kv) == 0 {
		return &metav1.LabelSelector{}
	}
	return &metav1.LabelSelector{MatchLabels: Labels(kv...)}
}

func Namespace(name string, labels map[string]string) *corev1.Namespace {
	return &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels}}
}

func Pod(namespace, name string, labels map[string]string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Labels: labels},
		Spec:       corev1.PodSpec{NodeName: "node1"},
	}
}

// PodWithIP returns a Pod with the supplied IP in its status.
func PodWithIP(namespace, name string, labels map[string]string, ip string) *corev1.Pod {
	p := Pod(namespace, name, labels)
	p.Status.PodIP = ip
	p.Status.PodIPs = []corev1.PodIP{{IP: ip}}
	return p
}

// WithContainerPort adds a named container port to the pod.
func WithContainerPort(p *corev1.Pod, name string, port int32, protocol corev1.Protocol) *corev1.Pod {
	if len(p.Spec.Containers) == 0 {
		p.Spec.Containers = []corev1.Container{{Name: "main"}}
	}
	p.Spec.Containers[0].Ports = append(p.Spec.Containers[0].Ports, corev1.ContainerPort{
		Name: name, ContainerPort: port, Protocol: protocol,
	})
	return p
}

func ServiceAccount(namespace, name string) *corev1.ServiceAccount {
	return &corev1.ServiceAccount{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace}}
}

// Rule builds a PolicyRule for the core API group.
func Rule(verbs, resources []string) rbacv1.PolicyRule {
	return rbacv1.PolicyRule{APIGroups: []string{""}, Resources: resources, Verbs: verbs}
}

func Role(namespace, name string, rules ...rbacv1.PolicyRule) *rbacv1.Role {
	return &rbacv1.Role{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace}, Rules: rules}
}

func ClusterRole(name string, rules ...rbacv1.PolicyRule) *rbacv1.ClusterRole {
	return &rbacv1.ClusterRole{ObjectMeta: metav1.ObjectMeta{Name: name}, Rules: rules}
}

func User(name string) rbacv1.Subject {
	return rbacv1.Subject{Kind: rbacv1.UserKind, APIGroup: rbacv1.GroupName, Name: name}
}

func Group(name string) rbacv1.Subject {
	return rbacv1.Subject{Kind: rbacv1.GroupKind, APIGroup: rbacv1.GroupName, Name: name}
}

func ServiceAccountSubject(namespace, name string) rbacv1.Subject {
	return rbacv1.Subject{Kind: rbacv1.ServiceAccountKind, Namespace: namespace, Name: name}
}

// RoleBinding binds a Role in the same namespace.
func RoleBinding(namespace, name, role string, subjects ...rbacv1.Subject) *rbacv1.RoleBinding {
	return &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Subjects:   subjects,
		RoleRef:    rbacv1.RoleRef{APIGroup: rbacv1.GroupName, Kind: "Role", Name: role},
	}
}

// RoleBindingToClusterRole binds a ClusterRole, restricting the grant to the binding namespace.
func RoleBindingToClusterRole(namespace, name, clusterRole string, subjects ...rbacv1.Subject) *rbacv1.RoleBinding {
	rb := RoleBinding(namespace, name, clusterRole, subjects...)
	rb.RoleRef.Kind = "ClusterRole"
	return rb
}

func ClusterRoleBinding(name, clusterRole string, subjects ...rbacv1.Subject) *rbacv1.ClusterRoleBinding {
	return &rbacv1.ClusterRoleBinding{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Subjects:   subjects,
		RoleRef:    rbacv1.RoleRef{APIGroup: rbacv1.GroupName, Kind: "ClusterRole", Name: clusterRole},
	}
}

// NetworkPolicy returns a policy selecting pods with the supplied selector, for the supplied policy types, and with
// no rules.
func NetworkPolicy(
	namespace, name string, podSelector *metav1.LabelSelector, types ...networkingv1.PolicyType,
) *networkingv1.NetworkPolicy {
	return &networkingv1.NetworkPolicy{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: networkingv1.NetworkPolicySpec{
			PodSelector: *podSelector,
			PolicyTypes: types,
		},
	}
}

// Port builds a numeric NetworkPolicyPort.
func Port(protocol corev1.Protocol, port int32) networkingv1.NetworkPolicyPort {
	p := intstr.FromInt32(port)
	return networkingv1.NetworkPolicyPort{Protocol: &protocol, Port: &p}
}

// NamedPort builds a named NetworkPolicyPort.
func NamedPort(protocol corev1.Protocol, name string) networkingv1.NetworkPolicyPort {
	p := intstr.FromString(name)
	return networkingv1.NetworkPolicyPort{Protocol: &protocol, Port: &p}
}

// PortRange builds a NetworkPolicyPort covering port to endPort inclusive.
func PortRange(protocol corev1.Protocol, port, endPort int32) networkingv1.NetworkPolicyPort {
	p := Port(protocol, port)
	p.EndPort = &endPort
	return p
}
