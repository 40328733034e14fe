// Copyright (c) 2019, 2026 Tigera, Inc. All rights reserved.
package resources

import (
	"reflect"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	v1                      = "v1"
	grpVersionK8sNetworking = "networking.k8s.io/v1"
	grpVersionK8sRBAC       = "rbac.authorization.k8s.io/v1"
)

var (
	TypeK8sNamespaces          = metav1.TypeMeta{APIVersion: v1, Kind: "Namespace"}
	TypeK8sPods                = metav1.TypeMeta{APIVersion: v1, Kind: "Pod"}
	TypeK8sServiceAccounts     = metav1.TypeMeta{APIVersion: v1, Kind: "ServiceAccount"}
	TypeK8sRoles               = metav1.TypeMeta{APIVersion: grpVersionK8sRBAC, Kind: "Role"}
	TypeK8sClusterRoles        = metav1.TypeMeta{APIVersion: grpVersionK8sRBAC, Kind: "ClusterRole"}
	TypeK8sRoleBindings        = metav1.TypeMeta{APIVersion: grpVersionK8sRBAC, Kind: "RoleBinding"}
	TypeK8sClusterRoleBindings = metav1.TypeMeta{APIVersion: grpVersionK8sRBAC, Kind: "ClusterRoleBinding"}
	TypeK8sNetworkPolicies     = metav1.TypeMeta{APIVersion: grpVersionK8sNetworking, Kind: "NetworkPolicy"}
)

// ResourceHelper describes a kind the engine evaluates.
type ResourceHelper interface {
	TypeMeta() metav1.TypeMeta
}

// GetTypeMeta extracts the group version kind from the resource. Objects constructed in code rarely have their
// TypeMeta filled in, so if the resource does not carry one the type is looked up from the Go type instead.
func GetTypeMeta(res Resource) metav1.TypeMeta {
	gvk := res.GetObjectKind().GroupVersionKind()
	if gvk.Kind != "" {
		return metav1.TypeMeta{Kind: gvk.Kind, APIVersion: gvk.GroupVersion().String()}
	}
	if rh := resourceHelpersByType[reflect.TypeOf(res)]; rh != nil {
		return rh.TypeMeta()
	}
	return metav1.TypeMeta{}
}

// GetResourceHelper returns the requested ResourceHelper, or nil if not supported.
func GetResourceHelper(tm metav1.TypeMeta) ResourceHelper {
	return resourceHelpersMap[tm]
}

type resourceHelper struct {
	kind     metav1.TypeMeta
	resource Resource
}

func (h *resourceHelper) TypeMeta() metav1.TypeMeta {
	return h.kind
}

var (
	resourceHelpersMap    = map[metav1.TypeMeta]ResourceHelper{}
	resourceHelpersByType = map[reflect.Type]ResourceHelper{}
	resourceHelpers       = []*resourceHelper{
		{TypeK8sNamespaces, &corev1.Namespace{}},
		{TypeK8sPods, &corev1.Pod{}},
		{TypeK8sServiceAccounts, &corev1.ServiceAccount{}},
		{TypeK8sRoles, &rbacv1.Role{}},
		{TypeK8sClusterRoles, &rbacv1.ClusterRole{}},
		{TypeK8sRoleBindings, &rbacv1.RoleBinding{}},
		{TypeK8sClusterRoleBindings, &rbacv1.ClusterRoleBinding{}},
		{TypeK8sNetworkPolicies, &networkingv1.NetworkPolicy{}},
	}
)

func init() {
	for _, rh := range resourceHelpers {
		resourceHelpersMap[rh.kind] = rh
		resourceHelpersByType[reflect.TypeOf(rh.resource)] = rh
	}
}
