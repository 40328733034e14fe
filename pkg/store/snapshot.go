// Copyright (c) 2026 Tigera, Inc. All rights reserved.

// Package store holds an immutable, indexed snapshot of the cluster objects the policy evaluators run against.
//
// A Snapshot is built once from a set of Objects and never modified. Updating the cluster view means building a new
// Snapshot, which makes a Snapshot safe for any number of concurrent readers.
package store

import (
	"reflect"
	"sort"

	log "github.com/sirupsen/logrus"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation/field"
	netutils "k8s.io/utils/net"

	"github.com/tigera/policyq/pkg/resources"
)

// Snapshot is an immutable, indexed view of a set of Objects.
type Snapshot struct {
	objects map[resources.ResourceID]resources.Resource

	namespaces                 []*corev1.Namespace
	pods                       []*corev1.Pod
	podsByNamespace            map[string][]*corev1.Pod
	serviceAccounts            []*corev1.ServiceAccount
	clusterRoles               []*rbacv1.ClusterRole
	roleBindingsByNamespace    map[string][]*rbacv1.RoleBinding
	clusterRoleBindings        []*rbacv1.ClusterRoleBinding
	networkPoliciesByNamespace map[string][]*networkingv1.NetworkPolicy
}

// New validates the objects and builds a Snapshot from a deep copy of them. All referential integrity problems are
// collected and returned together; the Snapshot is nil if there are any.
func New(objs Objects) (*Snapshot, field.ErrorList) {
	objs = objs.DeepCopy()
	s := &Snapshot{
		objects:                    make(map[resources.ResourceID]resources.Resource, objs.Len()),
		podsByNamespace:            make(map[string][]*corev1.Pod),
		roleBindingsByNamespace:    make(map[string][]*rbacv1.RoleBinding),
		networkPoliciesByNamespace: make(map[string][]*networkingv1.NetworkPolicy),
	}
	var errs field.ErrorList

	// Namespaces are indexed first so that every namespaced object can be checked against them.
	for i, ns := range objs.Namespaces {
		if s.index(resources.TypeK8sNamespaces, i, ns, false, &errs) {
			s.namespaces = append(s.namespaces, ns)
		}
	}
	for i, pod := range objs.Pods {
		if s.index(resources.TypeK8sPods, i, pod, true, &errs) {
			s.pods = append(s.pods, pod)
			errs = append(errs, validatePodIPs(objectPath(resources.TypeK8sPods, pod), pod)...)
		}
	}
	for i, sa := range objs.ServiceAccounts {
		if s.index(resources.TypeK8sServiceAccounts, i, sa, true, &errs) {
			s.serviceAccounts = append(s.serviceAccounts, sa)
		}
	}
	for i, r := range objs.Roles {
		s.index(resources.TypeK8sRoles, i, r, true, &errs)
	}
	for i, cr := range objs.ClusterRoles {
		if s.index(resources.TypeK8sClusterRoles, i, cr, false, &errs) {
			s.clusterRoles = append(s.clusterRoles, cr)
		}
	}
	var roleBindings []*rbacv1.RoleBinding
	for i, rb := range objs.RoleBindings {
		if s.index(resources.TypeK8sRoleBindings, i, rb, true, &errs) {
			roleBindings = append(roleBindings, rb)
		}
	}
	for i, crb := range objs.ClusterRoleBindings {
		if s.index(resources.TypeK8sClusterRoleBindings, i, crb, false, &errs) {
			s.clusterRoleBindings = append(s.clusterRoleBindings, crb)
		}
	}
	var networkPolicies []*networkingv1.NetworkPolicy
	for i, np := range objs.NetworkPolicies {
		if s.index(resources.TypeK8sNetworkPolicies, i, np, true, &errs) {
			networkPolicies = append(networkPolicies, np)
		}
	}

	// With everything indexed, the bindings can be resolved.
	for _, rb := range roleBindings {
		path := objectPath(resources.TypeK8sRoleBindings, rb)
		errs = append(errs, s.validateRoleBindingRef(path.Child("roleRef"), rb)...)
		errs = append(errs, s.validateSubjects(path.Child("subjects"), rb.Subjects)...)
	}
	for _, crb := range s.clusterRoleBindings {
		path := objectPath(resources.TypeK8sClusterRoleBindings, crb)
		errs = append(errs, s.validateClusterRoleBindingRef(path.Child("roleRef"), crb)...)
		errs = append(errs, s.validateSubjects(path.Child("subjects"), crb.Subjects)...)
	}

	if len(errs) > 0 {
		log.WithField("errors", len(errs)).Info("Snapshot failed validation")
		return nil, errs
	}

	sortByName(s.namespaces)
	sortByName(s.pods)
	sortByName(s.serviceAccounts)
	sortByName(s.clusterRoles)
	sortByName(roleBindings)
	sortByName(s.clusterRoleBindings)
	sortByName(networkPolicies)
	for _, p := range s.pods {
		s.podsByNamespace[p.Namespace] = append(s.podsByNamespace[p.Namespace], p)
	}
	for _, rb := range roleBindings {
		s.roleBindingsByNamespace[rb.Namespace] = append(s.roleBindingsByNamespace[rb.Namespace], rb)
	}
	for _, np := range networkPolicies {
		s.networkPoliciesByNamespace[np.Namespace] = append(s.networkPoliciesByNamespace[np.Namespace], np)
	}

	log.WithField("objects", len(s.objects)).Debug("Built snapshot")
	return s, nil
}

// index adds the object to the generic index, returning false (and recording the problem) if the object is not
// valid enough to be indexed.
func (s *Snapshot) index(
	tm metav1.TypeMeta, idx int, r resources.Resource, namespaced bool, errs *field.ErrorList,
) bool {
	if v := reflect.ValueOf(r); !v.IsValid() || v.IsNil() {
		*errs = append(*errs, field.Required(field.NewPath(tm.Kind).Index(idx), "object must not be nil"))
		return false
	}
	meta := r.GetObjectMeta()
	if meta.GetName() == "" {
		*errs = append(*errs, field.Required(field.NewPath(tm.Kind).Index(idx).Child("metadata", "name"), ""))
		return false
	}

	id := resources.ResourceID{TypeMeta: tm, Name: meta.GetName()}
	if namespaced {
		id.Namespace = meta.GetNamespace()
		if id.Namespace == "" {
			*errs = append(*errs, field.Required(objectPath(tm, r).Child("metadata", "namespace"), ""))
			return false
		}
		if s.Namespace(id.Namespace) == nil {
			*errs = append(*errs, field.NotFound(objectPath(tm, r).Child("metadata", "namespace"), id.Namespace))
			return false
		}
	}

	if _, ok := s.objects[id]; ok {
		*errs = append(*errs, field.Duplicate(objectPath(tm, r), id.String()))
		return false
	}
	s.objects[id] = r
	return true
}

func (s *Snapshot) validateRoleBindingRef(path *field.Path, rb *rbacv1.RoleBinding) field.ErrorList {
	switch rb.RoleRef.Kind {
	case resources.TypeK8sRoles.Kind:
		if s.Role(rb.Namespace, rb.RoleRef.Name) == nil {
			return field.ErrorList{field.NotFound(path.Child("name"), rb.Namespace+"/"+rb.RoleRef.Name)}
		}
	case resources.TypeK8sClusterRoles.Kind:
		if s.ClusterRole(rb.RoleRef.Name) == nil {
			return field.ErrorList{field.NotFound(path.Child("name"), rb.RoleRef.Name)}
		}
	default:
		return field.ErrorList{field.NotSupported(
			path.Child("kind"), rb.RoleRef.Kind,
			[]string{resources.TypeK8sRoles.Kind, resources.TypeK8sClusterRoles.Kind},
		)}
	}
	return nil
}

func (s *Snapshot) validateClusterRoleBindingRef(path *field.Path, crb *rbacv1.ClusterRoleBinding) field.ErrorList {
	if crb.RoleRef.Kind != resources.TypeK8sClusterRoles.Kind {
		return field.ErrorList{field.NotSupported(
			path.Child("kind"), crb.RoleRef.Kind, []string{resources.TypeK8sClusterRoles.Kind},
		)}
	}
	if s.ClusterRole(crb.RoleRef.Name) == nil {
		return field.ErrorList{field.NotFound(path.Child("name"), crb.RoleRef.Name)}
	}
	return nil
}

func (s *Snapshot) validateSubjects(path *field.Path, subjects []rbacv1.Subject) field.ErrorList {
	var errs field.ErrorList
	for i, subject := range subjects {
		sp := path.Index(i)
		if subject.Name == "" {
			errs = append(errs, field.Required(sp.Child("name"), ""))
		}
		switch subject.Kind {
		case rbacv1.UserKind, rbacv1.GroupKind:
		case rbacv1.ServiceAccountKind:
			if subject.Namespace == "" {
				errs = append(errs, field.Required(sp.Child("namespace"), "required for ServiceAccount subjects"))
			} else if s.Namespace(subject.Namespace) == nil {
				errs = append(errs, field.NotFound(sp.Child("namespace"), subject.Namespace))
			}
		default:
			errs = append(errs, field.NotSupported(
				sp.Child("kind"), subject.Kind,
				[]string{rbacv1.UserKind, rbacv1.GroupKind, rbacv1.ServiceAccountKind},
			))
		}
	}
	return errs
}

func validatePodIPs(path *field.Path, pod *corev1.Pod) field.ErrorList {
	var errs field.ErrorList
	if pod.Status.PodIP != "" && netutils.ParseIPSloppy(pod.Status.PodIP) == nil {
		errs = append(errs, field.Invalid(path.Child("status", "podIP"), pod.Status.PodIP, "must be a valid IP address"))
	}
	for i, ip := range pod.Status.PodIPs {
		if netutils.ParseIPSloppy(ip.IP) == nil {
			errs = append(errs, field.Invalid(path.Child("status", "podIPs").Index(i), ip.IP, "must be a valid IP address"))
		}
	}
	return errs
}

// ObjectPath returns the root field path used when reporting problems with an object. The path is keyed by the
// object's namespaced name, e.g. RoleBinding[staging/interns].
func ObjectPath(r resources.Resource) *field.Path {
	return objectPath(resources.GetTypeMeta(r), r)
}

func objectPath(tm metav1.TypeMeta, r resources.Resource) *field.Path {
	return field.NewPath(tm.Kind).Key(resources.GetResourceID(r).NamespacedName())
}

func sortByName[T metav1.Object](items []T) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].GetNamespace() != items[j].GetNamespace() {
			return items[i].GetNamespace() < items[j].GetNamespace()
		}
		return items[i].GetName() < items[j].GetName()
	})
}
