// Copyright (c) 2019, 2026 Tigera, Inc. All rights reserved.
package resources

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

type Resource interface {
	runtime.Object
	metav1.ObjectMetaAccessor
}

// ResourceID identifies a resource in a snapshot by kind, namespace and name.
type ResourceID struct {
	metav1.TypeMeta
	Name      string
	Namespace string
}

// String returns the kubectl style identifier of the resource, e.g. "RoleBinding(staging/interns)".
func (r ResourceID) String() string {
	if r.Namespace == "" {
		return fmt.Sprintf("%s(%s)", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s(%s/%s)", r.Kind, r.Namespace, r.Name)
}

// NamespacedName returns "namespace/name" for namespaced resources, and "name" otherwise.
func (r ResourceID) NamespacedName() string {
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "/" + r.Name
}

// GetResourceID returns the ID of the resource.
func GetResourceID(r Resource) ResourceID {
	return ResourceID{
		TypeMeta:  GetTypeMeta(r),
		Name:      r.GetObjectMeta().GetName(),
		Namespace: r.GetObjectMeta().GetNamespace(),
	}
}
