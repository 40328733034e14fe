// Copyright (c) 2019, 2026 Tigera, Inc. All rights reserved.
package resources_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/tigera/policyq/pkg/resources"
)

var _ = Describe("Resource helpers", func() {
	It("derives the type from the Go type when TypeMeta is not set", func() {
		rb := &rbacv1.RoleBinding{ObjectMeta: metav1.ObjectMeta{Name: "interns", Namespace: "staging"}}
		id := resources.GetResourceID(rb)
		Expect(id.TypeMeta).To(Equal(resources.TypeK8sRoleBindings))
		Expect(id.String()).To(Equal("RoleBinding(staging/interns)"))
		Expect(id.NamespacedName()).To(Equal("staging/interns"))
	})

	It("prefers the TypeMeta carried by the resource", func() {
		np := &networkingv1.NetworkPolicy{
			TypeMeta:   resources.TypeK8sNetworkPolicies,
			ObjectMeta: metav1.ObjectMeta{Name: "deny-all", Namespace: "qa"},
		}
		Expect(resources.GetTypeMeta(np)).To(Equal(resources.TypeK8sNetworkPolicies))
	})

	It("formats cluster scoped resources without a namespace", func() {
		ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "qa"}}
		Expect(resources.GetResourceID(ns).String()).To(Equal("Namespace(qa)"))
	})

	It("looks up helpers for every supported kind", func() {
		for _, tm := range []metav1.TypeMeta{
			resources.TypeK8sNamespaces, resources.TypeK8sPods, resources.TypeK8sServiceAccounts,
			resources.TypeK8sRoles, resources.TypeK8sClusterRoles, resources.TypeK8sRoleBindings,
			resources.TypeK8sClusterRoleBindings, resources.TypeK8sNetworkPolicies,
		} {
			rh := resources.GetResourceHelper(tm)
			Expect(rh).NotTo(BeNil(), tm.Kind)
			Expect(rh.TypeMeta()).To(Equal(tm))
		}
		Expect(resources.GetResourceHelper(metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"})).To(BeNil())
		Expect(resources.GetResourceHelper(metav1.TypeMeta{APIVersion: "v1", Kind: "Role"})).To(BeNil())
	})
})
