// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package store_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/util/validation/field"

	. "github.com/tigera/policyq/internal/pkg/testutils"
	"github.com/tigera/policyq/pkg/store"
)

func errorTypes(errs field.ErrorList) []field.ErrorType {
	var types []field.ErrorType
	for _, err := range errs {
		types = append(types, err.Type)
	}
	return types
}

var _ = Describe("Snapshot", func() {
	var objs store.Objects

	BeforeEach(func() {
		objs = store.Objects{
			Namespaces: []*corev1.Namespace{
				Namespace("staging", Labels("env", "staging")),
				Namespace("prod", nil),
			},
			Pods: []*corev1.Pod{
				Pod("staging", "web-2", Labels("app", "web")),
				Pod("staging", "web-1", Labels("app", "web")),
				Pod("prod", "db", Labels("app", "db")),
			},
			ServiceAccounts: []*corev1.ServiceAccount{ServiceAccount("staging", "builder")},
			Roles:           []*rbacv1.Role{Role("staging", "reader", Rule([]string{"get"}, []string{"pods"}))},
			ClusterRoles:    []*rbacv1.ClusterRole{ClusterRole("admin", Rule([]string{"*"}, []string{"*"}))},
			RoleBindings: []*rbacv1.RoleBinding{
				RoleBinding("staging", "readers", "reader", Group("interns")),
				RoleBindingToClusterRole("prod", "admins", "admin", ServiceAccountSubject("staging", "builder")),
			},
			ClusterRoleBindings: []*rbacv1.ClusterRoleBinding{ClusterRoleBinding("ops", "admin", User("alice"))},
			NetworkPolicies: []*networkingv1.NetworkPolicy{
				NetworkPolicy("prod", "deny-all", Selector(), networkingv1.PolicyTypeIngress),
			},
		}
	})

	It("indexes every object", func() {
		s, errs := store.New(objs)
		Expect(errs).To(BeEmpty())
		Expect(s.Len()).To(Equal(objs.Len()))

		Expect(s.Namespace("staging")).NotTo(BeNil())
		Expect(s.Namespace("missing")).To(BeNil())
		Expect(s.Pod("prod", "db")).NotTo(BeNil())
		Expect(s.Pod("staging", "db")).To(BeNil())
		Expect(s.ServiceAccounts()).To(HaveLen(1))
		Expect(s.Role("staging", "reader")).NotTo(BeNil())
		Expect(s.ClusterRole("admin")).NotTo(BeNil())
		Expect(s.RoleBindingsInNamespace("staging")).To(HaveLen(1))
		Expect(s.ClusterRoleBindings()).To(HaveLen(1))
		Expect(s.NetworkPoliciesInNamespace("prod")).To(HaveLen(1))
		Expect(s.NetworkPoliciesInNamespace("staging")).To(BeEmpty())
	})

	It("orders objects by namespace and name", func() {
		s, errs := store.New(objs)
		Expect(errs).To(BeEmpty())
		var names []string
		for _, p := range s.Pods() {
			names = append(names, p.Namespace+"/"+p.Name)
		}
		Expect(names).To(Equal([]string{"prod/db", "staging/web-1", "staging/web-2"}))
		Expect(s.PodsInNamespace("staging")[0].Name).To(Equal("web-1"))
		Expect(s.Namespaces()[0].Name).To(Equal("prod"))
	})

	It("is not affected by later changes to the supplied objects", func() {
		s, errs := store.New(objs)
		Expect(errs).To(BeEmpty())
		objs.Pods[0].Labels["app"] = "changed"
		Expect(s.Pod("staging", "web-2").Labels["app"]).To(Equal("web"))
	})

	It("builds an empty snapshot", func() {
		s, errs := store.New(store.Objects{})
		Expect(errs).To(BeEmpty())
		Expect(s.Len()).To(BeZero())
		Expect(s.ClusterRoleBindings()).To(BeEmpty())
	})

	It("collects every referential integrity problem", func() {
		objs.Pods = append(objs.Pods, Pod("missing", "orphan", nil), Pod("staging", "web-1", nil))
		objs.RoleBindings = append(objs.RoleBindings,
			RoleBinding("staging", "dangling", "no-such-role", User("bob")),
			RoleBinding("staging", "bad-subject", "reader", ServiceAccountSubject("gone", "sa")),
		)
		crb := ClusterRoleBinding("wrong-kind", "reader", User("bob"))
		crb.RoleRef.Kind = "Role"
		objs.ClusterRoleBindings = append(objs.ClusterRoleBindings, crb)

		s, errs := store.New(objs)
		Expect(s).To(BeNil())
		Expect(errorTypes(errs)).To(ConsistOf(
			field.ErrorTypeNotFound, // Pod in missing namespace.
			field.ErrorTypeDuplicate,
			field.ErrorTypeNotFound, // Dangling role reference.
			field.ErrorTypeNotFound, // Service account namespace.
			field.ErrorTypeNotSupported,
		))
		Expect(errs.ToAggregate().Error()).To(ContainSubstring("RoleBinding[staging/dangling].roleRef.name"))
	})

	It("rejects unknown subject kinds and invalid pod IPs", func() {
		rb := RoleBinding("staging", "robots", "reader", User("bob"))
		rb.Subjects[0].Kind = "Robot"
		objs.RoleBindings = append(objs.RoleBindings, rb)
		objs.Pods = append(objs.Pods, PodWithIP("staging", "bad-ip", nil, "10.0.0.300"))

		_, errs := store.New(objs)
		Expect(errorTypes(errs)).To(ConsistOf(
			field.ErrorTypeNotSupported, field.ErrorTypeInvalid, field.ErrorTypeInvalid,
		))
	})

	It("requires names and namespaces", func() {
		objs.Pods = append(objs.Pods, Pod("", "no-namespace", nil), Pod("staging", "", nil))
		_, errs := store.New(objs)
		Expect(errorTypes(errs)).To(ConsistOf(field.ErrorTypeRequired, field.ErrorTypeRequired))
	})

	It("reports nil objects instead of indexing them", func() {
		objs.Pods = append(objs.Pods, nil)
		objs.RoleBindings = append([]*rbacv1.RoleBinding{nil}, objs.RoleBindings...)
		objs.Namespaces = append(objs.Namespaces, nil)

		s, errs := store.New(objs)
		Expect(s).To(BeNil())
		Expect(errorTypes(errs)).To(ConsistOf(
			field.ErrorTypeRequired, field.ErrorTypeRequired, field.ErrorTypeRequired,
		))
		Expect(errs.ToAggregate().Error()).To(ContainSubstring("Pod[3]: Required value: object must not be nil"))
		Expect(errs.ToAggregate().Error()).To(ContainSubstring("RoleBinding[0]"))
		Expect(errs.ToAggregate().Error()).To(ContainSubstring("Namespace[2]"))
	})
})

var _ = Describe("Objects", func() {
	It("adds objects and lists by kind", func() {
		var objs store.Objects
		Expect(objs.Add(Namespace("ns1", nil))).To(Succeed())
		Expect(objs.Add(&corev1.PodList{Items: []corev1.Pod{*Pod("ns1", "a", nil), *Pod("ns1", "b", nil)}})).To(Succeed())
		Expect(objs.Add(&corev1.ConfigMap{})).NotTo(Succeed())
		Expect(objs.Len()).To(Equal(3))
		Expect(objs.Counts()).To(HaveKeyWithValue("Pod", 2))
	})
})
