// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package engine_test

import (
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	rbacv1 "k8s.io/api/rbac/v1"

	. "github.com/tigera/policyq/internal/pkg/testutils"
	"github.com/tigera/policyq/pkg/engine"
	"github.com/tigera/policyq/pkg/store"
)

var _ = Describe("Holder", func() {
	It("returns ErrNoSnapshot until a snapshot is loaded", func() {
		h := engine.NewHolder()
		_, err := h.Load()
		Expect(err).To(Equal(engine.ErrNoSnapshot))

		Expect(h.Update(scenario())).To(Succeed())
		s, err := h.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Snapshot().Pod("staging", "web")).NotTo(BeNil())
	})

	It("keeps the previous store when an update fails", func() {
		h := engine.NewHolder()
		Expect(h.Update(scenario())).To(Succeed())
		before, _ := h.Load()

		bad := scenario()
		bad.RoleBindings = append(bad.RoleBindings, RoleBinding("staging", "dangling", "missing", User("bob")))
		err := h.Update(bad)
		Expect(engine.IsLoadError(err)).To(BeTrue())

		after, _ := h.Load()
		Expect(after).To(BeIdenticalTo(before))
	})

	It("applies its options to every store", func() {
		h := engine.NewHolder(engine.WithFullTrace())
		objs := scenario()
		objs.ClusterRoleBindings = nil
		Expect(h.Update(objs)).To(Succeed())
		s, _ := h.Load()
		_, t, err := s.CanI(bob, "delete", "", "pods", "", "staging")
		Expect(err).NotTo(HaveOccurred())
		Expect(len(t.Entries)).To(BeNumerically(">", 1))
	})

	It("gives concurrent readers a consistent snapshot while it is swapped", func() {
		// Snapshot A grants bob everything cluster-wide and has no policies. Snapshot B grants nothing and denies all
		// ingress. A reader must never see B's RBAC decision with A's network decision, or the reverse.
		a := scenario()
		a.NetworkPolicies = nil
		b := scenario()
		b.ClusterRoleBindings = nil
		b.RoleBindings = nil
		b.Roles = nil
		b.ClusterRoles = []*rbacv1.ClusterRole{}
		b.NetworkPolicies = append(b.NetworkPolicies[:0],
			NetworkPolicy("staging", "deny-all", Selector(), "Ingress"),
		)

		h := engine.NewHolder()
		Expect(h.Update(a)).To(Succeed())

		web, db := engine.PodRef{Namespace: "staging", Name: "web"}, engine.PodRef{Namespace: "staging", Name: "db"}
		stop := make(chan struct{})
		var wg sync.WaitGroup
		inconsistent := make(chan string, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				for {
					select {
					case <-stop:
						return
					default:
					}
					s, err := h.Load()
					Expect(err).NotTo(HaveOccurred())
					canI, _, err := s.CanI(bob, "get", "", "pods", "", "staging")
					Expect(err).NotTo(HaveOccurred())
					canConnect, _, err := s.CanConnect(web, db, 5432, "TCP")
					Expect(err).NotTo(HaveOccurred())
					if canI.Allowed != canConnect.Allowed {
						inconsistent <- "mixed snapshot"
						return
					}
				}
			}()
		}

		for i := 0; i < 50; i++ {
			if i%2 == 0 {
				Expect(h.Update(b)).To(Succeed())
			} else {
				Expect(h.Update(a)).To(Succeed())
			}
		}
		close(stop)
		wg.Wait()
		Expect(inconsistent).To(BeEmpty())
	})
})

var _ = Describe("Objects passed to a Holder", func() {
	It("are copied so that later changes do not affect the store", func() {
		objs := scenario()
		h := engine.NewHolder()
		Expect(h.Update(objs)).To(Succeed())
		objs.Pods[0].Labels["app"] = "changed"

		s, _ := h.Load()
		pods, err := s.SelectPods("staging", Selector("app", "web"))
		Expect(err).NotTo(HaveOccurred())
		Expect(pods).To(HaveLen(1))
	})

	It("may be empty", func() {
		h := engine.NewHolder()
		Expect(h.Update(store.Objects{})).To(Succeed())
	})
})
