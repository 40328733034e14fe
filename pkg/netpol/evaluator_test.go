// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package netpol_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	. "github.com/tigera/policyq/internal/pkg/testutils"
	"github.com/tigera/policyq/pkg/netpol"
	"github.com/tigera/policyq/pkg/selector"
	"github.com/tigera/policyq/pkg/store"
	"github.com/tigera/policyq/pkg/trace"
)

var (
	ingress = networkingv1.PolicyTypeIngress
	egress  = networkingv1.PolicyTypeEgress
)

// cluster is a small fixture: namespaces qa (ns=qa), dev (ns=dev) and prod (no labels), each with a few pods.
type cluster struct {
	objs store.Objects
}

func newCluster() *cluster {
	return &cluster{objs: store.Objects{
		Namespaces: []*corev1.Namespace{
			Namespace("qa", Labels("ns", "qa")),
			Namespace("dev", Labels("ns", "dev")),
			Namespace("prod", nil),
		},
		Pods: []*corev1.Pod{
			Pod("qa", "api", Labels("app", "api")),
			Pod("qa", "worker", Labels("app", "worker")),
			Pod("dev", "api", Labels("app", "api")),
			Pod("dev", "worker", Labels("app", "worker")),
			WithContainerPort(PodWithIP("prod", "db", Labels("app", "db"), "10.0.1.5"), "postgres", 5432, corev1.ProtocolTCP),
			PodWithIP("prod", "client", Labels("app", "client"), "10.0.2.7"),
		},
	}}
}

func (c *cluster) add(nps ...*networkingv1.NetworkPolicy) *cluster {
	c.objs.NetworkPolicies = append(c.objs.NetworkPolicies, nps...)
	return c
}

func (c *cluster) evaluator() (*netpol.Evaluator, *store.Snapshot) {
	s, errs := store.New(c.objs)
	ExpectWithOffset(2, errs).To(BeEmpty())
	e, errs := netpol.NewEvaluator(s, selector.NewCache())
	ExpectWithOffset(2, errs).To(BeEmpty())
	return e, s
}

func (c *cluster) connect(src, dst string, port int32, proto corev1.Protocol) (bool, trace.Trace) {
	e, s := c.evaluator()
	tb := trace.NewBuilder(trace.SubsystemNetPol, false)
	allowed := e.Connect(pod(s, src), pod(s, dst), port, proto, tb)
	return allowed, tb.Trace()
}

func pod(s *store.Snapshot, ref string) *corev1.Pod {
	for _, p := range s.Pods() {
		if p.Namespace+"/"+p.Name == ref {
			return p
		}
	}
	Fail("no pod " + ref)
	return nil
}

func ingressPolicy(namespace, name string, podSelector *metav1.LabelSelector, rules ...networkingv1.NetworkPolicyIngressRule) *networkingv1.NetworkPolicy {
	np := NetworkPolicy(namespace, name, podSelector, ingress)
	np.Spec.Ingress = rules
	return np
}

func egressPolicy(namespace, name string, podSelector *metav1.LabelSelector, rules ...networkingv1.NetworkPolicyEgressRule) *networkingv1.NetworkPolicy {
	np := NetworkPolicy(namespace, name, podSelector, egress)
	np.Spec.Egress = rules
	return np
}

func from(peers ...networkingv1.NetworkPolicyPeer) networkingv1.NetworkPolicyIngressRule {
	return networkingv1.NetworkPolicyIngressRule{From: peers}
}

var _ = Describe("NetworkPolicy evaluator", func() {
	It("allows everything when no policy selects either pod", func() {
		c := newCluster().add(ingressPolicy("dev", "unrelated", Selector("app", "nothing")))
		for _, pair := range [][2]string{{"qa/api", "dev/worker"}, {"dev/worker", "qa/api"}, {"prod/db", "prod/client"}} {
			allowed, t := c.connect(pair[0], pair[1], 8080, corev1.ProtocolUDP)
			Expect(allowed).To(BeTrue())
			Expect(t.Entries).To(HaveLen(2))
			Expect(t.Entries[0].Reason).To(ContainSubstring("no NetworkPolicy selects the pod for egress, allowed by default"))
			Expect(t.Entries[1].Reason).To(ContainSubstring("no NetworkPolicy selects the pod for ingress, allowed by default"))
		}
	})

	Context("peers combine with OR and peer fields with AND", func() {
		It("allows either peer of a two peer rule", func() {
			c := newCluster().add(ingressPolicy("dev", "or", Selector("app", "worker"), from(
				networkingv1.NetworkPolicyPeer{NamespaceSelector: Selector("ns", "qa")},
				networkingv1.NetworkPolicyPeer{PodSelector: Selector("app", "api")},
			)))
			allowed, t := c.connect("qa/worker", "dev/worker", 80, corev1.ProtocolTCP)
			Expect(allowed).To(BeTrue(), "qa pod with unrelated labels")
			Expect(t.String()).To(ContainSubstring("NetworkPolicy dev/or match: ingress rule 0 allows"))

			allowed, _ = c.connect("dev/api", "dev/worker", 80, corev1.ProtocolTCP)
			Expect(allowed).To(BeTrue(), "api pod outside qa")
		})

		It("requires both fields of a single combined peer", func() {
			c := newCluster().add(ingressPolicy("dev", "and", Selector("app", "worker"), from(
				networkingv1.NetworkPolicyPeer{NamespaceSelector: Selector("ns", "qa"), PodSelector: Selector("app", "api")},
			)))
			allowed, _ := c.connect("qa/api", "dev/worker", 80, corev1.ProtocolTCP)
			Expect(allowed).To(BeTrue())

			allowed, t := c.connect("qa/worker", "dev/worker", 80, corev1.ProtocolTCP)
			Expect(allowed).To(BeFalse())
			Expect(t.String()).To(ContainSubstring("selected for ingress by dev/and and no ingress rule allows qa/worker -> dev/worker on TCP/80"))

			allowed, _ = c.connect("dev/api", "dev/worker", 80, corev1.ProtocolTCP)
			Expect(allowed).To(BeFalse())
		})
	})

	It("scopes a pod selector only peer to the policy namespace", func() {
		c := newCluster().add(ingressPolicy("dev", "same-ns", Selector("app", "worker"), from(
			networkingv1.NetworkPolicyPeer{PodSelector: Selector("app", "api")},
		)))
		allowed, _ := c.connect("dev/api", "dev/worker", 80, corev1.ProtocolTCP)
		Expect(allowed).To(BeTrue())
		allowed, _ = c.connect("qa/api", "dev/worker", 80, corev1.ProtocolTCP)
		Expect(allowed).To(BeFalse())
	})

	It("treats an empty namespace selector as all namespaces", func() {
		c := newCluster().add(ingressPolicy("dev", "all-ns", Selector("app", "worker"), from(
			networkingv1.NetworkPolicyPeer{NamespaceSelector: Selector(), PodSelector: Selector("app", "api")},
		)))
		allowed, _ := c.connect("qa/api", "dev/worker", 80, corev1.ProtocolTCP)
		Expect(allowed).To(BeTrue())
		allowed, _ = c.connect("prod/client", "dev/worker", 80, corev1.ProtocolTCP)
		Expect(allowed).To(BeFalse())
	})

	It("treats a rule with no peers as all peers", func() {
		c := newCluster().add(ingressPolicy("dev", "any-peer", Selector("app", "worker"),
			networkingv1.NetworkPolicyIngressRule{Ports: []networkingv1.NetworkPolicyPort{Port(corev1.ProtocolTCP, 443)}},
		))
		allowed, _ := c.connect("prod/client", "dev/worker", 443, corev1.ProtocolTCP)
		Expect(allowed).To(BeTrue())
		allowed, _ = c.connect("prod/client", "dev/worker", 80, corev1.ProtocolTCP)
		Expect(allowed).To(BeFalse())
	})

	It("denies all ingress for a selecting policy with no ingress rules", func() {
		c := newCluster().add(ingressPolicy("dev", "deny-all", Selector()))
		allowed, t := c.connect("dev/api", "dev/worker", 80, corev1.ProtocolTCP)
		Expect(allowed).To(BeFalse())
		Expect(t.Empty()).To(BeFalse())

		// Egress from the dev pods is not restricted.
		allowed, _ = c.connect("dev/api", "qa/worker", 80, corev1.ProtocolTCP)
		Expect(allowed).To(BeTrue())
	})

	It("combines selecting policies with OR", func() {
		c := newCluster().add(
			ingressPolicy("dev", "deny-all", Selector()),
			ingressPolicy("dev", "allow-qa", Selector("app", "worker"), from(
				networkingv1.NetworkPolicyPeer{NamespaceSelector: Selector("ns", "qa")},
			)),
		)
		allowed, t := c.connect("qa/api", "dev/worker", 80, corev1.ProtocolTCP)
		Expect(allowed).To(BeTrue())
		Expect(t.Matched()).To(HaveLen(2))
		Expect(t.Matched()[1].ObjectName).To(Equal("dev/allow-qa"))

		allowed, _ = c.connect("qa/api", "dev/api", 80, corev1.ProtocolTCP)
		Expect(allowed).To(BeFalse())
	})

	Context("egress has no override", func() {
		It("denies all egress from the selected pod whatever other policies allow", func() {
			c := newCluster().add(
				egressPolicy("qa", "no-egress", Selector("app", "api")),
				ingressPolicy("dev", "allow-everything", Selector(), from(
					networkingv1.NetworkPolicyPeer{NamespaceSelector: Selector()},
				)),
				egressPolicy("dev", "egress-anywhere", Selector(), networkingv1.NetworkPolicyEgressRule{}),
				ingressPolicy("qa", "allow-all-in", Selector(), networkingv1.NetworkPolicyIngressRule{}),
			)
			for _, dst := range []string{"dev/worker", "dev/api", "qa/worker", "prod/db"} {
				allowed, t := c.connect("qa/api", dst, 80, corev1.ProtocolTCP)
				Expect(allowed).To(BeFalse(), dst)
				Expect(t.String()).To(ContainSubstring("selected for egress by qa/no-egress"))
			}

			// Other qa pods are unaffected.
			allowed, _ := c.connect("qa/worker", "dev/worker", 80, corev1.ProtocolTCP)
			Expect(allowed).To(BeTrue())
		})

		It("requires both egress and ingress to allow", func() {
			c := newCluster().add(
				egressPolicy("qa", "egress-to-dev", Selector("app", "api"), networkingv1.NetworkPolicyEgressRule{
					To: []networkingv1.NetworkPolicyPeer{{NamespaceSelector: Selector("ns", "dev")}},
				}),
				ingressPolicy("dev", "from-nothing", Selector("app", "api")),
			)
			allowed, _ := c.connect("qa/api", "dev/worker", 80, corev1.ProtocolTCP)
			Expect(allowed).To(BeTrue())
			allowed, _ = c.connect("qa/api", "dev/api", 80, corev1.ProtocolTCP)
			Expect(allowed).To(BeFalse(), "ingress gate denies")
			allowed, _ = c.connect("qa/api", "prod/db", 80, corev1.ProtocolTCP)
			Expect(allowed).To(BeFalse(), "egress gate denies")
		})
	})

	DescribeTable("port matching",
		func(ports []networkingv1.NetworkPolicyPort, port int32, proto corev1.Protocol, expected bool) {
			c := newCluster().add(ingressPolicy("prod", "db", Selector("app", "db"), networkingv1.NetworkPolicyIngressRule{
				From:  []networkingv1.NetworkPolicyPeer{{PodSelector: Selector("app", "client")}},
				Ports: ports,
			}))
			allowed, _ := c.connect("prod/client", "prod/db", port, proto)
			Expect(allowed).To(Equal(expected))
		},
		Entry("no ports means all ports", nil, int32(9999), corev1.ProtocolUDP, true),
		Entry("no ports includes port 0", nil, int32(0), corev1.ProtocolTCP, true),
		Entry("numeric port", []networkingv1.NetworkPolicyPort{Port(corev1.ProtocolTCP, 5432)}, int32(5432), corev1.ProtocolTCP, true),
		Entry("other port", []networkingv1.NetworkPolicyPort{Port(corev1.ProtocolTCP, 5432)}, int32(5433), corev1.ProtocolTCP, false),
		Entry("other protocol", []networkingv1.NetworkPolicyPort{Port(corev1.ProtocolTCP, 5432)}, int32(5432), corev1.ProtocolUDP, false),
		Entry("protocol defaults to TCP",
			[]networkingv1.NetworkPolicyPort{{Port: Port(corev1.ProtocolTCP, 5432).Port}}, int32(5432), corev1.ProtocolTCP, true),
		Entry("protocol only", []networkingv1.NetworkPolicyPort{{Protocol: Port(corev1.ProtocolUDP, 0).Protocol}}, int32(53), corev1.ProtocolUDP, true),
		Entry("any of several ports", []networkingv1.NetworkPolicyPort{
			Port(corev1.ProtocolUDP, 53), Port(corev1.ProtocolTCP, 5432),
		}, int32(5432), corev1.ProtocolTCP, true),
		Entry("start of range", []networkingv1.NetworkPolicyPort{PortRange(corev1.ProtocolTCP, 5000, 6000)}, int32(5000), corev1.ProtocolTCP, true),
		Entry("end of range", []networkingv1.NetworkPolicyPort{PortRange(corev1.ProtocolTCP, 5000, 6000)}, int32(6000), corev1.ProtocolTCP, true),
		Entry("beyond range", []networkingv1.NetworkPolicyPort{PortRange(corev1.ProtocolTCP, 5000, 6000)}, int32(6001), corev1.ProtocolTCP, false),
		Entry("named port resolved on the destination", []networkingv1.NetworkPolicyPort{NamedPort(corev1.ProtocolTCP, "postgres")}, int32(5432), corev1.ProtocolTCP, true),
		Entry("named port with another number", []networkingv1.NetworkPolicyPort{NamedPort(corev1.ProtocolTCP, "postgres")}, int32(5433), corev1.ProtocolTCP, false),
		Entry("named port with another protocol", []networkingv1.NetworkPolicyPort{NamedPort(corev1.ProtocolUDP, "postgres")}, int32(5432), corev1.ProtocolUDP, false),
		Entry("unknown named port", []networkingv1.NetworkPolicyPort{NamedPort(corev1.ProtocolTCP, "mysql")}, int32(5432), corev1.ProtocolTCP, false),
	)

	It("resolves named ports in egress rules against the destination pod", func() {
		c := newCluster().add(egressPolicy("prod", "client-out", Selector("app", "client"), networkingv1.NetworkPolicyEgressRule{
			Ports: []networkingv1.NetworkPolicyPort{NamedPort(corev1.ProtocolTCP, "postgres")},
		}))
		allowed, _ := c.connect("prod/client", "prod/db", 5432, corev1.ProtocolTCP)
		Expect(allowed).To(BeTrue())
		allowed, _ = c.connect("prod/client", "dev/api", 5432, corev1.ProtocolTCP)
		Expect(allowed).To(BeFalse())
	})

	It("matches ipBlock peers against pod IPs", func() {
		c := newCluster().add(ingressPolicy("prod", "db", Selector("app", "db"), from(
			networkingv1.NetworkPolicyPeer{IPBlock: &networkingv1.IPBlock{CIDR: "10.0.0.0/16", Except: []string{"10.0.3.0/24"}}},
		)))
		allowed, t := c.connect("prod/client", "prod/db", 5432, corev1.ProtocolTCP)
		Expect(allowed).To(BeTrue())
		Expect(t.String()).To(ContainSubstring("ipBlock 10.0.0.0/16 except 10.0.3.0/24"))

		c.objs.Pods = append(c.objs.Pods, PodWithIP("prod", "excluded", nil, "10.0.3.9"))
		allowed, _ = c.connect("prod/excluded", "prod/db", 5432, corev1.ProtocolTCP)
		Expect(allowed).To(BeFalse())

		// Pods without an IP never match an ipBlock.
		allowed, _ = c.connect("dev/api", "prod/db", 5432, corev1.ProtocolTCP)
		Expect(allowed).To(BeFalse())
	})

	It("records non-matching policies when verbose", func() {
		c := newCluster().add(
			egressPolicy("dev", "egress-only", Selector()),
			ingressPolicy("dev", "other-pods", Selector("app", "api")),
		)
		e, s := c.evaluator()
		tb := trace.NewBuilder(trace.SubsystemNetPol, true)
		Expect(e.Connect(pod(s, "qa/api"), pod(s, "dev/worker"), 80, corev1.ProtocolTCP, tb)).To(BeTrue())
		Expect(tb.Trace().String()).To(And(
			ContainSubstring("NetworkPolicy dev/egress-only no-match: does not apply to ingress"),
			ContainSubstring("NetworkPolicy dev/other-pods no-match: podSelector app=api does not select pod dev/worker"),
		))
	})
})

var _ = Describe("NetworkPolicy compilation", func() {
	compileErrors := func(nps ...*networkingv1.NetworkPolicy) []string {
		c := newCluster().add(nps...)
		s, errs := store.New(c.objs)
		Expect(errs).To(BeEmpty())
		e, errs := netpol.NewEvaluator(s, selector.NewCache())
		Expect(e).To(BeNil())
		var fields []string
		for _, err := range errs {
			fields = append(fields, err.Field)
		}
		return fields
	}

	It("rejects empty and unknown policy types", func() {
		empty := NetworkPolicy("dev", "empty", Selector())
		unknown := NetworkPolicy("dev", "unknown", Selector(), "Sideways")
		Expect(compileErrors(empty, unknown)).To(ConsistOf(
			"NetworkPolicy[dev/empty].spec.policyTypes",
			"NetworkPolicy[dev/unknown].spec.policyTypes[0]",
		))
	})

	It("collects every invalid selector, port and CIDR", func() {
		badSelector := &metav1.LabelSelector{MatchExpressions: []metav1.LabelSelectorRequirement{
			{Key: "a", Operator: metav1.LabelSelectorOpExists, Values: []string{"x"}},
		}}
		np := ingressPolicy("dev", "bad", badSelector,
			from(networkingv1.NetworkPolicyPeer{NamespaceSelector: badSelector}),
			networkingv1.NetworkPolicyIngressRule{
				From: []networkingv1.NetworkPolicyPeer{
					{IPBlock: &networkingv1.IPBlock{CIDR: "not-a-cidr"}},
					{IPBlock: &networkingv1.IPBlock{CIDR: "10.0.0.0/8"}, PodSelector: Selector()},
					{},
				},
				Ports: []networkingv1.NetworkPolicyPort{
					Port(corev1.ProtocolTCP, 70000),
					PortRange(corev1.ProtocolTCP, 100, 50),
					Port("ICMP", 1),
					NamedPort(corev1.ProtocolTCP, "Not_Valid"),
				},
			},
		)
		Expect(compileErrors(np)).To(ConsistOf(
			"NetworkPolicy[dev/bad].spec.podSelector",
			"NetworkPolicy[dev/bad].spec.ingress[0].from[0].namespaceSelector",
			"NetworkPolicy[dev/bad].spec.ingress[1].from[0].ipBlock.cidr",
			"NetworkPolicy[dev/bad].spec.ingress[1].from[1]",
			"NetworkPolicy[dev/bad].spec.ingress[1].from[2]",
			"NetworkPolicy[dev/bad].spec.ingress[1].ports[0].port",
			"NetworkPolicy[dev/bad].spec.ingress[1].ports[1].endPort",
			"NetworkPolicy[dev/bad].spec.ingress[1].ports[2].protocol",
			"NetworkPolicy[dev/bad].spec.ingress[1].ports[3].port",
		))
	})
})
