// Copyright (c) 2026 Tigera, Inc. All rights reserved.
package netpol

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
	netutils "k8s.io/utils/net"

	"github.com/tigera/policyq/pkg/selector"
	"github.com/tigera/policyq/pkg/store"
)

// Direction of traffic relative to the pod a policy selects.
type Direction string

const (
	DirectionIngress Direction = "Ingress"
	DirectionEgress  Direction = "Egress"
)

func (d Direction) lower() string {
	return strings.ToLower(string(d))
}

// compiledPolicy is a NetworkPolicy compiled for evaluation.
type compiledPolicy struct {
	name        string
	podSelector selector.Selector
	types       sets.Set[Direction]
	ingress     []*rule
	egress      []*rule
}

func (p *compiledPolicy) rules(d Direction) []*rule {
	if d == DirectionIngress {
		return p.ingress
	}
	return p.egress
}

// rule is a compiled NetworkPolicyIngressRule or NetworkPolicyEgressRule.
type rule struct {
	index int

	// allPeers is set when the rule lists no peers, in which case every peer is selected.
	allPeers bool
	peers    []*peer

	// An empty list means all ports.
	ports []*port
}

// compiler compiles the NetworkPolicies of a snapshot. It shares the selector cache and the namespace handler across
// every policy.
type compiler struct {
	namespaces *NamespaceHandler
	selectors  *selector.Cache
}

// compile compiles the policy, returning every problem found with it.
func (c *compiler) compile(np *networkingv1.NetworkPolicy) (*compiledPolicy, field.ErrorList) {
	path := store.ObjectPath(np).Child("spec")
	var errs field.ErrorList

	cp := &compiledPolicy{
		name:  np.Namespace + "/" + np.Name,
		types: sets.New[Direction](),
	}

	sel, err := c.selectors.Get(&np.Spec.PodSelector)
	if err != nil {
		errs = append(errs, field.Invalid(path.Child("podSelector"), selector.String(&np.Spec.PodSelector), err.Error()))
	}
	cp.podSelector = sel

	if len(np.Spec.PolicyTypes) == 0 {
		errs = append(errs, field.Required(path.Child("policyTypes"), "at least one of Ingress or Egress must be specified"))
	}
	for i, t := range np.Spec.PolicyTypes {
		switch t {
		case networkingv1.PolicyTypeIngress:
			cp.types.Insert(DirectionIngress)
		case networkingv1.PolicyTypeEgress:
			cp.types.Insert(DirectionEgress)
		default:
			errs = append(errs, field.NotSupported(path.Child("policyTypes").Index(i), t,
				[]string{string(networkingv1.PolicyTypeIngress), string(networkingv1.PolicyTypeEgress)}))
		}
	}

	for i := range np.Spec.Ingress {
		r, rerrs := c.compileRule(np.Namespace, i, np.Spec.Ingress[i].From, np.Spec.Ingress[i].Ports,
			path.Child("ingress").Index(i), "from")
		errs = append(errs, rerrs...)
		cp.ingress = append(cp.ingress, r)
	}
	for i := range np.Spec.Egress {
		r, rerrs := c.compileRule(np.Namespace, i, np.Spec.Egress[i].To, np.Spec.Egress[i].Ports,
			path.Child("egress").Index(i), "to")
		errs = append(errs, rerrs...)
		cp.egress = append(cp.egress, r)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	log.Debugf("Compiled NetworkPolicy %s", cp.name)
	return cp, nil
}

func (c *compiler) compileRule(
	namespace string, index int, peers []networkingv1.NetworkPolicyPeer, ports []networkingv1.NetworkPolicyPort,
	path *field.Path, peersField string,
) (*rule, field.ErrorList) {
	var errs field.ErrorList
	r := &rule{index: index, allPeers: len(peers) == 0}
	for i := range peers {
		p, perrs := c.compilePeer(namespace, &peers[i], path.Child(peersField).Index(i))
		errs = append(errs, perrs...)
		if p != nil {
			r.peers = append(r.peers, p)
		}
	}
	for i := range ports {
		p, perrs := compilePort(&ports[i], path.Child("ports").Index(i))
		errs = append(errs, perrs...)
		if p != nil {
			r.ports = append(r.ports, p)
		}
	}
	return r, errs
}

// compilePeer compiles a single peer into one of the peer kinds. A peer with only a pod selector is scoped to the
// policy's own namespace. An explicitly empty namespace selector selects all namespaces.
func (c *compiler) compilePeer(
	namespace string, np *networkingv1.NetworkPolicyPeer, path *field.Path,
) (*peer, field.ErrorList) {
	if np.IPBlock != nil {
		if np.PodSelector != nil || np.NamespaceSelector != nil {
			return nil, field.ErrorList{field.Forbidden(path, "may not specify both ipBlock and another peer")}
		}
		return compileIPBlock(np.IPBlock, path.Child("ipBlock"))
	}

	var errs field.ErrorList
	p := &peer{}
	if np.PodSelector != nil {
		sel, err := c.selectors.Get(np.PodSelector)
		if err != nil {
			errs = append(errs, field.Invalid(path.Child("podSelector"), selector.String(np.PodSelector), err.Error()))
		}
		p.pods = sel
	}

	switch {
	case np.PodSelector == nil && np.NamespaceSelector == nil:
		return nil, field.ErrorList{field.Required(path, "must specify a peer")}
	case np.NamespaceSelector == nil:
		p.kind = peerPods
		p.namespaces = sets.New(namespace)
		p.namespacesDesc = namespace
	default:
		nss, err := c.namespaces.GetNamespaceSelectorMatches(np.NamespaceSelector)
		if err != nil {
			errs = append(errs, field.Invalid(path.Child("namespaceSelector"), selector.String(np.NamespaceSelector), err.Error()))
		}
		p.namespaces = nss
		p.namespacesDesc = selector.String(np.NamespaceSelector)
		if np.PodSelector == nil {
			p.kind = peerNamespaces
		} else {
			p.kind = peerPodsInNamespaces
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return p, nil
}

func compileIPBlock(block *networkingv1.IPBlock, path *field.Path) (*peer, field.ErrorList) {
	var errs field.ErrorList
	_, cidr, err := netutils.ParseCIDRSloppy(block.CIDR)
	if err != nil {
		errs = append(errs, field.Invalid(path.Child("cidr"), block.CIDR, err.Error()))
	}
	p := &peer{kind: peerIPBlock, cidr: cidr, desc: "ipBlock " + block.CIDR}
	for i, e := range block.Except {
		_, ex, err := netutils.ParseCIDRSloppy(e)
		if err != nil {
			errs = append(errs, field.Invalid(path.Child("except").Index(i), e, err.Error()))
			continue
		}
		p.except = append(p.except, ex)
	}
	if len(block.Except) > 0 {
		p.desc += " except " + strings.Join(block.Except, ",")
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return p, nil
}

func compilePort(np *networkingv1.NetworkPolicyPort, path *field.Path) (*port, field.ErrorList) {
	var errs field.ErrorList
	p := &port{protocol: protocolOrDefault(np.Protocol)}
	if !sets.New(supportedProtocols...).Has(string(p.protocol)) {
		errs = append(errs, field.NotSupported(path.Child("protocol"), p.protocol, supportedProtocols))
	}

	if np.Port == nil {
		if np.EndPort != nil {
			errs = append(errs, field.Required(path.Child("port"), "must be specified when endPort is specified"))
		}
		p.all = true
		return p, errs
	}

	number, name := portValue(np.Port)
	switch {
	case name != "":
		for _, msg := range validation.IsValidPortName(name) {
			errs = append(errs, field.Invalid(path.Child("port"), name, msg))
		}
		if np.EndPort != nil {
			errs = append(errs, field.Forbidden(path.Child("endPort"), "may not be specified when port is a named port"))
		}
		p.name = name
	default:
		for _, msg := range validation.IsValidPortNum(int(number)) {
			errs = append(errs, field.Invalid(path.Child("port"), number, msg))
		}
		p.min, p.max = number, number
		if np.EndPort != nil {
			if *np.EndPort < number {
				errs = append(errs, field.Invalid(path.Child("endPort"), *np.EndPort,
					fmt.Sprintf("must be greater than or equal to port %d", number)))
			}
			for _, msg := range validation.IsValidPortNum(int(*np.EndPort)) {
				errs = append(errs, field.Invalid(path.Child("endPort"), *np.EndPort, msg))
			}
			p.max = *np.EndPort
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return p, nil
}
