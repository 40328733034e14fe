// Copyright (c) 2026 Tigera, Inc. All rights reserved.
package netpol

import (
	"fmt"
	"net"
	"strings"

	log "github.com/sirupsen/logrus"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/apimachinery/pkg/util/sets"
	netutils "k8s.io/utils/net"

	"github.com/tigera/policyq/pkg/selector"
)

// peerKind is the shape of a compiled NetworkPolicyPeer.
type peerKind byte

const (
	// peerPods selects pods in the policy's own namespace.
	peerPods peerKind = iota

	// peerNamespaces selects every pod in the selected namespaces.
	peerNamespaces

	// peerPodsInNamespaces selects pods matching the pod selector in the selected namespaces.
	peerPodsInNamespaces

	// peerIPBlock selects pods with an IP in the CIDR and not in any of the exceptions.
	peerIPBlock
)

// peer is a compiled NetworkPolicyPeer. The fields used depend on the kind.
type peer struct {
	kind peerKind

	// The namespaces the peer applies to. For peerPods this is the policy namespace.
	namespaces     sets.Set[string]
	namespacesDesc string

	pods selector.Selector

	cidr   *net.IPNet
	except []*net.IPNet
	desc   string
}

// matches returns true if the peer selects the pod.
func (p *peer) matches(pod *corev1.Pod) bool {
	switch p.kind {
	case peerPods, peerPodsInNamespaces:
		if !p.namespaces.Has(pod.Namespace) {
			log.Debugf("Peer %s: namespace %s not selected", p, pod.Namespace)
			return false
		}
		if !p.pods.Matches(pod.Labels) {
			log.Debugf("Peer %s: pod labels not selected", p)
			return false
		}
		return true
	case peerNamespaces:
		if !p.namespaces.Has(pod.Namespace) {
			log.Debugf("Peer %s: namespace %s not selected", p, pod.Namespace)
			return false
		}
		return true
	case peerIPBlock:
		for _, ip := range podIPs(pod) {
			if p.cidr.Contains(ip) && !p.excepted(ip) {
				return true
			}
		}
		log.Debugf("Peer %s: no pod IP in block", p)
		return false
	}
	return false
}

func (p *peer) excepted(ip net.IP) bool {
	for _, e := range p.except {
		if e.Contains(ip) {
			return true
		}
	}
	return false
}

// String renders the peer for traces.
func (p *peer) String() string {
	switch p.kind {
	case peerPods:
		return fmt.Sprintf("podSelector %s in namespace %s", p.pods, p.namespacesDesc)
	case peerNamespaces:
		return fmt.Sprintf("namespaceSelector %s", p.namespacesDesc)
	case peerPodsInNamespaces:
		return fmt.Sprintf("podSelector %s and namespaceSelector %s", p.pods, p.namespacesDesc)
	case peerIPBlock:
		return p.desc
	}
	return "-"
}

// podIPs returns the parsed IPs of the pod.
func podIPs(pod *corev1.Pod) []net.IP {
	var ips []net.IP
	seen := sets.New[string]()
	add := func(s string) {
		if s == "" || seen.Has(s) {
			return
		}
		seen.Insert(s)
		if ip := netutils.ParseIPSloppy(s); ip != nil {
			ips = append(ips, ip)
		}
	}
	add(pod.Status.PodIP)
	for _, ip := range pod.Status.PodIPs {
		add(ip.IP)
	}
	return ips
}

// port is a compiled NetworkPolicyPort.
type port struct {
	protocol corev1.Protocol

	// If all is set the port matches any port number of the protocol.
	all bool

	// A named port, resolved against the destination pod's container ports.
	name string

	// The numeric range, inclusive. For a single port min and max are equal.
	min, max int32
}

// matches returns true if the port number and protocol are selected. Named ports are looked up in the container
// ports of the destination pod and match if a container port with that name and protocol has the requested number.
func (p *port) matches(number int32, protocol corev1.Protocol, dst *corev1.Pod) bool {
	if p.protocol != protocol {
		return false
	}
	if p.all {
		return true
	}
	if p.name != "" {
		resolved, ok := resolveNamedPort(dst, p.name, protocol)
		if !ok {
			log.Debugf("Named port %s not found on pod %s/%s", p.name, dst.Namespace, dst.Name)
			return false
		}
		return resolved == number
	}
	return number >= p.min && number <= p.max
}

func (p *port) String() string {
	switch {
	case p.all:
		return string(p.protocol)
	case p.name != "":
		return fmt.Sprintf("%s/%s", p.protocol, p.name)
	case p.min == p.max:
		return fmt.Sprintf("%s/%d", p.protocol, p.min)
	default:
		return fmt.Sprintf("%s/%d-%d", p.protocol, p.min, p.max)
	}
}

func portsString(ports []*port) string {
	if len(ports) == 0 {
		return "all ports"
	}
	s := make([]string, len(ports))
	for i := range ports {
		s[i] = ports[i].String()
	}
	return strings.Join(s, ",")
}

// resolveNamedPort looks up a named container port on the pod.
func resolveNamedPort(pod *corev1.Pod, name string, protocol corev1.Protocol) (int32, bool) {
	for _, c := range pod.Spec.Containers {
		for _, cp := range c.Ports {
			if cp.Name == name && protocolOrDefault(&cp.Protocol) == protocol {
				return cp.ContainerPort, true
			}
		}
	}
	return 0, false
}

// portValue returns the numeric value of an int-or-string, or the string for a named port.
func portValue(v *intstr.IntOrString) (int32, string) {
	if v.Type == intstr.String {
		return 0, v.StrVal
	}
	return v.IntVal, ""
}
