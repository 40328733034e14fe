// Copyright (c) 2026 Tigera, Inc. All rights reserved.
package netpol

import (
	"strings"

	corev1 "k8s.io/api/core/v1"
)

var (
	// Protocols a NetworkPolicy port may name.
	supportedProtocols = []string{string(corev1.ProtocolTCP), string(corev1.ProtocolUDP), string(corev1.ProtocolSCTP)}

	protovals = map[string]corev1.Protocol{
		"tcp":  corev1.ProtocolTCP,
		"udp":  corev1.ProtocolUDP,
		"sctp": corev1.ProtocolSCTP,
	}
)

// ParseProtocol returns the protocol with the supplied name, which is case-insensitive.
func ParseProtocol(p string) (corev1.Protocol, bool) {
	proto, ok := protovals[strings.ToLower(p)]
	return proto, ok
}

// protocolOrDefault returns the protocol, defaulting to TCP when not specified.
func protocolOrDefault(p *corev1.Protocol) corev1.Protocol {
	if p == nil || *p == "" {
		return corev1.ProtocolTCP
	}
	return *p
}
