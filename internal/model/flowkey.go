package model

import (
	"fmt"
	"strings"
)

// FlowKey is the canonical bidirectional 5-tuple. (AddrA, PortA) is always the
// smaller endpoint, so both directions of a conversation share one key.
type FlowKey struct {
	AddrA    string
	AddrB    string
	PortA    Port
	PortB    Port
	Protocol Protocol
}

// NewFlowKey canonicalizes the endpoints of a record.
func NewFlowKey(rec PacketRecord) FlowKey {
	return CanonicalKey(rec.SrcAddr, rec.DstAddr, rec.SrcPort, rec.DstPort, rec.Protocol)
}

// CanonicalKey orders the two endpoints by address string, then by port when the
// addresses are equal.
func CanonicalKey(src, dst string, srcPort, dstPort Port, proto Protocol) FlowKey {
	if src < dst || (src == dst && srcPort.Compare(dstPort) <= 0) {
		return FlowKey{AddrA: src, AddrB: dst, PortA: srcPort, PortB: dstPort, Protocol: proto}
	}
	return FlowKey{AddrA: dst, AddrB: src, PortA: dstPort, PortB: srcPort, Protocol: proto}
}

// IsForward reports whether rec travels from endpoint A to endpoint B.
func (k FlowKey) IsForward(rec PacketRecord) bool {
	return rec.SrcAddr == k.AddrA && rec.DstAddr == k.AddrB
}

// IsBackward reports whether rec travels from endpoint B to endpoint A.
func (k FlowKey) IsBackward(rec PacketRecord) bool {
	return rec.SrcAddr == k.AddrB && rec.DstAddr == k.AddrA
}

// String renders the key as the flow_id column text: "(a, b, pa, pb, proto)".
func (k FlowKey) String() string {
	return fmt.Sprintf("(%s, %s, %s, %s, %s)", k.AddrA, k.AddrB, k.PortA, k.PortB, k.Protocol)
}

// SplitFlowID applies the presentation parse rule: split on commas and trim
// surrounding parentheses and whitespace from each field.
func SplitFlowID(flowID string) ([]string, error) {
	parts := strings.Split(flowID, ",")
	if len(parts) != 5 {
		return nil, fmt.Errorf("malformed flow id %q: expected 5 fields, got %d", flowID, len(parts))
	}
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), "() ")
	}
	return parts, nil
}

// ParseFlowID recovers a FlowKey from its serialized form.
func ParseFlowID(flowID string) (FlowKey, error) {
	parts, err := SplitFlowID(flowID)
	if err != nil {
		return FlowKey{}, err
	}
	portA, err := ParsePort(parts[2])
	if err != nil {
		return FlowKey{}, err
	}
	portB, err := ParsePort(parts[3])
	if err != nil {
		return FlowKey{}, err
	}
	proto, err := ParseProtocol(parts[4])
	if err != nil {
		return FlowKey{}, err
	}
	return FlowKey{AddrA: parts[0], AddrB: parts[1], PortA: portA, PortB: portB, Protocol: proto}, nil
}
