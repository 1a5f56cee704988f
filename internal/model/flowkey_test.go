package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalKeySymmetry(t *testing.T) {
	cases := []struct {
		name   string
		a, b   string
		pa, pb Port
		proto  Protocol
	}{
		{"ipv4 tcp", "10.0.0.1", "10.0.0.2", PortNumber(1000), PortNumber(2000), ProtocolTCP},
		{"reverse ordering", "192.168.1.9", "10.0.0.2", PortNumber(53), PortNumber(40000), ProtocolUDP},
		{"same address", "10.0.0.1", "10.0.0.1", PortNumber(8080), PortNumber(80), ProtocolTCP},
		{"same endpoint", "10.0.0.1", "10.0.0.1", PortNumber(80), PortNumber(80), ProtocolTCP},
		{"icmp no ports", "10.0.0.5", "10.0.0.4", NoPort, NoPort, ProtocolICMP},
		{"ipv6", "fe80::1", "2001:db8::2", PortNumber(443), PortNumber(51515), ProtocolTCPv6},
		{"arp", "10.0.0.1", "10.0.0.254", NoPort, NoPort, ProtocolARP},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fwd := CanonicalKey(tc.a, tc.b, tc.pa, tc.pb, tc.proto)
			bwd := CanonicalKey(tc.b, tc.a, tc.pb, tc.pa, tc.proto)
			assert.Equal(t, fwd, bwd)
			assert.Equal(t, fwd.String(), bwd.String())
		})
	}
}

func TestCanonicalKeyOrdering(t *testing.T) {
	k := CanonicalKey("10.0.0.2", "10.0.0.1", PortNumber(2000), PortNumber(1000), ProtocolTCP)
	assert.Equal(t, "10.0.0.1", k.AddrA)
	assert.Equal(t, "10.0.0.2", k.AddrB)
	assert.Equal(t, PortNumber(1000), k.PortA)
	assert.Equal(t, PortNumber(2000), k.PortB)

	// Address ordering is textual, so "10.0.0.10" sorts before "10.0.0.9".
	k = CanonicalKey("10.0.0.9", "10.0.0.10", PortNumber(1), PortNumber(2), ProtocolUDP)
	assert.Equal(t, "10.0.0.10", k.AddrA)

	// Ports break the tie numerically only when addresses match.
	k = CanonicalKey("10.0.0.1", "10.0.0.1", PortNumber(9000), PortNumber(80), ProtocolTCP)
	assert.Equal(t, PortNumber(80), k.PortA)
	assert.Equal(t, PortNumber(9000), k.PortB)
}

func TestFlowKeyString(t *testing.T) {
	k := CanonicalKey("A", "B", PortNumber(1000), PortNumber(2000), ProtocolTCP)
	assert.Equal(t, "(A, B, 1000, 2000, TCP)", k.String())

	k = CanonicalKey("10.0.0.1", "10.0.0.2", NoPort, NoPort, ProtocolICMP)
	assert.Equal(t, "(10.0.0.1, 10.0.0.2, N/A, N/A, ICMP)", k.String())
}

func TestParseFlowIDRoundTrip(t *testing.T) {
	keys := []FlowKey{
		CanonicalKey("10.0.0.1", "10.0.0.2", PortNumber(1000), PortNumber(2000), ProtocolTCP),
		CanonicalKey("2001:db8::1", "fe80::abcd", PortNumber(53), PortNumber(5353), ProtocolUDPv6),
		CanonicalKey("10.0.0.1", "10.0.0.254", NoPort, NoPort, ProtocolARP),
		CanonicalKey("::1", "::1", NoPort, NoPort, ProtocolICMPv6),
	}
	for _, k := range keys {
		parsed, err := ParseFlowID(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)

		fields, err := SplitFlowID(k.String())
		require.NoError(t, err)
		assert.Equal(t, []string{k.AddrA, k.AddrB, k.PortA.String(), k.PortB.String(), string(k.Protocol)}, fields)
	}
}

func TestParseFlowIDErrors(t *testing.T) {
	_, err := ParseFlowID("(10.0.0.1, 10.0.0.2, 1000)")
	assert.Error(t, err)

	_, err = ParseFlowID("(10.0.0.1, 10.0.0.2, 1000, 2000, SCTP)")
	assert.ErrorIs(t, err, ErrUnsupportedProtocol)

	_, err = ParseFlowID("(10.0.0.1, 10.0.0.2, http, 2000, TCP)")
	assert.Error(t, err)
}

func TestDirection(t *testing.T) {
	k := CanonicalKey("10.0.0.1", "10.0.0.2", PortNumber(1000), PortNumber(2000), ProtocolTCP)
	fwd := PacketRecord{SrcAddr: "10.0.0.1", DstAddr: "10.0.0.2"}
	bwd := PacketRecord{SrcAddr: "10.0.0.2", DstAddr: "10.0.0.1"}
	stray := PacketRecord{SrcAddr: "10.0.0.3", DstAddr: "10.0.0.1"}

	assert.True(t, k.IsForward(fwd))
	assert.False(t, k.IsBackward(fwd))
	assert.True(t, k.IsBackward(bwd))
	assert.False(t, k.IsForward(stray))
	assert.False(t, k.IsBackward(stray))
}
