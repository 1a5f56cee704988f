package protocol

import (
	"fmt"
	"net"
	"time"

	"Go2NetIDS/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	ipv6HeaderLength = 40
	udpHeaderLength  = 8
	arpHeaderLength  = 28
)

// ParsePacket normalizes a decoded frame into a PacketRecord. HeaderLength is
// the network header plus the transport header; for ICMP the whole ICMP
// message counts as header. TotalLength is the frame length. The timestamp
// comes from the capture metadata, or is left zero for the ingest sink to stamp.
func ParsePacket(packet gopacket.Packet) (model.PacketRecord, error) {
	rec := model.PacketRecord{SrcPort: model.NoPort, DstPort: model.NoPort}

	meta := packet.Metadata()
	if meta != nil && !meta.Timestamp.IsZero() {
		rec.Timestamp = epochSeconds(meta.Timestamp)
	}
	if meta != nil && meta.Length > 0 {
		rec.TotalLength = meta.Length
	} else {
		rec.TotalLength = len(packet.Data())
	}

	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		rec.SrcAddr, rec.DstAddr = ip.SrcIP.String(), ip.DstIP.String()
		return transport(packet, rec, int(ip.IHL)*4, false)
	}
	if l := packet.Layer(layers.LayerTypeIPv6); l != nil {
		ip := l.(*layers.IPv6)
		rec.SrcAddr, rec.DstAddr = ip.SrcIP.String(), ip.DstIP.String()
		return transport(packet, rec, ipv6HeaderLength, true)
	}
	if l := packet.Layer(layers.LayerTypeARP); l != nil {
		arp := l.(*layers.ARP)
		rec.SrcAddr = net.IP(arp.SourceProtAddress).String()
		rec.DstAddr = net.IP(arp.DstProtAddress).String()
		rec.Protocol = model.ProtocolARP
		rec.HeaderLength = arpHeaderLength
		return rec, nil
	}
	return rec, fmt.Errorf("%w: not an IPv4, IPv6 or ARP frame", model.ErrUnsupportedProtocol)
}

func transport(packet gopacket.Packet, rec model.PacketRecord, ipHeader int, v6 bool) (model.PacketRecord, error) {
	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		rec.SrcPort = model.PortNumber(uint16(tcp.SrcPort))
		rec.DstPort = model.PortNumber(uint16(tcp.DstPort))
		rec.HeaderLength = ipHeader + int(tcp.DataOffset)*4
		rec.Protocol = pick(v6, model.ProtocolTCP, model.ProtocolTCPv6)
		return rec, nil
	}
	if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		rec.SrcPort = model.PortNumber(uint16(udp.SrcPort))
		rec.DstPort = model.PortNumber(uint16(udp.DstPort))
		rec.HeaderLength = ipHeader + udpHeaderLength
		rec.Protocol = pick(v6, model.ProtocolUDP, model.ProtocolUDPv6)
		return rec, nil
	}
	if !v6 {
		if l := packet.Layer(layers.LayerTypeICMPv4); l != nil {
			rec.HeaderLength = ipHeader + len(l.LayerContents()) + len(l.LayerPayload())
			rec.Protocol = model.ProtocolICMP
			return rec, nil
		}
	} else if l := packet.Layer(layers.LayerTypeICMPv6); l != nil {
		rec.HeaderLength = ipHeader + len(l.LayerContents()) + len(l.LayerPayload())
		rec.Protocol = model.ProtocolICMPv6
		return rec, nil
	}
	return rec, fmt.Errorf("%w: unsupported transport from %s to %s", model.ErrUnsupportedProtocol, rec.SrcAddr, rec.DstAddr)
}

func pick(v6 bool, v4Proto, v6Proto model.Protocol) model.Protocol {
	if v6 {
		return v6Proto
	}
	return v4Proto
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
