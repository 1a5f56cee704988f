package main

import (
	"flag"
	"log"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var (
	clientMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	serverMAC = net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA}
)

type generator struct {
	w   *pcapgo.Writer
	now time.Time
	n   int
}

func (g *generator) write(ls ...gopacket.SerializableLayer) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		log.Fatalf("Failed to serialize layers: %v", err)
	}
	g.now = g.now.Add(time.Duration(rand.Intn(5000)+100) * time.Microsecond)
	ci := gopacket.CaptureInfo{Timestamp: g.now, CaptureLength: len(buf.Bytes()), Length: len(buf.Bytes())}
	if err := g.w.WritePacket(ci, buf.Bytes()); err != nil {
		log.Fatalf("Failed to write packet: %v", err)
	}
	g.n++
}

func ipv4(src, dst net.IP, proto layers.IPProtocol) *layers.IPv4 {
	return &layers.IPv4{SrcIP: src, DstIP: dst, Version: 4, TTL: 64, Protocol: proto}
}

func payload(n int) gopacket.Payload {
	p := make([]byte, n)
	rand.Read(p)
	return p
}

// tcpSession writes an exchange of data segments in both directions.
func (g *generator) tcpSession(client, server net.IP, cport, sport layers.TCPPort, segments int) {
	eth := &layers.Ethernet{SrcMAC: clientMAC, DstMAC: serverMAC, EthernetType: layers.EthernetTypeIPv4}
	for i := 0; i < segments; i++ {
		src, dst, sp, dp := client, server, cport, sport
		if i%2 == 1 {
			src, dst, sp, dp = server, client, sport, cport
		}
		ip := ipv4(src, dst, layers.IPProtocolTCP)
		tcp := &layers.TCP{SrcPort: sp, DstPort: dp, Seq: rand.Uint32(), ACK: i > 0, SYN: i == 0, Window: 14600}
		tcp.SetNetworkLayerForChecksum(ip)
		g.write(eth, ip, tcp, payload(rand.Intn(1400)+50))
	}
}

func (g *generator) dnsQuery(client, resolver net.IP) {
	eth := &layers.Ethernet{SrcMAC: clientMAC, DstMAC: serverMAC, EthernetType: layers.EthernetTypeIPv4}
	port := layers.UDPPort(rand.Intn(65535-1024) + 1024)
	for i, pair := range [][2]net.IP{{client, resolver}, {resolver, client}} {
		ip := ipv4(pair[0], pair[1], layers.IPProtocolUDP)
		udp := &layers.UDP{SrcPort: port, DstPort: 53}
		if i == 1 {
			udp.SrcPort, udp.DstPort = 53, port
		}
		udp.SetNetworkLayerForChecksum(ip)
		g.write(eth, ip, udp, payload(40+i*60))
	}
}

func (g *generator) ping(src, dst net.IP) {
	eth := &layers.Ethernet{SrcMAC: clientMAC, DstMAC: serverMAC, EthernetType: layers.EthernetTypeIPv4}
	id := uint16(rand.Intn(65535))
	for i, tc := range []uint8{layers.ICMPv4TypeEchoRequest, layers.ICMPv4TypeEchoReply} {
		from, to := src, dst
		if i == 1 {
			from, to = dst, src
		}
		g.write(eth, ipv4(from, to, layers.IPProtocolICMPv4),
			&layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(tc, 0), Id: id, Seq: 1}, payload(56))
	}
}

func (g *generator) arp(src, dst net.IP) {
	g.write(
		&layers.Ethernet{SrcMAC: clientMAC, DstMAC: layers.EthernetBroadcast, EthernetType: layers.EthernetTypeARP},
		&layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   clientMAC,
			SourceProtAddress: src.To4(),
			DstHwAddress:      make([]byte, 6),
			DstProtAddress:    dst.To4(),
		},
	)
}

// flood writes a burst of large one-way UDP datagrams.
func (g *generator) flood(src, dst net.IP, count int) {
	eth := &layers.Ethernet{SrcMAC: clientMAC, DstMAC: serverMAC, EthernetType: layers.EthernetTypeIPv4}
	for i := 0; i < count; i++ {
		ip := ipv4(src, dst, layers.IPProtocolUDP)
		udp := &layers.UDP{SrcPort: 4444, DstPort: 80}
		udp.SetNetworkLayerForChecksum(ip)
		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
		if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, payload(1400)); err != nil {
			log.Fatalf("Failed to serialize layers: %v", err)
		}
		g.now = g.now.Add(10 * time.Microsecond)
		ci := gopacket.CaptureInfo{Timestamp: g.now, CaptureLength: len(buf.Bytes()), Length: len(buf.Bytes())}
		if err := g.w.WritePacket(ci, buf.Bytes()); err != nil {
			log.Fatalf("Failed to write packet: %v", err)
		}
		g.n++
	}
}

func randomHost() net.IP {
	return net.IP{10, 0, byte(rand.Intn(4)), byte(rand.Intn(250) + 2)}
}

func main() {
	outputFile := flag.String("o", "test.pcap", "Output pcap file path")
	sessions := flag.Int("s", 200, "Number of conversations to generate")
	floodPackets := flag.Int("flood", 500, "Packets in the simulated UDP flood (0 disables it)")
	flag.Parse()

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	pcapWriter := pcapgo.NewWriter(f)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}

	g := &generator{w: pcapWriter, now: time.Now()}
	server := net.IP{10, 0, 100, 1}
	resolver := net.IP{10, 0, 100, 53}

	log.Printf("Generating %d conversations into %s...", *sessions, *outputFile)
	for i := 0; i < *sessions; i++ {
		client := randomHost()
		switch rand.Intn(10) {
		case 0:
			g.ping(client, server)
		case 1:
			g.arp(client, server)
		case 2, 3:
			g.dnsQuery(client, resolver)
		default:
			cport := layers.TCPPort(rand.Intn(65535-1024) + 1024)
			g.tcpSession(client, server, cport, 443, rand.Intn(20)+2)
		}
	}
	if *floodPackets > 0 {
		g.flood(net.IP{10, 0, 9, 9}, server, *floodPackets)
	}

	log.Printf("Successfully generated %d packets into %s.", g.n, *outputFile)
}
