package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"Go2NetIDS/internal/engine/protocol"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
)

// pcapana prints the packet record each frame of a capture normalizes to.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/pcapana/main.go <path_to_pcap_file>")
		os.Exit(1)
	}
	f, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		log.Fatal(err)
	}
	source := gopacket.NewPacketSource(r, r.LinkType())

	for i := 1; ; i++ {
		packet, err := source.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatal(err)
		}
		rec, err := protocol.ParsePacket(packet)
		if err != nil {
			fmt.Printf("#%d skipped: %v\n", i, err)
			continue
		}
		fmt.Printf("#%d %.6f %-6s %s:%s -> %s:%s hdr=%d len=%d\n",
			i, rec.Timestamp, rec.Protocol, rec.SrcAddr, rec.SrcPort, rec.DstAddr, rec.DstPort, rec.HeaderLength, rec.TotalLength)
	}
}
