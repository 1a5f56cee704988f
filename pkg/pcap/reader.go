package pcap

import (
	"errors"
	"io"
	"os"

	"Go2NetIDS/internal/engine/protocol"
	"Go2NetIDS/internal/logger"
	"Go2NetIDS/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
)

// Stats counts the frames seen by one replay.
type Stats struct {
	Parsed  int
	Skipped int
}

// Reader replays packets from a pcap file.
type Reader struct {
	file   *os.File
	reader *pcapgo.Reader
}

// NewReader creates a new pcap reader for the given file path.
func NewReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	reader, err := pcapgo.NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &Reader{file: file, reader: reader}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() {
	r.file.Close()
}

// ReadRecords parses every frame and sends the resulting PacketRecord to out.
// Frames the parser rejects are logged and skipped. It closes out when done.
func (r *Reader) ReadRecords(out chan<- model.PacketRecord) (Stats, error) {
	defer close(out)

	var stats Stats
	source := gopacket.NewPacketSource(r.reader, r.reader.LinkType())
	for {
		packet, err := source.NextPacket()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		rec, err := protocol.ParsePacket(packet)
		if err != nil {
			stats.Skipped++
			logger.WithComponent("pcap").WithError(err).Debug("Error parsing packet")
			continue
		}
		stats.Parsed++
		out <- rec
	}
}
