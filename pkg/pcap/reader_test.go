package pcap

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Go2NetIDS/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, ls...))
	return buf.Bytes()
}

func writeCapture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
		DstMAC:       net.HardwareAddr{6, 7, 8, 9, 10, 11},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP,
		SrcIP: net.ParseIP("10.0.0.1").To4(), DstIP: net.ParseIP("10.0.0.2").To4()}
	frames := [][]byte{
		frame(t, eth, ip, &layers.UDP{SrcPort: 5000, DstPort: 53}, gopacket.Payload(make([]byte, 20))),
		frame(t, &layers.Ethernet{SrcMAC: eth.SrcMAC, DstMAC: eth.DstMAC, EthernetType: layers.EthernetType(0x88b5)}, gopacket.Payload(make([]byte, 46))),
		frame(t, eth, ip, &layers.UDP{SrcPort: 5000, DstPort: 53}, gopacket.Payload(make([]byte, 40))),
	}
	start := time.Unix(1700000000, 0)
	for i, data := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     start.Add(time.Duration(i) * time.Second),
			CaptureLength: len(data),
			Length:        len(data),
		}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return path
}

func TestReader_ReadRecords(t *testing.T) {
	reader, err := NewReader(writeCapture(t))
	require.NoError(t, err)
	defer reader.Close()

	out := make(chan model.PacketRecord, 8)
	stats, err := reader.ReadRecords(out)
	require.NoError(t, err)
	assert.Equal(t, Stats{Parsed: 2, Skipped: 1}, stats)

	var recs []model.PacketRecord
	for rec := range out {
		recs = append(recs, rec)
	}
	require.Len(t, recs, 2)
	assert.Equal(t, 1700000000.0, recs[0].Timestamp)
	assert.Equal(t, 1700000002.0, recs[1].Timestamp)
	assert.Equal(t, model.ProtocolUDP, recs[0].Protocol)
	assert.Equal(t, 28, recs[0].HeaderLength)
	assert.Equal(t, 14+20+8+40, recs[1].TotalLength)
}

func TestNewReader_MissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Error(t, err)
}
