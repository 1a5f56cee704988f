package model

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Protocol is the tag of a captured packet. Only the values below are accepted.
type Protocol string

const (
	ProtocolTCP    Protocol = "TCP"
	ProtocolUDP    Protocol = "UDP"
	ProtocolICMP   Protocol = "ICMP"
	ProtocolTCPv6  Protocol = "TCPv6"
	ProtocolUDPv6  Protocol = "UDPv6"
	ProtocolICMPv6 Protocol = "ICMPv6"
	ProtocolARP    Protocol = "ARP"
)

// ParseProtocol maps a textual tag to a Protocol, rejecting anything outside the enumeration.
func ParseProtocol(s string) (Protocol, error) {
	p := Protocol(strings.TrimSpace(s))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProtocol, s)
	}
	return p, nil
}

// Valid reports whether p is one of the supported protocol tags.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolTCP, ProtocolUDP, ProtocolICMP, ProtocolTCPv6, ProtocolUDPv6, ProtocolICMPv6, ProtocolARP:
		return true
	}
	return false
}

// HasPorts reports whether packets of this protocol carry transport ports.
func (p Protocol) HasPorts() bool {
	switch p {
	case ProtocolTCP, ProtocolUDP, ProtocolTCPv6, ProtocolUDPv6:
		return true
	}
	return false
}

// NotApplicable is the textual form of a port on a protocol without ports.
const NotApplicable = "N/A"

// Port is a transport port or the "N/A" sentinel (Valid == false).
type Port struct {
	Number uint16
	Valid  bool
}

// PortNumber returns a valid Port.
func PortNumber(n uint16) Port {
	return Port{Number: n, Valid: true}
}

// NoPort is the sentinel used by ICMP, ICMPv6 and ARP records.
var NoPort = Port{}

// ParsePort accepts a decimal port or "N/A".
func ParsePort(s string) (Port, error) {
	s = strings.TrimSpace(s)
	if s == NotApplicable || s == "" {
		return NoPort, nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return NoPort, fmt.Errorf("invalid port %q: %w", s, err)
	}
	return PortNumber(uint16(n)), nil
}

func (p Port) String() string {
	if !p.Valid {
		return NotApplicable
	}
	return strconv.Itoa(int(p.Number))
}

// Compare orders ports numerically; "N/A" sorts before every number.
func (p Port) Compare(o Port) int {
	switch {
	case !p.Valid && !o.Valid:
		return 0
	case !p.Valid:
		return -1
	case !o.Valid:
		return 1
	case p.Number < o.Number:
		return -1
	case p.Number > o.Number:
		return 1
	}
	return 0
}

// Value stores a port as its textual form so the column can hold "N/A".
func (p Port) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan reads a port column written either as an integer or as "N/A".
func (p *Port) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = NoPort
	case int64:
		if v < 0 || v > math.MaxUint16 {
			return fmt.Errorf("invalid port %d: out of range", v)
		}
		*p = PortNumber(uint16(v))
	case []byte:
		parsed, err := ParsePort(string(v))
		if err != nil {
			return err
		}
		*p = parsed
	case string:
		parsed, err := ParsePort(v)
		if err != nil {
			return err
		}
		*p = parsed
	default:
		return fmt.Errorf("cannot scan %T into Port", src)
	}
	return nil
}

// PacketRecord is one normalized packet observation.
type PacketRecord struct {
	// ID is assigned by the pending store; zero until persisted.
	ID           int64
	Timestamp    float64 // seconds since the epoch
	SrcAddr      string
	DstAddr      string
	SrcPort      Port
	DstPort      Port
	Protocol     Protocol
	HeaderLength int
	TotalLength  int
}

// FlowBucket holds the records of one flow in arrival order.
type FlowBucket struct {
	Key     FlowKey
	Records []PacketRecord
}

// FeatureVector is the per-flow feature row handed to the classifier.
type FeatureVector struct {
	FlowID              string  `json:"flow_id" db:"flow_id"`
	Duration            float64 `json:"flow_duration" db:"flow_duration"`
	BytesPerSecond      float64 `json:"flow_bytes_per_second" db:"flow_bytes_per_second"`
	ForwardHeaderBytes  int64   `json:"forward_header_length" db:"forward_header_length"`
	BackwardHeaderBytes int64   `json:"backward_header_length" db:"backward_header_length"`
	PacketLengthStdDev  float64 `json:"packet_length_std_dev" db:"packet_length_std_dev"`
	PacketLengthMean    float64 `json:"packet_size_avg" db:"packet_size_avg"`
}

// Values returns the numeric features in the column order the classifier expects.
func (f FeatureVector) Values() []float64 {
	return []float64{
		f.Duration,
		f.BytesPerSecond,
		float64(f.ForwardHeaderBytes),
		float64(f.BackwardHeaderBytes),
		f.PacketLengthStdDev,
		f.PacketLengthMean,
	}
}

// Verdict labels.
const (
	LabelNormal = "Normal"
	LabelAttack = "Attack"
)

// Prediction is a classifier verdict for one flow.
type Prediction struct {
	FlowID string `json:"flow_id" db:"flow_id"`
	Label  int    `json:"predicted_label" db:"predicted_label"`
}

// Verdict maps label 0 to "Normal" and everything else to "Attack".
func (p Prediction) Verdict() string {
	return VerdictOf(p.Label)
}

// VerdictOf maps an integer label to its display text.
func VerdictOf(label int) string {
	if label == 0 {
		return LabelNormal
	}
	return LabelAttack
}
