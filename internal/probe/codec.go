package probe

import (
	"fmt"
	"math"

	"Go2NetIDS/internal/model"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the PacketRecord wire message:
//
//	message PacketRecord {
//	  double timestamp     = 1;
//	  string src_addr      = 2;
//	  string dst_addr      = 3;
//	  optional uint32 src_port = 4;  // absent means N/A
//	  optional uint32 dst_port = 5;
//	  string protocol      = 6;
//	  uint32 header_length = 7;
//	  uint32 total_length  = 8;
//	}
const (
	fieldTimestamp    protowire.Number = 1
	fieldSrcAddr      protowire.Number = 2
	fieldDstAddr      protowire.Number = 3
	fieldSrcPort      protowire.Number = 4
	fieldDstPort      protowire.Number = 5
	fieldProtocol     protowire.Number = 6
	fieldHeaderLength protowire.Number = 7
	fieldTotalLength  protowire.Number = 8
)

// MarshalRecord encodes a PacketRecord in protobuf wire format. The store id is not sent.
func MarshalRecord(rec model.PacketRecord) []byte {
	b := make([]byte, 0, 64)
	b = protowire.AppendTag(b, fieldTimestamp, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(rec.Timestamp))
	b = protowire.AppendTag(b, fieldSrcAddr, protowire.BytesType)
	b = protowire.AppendString(b, rec.SrcAddr)
	b = protowire.AppendTag(b, fieldDstAddr, protowire.BytesType)
	b = protowire.AppendString(b, rec.DstAddr)
	if rec.SrcPort.Valid {
		b = protowire.AppendTag(b, fieldSrcPort, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(rec.SrcPort.Number))
	}
	if rec.DstPort.Valid {
		b = protowire.AppendTag(b, fieldDstPort, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(rec.DstPort.Number))
	}
	b = protowire.AppendTag(b, fieldProtocol, protowire.BytesType)
	b = protowire.AppendString(b, string(rec.Protocol))
	b = protowire.AppendTag(b, fieldHeaderLength, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(rec.HeaderLength))
	b = protowire.AppendTag(b, fieldTotalLength, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(rec.TotalLength))
	return b
}

// UnmarshalRecord decodes a PacketRecord. Unknown fields are skipped. The
// protocol tag is not validated here; the ingest sink rejects bad tags.
func UnmarshalRecord(b []byte) (model.PacketRecord, error) {
	var rec model.PacketRecord
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return rec, fmt.Errorf("decode tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldTimestamp && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return rec, fmt.Errorf("decode timestamp: %w", protowire.ParseError(n))
			}
			rec.Timestamp = math.Float64frombits(v)
			b = b[n:]
		case (num == fieldSrcAddr || num == fieldDstAddr || num == fieldProtocol) && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return rec, fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
			}
			switch num {
			case fieldSrcAddr:
				rec.SrcAddr = v
			case fieldDstAddr:
				rec.DstAddr = v
			default:
				rec.Protocol = model.Protocol(v)
			}
			b = b[n:]
		case num >= fieldSrcPort && num <= fieldTotalLength && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return rec, fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldSrcPort, fieldDstPort:
				if v > math.MaxUint16 {
					return rec, fmt.Errorf("port %d out of range", v)
				}
				if num == fieldSrcPort {
					rec.SrcPort = model.PortNumber(uint16(v))
				} else {
					rec.DstPort = model.PortNumber(uint16(v))
				}
			case fieldHeaderLength:
				rec.HeaderLength = int(v)
			case fieldTotalLength:
				rec.TotalLength = int(v)
			default:
				// Field 6 sent as a varint; ignore.
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return rec, fmt.Errorf("skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return rec, nil
}
