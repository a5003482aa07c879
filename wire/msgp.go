package wire

import (
	"github.com/tinylib/msgp/msgp"
)

// MarshalMsg implements msgp.Marshaler. Hand-written rather than
// generated: CallstackSampleMsg is the one event type worth a compact
// independent encoding (for e.g. spooling samples to disk), and a single
// struct doesn't justify pulling in the code-generation tool.
func (z *CallstackSampleMsg) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	// map header, size 5
	o = append(o, 0x85)
	// string "TimestampNs"
	o = append(o, 0xab, 0x54, 0x69, 0x6d, 0x65, 0x73, 0x74, 0x61, 0x6d, 0x70, 0x4e, 0x73)
	o = msgp.AppendInt64(o, z.TimestampNs)
	// string "TID"
	o = append(o, 0xa3, 0x54, 0x49, 0x44)
	o = msgp.AppendUint32(o, z.TID)
	// string "HasKey"
	o = append(o, 0xa6, 0x48, 0x61, 0x73, 0x4b, 0x65, 0x79)
	o = msgp.AppendBool(o, z.HasKey)
	// string "CallstackKey"
	o = append(o, 0xac, 0x43, 0x61, 0x6c, 0x6c, 0x73, 0x74, 0x61, 0x63, 0x6b, 0x4b, 0x65, 0x79)
	o = msgp.AppendUint64(o, z.CallstackKey)
	// string "PCs"
	o = append(o, 0xa3, 0x50, 0x43, 0x73)
	o = msgp.AppendArrayHeader(o, uint32(len(z.PCs)))
	for i := range z.PCs {
		o = msgp.AppendUint64(o, z.PCs[i])
	}
	return
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *CallstackSampleMsg) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	_ = field
	var n uint32
	n, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return
	}
	for n > 0 {
		n--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return
		}
		switch msgp.UnsafeString(field) {
		case "TimestampNs":
			z.TimestampNs, bts, err = msgp.ReadInt64Bytes(bts)
		case "TID":
			z.TID, bts, err = msgp.ReadUint32Bytes(bts)
		case "HasKey":
			z.HasKey, bts, err = msgp.ReadBoolBytes(bts)
		case "CallstackKey":
			z.CallstackKey, bts, err = msgp.ReadUint64Bytes(bts)
		case "PCs":
			var arrN uint32
			arrN, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				return
			}
			if cap(z.PCs) >= int(arrN) {
				z.PCs = z.PCs[:arrN]
			} else {
				z.PCs = make([]uint64, arrN)
			}
			for i := range z.PCs {
				z.PCs[i], bts, err = msgp.ReadUint64Bytes(bts)
				if err != nil {
					return
				}
			}
			continue
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound on the encoded size of z.
func (z *CallstackSampleMsg) Msgsize() (s int) {
	s = 1 + 12 + msgp.Int64Size + 4 + msgp.Uint32Size + 7 + msgp.BoolSize +
		13 + msgp.Uint64Size + 4 + msgp.ArrayHeaderSize + len(z.PCs)*msgp.Uint64Size
	return
}
