package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"log"
	"reflect"

	"github.com/xfxdev/xtcp"
)

// ProtocolVersion is the capture streaming protocol's version string,
// exchanged during connection setup.
const ProtocolVersion = "1"

func isCompatibleVersion(version string) bool {
	return version == ProtocolVersion
}

// PacketType tags which concrete packet a HeaderPacket precedes.
type PacketType uint64

const (
	UnknownPacketType PacketType = iota
	CaptureRequestPacketType
	CaptureResponsePacketType
	PingPacketType
	ShutdownPacketType
)

func detectPacketType(p xtcp.Packet) PacketType {
	if reflect.TypeOf(p).Kind() == reflect.Ptr {
		p = reflect.ValueOf(p).Elem().Interface().(xtcp.Packet)
	}
	switch p.(type) {
	case CaptureRequestPacket:
		return CaptureRequestPacketType
	case CaptureResponsePacket:
		return CaptureResponsePacketType
	case PingPacket:
		return PingPacketType
	case ShutdownPacket:
		return ShutdownPacketType
	default:
		return UnknownPacketType
	}
}

func createPacket(t PacketType) xtcp.Packet {
	switch t {
	case CaptureRequestPacketType:
		return &CaptureRequestPacket{}
	case CaptureResponsePacketType:
		return &CaptureResponsePacket{}
	case PingPacketType:
		return &PingPacket{}
	case ShutdownPacketType:
		return &ShutdownPacket{}
	default:
		return nil
	}
}

// HeaderPacket precedes every gob-encoded payload so Unpack knows which
// concrete type to decode into.
type HeaderPacket struct {
	PacketType PacketType
}

// Proto frames a gob-encoded [HeaderPacket][Payload] pair behind a 4-byte
// big-endian length prefix: [size uint32][HeaderPacket][Payload].
type Proto struct{}

func (pr Proto) PackSize(p xtcp.Packet) int {
	b, err := pr.Pack(p)
	if err != nil {
		log.Panic(err)
	}
	return len(b)
}

func (pr Proto) PackTo(p xtcp.Packet, w io.Writer) (int, error) {
	b, err := pr.Pack(p)
	if err != nil {
		return 0, err
	}
	return w.Write(b)
}

func (pr Proto) Pack(p xtcp.Packet) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0}) // reserve space for the size prefix

	enc := gob.NewEncoder(&buf)
	hp := HeaderPacket{PacketType: detectPacketType(p)}
	if err := enc.Encode(&hp); err != nil {
		return nil, fmt.Errorf("wire: encoding header: %w", err)
	}
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("wire: encoding payload: %w", err)
	}

	b := buf.Bytes()
	binary.BigEndian.PutUint32(b[:4], uint32(len(b)-4))
	return b, nil
}

func (pr Proto) Unpack(b []byte) (xtcp.Packet, int, error) {
	if len(b) < 4 {
		return nil, 0, nil
	}
	size := int(binary.BigEndian.Uint32(b[:4]))
	if len(b[4:]) < size {
		return nil, 0, nil
	}

	var buf bytes.Buffer
	buf.Write(b[4 : 4+size])
	dec := gob.NewDecoder(&buf)

	var hp HeaderPacket
	if err := dec.Decode(&hp); err != nil {
		return nil, size, fmt.Errorf("wire: decoding header: %w", err)
	}

	p := createPacket(hp.PacketType)
	if p == nil {
		return nil, size, fmt.Errorf("wire: unknown packet type %d", hp.PacketType)
	}
	if err := dec.Decode(p); err != nil {
		return nil, size, fmt.Errorf("wire: decoding payload: %w", err)
	}
	return p, size, nil
}
