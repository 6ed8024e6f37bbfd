package protocol

import (
	"fmt"
	"sort"

	"github.com/ZentaChain/zentalk-wire/pkg/wire"
)

// ErrUnknownPacket is returned by Decode for a packet ID or message kind with
// no registered decoder. It matches wire.ErrWrongTag.
var ErrUnknownPacket = fmt.Errorf("unknown packet: %w", wire.ErrWrongTag)

// Packet is implemented by every conference message type
type Packet interface {
	wire.Codec
	Kind() Kind
	GroupHeader() Header
}

type decodeFunc func(buf []byte) (Packet, int, error)

// packetTable maps the leading packet ID to the decoder for that family
var packetTable = [256]decodeFunc{
	PacketIDConference: decodeConference,
}

// conferenceTable maps the conference kind tag to a constructor for that type
var conferenceTable = [256]func() Packet{
	KindTagPing:        func() Packet { return &Ping{} },
	KindTagNewPeer:     func() Packet { return &NewPeer{} },
	KindTagKillPeer:    func() Packet { return &KillPeer{} },
	KindTagFreezePeer:  func() Packet { return &FreezePeer{} },
	KindTagChangeName:  func() Packet { return &ChangeName{} },
	KindTagChangeTitle: func() Packet { return &ChangeTitle{} },
	KindTagMessage:     func() Packet { return &Message{} },
	KindTagAction:      func() Packet { return &Action{} },
}

// Decode decodes one packet from the front of buf and returns it together with
// the number of bytes consumed.
func Decode(buf []byte) (Packet, int, error) {
	if len(buf) == 0 {
		return nil, 0, fmt.Errorf("%w: empty packet", wire.ErrTruncated)
	}
	decode := packetTable[buf[0]]
	if decode == nil {
		return nil, 0, fmt.Errorf("%w: packet id 0x%02x", ErrUnknownPacket, buf[0])
	}
	return decode(buf)
}

func decodeConference(buf []byte) (Packet, int, error) {
	if len(buf) < HeaderSize {
		return nil, 0, fmt.Errorf("%w: conference header needs %d bytes, have %d", wire.ErrTruncated, HeaderSize, len(buf))
	}
	tag := buf[HeaderSize-1]
	newPacket := conferenceTable[tag]
	if newPacket == nil {
		return nil, 0, fmt.Errorf("%w: conference kind 0x%02x", ErrUnknownPacket, tag)
	}
	pkt := newPacket()
	n, err := pkt.DecodeFrom(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", pkt.Kind(), err)
	}
	return pkt, n, nil
}

// Encode encodes pkt into a new slice
func Encode(pkt Packet) ([]byte, error) {
	return wire.Marshal(pkt)
}

// Kinds returns every kind Decode understands, in tag order
func Kinds() []Kind {
	var kinds []Kind
	for id, decode := range packetTable {
		if decode == nil || byte(id) != PacketIDConference {
			continue
		}
		for tag, newPacket := range conferenceTable {
			if newPacket != nil {
				kinds = append(kinds, Kind(uint16(id)<<8|uint16(tag)))
			}
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
