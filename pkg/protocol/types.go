package protocol

import "fmt"

// Packet IDs
const (
	PacketIDConference byte = 0x63
)

// Conference message kind tags
const (
	KindTagPing        byte = 0x00
	KindTagNewPeer     byte = 0x10
	KindTagKillPeer    byte = 0x11
	KindTagFreezePeer  byte = 0x12
	KindTagChangeName  byte = 0x30
	KindTagChangeTitle byte = 0x31
	KindTagMessage     byte = 0x40
	KindTagAction      byte = 0x41
)

// Length limits for variable-size bodies
const (
	MaxNameLength    = 128
	MaxTitleLength   = 128
	MaxMessageLength = 1372
)

// Kind identifies a packet type by its packet ID (high byte) and message kind
// tag (low byte).
type Kind uint16

// Conference message kinds
const (
	KindPing        = Kind(uint16(PacketIDConference)<<8 | uint16(KindTagPing))
	KindNewPeer     = Kind(uint16(PacketIDConference)<<8 | uint16(KindTagNewPeer))
	KindKillPeer    = Kind(uint16(PacketIDConference)<<8 | uint16(KindTagKillPeer))
	KindFreezePeer  = Kind(uint16(PacketIDConference)<<8 | uint16(KindTagFreezePeer))
	KindChangeName  = Kind(uint16(PacketIDConference)<<8 | uint16(KindTagChangeName))
	KindChangeTitle = Kind(uint16(PacketIDConference)<<8 | uint16(KindTagChangeTitle))
	KindMessage     = Kind(uint16(PacketIDConference)<<8 | uint16(KindTagMessage))
	KindAction      = Kind(uint16(PacketIDConference)<<8 | uint16(KindTagAction))
)

var kindNames = map[Kind]string{
	KindPing:        "ping",
	KindNewPeer:     "new_peer",
	KindKillPeer:    "kill_peer",
	KindFreezePeer:  "freeze_peer",
	KindChangeName:  "change_name",
	KindChangeTitle: "change_title",
	KindMessage:     "message",
	KindAction:      "action",
}

// PacketID returns the leading packet ID byte
func (k Kind) PacketID() byte {
	return byte(k >> 8)
}

// Tag returns the message kind tag byte
func (k Kind) Tag() byte {
	return byte(k)
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(0x%02x/0x%02x)", k.PacketID(), k.Tag())
}
