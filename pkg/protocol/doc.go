// Package protocol implements the conference (group chat) packet catalog of
// the Tox wire protocol.
//
// Every conference message travels inside a packet whose first byte is the
// conference packet ID (0x63). The packet carries a fixed header followed by a
// one-byte message kind and a kind-specific body.
//
// # Header Format
//
// All multi-byte integers are big-endian:
//   - Packet ID (1 byte): 0x63
//   - Group number (2 bytes): conference the message belongs to
//   - Peer number (2 bytes): sender within the conference
//   - Message number (4 bytes): per-sender sequence number
//   - Kind (1 byte): message kind
//
// The message number is carried as-is. Ordering and duplicate suppression are
// up to the conference state machine; the codec does not check it.
//
// # Message Kinds
//
//   - Ping (0x00): empty body
//   - NewPeer (0x10): new peer number, long term key, DHT key (76 bytes total)
//   - KillPeer (0x11): removed peer number
//   - FreezePeer (0x12): frozen peer number
//   - ChangeName (0x30): sender's new name, rest of packet
//   - ChangeTitle (0x31): conference title, rest of packet
//   - Message (0x40): text message, rest of packet
//   - Action (0x41): action message, rest of packet
//
// # NewPeer Layout
//
//	offset 0      : 0x63
//	offset 1..3   : group number
//	offset 3..5   : peer number
//	offset 5..9   : message number
//	offset 9      : 0x10
//	offset 10..12 : new peer number
//	offset 12..44 : long term public key
//	offset 44..76 : DHT public key
//
// # Decoding
//
// Each packet type implements wire.Codec. Decode is the demultiplexer: it
// picks the packet type from the leading packet ID and the kind byte through
// fixed lookup tables, then runs that type's decoder.
//
//	pkt, n, err := protocol.Decode(frame)
//	if err != nil {
//	    // drop the frame; errors.Is(err, wire.ErrWrongTag) etc.
//	}
//	switch p := pkt.(type) {
//	case *protocol.NewPeer:
//	    // ...
//	}
package protocol
