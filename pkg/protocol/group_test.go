package protocol

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/ZentaChain/zentalk-wire/pkg/crypto"
	"github.com/ZentaChain/zentalk-wire/pkg/wire"
)

func testKey(fill byte) crypto.PublicKey {
	var pk crypto.PublicKey
	for i := range pk {
		pk[i] = fill + byte(i)
	}
	return pk
}

func TestNewPeerEncodeExactBytes(t *testing.T) {
	k1 := testKey(0x10)
	k2 := testKey(0xA0)
	msg := NewPeerMessage(1, 2, 3, 4, k1, k2)

	encoded, err := msg.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}

	want, _ := hex.DecodeString("63" + "0001" + "0002" + "00000003" + "10" + "0004")
	want = append(want, k1[:]...)
	want = append(want, k2[:]...)

	if len(encoded) != NewPeerSize {
		t.Errorf("MarshalBinary() length = %d, want %d", len(encoded), NewPeerSize)
	}
	if !bytes.Equal(encoded, want) {
		t.Errorf("MarshalBinary() = %x, want %x", encoded, want)
	}

	decoded := &NewPeer{}
	if err := decoded.UnmarshalBinary(encoded); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if *decoded != *msg {
		t.Errorf("UnmarshalBinary() = %+v, want %+v", *decoded, *msg)
	}
}

func TestNewPeerSize(t *testing.T) {
	if NewPeerSize != 76 {
		t.Errorf("NewPeerSize = %d, want 76", NewPeerSize)
	}
}

func TestNewPeerEncodeDecode(t *testing.T) {
	k1, _, _ := crypto.GenerateKeyPair()
	k2, _, _ := crypto.GenerateKeyPair()

	tests := []struct {
		name string
		msg  *NewPeer
	}{
		{"small numbers", NewPeerMessage(1, 2, 3, 4, k1, k2)},
		{"zero values", NewPeerMessage(0, 0, 0, 0, crypto.PublicKey{}, crypto.PublicKey{})},
		{"max values", NewPeerMessage(0xFFFF, 0xFFFF, 0xFFFFFFFF, 0xFFFF, k2, k1)},
		{"same keys", NewPeerMessage(7, 8, 9, 10, k1, k1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, NewPeerSize)
			n, err := tt.msg.EncodeTo(buf)
			if err != nil {
				t.Fatalf("EncodeTo() error = %v", err)
			}
			if n != NewPeerSize {
				t.Errorf("EncodeTo() = %d, want %d", n, NewPeerSize)
			}

			decoded := &NewPeer{}
			consumed, err := decoded.DecodeFrom(buf)
			if err != nil {
				t.Fatalf("DecodeFrom() error = %v", err)
			}
			if consumed != NewPeerSize {
				t.Errorf("DecodeFrom() consumed = %d, want %d", consumed, NewPeerSize)
			}
			if *decoded != *tt.msg {
				t.Errorf("DecodeFrom() = %+v, want %+v", *decoded, *tt.msg)
			}
		})
	}
}

func TestNewPeerDecodeWrongTag(t *testing.T) {
	valid, _ := NewPeerMessage(1, 2, 3, 4, testKey(1), testKey(2)).MarshalBinary()

	tests := []struct {
		name   string
		offset int
		value  byte
	}{
		{"outer tag zero", 0, 0x00},
		{"outer tag off by one", 0, 0x64},
		{"inner tag zero", 9, 0x00},
		{"inner tag kill peer", 9, KindTagKillPeer},
		{"inner tag 0xff", 9, 0xFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := append([]byte{}, valid...)
			buf[tt.offset] = tt.value

			decoded := &NewPeer{}
			n, err := decoded.DecodeFrom(buf)
			if !errors.Is(err, wire.ErrWrongTag) {
				t.Fatalf("DecodeFrom() error = %v, want %v", err, wire.ErrWrongTag)
			}
			if n != 0 {
				t.Errorf("DecodeFrom() consumed = %d on failure, want 0", n)
			}
			if *decoded != (NewPeer{}) {
				t.Errorf("DecodeFrom() left partial value %+v", *decoded)
			}
		})
	}
}

func TestNewPeerDecodeTruncated(t *testing.T) {
	valid, _ := NewPeerMessage(1, 2, 3, 4, testKey(1), testKey(2)).MarshalBinary()

	for size := 0; size < NewPeerSize; size++ {
		decoded := &NewPeer{}
		_, err := decoded.DecodeFrom(valid[:size])
		if !errors.Is(err, wire.ErrTruncated) {
			t.Errorf("DecodeFrom(%d bytes) error = %v, want %v", size, err, wire.ErrTruncated)
		}
		if *decoded != (NewPeer{}) {
			t.Errorf("DecodeFrom(%d bytes) left partial value", size)
		}
	}
}

func TestNewPeerDecodeLeavesReceiverOnFailure(t *testing.T) {
	original := NewPeerMessage(9, 9, 9, 9, testKey(9), testKey(9))
	target := *original

	_, err := target.DecodeFrom([]byte{PacketIDConference, 0x00})
	if err == nil {
		t.Fatal("DecodeFrom() error = nil for truncated input")
	}
	if target != *original {
		t.Errorf("DecodeFrom() modified receiver on failure: %+v", target)
	}
}

func TestNewPeerUnmarshalTrailingBytes(t *testing.T) {
	valid, _ := NewPeerMessage(1, 2, 3, 4, testKey(1), testKey(2)).MarshalBinary()
	withExtra := append(append([]byte{}, valid...), 0x00)

	decoded := &NewPeer{}
	err := decoded.UnmarshalBinary(withExtra)
	if !errors.Is(err, wire.ErrTrailingBytes) {
		t.Fatalf("UnmarshalBinary() error = %v, want %v", err, wire.ErrTrailingBytes)
	}
	if *decoded != (NewPeer{}) {
		t.Errorf("UnmarshalBinary() left partial value %+v", *decoded)
	}

	// DecodeFrom is stream oriented and stops at the packet boundary
	n, err := decoded.DecodeFrom(withExtra)
	if err != nil || n != NewPeerSize {
		t.Errorf("DecodeFrom() = %d, %v, want %d, nil", n, err, NewPeerSize)
	}
}

func TestNewPeerEncodeInsufficientCapacity(t *testing.T) {
	msg := NewPeerMessage(1, 2, 3, 4, testKey(1), testKey(2))

	for _, size := range []int{0, 1, 9, 10, 43, 44, NewPeerSize - 1} {
		buf := make([]byte, size)
		n, err := msg.EncodeTo(buf)
		if !errors.Is(err, wire.ErrInsufficientCapacity) {
			t.Errorf("EncodeTo(%d byte buffer) error = %v, want %v", size, err, wire.ErrInsufficientCapacity)
		}
		if n != 0 {
			t.Errorf("EncodeTo(%d byte buffer) = %d, want 0", size, n)
		}
		if !bytes.Equal(buf, make([]byte, size)) {
			t.Errorf("EncodeTo(%d byte buffer) wrote a partial packet", size)
		}
	}
}

func TestNewPeerEncodeDeterministic(t *testing.T) {
	msg := NewPeerMessage(5, 6, 7, 8, testKey(3), testKey(4))
	encoded1, _ := msg.MarshalBinary()
	encoded2, _ := msg.MarshalBinary()
	if !bytes.Equal(encoded1, encoded2) {
		t.Error("MarshalBinary() not deterministic")
	}
}

func TestFixedKindsEncodeDecode(t *testing.T) {
	tests := []struct {
		name    string
		pkt     Packet
		empty   Packet
		size    int
		wantHex string
	}{
		{
			name:    "ping",
			pkt:     NewPing(1, 2, 3),
			empty:   &Ping{},
			size:    PingSize,
			wantHex: "63000100020000000300",
		},
		{
			name:    "kill peer",
			pkt:     NewKillPeer(1, 2, 3, 0x0405),
			empty:   &KillPeer{},
			size:    KillPeerSize,
			wantHex: "630001000200000003110405",
		},
		{
			name:    "freeze peer",
			pkt:     NewFreezePeer(1, 2, 3, 0x0405),
			empty:   &FreezePeer{},
			size:    FreezePeerSize,
			wantHex: "630001000200000003120405",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := wire.Marshal(tt.pkt)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if len(encoded) != tt.size {
				t.Errorf("Marshal() length = %d, want %d", len(encoded), tt.size)
			}
			if got := hex.EncodeToString(encoded); got != tt.wantHex {
				t.Errorf("Marshal() = %s, want %s", got, tt.wantHex)
			}

			if err := wire.Unmarshal(encoded, tt.empty); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if tt.empty.GroupHeader() != tt.pkt.GroupHeader() {
				t.Errorf("header = %+v, want %+v", tt.empty.GroupHeader(), tt.pkt.GroupHeader())
			}

			for size := 0; size < tt.size; size++ {
				if _, err := tt.empty.DecodeFrom(encoded[:size]); !errors.Is(err, wire.ErrTruncated) {
					t.Errorf("DecodeFrom(%d bytes) error = %v, want %v", size, err, wire.ErrTruncated)
				}
			}
		})
	}
}

func TestTextKindsEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		pkt   Packet
		empty Packet
		text  func(Packet) string
	}{
		{"change name", NewChangeName(1, 2, 3, "alice"), &ChangeName{}, func(p Packet) string { return p.(*ChangeName).Name }},
		{"change title", NewChangeTitle(1, 2, 3, "release planning"), &ChangeTitle{}, func(p Packet) string { return p.(*ChangeTitle).Title }},
		{"message", NewMessage(1, 2, 3, "hello, conference"), &Message{}, func(p Packet) string { return p.(*Message).Text }},
		{"action", NewAction(1, 2, 3, "waves"), &Action{}, func(p Packet) string { return p.(*Action).Text }},
		{"empty message", NewMessage(4, 5, 6, ""), &Message{}, func(p Packet) string { return p.(*Message).Text }},
		{"unicode message", NewMessage(4, 5, 6, "héllo wörld ✓"), &Message{}, func(p Packet) string { return p.(*Message).Text }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := wire.Marshal(tt.pkt)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if encoded[HeaderSize-1] != tt.pkt.Kind().Tag() {
				t.Errorf("kind tag = 0x%02x, want 0x%02x", encoded[HeaderSize-1], tt.pkt.Kind().Tag())
			}

			n, err := tt.empty.DecodeFrom(encoded)
			if err != nil {
				t.Fatalf("DecodeFrom() error = %v", err)
			}
			if n != len(encoded) {
				t.Errorf("DecodeFrom() consumed = %d, want %d", n, len(encoded))
			}
			if tt.text(tt.empty) != tt.text(tt.pkt) {
				t.Errorf("text = %q, want %q", tt.text(tt.empty), tt.text(tt.pkt))
			}
		})
	}
}

func TestTextKindsRejectOversized(t *testing.T) {
	long := strings.Repeat("x", MaxMessageLength+1)

	if _, err := wire.Marshal(NewMessage(1, 2, 3, long)); !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("Marshal(oversized message) error = %v, want %v", err, wire.ErrMalformed)
	}
	if _, err := wire.Marshal(NewChangeName(1, 2, 3, long[:MaxNameLength+1])); !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("Marshal(oversized name) error = %v, want %v", err, wire.ErrMalformed)
	}

	// Build the oversized frame by hand, since the encoder refuses to
	header, _ := hex.DecodeString("63000100020000000340")
	frame := append(header, long...)
	if _, err := (&Message{}).DecodeFrom(frame); !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("DecodeFrom(oversized message) error = %v, want %v", err, wire.ErrMalformed)
	}
}

func TestTextKindsRejectInvalidUTF8(t *testing.T) {
	header, _ := hex.DecodeString("63000100020000000330")
	frame := append(header, 0xFF, 0xFE)

	decoded := &ChangeName{}
	if _, err := decoded.DecodeFrom(frame); !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("DecodeFrom() error = %v, want %v", err, wire.ErrMalformed)
	}
	if *decoded != (ChangeName{}) {
		t.Errorf("DecodeFrom() left partial value %+v", *decoded)
	}
}
