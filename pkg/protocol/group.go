package protocol

import (
	"fmt"
	"unicode/utf8"

	"github.com/ZentaChain/zentalk-wire/pkg/crypto"
	"github.com/ZentaChain/zentalk-wire/pkg/wire"
)

// HeaderSize is the size of the conference header including the packet ID and
// the kind tag.
const HeaderSize = 1 + 2 + 2 + 4 + 1

// Packet sizes for the fixed-size kinds
const (
	PingSize       = HeaderSize
	NewPeerSize    = HeaderSize + 2 + crypto.PublicKeySize + crypto.PublicKeySize
	KillPeerSize   = HeaderSize + 2
	FreezePeerSize = HeaderSize + 2
)

// Header holds the fields shared by every conference message
type Header struct {
	GroupNumber   uint16 `json:"group"`          // Conference the message belongs to
	PeerNumber    uint16 `json:"peer"`           // Sender within the conference
	MessageNumber uint32 `json:"message_number"` // Per-sender sequence number, not validated here
}

// GroupHeader returns the shared header. It is promoted to every message type.
func (h Header) GroupHeader() Header {
	return h
}

func (h Header) encode(w *wire.Writer, kind Kind) error {
	if err := w.PutTag(kind.PacketID()); err != nil {
		return err
	}
	if err := w.PutUint16(h.GroupNumber); err != nil {
		return err
	}
	if err := w.PutUint16(h.PeerNumber); err != nil {
		return err
	}
	if err := w.PutUint32(h.MessageNumber); err != nil {
		return err
	}
	return w.PutTag(kind.Tag())
}

func decodeHeader(r *wire.Reader, kind Kind) (Header, error) {
	var h Header
	if err := r.Tag(kind.PacketID()); err != nil {
		return Header{}, err
	}
	groupNumber, err := r.Uint16()
	if err != nil {
		return Header{}, err
	}
	peerNumber, err := r.Uint16()
	if err != nil {
		return Header{}, err
	}
	messageNumber, err := r.Uint32()
	if err != nil {
		return Header{}, err
	}
	if err := r.Tag(kind.Tag()); err != nil {
		return Header{}, err
	}
	h.GroupNumber = groupNumber
	h.PeerNumber = peerNumber
	h.MessageNumber = messageNumber
	return h, nil
}

// ===== PING =====

// Ping keeps a conference connection alive
type Ping struct {
	Header
}

// NewPing creates a ping message
func NewPing(groupNumber, peerNumber uint16, messageNumber uint32) *Ping {
	return &Ping{Header: Header{groupNumber, peerNumber, messageNumber}}
}

func (p *Ping) Kind() Kind      { return KindPing }
func (p *Ping) EncodedLen() int { return PingSize }

// EncodeTo encodes the ping into buf
func (p *Ping) EncodeTo(buf []byte) (int, error) {
	w := wire.NewWriter(buf)
	if err := w.Reserve(PingSize); err != nil {
		return 0, err
	}
	if err := p.Header.encode(w, KindPing); err != nil {
		return 0, err
	}
	return w.Offset(), nil
}

// DecodeFrom decodes a ping from buf
func (p *Ping) DecodeFrom(buf []byte) (int, error) {
	r := wire.NewReader(buf)
	h, err := decodeHeader(r, KindPing)
	if err != nil {
		return 0, err
	}
	*p = Ping{Header: h}
	return r.Offset(), nil
}

func (p *Ping) MarshalBinary() ([]byte, error)    { return wire.Marshal(p) }
func (p *Ping) UnmarshalBinary(data []byte) error { return unmarshalInto(data, p) }

// ===== NEW PEER =====

// NewPeer tells everyone in a conference about a peer that just joined. The
// peer who invited the joining peer sends it.
type NewPeer struct {
	Header
	NewPeerNumber uint16           `json:"new_peer"`     // Number assigned to the joining peer
	LongTermPK    crypto.PublicKey `json:"long_term_pk"` // Joining peer's long term identity key
	DHTPK         crypto.PublicKey `json:"dht_pk"`       // Joining peer's DHT key
}

// NewPeerMessage creates a new peer announcement. The fixed-width field types
// already bound every value, so nothing is validated.
func NewPeerMessage(groupNumber, peerNumber uint16, messageNumber uint32, newPeerNumber uint16, longTermPK, dhtPK crypto.PublicKey) *NewPeer {
	return &NewPeer{
		Header:        Header{groupNumber, peerNumber, messageNumber},
		NewPeerNumber: newPeerNumber,
		LongTermPK:    longTermPK,
		DHTPK:         dhtPK,
	}
}

func (p *NewPeer) Kind() Kind      { return KindNewPeer }
func (p *NewPeer) EncodedLen() int { return NewPeerSize }

// EncodeTo encodes the announcement into buf
func (p *NewPeer) EncodeTo(buf []byte) (int, error) {
	w := wire.NewWriter(buf)
	if err := w.Reserve(NewPeerSize); err != nil {
		return 0, err
	}
	if err := p.Header.encode(w, KindNewPeer); err != nil {
		return 0, err
	}
	if err := w.PutUint16(p.NewPeerNumber); err != nil {
		return 0, err
	}
	if err := w.Encode(p.LongTermPK); err != nil {
		return 0, err
	}
	if err := w.Encode(p.DHTPK); err != nil {
		return 0, err
	}
	return w.Offset(), nil
}

// DecodeFrom decodes an announcement from buf
func (p *NewPeer) DecodeFrom(buf []byte) (int, error) {
	r := wire.NewReader(buf)
	h, err := decodeHeader(r, KindNewPeer)
	if err != nil {
		return 0, err
	}
	newPeerNumber, err := r.Uint16()
	if err != nil {
		return 0, err
	}
	var longTermPK, dhtPK crypto.PublicKey
	if err := r.Decode(&longTermPK); err != nil {
		return 0, fmt.Errorf("long term key: %w", err)
	}
	if err := r.Decode(&dhtPK); err != nil {
		return 0, fmt.Errorf("dht key: %w", err)
	}
	*p = NewPeer{
		Header:        h,
		NewPeerNumber: newPeerNumber,
		LongTermPK:    longTermPK,
		DHTPK:         dhtPK,
	}
	return r.Offset(), nil
}

func (p *NewPeer) MarshalBinary() ([]byte, error)    { return wire.Marshal(p) }
func (p *NewPeer) UnmarshalBinary(data []byte) error { return unmarshalInto(data, p) }

// ===== KILL PEER =====

// KillPeer announces that a peer left the conference
type KillPeer struct {
	Header
	KillPeerNumber uint16 `json:"kill_peer"` // Peer being removed
}

// NewKillPeer creates a kill peer message
func NewKillPeer(groupNumber, peerNumber uint16, messageNumber uint32, killPeerNumber uint16) *KillPeer {
	return &KillPeer{
		Header:         Header{groupNumber, peerNumber, messageNumber},
		KillPeerNumber: killPeerNumber,
	}
}

func (p *KillPeer) Kind() Kind      { return KindKillPeer }
func (p *KillPeer) EncodedLen() int { return KillPeerSize }

func (p *KillPeer) EncodeTo(buf []byte) (int, error) {
	return encodePeerNumber(buf, p.Header, KindKillPeer, p.KillPeerNumber)
}

func (p *KillPeer) DecodeFrom(buf []byte) (int, error) {
	h, number, n, err := decodePeerNumber(buf, KindKillPeer)
	if err != nil {
		return 0, err
	}
	*p = KillPeer{Header: h, KillPeerNumber: number}
	return n, nil
}

func (p *KillPeer) MarshalBinary() ([]byte, error)    { return wire.Marshal(p) }
func (p *KillPeer) UnmarshalBinary(data []byte) error { return unmarshalInto(data, p) }

// ===== FREEZE PEER =====

// FreezePeer announces that a peer went offline but may come back
type FreezePeer struct {
	Header
	FrozenPeerNumber uint16 `json:"frozen_peer"` // Peer being frozen
}

// NewFreezePeer creates a freeze peer message
func NewFreezePeer(groupNumber, peerNumber uint16, messageNumber uint32, frozenPeerNumber uint16) *FreezePeer {
	return &FreezePeer{
		Header:           Header{groupNumber, peerNumber, messageNumber},
		FrozenPeerNumber: frozenPeerNumber,
	}
}

func (p *FreezePeer) Kind() Kind      { return KindFreezePeer }
func (p *FreezePeer) EncodedLen() int { return FreezePeerSize }

func (p *FreezePeer) EncodeTo(buf []byte) (int, error) {
	return encodePeerNumber(buf, p.Header, KindFreezePeer, p.FrozenPeerNumber)
}

func (p *FreezePeer) DecodeFrom(buf []byte) (int, error) {
	h, number, n, err := decodePeerNumber(buf, KindFreezePeer)
	if err != nil {
		return 0, err
	}
	*p = FreezePeer{Header: h, FrozenPeerNumber: number}
	return n, nil
}

func (p *FreezePeer) MarshalBinary() ([]byte, error)    { return wire.Marshal(p) }
func (p *FreezePeer) UnmarshalBinary(data []byte) error { return unmarshalInto(data, p) }

func encodePeerNumber(buf []byte, h Header, kind Kind, number uint16) (int, error) {
	w := wire.NewWriter(buf)
	if err := w.Reserve(HeaderSize + 2); err != nil {
		return 0, err
	}
	if err := h.encode(w, kind); err != nil {
		return 0, err
	}
	if err := w.PutUint16(number); err != nil {
		return 0, err
	}
	return w.Offset(), nil
}

func decodePeerNumber(buf []byte, kind Kind) (Header, uint16, int, error) {
	r := wire.NewReader(buf)
	h, err := decodeHeader(r, kind)
	if err != nil {
		return Header{}, 0, 0, err
	}
	number, err := r.Uint16()
	if err != nil {
		return Header{}, 0, 0, err
	}
	return h, number, r.Offset(), nil
}

// ===== CHANGE NAME =====

// ChangeName carries the sender's new nickname
type ChangeName struct {
	Header
	Name string `json:"name"`
}

// NewChangeName creates a change name message
func NewChangeName(groupNumber, peerNumber uint16, messageNumber uint32, name string) *ChangeName {
	return &ChangeName{Header: Header{groupNumber, peerNumber, messageNumber}, Name: name}
}

func (p *ChangeName) Kind() Kind      { return KindChangeName }
func (p *ChangeName) EncodedLen() int { return HeaderSize + len(p.Name) }

func (p *ChangeName) EncodeTo(buf []byte) (int, error) {
	return encodeText(buf, p.Header, KindChangeName, p.Name, MaxNameLength)
}

func (p *ChangeName) DecodeFrom(buf []byte) (int, error) {
	h, name, n, err := decodeText(buf, KindChangeName, MaxNameLength)
	if err != nil {
		return 0, err
	}
	*p = ChangeName{Header: h, Name: name}
	return n, nil
}

func (p *ChangeName) MarshalBinary() ([]byte, error)    { return wire.Marshal(p) }
func (p *ChangeName) UnmarshalBinary(data []byte) error { return unmarshalInto(data, p) }

// ===== CHANGE TITLE =====

// ChangeTitle sets the conference title
type ChangeTitle struct {
	Header
	Title string `json:"title"`
}

// NewChangeTitle creates a change title message
func NewChangeTitle(groupNumber, peerNumber uint16, messageNumber uint32, title string) *ChangeTitle {
	return &ChangeTitle{Header: Header{groupNumber, peerNumber, messageNumber}, Title: title}
}

func (p *ChangeTitle) Kind() Kind      { return KindChangeTitle }
func (p *ChangeTitle) EncodedLen() int { return HeaderSize + len(p.Title) }

func (p *ChangeTitle) EncodeTo(buf []byte) (int, error) {
	return encodeText(buf, p.Header, KindChangeTitle, p.Title, MaxTitleLength)
}

func (p *ChangeTitle) DecodeFrom(buf []byte) (int, error) {
	h, title, n, err := decodeText(buf, KindChangeTitle, MaxTitleLength)
	if err != nil {
		return 0, err
	}
	*p = ChangeTitle{Header: h, Title: title}
	return n, nil
}

func (p *ChangeTitle) MarshalBinary() ([]byte, error)    { return wire.Marshal(p) }
func (p *ChangeTitle) UnmarshalBinary(data []byte) error { return unmarshalInto(data, p) }

// ===== MESSAGE =====

// Message is a text chat message
type Message struct {
	Header
	Text string `json:"text"`
}

// NewMessage creates a text message
func NewMessage(groupNumber, peerNumber uint16, messageNumber uint32, text string) *Message {
	return &Message{Header: Header{groupNumber, peerNumber, messageNumber}, Text: text}
}

func (p *Message) Kind() Kind      { return KindMessage }
func (p *Message) EncodedLen() int { return HeaderSize + len(p.Text) }

func (p *Message) EncodeTo(buf []byte) (int, error) {
	return encodeText(buf, p.Header, KindMessage, p.Text, MaxMessageLength)
}

func (p *Message) DecodeFrom(buf []byte) (int, error) {
	h, text, n, err := decodeText(buf, KindMessage, MaxMessageLength)
	if err != nil {
		return 0, err
	}
	*p = Message{Header: h, Text: text}
	return n, nil
}

func (p *Message) MarshalBinary() ([]byte, error)    { return wire.Marshal(p) }
func (p *Message) UnmarshalBinary(data []byte) error { return unmarshalInto(data, p) }

// ===== ACTION =====

// Action is an action ("/me") chat message
type Action struct {
	Header
	Text string `json:"text"`
}

// NewAction creates an action message
func NewAction(groupNumber, peerNumber uint16, messageNumber uint32, text string) *Action {
	return &Action{Header: Header{groupNumber, peerNumber, messageNumber}, Text: text}
}

func (p *Action) Kind() Kind      { return KindAction }
func (p *Action) EncodedLen() int { return HeaderSize + len(p.Text) }

func (p *Action) EncodeTo(buf []byte) (int, error) {
	return encodeText(buf, p.Header, KindAction, p.Text, MaxMessageLength)
}

func (p *Action) DecodeFrom(buf []byte) (int, error) {
	h, text, n, err := decodeText(buf, KindAction, MaxMessageLength)
	if err != nil {
		return 0, err
	}
	*p = Action{Header: h, Text: text}
	return n, nil
}

func (p *Action) MarshalBinary() ([]byte, error)    { return wire.Marshal(p) }
func (p *Action) UnmarshalBinary(data []byte) error { return unmarshalInto(data, p) }

// encodeText writes a header followed by text filling the rest of the packet
func encodeText(buf []byte, h Header, kind Kind, text string, maxLen int) (int, error) {
	if len(text) > maxLen {
		return 0, fmt.Errorf("%w: %s text is %d bytes, max %d", wire.ErrMalformed, kind, len(text), maxLen)
	}
	w := wire.NewWriter(buf)
	if err := w.Reserve(HeaderSize + len(text)); err != nil {
		return 0, err
	}
	if err := h.encode(w, kind); err != nil {
		return 0, err
	}
	if err := w.PutBytes([]byte(text)); err != nil {
		return 0, err
	}
	return w.Offset(), nil
}

// decodeText reads a header and takes every remaining byte as UTF-8 text
func decodeText(buf []byte, kind Kind, maxLen int) (Header, string, int, error) {
	r := wire.NewReader(buf)
	h, err := decodeHeader(r, kind)
	if err != nil {
		return Header{}, "", 0, err
	}
	raw := r.Rest()
	if len(raw) > maxLen {
		return Header{}, "", 0, fmt.Errorf("%w: %s text is %d bytes, max %d", wire.ErrMalformed, kind, len(raw), maxLen)
	}
	if !utf8.Valid(raw) {
		return Header{}, "", 0, fmt.Errorf("%w: %s text is not valid UTF-8", wire.ErrMalformed, kind)
	}
	return h, string(raw), r.Offset(), nil
}

// unmarshalInto decodes the whole of data into a temporary and only assigns on
// success, so dst never holds a partially accepted value.
func unmarshalInto[T any, PT interface {
	*T
	wire.Decoder
}](data []byte, dst PT) error {
	var tmp T
	if err := wire.Unmarshal(data, PT(&tmp)); err != nil {
		return err
	}
	*dst = tmp
	return nil
}
