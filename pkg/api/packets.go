package api

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ZentaChain/zentalk-wire/pkg/crypto"
	"github.com/ZentaChain/zentalk-wire/pkg/protocol"
	"github.com/ZentaChain/zentalk-wire/pkg/storage"
	"github.com/ZentaChain/zentalk-wire/pkg/wire"
)

// KindInfo describes one packet kind the codec understands
type KindInfo struct {
	Name     string `json:"name"`
	PacketID string `json:"packet_id"`
	Tag      string `json:"tag"`
}

// DecodeRequest carries a hex encoded frame
type DecodeRequest struct {
	Hex   string `json:"hex" binding:"required"`
	Exact   bool   `json:"exact"`   // Reject bytes left over after the packet
	Capture bool   `json:"capture"` // Record the frame in the capture store
	Remote  string `json:"remote"`  // Peer label for the captured frame
}

// DecodeResponse is the result of decoding a frame
type DecodeResponse struct {
	Kind     string          `json:"kind"`
	Consumed int             `json:"consumed"`
	Trailing int             `json:"trailing"`
	Packet   protocol.Packet `json:"packet"`
	Capture  int64           `json:"capture_id,omitempty"`
}

// NewPeerRequest holds the fields of a new peer announcement
type NewPeerRequest struct {
	Group         uint16           `json:"group"`
	Peer          uint16           `json:"peer"`
	MessageNumber uint32           `json:"message_number"`
	NewPeer       uint16           `json:"new_peer"`
	LongTermPK    crypto.PublicKey `json:"long_term_pk"`
	DHTPK         crypto.PublicKey `json:"dht_pk"`
}

// MessageRequest holds the fields of a chat message or action
type MessageRequest struct {
	Group         uint16 `json:"group"`
	Peer          uint16 `json:"peer"`
	MessageNumber uint32 `json:"message_number"`
	Text          string `json:"text" binding:"required"`
	Action        bool   `json:"action"`
}

// EncodeResponse is an encoded frame
type EncodeResponse struct {
	Kind   string `json:"kind"`
	Hex    string `json:"hex"`
	Length int    `json:"length"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleKinds handles GET /api/v1/packets/kinds
func (s *Server) handleKinds(c *gin.Context) {
	kinds := protocol.Kinds()
	infos := make([]KindInfo, len(kinds))
	for i, kind := range kinds {
		infos[i] = KindInfo{
			Name:     kind.String(),
			PacketID: fmt.Sprintf("0x%02x", kind.PacketID()),
			Tag:      fmt.Sprintf("0x%02x", kind.Tag()),
		}
	}
	c.JSON(http.StatusOK, gin.H{"kinds": infos})
}

// handleDecode handles POST /api/v1/packets/decode
func (s *Server) handleDecode(c *gin.Context) {
	var req DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", "invalid_request", err)
		return
	}

	frame, err := hex.DecodeString(strings.Join(strings.Fields(req.Hex), ""))
	if err != nil {
		badRequest(c, "Invalid hex", "invalid_hex", err)
		return
	}

	var captureID int64
	if req.Capture {
		if s.capture == nil {
			captureDisabled(c)
			return
		}
		// Malformed frames are recorded too
		captureID, err = s.capture.Record(c.Request.Context(), storage.DirectionInbound, req.Remote, frame)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "Capture failed",
				Message: err.Error(),
			})
			return
		}
	}

	pkt, n, err := protocol.Decode(frame)
	if err == nil && req.Exact && n != len(frame) {
		err = fmt.Errorf("%w: %d of %d bytes unread", wire.ErrTrailingBytes, len(frame)-n, len(frame))
	}
	if err != nil {
		badRequest(c, "Decode failed", codecErrorCode(err), err)
		return
	}

	c.JSON(http.StatusOK, DecodeResponse{
		Kind:     pkt.Kind().String(),
		Consumed: n,
		Trailing: len(frame) - n,
		Packet:   pkt,
		Capture:  captureID,
	})
}

// handleEncodeNewPeer handles POST /api/v1/packets/new-peer
func (s *Server) handleEncodeNewPeer(c *gin.Context) {
	var req NewPeerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", "invalid_request", err)
		return
	}
	if req.LongTermPK.IsZero() || req.DHTPK.IsZero() {
		badRequest(c, "Invalid request", "invalid_key", crypto.ErrInvalidKey)
		return
	}

	s.encode(c, protocol.NewPeerMessage(req.Group, req.Peer, req.MessageNumber, req.NewPeer, req.LongTermPK, req.DHTPK))
}

// handleEncodeMessage handles POST /api/v1/packets/message
func (s *Server) handleEncodeMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", "invalid_request", err)
		return
	}

	var pkt protocol.Packet = protocol.NewMessage(req.Group, req.Peer, req.MessageNumber, req.Text)
	if req.Action {
		pkt = protocol.NewAction(req.Group, req.Peer, req.MessageNumber, req.Text)
	}
	s.encode(c, pkt)
}

func (s *Server) encode(c *gin.Context, pkt protocol.Packet) {
	frame, err := protocol.Encode(pkt)
	if err != nil {
		badRequest(c, "Encode failed", codecErrorCode(err), err)
		return
	}

	c.JSON(http.StatusOK, EncodeResponse{
		Kind:   pkt.Kind().String(),
		Hex:    hex.EncodeToString(frame),
		Length: len(frame),
	})
}

// codecErrorCode maps codec errors to stable API error codes
func codecErrorCode(err error) string {
	switch {
	case errors.Is(err, protocol.ErrUnknownPacket):
		return "unknown_packet"
	case errors.Is(err, wire.ErrWrongTag):
		return "wrong_tag"
	case errors.Is(err, wire.ErrTruncated):
		return "truncated"
	case errors.Is(err, wire.ErrTrailingBytes):
		return "trailing_bytes"
	case errors.Is(err, wire.ErrMalformed):
		return "malformed"
	default:
		return "codec_error"
	}
}

func badRequest(c *gin.Context, msg, code string, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   msg,
		Message: err.Error(),
		Code:    code,
	})
}
