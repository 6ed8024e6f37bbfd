package api

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ZentaChain/zentalk-wire/pkg/protocol"
	"github.com/ZentaChain/zentalk-wire/pkg/storage"
)

const (
	defaultCaptureLimit = 100
	maxCaptureLimit     = 1000
)

// CaptureInfo is a captured frame as returned by the API
type CaptureInfo struct {
	ID        int64             `json:"id"`
	Direction storage.Direction `json:"direction"`
	Remote    string            `json:"remote"`
	Kind      string            `json:"kind"`
	Group     *uint16           `json:"group,omitempty"`
	Hex       string            `json:"hex"`
	Length    int               `json:"length"`
	Timestamp int64             `json:"timestamp"`
	Packet    protocol.Packet   `json:"packet,omitempty"`
}

func newCaptureInfo(frame *storage.CapturedFrame, withPacket bool) CaptureInfo {
	info := CaptureInfo{
		ID:        frame.ID,
		Direction: frame.Direction,
		Remote:    frame.Remote,
		Kind:      frame.Kind,
		Group:     frame.Group,
		Hex:       hex.EncodeToString(frame.Frame),
		Length:    len(frame.Frame),
		Timestamp: frame.Timestamp,
	}
	if withPacket {
		if pkt, _, err := protocol.Decode(frame.Frame); err == nil {
			info.Packet = pkt
		}
	}
	return info
}

// handleListCaptures handles GET /api/v1/captures
func (s *Server) handleListCaptures(c *gin.Context) {
	if s.capture == nil {
		captureDisabled(c)
		return
	}

	filter := storage.CaptureFilter{
		Direction: storage.Direction(c.Query("direction")),
		Remote:    c.Query("remote"),
		Kind:      c.Query("kind"),
		Limit:     defaultCaptureLimit,
	}

	if v := c.Query("group"); v != "" {
		group, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			badRequest(c, "Invalid group", "invalid_request", err)
			return
		}
		g := uint16(group)
		filter.Group = &g
	}
	if v := c.Query("after"); v != "" {
		after, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(c, "Invalid cursor", "invalid_request", err)
			return
		}
		filter.AfterID = after
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			badRequest(c, "Invalid limit", "invalid_request", errors.New("limit must be a positive number"))
			return
		}
		filter.Limit = min(limit, maxCaptureLimit)
	}

	frames, err := s.capture.Frames(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Capture query failed",
			Message: err.Error(),
		})
		return
	}

	infos := make([]CaptureInfo, len(frames))
	for i, frame := range frames {
		infos[i] = newCaptureInfo(frame, false)
	}
	c.JSON(http.StatusOK, gin.H{"frames": infos})
}

// handleGetCapture handles GET /api/v1/captures/:id
func (s *Server) handleGetCapture(c *gin.Context) {
	if s.capture == nil {
		captureDisabled(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid capture ID", "invalid_request", err)
		return
	}

	frame, err := s.capture.Get(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Capture not found",
			Message: err.Error(),
			Code:    "not_found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Capture lookup failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, newCaptureInfo(frame, true))
}

// handleCaptureStats handles GET /api/v1/captures/stats
func (s *Server) handleCaptureStats(c *gin.Context) {
	if s.capture == nil {
		captureDisabled(c)
		return
	}

	stats, err := s.capture.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Capture stats failed",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func captureDisabled(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error: "Frame capture is disabled",
		Code:  "capture_disabled",
	})
}
