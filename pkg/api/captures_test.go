package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/zentalk-wire/pkg/storage"
)

func newCaptureServer(t *testing.T) (*Server, *storage.CaptureStore) {
	t.Helper()
	capture, err := storage.NewCaptureStore(filepath.Join(t.TempDir(), "capture.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { capture.Close() })

	server := NewServer(capture, DefaultConfig())
	t.Cleanup(func() { server.Stop(context.Background()) })
	return server, capture
}

func TestDecodeWithCapture(t *testing.T) {
	server, capture := newCaptureServer(t)

	w := doJSON(t, server, http.MethodPost, "/api/v1/packets/decode", DecodeRequest{
		Hex: newPeerHex, Capture: true, Remote: "peer-a",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		CaptureID int64 `json:"capture_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotZero(t, response.CaptureID)

	// A malformed frame is still captured, then rejected
	w = doJSON(t, server, http.MethodPost, "/api/v1/packets/decode", DecodeRequest{
		Hex: "6300", Capture: true, Remote: "peer-b",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	count, err := capture.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	w = doJSON(t, server, http.MethodGet, "/api/v1/captures/"+strconv.FormatInt(response.CaptureID, 10), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var info struct {
		Kind   string `json:"kind"`
		Remote string `json:"remote"`
		Hex    string `json:"hex"`
		Length int    `json:"length"`
		Packet struct {
			NewPeer uint16 `json:"new_peer"`
		} `json:"packet"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "new_peer", info.Kind)
	assert.Equal(t, "peer-a", info.Remote)
	assert.Equal(t, newPeerHex, info.Hex)
	assert.Equal(t, 76, info.Length)
	assert.Equal(t, uint16(4), info.Packet.NewPeer)
}

func TestListCaptures(t *testing.T) {
	server, capture := newCaptureServer(t)
	ctx := t.Context()

	for _, remote := range []string{"a", "b", "a"} {
		_, err := capture.Record(ctx, storage.DirectionInbound, remote, mustHex(t, newPeerHex))
		require.NoError(t, err)
	}
	_, err := capture.Record(ctx, storage.DirectionOutbound, "a", []byte{0x01})
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 4},
		{"remote", "?remote=a", 3},
		{"kind", "?kind=new_peer", 3},
		{"malformed", "?kind=malformed", 1},
		{"direction", "?direction=out", 1},
		{"group", "?group=1", 3},
		{"limit", "?limit=2", 2},
		{"after", "?after=2", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, server, http.MethodGet, "/api/v1/captures"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var response struct {
				Frames []CaptureInfo `json:"frames"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Len(t, response.Frames, tt.want)
		})
	}

	for _, query := range []string{"?limit=0", "?limit=x", "?group=70000", "?after=x"} {
		w := doJSON(t, server, http.MethodGet, "/api/v1/captures"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestCaptureStatsAndMissing(t *testing.T) {
	server, capture := newCaptureServer(t)

	_, err := capture.Record(t.Context(), storage.DirectionInbound, "a", mustHex(t, newPeerHex))
	require.NoError(t, err)

	w := doJSON(t, server, http.MethodGet, "/api/v1/captures/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_frames":1`)

	w = doJSON(t, server, http.MethodGet, "/api/v1/captures/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, server, http.MethodGet, "/api/v1/captures/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCaptureDisabled(t *testing.T) {
	server := newTestServer(t, nil)

	for _, path := range []string{"/api/v1/captures", "/api/v1/captures/stats", "/api/v1/captures/1"} {
		w := doJSON(t, server, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.Contains(t, w.Body.String(), `"code":"capture_disabled"`)
	}

	w := doJSON(t, server, http.MethodPost, "/api/v1/packets/decode", DecodeRequest{Hex: newPeerHex, Capture: true})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
