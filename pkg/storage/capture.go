package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ZentaChain/zentalk-wire/pkg/delivery"
	"github.com/ZentaChain/zentalk-wire/pkg/protocol"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidDirection = errors.New("invalid direction")
)

// Direction is the side of the connection a frame was seen on
type Direction string

const (
	DirectionInbound  Direction = "in"
	DirectionOutbound Direction = "out"
)

// KindMalformed labels frames that did not decode
const KindMalformed = "malformed"

// CapturedFrame is one raw frame recorded by a CaptureStore
type CapturedFrame struct {
	ID        int64     `json:"id"`
	Direction Direction `json:"direction"`
	Remote    string    `json:"remote"`          // Peer the frame came from or went to
	Kind      string    `json:"kind"`            // Packet kind name, or "malformed"
	Group     *uint16   `json:"group,omitempty"` // Conference number when the header decoded
	Frame     []byte    `json:"frame"`
	Timestamp int64     `json:"timestamp"`
	ExpiresAt int64     `json:"expires_at"`
}

// CaptureFilter narrows Frames and Replay. Zero fields match everything.
type CaptureFilter struct {
	Direction Direction
	Remote    string
	Kind      string
	Group     *uint16
	AfterID   int64
	Limit     int
}

// CaptureStore keeps a bounded-lifetime log of conference frames for
// inspection and replay
type CaptureStore struct {
	db  *sql.DB
	ttl time.Duration

	stop chan struct{}
}

// NewCaptureStore opens or creates a capture database.
// ttl: how long frames are kept (default: 24 hours)
func NewCaptureStore(dbPath string, ttl time.Duration) (*CaptureStore, error) {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	store := &CaptureStore{
		db:   db,
		ttl:  ttl,
		stop: make(chan struct{}),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	go store.cleanupExpiredFrames()

	return store, nil
}

// initSchema creates the database schema
func (s *CaptureStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS captured_frames (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		direction TEXT NOT NULL,
		remote TEXT NOT NULL,
		kind TEXT NOT NULL,
		group_number INTEGER,
		frame BLOB NOT NULL,
		timestamp INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_captured_kind ON captured_frames(kind);
	CREATE INDEX IF NOT EXISTS idx_captured_remote ON captured_frames(remote);
	CREATE INDEX IF NOT EXISTS idx_captured_expires ON captured_frames(expires_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Record stores one frame. Frames that fail to decode are still kept,
// labelled KindMalformed.
func (s *CaptureStore) Record(ctx context.Context, dir Direction, remote string, frame []byte) (int64, error) {
	if dir != DirectionInbound && dir != DirectionOutbound {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}

	kind := KindMalformed
	var group sql.NullInt64
	if pkt, _, err := protocol.Decode(frame); err == nil {
		kind = pkt.Kind().String()
		group = sql.NullInt64{Int64: int64(pkt.GroupHeader().GroupNumber), Valid: true}
	}

	now := time.Now().Unix()
	query := `
		INSERT INTO captured_frames (direction, remote, kind, group_number, frame, timestamp, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query, string(dir), remote, kind, group, frame, now, now+int64(s.ttl.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("failed to record frame: %w", err)
	}

	return result.LastInsertId()
}

// Sink returns a delivery sink that records every frame it accepts
func (s *CaptureStore) Sink(dir Direction, remote string) delivery.Sink[[]byte] {
	return delivery.SinkFunc[[]byte](func(ctx context.Context, frame []byte) error {
		_, err := s.Record(ctx, dir, remote, frame)
		return err
	})
}

// Get returns a single frame by ID
func (s *CaptureStore) Get(ctx context.Context, id int64) (*CapturedFrame, error) {
	query := `
		SELECT id, direction, remote, kind, group_number, frame, timestamp, expires_at
		FROM captured_frames
		WHERE id = ? AND expires_at > ?
	`

	frame, err := scanFrame(s.db.QueryRowContext(ctx, query, id, time.Now().Unix()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("frame %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get frame: %w", err)
	}
	return frame, nil
}

// Frames returns live frames matching filter, oldest first
func (s *CaptureStore) Frames(ctx context.Context, filter CaptureFilter) ([]*CapturedFrame, error) {
	query := `
		SELECT id, direction, remote, kind, group_number, frame, timestamp, expires_at
		FROM captured_frames
		WHERE expires_at > ? AND id > ?
	`
	args := []any{time.Now().Unix(), filter.AfterID}

	if filter.Direction != "" {
		query += " AND direction = ?"
		args = append(args, string(filter.Direction))
	}
	if filter.Remote != "" {
		query += " AND remote = ?"
		args = append(args, filter.Remote)
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	if filter.Group != nil {
		query += " AND group_number = ?"
		args = append(args, int64(*filter.Group))
	}
	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	var frames []*CapturedFrame
	for rows.Next() {
		frame, err := scanFrame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		frames = append(frames, frame)
	}

	return frames, rows.Err()
}

// Replay returns a delivery source over the raw frames matching filter,
// oldest first. Rows are fetched in pages as the source is drained, so
// frames recorded during a replay may be included.
func (s *CaptureStore) Replay(filter CaptureFilter) delivery.Source[[]byte] {
	const pageSize = 256

	remaining := filter.Limit
	var page []*CapturedFrame
	done := false

	return delivery.SourceFunc[[]byte](func(ctx context.Context) ([]byte, error) {
		if len(page) == 0 && !done {
			f := filter
			f.Limit = pageSize
			if remaining > 0 && remaining < pageSize {
				f.Limit = remaining
			}
			next, err := s.Frames(ctx, f)
			if err != nil {
				return nil, err
			}
			if len(next) < f.Limit {
				done = true
			}
			page = next
		}
		if len(page) == 0 {
			return nil, io.EOF
		}

		frame := page[0]
		page = page[1:]
		filter.AfterID = frame.ID
		if remaining > 0 {
			remaining--
			if remaining == 0 {
				done = true
				page = nil
			}
		}
		return frame.Frame, nil
	})
}

// Count returns the number of live frames
func (s *CaptureStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM captured_frames WHERE expires_at > ?`, time.Now().Unix()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count frames: %w", err)
	}
	return count, nil
}

// Stats returns live frame counts per kind and per direction
func (s *CaptureStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}

	byKind, err := s.countBy(ctx, "kind")
	if err != nil {
		return nil, err
	}
	byDirection, err := s.countBy(ctx, "direction")
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total_frames": total,
		"by_kind":      byKind,
		"by_direction": byDirection,
	}, nil
}

// countBy groups live frames by column, which must be a trusted column name
func (s *CaptureStore) countBy(ctx context.Context, column string) (map[string]int, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM captured_frames WHERE expires_at > ? GROUP BY %s`, column, column)

	rows, err := s.db.QueryContext(ctx, query, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to count by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// DeleteExpired removes frames whose lifetime has passed
func (s *CaptureStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM captured_frames WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired frames: %w", err)
	}
	return result.RowsAffected()
}

// cleanupExpiredFrames periodically removes expired frames
func (s *CaptureStore) cleanupExpiredFrames() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		count, err := s.DeleteExpired(context.Background())
		if err != nil {
			log.Printf("Failed to cleanup expired frames: %v", err)
			continue
		}
		if count > 0 {
			log.Printf("🧹 Cleaned up %d expired frames", count)
		}
	}
}

// Close stops cleanup and closes the database connection
func (s *CaptureStore) Close() error {
	close(s.stop)
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFrame(row rowScanner) (*CapturedFrame, error) {
	frame := &CapturedFrame{}
	var dir string
	var group sql.NullInt64
	if err := row.Scan(&frame.ID, &dir, &frame.Remote, &frame.Kind, &group, &frame.Frame, &frame.Timestamp, &frame.ExpiresAt); err != nil {
		return nil, err
	}
	frame.Direction = Direction(dir)
	if group.Valid {
		g := uint16(group.Int64)
		frame.Group = &g
	}
	return frame, nil
}
