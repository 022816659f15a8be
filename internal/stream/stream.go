package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"plantcare/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	// Key is the Redis stream holding telemetry batches
	Key = "telemetry"
	// lastAckedKey stores the ID of the last entry whose outputs were
	// committed. Consumer progress survives restarts through this key.
	lastAckedKey = "telemetry:last_acked"
	// maxLen caps the stream so a stalled consumer cannot grow it unbounded
	maxLen = 10000
)

// Entry is one raw stream entry before decoding
type Entry struct {
	ID     string
	Values map[string]interface{}
}

// Stream is the durable telemetry log backed by a Redis stream
type Stream struct {
	client *redis.Client
}

// New creates a Stream on the given Redis client
func New(client *redis.Client) *Stream {
	return &Stream{client: client}
}

// Publish appends a telemetry batch to the stream
func (s *Stream) Publish(ctx context.Context, batch models.TelemetryBatch) error {
	items, err := json.Marshal(batch.Items)
	if err != nil {
		return err
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: Key,
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"device_id":  batch.DeviceID,
			"batch_id":   batch.BatchID,
			"created_at": batch.CreatedAt.UTC().Format(time.RFC3339Nano),
			"items":      string(items),
		},
	}).Err()
}

// Read blocks up to the given timeout waiting for entries newer than the
// last acked ID. Returns no entries (and no error) on timeout.
func (s *Stream) Read(ctx context.Context, count int64, block time.Duration) ([]Entry, error) {
	last, err := s.client.Get(ctx, lastAckedKey).Result()
	if err == redis.Nil {
		last = "0-0"
	} else if err != nil {
		return nil, err
	}

	streams, err := s.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{Key, last},
		Count:   count,
		Block:   block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, st := range streams {
		for _, msg := range st.Messages {
			entries = append(entries, Entry{ID: msg.ID, Values: msg.Values})
		}
	}
	return entries, nil
}

// Ack records the entry as processed and removes it from the stream. The
// last-acked marker is advanced first so a crash between the two steps only
// leaves a dead entry behind, never a redelivery.
func (s *Stream) Ack(ctx context.Context, id string) error {
	if err := s.client.Set(ctx, lastAckedKey, id, 0).Err(); err != nil {
		return err
	}
	return s.client.XDel(ctx, Key, id).Err()
}

// ParseEntry decodes a raw stream entry into a telemetry batch
func ParseEntry(e Entry) (*models.TelemetryBatch, error) {
	deviceID, ok := e.Values["device_id"].(string)
	if !ok || deviceID == "" {
		return nil, errors.New("stream entry missing device_id")
	}

	batch := &models.TelemetryBatch{
		DeviceID:  deviceID,
		CreatedAt: time.Now().UTC(),
	}
	if batchID, ok := e.Values["batch_id"].(string); ok {
		batch.BatchID = batchID
	}
	if raw, ok := e.Values["created_at"].(string); ok && raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			batch.CreatedAt = ts
		}
	}
	if raw, ok := e.Values["items"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &batch.Items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
	}
	return batch, nil
}
