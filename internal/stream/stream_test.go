package stream

import (
	"testing"
	"time"
)

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name      string
		values    map[string]interface{}
		wantErr   bool
		wantItems int
	}{
		{
			name: "full entry",
			values: map[string]interface{}{
				"device_id":  "dev-1",
				"batch_id":   "batch-1",
				"created_at": "2026-01-02T15:04:05Z",
				"items":      `[{"sensor_id":"s1","value":21.5,"timestamp":"2026-01-02T15:04:00Z"}]`,
			},
			wantItems: 1,
		},
		{
			name: "empty items is a valid sweep entry",
			values: map[string]interface{}{
				"device_id": "dev-1",
				"batch_id":  "sweep-1",
				"items":     `[]`,
			},
			wantItems: 0,
		},
		{
			name:    "missing device_id",
			values:  map[string]interface{}{"batch_id": "b"},
			wantErr: true,
		},
		{
			name: "undecodable items",
			values: map[string]interface{}{
				"device_id": "dev-1",
				"items":     `{not json`,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := ParseEntry(Entry{ID: "1-0", Values: tt.values})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got batch %+v", batch)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if batch.DeviceID != "dev-1" {
				t.Errorf("device_id = %q, want dev-1", batch.DeviceID)
			}
			if len(batch.Items) != tt.wantItems {
				t.Errorf("items = %d, want %d", len(batch.Items), tt.wantItems)
			}
		})
	}
}

func TestParseEntryTimestamps(t *testing.T) {
	batch, err := ParseEntry(Entry{ID: "1-0", Values: map[string]interface{}{
		"device_id":  "dev-1",
		"created_at": "2026-01-02T15:04:05.123Z",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 1, 2, 15, 4, 5, 123000000, time.UTC)
	if !batch.CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", batch.CreatedAt, want)
	}

	// Unparseable timestamps fall back to now instead of dropping the entry
	batch, err = ParseEntry(Entry{ID: "1-0", Values: map[string]interface{}{
		"device_id":  "dev-1",
		"created_at": "garbage",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(batch.CreatedAt) > time.Minute {
		t.Errorf("created_at fallback not near now: %v", batch.CreatedAt)
	}
}
