package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"plantcare/internal/models"
)

type fakeTelemetryStore struct {
	knownSensors map[string]bool
	inserted     []models.TelemetryItem
	touched      []string
}

func (f *fakeTelemetryStore) CountDeviceSensors(ctx context.Context, deviceID string, sensorIDs []string) (int, error) {
	n := 0
	for _, id := range sensorIDs {
		if f.knownSensors[id] {
			n++
		}
	}
	return n, nil
}

func (f *fakeTelemetryStore) InsertSensorReadings(ctx context.Context, items []models.TelemetryItem) error {
	f.inserted = append(f.inserted, items...)
	return nil
}

func (f *fakeTelemetryStore) TouchDeviceLastSeen(ctx context.Context, deviceID string) error {
	f.touched = append(f.touched, deviceID)
	return nil
}

type fakePublisher struct {
	batches []models.TelemetryBatch
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, batch models.TelemetryBatch) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, batch)
	return nil
}

func TestIngestTelemetry(t *testing.T) {
	store := &fakeTelemetryStore{knownSensors: map[string]bool{"sen-soil": true, "sen-temp": true}}
	pub := &fakePublisher{}
	r, mw := testRouter(&stubAuth{deviceID: "dev-1"})
	RegisterTelemetryRoutes(r, mw, store, pub)

	body := `{"readings": [
		{"sensor_id": "sen-soil", "value": 22.5, "timestamp": "2026-03-15T12:00:00Z"},
		{"sensor_id": "sen-temp", "value": 31.0}
	]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/telemetry", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	var resp struct {
		BatchID  string `json:"batch_id"`
		Accepted int    `json:"accepted"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.BatchID == "" || resp.Accepted != 2 {
		t.Errorf("response = %+v", resp)
	}
	if len(store.inserted) != 2 {
		t.Fatalf("stored %d readings, want 2", len(store.inserted))
	}
	if store.inserted[1].Timestamp.IsZero() {
		t.Error("missing timestamp was not defaulted")
	}
	if len(pub.batches) != 1 {
		t.Fatalf("published %d batches, want 1", len(pub.batches))
	}
	batch := pub.batches[0]
	if batch.DeviceID != "dev-1" || batch.BatchID != resp.BatchID || len(batch.Items) != 2 {
		t.Errorf("published batch = %+v", batch)
	}
}

func TestIngestRejectsUnknownSensor(t *testing.T) {
	store := &fakeTelemetryStore{knownSensors: map[string]bool{"sen-soil": true}}
	pub := &fakePublisher{}
	r, mw := testRouter(&stubAuth{deviceID: "dev-1"})
	RegisterTelemetryRoutes(r, mw, store, pub)

	body := `{"readings": [{"sensor_id": "sen-rogue", "value": 1}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/telemetry", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(store.inserted) != 0 || len(pub.batches) != 0 {
		t.Error("rejected batch left side effects")
	}
}

func TestIngestSurvivesStreamOutage(t *testing.T) {
	store := &fakeTelemetryStore{knownSensors: map[string]bool{"sen-soil": true}}
	pub := &fakePublisher{err: context.DeadlineExceeded}
	r, mw := testRouter(&stubAuth{deviceID: "dev-1"})
	RegisterTelemetryRoutes(r, mw, store, pub)

	body := `{"readings": [{"sensor_id": "sen-soil", "value": 40}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/telemetry", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(store.inserted) != 1 {
		t.Errorf("stored %d readings, want 1", len(store.inserted))
	}
}
