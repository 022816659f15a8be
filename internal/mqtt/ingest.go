package mqtt

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"plantcare/internal/models"
	"plantcare/internal/utils"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const telemetryTopic = "devices/+/telemetry"

// IngestStore validates and persists readings arriving over MQTT
type IngestStore interface {
	CountDeviceSensors(ctx context.Context, deviceID string, sensorIDs []string) (int, error)
	InsertSensorReadings(ctx context.Context, items []models.TelemetryItem) error
	TouchDeviceLastSeen(ctx context.Context, deviceID string) error
}

// BatchPublisher appends accepted batches to the telemetry stream
type BatchPublisher interface {
	Publish(ctx context.Context, batch models.TelemetryBatch) error
}

type reading struct {
	SensorID  string    `json:"sensor_id"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// IngestBridge subscribes to device telemetry topics and feeds the stream.
// It is the broker-transport twin of the HTTP ingest route; devices on the
// local network publish over MQTT instead of polling HTTP.
type IngestBridge struct {
	client    mqtt.Client
	store     IngestStore
	publisher BatchPublisher
}

func NewIngestBridge(client mqtt.Client, store IngestStore, publisher BatchPublisher) *IngestBridge {
	return &IngestBridge{client: client, store: store, publisher: publisher}
}

// Start subscribes to the telemetry topic at QoS 1
func (b *IngestBridge) Start() error {
	token := b.client.Subscribe(telemetryTopic, 1, b.handleMessage)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("MQTT: Subscribed to %s", telemetryTopic)
	return nil
}

func (b *IngestBridge) Stop() {
	b.client.Unsubscribe(telemetryTopic)
}

func (b *IngestBridge) handleMessage(client mqtt.Client, msg mqtt.Message) {
	deviceID := utils.ParseDeviceID(msg.Topic())
	if deviceID == "" {
		log.Printf("MQTT: Ignoring message on unexpected topic %s", msg.Topic())
		return
	}

	var readings []reading
	if err := json.Unmarshal(msg.Payload(), &readings); err != nil {
		log.Printf("MQTT: Undecodable payload from device %s: %v", deviceID, err)
		return
	}
	if len(readings) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sensorIDs := make([]string, 0, len(readings))
	seen := map[string]bool{}
	for _, r := range readings {
		if !seen[r.SensorID] {
			seen[r.SensorID] = true
			sensorIDs = append(sensorIDs, r.SensorID)
		}
	}
	count, err := b.store.CountDeviceSensors(ctx, deviceID, sensorIDs)
	if err != nil {
		log.Printf("MQTT: Sensor validation for device %s failed: %v", deviceID, err)
		return
	}
	if count != len(sensorIDs) {
		log.Printf("MQTT: Dropping batch from device %s with unknown sensor", deviceID)
		return
	}

	now := time.Now().UTC()
	items := make([]models.TelemetryItem, 0, len(readings))
	for _, r := range readings {
		ts := r.Timestamp
		if ts.IsZero() {
			ts = now
		}
		items = append(items, models.TelemetryItem{SensorID: r.SensorID, Value: r.Value, Timestamp: ts})
	}

	if err := b.store.InsertSensorReadings(ctx, items); err != nil {
		log.Printf("MQTT: Reading insert for device %s failed: %v", deviceID, err)
		return
	}
	if err := b.store.TouchDeviceLastSeen(ctx, deviceID); err != nil {
		log.Printf("MQTT: last_seen update for device %s failed: %v", deviceID, err)
	}

	batch := models.TelemetryBatch{
		DeviceID:  deviceID,
		BatchID:   uuid.NewString(),
		CreatedAt: now,
		Items:     items,
	}
	if err := b.publisher.Publish(ctx, batch); err != nil {
		log.Printf("MQTT: Stream publish for device %s failed: %v", deviceID, err)
	}
}
