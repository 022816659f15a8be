package api

import (
	"context"
	"log"
	"time"

	"plantcare/internal/models"
	"plantcare/internal/web/middleware"
	webModels "plantcare/internal/web/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TelemetryStore validates and persists raw readings before they hit the stream
type TelemetryStore interface {
	CountDeviceSensors(ctx context.Context, deviceID string, sensorIDs []string) (int, error)
	InsertSensorReadings(ctx context.Context, items []models.TelemetryItem) error
	TouchDeviceLastSeen(ctx context.Context, deviceID string) error
}

// BatchPublisher appends accepted batches to the telemetry stream
type BatchPublisher interface {
	Publish(ctx context.Context, batch models.TelemetryBatch) error
}

func RegisterTelemetryRoutes(r *gin.Engine, mw *middleware.MiddlewareManager, store TelemetryStore, publisher BatchPublisher) {
	telemetry := r.Group("/telemetry")
	telemetry.Use(mw.RequireDevice())
	{
		telemetry.POST("", func(c *gin.Context) {
			deviceID := c.GetString("device_id")
			var req webModels.TelemetryIngestRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(400, gin.H{"error": "Invalid request"})
				return
			}

			sensorIDs := make([]string, 0, len(req.Readings))
			seen := map[string]bool{}
			for _, reading := range req.Readings {
				if !seen[reading.SensorID] {
					seen[reading.SensorID] = true
					sensorIDs = append(sensorIDs, reading.SensorID)
				}
			}
			count, err := store.CountDeviceSensors(c, deviceID, sensorIDs)
			if err != nil {
				log.Printf("API: sensor validation for device %s failed: %v", deviceID, err)
				c.JSON(500, gin.H{"error": "Failed to validate sensors"})
				return
			}
			if count != len(sensorIDs) {
				c.JSON(400, gin.H{"error": "Unknown sensor"})
				return
			}

			now := time.Now().UTC()
			items := make([]models.TelemetryItem, 0, len(req.Readings))
			for _, reading := range req.Readings {
				ts := reading.Timestamp
				if ts.IsZero() {
					ts = now
				}
				items = append(items, models.TelemetryItem{
					SensorID:  reading.SensorID,
					Value:     reading.Value,
					Timestamp: ts,
				})
			}

			if err := store.InsertSensorReadings(c, items); err != nil {
				log.Printf("API: reading insert for device %s failed: %v", deviceID, err)
				c.JSON(500, gin.H{"error": "Failed to store readings"})
				return
			}
			if err := store.TouchDeviceLastSeen(c, deviceID); err != nil {
				log.Printf("API: last_seen update for device %s failed: %v", deviceID, err)
			}

			batch := models.TelemetryBatch{
				DeviceID:  deviceID,
				BatchID:   uuid.NewString(),
				CreatedAt: now,
				Items:     items,
			}
			if err := publisher.Publish(c, batch); err != nil {
				// Readings are already stored; a stream hiccup only
				// delays automation, so the ingest still succeeds
				log.Printf("API: stream publish for device %s failed: %v", deviceID, err)
			}

			c.JSON(200, gin.H{"batch_id": batch.BatchID, "accepted": len(items)})
		})
	}
}
