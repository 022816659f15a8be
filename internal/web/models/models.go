package models

import (
	"encoding/json"
	"time"

	core "plantcare/internal/models"
)

// CommandAckRequest is the body a device posts to finalize a command
type CommandAckRequest struct {
	CommandID string                 `json:"command_id" binding:"required"`
	Status    core.CommandStatus     `json:"status"`
	Feedback  map[string]interface{} `json:"feedback"`
}

// CommandCreateRequest is the body an operator posts to issue a command
type CommandCreateRequest struct {
	ActuatorID string           `json:"actuator_id" binding:"required"`
	Command    core.CommandType `json:"command" binding:"required"`
	Payload    json.RawMessage  `json:"payload"`
}

// DeviceCommandOut is the device-facing view of a claimed command
type DeviceCommandOut struct {
	ID         string           `json:"id"`
	Command    core.CommandType `json:"command"`
	Payload    json.RawMessage  `json:"payload"`
	ActuatorID *string          `json:"actuator_id"`
	CreatedAt  time.Time        `json:"created_at"`
}

// TelemetryReadingIn is one reading in an ingestion request
type TelemetryReadingIn struct {
	SensorID  string    `json:"sensor_id" binding:"required"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// TelemetryIngestRequest is the body a device posts with a batch of readings
type TelemetryIngestRequest struct {
	Readings []TelemetryReadingIn `json:"readings" binding:"required"`
}
