package models

import (
	"encoding/json"
	"time"
)

// SensorType identifies what a sensor measures
type SensorType string

const (
	SensorSoilMoisture   SensorType = "soil_moisture"
	SensorAirTemperature SensorType = "air_temperature"
	SensorWaterLevel     SensorType = "water_level"
)

// ActuatorType identifies what an actuator drives
type ActuatorType string

const (
	ActuatorPump ActuatorType = "pump"
	ActuatorLamp ActuatorType = "lamp"
)

// CommandType is the instruction sent to an actuator
type CommandType string

const (
	CommandOn    CommandType = "on"
	CommandOff   CommandType = "off"
	CommandPulse CommandType = "pulse"
)

// CommandStatus is the delivery lifecycle state of a command.
// Transitions only move forward: pending -> sent -> acked/failed.
type CommandStatus string

const (
	StatusPending CommandStatus = "pending"
	StatusSent    CommandStatus = "sent"
	StatusAcked   CommandStatus = "acked"
	StatusFailed  CommandStatus = "failed"
)

// Terminal reports whether no further status transitions are allowed
func (s CommandStatus) Terminal() bool {
	return s == StatusAcked || s == StatusFailed
}

// AlertType classifies an alert
type AlertType string

const (
	AlertTempHigh         AlertType = "temp_high"
	AlertTempLow          AlertType = "temp_low"
	AlertWaterLow         AlertType = "water_low"
	AlertWateringCooldown AlertType = "watering_cooldown"
)

// AlertSeverity ranks an alert
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarn     AlertSeverity = "warn"
	SeverityCritical AlertSeverity = "critical"
)

// Device represents a field device with its sensors and actuators
type Device struct {
	ID        string             `json:"id"`
	OwnerID   *string            `json:"owner_id"`
	Name      string             `json:"name"`
	Status    string             `json:"status"`
	LastSeen  *time.Time         `json:"last_seen"`
	Sensors   []Sensor           `json:"sensors"`
	Actuators []Actuator         `json:"actuators"`
	Profile   *AutomationProfile `json:"automation_profile"`
}

// ActuatorByType returns the first actuator of the given type, or nil
func (d *Device) ActuatorByType(t ActuatorType) *Actuator {
	for i := range d.Actuators {
		if d.Actuators[i].Type == t {
			return &d.Actuators[i]
		}
	}
	return nil
}

// SensorByID returns the sensor with the given ID, or nil
func (d *Device) SensorByID(id string) *Sensor {
	for i := range d.Sensors {
		if d.Sensors[i].ID == id {
			return &d.Sensors[i]
		}
	}
	return nil
}

// Sensor represents a single measurement channel on a device
type Sensor struct {
	ID       string     `json:"id"`
	DeviceID string     `json:"device_id"`
	Type     SensorType `json:"type"`
	Unit     string     `json:"unit"`
}

// Actuator represents a controllable output on a device
type Actuator struct {
	ID            string       `json:"id"`
	DeviceID      string       `json:"device_id"`
	Type          ActuatorType `json:"type"`
	State         string       `json:"state"`
	LastCommandAt *time.Time   `json:"last_command_at"`
	CreatedAt     time.Time    `json:"created_at"`
}

// AutomationProfile holds per-device automation policy. Nil threshold fields
// mean the threshold is not configured and rules depending on it do not run.
type AutomationProfile struct {
	ID                  string        `json:"id"`
	DeviceID            string        `json:"device_id"`
	SoilMoistureMin     *float64      `json:"soil_moisture_min"`
	SoilMoistureMax     *float64      `json:"soil_moisture_max"`
	TempMin             *float64      `json:"temp_min"`
	TempMax             *float64      `json:"temp_max"`
	MinWaterLevel       float64       `json:"min_water_level"`
	WateringDurationSec int           `json:"watering_duration_sec"`
	WateringCooldownMin int           `json:"watering_cooldown_min"`
	LampSchedule        *LampSchedule `json:"lamp_schedule"`
}

// LampSchedule is the on/off dwell configuration for the light cycle.
// A partial schedule is invalid and disables the cycle.
type LampSchedule struct {
	OnMinutes  *int `json:"on_minutes"`
	OffMinutes *int `json:"off_minutes"`
}

// Complete reports whether both dwell times are configured
func (s *LampSchedule) Complete() bool {
	return s != nil && s.OnMinutes != nil && s.OffMinutes != nil
}

// Command is an actuator instruction recorded in the ledger
type Command struct {
	ID         string          `json:"id"`
	DeviceID   string          `json:"device_id"`
	ActuatorID *string         `json:"actuator_id"`
	Command    CommandType     `json:"command"`
	Payload    json.RawMessage `json:"payload"`
	Status     CommandStatus   `json:"status"`
	Message    *string         `json:"message"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Alert is an operator-facing notification recorded for a device
type Alert struct {
	ID         string        `json:"id"`
	DeviceID   string        `json:"device_id"`
	Type       AlertType     `json:"type"`
	Severity   AlertSeverity `json:"severity"`
	Message    string        `json:"message"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at"`
}

// TelemetryItem is a single sensor reading inside a batch
type TelemetryItem struct {
	SensorID  string    `json:"sensor_id"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// TelemetryBatch is one ingestion event bundling readings for one device.
// Batches live only on the stream; raw readings are persisted separately.
type TelemetryBatch struct {
	DeviceID  string          `json:"device_id"`
	BatchID   string          `json:"batch_id"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []TelemetryItem `json:"items"`
}
