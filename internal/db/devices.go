package db

import (
	"context"
	"encoding/json"

	"plantcare/internal/models"

	"github.com/jackc/pgx/v5"
)

// GetDeviceByID loads a device with its sensors, actuators and automation
// profile. Returns (nil, nil) when the device does not exist so callers can
// tell "unknown device" apart from infrastructure errors.
func (d *DB) GetDeviceByID(ctx context.Context, id string) (*models.Device, error) {
	var device models.Device
	err := d.pool.QueryRow(ctx,
		"SELECT id, owner_id, name, status, last_seen FROM devices WHERE id = $1", id).
		Scan(&device.ID, &device.OwnerID, &device.Name, &device.Status, &device.LastSeen)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := d.pool.Query(ctx,
		"SELECT id, device_id, type, unit FROM sensors WHERE device_id = $1", id)
	if err != nil {
		return nil, err
	}
	device.Sensors, err = scanSensors(rows)
	if err != nil {
		return nil, err
	}

	rows, err = d.pool.Query(ctx,
		"SELECT id, device_id, type, state, last_command_at, created_at FROM actuators WHERE device_id = $1", id)
	if err != nil {
		return nil, err
	}
	device.Actuators, err = scanActuators(rows)
	if err != nil {
		return nil, err
	}

	profile, err := d.getAutomationProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	device.Profile = profile

	return &device, nil
}

// scanSensors drains a sensor result set. The final rows.Err() check matters:
// a connection failure mid-iteration otherwise looks like a short list, and a
// truncated sensor list makes the engine ack telemetry it never evaluated.
func scanSensors(rows pgx.Rows) ([]models.Sensor, error) {
	defer rows.Close()
	var sensors []models.Sensor
	for rows.Next() {
		var s models.Sensor
		if err := rows.Scan(&s.ID, &s.DeviceID, &s.Type, &s.Unit); err != nil {
			return nil, err
		}
		sensors = append(sensors, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sensors, nil
}

func scanActuators(rows pgx.Rows) ([]models.Actuator, error) {
	defer rows.Close()
	var actuators []models.Actuator
	for rows.Next() {
		var a models.Actuator
		if err := rows.Scan(&a.ID, &a.DeviceID, &a.Type, &a.State, &a.LastCommandAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		actuators = append(actuators, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return actuators, nil
}

func (d *DB) getAutomationProfile(ctx context.Context, deviceID string) (*models.AutomationProfile, error) {
	var p models.AutomationProfile
	var scheduleRaw []byte
	err := d.pool.QueryRow(ctx,
		`SELECT id, device_id, soil_moisture_min, soil_moisture_max, temp_min, temp_max,
		        min_water_level, watering_duration_sec, watering_cooldown_min, lamp_schedule
		 FROM automation_profiles WHERE device_id = $1`, deviceID).
		Scan(&p.ID, &p.DeviceID, &p.SoilMoistureMin, &p.SoilMoistureMax, &p.TempMin, &p.TempMax,
			&p.MinWaterLevel, &p.WateringDurationSec, &p.WateringCooldownMin, &scheduleRaw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(scheduleRaw) > 0 {
		if err := json.Unmarshal(scheduleRaw, &p.LampSchedule); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// GetOwnedDevice fetches a device only when it belongs to the given user
func (d *DB) GetOwnedDevice(ctx context.Context, deviceID, userID string) (*models.Device, error) {
	var device models.Device
	err := d.pool.QueryRow(ctx,
		"SELECT id, owner_id, name, status, last_seen FROM devices WHERE id = $1 AND owner_id = $2",
		deviceID, userID).
		Scan(&device.ID, &device.OwnerID, &device.Name, &device.Status, &device.LastSeen)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// GetActuator fetches an actuator scoped to a device
func (d *DB) GetActuator(ctx context.Context, actuatorID, deviceID string) (*models.Actuator, error) {
	var a models.Actuator
	err := d.pool.QueryRow(ctx,
		"SELECT id, device_id, type, state, last_command_at, created_at FROM actuators WHERE id = $1 AND device_id = $2",
		actuatorID, deviceID).
		Scan(&a.ID, &a.DeviceID, &a.Type, &a.State, &a.LastCommandAt, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CountDeviceSensors returns how many of the given sensor IDs belong to the device
func (d *DB) CountDeviceSensors(ctx context.Context, deviceID string, sensorIDs []string) (int, error) {
	var count int
	err := d.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM sensors WHERE device_id = $1 AND id = ANY($2)",
		deviceID, sensorIDs).Scan(&count)
	return count, err
}

// InsertSensorReadings persists raw readings from an accepted telemetry batch
func (d *DB) InsertSensorReadings(ctx context.Context, items []models.TelemetryItem) error {
	for _, item := range items {
		_, err := d.pool.Exec(ctx,
			"INSERT INTO sensor_readings (sensor_id, recorded_at, value_numeric) VALUES ($1, $2, $3)",
			item.SensorID, item.Timestamp, item.Value)
		if err != nil {
			return err
		}
	}
	return nil
}

// TouchDeviceLastSeen records device activity on the poll/ingest paths
func (d *DB) TouchDeviceLastSeen(ctx context.Context, deviceID string) error {
	_, err := d.pool.Exec(ctx, "UPDATE devices SET last_seen = NOW() WHERE id = $1", deviceID)
	return err
}

// ListLampScheduleDeviceIDs returns devices whose profile has a lamp schedule,
// used by the light sweep to publish synthetic batches.
func (d *DB) ListLampScheduleDeviceIDs(ctx context.Context) ([]string, error) {
	rows, err := d.pool.Query(ctx,
		"SELECT device_id FROM automation_profiles WHERE lamp_schedule IS NOT NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetUserAlertChannels returns the owner's email and alert preferences for
// notification delivery. Preferences may be nil.
func (d *DB) GetUserAlertChannels(ctx context.Context, userID string) (string, map[string]string, error) {
	var email string
	var prefsRaw []byte
	err := d.pool.QueryRow(ctx,
		"SELECT email, alert_preferences FROM users WHERE id = $1", userID).
		Scan(&email, &prefsRaw)
	if err == pgx.ErrNoRows {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, err
	}
	prefs := map[string]string{}
	if len(prefsRaw) > 0 {
		if err := json.Unmarshal(prefsRaw, &prefs); err != nil {
			return email, nil, err
		}
	}
	return email, prefs, nil
}
