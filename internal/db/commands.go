package db

import (
	"context"
	"encoding/json"

	"plantcare/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LastCommandForActuator returns the most recent ledger command for an
// actuator, or nil when none exists.
func (d *DB) LastCommandForActuator(ctx context.Context, actuatorID string) (*models.Command, error) {
	var c models.Command
	err := d.pool.QueryRow(ctx,
		`SELECT id, device_id, actuator_id, command, payload, status, message, created_at
		 FROM commands WHERE actuator_id = $1 ORDER BY created_at DESC LIMIT 1`, actuatorID).
		Scan(&c.ID, &c.DeviceID, &c.ActuatorID, &c.Command, &c.Payload, &c.Status, &c.Message, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LastPulseForActuator returns the most recent PULSE command for an actuator,
// or nil when none exists. The watering cooldown is measured against this row
// specifically; a newer manual on/off must not hide an in-window pulse.
func (d *DB) LastPulseForActuator(ctx context.Context, actuatorID string) (*models.Command, error) {
	var c models.Command
	err := d.pool.QueryRow(ctx,
		`SELECT id, device_id, actuator_id, command, payload, status, message, created_at
		 FROM commands WHERE actuator_id = $1 AND command = $2
		 ORDER BY created_at DESC LIMIT 1`, actuatorID, models.CommandPulse).
		Scan(&c.ID, &c.DeviceID, &c.ActuatorID, &c.Command, &c.Payload, &c.Status, &c.Message, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertCommand creates a command in the pending state
func (d *DB) InsertCommand(ctx context.Context, cmd *models.Command) error {
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	cmd.Status = models.StatusPending
	return d.pool.QueryRow(ctx,
		`INSERT INTO commands (id, device_id, actuator_id, command, payload, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING created_at`,
		cmd.ID, cmd.DeviceID, cmd.ActuatorID, cmd.Command, cmd.Payload, cmd.Status).
		Scan(&cmd.CreatedAt)
}

// InsertPulseCommand creates a pump PULSE command only when no other PULSE
// for the same actuator exists inside the cooldown window. The conditional
// insert closes the read-then-write race a concurrent issuer would otherwise
// have against the rule evaluator's cooldown check. Returns false when the
// window suppressed the insert.
func (d *DB) InsertPulseCommand(ctx context.Context, cmd *models.Command, cooldownMin int) (bool, error) {
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	cmd.Status = models.StatusPending
	row := d.pool.QueryRow(ctx,
		`INSERT INTO commands (id, device_id, actuator_id, command, payload, status, created_at)
		 SELECT $1, $2, $3, $4, $5, $6, NOW()
		 WHERE NOT EXISTS (
		     SELECT 1 FROM commands
		     WHERE actuator_id = $3 AND command = $4
		       AND created_at > NOW() - ($7 * INTERVAL '1 minute')
		 )
		 RETURNING created_at`,
		cmd.ID, cmd.DeviceID, cmd.ActuatorID, models.CommandPulse, cmd.Payload, cmd.Status, cooldownMin)
	return scanConditionalInsert(row, &cmd.CreatedAt)
}

// ClaimPendingCommands atomically marks every pending command for the device
// as sent and returns them. A second concurrent poll sees no pending rows,
// so commands are delivered to the device at most once.
func (d *DB) ClaimPendingCommands(ctx context.Context, deviceID string) ([]models.Command, error) {
	rows, err := d.pool.Query(ctx,
		`UPDATE commands SET status = $1
		 WHERE device_id = $2 AND status = $3
		 RETURNING id, device_id, actuator_id, command, payload, status, message, created_at`,
		models.StatusSent, deviceID, models.StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commands []models.Command
	for rows.Next() {
		var c models.Command
		if err := rows.Scan(&c.ID, &c.DeviceID, &c.ActuatorID, &c.Command, &c.Payload, &c.Status, &c.Message, &c.CreatedAt); err != nil {
			return nil, err
		}
		commands = append(commands, c)
	}
	return commands, rows.Err()
}

// AckCommand finalizes a command on behalf of the owning device and updates
// the referenced actuator's observed state and last_command_at. The actuator
// update is what advances the light cycle's elapsed-time computation.
// Returns ErrNotFound for commands the device does not own and
// ErrTerminalCommand when the command was already acked or failed.
func (d *DB) AckCommand(ctx context.Context, deviceID, commandID string, status models.CommandStatus, feedback map[string]interface{}) (*models.Command, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var c models.Command
	err = tx.QueryRow(ctx,
		`SELECT id, device_id, actuator_id, command, payload, status, message, created_at
		 FROM commands WHERE id = $1 AND device_id = $2 FOR UPDATE`, commandID, deviceID).
		Scan(&c.ID, &c.DeviceID, &c.ActuatorID, &c.Command, &c.Payload, &c.Status, &c.Message, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() {
		return nil, ErrTerminalCommand
	}

	c.Status = status
	if len(feedback) > 0 {
		raw, err := json.Marshal(feedback)
		if err != nil {
			return nil, err
		}
		msg := string(raw)
		c.Message = &msg
	}
	if _, err := tx.Exec(ctx,
		"UPDATE commands SET status = $1, message = $2 WHERE id = $3",
		c.Status, c.Message, c.ID); err != nil {
		return nil, err
	}

	if c.ActuatorID != nil {
		state := string(c.Command)
		if fb, ok := feedback["state"].(string); ok && fb != "" {
			state = fb
		}
		if _, err := tx.Exec(ctx,
			"UPDATE actuators SET state = $1, last_command_at = NOW() WHERE id = $2",
			state, *c.ActuatorID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &c, nil
}
