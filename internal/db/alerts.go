package db

import (
	"context"

	"plantcare/internal/models"

	"github.com/google/uuid"
)

// InsertAlert creates an alert unless an unresolved alert of the same type
// already exists for the device. Deduplication keeps redelivered telemetry
// batches from piling up duplicate operator notifications. Returns false
// when an open alert suppressed the insert.
func (d *DB) InsertAlert(ctx context.Context, alert *models.Alert) (bool, error) {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	row := d.pool.QueryRow(ctx,
		`INSERT INTO alerts (id, device_id, type, severity, message, created_at)
		 SELECT $1, $2, $3, $4, $5, NOW()
		 WHERE NOT EXISTS (
		     SELECT 1 FROM alerts
		     WHERE device_id = $2 AND type = $3 AND resolved_at IS NULL
		 )
		 RETURNING created_at`,
		alert.ID, alert.DeviceID, alert.Type, alert.Severity, alert.Message)
	return scanConditionalInsert(row, &alert.CreatedAt)
}

// ListAlertsForUser returns alerts across the user's devices, unresolved first
func (d *DB) ListAlertsForUser(ctx context.Context, userID string) ([]models.Alert, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT a.id, a.device_id, a.type, a.severity, a.message, a.created_at, a.resolved_at
		 FROM alerts a JOIN devices d ON d.id = a.device_id
		 WHERE d.owner_id = $1
		 ORDER BY (a.resolved_at IS NULL) DESC, a.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.DeviceID, &a.Type, &a.Severity, &a.Message, &a.CreatedAt, &a.ResolvedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// ResolveAlert marks an alert resolved when it belongs to one of the user's
// devices and is still open. Returns ErrNotFound otherwise.
func (d *DB) ResolveAlert(ctx context.Context, alertID, userID string) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE alerts SET resolved_at = NOW()
		 WHERE id = $1 AND resolved_at IS NULL
		   AND device_id IN (SELECT id FROM devices WHERE owner_id = $2)`,
		alertID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
