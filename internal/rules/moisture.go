package rules

import (
	"encoding/json"
	"fmt"
	"time"

	"plantcare/internal/models"
)

// MoistureRule triggers watering when soil moisture drops below the profile
// minimum, throttled by the watering cooldown.
type MoistureRule struct{}

func (r *MoistureRule) Name() string { return "soil_moisture_control" }

func (r *MoistureRule) CanRun(ctx *Context) bool {
	_, ok := ctx.Readings[models.SensorSoilMoisture]
	return ok &&
		ctx.Profile.SoilMoistureMin != nil &&
		ctx.Device.ActuatorByType(models.ActuatorPump) != nil
}

func (r *MoistureRule) Evaluate(ctx *Context) Result {
	moisture := ctx.Readings[models.SensorSoilMoisture]
	min := *ctx.Profile.SoilMoistureMin

	if moisture >= min {
		return Result{
			RuleName: r.Name(),
			Executed: true,
			Reason:   fmt.Sprintf("soil moisture %.1f%% is above minimum %.1f%%", moisture, min),
		}
	}

	pump := ctx.Device.ActuatorByType(models.ActuatorPump)

	// Cooldown is decided from the last durably stored PULSE, never from
	// in-process memory, so a redelivered batch cannot double-fire.
	if last := ctx.LastCommands[models.ActuatorPump]; last != nil && last.Command == models.CommandPulse {
		cooldown := time.Duration(ctx.Profile.WateringCooldownMin) * time.Minute
		elapsed := ctx.Now.Sub(last.CreatedAt)
		if elapsed < cooldown {
			return Result{
				RuleName: r.Name(),
				Executed: true,
				Reason: fmt.Sprintf("soil moisture low (%.1f%%), but watering on cooldown (%d/%d min)",
					moisture, int(elapsed.Minutes()), ctx.Profile.WateringCooldownMin),
				Alerts: []models.Alert{{
					DeviceID: ctx.Device.ID,
					Type:     models.AlertWateringCooldown,
					Severity: models.SeverityWarn,
					Message:  "Watering cooldown active",
				}},
			}
		}
	}

	payload, _ := json.Marshal(map[string]int{"duration": ctx.Profile.WateringDurationSec})
	return Result{
		RuleName: r.Name(),
		Executed: true,
		Reason:   fmt.Sprintf("soil moisture %.1f%% below minimum %.1f%%, triggering watering", moisture, min),
		Commands: []models.Command{{
			DeviceID:   ctx.Device.ID,
			ActuatorID: &pump.ID,
			Command:    models.CommandPulse,
			Payload:    payload,
		}},
	}
}
