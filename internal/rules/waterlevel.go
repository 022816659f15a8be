package rules

import (
	"fmt"

	"plantcare/internal/models"
)

// WaterLevelRule raises a critical alert when the reservoir runs low.
// Reservoir depletion is never throttled.
type WaterLevelRule struct{}

func (r *WaterLevelRule) Name() string { return "water_level_monitor" }

func (r *WaterLevelRule) CanRun(ctx *Context) bool {
	_, ok := ctx.Readings[models.SensorWaterLevel]
	return ok
}

func (r *WaterLevelRule) Evaluate(ctx *Context) Result {
	level := ctx.Readings[models.SensorWaterLevel]
	minLevel := ctx.Profile.MinWaterLevel

	if level < minLevel {
		return Result{
			RuleName: r.Name(),
			Executed: true,
			Reason:   fmt.Sprintf("water level %.1f%% below minimum %.1f%%", level, minLevel),
			Alerts: []models.Alert{{
				DeviceID: ctx.Device.ID,
				Type:     models.AlertWaterLow,
				Severity: models.SeverityCritical,
				Message:  fmt.Sprintf("Reservoir water level low (%.1f%%)", level),
			}},
		}
	}

	return Result{
		RuleName: r.Name(),
		Executed: true,
		Reason:   fmt.Sprintf("water level %.1f%% is adequate (>%.1f%%)", level, minLevel),
	}
}
