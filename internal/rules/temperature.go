package rules

import (
	"fmt"

	"plantcare/internal/models"
)

// TemperatureRule alerts on air temperature outside the configured band.
// Values equal to a bound are inside the safe range.
type TemperatureRule struct{}

func (r *TemperatureRule) Name() string { return "temperature_alerts" }

func (r *TemperatureRule) CanRun(ctx *Context) bool {
	_, ok := ctx.Readings[models.SensorAirTemperature]
	return ok && ctx.Profile.TempMin != nil && ctx.Profile.TempMax != nil
}

func (r *TemperatureRule) Evaluate(ctx *Context) Result {
	temp := ctx.Readings[models.SensorAirTemperature]
	tempMin := *ctx.Profile.TempMin
	tempMax := *ctx.Profile.TempMax

	if temp < tempMin {
		return Result{
			RuleName: r.Name(),
			Executed: true,
			Reason:   fmt.Sprintf("temperature %.1f°C is below minimum %.1f°C", temp, tempMin),
			Alerts: []models.Alert{{
				DeviceID: ctx.Device.ID,
				Type:     models.AlertTempLow,
				Severity: models.SeverityWarn,
				Message:  fmt.Sprintf("Temperature is below threshold (%.1f°C < %.1f°C)", temp, tempMin),
			}},
		}
	}

	if temp > tempMax {
		return Result{
			RuleName: r.Name(),
			Executed: true,
			Reason:   fmt.Sprintf("temperature %.1f°C is above maximum %.1f°C", temp, tempMax),
			Alerts: []models.Alert{{
				DeviceID: ctx.Device.ID,
				Type:     models.AlertTempHigh,
				Severity: models.SeverityWarn,
				Message:  fmt.Sprintf("Temperature is above threshold (%.1f°C > %.1f°C)", temp, tempMax),
			}},
		}
	}

	return Result{
		RuleName: r.Name(),
		Executed: true,
		Reason:   fmt.Sprintf("temperature %.1f°C is within range (%.1f°C - %.1f°C)", temp, tempMin, tempMax),
	}
}
