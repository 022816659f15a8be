package rules

import (
	"fmt"
	"time"

	"plantcare/internal/models"
)

// LightCycleRule toggles the lamp on a two-state dwell cycle. Elapsed time is
// recomputed from the actuator's own last_command_at on every evaluation, so
// the cycle survives restarts without any stored phase.
type LightCycleRule struct{}

func (r *LightCycleRule) Name() string { return "light_cycle_control" }

func (r *LightCycleRule) CanRun(ctx *Context) bool {
	return ctx.Profile.LampSchedule.Complete() &&
		ctx.Device.ActuatorByType(models.ActuatorLamp) != nil
}

func (r *LightCycleRule) Evaluate(ctx *Context) Result {
	schedule := ctx.Profile.LampSchedule
	onMinutes := *schedule.OnMinutes
	offMinutes := *schedule.OffMinutes

	lamp := ctx.Device.ActuatorByType(models.ActuatorLamp)

	lastChange := ctx.Now
	if lamp.LastCommandAt != nil {
		lastChange = *lamp.LastCommandAt
	} else if !lamp.CreatedAt.IsZero() {
		lastChange = lamp.CreatedAt
	}
	elapsed := ctx.Now.Sub(lastChange)
	elapsedMinutes := int(elapsed.Minutes())

	if lamp.State == "on" {
		if elapsed >= time.Duration(onMinutes)*time.Minute {
			return Result{
				RuleName: r.Name(),
				Executed: true,
				Reason:   fmt.Sprintf("lamp on for %d/%d minutes, turning off", elapsedMinutes, onMinutes),
				Commands: []models.Command{{
					DeviceID:   ctx.Device.ID,
					ActuatorID: &lamp.ID,
					Command:    models.CommandOff,
				}},
			}
		}
		return Result{
			RuleName: r.Name(),
			Executed: true,
			Reason:   fmt.Sprintf("lamp on for %d/%d minutes, continuing", elapsedMinutes, onMinutes),
		}
	}

	if elapsed >= time.Duration(offMinutes)*time.Minute {
		return Result{
			RuleName: r.Name(),
			Executed: true,
			Reason:   fmt.Sprintf("lamp off for %d/%d minutes, turning on", elapsedMinutes, offMinutes),
			Commands: []models.Command{{
				DeviceID:   ctx.Device.ID,
				ActuatorID: &lamp.ID,
				Command:    models.CommandOn,
			}},
		}
	}
	return Result{
		RuleName: r.Name(),
		Executed: true,
		Reason:   fmt.Sprintf("lamp off for %d/%d minutes, continuing", elapsedMinutes, offMinutes),
	}
}
