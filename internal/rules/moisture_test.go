package rules

import (
	"encoding/json"
	"testing"
	"time"

	"plantcare/internal/models"
)

func TestMoistureRuleCanRun(t *testing.T) {
	rule := &MoistureRule{}

	ctx := testContext()
	if rule.CanRun(ctx) {
		t.Error("can run without a soil moisture reading")
	}

	ctx.Readings[models.SensorSoilMoisture] = 25
	if !rule.CanRun(ctx) {
		t.Error("cannot run with reading, threshold and pump present")
	}

	ctx.Profile.SoilMoistureMin = nil
	if rule.CanRun(ctx) {
		t.Error("can run without a configured minimum")
	}
	ctx.Profile.SoilMoistureMin = floatPtr(30)

	ctx.Device.Actuators = ctx.Device.Actuators[1:] // drop the pump
	if rule.CanRun(ctx) {
		t.Error("can run without a pump actuator")
	}
}

func TestMoistureRuleTriggersWatering(t *testing.T) {
	rule := &MoistureRule{}
	ctx := testContext()
	ctx.Readings[models.SensorSoilMoisture] = 20

	res := rule.Evaluate(ctx)
	if !res.Executed {
		t.Fatal("rule did not execute")
	}
	if len(res.Commands) != 1 {
		t.Fatalf("commands = %+v, want exactly one", res.Commands)
	}
	cmd := res.Commands[0]
	if cmd.Command != models.CommandPulse {
		t.Errorf("command = %s, want pulse", cmd.Command)
	}
	if cmd.ActuatorID == nil || *cmd.ActuatorID != "act-pump" {
		t.Errorf("actuator = %v, want act-pump", cmd.ActuatorID)
	}
	var payload struct {
		Duration int `json:"duration"`
	}
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Duration != ctx.Profile.WateringDurationSec {
		t.Errorf("duration = %d, want %d", payload.Duration, ctx.Profile.WateringDurationSec)
	}
	if len(res.Alerts) != 0 {
		t.Errorf("unexpected alerts: %+v", res.Alerts)
	}
}

func TestMoistureRuleCooldown(t *testing.T) {
	tests := []struct {
		name        string
		lastCommand *models.Command
		wantCommand bool
		wantAlert   bool
	}{
		{
			name: "pulse inside cooldown suppresses watering",
			lastCommand: &models.Command{
				Command:   models.CommandPulse,
				CreatedAt: testNow.Add(-30 * time.Minute),
			},
			wantAlert: true,
		},
		{
			name: "pulse just past cooldown allows watering",
			lastCommand: &models.Command{
				Command:   models.CommandPulse,
				CreatedAt: testNow.Add(-60 * time.Minute),
			},
			wantCommand: true,
		},
		{
			name:        "no prior command allows watering",
			wantCommand: true,
		},
		{
			name: "non-pulse last command does not block",
			lastCommand: &models.Command{
				Command:   models.CommandOff,
				CreatedAt: testNow.Add(-5 * time.Minute),
			},
			wantCommand: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &MoistureRule{}
			ctx := testContext()
			ctx.Readings[models.SensorSoilMoisture] = 20
			if tt.lastCommand != nil {
				ctx.LastCommands[models.ActuatorPump] = tt.lastCommand
			}

			res := rule.Evaluate(ctx)
			if got := len(res.Commands) == 1; got != tt.wantCommand {
				t.Errorf("command issued = %t, want %t (%s)", got, tt.wantCommand, res.Reason)
			}
			gotAlert := false
			for _, a := range res.Alerts {
				if a.Type == models.AlertWateringCooldown && a.Severity == models.SeverityWarn {
					gotAlert = true
				}
			}
			if gotAlert != tt.wantAlert {
				t.Errorf("cooldown alert = %t, want %t (%s)", gotAlert, tt.wantAlert, res.Reason)
			}
		})
	}
}

func TestMoistureRuleAboveMinimumNoAction(t *testing.T) {
	rule := &MoistureRule{}
	ctx := testContext()
	ctx.Readings[models.SensorSoilMoisture] = 30 // equal to the minimum

	res := rule.Evaluate(ctx)
	if !res.Executed {
		t.Fatal("rule did not execute")
	}
	if res.HasActions() {
		t.Errorf("moisture at the minimum produced actions: %+v %+v", res.Commands, res.Alerts)
	}
}
