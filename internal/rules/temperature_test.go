package rules

import (
	"testing"

	"plantcare/internal/models"
)

func TestTemperatureRule(t *testing.T) {
	tests := []struct {
		name      string
		temp      float64
		wantAlert models.AlertType
	}{
		{name: "below minimum", temp: 10, wantAlert: models.AlertTempLow},
		{name: "above maximum", temp: 35, wantAlert: models.AlertTempHigh},
		{name: "inside band", temp: 22},
		{name: "exactly at minimum is safe", temp: 15},
		{name: "exactly at maximum is safe", temp: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &TemperatureRule{}
			ctx := testContext()
			ctx.Readings[models.SensorAirTemperature] = tt.temp

			res := rule.Evaluate(ctx)
			if !res.Executed {
				t.Fatal("rule did not execute")
			}
			if len(res.Commands) != 0 {
				t.Errorf("temperature rule issued commands: %+v", res.Commands)
			}
			if tt.wantAlert == "" {
				if len(res.Alerts) != 0 {
					t.Errorf("unexpected alerts: %+v", res.Alerts)
				}
				return
			}
			if len(res.Alerts) != 1 {
				t.Fatalf("alerts = %+v, want exactly one %s", res.Alerts, tt.wantAlert)
			}
			if res.Alerts[0].Type != tt.wantAlert {
				t.Errorf("alert type = %s, want %s", res.Alerts[0].Type, tt.wantAlert)
			}
			if res.Alerts[0].Severity != models.SeverityWarn {
				t.Errorf("severity = %s, want warn", res.Alerts[0].Severity)
			}
		})
	}
}

func TestTemperatureRuleCanRun(t *testing.T) {
	rule := &TemperatureRule{}
	ctx := testContext()
	ctx.Readings[models.SensorAirTemperature] = 22

	if !rule.CanRun(ctx) {
		t.Error("cannot run with reading and both bounds set")
	}
	ctx.Profile.TempMax = nil
	if rule.CanRun(ctx) {
		t.Error("can run with only temp_min set")
	}
	ctx.Profile.TempMax = floatPtr(30)
	ctx.Profile.TempMin = nil
	if rule.CanRun(ctx) {
		t.Error("can run with only temp_max set")
	}
}
