package rules

import (
	"testing"

	"plantcare/internal/models"
)

func TestWaterLevelRule(t *testing.T) {
	tests := []struct {
		name      string
		level     float64
		wantAlert bool
	}{
		{name: "below minimum", level: 10, wantAlert: true},
		{name: "at minimum is adequate", level: 20},
		{name: "above minimum", level: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &WaterLevelRule{}
			ctx := testContext()
			ctx.Readings[models.SensorWaterLevel] = tt.level

			res := rule.Evaluate(ctx)
			if !res.Executed {
				t.Fatal("rule did not execute")
			}
			if !tt.wantAlert {
				if res.HasActions() {
					t.Errorf("unexpected actions: %+v %+v", res.Commands, res.Alerts)
				}
				return
			}
			if len(res.Alerts) != 1 {
				t.Fatalf("alerts = %+v, want exactly one", res.Alerts)
			}
			a := res.Alerts[0]
			if a.Type != models.AlertWaterLow {
				t.Errorf("alert type = %s, want water_low", a.Type)
			}
			if a.Severity != models.SeverityCritical {
				t.Errorf("severity = %s, want critical", a.Severity)
			}
		})
	}
}

func TestWaterLevelRuleCanRun(t *testing.T) {
	rule := &WaterLevelRule{}
	ctx := testContext()
	if rule.CanRun(ctx) {
		t.Error("can run without a water level reading")
	}
	ctx.Readings[models.SensorWaterLevel] = 50
	if !rule.CanRun(ctx) {
		t.Error("cannot run with a water level reading")
	}
}
