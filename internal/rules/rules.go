// Package rules holds the automation rule set evaluated against each
// telemetry batch. Rules are pure: they read a per-device context snapshot
// and propose commands and alerts without touching storage, so each rule can
// be tested in isolation and the caller decides what to persist.
package rules

import (
	"time"

	"plantcare/internal/models"
)

// Context is the per-device snapshot all rules evaluate against in one pass
type Context struct {
	Device  *models.Device
	Profile *models.AutomationProfile
	// Readings is the latest value per sensor type from the batch
	Readings map[models.SensorType]float64
	// LastCommands is the most recent relevant ledger command per actuator
	// type: for pumps the most recent PULSE (cooldown basis), for other
	// actuators the most recent command of any kind. Durable state only;
	// the consumer may restart between batches.
	LastCommands map[models.ActuatorType]*models.Command
	Now          time.Time
}

// Result is the outcome of running one rule
type Result struct {
	RuleName string
	Executed bool
	// Reason is a human-readable explanation kept for operator debugging
	Reason   string
	Commands []models.Command
	Alerts   []models.Alert
}

// HasActions reports whether the rule proposed any commands or alerts
func (r Result) HasActions() bool {
	return len(r.Commands) > 0 || len(r.Alerts) > 0
}

// Rule is a single automation policy. CanRun reports whether the context
// carries everything the rule needs; a rule that cannot run is a no-op,
// not an error.
type Rule interface {
	Name() string
	CanRun(ctx *Context) bool
	Evaluate(ctx *Context) Result
}

// Registry returns the fixed, ordered rule set. Order only affects log
// ordering; rules read independent portions of the context.
func Registry() []Rule {
	return []Rule{
		&MoistureRule{},
		&TemperatureRule{},
		&WaterLevelRule{},
		&LightCycleRule{},
	}
}
