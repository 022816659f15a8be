// Package engine runs the automation loop: it consumes telemetry batches
// from the durable stream, evaluates the rule set against each device's
// snapshot, persists the resulting commands and alerts, and only then
// acknowledges stream progress. Processing is at-least-once; rule side
// effects are gated by durable state (cooldown window, open-alert
// deduplication, actuator history) so redelivery cannot double-fire.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"plantcare/internal/models"
	"plantcare/internal/rules"
	"plantcare/internal/stream"
)

// TelemetryStream is the durable batch log the engine consumes
type TelemetryStream interface {
	Read(ctx context.Context, count int64, block time.Duration) ([]stream.Entry, error)
	Ack(ctx context.Context, id string) error
}

// Store is the repository and ledger surface the engine needs. GetDeviceByID
// returns (nil, nil) for unknown devices.
type Store interface {
	GetDeviceByID(ctx context.Context, id string) (*models.Device, error)
	LastCommandForActuator(ctx context.Context, actuatorID string) (*models.Command, error)
	LastPulseForActuator(ctx context.Context, actuatorID string) (*models.Command, error)
	InsertCommand(ctx context.Context, cmd *models.Command) error
	InsertPulseCommand(ctx context.Context, cmd *models.Command, cooldownMin int) (bool, error)
	InsertAlert(ctx context.Context, alert *models.Alert) (bool, error)
}

// Notifier hands alerts to the fire-and-forget delivery queue
type Notifier interface {
	EnqueueAlertNotification(alert models.Alert) error
}

// Options tune the consumer loop
type Options struct {
	PollTimeout  time.Duration // blocking stream read timeout
	BatchSize    int64         // max entries per read
	RetryBackoff time.Duration // pause after a failed entry or read
	OpTimeout    time.Duration // bound on repository/ledger calls per entry
}

func (o *Options) fillDefaults() {
	if o.PollTimeout == 0 {
		o.PollTimeout = 5 * time.Second
	}
	if o.BatchSize == 0 {
		o.BatchSize = 10
	}
	if o.RetryBackoff == 0 {
		o.RetryBackoff = time.Second
	}
	if o.OpTimeout == 0 {
		o.OpTimeout = 10 * time.Second
	}
}

// Engine is the single logical stream consumer. Running two instances
// against the same stream is not supported: the cooldown check and the
// command insert are only race-free through the ledger's conditional insert,
// and entry ordering assumes one reader.
type Engine struct {
	stream   TelemetryStream
	store    Store
	notifier Notifier
	rules    []rules.Rule
	opts     Options
	now      func() time.Time
}

// NewEngine wires the consumer with explicit dependencies
func NewEngine(ts TelemetryStream, store Store, notifier Notifier, opts Options) *Engine {
	opts.fillDefaults()
	return &Engine{
		stream:   ts,
		store:    store,
		notifier: notifier,
		rules:    rules.Registry(),
		opts:     opts,
		now:      time.Now,
	}
}

// Run consumes the stream until ctx is cancelled. The in-flight entry is
// always finished before returning: entry processing runs under its own
// bounded timeout, not under ctx, so shutdown never leaves partial rule
// application behind.
func (e *Engine) Run(ctx context.Context) error {
	log.Printf("ENGINE: starting with %d rules", len(e.rules))
	for {
		select {
		case <-ctx.Done():
			log.Println("ENGINE: stopped")
			return ctx.Err()
		default:
		}

		entries, err := e.stream.Read(ctx, e.opts.BatchSize, e.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("ENGINE: stopped")
				return ctx.Err()
			}
			log.Printf("ENGINE: stream read failed: %v", err)
			e.sleep(ctx, e.opts.RetryBackoff)
			continue
		}

		for _, entry := range entries {
			if err := e.ProcessEntry(entry); err != nil {
				// Not acked: the entry is redelivered on the next
				// read. Back off and re-poll so one stuck device
				// cannot spin the loop.
				log.Printf("ENGINE: entry %s failed: %v", entry.ID, err)
				e.sleep(ctx, e.opts.RetryBackoff)
				break
			}
		}
	}
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// ProcessEntry handles one stream entry end to end. Malformed payloads and
// referential misses are dropped with an ack; infrastructure errors are
// returned without acking so the entry is redelivered.
func (e *Engine) ProcessEntry(entry stream.Entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.OpTimeout)
	defer cancel()

	batch, err := stream.ParseEntry(entry)
	if err != nil {
		log.Printf("ENGINE: dropping malformed entry %s: %v", entry.ID, err)
		return e.stream.Ack(ctx, entry.ID)
	}

	device, err := e.store.GetDeviceByID(ctx, batch.DeviceID)
	if err != nil {
		return fmt.Errorf("load device %s: %w", batch.DeviceID, err)
	}
	if device == nil {
		log.Printf("ENGINE: device %s not found, dropping batch %s", batch.DeviceID, batch.BatchID)
		return e.stream.Ack(ctx, entry.ID)
	}
	if device.Profile == nil {
		// No profile means automation is disabled, not defaulted
		return e.stream.Ack(ctx, entry.ID)
	}

	rctx, err := e.buildContext(ctx, device, batch)
	if err != nil {
		return fmt.Errorf("build context for device %s: %w", device.ID, err)
	}

	results := e.evaluate(rctx)
	if err := e.persist(ctx, device, batch, results); err != nil {
		return fmt.Errorf("persist outputs for device %s: %w", device.ID, err)
	}

	return e.stream.Ack(ctx, entry.ID)
}

// buildContext assembles the per-device snapshot: latest reading per sensor
// type from the batch and the most recent relevant ledger command per
// actuator type (last pulse for pumps, last command otherwise).
func (e *Engine) buildContext(ctx context.Context, device *models.Device, batch *models.TelemetryBatch) (*rules.Context, error) {
	readings := map[models.SensorType]float64{}
	for _, item := range batch.Items {
		sensor := device.SensorByID(item.SensorID)
		if sensor == nil {
			// Unknown sensor in the batch is a referential miss for
			// that reading only, not for the whole entry
			log.Printf("ENGINE: device %s batch %s references unknown sensor %s", device.ID, batch.BatchID, item.SensorID)
			continue
		}
		// Items arrive in recording order; the last one per type wins
		readings[sensor.Type] = item.Value
	}

	lastCommands := map[models.ActuatorType]*models.Command{}
	for _, actuator := range device.Actuators {
		var cmd *models.Command
		var err error
		if actuator.Type == models.ActuatorPump {
			// The cooldown cares about the last pulse, not the last
			// command: a newer manual on/off must not hide it
			cmd, err = e.store.LastPulseForActuator(ctx, actuator.ID)
		} else {
			cmd, err = e.store.LastCommandForActuator(ctx, actuator.ID)
		}
		if err != nil {
			return nil, err
		}
		lastCommands[actuator.Type] = cmd
	}

	return &rules.Context{
		Device:       device,
		Profile:      device.Profile,
		Readings:     readings,
		LastCommands: lastCommands,
		Now:          e.now(),
	}, nil
}

// evaluate runs every rule, isolating panics so one rule cannot prevent the
// others from running or crash the loop.
func (e *Engine) evaluate(rctx *rules.Context) []rules.Result {
	results := make([]rules.Result, 0, len(e.rules))
	for _, rule := range e.rules {
		res := runRule(rule, rctx)
		if res.HasActions() {
			log.Printf("ENGINE: rule %s: %s -> %d commands, %d alerts",
				res.RuleName, res.Reason, len(res.Commands), len(res.Alerts))
		}
		results = append(results, res)
	}
	return results
}

func runRule(rule rules.Rule, rctx *rules.Context) (res rules.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = rules.Result{
				RuleName: rule.Name(),
				Executed: false,
				Reason:   fmt.Sprintf("rule panicked: %v", r),
			}
		}
	}()
	if !rule.CanRun(rctx) {
		return rules.Result{
			RuleName: rule.Name(),
			Executed: false,
			Reason:   "missing required data",
		}
	}
	return rule.Evaluate(rctx)
}

// persist writes the proposed commands and alerts. Pulse commands go through
// the cooldown-guarded insert; alerts are deduplicated against the open
// window and only freshly created ones are pushed to the notifier.
func (e *Engine) persist(ctx context.Context, device *models.Device, batch *models.TelemetryBatch, results []rules.Result) error {
	for _, res := range results {
		for i := range res.Commands {
			cmd := res.Commands[i]
			if cmd.Command == models.CommandPulse {
				created, err := e.store.InsertPulseCommand(ctx, &cmd, device.Profile.WateringCooldownMin)
				if err != nil {
					return err
				}
				if !created {
					log.Printf("ENGINE: pulse for device %s suppressed by cooldown window (batch %s)", device.ID, batch.BatchID)
				}
				continue
			}
			if err := e.store.InsertCommand(ctx, &cmd); err != nil {
				return err
			}
		}

		for i := range res.Alerts {
			alert := res.Alerts[i]
			created, err := e.store.InsertAlert(ctx, &alert)
			if err != nil {
				return err
			}
			if !created {
				continue
			}
			if e.notifier != nil {
				if err := e.notifier.EnqueueAlertNotification(alert); err != nil {
					// Delivery is fire-and-forget; losing a
					// notification must not fail the entry
					log.Printf("ENGINE: enqueue notification for alert %s failed: %v", alert.ID, err)
				}
			}
		}
	}
	return nil
}
