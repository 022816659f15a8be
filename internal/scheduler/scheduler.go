package scheduler

import (
	"context"
	"log"
	"time"

	"plantcare/internal/models"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// DeviceLister resolves which devices need periodic evaluation
type DeviceLister interface {
	ListLampScheduleDeviceIDs(ctx context.Context) ([]string, error)
}

// BatchPublisher appends sweep batches to the telemetry stream
type BatchPublisher interface {
	Publish(ctx context.Context, batch models.TelemetryBatch) error
}

// Scheduler drives time-based rule evaluation. Lamp cycles must flip even
// when a device sends no telemetry, so the sweep publishes empty batches
// for every lamp-scheduled device; they travel the same stream as real
// telemetry, which keeps per-device evaluation serialized.
type Scheduler struct {
	cron      *cron.Cron
	devices   DeviceLister
	publisher BatchPublisher
}

func NewScheduler(devices DeviceLister, publisher BatchPublisher) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		devices:   devices,
		publisher: publisher,
	}
}

// AddLightSweep registers the periodic sweep with a cron spec like "@every 1m"
func (s *Scheduler) AddLightSweep(spec string) error {
	_, err := s.cron.AddFunc(spec, s.runLightSweep)
	if err != nil {
		log.Printf("SCHEDULER: Failed to schedule light sweep with spec '%s': %v", spec, err)
		return err
	}
	log.Printf("SCHEDULER: Light sweep scheduled with spec '%s'", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("SCHEDULER: Cron scheduler started")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("SCHEDULER: Cron scheduler stopped")
}

func (s *Scheduler) runLightSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deviceIDs, err := s.devices.ListLampScheduleDeviceIDs(ctx)
	if err != nil {
		log.Printf("SCHEDULER: Light sweep device listing failed: %v", err)
		return
	}

	published := 0
	for _, deviceID := range deviceIDs {
		batch := models.TelemetryBatch{
			DeviceID:  deviceID,
			BatchID:   "sweep-" + uuid.NewString(),
			CreatedAt: time.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, batch); err != nil {
			log.Printf("SCHEDULER: Sweep publish for device %s failed: %v", deviceID, err)
			continue
		}
		published++
	}
	if published > 0 {
		log.Printf("SCHEDULER: Light sweep published %d batches", published)
	}
}
