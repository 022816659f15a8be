package taskqueue

import (
	"context"
	"encoding/json"
	"log"

	"plantcare/internal/db"

	"github.com/hibiken/asynq"
)

// Worker runs asynq handlers that deliver alert notifications
type Worker struct {
	db  *db.DB
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewWorker(redisAddr string, dbConn *db.DB) *Worker {
	w := &Worker{
		db:  dbConn,
		srv: asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{Concurrency: 10}),
		mux: asynq.NewServeMux(),
	}
	w.mux.HandleFunc(TypeAlertNotify, w.handleAlertNotify)
	return w
}

// Start runs the worker loop until Stop is called
func (w *Worker) Start() {
	log.Printf("TASKQUEUE: Workers started, waiting for tasks...")
	if err := w.srv.Run(w.mux); err != nil {
		log.Fatalf("TASKQUEUE: Failed to start workers: %v", err)
	}
}

func (w *Worker) Stop() {
	log.Printf("TASKQUEUE: Stopping workers...")
	w.srv.Stop()
	w.srv.Shutdown()
}

func (w *Worker) handleAlertNotify(ctx context.Context, t *asynq.Task) error {
	var payload AlertNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Printf("TASKQUEUE: Failed to unmarshal task payload: %v", err)
		return err
	}

	device, err := w.db.GetDeviceByID(ctx, payload.DeviceID)
	if err != nil {
		return err
	}
	if device == nil || device.OwnerID == nil {
		log.Printf("TASKQUEUE: Alert %s has no reachable owner, dropping", payload.AlertID)
		return nil
	}

	email, prefs, err := w.db.GetUserAlertChannels(ctx, *device.OwnerID)
	if err != nil {
		return err
	}

	// Delivery transports are configured per deployment; the default
	// build logs the notification on each enabled channel.
	if email != "" {
		log.Printf("TASKQUEUE: Notify %s via email: [%s] %s", email, payload.Severity, payload.Message)
	}
	if chatID, ok := prefs["telegram_chat_id"]; ok && chatID != "" {
		log.Printf("TASKQUEUE: Notify telegram chat %s: [%s] %s", chatID, payload.Severity, payload.Message)
	}
	return nil
}
