package taskqueue

import (
	"encoding/json"
	"log"
	"time"

	"plantcare/internal/models"

	"github.com/hibiken/asynq"
)

const TypeAlertNotify = "alert:notify"

// AlertNotifyPayload carries the alert a worker should deliver
type AlertNotifyPayload struct {
	AlertID  string               `json:"alert_id"`
	DeviceID string               `json:"device_id"`
	Type     models.AlertType     `json:"type"`
	Severity models.AlertSeverity `json:"severity"`
	Message  string               `json:"message"`
}

// Client enqueues notification tasks for asynq workers
type Client struct {
	client *asynq.Client
}

func NewClient(redisAddr string) *Client {
	return &Client{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// EnqueueAlertNotification queues an alert for out-of-band delivery
func (c *Client) EnqueueAlertNotification(alert models.Alert) error {
	payload, err := json.Marshal(AlertNotifyPayload{
		AlertID:  alert.ID,
		DeviceID: alert.DeviceID,
		Type:     alert.Type,
		Severity: alert.Severity,
		Message:  alert.Message,
	})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeAlertNotify, payload)
	info, err := c.client.Enqueue(task, asynq.MaxRetry(3), asynq.Timeout(10*time.Second))
	if err != nil {
		log.Printf("TASKQUEUE: Failed to enqueue notification for alert %s: %v", alert.ID, err)
		return err
	}
	log.Printf("TASKQUEUE: Enqueued task %s for alert %s (%s/%s)", info.ID, alert.ID, alert.Type, alert.Severity)
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
