package api

import (
	"context"
	"errors"
	"log"

	"plantcare/internal/db"
	"plantcare/internal/models"
	"plantcare/internal/web/middleware"
	webModels "plantcare/internal/web/models"

	"github.com/gin-gonic/gin"
)

// CommandStore is the ledger surface the command routes need
type CommandStore interface {
	ClaimPendingCommands(ctx context.Context, deviceID string) ([]models.Command, error)
	AckCommand(ctx context.Context, deviceID, commandID string, status models.CommandStatus, feedback map[string]interface{}) (*models.Command, error)
	GetOwnedDevice(ctx context.Context, deviceID, userID string) (*models.Device, error)
	GetActuator(ctx context.Context, actuatorID, deviceID string) (*models.Actuator, error)
	InsertCommand(ctx context.Context, cmd *models.Command) error
	TouchDeviceLastSeen(ctx context.Context, deviceID string) error
}

func RegisterCommandRoutes(r *gin.Engine, mw *middleware.MiddlewareManager, store CommandStore) {
	device := r.Group("/commands")
	device.Use(mw.RequireDevice())
	{
		// Claim-and-return: every returned command is atomically marked
		// sent, so an immediate second poll comes back empty.
		device.GET("", func(c *gin.Context) {
			deviceID := c.GetString("device_id")
			commands, err := store.ClaimPendingCommands(c, deviceID)
			if err != nil {
				log.Printf("API: claim for device %s failed: %v", deviceID, err)
				c.JSON(500, gin.H{"error": "Failed to fetch commands"})
				return
			}
			if err := store.TouchDeviceLastSeen(c, deviceID); err != nil {
				log.Printf("API: last_seen update for device %s failed: %v", deviceID, err)
			}

			out := []webModels.DeviceCommandOut{}
			for _, cmd := range commands {
				out = append(out, webModels.DeviceCommandOut{
					ID:         cmd.ID,
					Command:    cmd.Command,
					Payload:    cmd.Payload,
					ActuatorID: cmd.ActuatorID,
					CreatedAt:  cmd.CreatedAt,
				})
			}
			c.JSON(200, out)
		})

		device.POST("/ack", func(c *gin.Context) {
			deviceID := c.GetString("device_id")
			var req webModels.CommandAckRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(400, gin.H{"error": "Invalid request"})
				return
			}
			if req.Status == "" {
				req.Status = models.StatusAcked
			}
			if req.Status != models.StatusAcked && req.Status != models.StatusFailed {
				c.JSON(400, gin.H{"error": "Status must be acked or failed"})
				return
			}

			cmd, err := store.AckCommand(c, deviceID, req.CommandID, req.Status, req.Feedback)
			if errors.Is(err, db.ErrNotFound) {
				c.JSON(404, gin.H{"error": "Command not found"})
				return
			}
			if errors.Is(err, db.ErrTerminalCommand) {
				c.JSON(409, gin.H{"error": "Command already finalized"})
				return
			}
			if err != nil {
				log.Printf("API: ack of command %s failed: %v", req.CommandID, err)
				c.JSON(500, gin.H{"error": "Failed to acknowledge command"})
				return
			}
			c.JSON(200, gin.H{"id": cmd.ID, "status": cmd.Status, "message": cmd.Message})
		})
	}

	operator := r.Group("/commands/devices")
	operator.Use(mw.RequireUser())
	{
		operator.POST("/:device_id", func(c *gin.Context) {
			userID := c.GetString("user_id")
			deviceID := c.Param("device_id")

			var req webModels.CommandCreateRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(400, gin.H{"error": "Invalid request"})
				return
			}

			if _, err := store.GetOwnedDevice(c, deviceID, userID); err != nil {
				if errors.Is(err, db.ErrNotFound) {
					c.JSON(404, gin.H{"error": "Device not found"})
					return
				}
				log.Printf("API: device lookup %s failed: %v", deviceID, err)
				c.JSON(500, gin.H{"error": "Failed to fetch device"})
				return
			}

			actuator, err := store.GetActuator(c, req.ActuatorID, deviceID)
			if err != nil {
				if errors.Is(err, db.ErrNotFound) {
					c.JSON(400, gin.H{"error": "Unknown actuator"})
					return
				}
				log.Printf("API: actuator lookup %s failed: %v", req.ActuatorID, err)
				c.JSON(500, gin.H{"error": "Failed to fetch actuator"})
				return
			}

			cmd := models.Command{
				DeviceID:   deviceID,
				ActuatorID: &actuator.ID,
				Command:    req.Command,
				Payload:    req.Payload,
			}
			if err := store.InsertCommand(c, &cmd); err != nil {
				log.Printf("API: command insert for device %s failed: %v", deviceID, err)
				c.JSON(500, gin.H{"error": "Failed to create command"})
				return
			}
			c.JSON(201, cmd)
		})
	}
}
