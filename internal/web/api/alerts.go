package api

import (
	"context"
	"errors"
	"log"

	"plantcare/internal/db"
	"plantcare/internal/models"
	"plantcare/internal/web/middleware"

	"github.com/gin-gonic/gin"
)

// AlertStore is the alert surface the operator routes need
type AlertStore interface {
	ListAlertsForUser(ctx context.Context, userID string) ([]models.Alert, error)
	ResolveAlert(ctx context.Context, alertID, userID string) error
}

func RegisterAlertRoutes(r *gin.Engine, mw *middleware.MiddlewareManager, store AlertStore) {
	alerts := r.Group("/alerts")
	alerts.Use(mw.RequireUser())
	{
		alerts.GET("", func(c *gin.Context) {
			userID := c.GetString("user_id")
			list, err := store.ListAlertsForUser(c, userID)
			if err != nil {
				log.Printf("API: alert listing for user %s failed: %v", userID, err)
				c.JSON(500, gin.H{"error": "Failed to fetch alerts"})
				return
			}
			c.JSON(200, list)
		})

		alerts.POST("/:id/resolve", func(c *gin.Context) {
			userID := c.GetString("user_id")
			alertID := c.Param("id")
			err := store.ResolveAlert(c, alertID, userID)
			if errors.Is(err, db.ErrNotFound) {
				c.JSON(404, gin.H{"error": "Alert not found"})
				return
			}
			if err != nil {
				log.Printf("API: alert resolve %s failed: %v", alertID, err)
				c.JSON(500, gin.H{"error": "Failed to resolve alert"})
				return
			}
			c.JSON(200, gin.H{"status": "Alert resolved"})
		})
	}
}
