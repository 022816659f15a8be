package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireUser authenticates an operator principal and stores user_id in the
// request context
func (m *MiddlewareManager) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := m.auth.ValidateUserToken(c, c.GetHeader("Authorization"))
		if err != nil {
			log.Printf("WEB: user authentication failed: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

// RequireDevice authenticates a device principal and stores device_id in the
// request context
func (m *MiddlewareManager) RequireDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID, err := m.auth.ValidateDeviceToken(c, c.GetHeader("Authorization"))
		if err != nil {
			log.Printf("WEB: device authentication failed: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Set("device_id", deviceID)
		c.Next()
	}
}
