package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mailsift/mailsift/interfaces"
)

// HealthCheck provides a simple health check endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Status reports which mailboxes currently have a sync run live.
func Status(syncService interfaces.SyncService) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := syncService.ActiveMailboxes()
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"activeSyncs": active,
		})
	}
}
