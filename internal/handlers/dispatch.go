package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"os"

	"steeple/internal/database"
	"steeple/internal/models"
	"steeple/internal/services"

	"github.com/gin-gonic/gin"
)

var dispatchWorker *services.ReminderWorker

// RegisterDispatchWorker wires the worker the dispatch endpoints drive
func RegisterDispatchWorker(w *services.ReminderWorker) {
	dispatchWorker = w
}

// AdminTokenMiddleware guards the admin endpoints with a shared secret header
func AdminTokenMiddleware() gin.HandlerFunc {
	token := os.Getenv("ADMIN_API_TOKEN")
	return func(c *gin.Context) {
		supplied := c.GetHeader("X-Admin-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// TriggerDispatchRun runs the reminder dispatch job immediately
func TriggerDispatchRun(c *gin.Context) {
	if dispatchWorker == nil {
		handleError(c, http.StatusServiceUnavailable, "Dispatch worker is not running", errors.New("no dispatch worker registered"))
		return
	}

	result, err := dispatchWorker.RunOnce()
	if err != nil {
		if errors.Is(err, services.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		handleError(c, http.StatusInternalServerError, "Dispatch run failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":          result.RunID.String(),
		"total_processed": result.TotalProcessed,
		"succeeded":       result.Succeeded,
		"errors":          result.Errors,
		"summary":         result.Summary(),
	})
}

// GetDispatchStatus returns the most recent dispatch runs
func GetDispatchStatus(c *gin.Context) {
	var logs []models.DispatchLog
	err := database.GetDB().Order("started_at DESC").Limit(10).Find(&logs).Error
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to load dispatch history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": logs})
}
