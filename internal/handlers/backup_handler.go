package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kyazs/BI-Record-Tracking/internal/middleware"
	"github.com/Kyazs/BI-Record-Tracking/internal/services"
)

type BackupHandler struct {
	backupService *services.BackupService
}

func NewBackupHandler(backupService *services.BackupService) *BackupHandler {
	return &BackupHandler{backupService: backupService}
}

// @Summary Trigger Backup
// @Description Enqueue a backup of the applicant register, rate limited per user
// @Tags Backup
// @Produce json
// @Success 202 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Security BearerAuth
// @Router /backup [post]
func (h *BackupHandler) Trigger(c *gin.Context) {
	err := h.backupService.Trigger(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, services.ErrRateLimited) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "A backup was already requested recently. Please try again later.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Backup started"})
}

// @Summary Backup Status
// @Description Get the status of the most recent backup run
// @Tags Backup
// @Produce json
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /backup/status [get]
func (h *BackupHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": h.backupService.Status(c.Request.Context())})
}
