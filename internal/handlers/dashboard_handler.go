package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kyazs/BI-Record-Tracking/internal/models"
	"github.com/Kyazs/BI-Record-Tracking/internal/repository"
	"github.com/Kyazs/BI-Record-Tracking/internal/services"
)

type DashboardHandler struct {
	applicantService *services.ApplicantService
	userService      *services.UserService
}

func NewDashboardHandler(applicantService *services.ApplicantService, userService *services.UserService) *DashboardHandler {
	return &DashboardHandler{
		applicantService: applicantService,
		userService:      userService,
	}
}

// @Summary Dashboard Summary
// @Description Get record counts and the latest applicant records
// @Tags Dashboard
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /dashboard [get]
func (h *DashboardHandler) Index(c *gin.Context) {
	ctx := c.Request.Context()

	query := repository.NewListQuery()
	applicants, totalApplicants, err := h.applicantService.List(ctx, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	totalUsers, err := h.userService.Count(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	responses := make([]models.ApplicantResponse, 0, len(applicants))
	for i := range applicants {
		responses = append(responses, applicants[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"applicants":      responses,
		"totalApplicants": totalApplicants,
		"totalUsers":      totalUsers,
	})
}
