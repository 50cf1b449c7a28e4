package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/groupbuy_api/internal/service"
	"github.com/GTDGit/groupbuy_api/internal/utils"
)

// AdminHandler serves the back-office badge and dashboard reads.
type AdminHandler struct {
	reports *service.ReportService
}

func NewAdminHandler(reports *service.ReportService) *AdminHandler {
	return &AdminHandler{reports: reports}
}

// GetNotificationSummary handles GET /api/notifications/summary.
func (h *AdminHandler) GetNotificationSummary(c *gin.Context) {
	sum, err := h.reports.NotificationSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Notification summary retrieved", sum)
}

// GetDashboardSummary handles GET /api/dashboard-summary.
func (h *AdminHandler) GetDashboardSummary(c *gin.Context) {
	sum, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Dashboard summary retrieved", sum)
}
