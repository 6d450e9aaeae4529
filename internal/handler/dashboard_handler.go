package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"smartbin/portal/internal/service"
	"smartbin/portal/pkg/response"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.dashboardService.Stats(c.Request.Context())
	if err != nil {
		writeDashboardError(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *DashboardHandler) Overview(c *gin.Context) {
	overview, err := h.dashboardService.Overview(c.Request.Context())
	if err != nil {
		writeDashboardError(c, err)
		return
	}
	response.Success(c, overview)
}

func writeDashboardError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrStatsUnavailable) {
		response.ServiceUnavailable(c, err.Error())
		return
	}
	response.InternalError(c, "failed to load statistics")
}
