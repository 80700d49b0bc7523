package insights

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/stats"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service *stats.Service
}

func NewHandler(service *stats.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats", h.Stats)

	insights := r.Group("/insights")
	{
		insights.GET("", h.Insights)
		insights.POST("/report", h.GenerateReport)
	}
}

// Stats always answers 200; a store failure yields a degraded snapshot.
func (h *Handler) Stats(c *gin.Context) {
	var scope model.StatsScope
	if err := c.ShouldBindQuery(&scope); err != nil || scope.Days < 0 {
		httputil.RespondWithBadRequest(c, "invalid stats scope")
		return
	}

	snapshot, err := h.service.ComputeStats(c.Request.Context(), scope)
	if err != nil {
		_ = c.Error(err)
	}
	httputil.RespondWithSuccess(c, snapshot)
}

func (h *Handler) Insights(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.RespondWithBadRequest(c, "invalid days")
			return
		}
		days = n
	}

	snapshot, err := h.service.ComputeInsights(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(err)
	}
	httputil.RespondWithSuccess(c, snapshot)
}

func (h *Handler) GenerateReport(c *gin.Context) {
	var req model.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBadRequest(c, "invalid request body")
		return
	}

	report, err := h.service.GenerateReport(c.Request.Context(), &req, middleware.ActorFrom(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, report)
}
