package doctor

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	aptHandler "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/appointment"
	"github.com/jwalitptl/clinic-api/internal/service/stats"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// Handler serves the staff-facing portal: transitions, schedules and stats.
type Handler struct {
	appointments *appointment.Service
	stats        *stats.Service
}

func NewHandler(appointments *appointment.Service, stats *stats.Service) *Handler {
	return &Handler{appointments: appointments, stats: stats}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctor := r.Group("/doctor")
	{
		actions := doctor.Group("/appointments/:id")
		actions.POST("/accept", h.Accept)
		actions.POST("/reject", h.Reject)
		actions.POST("/reschedule", h.Reschedule)
		actions.POST("/start", h.Start)
		actions.POST("/complete", h.Complete)
		actions.POST("/cancel", h.Cancel)
		actions.PUT("/notes", h.UpdateNotes)

		doctor.GET("/schedule/today", h.TodaySchedule)
		doctor.GET("/schedule/upcoming", h.UpcomingSchedule)
		doctor.GET("/stats", h.Stats)
		doctor.GET("/analytics", h.Analytics)
	}
}

func (h *Handler) Accept(c *gin.Context) {
	id, ok := aptHandler.ParseID(c)
	if !ok {
		return
	}
	respond(c)(h.appointments.Accept(c.Request.Context(), id, middleware.ActorFrom(c)))
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := aptHandler.ParseID(c)
	if !ok {
		return
	}
	var req model.RejectRequest
	if !bindOptional(c, &req) {
		return
	}
	respond(c)(h.appointments.Reject(c.Request.Context(), id, req.Reason, middleware.ActorFrom(c)))
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, ok := aptHandler.ParseID(c)
	if !ok {
		return
	}
	var req model.RescheduleRequest
	if !bindOptional(c, &req) {
		return
	}
	respond(c)(h.appointments.Reschedule(c.Request.Context(), id, &req, middleware.ActorFrom(c)))
}

func (h *Handler) Start(c *gin.Context) {
	id, ok := aptHandler.ParseID(c)
	if !ok {
		return
	}
	respond(c)(h.appointments.Start(c.Request.Context(), id, middleware.ActorFrom(c)))
}

func (h *Handler) Complete(c *gin.Context) {
	id, ok := aptHandler.ParseID(c)
	if !ok {
		return
	}
	var req model.CompleteRequest
	if !bindOptional(c, &req) {
		return
	}
	respond(c)(h.appointments.Complete(c.Request.Context(), id, &req, middleware.ActorFrom(c)))
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := aptHandler.ParseID(c)
	if !ok {
		return
	}
	respond(c)(h.appointments.Cancel(c.Request.Context(), id, middleware.ActorFrom(c)))
}

func (h *Handler) UpdateNotes(c *gin.Context) {
	id, ok := aptHandler.ParseID(c)
	if !ok {
		return
	}
	var req model.NotesRequest
	if !bindOptional(c, &req) {
		return
	}
	respond(c)(h.appointments.UpdateNotes(c.Request.Context(), id, req.DoctorNotes, middleware.ActorFrom(c)))
}

func (h *Handler) TodaySchedule(c *gin.Context) {
	appointments, err := h.appointments.TodaySchedule(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) UpcomingSchedule(c *gin.Context) {
	limit := appointment.DefaultUpcomingLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.RespondWithBadRequest(c, "invalid limit")
			return
		}
		limit = n
	}

	appointments, err := h.appointments.UpcomingSchedule(c.Request.Context(), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) Stats(c *gin.Context) {
	snapshot, err := h.stats.ComputeStats(c.Request.Context(), model.StatsScope{})
	if err != nil {
		// The degraded snapshot is still rendered.
		_ = c.Error(err)
	}
	httputil.RespondWithSuccess(c, snapshot)
}

// Analytics reports stats for appointments created in the last period days.
func (h *Handler) Analytics(c *gin.Context) {
	period := stats.DefaultWindowDays
	if raw := c.Query("period"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.RespondWithBadRequest(c, "invalid period")
			return
		}
		period = n
	}

	snapshot, err := h.stats.ComputeStats(c.Request.Context(), model.StatsScope{Days: period})
	if err != nil {
		_ = c.Error(err)
	}
	httputil.RespondWithSuccess(c, snapshot)
}

func respond(c *gin.Context) func(*model.Appointment, error) {
	return func(apt *model.Appointment, err error) {
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, apt)
	}
}

// bindOptional decodes a JSON body when one is present.
func bindOptional(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		httputil.RespondWithBadRequest(c, "invalid request body")
		return false
	}
	return true
}
