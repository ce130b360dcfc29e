package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	coordinator "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Coordinator"
	logger "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Logger"
	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
)

// ScheduleController handles watering schedule CRUD
type ScheduleController struct {
	coord  *coordinator.Coordinator
	logger *logger.Logger
}

// NewScheduleController creates a new schedule controller
func NewScheduleController(coord *coordinator.Coordinator, logger *logger.Logger) *ScheduleController {
	return &ScheduleController{
		coord:  coord,
		logger: logger,
	}
}

// RegisterRoutes registers the schedule routes with Gin
func (c *ScheduleController) RegisterRoutes(router *gin.Engine) {
	schedules := router.Group("/api/schedules")
	{
		schedules.GET("", c.ListSchedules)
		schedules.POST("", c.CreateSchedule)
		schedules.DELETE("/:id", c.DeleteSchedule)
	}
}

type createScheduleRequest struct {
	TimeOfDay       string `json:"time_of_day" binding:"required"`
	Action          string `json:"action" binding:"required"`
	DurationMinutes int    `json:"duration_minutes"`
	Frequency       string `json:"frequency" binding:"required"`
	Date            string `json:"date"`
}

func (c *ScheduleController) ListSchedules(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"items": c.coord.Schedules()})
}

func (c *ScheduleController) CreateSchedule(ctx *gin.Context) {
	var req createScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sched, err := c.coord.AddSchedule(agrimodels.Schedule{
		TimeOfDay:       req.TimeOfDay,
		Action:          req.Action,
		DurationMinutes: req.DurationMinutes,
		Frequency:       req.Frequency,
		Date:            req.Date,
	})
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.logger.WithField("schedule_id", sched.ID).Info("schedule created")
	ctx.JSON(http.StatusCreated, sched)
}

func (c *ScheduleController) DeleteSchedule(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := c.coord.DeleteSchedule(id); err != nil {
		if errors.Is(err, coordinator.ErrScheduleNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
