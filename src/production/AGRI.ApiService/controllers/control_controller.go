package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	coordinator "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Coordinator"
	agriingestor "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Ingestor"
	logger "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Logger"
	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
)

// ControlController handles manual actuator commands
type ControlController struct {
	coord  *coordinator.Coordinator
	pub    coordinator.ActuationPublisher
	logger *logger.Logger
}

// NewControlController creates a new control controller
func NewControlController(coord *coordinator.Coordinator, pub coordinator.ActuationPublisher, logger *logger.Logger) *ControlController {
	return &ControlController{
		coord:  coord,
		pub:    pub,
		logger: logger,
	}
}

// RegisterRoutes registers the control routes with Gin
func (c *ControlController) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/motor/control", c.ControlActuator)
}

type controlRequest struct {
	Action string `json:"action" binding:"required"`
}

func (c *ControlController) ControlActuator(ctx *gin.Context) {
	var req controlRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "action is required"})
		return
	}

	var on bool
	switch req.Action {
	case agrimodels.ActionOn:
		on = true
	case agrimodels.ActionOff:
		on = false
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "action must be on or off"})
		return
	}

	if err := c.coord.ControlActuator(c.pub, on); err != nil {
		if errors.Is(err, agriingestor.ErrNotConnected) {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "device transport not connected"})
			return
		}
		c.logger.ErrorWithError(err, "manual actuator command failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "action": req.Action})
}
