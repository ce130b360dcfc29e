package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	coordinator "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Coordinator"
	logger "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Logger"
)

// HistoryController serves the capped irrigation event log
type HistoryController struct {
	coord  *coordinator.Coordinator
	logger *logger.Logger
}

// NewHistoryController creates a new history controller
func NewHistoryController(coord *coordinator.Coordinator, logger *logger.Logger) *HistoryController {
	return &HistoryController{
		coord:  coord,
		logger: logger,
	}
}

// RegisterRoutes registers the history routes with Gin
func (c *HistoryController) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/history", c.GetHistory)
	router.GET("/api/logs", c.GetLogs)
}

func (c *HistoryController) GetHistory(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	ctx.JSON(http.StatusOK, c.coord.History(page, limit))
}

func (c *HistoryController) GetLogs(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"items": c.coord.Logs()})
}
