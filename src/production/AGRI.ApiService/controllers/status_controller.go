package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.ApiService/health"
	coordinator "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Coordinator"
	logger "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Logger"
	"go.mongodb.org/mongo-driver/mongo"
)

// Transport reports actuation transport health
type Transport interface {
	IsConnected() bool
}

// StatusController serves the state snapshot and the health endpoint
type StatusController struct {
	coord     *coordinator.Coordinator
	transport Transport
	mongo     *mongo.Client
	logger    *logger.Logger
}

// NewStatusController creates a new status controller
func NewStatusController(coord *coordinator.Coordinator, transport Transport, mongoClient *mongo.Client, logger *logger.Logger) *StatusController {
	return &StatusController{
		coord:     coord,
		transport: transport,
		mongo:     mongoClient,
		logger:    logger,
	}
}

// RegisterRoutes registers the status routes with Gin
func (c *StatusController) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/status", c.GetStatus)
	router.GET("/health", c.GetHealth)
}

// GetStatus returns the same full-state payload a new stream subscriber
// receives as its initial event.
func (c *StatusController) GetStatus(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.coord.Snapshot())
}

func (c *StatusController) GetHealth(ctx *gin.Context) {
	mongoStatus := "ok"
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()
	if err := health.Ping(pingCtx, c.mongo); err != nil {
		mongoStatus = "unreachable"
	}

	status := http.StatusOK
	if mongoStatus != "ok" {
		status = http.StatusServiceUnavailable
	}

	ctx.JSON(status, gin.H{
		"status":        "ok",
		"mongo":         mongoStatus,
		"mqtt":          c.transport.IsConnected(),
		"device_online": c.coord.Online(),
	})
}
