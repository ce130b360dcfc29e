package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	broadcaster "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Broadcaster"
	coordinator "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Coordinator"
	logger "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Logger"
)

// StreamController serves the SSE push stream consumed by dashboards
type StreamController struct {
	coord  *coordinator.Coordinator
	logger *logger.Logger
}

// NewStreamController creates a new stream controller
func NewStreamController(coord *coordinator.Coordinator, logger *logger.Logger) *StreamController {
	return &StreamController{
		coord:  coord,
		logger: logger,
	}
}

// RegisterRoutes registers the stream routes with Gin
func (c *StreamController) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/stream", c.Stream)
}

// Stream subscribes the connection to the broadcaster. The first event is
// always a full-state snapshot; the handler then relays live events until
// the client disconnects or the broadcaster drops the subscriber.
func (c *StreamController) Stream(ctx *gin.Context) {
	sub, err := c.coord.Subscribe()
	if err != nil {
		if errors.Is(err, broadcaster.ErrSubscriberLimit) {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "subscriber limit reached"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer c.coord.Unsubscribe(sub.ID)

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")

	clientGone := ctx.Request.Context().Done()
	ctx.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-sub.Events():
			if !ok {
				// dropped by the broadcaster
				return false
			}
			ctx.SSEvent("message", evt)
			return true
		case <-clientGone:
			return false
		}
	})
}
