package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.ApiService/controllers"
	container "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Container"
	coordinator "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Coordinator"
	agriingestor "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Ingestor"
	persistence "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Persistence"
	implementation "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Repository/Implementation"
	scheduler "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Scheduler"
)

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	logger.Info("Starting irrigation coordinator")

	cfg := ctr.GetConfig()

	// Connect to the document store and create repositories
	mongoClient, err := ctr.GetMongoClient()
	if err != nil {
		logger.FatalWithError(err, "Failed to connect to MongoDB")
	}
	scheduleColl, err := ctr.GetScheduleCollection()
	if err != nil {
		logger.FatalWithError(err, "Failed to open schedule collection")
	}
	historyColl, err := ctr.GetHistoryCollection()
	if err != nil {
		logger.FatalWithError(err, "Failed to open history collection")
	}
	scheduleRepo := implementation.NewMongoScheduleRepository(scheduleColl)
	historyRepo := implementation.NewMongoHistoryRepository(historyColl)

	// Load persisted state
	loadCtx, loadCancel := context.WithTimeout(context.Background(), 30*time.Second)
	schedules, err := scheduleRepo.LoadAll(loadCtx)
	if err != nil {
		logger.FatalWithError(err, "Failed to load schedules")
	}
	history, err := historyRepo.LoadRecent(loadCtx, cfg.Coordinator.HistoryCap)
	if err != nil {
		logger.FatalWithError(err, "Failed to load irrigation history")
	}
	loadCancel()
	logger.WithField("schedules", len(schedules)).WithField("events", len(history)).Info("Persisted state loaded")

	// Coordinator owns all device state
	coord := coordinator.New(cfg.Coordinator, logger)
	coord.LoadState(schedules, history)

	// Persistence writer, driven by the coordinator's dirty notices
	writer := persistence.NewWriter(coord, scheduleRepo, historyRepo,
		cfg.Coordinator.FlushDebounce, cfg.Coordinator.FlushMaxPending, cfg.Coordinator.HistoryCap, logger)
	coord.SetFlusher(writer)

	// MQTT transport and schedule engine
	ingestor := agriingestor.New(cfg, coord, logger)
	engine := scheduler.New(ingestor, coord, logger)
	coord.SetRebuilder(engine)

	runCtx, cancel := context.WithCancel(context.Background())
	go coord.Run(runCtx)
	go coord.RunMonitor(runCtx)
	go coord.RunHeartbeat(runCtx)

	if err := ingestor.Start(runCtx); err != nil {
		// commands will return NotConnected until the broker comes back
		logger.ErrorWithError(err, "MQTT connect failed, continuing without transport")
	}

	// Arm fire triggers for the loaded schedules
	coord.RebuildTriggers()

	// Initialize Gin router
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// Configure CORS from config
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	// Create controllers and register routes
	controlController := controllers.NewControlController(coord, ingestor, logger)
	scheduleController := controllers.NewScheduleController(coord, logger)
	historyController := controllers.NewHistoryController(coord, logger)
	streamController := controllers.NewStreamController(coord, logger)
	statusController := controllers.NewStatusController(coord, ingestor, mongoClient, logger)

	controlController.RegisterRoutes(router)
	scheduleController.RegisterRoutes(router)
	historyController.RegisterRoutes(router)
	streamController.RegisterRoutes(router)
	statusController.RegisterRoutes(router)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("HTTP server starting on port " + cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithError(err, "Failed to start HTTP server")
		}
	}()

	logger.Info("Irrigation coordinator running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Server forced to shutdown")
	}

	engine.Stop()
	ingestor.Stop()

	// Final synchronous flush while the coordinator loop is still running
	writer.MarkDirty()
	if err := writer.Flush(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Final state flush failed")
	}

	cancel()
}
