// internal/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sensolog/internal/config"
	"sensolog/internal/database"
	"sensolog/internal/datalogger"
	"sensolog/internal/handler"
	"sensolog/internal/middleware"
	"sensolog/internal/model"
	"sensolog/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config      *config.Config
	logger      *zap.Logger
	db          *database.DB
	instruments map[int]*model.Instrument
	latest      *datalogger.LatestStore
	wsHandler   *handler.WebSocketHandler
}

// NewRouter creates a new router instance. db may be nil when the
// database sink is disabled.
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	db *database.DB,
	instruments map[int]*model.Instrument,
	latest *datalogger.LatestStore,
	wsHandler *handler.WebSocketHandler,
) *Router {
	return &Router{
		config:      config,
		logger:      logger,
		db:          db,
		instruments: instruments,
		latest:      latest,
		wsHandler:   wsHandler,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Server))
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.db, r.latest, r.config, r.logger)
	instrumentHandler := handler.NewInstrumentHandler(r.instruments, r.logger)
	measurementHandler := handler.NewMeasurementHandler(r.latest, r.logger)

	healthHandler.RegisterRoutes(router.Group(""))

	apiV1 := router.Group("/api/v1")
	instrumentHandler.RegisterRoutes(apiV1)
	measurementHandler.RegisterRoutes(apiV1)

	r.wsHandler.RegisterRoutes(router.Group("/ws"))

	r.logger.Info("All routes configured")
}
