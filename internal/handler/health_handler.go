// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sensolog/internal/config"
	"sensolog/internal/database"
	"sensolog/internal/datalogger"
	"sensolog/internal/utils"
)

// CheckResult is one named health check outcome
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// HealthResponse is the health endpoint payload
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Cycles    int64                  `json:"cycles"`
	Checks    map[string]CheckResult `json:"checks"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db     *database.DB
	latest *datalogger.LatestStore
	config *config.Config
	logger *utils.ServiceLogger
}

// NewHealthHandler creates a new health handler. db may be nil when the
// database sink is disabled.
func NewHealthHandler(db *database.DB, latest *datalogger.LatestStore, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		latest: latest,
		config: config,
		logger: utils.NewServiceLogger(logger, "health-handler"),
	}
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.HealthCheck)
	router.GET("/live", h.LivenessCheck)
}

// HealthCheck performs general health check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Cycles:    h.latest.Cycles(),
		Checks:    make(map[string]CheckResult),
	}

	if h.db != nil {
		if err := h.db.HealthCheck(); err != nil {
			health.Status = "unhealthy"
			health.Checks["database"] = CheckResult{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			stats := h.db.GetStats()
			health.Checks["database"] = CheckResult{
				Status: "healthy",
				Data: map[string]interface{}{
					"open_connections": stats.OpenConnections,
					"in_use":           stats.InUse,
					"idle":             stats.Idle,
				},
			}
		}
	}

	if _, _, timestamp, ok := h.latest.Latest(); ok {
		health.Checks["datalogger"] = CheckResult{
			Status: "healthy",
			Data: map[string]interface{}{
				"last_row_at": timestamp.Format(time.RFC3339),
			},
		}
	} else {
		health.Checks["datalogger"] = CheckResult{
			Status:  "starting",
			Message: "no measurement rows logged yet",
		}
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health)
}

// LivenessCheck reports process liveness
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}
