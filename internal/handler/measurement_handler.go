// internal/handler/measurement_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sensolog/internal/datalogger"
	"sensolog/internal/utils"
)

// MeasurementHandler exposes the latest measurement row
type MeasurementHandler struct {
	latest *datalogger.LatestStore
	logger *utils.ServiceLogger
}

// NewMeasurementHandler creates a new measurement handler
func NewMeasurementHandler(latest *datalogger.LatestStore, logger *zap.Logger) *MeasurementHandler {
	return &MeasurementHandler{
		latest: latest,
		logger: utils.NewServiceLogger(logger, "measurement-handler"),
	}
}

// RegisterRoutes registers measurement routes
func (h *MeasurementHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/measurements/latest", h.LatestMeasurements)
}

// LatestMeasurements returns the most recent row, keyed by parameter
func (h *MeasurementHandler) LatestMeasurements(c *gin.Context) {
	header, values, timestamp, ok := h.latest.Latest()
	if !ok {
		utils.ErrorResponse(c, http.StatusNotFound, "No measurements logged yet", nil)
		return
	}

	row := make(map[string]*float64, len(header))
	for i, name := range header {
		row[name] = values[i]
	}

	utils.SuccessResponse(c, http.StatusOK, "Latest measurements retrieved", gin.H{
		"recorded_at": timestamp.Format(time.RFC3339),
		"values":      row,
	})
}
