// internal/handler/instrument_handler.go
package handler

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sensolog/internal/model"
	"sensolog/internal/utils"
)

// InstrumentHandler exposes the discovered instrument set. The set is
// fixed after the scan, so the handler serves an immutable snapshot.
type InstrumentHandler struct {
	instruments map[int]*model.Instrument
	logger      *utils.ServiceLogger
}

// NewInstrumentHandler creates a new instrument handler
func NewInstrumentHandler(instruments map[int]*model.Instrument, logger *zap.Logger) *InstrumentHandler {
	return &InstrumentHandler{
		instruments: instruments,
		logger:      utils.NewServiceLogger(logger, "instrument-handler"),
	}
}

// RegisterRoutes registers instrument routes
func (h *InstrumentHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/instruments", h.ListInstruments)
	router.GET("/instruments/:address", h.GetInstrument)
}

// ListInstruments returns all discovered instruments in address order
func (h *InstrumentHandler) ListInstruments(c *gin.Context) {
	instruments := make([]*model.Instrument, 0, len(h.instruments))
	for _, instrument := range h.instruments {
		instruments = append(instruments, instrument)
	}
	sort.Slice(instruments, func(i, j int) bool {
		return instruments[i].Address < instruments[j].Address
	})

	utils.SuccessResponse(c, http.StatusOK, "Instruments retrieved", gin.H{
		"instruments": instruments,
		"count":       len(instruments),
	})
}

// GetInstrument returns one instrument by bus address
func (h *InstrumentHandler) GetInstrument(c *gin.Context) {
	address, err := strconv.Atoi(c.Param("address"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid address", err)
		return
	}

	instrument, ok := h.instruments[address]
	if !ok {
		utils.ErrorResponse(c, http.StatusNotFound, "Instrument not found", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Instrument retrieved", instrument)
}
