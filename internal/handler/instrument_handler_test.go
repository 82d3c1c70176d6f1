// internal/handler/instrument_handler_test.go
package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sensolog/internal/model"
)

func newInstrumentRouter(instruments map[int]*model.Instrument) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewInstrumentHandler(instruments, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func testInstruments() map[int]*model.Instrument {
	return map[int]*model.Instrument{
		20: {Address: 20, Name: "THERM-AIR", Family: model.FamilyThermometer},
		5:  {Address: 5, Name: "ANEMO-2000", Family: model.FamilyAnemometer, SerialNumber: "A-001"},
	}
}

func TestListInstruments(t *testing.T) {
	router := newInstrumentRouter(testInstruments())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/instruments", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Count       int                 `json:"count"`
			Instruments []*model.Instrument `json:"instruments"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	require.Equal(t, 2, response.Data.Count)

	// Address order, not map order.
	assert.Equal(t, 5, response.Data.Instruments[0].Address)
	assert.Equal(t, 20, response.Data.Instruments[1].Address)
}

func TestGetInstrument(t *testing.T) {
	router := newInstrumentRouter(testInstruments())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/instruments/5", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data model.Instrument `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ANEMO-2000", response.Data.Name)
	assert.Equal(t, "A-001", response.Data.SerialNumber)
}

func TestGetInstrumentNotFound(t *testing.T) {
	router := newInstrumentRouter(testInstruments())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/instruments/99", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetInstrumentInvalidAddress(t *testing.T) {
	router := newInstrumentRouter(testInstruments())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/instruments/abc", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
