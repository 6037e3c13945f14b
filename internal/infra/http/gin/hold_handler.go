package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"roomrisk/internal/app/commands"
	"roomrisk/internal/app/handlers/reservations"
)

type HoldHandler struct {
	Commands commands.Bus
}

type holdRequest struct {
	CheckIn  time.Time `json:"check_in" binding:"required"`
	CheckOut time.Time `json:"check_out" binding:"required"`
	Units    int       `json:"units"`
}

// Create holds units for a new pending reservation. A rejected hold is a
// regular outcome and answers 409 with the availability assessment.
func (h HoldHandler) Create(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req holdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := reservations.HoldUnitsCommand{
		ReservationID:   uuid.NewString(),
		PropertyID:      c.Param("id"),
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		Units:           unitsOrDefault(req.Units),
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[reservations.HoldUnitsCommand, *reservations.HoldUnitsResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	if !result.Held {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

var _ HoldHTTP = HoldHandler{}
