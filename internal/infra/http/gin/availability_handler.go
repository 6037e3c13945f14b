package ginserver

import (
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"

	"roomrisk/internal/app/dto"
	availabilityapp "roomrisk/internal/app/handlers/availability"
	"roomrisk/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
}

type checkAvailabilityRequest struct {
	CheckIn              time.Time `json:"check_in" binding:"required"`
	CheckOut             time.Time `json:"check_out" binding:"required"`
	Units                int       `json:"units"`
	ExcludeReservationID string    `json:"exclude_reservation_id"`
	IncludeAlternatives  bool      `json:"include_alternatives"`
	MaxAlternatives      int       `json:"max_alternatives"`
	SearchRadiusDays     int       `json:"search_radius_days"`
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	var req checkAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	query := availabilityapp.CheckAvailabilityQuery{
		PropertyID:           c.Param("id"),
		CheckIn:              req.CheckIn,
		CheckOut:             req.CheckOut,
		Units:                unitsOrDefault(req.Units),
		ExcludeReservationID: req.ExcludeReservationID,
		IncludeAlternatives:  req.IncludeAlternatives,
		MaxAlternatives:      req.MaxAlternatives,
		SearchRadiusDays:     req.SearchRadiusDays,
	}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.AvailabilityResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type findAlternativesRequest struct {
	CheckIn              time.Time `json:"check_in" binding:"required"`
	CheckOut             time.Time `json:"check_out" binding:"required"`
	Units                int       `json:"units"`
	ExcludeReservationID string    `json:"exclude_reservation_id"`
	MaxResults           int       `json:"max_results"`
	SearchRadiusDays     int       `json:"search_radius_days"`
}

func (h AvailabilityHandler) Alternatives(c *gin.Context) {
	var req findAlternativesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	query := availabilityapp.FindAlternativesQuery{
		PropertyID:           c.Param("id"),
		CheckIn:              req.CheckIn,
		CheckOut:             req.CheckOut,
		Units:                unitsOrDefault(req.Units),
		ExcludeReservationID: req.ExcludeReservationID,
		MaxResults:           req.MaxResults,
		SearchRadiusDays:     req.SearchRadiusDays,
	}
	result, err := queries.Ask[availabilityapp.FindAlternativesQuery, dto.Alternatives](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Conflicts(c *gin.Context) {
	checkCapacity := false
	if raw := c.Query("check_capacity"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "check_capacity must be a boolean"})
			return
		}
		checkCapacity = v
	}
	query := availabilityapp.DetectConflictsQuery{PropertyID: c.Query("property_id"), CheckCapacity: checkCapacity}
	result, err := queries.Ask[availabilityapp.DetectConflictsQuery, dto.ConflictReport](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// unitsOrDefault treats an omitted unit count as a single unit.
func unitsOrDefault(units int) int {
	if units == 0 {
		return 1
	}
	return units
}

var _ AvailabilityHTTP = AvailabilityHandler{}
