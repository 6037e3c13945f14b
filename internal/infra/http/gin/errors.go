package ginserver

import (
	"context"
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"roomrisk/internal/app/middleware"
	"roomrisk/internal/app/policies"
	"roomrisk/internal/app/services/availability"
	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

// StatusFor maps engine and application errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrPropertyNotFound):
		return http.StatusNotFound
	case errors.Is(err, availability.ErrInvalidRequest),
		errors.Is(err, middleware.ErrValidation),
		errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, daterange.ErrStayTooLong),
		errors.Is(err, reservation.ErrInvalidUnits):
		return http.StatusBadRequest
	case errors.Is(err, middleware.ErrIdempotencyKeyReused):
		return http.StatusUnprocessableEntity
	case errors.Is(err, policies.ErrLockNotAcquired),
		errors.Is(err, middleware.ErrIdempotencyKeyInFlight):
		return http.StatusConflict
	case errors.Is(err, availability.ErrRepositoryUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.Error(err)
	c.JSON(status, gin.H{"error": msg})
}
