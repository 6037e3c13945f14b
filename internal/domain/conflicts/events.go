package conflicts

import (
	"time"

	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

type ConflictDetected struct {
	PropertyID     string              `json:"property_id"`
	Kind           Kind                `json:"kind"`
	Severity       Severity            `json:"severity"`
	ReservationIDs []reservation.ID    `json:"reservation_ids"`
	Period         daterange.DateRange `json:"period"`
	OverlapDays    int                 `json:"overlap_days"`
	At             time.Time           `json:"at"`
}

func (e ConflictDetected) EventName() string     { return "conflicts.detected" }
func (e ConflictDetected) AggregateID() string   { return e.PropertyID }
func (e ConflictDetected) OccurredAt() time.Time { return e.At }

func ConflictDetectedEvent(c Conflict, at time.Time) ConflictDetected {
	return ConflictDetected{
		PropertyID:     string(c.PropertyID),
		Kind:           c.Kind,
		Severity:       c.Severity,
		ReservationIDs: append([]reservation.ID(nil), c.InvolvedReservationIDs...),
		Period:         c.Period,
		OverlapDays:    c.OverlapDays,
		At:             at.UTC(),
	}
}
