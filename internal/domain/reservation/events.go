package reservation

import (
	"time"

	"roomrisk/internal/domain/shared/daterange"
)

// Held is raised when units are claimed through a pending reservation.
type Held struct {
	ReservationID string              `json:"reservation_id"`
	PropertyID    string              `json:"property_id"`
	Range         daterange.DateRange `json:"range"`
	Units         int                 `json:"units"`
	Overbooked    bool                `json:"overbooked"`
	At            time.Time           `json:"at"`
}

func (e Held) EventName() string     { return "reservation.held" }
func (e Held) AggregateID() string   { return e.PropertyID }
func (e Held) OccurredAt() time.Time { return e.At }

func HeldEvent(r Reservation, overbooked bool) Held {
	return Held{
		ReservationID: string(r.ID),
		PropertyID:    string(r.PropertyID),
		Range:         r.Range,
		Units:         r.RequiredUnits,
		Overbooked:    overbooked,
		At:            r.CreatedAt,
	}
}
