package reservation

import (
	"context"
	"errors"
	"time"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/shared/daterange"
)

var (
	ErrInvalidUnits     = errors.New("reservation: required units must be positive")
	ErrPropertyRequired = errors.New("reservation: property id required")
)

type ID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// CountsTowardOccupancy reports whether the reservation still claims capacity.
func (s Status) CountsTowardOccupancy() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// ActiveStatuses are the statuses counted as occupancy.
func ActiveStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed}
}

type Reservation struct {
	ID            ID                   `json:"id"`
	PropertyID    inventory.PropertyID `json:"property_id"`
	Range         daterange.DateRange  `json:"range"`
	RequiredUnits int                  `json:"required_units"`
	Status        Status               `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Units is the capacity the reservation claims; unset means one unit.
func (r Reservation) Units() int {
	if r.RequiredUnits < 1 {
		return 1
	}
	return r.RequiredUnits
}

// Repository is the read side the engine depends on. Implementations must
// return reservations whose range overlaps r and whose status is in statuses.
type Repository interface {
	FindOverlapping(ctx context.Context, propertyID inventory.PropertyID, r daterange.DateRange, statuses []Status, excludeID ID) ([]Reservation, error)
	// FindAllActive loads pending and confirmed reservations; an empty
	// propertyID means every property.
	FindAllActive(ctx context.Context, propertyID inventory.PropertyID) ([]Reservation, error)
}

// Writer persists reservations created by the booking workflow.
type Writer interface {
	Save(ctx context.Context, r Reservation) error
}

type CreateParams struct {
	ID            ID
	PropertyID    inventory.PropertyID
	Range         daterange.DateRange
	RequiredUnits int
	CreatedAt     time.Time
}

func New(params CreateParams) (Reservation, error) {
	if params.PropertyID == "" {
		return Reservation{}, ErrPropertyRequired
	}
	if params.RequiredUnits < 1 {
		return Reservation{}, ErrInvalidUnits
	}
	if err := params.Range.Validate(); err != nil {
		return Reservation{}, err
	}
	return Reservation{
		ID:            params.ID,
		PropertyID:    params.PropertyID,
		Range:         params.Range,
		RequiredUnits: params.RequiredUnits,
		Status:        StatusPending,
		CreatedAt:     params.CreatedAt.UTC(),
	}, nil
}

// Matches applies the repository filter contract in memory.
func Matches(r Reservation, propertyID inventory.PropertyID, dr daterange.DateRange, statuses []Status, excludeID ID) bool {
	if r.PropertyID != propertyID {
		return false
	}
	if excludeID != "" && r.ID == excludeID {
		return false
	}
	if !hasStatus(statuses, r.Status) {
		return false
	}
	return r.Range.Overlaps(dr)
}

func hasStatus(statuses []Status, s Status) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}
