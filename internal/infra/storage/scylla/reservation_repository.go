package scylla

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gocql/gocql"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

const selectColumns = `SELECT reservation_id, property_id, check_in, check_out, required_units, status, created_at FROM reservations_by_property`

// ReservationRepository reads and writes reservations partitioned by
// property. Range and status filtering happens after the partition read, a
// property's reservation set being small enough to scan.
type ReservationRepository struct {
	session *gocql.Session
}

func NewReservationRepository(session *gocql.Session) *ReservationRepository {
	return &ReservationRepository{session: session}
}

func (r *ReservationRepository) FindOverlapping(ctx context.Context, propertyID inventory.PropertyID, dr daterange.DateRange, statuses []reservation.Status, excludeID reservation.ID) ([]reservation.Reservation, error) {
	rows, err := r.scan(r.session.Query(selectColumns+` WHERE property_id = ?`, string(propertyID)).WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return filterOverlapping(rows, propertyID, dr, statuses, excludeID), nil
}

func (r *ReservationRepository) FindAllActive(ctx context.Context, propertyID inventory.PropertyID) ([]reservation.Reservation, error) {
	q := r.session.Query(selectColumns)
	if propertyID != "" {
		q = r.session.Query(selectColumns+` WHERE property_id = ?`, string(propertyID))
	}
	rows, err := r.scan(q.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, item := range rows {
		if item.Status.CountsTowardOccupancy() {
			out = append(out, item)
		}
	}
	sortByCheckIn(out)
	return out, nil
}

func (r *ReservationRepository) Save(ctx context.Context, item reservation.Reservation) error {
	err := r.session.Query(`INSERT INTO reservations_by_property
		(property_id, reservation_id, check_in, check_out, required_units, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(item.PropertyID), string(item.ID), item.Range.CheckIn, item.Range.CheckOut,
		item.RequiredUnits, string(item.Status), item.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("scylla: save reservation %s: %w", item.ID, err)
	}
	return nil
}

func (r *ReservationRepository) scan(q *gocql.Query) ([]reservation.Reservation, error) {
	iter := q.Iter()
	var (
		out                          []reservation.Reservation
		id, pid, status              string
		checkIn, checkOut, createdAt time.Time
		units                        int
	)
	for iter.Scan(&id, &pid, &checkIn, &checkOut, &units, &status, &createdAt) {
		out = append(out, reservation.Reservation{
			ID:            reservation.ID(id),
			PropertyID:    inventory.PropertyID(pid),
			Range:         daterange.DateRange{CheckIn: checkIn.UTC(), CheckOut: checkOut.UTC()},
			RequiredUnits: units,
			Status:        reservation.Status(status),
			CreatedAt:     createdAt.UTC(),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("scylla: read reservations: %w", err)
	}
	return out, nil
}

func filterOverlapping(rows []reservation.Reservation, propertyID inventory.PropertyID, dr daterange.DateRange, statuses []reservation.Status, excludeID reservation.ID) []reservation.Reservation {
	var out []reservation.Reservation
	for _, item := range rows {
		if reservation.Matches(item, propertyID, dr, statuses, excludeID) {
			out = append(out, item)
		}
	}
	sortByCheckIn(out)
	return out
}

func sortByCheckIn(rs []reservation.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Range.CheckIn.Equal(rs[j].Range.CheckIn) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].Range.CheckIn.Before(rs[j].Range.CheckIn)
	})
}

var (
	_ reservation.Repository = (*ReservationRepository)(nil)
	_ reservation.Writer     = (*ReservationRepository)(nil)
)
