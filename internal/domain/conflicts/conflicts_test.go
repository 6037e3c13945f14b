package conflicts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

func res(id string, pid inventory.PropertyID, from, to int) reservation.Reservation {
	return reservation.Reservation{
		ID:            reservation.ID(id),
		PropertyID:    pid,
		Range:         daterange.MustNew(daterange.Date(2026, 4, from), daterange.Date(2026, 4, to)),
		RequiredUnits: 1,
		Status:        reservation.StatusConfirmed,
	}
}

func TestDetectNoOverlapsReturnsEmpty(t *testing.T) {
	rs := []reservation.Reservation{
		res("a", "p1", 1, 3),
		res("b", "p1", 3, 5),
		res("c", "p1", 7, 9),
		res("d", "p2", 1, 9),
	}
	got, skipped := Detect(rs, Options{})
	assert.Empty(t, got)
	assert.Empty(t, skipped)
}

func TestDetectSingleOverlapSurfacesOneConflict(t *testing.T) {
	rs := []reservation.Reservation{
		res("a", "p1", 1, 3),
		res("b", "p1", 3, 5),
		res("c", "p1", 7, 9),
		res("x", "p1", 8, 12),
	}
	got, _ := Detect(rs, Options{})
	require.Len(t, got, 1)
	c := got[0]
	assert.Equal(t, KindIntervalOverlap, c.Kind)
	assert.Equal(t, []reservation.ID{"c", "x"}, c.InvolvedReservationIDs)
	assert.Equal(t, 1, c.OverlapDays)
	assert.GreaterOrEqual(t, c.OverlapDays, 1)
	assert.Equal(t, SeverityMedium, c.Severity)
	assert.Equal(t, SuggestedActions(), c.SuggestedActions)
	assert.Equal(t, daterange.MustNew(daterange.Date(2026, 4, 8), daterange.Date(2026, 4, 9)), c.Period)
}

func TestDetectSeverityByOverlapLength(t *testing.T) {
	rs := []reservation.Reservation{
		res("long-a", "p1", 1, 10),
		res("long-b", "p1", 5, 12),
	}
	got, _ := Detect(rs, Options{})
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].OverlapDays)
	assert.Equal(t, SeverityHigh, got[0].Severity)
}

func TestDetectPartialDayOverlapRoundsUp(t *testing.T) {
	a := res("a", "p1", 1, 3)
	b := res("b", "p1", 1, 3)
	b.Range = daterange.MustNew(daterange.Date(2026, 4, 2).Add(20*time.Hour), daterange.Date(2026, 4, 6))
	got, _ := Detect([]reservation.Reservation{a, b}, Options{})
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].OverlapDays)
	assert.Equal(t, SeverityMedium, got[0].Severity)
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, SeverityLow, SeverityFor(0))
	assert.Equal(t, SeverityMedium, SeverityFor(1))
	assert.Equal(t, SeverityMedium, SeverityFor(2))
	assert.Equal(t, SeverityHigh, SeverityFor(3))
}

func TestDetectIgnoresInactiveAndSkipsInvalid(t *testing.T) {
	cancelled := res("cancelled", "p1", 1, 5)
	cancelled.Status = reservation.StatusCancelled
	noShow := res("noshow", "p1", 1, 5)
	noShow.Status = reservation.StatusNoShow
	broken := res("broken", "p1", 1, 5)
	broken.Range = daterange.DateRange{CheckIn: daterange.Date(2026, 4, 5), CheckOut: daterange.Date(2026, 4, 1)}

	got, skipped := Detect([]reservation.Reservation{res("a", "p1", 1, 5), cancelled, noShow, broken}, Options{})
	assert.Empty(t, got)
	require.Len(t, skipped, 1)
	assert.Equal(t, reservation.ID("broken"), skipped[0].ReservationID)
}

func TestDetectGroupsByProperty(t *testing.T) {
	rs := []reservation.Reservation{
		res("b1", "p2", 1, 5),
		res("a1", "p1", 1, 5),
		res("b2", "p2", 2, 4),
		res("a2", "p1", 4, 6),
	}
	got, _ := Detect(rs, Options{})
	require.Len(t, got, 2)
	assert.Equal(t, inventory.PropertyID("p1"), got[0].PropertyID)
	assert.Equal(t, inventory.PropertyID("p2"), got[1].PropertyID)
	assert.Equal(t, []reservation.ID{"b1", "b2"}, got[1].InvolvedReservationIDs)
}

func TestDetectCapacityExceeded(t *testing.T) {
	rs := []reservation.Reservation{
		res("a", "p1", 1, 5),
		res("b", "p1", 2, 4),
		res("c", "p1", 3, 6),
	}
	rs[0].RequiredUnits = 2

	got, _ := Detect(rs, Options{Capacity: map[inventory.PropertyID]int{"p1": 3}})

	var capacity []Conflict
	for _, c := range got {
		if c.Kind == KindCapacityExceeded {
			capacity = append(capacity, c)
		}
	}
	require.Len(t, capacity, 1)
	c := capacity[0]
	// day 2: a(2)+b = 3; days 3 and 4: a(2)+b+c = 4 and a(2)+c = 3
	assert.Equal(t, daterange.MustNew(daterange.Date(2026, 4, 3), daterange.Date(2026, 4, 4)), c.Period)
	assert.Equal(t, 1, c.OverlapDays)
	assert.Equal(t, 1, c.ExcessUnits)
	assert.Equal(t, []reservation.ID{"a", "b", "c"}, c.InvolvedReservationIDs)
}

func TestDetectCapacityPassIsOptIn(t *testing.T) {
	rs := []reservation.Reservation{res("a", "p1", 1, 5), res("b", "p1", 2, 4)}
	got, _ := Detect(rs, Options{})
	for _, c := range got {
		assert.NotEqual(t, KindCapacityExceeded, c.Kind)
	}
}

func TestDetectSkipsStaysBeyondMaximumLength(t *testing.T) {
	endless := res("endless", "p1", 1, 2)
	endless.Range = daterange.MustNew(daterange.Date(2000, 1, 1), daterange.Date(9999, 1, 1))
	rs := []reservation.Reservation{endless, res("a", "p1", 1, 3)}

	got, skipped := Detect(rs, Options{Capacity: map[inventory.PropertyID]int{"p1": 1}})
	assert.Empty(t, got)
	require.Len(t, skipped, 1)
	assert.Equal(t, reservation.ID("endless"), skipped[0].ReservationID)
}
