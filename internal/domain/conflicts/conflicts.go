package conflicts

import (
	"fmt"
	"sort"
	"time"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

type Kind string

const (
	KindIntervalOverlap  Kind = "interval_overlap"
	KindCapacityExceeded Kind = "capacity_exceeded"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

const (
	ActionReviewAllocation   = "Review room allocation for the overlapping reservations"
	ActionContactGuests      = "Contact guests to offer rebooking"
	ActionArrangeAlternative = "Arrange alternate accommodation"
)

// SuggestedActions is the fixed action list attached to every conflict.
func SuggestedActions() []string {
	return []string{ActionReviewAllocation, ActionContactGuests, ActionArrangeAlternative}
}

type Conflict struct {
	Kind                   Kind                 `json:"kind"`
	Severity               Severity             `json:"severity"`
	PropertyID             inventory.PropertyID `json:"property_id"`
	InvolvedReservationIDs []reservation.ID     `json:"involved_reservation_ids"`
	Period                 daterange.DateRange  `json:"period"`
	OverlapDays            int                  `json:"overlap_days"`
	ExcessUnits            int                  `json:"excess_units,omitempty"`
	SuggestedActions       []string             `json:"suggested_actions"`
}

// Skipped records a reservation that could not take part in the sweep.
type Skipped struct {
	ReservationID reservation.ID
	PropertyID    inventory.PropertyID
	Reason        string
}

type Options struct {
	// Capacity enables the capacity_exceeded pass for the listed properties.
	Capacity map[inventory.PropertyID]int
}

// SeverityFor classifies an overlap length in days.
func SeverityFor(overlapDays int) Severity {
	switch {
	case overlapDays >= 3:
		return SeverityHigh
	case overlapDays >= 1:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Detect compares every pair of active reservations per property. The cost is
// quadratic in the number of reservations of a single property.
func Detect(rs []reservation.Reservation, opts Options) ([]Conflict, []Skipped) {
	groups, order, skipped := group(rs)
	var out []Conflict
	for _, pid := range order {
		items := groups[pid]
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Range.CheckIn.Equal(items[j].Range.CheckIn) {
				return items[i].ID < items[j].ID
			}
			return items[i].Range.CheckIn.Before(items[j].Range.CheckIn)
		})
		out = append(out, pairwise(pid, items)...)
		if capacity, ok := opts.Capacity[pid]; ok {
			out = append(out, overCapacity(pid, items, capacity)...)
		}
	}
	return out, skipped
}

func group(rs []reservation.Reservation) (map[inventory.PropertyID][]reservation.Reservation, []inventory.PropertyID, []Skipped) {
	groups := make(map[inventory.PropertyID][]reservation.Reservation)
	var order []inventory.PropertyID
	var skipped []Skipped
	for _, r := range rs {
		if !r.Status.CountsTowardOccupancy() {
			continue
		}
		if err := r.Range.ValidateStay(); err != nil {
			skipped = append(skipped, Skipped{ReservationID: r.ID, PropertyID: r.PropertyID, Reason: err.Error()})
			continue
		}
		if _, seen := groups[r.PropertyID]; !seen {
			order = append(order, r.PropertyID)
		}
		groups[r.PropertyID] = append(groups[r.PropertyID], r)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return groups, order, skipped
}

func pairwise(pid inventory.PropertyID, items []reservation.Reservation) []Conflict {
	var out []Conflict
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]
			// sorted by check-in: nothing later can overlap a
			if !b.Range.CheckIn.Before(a.Range.CheckOut) {
				break
			}
			shared, ok := a.Range.Intersection(b.Range)
			if !ok {
				continue
			}
			days := a.Range.OverlapDays(b.Range)
			out = append(out, Conflict{
				Kind:                   KindIntervalOverlap,
				Severity:               SeverityFor(days),
				PropertyID:             pid,
				InvolvedReservationIDs: []reservation.ID{a.ID, b.ID},
				Period:                 shared,
				OverlapDays:            days,
				SuggestedActions:       SuggestedActions(),
			})
		}
	}
	return out
}

// overCapacity sweeps day by day and reports each contiguous run of days on
// which active units exceed capacity.
func overCapacity(pid inventory.PropertyID, items []reservation.Reservation, capacity int) []Conflict {
	if len(items) == 0 {
		return nil
	}
	load := make(map[time.Time]int)
	claims := make(map[time.Time][]reservation.ID)
	var days []time.Time
	for _, r := range items {
		for _, d := range r.Range.Days() {
			if _, ok := load[d]; !ok {
				days = append(days, d)
			}
			load[d] += r.Units()
			claims[d] = append(claims[d], r.ID)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var out []Conflict
	var run *Conflict
	involved := map[reservation.ID]struct{}{}
	flush := func() {
		if run == nil {
			return
		}
		run.InvolvedReservationIDs = sortedIDs(involved)
		run.Severity = SeverityFor(run.OverlapDays)
		out = append(out, *run)
		run = nil
		involved = map[reservation.ID]struct{}{}
	}
	for _, d := range days {
		excess := load[d] - capacity
		if excess <= 0 {
			flush()
			continue
		}
		if run != nil && !run.Period.CheckOut.Equal(d) {
			flush()
		}
		if run == nil {
			run = &Conflict{
				Kind:             KindCapacityExceeded,
				PropertyID:       pid,
				Period:           daterange.DateRange{CheckIn: d, CheckOut: d.AddDate(0, 0, 1)},
				SuggestedActions: SuggestedActions(),
			}
		} else {
			run.Period.CheckOut = d.AddDate(0, 0, 1)
		}
		run.OverlapDays++
		run.ExcessUnits = max(run.ExcessUnits, excess)
		for _, id := range claims[d] {
			involved[id] = struct{}{}
		}
	}
	flush()
	return out
}

func sortedIDs(set map[reservation.ID]struct{}) []reservation.ID {
	ids := make([]reservation.ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s/%s %s %v (%dd)", c.Kind, c.Severity, c.PropertyID, c.InvolvedReservationIDs, c.OverlapDays)
}
