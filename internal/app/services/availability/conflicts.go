package availability

import (
	"context"
	"time"

	"roomrisk/internal/domain/conflicts"
	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/reservation"
)

type DetectRequest struct {
	// PropertyID scopes the sweep; empty sweeps every property.
	PropertyID    inventory.PropertyID
	CheckCapacity bool
}

// ConflictReport is advisory: reservations may change while the sweep runs,
// so a reported conflict can already be resolved.
type ConflictReport struct {
	Conflicts   []conflicts.Conflict
	Scanned     int
	Skipped     []conflicts.Skipped
	GeneratedAt time.Time
}

// DetectConflicts scans active reservations for overlapping pairs and,
// optionally, days on which a property is sold beyond capacity. Invalid
// reservations and properties whose capacity cannot be resolved are logged
// and skipped.
func (s *Service) DetectConflicts(ctx context.Context, req DetectRequest) (ConflictReport, error) {
	if err := s.ensureDependencies(); err != nil {
		return ConflictReport{}, err
	}
	rs, err := s.Reservations.FindAllActive(ctx, req.PropertyID)
	if err != nil {
		return ConflictReport{}, unavailable("load active reservations", err)
	}
	if req.PropertyID != "" {
		rs = onlyProperty(rs, req.PropertyID)
	}

	opts := conflicts.Options{}
	if req.CheckCapacity {
		opts.Capacity = s.capacities(ctx, rs)
	}
	found, skipped := conflicts.Detect(rs, opts)

	log := s.logger()
	for _, sk := range skipped {
		log.Warn("reservation skipped in conflict sweep", "reservation_id", sk.ReservationID, "property_id", sk.PropertyID, "reason", sk.Reason)
	}
	if len(found) > 0 {
		log.Info("conflicts detected", "property_id", req.PropertyID, "count", len(found))
	}
	if found == nil {
		found = []conflicts.Conflict{}
	}
	return ConflictReport{
		Conflicts:   found,
		Scanned:     len(rs),
		Skipped:     skipped,
		GeneratedAt: s.now(),
	}, nil
}

func (s *Service) capacities(ctx context.Context, rs []reservation.Reservation) map[inventory.PropertyID]int {
	out := make(map[inventory.PropertyID]int)
	seen := make(map[inventory.PropertyID]bool)
	for _, r := range rs {
		if seen[r.PropertyID] {
			continue
		}
		seen[r.PropertyID] = true
		inv, err := s.Inventory.Inventory(ctx, r.PropertyID)
		if err != nil {
			s.logger().Warn("capacity check skipped", "property_id", r.PropertyID, "error", err)
			continue
		}
		capacity, err := inventory.ResolveCapacity(inv)
		if err != nil {
			// every active unit exceeds a zero-capacity property
			capacity = 0
		}
		out[r.PropertyID] = capacity
	}
	return out
}

func onlyProperty(rs []reservation.Reservation, pid inventory.PropertyID) []reservation.Reservation {
	out := rs[:0:0]
	for _, r := range rs {
		if r.PropertyID == pid {
			out = append(out, r)
		}
	}
	return out
}
