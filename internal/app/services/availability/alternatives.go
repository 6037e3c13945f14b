package availability

import (
	"context"
	"errors"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

const (
	DefaultMaxAlternatives  = 5
	DefaultSearchRadiusDays = 7
)

type AlternativesRequest struct {
	PropertyID           inventory.PropertyID
	Range                daterange.DateRange
	RequiredUnits        int
	ExcludeReservationID reservation.ID
	MaxResults           int
	SearchRadiusDays     int
}

// ProbeOffsets lists day offsets nearest first, later dates before earlier
// ones at equal distance: +1, -1, +2, -2, ...
func ProbeOffsets(radius int) []int {
	offsets := make([]int, 0, 2*radius)
	for d := 1; d <= radius; d++ {
		offsets = append(offsets, d, -d)
	}
	return offsets
}

// FindAlternatives probes same-length windows around the requested range and
// returns the accepted ones in probe order. Windows starting before today are
// skipped. A failing probe is logged and treated as unavailable; only a
// missing property aborts the search.
func (s *Service) FindAlternatives(ctx context.Context, req AlternativesRequest) ([]daterange.DateRange, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	base := Request{PropertyID: req.PropertyID, Range: req.Range, RequiredUnits: req.RequiredUnits, ExcludeReservationID: req.ExcludeReservationID}
	if err := base.validate(); err != nil {
		return nil, err
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxAlternatives
	}
	radius := req.SearchRadiusDays
	if radius <= 0 {
		radius = DefaultSearchRadiusDays
	}

	today := daterange.TruncateDay(s.now())
	log := s.logger().With("property_id", req.PropertyID)
	found := make([]daterange.DateRange, 0, maxResults)
	for _, offset := range ProbeOffsets(radius) {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		candidate := req.Range.Shift(offset)
		if candidate.CheckIn.Before(today) {
			continue
		}
		probe := base
		probe.Range = candidate
		res, err := s.decide(ctx, probe)
		if err != nil {
			if errors.Is(err, inventory.ErrPropertyNotFound) {
				return nil, err
			}
			log.Warn("alternative probe failed", "offset", offset, "error", err)
			continue
		}
		if !res.Accepted {
			continue
		}
		found = append(found, candidate)
		if len(found) >= maxResults {
			break
		}
	}
	return found, nil
}
