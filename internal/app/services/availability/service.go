package availability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/overbooking"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

var (
	ErrRepositoryUnavailable = errors.New("availability: repository unavailable")
	ErrInvalidRequest        = errors.New("availability: invalid request")
)

// Service is the availability and overbooking decision engine.
//
// It reads reservations, inventory and policy through its collaborators on
// every call and keeps no state of its own, so it is safe for concurrent use.
// A decision reflects a snapshot: two callers can both see a unit as free.
// Callers that act on a decision must serialise the check-then-write sequence
// per property themselves (see the reservations hold handler) and can call
// CheckAvailability again once they hold the lock.
type Service struct {
	Reservations reservation.Repository
	Inventory    inventory.Provider
	Policies     overbooking.PolicyProvider
	Logger       *slog.Logger
	// Counting selects how existing reservations consume capacity.
	Counting overbooking.CountingMode
	Now      func() time.Time
}

type Request struct {
	PropertyID           inventory.PropertyID
	Range                daterange.DateRange
	RequiredUnits        int
	ExcludeReservationID reservation.ID
	IncludeAlternatives  bool
	MaxAlternatives      int
	SearchRadiusDays     int
}

func (r Request) validate() error {
	if r.PropertyID == "" {
		return fmt.Errorf("%w: property id required", ErrInvalidRequest)
	}
	if err := r.Range.ValidateStay(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.RequiredUnits < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, reservation.ErrInvalidUnits)
	}
	return nil
}

// CheckAvailability decides whether RequiredUnits can be claimed for Range.
// It never mutates reservation state. A property without resolvable capacity
// yields a rejected Result rather than an error.
func (s *Service) CheckAvailability(ctx context.Context, req Request) (Result, error) {
	if err := s.ensureDependencies(); err != nil {
		return Result{}, err
	}
	if err := req.validate(); err != nil {
		return Result{}, err
	}
	res, err := s.decide(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if !res.Accepted && req.IncludeAlternatives {
		alts, err := s.FindAlternatives(ctx, AlternativesRequest{
			PropertyID:           req.PropertyID,
			Range:                req.Range,
			RequiredUnits:        req.RequiredUnits,
			ExcludeReservationID: req.ExcludeReservationID,
			MaxResults:           req.MaxAlternatives,
			SearchRadiusDays:     req.SearchRadiusDays,
		})
		if err != nil {
			s.logger().Warn("alternative search failed", "property_id", req.PropertyID, "error", err)
		}
		res.AlternativeWindows = alts
	}
	return res, nil
}

// FindOverlapping returns active reservations of the property that overlap r
// widened by bufferHours, sorted by check-in. excludeID drops the reservation
// being modified.
func (s *Service) FindOverlapping(ctx context.Context, propertyID inventory.PropertyID, r daterange.DateRange, bufferHours float64, excludeID reservation.ID) ([]reservation.Reservation, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	query := r.Expand(bufferHours)
	found, err := s.Reservations.FindOverlapping(ctx, propertyID, query, reservation.ActiveStatuses(), excludeID)
	if err != nil {
		return nil, unavailable("find overlapping reservations", err)
	}
	out := make([]reservation.Reservation, 0, len(found))
	for _, item := range found {
		if reservation.Matches(item, propertyID, query, reservation.ActiveStatuses(), excludeID) {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Range.CheckIn.Equal(out[j].Range.CheckIn) {
			return out[i].ID < out[j].ID
		}
		return out[i].Range.CheckIn.Before(out[j].Range.CheckIn)
	})
	return out, nil
}

func (s *Service) decide(ctx context.Context, req Request) (Result, error) {
	inv, err := s.Inventory.Inventory(ctx, req.PropertyID)
	if err != nil {
		return Result{}, unavailable("load inventory", err)
	}
	policy, err := s.Policies.Policy(ctx, req.PropertyID)
	if err != nil {
		return Result{}, unavailable("load policy", err)
	}
	if err := policy.Validate(); err != nil {
		return Result{}, err
	}

	res := Result{
		PropertyID:    req.PropertyID,
		Range:         req.Range,
		RequiredUnits: req.RequiredUnits,
		CheckedAt:     s.now(),
	}

	capacity, err := inventory.ResolveCapacity(inv)
	if err != nil {
		if errors.Is(err, inventory.ErrInvalidInventory) {
			s.logger().Info("property has no capacity", "property_id", req.PropertyID, "error", err)
			return noCapacity(res), nil
		}
		return Result{}, err
	}

	overlapping, err := s.FindOverlapping(ctx, req.PropertyID, req.Range, policy.BufferHours, req.ExcludeReservationID)
	if err != nil {
		return Result{}, err
	}

	analysis := overbooking.Analyze(overbooking.Input{
		Inventory:     inv,
		Candidate:     req.Range,
		RequiredUnits: req.RequiredUnits,
		Overlapping:   overlapping,
		Capacity:      capacity,
		Policy:        policy,
		Counting:      s.Counting,
	})

	res.TotalCapacity = capacity
	res.BookedUnits = analysis.BookedUnits
	res.AvailableUnits = analysis.AvailableUnits
	res.RiskLevel = analysis.Level
	res.RiskScore = analysis.Score
	res.OverbookingPercentage = analysis.OverbookingPercentage
	res.Factors = analysis.Factors
	res.Recommendations = analysis.Recommendations
	res.SeasonalPeriods = analysis.SeasonalPeriods
	res.ConflictingReservationIDs = make([]reservation.ID, 0, len(overlapping))
	for _, r := range overlapping {
		res.ConflictingReservationIDs = append(res.ConflictingReservationIDs, r.ID)
	}

	switch {
	case analysis.AvailableUnits >= req.RequiredUnits:
		res.Accepted = true
		res.Decision = DecisionAvailable
	case policy.AutoBlockHighRisk && analysis.Level == overbooking.RiskHigh:
		res.Decision = DecisionAutoBlocked
	case analysis.CanOverbook:
		res.Accepted = true
		res.Decision = DecisionOverbooked
	default:
		res.Decision = DecisionRejected
	}
	return res, nil
}

func (s *Service) ensureDependencies() error {
	if s.Reservations == nil || s.Inventory == nil || s.Policies == nil {
		return errors.New("availability: service missing dependencies")
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// unavailable wraps collaborator failures. Missing properties pass through
// untouched so callers can tell them apart.
func unavailable(op string, err error) error {
	if errors.Is(err, inventory.ErrPropertyNotFound) || errors.Is(err, ErrRepositoryUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrRepositoryUnavailable, op, err)
}
