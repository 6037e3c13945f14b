package overbooking

import (
	"math"
	"time"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

const (
	mediumRiskScore = 20
	highRiskScore   = 40

	pointsOccupancyCritical = 30
	pointsOccupancyElevated = 15
	pointsCapacityShortfall = 25
	pointsBufferViolation   = 15
	pointsIneligible        = 35
)

const (
	FactorOccupancyCritical  = "occupancy_critical"
	FactorOccupancyElevated  = "occupancy_elevated"
	FactorCapacityShortfall  = "capacity_shortfall"
	FactorBufferViolation    = "buffer_violation"
	FactorHighDemand         = "high_demand"
	FactorIneligibleProperty = "ineligible_property"
)

const (
	RecommendMonitor             = "Monitor for potential conflicts"
	RecommendPrepareAlternatives = "Prepare alternative accommodation in case of a conflict"
	RecommendCoordinateTurnover  = "Coordinate rapid turnover with housekeeping"
	RecommendHighDemand          = "High-demand period: reconfirm arrivals early"
	RecommendIneligibleProperty  = "Property type is not eligible for overbooking"
	RecommendBlackout            = "Overbooking is disabled on blackout dates"
	RecommendManualReview        = "High risk: require manual review before accepting"
)

// CountingMode selects how existing reservations consume capacity.
type CountingMode int

const (
	// CountUnits charges each reservation its own RequiredUnits.
	CountUnits CountingMode = iota
	// CountBookings charges one unit per reservation regardless of size.
	CountBookings
)

type Factor struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type Input struct {
	Inventory     inventory.Inventory
	Candidate     daterange.DateRange
	RequiredUnits int
	Overlapping   []reservation.Reservation
	Capacity      int
	Policy        Policy
	Counting      CountingMode
}

type Analysis struct {
	Score                 int
	Level                 RiskLevel
	BookedUnits           int
	AvailableUnits        int
	OccupancyPercentage   float64
	OverbookingPercentage float64
	CanOverbook           bool
	Eligible              bool
	BufferViolations      []reservation.ID
	SeasonalPeriods       []string
	BlackoutDates         []time.Time
	Factors               []Factor
	Recommendations       []string
}

// BookedUnits sums the capacity claimed by rs under the given counting mode.
func BookedUnits(rs []reservation.Reservation, mode CountingMode) int {
	if mode == CountBookings {
		return len(rs)
	}
	total := 0
	for _, r := range rs {
		total += r.Units()
	}
	return total
}

// Analyze scores a candidate reservation. It is a pure function: the same
// input always yields the same score, factors and recommendation order.
func Analyze(in Input) Analysis {
	required := in.RequiredUnits
	if required < 1 {
		required = 1
	}
	a := Analysis{
		BookedUnits: BookedUnits(in.Overlapping, in.Counting),
		Eligible:    in.Policy.Eligible(in.Inventory.PropertyType),
	}
	a.AvailableUnits = max(in.Capacity-a.BookedUnits, 0)

	if in.Capacity > 0 {
		capacity := float64(in.Capacity)
		a.OccupancyPercentage = float64(a.BookedUnits) * 100 / capacity
		a.OverbookingPercentage = math.Max(0, float64(a.BookedUnits+required-in.Capacity)*100/capacity)
	} else {
		a.OccupancyPercentage = 100
		a.OverbookingPercentage = 100
	}

	add := func(name string, points int) {
		a.Score += points
		a.Factors = append(a.Factors, Factor{Name: name, Points: points})
	}

	occupancyFired := false
	switch {
	case a.OccupancyPercentage > 90:
		add(FactorOccupancyCritical, pointsOccupancyCritical)
		occupancyFired = true
	case a.OccupancyPercentage > 75:
		add(FactorOccupancyElevated, pointsOccupancyElevated)
		occupancyFired = true
	}

	shortfall := a.AvailableUnits < required
	if shortfall {
		add(FactorCapacityShortfall, pointsCapacityShortfall)
	}

	a.BufferViolations = bufferViolations(in.Candidate, in.Overlapping, in.Policy.BufferHours)
	if len(a.BufferViolations) > 0 {
		add(FactorBufferViolation, pointsBufferViolation)
	}

	weight := 0
	for _, sp := range in.Policy.SeasonalPeriods {
		if sp.Intersects(in.Candidate) {
			a.SeasonalPeriods = append(a.SeasonalPeriods, sp.Name)
			weight = max(weight, sp.EffectiveWeight())
		}
	}
	if weight > 0 {
		add(FactorHighDemand, weight)
	}

	if !a.Eligible {
		add(FactorIneligibleProperty, pointsIneligible)
	}

	a.Level = levelFor(a.Score)
	a.BlackoutDates = in.Policy.BlackoutsWithin(in.Candidate)

	a.CanOverbook = in.Policy.Enabled &&
		in.Capacity > 0 &&
		a.OverbookingPercentage <= in.Policy.MaxOverbookingPercentage &&
		a.Level != RiskHigh &&
		len(a.BlackoutDates) == 0

	alert := in.Policy.RiskAlertThreshold > 0 && a.OccupancyPercentage >= in.Policy.RiskAlertThreshold
	if occupancyFired || alert {
		a.Recommendations = append(a.Recommendations, RecommendMonitor)
	}
	if shortfall {
		a.Recommendations = append(a.Recommendations, RecommendPrepareAlternatives)
	}
	if len(a.BufferViolations) > 0 {
		a.Recommendations = append(a.Recommendations, RecommendCoordinateTurnover)
	}
	if weight > 0 {
		a.Recommendations = append(a.Recommendations, RecommendHighDemand)
	}
	if !a.Eligible {
		a.Recommendations = append(a.Recommendations, RecommendIneligibleProperty)
	}
	if len(a.BlackoutDates) > 0 {
		a.Recommendations = append(a.Recommendations, RecommendBlackout)
	}
	if a.Level == RiskHigh {
		a.Recommendations = append(a.Recommendations, RecommendManualReview)
	}
	return a
}

func levelFor(score int) RiskLevel {
	switch {
	case score >= highRiskScore:
		return RiskHigh
	case score >= mediumRiskScore:
		return RiskMedium
	default:
		return RiskLow
	}
}

// bufferViolations lists reservations that do not overlap the candidate but
// sit closer to it than the required turnover gap.
func bufferViolations(candidate daterange.DateRange, rs []reservation.Reservation, bufferHours float64) []reservation.ID {
	if bufferHours <= 0 {
		return nil
	}
	required := time.Duration(bufferHours * float64(time.Hour))
	var ids []reservation.ID
	for _, r := range rs {
		if r.Range.Overlaps(candidate) {
			continue
		}
		if candidate.Gap(r.Range) < required {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
