package availability

import (
	"time"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/overbooking"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

// Decision explains why a Result was accepted or rejected.
type Decision string

const (
	DecisionAvailable   Decision = "available"
	DecisionOverbooked  Decision = "overbooked"
	DecisionRejected    Decision = "rejected"
	DecisionAutoBlocked Decision = "auto_blocked"
	DecisionNoCapacity  Decision = "no_capacity"
)

const RecommendNoCapacity = "Property has no claimable capacity"

// Result is the outcome of one availability decision. It is a value object
// and is never persisted by the engine.
type Result struct {
	PropertyID                inventory.PropertyID
	Range                     daterange.DateRange
	RequiredUnits             int
	Accepted                  bool
	Decision                  Decision
	TotalCapacity             int
	BookedUnits               int
	AvailableUnits            int
	ConflictingReservationIDs []reservation.ID
	RiskLevel                 overbooking.RiskLevel
	RiskScore                 int
	OverbookingPercentage     float64
	Factors                   []overbooking.Factor
	Recommendations           []string
	SeasonalPeriods           []string
	AlternativeWindows        []daterange.DateRange
	CheckedAt                 time.Time
}

// Overbooked reports whether acceptance relied on the overbooking tolerance.
func (r Result) Overbooked() bool {
	return r.Decision == DecisionOverbooked
}

func noCapacity(res Result) Result {
	res.Accepted = false
	res.Decision = DecisionNoCapacity
	res.RiskLevel = overbooking.RiskHigh
	res.ConflictingReservationIDs = []reservation.ID{}
	res.Recommendations = []string{RecommendNoCapacity}
	return res
}
