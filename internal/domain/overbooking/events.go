package overbooking

import (
	"time"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/shared/daterange"
)

type OverbookingAccepted struct {
	PropertyID string              `json:"property_id"`
	Range      daterange.DateRange `json:"range"`
	Units      int                 `json:"units"`
	Percentage float64             `json:"overbooking_percentage"`
	RiskLevel  RiskLevel           `json:"risk_level"`
	RiskScore  int                 `json:"risk_score"`
	At         time.Time           `json:"at"`
}

func (e OverbookingAccepted) EventName() string     { return "availability.overbooking_accepted" }
func (e OverbookingAccepted) AggregateID() string   { return e.PropertyID }
func (e OverbookingAccepted) OccurredAt() time.Time { return e.At }

type HighRiskBlocked struct {
	PropertyID string              `json:"property_id"`
	Range      daterange.DateRange `json:"range"`
	Units      int                 `json:"units"`
	RiskScore  int                 `json:"risk_score"`
	Factors    []Factor            `json:"factors"`
	At         time.Time           `json:"at"`
}

func (e HighRiskBlocked) EventName() string     { return "availability.high_risk_blocked" }
func (e HighRiskBlocked) AggregateID() string   { return e.PropertyID }
func (e HighRiskBlocked) OccurredAt() time.Time { return e.At }

func OverbookingAcceptedEvent(id inventory.PropertyID, r daterange.DateRange, units int, pct float64, level RiskLevel, score int, at time.Time) OverbookingAccepted {
	return OverbookingAccepted{
		PropertyID: string(id),
		Range:      r,
		Units:      units,
		Percentage: pct,
		RiskLevel:  level,
		RiskScore:  score,
		At:         at.UTC(),
	}
}

func HighRiskBlockedEvent(id inventory.PropertyID, r daterange.DateRange, units, score int, factors []Factor, at time.Time) HighRiskBlocked {
	return HighRiskBlocked{
		PropertyID: string(id),
		Range:      r,
		Units:      units,
		RiskScore:  score,
		Factors:    append([]Factor(nil), factors...),
		At:         at.UTC(),
	}
}
