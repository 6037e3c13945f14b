package overbooking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/shared/daterange"
)

var ErrInvalidPolicy = errors.New("overbooking: invalid policy")

var validatePolicy = validator.New()

// Policy controls soft overbooking for a property. It is passed by value into
// every decision; nothing in the engine keeps a shared copy.
type Policy struct {
	Enabled                  bool             `json:"enabled" bson:"enabled"`
	MaxOverbookingPercentage float64          `json:"max_overbooking_percentage" bson:"max_overbooking_percentage" validate:"gte=0"`
	BufferHours              float64          `json:"buffer_hours" bson:"buffer_hours" validate:"gte=0"`
	RiskAlertThreshold       float64          `json:"risk_alert_threshold" bson:"risk_alert_threshold" validate:"gte=0,lte=100"`
	AutoBlockHighRisk        bool             `json:"auto_block_high_risk" bson:"auto_block_high_risk"`
	EligiblePropertyTypes    []string         `json:"eligible_property_types" bson:"eligible_property_types"`
	BlackoutDates            []time.Time      `json:"blackout_dates" bson:"blackout_dates"`
	SeasonalPeriods          []SeasonalPeriod `json:"seasonal_periods" bson:"seasonal_periods" validate:"dive"`
}

// PolicyProvider resolves the policy for a property, falling back to the
// deployment default when the property has none.
type PolicyProvider interface {
	Policy(ctx context.Context, propertyID inventory.PropertyID) (Policy, error)
}

func DefaultPolicy() Policy {
	return Policy{
		Enabled:                  true,
		MaxOverbookingPercentage: 5,
		BufferHours:              0,
		RiskAlertThreshold:       80,
		AutoBlockHighRisk:        true,
		EligiblePropertyTypes:    []string{"hotel", "hostel", "resort", "apartment"},
		SeasonalPeriods:          BuiltinHolidays(),
	}
}

func (p Policy) Validate() error {
	if err := validatePolicy.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	for _, sp := range p.SeasonalPeriods {
		if err := sp.validateDates(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
		}
	}
	return nil
}

// Eligible reports whether propertyType may be overbooked. An empty set
// admits every type.
func (p Policy) Eligible(propertyType string) bool {
	if len(p.EligiblePropertyTypes) == 0 {
		return true
	}
	for _, t := range p.EligiblePropertyTypes {
		if strings.EqualFold(strings.TrimSpace(t), strings.TrimSpace(propertyType)) {
			return true
		}
	}
	return false
}

// BlackoutsWithin returns the blackout dates that fall on a day of dr.
func (p Policy) BlackoutsWithin(dr daterange.DateRange) []time.Time {
	if len(p.BlackoutDates) == 0 {
		return nil
	}
	var hits []time.Time
	for _, b := range p.BlackoutDates {
		if dr.TouchesDay(b) {
			hits = append(hits, daterange.TruncateDay(b))
		}
	}
	return hits
}

// WithSeasonalPeriods returns a copy of p with extra periods appended.
func (p Policy) WithSeasonalPeriods(extra []SeasonalPeriod) Policy {
	if len(extra) == 0 {
		return p
	}
	merged := make([]SeasonalPeriod, 0, len(p.SeasonalPeriods)+len(extra))
	merged = append(merged, p.SeasonalPeriods...)
	merged = append(merged, extra...)
	p.SeasonalPeriods = merged
	return p
}
