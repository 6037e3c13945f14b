package dto

import (
	"time"

	"roomrisk/internal/app/services/availability"
	"roomrisk/internal/domain/conflicts"
	"roomrisk/internal/domain/shared/daterange"
)

type DateWindow struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
	Nights   int       `json:"nights"`
}

type RiskFactor struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type AvailabilityResult struct {
	PropertyID                string       `json:"property_id"`
	CheckIn                   time.Time    `json:"check_in"`
	CheckOut                  time.Time    `json:"check_out"`
	RequiredUnits             int          `json:"required_units"`
	Accepted                  bool         `json:"accepted"`
	Decision                  string       `json:"decision"`
	TotalCapacity             int          `json:"total_capacity"`
	BookedUnits               int          `json:"booked_units"`
	AvailableUnits            int          `json:"available_units"`
	ConflictingReservationIDs []string     `json:"conflicting_reservation_ids"`
	RiskLevel                 string       `json:"risk_level"`
	RiskScore                 int          `json:"risk_score"`
	OverbookingPercentage     float64      `json:"overbooking_percentage"`
	Factors                   []RiskFactor `json:"factors"`
	Recommendations           []string     `json:"recommendations"`
	SeasonalPeriods           []string     `json:"seasonal_periods,omitempty"`
	AlternativeWindows        []DateWindow `json:"alternative_windows,omitempty"`
	CheckedAt                 time.Time    `json:"checked_at"`
}

type Alternatives struct {
	PropertyID string       `json:"property_id"`
	Requested  DateWindow   `json:"requested"`
	Windows    []DateWindow `json:"windows"`
}

type Conflict struct {
	Kind             string    `json:"kind"`
	Severity         string    `json:"severity"`
	PropertyID       string    `json:"property_id"`
	ReservationIDs   []string  `json:"reservation_ids"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
	OverlapDays      int       `json:"overlap_days"`
	ExcessUnits      int       `json:"excess_units,omitempty"`
	SuggestedActions []string  `json:"suggested_actions"`
}

type SkippedReservation struct {
	ReservationID string `json:"reservation_id"`
	PropertyID    string `json:"property_id"`
	Reason        string `json:"reason"`
}

type ConflictReport struct {
	Conflicts   []Conflict           `json:"conflicts"`
	Scanned     int                  `json:"scanned"`
	Skipped     []SkippedReservation `json:"skipped,omitempty"`
	GeneratedAt time.Time            `json:"generated_at"`
}

func MapWindow(r daterange.DateRange) DateWindow {
	return DateWindow{CheckIn: r.CheckIn, CheckOut: r.CheckOut, Nights: r.Nights()}
}

func MapWindows(rs []daterange.DateRange) []DateWindow {
	out := make([]DateWindow, 0, len(rs))
	for _, r := range rs {
		out = append(out, MapWindow(r))
	}
	return out
}

func MapAvailability(res availability.Result) AvailabilityResult {
	ids := make([]string, 0, len(res.ConflictingReservationIDs))
	for _, id := range res.ConflictingReservationIDs {
		ids = append(ids, string(id))
	}
	factors := make([]RiskFactor, 0, len(res.Factors))
	for _, f := range res.Factors {
		factors = append(factors, RiskFactor{Name: f.Name, Points: f.Points})
	}
	recs := res.Recommendations
	if recs == nil {
		recs = []string{}
	}
	out := AvailabilityResult{
		PropertyID:                string(res.PropertyID),
		CheckIn:                   res.Range.CheckIn,
		CheckOut:                  res.Range.CheckOut,
		RequiredUnits:             res.RequiredUnits,
		Accepted:                  res.Accepted,
		Decision:                  string(res.Decision),
		TotalCapacity:             res.TotalCapacity,
		BookedUnits:               res.BookedUnits,
		AvailableUnits:            res.AvailableUnits,
		ConflictingReservationIDs: ids,
		RiskLevel:                 string(res.RiskLevel),
		RiskScore:                 res.RiskScore,
		OverbookingPercentage:     res.OverbookingPercentage,
		Factors:                   factors,
		Recommendations:           recs,
		SeasonalPeriods:           res.SeasonalPeriods,
		CheckedAt:                 res.CheckedAt,
	}
	if len(res.AlternativeWindows) > 0 {
		out.AlternativeWindows = MapWindows(res.AlternativeWindows)
	}
	return out
}

func MapConflict(c conflicts.Conflict) Conflict {
	ids := make([]string, 0, len(c.InvolvedReservationIDs))
	for _, id := range c.InvolvedReservationIDs {
		ids = append(ids, string(id))
	}
	return Conflict{
		Kind:             string(c.Kind),
		Severity:         string(c.Severity),
		PropertyID:       string(c.PropertyID),
		ReservationIDs:   ids,
		PeriodStart:      c.Period.CheckIn,
		PeriodEnd:        c.Period.CheckOut,
		OverlapDays:      c.OverlapDays,
		ExcessUnits:      c.ExcessUnits,
		SuggestedActions: c.SuggestedActions,
	}
}

func MapConflictReport(rep availability.ConflictReport) ConflictReport {
	out := ConflictReport{
		Conflicts:   make([]Conflict, 0, len(rep.Conflicts)),
		Scanned:     rep.Scanned,
		GeneratedAt: rep.GeneratedAt,
	}
	for _, c := range rep.Conflicts {
		out.Conflicts = append(out.Conflicts, MapConflict(c))
	}
	for _, sk := range rep.Skipped {
		out.Skipped = append(out.Skipped, SkippedReservation{
			ReservationID: string(sk.ReservationID),
			PropertyID:    string(sk.PropertyID),
			Reason:        sk.Reason,
		})
	}
	return out
}
