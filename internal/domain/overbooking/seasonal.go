package overbooking

import (
	"fmt"
	"time"

	"roomrisk/internal/domain/shared/daterange"
)

const DefaultSeasonalWeight = 20

// SeasonalPeriod is a high-demand window given as month/day bounds, both
// inclusive. Year 0 repeats every year; a start after the end wraps over the
// new year.
type SeasonalPeriod struct {
	Name       string `json:"name" bson:"name" validate:"required"`
	StartMonth int    `json:"start_month" bson:"start_month" validate:"min=1,max=12"`
	StartDay   int    `json:"start_day" bson:"start_day" validate:"min=1,max=31"`
	EndMonth   int    `json:"end_month" bson:"end_month" validate:"min=1,max=12"`
	EndDay     int    `json:"end_day" bson:"end_day" validate:"min=1,max=31"`
	Year       int    `json:"year,omitempty" bson:"year,omitempty" validate:"gte=0"`
	Weight     int    `json:"weight,omitempty" bson:"weight,omitempty" validate:"gte=0"`
}

// BuiltinHolidays is the fallback calendar used when no seasonal data is configured.
func BuiltinHolidays() []SeasonalPeriod {
	return []SeasonalPeriod{
		{Name: "christmas", StartMonth: 12, StartDay: 23, EndMonth: 12, EndDay: 27, Weight: DefaultSeasonalWeight},
		{Name: "new_year", StartMonth: 12, StartDay: 30, EndMonth: 1, EndDay: 2, Weight: DefaultSeasonalWeight},
		{Name: "valentines_day", StartMonth: 2, StartDay: 13, EndMonth: 2, EndDay: 15, Weight: DefaultSeasonalWeight},
		{Name: "independence_day", StartMonth: 7, StartDay: 3, EndMonth: 7, EndDay: 5, Weight: DefaultSeasonalWeight},
	}
}

func (p SeasonalPeriod) EffectiveWeight() int {
	if p.Weight <= 0 {
		return DefaultSeasonalWeight
	}
	return p.Weight
}

func (p SeasonalPeriod) wraps() bool {
	return monthDay(p.StartMonth, p.StartDay) > monthDay(p.EndMonth, p.EndDay)
}

// Intersects compares dr with each yearly occurrence of the period, so its
// cost grows with the years dr spans rather than its days.
func (p SeasonalPeriod) Intersects(dr daterange.DateRange) bool {
	if dr.Validate() != nil {
		return false
	}
	first, last := dr.FirstDay(), dr.LastDay()
	if p.Year != 0 {
		return p.occursWithin(p.Year, first, last)
	}
	for y := first.Year() - 1; y <= last.Year(); y++ {
		if p.occursWithin(y, first, last) {
			return true
		}
	}
	return false
}

func (p SeasonalPeriod) occursWithin(year int, first, last time.Time) bool {
	start, end := p.occurrence(year)
	if start.After(end) {
		return false
	}
	return !start.After(last) && !end.Before(first)
}

// occurrence is the inclusive first and last day of the period starting in
// year. A Feb 29 start rolls to Mar 1 and a Feb 29 end clamps to Feb 28 in
// common years, so the period may be empty then.
func (p SeasonalPeriod) occurrence(year int) (time.Time, time.Time) {
	start := daterange.Date(year, time.Month(p.StartMonth), p.StartDay)
	endYear := year
	if p.wraps() {
		endYear++
	}
	endDay := p.EndDay
	if last := lastDayOf(endYear, p.EndMonth); endDay > last {
		endDay = last
	}
	return start, daterange.Date(endYear, time.Month(p.EndMonth), endDay)
}

func (p SeasonalPeriod) validateDates() error {
	if p.StartDay > daysIn(p.StartMonth) {
		return fmt.Errorf("seasonal period %q: start day %d out of range", p.Name, p.StartDay)
	}
	if p.EndDay > daysIn(p.EndMonth) {
		return fmt.Errorf("seasonal period %q: end day %d out of range", p.Name, p.EndDay)
	}
	return nil
}

func monthDay(month, day int) int {
	return month*100 + day
}

func lastDayOf(year, month int) int {
	return daterange.Date(year, time.Month(month)+1, 0).Day()
}

func daysIn(month int) int {
	switch month {
	case 2:
		return 29
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}
