package overbooking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"roomrisk/internal/domain/shared/daterange"
)

func TestDefaultPolicyIsValid(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
}

func TestValidateRejectsNegativeValues(t *testing.T) {
	p := DefaultPolicy()
	p.MaxOverbookingPercentage = -1
	assert.ErrorIs(t, p.Validate(), ErrInvalidPolicy)

	p = DefaultPolicy()
	p.BufferHours = -0.5
	assert.ErrorIs(t, p.Validate(), ErrInvalidPolicy)

	p = DefaultPolicy()
	p.RiskAlertThreshold = 120
	assert.ErrorIs(t, p.Validate(), ErrInvalidPolicy)
}

func TestValidateChecksSeasonalPeriods(t *testing.T) {
	p := DefaultPolicy()
	p.SeasonalPeriods = []SeasonalPeriod{{Name: "bad", StartMonth: 13, StartDay: 1, EndMonth: 1, EndDay: 2}}
	assert.ErrorIs(t, p.Validate(), ErrInvalidPolicy)

	p.SeasonalPeriods = []SeasonalPeriod{{Name: "bad", StartMonth: 4, StartDay: 31, EndMonth: 5, EndDay: 2}}
	assert.ErrorIs(t, p.Validate(), ErrInvalidPolicy)
}

func TestEligible(t *testing.T) {
	p := DefaultPolicy()
	assert.True(t, p.Eligible("hotel"))
	assert.True(t, p.Eligible("Hotel"))
	assert.False(t, p.Eligible("villa"))

	p.EligiblePropertyTypes = nil
	assert.True(t, p.Eligible("villa"))
}

func night(y int, m time.Month, d int) daterange.DateRange {
	return daterange.MustNew(daterange.Date(y, m, d), daterange.Date(y, m, d+1))
}

func TestSeasonalPeriodIntersectsSingleNights(t *testing.T) {
	newYear := SeasonalPeriod{Name: "new_year", StartMonth: 12, StartDay: 30, EndMonth: 1, EndDay: 2}
	assert.True(t, newYear.Intersects(night(2026, 12, 31)))
	assert.True(t, newYear.Intersects(night(2027, 1, 2)))
	assert.False(t, newYear.Intersects(night(2027, 1, 3)))
	assert.False(t, newYear.Intersects(night(2026, 12, 29)))

	fixed := SeasonalPeriod{Name: "expo", StartMonth: 9, StartDay: 1, EndMonth: 9, EndDay: 3, Year: 2026}
	assert.True(t, fixed.Intersects(night(2026, 9, 2)))
	assert.False(t, fixed.Intersects(night(2027, 9, 2)))

	leap := SeasonalPeriod{Name: "leap", StartMonth: 2, StartDay: 29, EndMonth: 2, EndDay: 29}
	assert.True(t, leap.Intersects(night(2028, 2, 29)))
	assert.False(t, leap.Intersects(night(2027, 2, 28)))
	assert.False(t, leap.Intersects(night(2027, 3, 1)))
	assert.False(t, leap.Intersects(daterange.MustNew(daterange.Date(2027, 2, 27), daterange.Date(2027, 3, 2))))
}

func TestSeasonalPeriodIntersectsLongRangesArithmetically(t *testing.T) {
	fixed := SeasonalPeriod{Name: "expo", StartMonth: 9, StartDay: 1, EndMonth: 9, EndDay: 3, Year: 2026}
	huge := daterange.MustNew(daterange.Date(2000, 1, 1), daterange.Date(9999, 1, 1))
	assert.True(t, fixed.Intersects(huge))
	assert.True(t, BuiltinHolidays()[1].Intersects(huge))

	p := DefaultPolicy()
	p.BlackoutDates = []time.Time{daterange.Date(2500, 6, 1)}
	assert.Len(t, p.BlackoutsWithin(huge), 1)
}

func TestSeasonalPeriodIntersectsIsHalfOpen(t *testing.T) {
	christmas := BuiltinHolidays()[0]
	// checkout on the first holiday day does not stay a holiday night
	before := daterange.MustNew(daterange.Date(2026, 12, 20), daterange.Date(2026, 12, 23))
	assert.False(t, christmas.Intersects(before))

	during := daterange.MustNew(daterange.Date(2026, 12, 22), daterange.Date(2026, 12, 24))
	assert.True(t, christmas.Intersects(during))
}

func TestBlackoutsWithin(t *testing.T) {
	p := DefaultPolicy()
	p.BlackoutDates = []time.Time{daterange.Date(2026, 8, 1), daterange.Date(2026, 8, 5)}
	dr := daterange.MustNew(daterange.Date(2026, 7, 30), daterange.Date(2026, 8, 2))
	assert.Equal(t, []time.Time{daterange.Date(2026, 8, 1)}, p.BlackoutsWithin(dr))

	checkoutDay := daterange.MustNew(daterange.Date(2026, 8, 3), daterange.Date(2026, 8, 5))
	assert.Empty(t, p.BlackoutsWithin(checkoutDay))
}

func TestWithSeasonalPeriodsDoesNotAlias(t *testing.T) {
	p := DefaultPolicy()
	before := len(p.SeasonalPeriods)
	merged := p.WithSeasonalPeriods([]SeasonalPeriod{{Name: "expo", StartMonth: 9, StartDay: 1, EndMonth: 9, EndDay: 3}})
	assert.Len(t, merged.SeasonalPeriods, before+1)
	assert.Len(t, p.SeasonalPeriods, before)
}
