package daterange

import (
	"errors"
	"math"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
	ErrStayTooLong  = errors.New("daterange: stay exceeds maximum length")
)

const day = 24 * time.Hour

// MaxStay bounds ranges accepted for availability queries and sweeps.
const MaxStay = 366 * day

// DateRange represents a half-open interval [checkIn, checkOut)
type DateRange struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: checkIn.UTC(), CheckOut: checkOut.UTC()}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// MustNew is New for fixtures and tests; it panics on an invalid range.
func MustNew(checkIn, checkOut time.Time) DateRange {
	dr, err := New(checkIn, checkOut)
	if err != nil {
		panic(err)
	}
	return dr
}

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// TruncateDay drops the time-of-day part of t in UTC.
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Duration() time.Duration {
	return dr.CheckOut.Sub(dr.CheckIn)
}

func (dr DateRange) Nights() int {
	return int(dr.CheckOut.Sub(dr.CheckIn).Hours() / 24)
}

// Overlaps uses strict half-open semantics: a checkout equal to the other
// range's checkin does not overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

// Expand widens the range by hours on both sides to model turnover buffers.
func (dr DateRange) Expand(hours float64) DateRange {
	if hours <= 0 {
		return dr
	}
	pad := time.Duration(hours * float64(time.Hour))
	return DateRange{CheckIn: dr.CheckIn.Add(-pad), CheckOut: dr.CheckOut.Add(pad)}
}

// Shift moves both bounds by whole days, keeping the duration.
func (dr DateRange) Shift(days int) DateRange {
	return DateRange{CheckIn: dr.CheckIn.AddDate(0, 0, days), CheckOut: dr.CheckOut.AddDate(0, 0, days)}
}

func (dr DateRange) Intersection(other DateRange) (DateRange, bool) {
	if !dr.Overlaps(other) {
		return DateRange{}, false
	}
	start := dr.CheckIn
	if other.CheckIn.After(start) {
		start = other.CheckIn
	}
	end := dr.CheckOut
	if other.CheckOut.Before(end) {
		end = other.CheckOut
	}
	return DateRange{CheckIn: start, CheckOut: end}, true
}

// OverlapDays is the shared span rounded up to whole days; 0 when disjoint.
func (dr DateRange) OverlapDays(other DateRange) int {
	shared, ok := dr.Intersection(other)
	if !ok {
		return 0
	}
	return int(math.Ceil(float64(shared.Duration()) / float64(day)))
}

// Gap is the time between two disjoint ranges; 0 when they touch or overlap.
func (dr DateRange) Gap(other DateRange) time.Duration {
	switch {
	case !dr.CheckOut.After(other.CheckIn):
		return other.CheckIn.Sub(dr.CheckOut)
	case !other.CheckOut.After(dr.CheckIn):
		return dr.CheckIn.Sub(other.CheckOut)
	default:
		return 0
	}
}

// ValidateStay is Validate plus the MaxStay bound.
func (dr DateRange) ValidateStay() error {
	if err := dr.Validate(); err != nil {
		return err
	}
	if dr.Duration() > MaxStay {
		return ErrStayTooLong
	}
	return nil
}

// FirstDay and LastDay are the first and last UTC calendar days the range
// touches. Both assume a valid range.
func (dr DateRange) FirstDay() time.Time {
	return TruncateDay(dr.CheckIn)
}

func (dr DateRange) LastDay() time.Time {
	return TruncateDay(dr.CheckOut.Add(-time.Nanosecond))
}

// TouchesDay reports whether the UTC calendar day of t is one the range touches.
func (dr DateRange) TouchesDay(t time.Time) bool {
	if dr.Validate() != nil {
		return false
	}
	d := TruncateDay(t)
	return !d.Before(dr.FirstDay()) && !d.After(dr.LastDay())
}

// Days lists every UTC calendar day touched by the range.
func (dr DateRange) Days() []time.Time {
	if dr.Validate() != nil {
		return nil
	}
	var out []time.Time
	for d := TruncateDay(dr.CheckIn); d.Before(dr.CheckOut); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
