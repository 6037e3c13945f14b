package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/overbooking"
)

// CalendarSource yields the deployment's extra seasonal periods.
type CalendarSource interface {
	Load(ctx context.Context) ([]overbooking.SeasonalPeriod, error)
}

// ParseCalendar accepts either a bare JSON array of periods or an object of
// the form {"periods": [...]}. Every period is validated.
func ParseCalendar(r io.Reader) ([]overbooking.SeasonalPeriod, error) {
	raw, err := readAll(r)
	if err != nil {
		return nil, fmt.Errorf("s3: read calendar: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	var periods []overbooking.SeasonalPeriod
	if len(raw) > 0 && raw[0] == '[' {
		err = json.Unmarshal(raw, &periods)
	} else {
		var doc struct {
			Periods []overbooking.SeasonalPeriod `json:"periods"`
		}
		err = json.Unmarshal(raw, &doc)
		periods = doc.Periods
	}
	if err != nil {
		return nil, fmt.Errorf("s3: decode calendar: %w", err)
	}
	if err := (overbooking.Policy{SeasonalPeriods: periods}).Validate(); err != nil {
		return nil, err
	}
	return periods, nil
}

// SeasonalPolicies decorates a PolicyProvider, appending the periods from a
// calendar source to every resolved policy. The calendar is reloaded once it
// is older than Refresh; a failed reload keeps serving the last good copy.
// Only one lookup fetches at a time, outside the lock and detached from the
// caller's cancellation; concurrent lookups get the cached periods.
type SeasonalPolicies struct {
	Base        overbooking.PolicyProvider
	Source      CalendarSource
	Refresh     time.Duration
	LoadTimeout time.Duration
	Logger      *slog.Logger
	Now         func() time.Time

	mu       sync.Mutex
	periods  []overbooking.SeasonalPeriod
	loadedAt time.Time
	loading  bool
}

func (s *SeasonalPolicies) Policy(ctx context.Context, id inventory.PropertyID) (overbooking.Policy, error) {
	p, err := s.Base.Policy(ctx, id)
	if err != nil {
		return p, err
	}
	return p.WithSeasonalPeriods(s.current(ctx)), nil
}

// Reload forces a calendar refresh.
func (s *SeasonalPolicies) Reload(ctx context.Context) error {
	periods, err := s.Source.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.periods = periods
	s.loadedAt = s.now()
	s.mu.Unlock()
	return nil
}

func (s *SeasonalPolicies) current(ctx context.Context) []overbooking.SeasonalPeriod {
	s.mu.Lock()
	now := s.now()
	fresh := !s.loadedAt.IsZero() && now.Sub(s.loadedAt) < s.refresh()
	if fresh || s.loading {
		periods := s.periods
		s.mu.Unlock()
		return periods
	}
	s.loading = true
	s.mu.Unlock()

	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout())
	periods, err := s.Source.Load(loadCtx)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	// a failure also waits for the next refresh tick
	s.loadedAt = now
	if err != nil {
		s.logger().Warn("seasonal calendar reload failed", "error", err, "cached_periods", len(s.periods))
		return s.periods
	}
	s.periods = periods
	return s.periods
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, 1<<20))
}

func (s *SeasonalPolicies) refresh() time.Duration {
	if s.Refresh <= 0 {
		return 15 * time.Minute
	}
	return s.Refresh
}

func (s *SeasonalPolicies) loadTimeout() time.Duration {
	if s.LoadTimeout <= 0 {
		return 10 * time.Second
	}
	return s.LoadTimeout
}

func (s *SeasonalPolicies) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SeasonalPolicies) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

var _ overbooking.PolicyProvider = (*SeasonalPolicies)(nil)
