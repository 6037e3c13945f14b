package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/overbooking"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

type BreakerConfig struct {
	MaxFailures uint32
	OpenTimeout time.Duration
	Logger      *slog.Logger
}

// NewBreaker opens after MaxFailures consecutive failures and lets a single
// probe through once OpenTimeout has passed. Lookups of missing properties and
// cancelled requests do not count as failures.
func NewBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, inventory.ErrPropertyNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

func execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}

// Reservations guards a reservation store.
type Reservations struct {
	Repo    reservation.Repository
	Breaker *gobreaker.CircuitBreaker
}

func (r Reservations) FindOverlapping(ctx context.Context, propertyID inventory.PropertyID, dr daterange.DateRange, statuses []reservation.Status, excludeID reservation.ID) ([]reservation.Reservation, error) {
	return execute(r.Breaker, func() ([]reservation.Reservation, error) {
		return r.Repo.FindOverlapping(ctx, propertyID, dr, statuses, excludeID)
	})
}

func (r Reservations) FindAllActive(ctx context.Context, propertyID inventory.PropertyID) ([]reservation.Reservation, error) {
	return execute(r.Breaker, func() ([]reservation.Reservation, error) {
		return r.Repo.FindAllActive(ctx, propertyID)
	})
}

// ReservationWriter shares the breaker of the store it writes to.
type ReservationWriter struct {
	Writer  reservation.Writer
	Breaker *gobreaker.CircuitBreaker
}

func (w ReservationWriter) Save(ctx context.Context, item reservation.Reservation) error {
	_, err := execute(w.Breaker, func() (struct{}, error) {
		return struct{}{}, w.Writer.Save(ctx, item)
	})
	return err
}

type Inventory struct {
	Provider inventory.Provider
	Breaker  *gobreaker.CircuitBreaker
}

func (i Inventory) Inventory(ctx context.Context, id inventory.PropertyID) (inventory.Inventory, error) {
	return execute(i.Breaker, func() (inventory.Inventory, error) {
		return i.Provider.Inventory(ctx, id)
	})
}

type Policies struct {
	Provider overbooking.PolicyProvider
	Breaker  *gobreaker.CircuitBreaker
}

func (p Policies) Policy(ctx context.Context, id inventory.PropertyID) (overbooking.Policy, error) {
	return execute(p.Breaker, func() (overbooking.Policy, error) {
		return p.Provider.Policy(ctx, id)
	})
}

var (
	_ reservation.Repository     = Reservations{}
	_ reservation.Writer         = ReservationWriter{}
	_ inventory.Provider         = Inventory{}
	_ overbooking.PolicyProvider = Policies{}
)
