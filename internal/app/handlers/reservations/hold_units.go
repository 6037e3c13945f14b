package reservations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"roomrisk/internal/app/commands"
	"roomrisk/internal/app/dto"
	"roomrisk/internal/app/middleware"
	"roomrisk/internal/app/outbox"
	"roomrisk/internal/app/policies"
	engine "roomrisk/internal/app/services/availability"
	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/overbooking"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
	"roomrisk/internal/domain/shared/events"
)

const HoldUnitsKey = "reservations.hold"

const (
	defaultLockTTL  = 10 * time.Second
	defaultLockWait = 3 * time.Second
)

var ErrHandlerNotConfigured = errors.New("reservations: hold handler missing dependencies")

type HoldUnitsCommand struct {
	ReservationID   string
	PropertyID      string    `validate:"required"`
	CheckIn         time.Time `validate:"required"`
	CheckOut        time.Time `validate:"required"`
	Units           int       `validate:"gte=1"`
	IdempotencyKeyV string
}

func (c HoldUnitsCommand) Key() string            { return HoldUnitsKey }
func (c HoldUnitsCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c HoldUnitsCommand) ResultPrototype() any   { return &HoldUnitsResult{} }

func (c HoldUnitsCommand) Validate() error {
	_, err := daterange.New(c.CheckIn, c.CheckOut)
	return err
}

type HoldUnitsResult struct {
	ReservationID string                 `json:"reservation_id,omitempty"`
	Held          bool                   `json:"held"`
	Availability  dto.AvailabilityResult `json:"availability"`
}

// Checker is the part of the engine the hold needs.
type Checker interface {
	CheckAvailability(ctx context.Context, req engine.Request) (engine.Result, error)
}

// HoldUnitsHandler claims units for a new pending reservation. The engine
// only reads a snapshot, so the handler serialises check-then-save per
// property behind Locker; two concurrent holds for the same property never
// both see the last free unit.
type HoldUnitsHandler struct {
	Engine       Checker
	Reservations reservation.Writer
	Locker       policies.Locker
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Logger       *slog.Logger
	LockTTL      time.Duration
	LockWait     time.Duration
	Now          func() time.Time
}

func (h *HoldUnitsHandler) Handle(ctx context.Context, cmd HoldUnitsCommand) (*HoldUnitsResult, error) {
	if h.Engine == nil || h.Reservations == nil || h.Locker == nil {
		return nil, ErrHandlerNotConfigured
	}
	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	pid := inventory.PropertyID(cmd.PropertyID)

	lease, err := h.Locker.Acquire(ctx, LockKey(pid), h.lockTTL(), h.lockWait())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			h.logger().Error("property lock release failed", "property_id", pid, "error", err)
		}
	}()

	res, err := h.Engine.CheckAvailability(ctx, engine.Request{
		PropertyID:    pid,
		Range:         dr,
		RequiredUnits: cmd.Units,
	})
	if err != nil {
		return nil, err
	}

	var rec events.EventRecorder
	out := &HoldUnitsResult{Availability: dto.MapAvailability(res)}
	if !res.Accepted {
		if res.Decision == engine.DecisionAutoBlocked {
			rec.Record(overbooking.HighRiskBlockedEvent(pid, dr, cmd.Units, res.RiskScore, res.Factors, h.now()))
		}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, rec.Drain()); err != nil {
			return nil, err
		}
		h.logger().Info("hold rejected", "property_id", pid, "decision", res.Decision, "risk_score", res.RiskScore)
		return out, nil
	}

	id := cmd.ReservationID
	if id == "" {
		id = uuid.NewString()
	}
	r, err := reservation.New(reservation.CreateParams{
		ID:            reservation.ID(id),
		PropertyID:    pid,
		Range:         dr,
		RequiredUnits: cmd.Units,
		CreatedAt:     h.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := h.Reservations.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("%w: save reservation: %w", engine.ErrRepositoryUnavailable, err)
	}

	rec.Record(reservation.HeldEvent(r, res.Overbooked()))
	if res.Overbooked() {
		rec.Record(overbooking.OverbookingAcceptedEvent(pid, dr, cmd.Units, res.OverbookingPercentage, res.RiskLevel, res.RiskScore, h.now()))
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, rec.Drain()); err != nil {
		return nil, err
	}

	out.ReservationID = id
	out.Held = true
	h.logger().Info("units held", "property_id", pid, "reservation_id", id, "units", cmd.Units, "decision", res.Decision)
	return out, nil
}

// LockKey is the lock namespace shared by every writer of a property.
func LockKey(pid inventory.PropertyID) string {
	return "roomrisk:property:" + string(pid)
}

func (h *HoldUnitsHandler) lockTTL() time.Duration {
	if h.LockTTL > 0 {
		return h.LockTTL
	}
	return defaultLockTTL
}

func (h *HoldUnitsHandler) lockWait() time.Duration {
	if h.LockWait > 0 {
		return h.LockWait
	}
	return defaultLockWait
}

func (h *HoldUnitsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *HoldUnitsHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	_ commands.Handler[HoldUnitsCommand, *HoldUnitsResult] = (*HoldUnitsHandler)(nil)
	_ middleware.IdempotentCommand                         = HoldUnitsCommand{}
)
