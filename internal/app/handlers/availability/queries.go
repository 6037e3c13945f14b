package availability

import (
	"context"
	"time"

	"roomrisk/internal/app/dto"
	"roomrisk/internal/app/queries"
	engine "roomrisk/internal/app/services/availability"
	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

const (
	CheckAvailabilityKey = "availability.check"
	FindAlternativesKey  = "availability.alternatives"
	DetectConflictsKey   = "availability.conflicts"
)

// Engine is the subset of the availability service the handlers need.
type Engine interface {
	CheckAvailability(ctx context.Context, req engine.Request) (engine.Result, error)
	FindAlternatives(ctx context.Context, req engine.AlternativesRequest) ([]daterange.DateRange, error)
	DetectConflicts(ctx context.Context, req engine.DetectRequest) (engine.ConflictReport, error)
}

type CheckAvailabilityQuery struct {
	PropertyID           string    `validate:"required"`
	CheckIn              time.Time `validate:"required"`
	CheckOut             time.Time `validate:"required"`
	Units                int       `validate:"gte=1"`
	ExcludeReservationID string
	IncludeAlternatives  bool
	MaxAlternatives      int `validate:"gte=0,lte=50"`
	SearchRadiusDays     int `validate:"gte=0,lte=90"`
}

func (q CheckAvailabilityQuery) Key() string { return CheckAvailabilityKey }

func (q CheckAvailabilityQuery) Validate() error {
	_, err := daterange.New(q.CheckIn, q.CheckOut)
	return err
}

type CheckAvailabilityHandler struct {
	Engine Engine
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.AvailabilityResult, error) {
	dr, err := daterange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.AvailabilityResult{}, err
	}
	res, err := h.Engine.CheckAvailability(ctx, engine.Request{
		PropertyID:           inventory.PropertyID(q.PropertyID),
		Range:                dr,
		RequiredUnits:        q.Units,
		ExcludeReservationID: reservation.ID(q.ExcludeReservationID),
		IncludeAlternatives:  q.IncludeAlternatives,
		MaxAlternatives:      q.MaxAlternatives,
		SearchRadiusDays:     q.SearchRadiusDays,
	})
	if err != nil {
		return dto.AvailabilityResult{}, err
	}
	return dto.MapAvailability(res), nil
}

type FindAlternativesQuery struct {
	PropertyID           string    `validate:"required"`
	CheckIn              time.Time `validate:"required"`
	CheckOut             time.Time `validate:"required"`
	Units                int       `validate:"gte=1"`
	ExcludeReservationID string
	MaxResults           int `validate:"gte=0,lte=50"`
	SearchRadiusDays     int `validate:"gte=0,lte=90"`
}

func (q FindAlternativesQuery) Key() string { return FindAlternativesKey }

func (q FindAlternativesQuery) Validate() error {
	_, err := daterange.New(q.CheckIn, q.CheckOut)
	return err
}

type FindAlternativesHandler struct {
	Engine Engine
}

func (h *FindAlternativesHandler) Handle(ctx context.Context, q FindAlternativesQuery) (dto.Alternatives, error) {
	dr, err := daterange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.Alternatives{}, err
	}
	windows, err := h.Engine.FindAlternatives(ctx, engine.AlternativesRequest{
		PropertyID:           inventory.PropertyID(q.PropertyID),
		Range:                dr,
		RequiredUnits:        q.Units,
		ExcludeReservationID: reservation.ID(q.ExcludeReservationID),
		MaxResults:           q.MaxResults,
		SearchRadiusDays:     q.SearchRadiusDays,
	})
	if err != nil {
		return dto.Alternatives{}, err
	}
	return dto.Alternatives{
		PropertyID: q.PropertyID,
		Requested:  dto.MapWindow(dr),
		Windows:    dto.MapWindows(windows),
	}, nil
}

type DetectConflictsQuery struct {
	PropertyID    string
	CheckCapacity bool
}

func (q DetectConflictsQuery) Key() string { return DetectConflictsKey }

type DetectConflictsHandler struct {
	Engine Engine
}

func (h *DetectConflictsHandler) Handle(ctx context.Context, q DetectConflictsQuery) (dto.ConflictReport, error) {
	rep, err := h.Engine.DetectConflicts(ctx, engine.DetectRequest{
		PropertyID:    inventory.PropertyID(q.PropertyID),
		CheckCapacity: q.CheckCapacity,
	})
	if err != nil {
		return dto.ConflictReport{}, err
	}
	return dto.MapConflictReport(rep), nil
}

// RegisterQueries wires the availability query handlers onto bus.
func RegisterQueries(bus *queries.InMemoryBus, e Engine) {
	queries.Register[CheckAvailabilityQuery, dto.AvailabilityResult](bus, CheckAvailabilityKey, &CheckAvailabilityHandler{Engine: e})
	queries.Register[FindAlternativesQuery, dto.Alternatives](bus, FindAlternativesKey, &FindAlternativesHandler{Engine: e})
	queries.Register[DetectConflictsQuery, dto.ConflictReport](bus, DetectConflictsKey, &DetectConflictsHandler{Engine: e})
}

var (
	_ queries.Handler[CheckAvailabilityQuery, dto.AvailabilityResult] = (*CheckAvailabilityHandler)(nil)
	_ queries.Handler[FindAlternativesQuery, dto.Alternatives]        = (*FindAlternativesHandler)(nil)
	_ queries.Handler[DetectConflictsQuery, dto.ConflictReport]       = (*DetectConflictsHandler)(nil)
)
