package availability

import (
	"context"
	"io"
	"log/slog"
	"time"

	"roomrisk/internal/app/dto"
	"roomrisk/internal/app/outbox"
	engine "roomrisk/internal/app/services/availability"
	"roomrisk/internal/domain/conflicts"
	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/shared/events"
)

// ConflictSweeper runs a conflict sweep for one property and publishes every
// finding as a conflicts.detected event through the outbox. It backs the
// broker consumer that reacts to reservation changes.
type ConflictSweeper struct {
	Engine        Engine
	Outbox        outbox.Outbox
	Encoder       outbox.EventEncoder
	Logger        *slog.Logger
	CheckCapacity bool
	Now           func() time.Time
}

func (s *ConflictSweeper) Sweep(ctx context.Context, propertyID string) (dto.ConflictReport, error) {
	rep, err := s.Engine.DetectConflicts(ctx, engine.DetectRequest{
		PropertyID:    inventory.PropertyID(propertyID),
		CheckCapacity: s.CheckCapacity,
	})
	if err != nil {
		return dto.ConflictReport{}, err
	}
	if len(rep.Conflicts) > 0 && s.Outbox != nil {
		var rec events.EventRecorder
		at := s.now()
		for _, c := range rep.Conflicts {
			rec.Record(conflicts.ConflictDetectedEvent(c, at))
		}
		if err := outbox.RecordDomainEvents(ctx, s.Outbox, s.Encoder, rec.Drain()); err != nil {
			return dto.ConflictReport{}, err
		}
		if err := s.Outbox.Flush(ctx); err != nil {
			return dto.ConflictReport{}, err
		}
	}
	s.logger().Info("conflict sweep finished", "property_id", propertyID, "scanned", rep.Scanned, "conflicts", len(rep.Conflicts))
	return dto.MapConflictReport(rep), nil
}

func (s *ConflictSweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *ConflictSweeper) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
