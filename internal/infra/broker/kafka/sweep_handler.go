package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"roomrisk/internal/app/dto"
	"roomrisk/internal/infra/inbox"
)

var ErrNoProperty = errors.New("kafka: event carries no property id")

type Sweeper interface {
	Sweep(ctx context.Context, propertyID string) (dto.ConflictReport, error)
}

// SweepHandler reacts to reservation change events by sweeping the affected
// property for conflicts. Events are CloudEvents; the property is read from
// data.property_id, then the subject, then the message key.
type SweepHandler struct {
	Sweeper Sweeper
	Inbox   inbox.Deduper
	Logger  *slog.Logger
}

type cloudEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Subject string          `json:"subject"`
	Data    json.RawMessage `json:"data"`
}

func (h *SweepHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	evt, propertyID, err := parseSweepTrigger(msg.Value, msg.Key)
	if err != nil {
		// malformed events are dropped; redelivery cannot fix them
		h.logger().Warn("sweep trigger ignored", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	if h.Inbox != nil && evt.ID != "" {
		seen, err := h.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return fmt.Errorf("inbox: %w", err)
		}
		if seen {
			h.logger().Debug("duplicate sweep trigger skipped", "event_id", evt.ID)
			return nil
		}
	}
	rep, err := h.Sweeper.Sweep(ctx, propertyID)
	if err != nil {
		return err
	}
	if h.Inbox != nil && evt.ID != "" {
		if err := h.Inbox.MarkProcessed(ctx, evt.ID); err != nil {
			return fmt.Errorf("inbox: %w", err)
		}
	}
	h.logger().Info("sweep triggered by event", "event_id", evt.ID, "event_type", evt.Type, "property_id", propertyID, "conflicts", len(rep.Conflicts))
	return nil
}

func parseSweepTrigger(value, key []byte) (cloudEvent, string, error) {
	var evt cloudEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		return cloudEvent{}, "", fmt.Errorf("decode cloudevent: %w", err)
	}
	var data struct {
		PropertyID string `json:"property_id"`
	}
	if len(evt.Data) > 0 {
		_ = json.Unmarshal(evt.Data, &data)
	}
	for _, candidate := range []string{data.PropertyID, evt.Subject, string(key)} {
		if c := strings.TrimSpace(candidate); c != "" {
			return evt, c, nil
		}
	}
	return evt, "", ErrNoProperty
}

func (h *SweepHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ MessageHandler = (*SweepHandler)(nil)
