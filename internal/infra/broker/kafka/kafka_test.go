package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomrisk/internal/app/dto"
	"roomrisk/internal/infra/inbox"
)

type recordingSweeper struct {
	properties []string
	err        error
}

func (r *recordingSweeper) Sweep(_ context.Context, propertyID string) (dto.ConflictReport, error) {
	r.properties = append(r.properties, propertyID)
	return dto.ConflictReport{}, r.err
}

func TestParseSweepTriggerPrecedence(t *testing.T) {
	_, pid, err := parseSweepTrigger([]byte(`{"id":"e1","subject":"hotel-s","data":{"property_id":"hotel-d"}}`), []byte("hotel-k"))
	require.NoError(t, err)
	assert.Equal(t, "hotel-d", pid)

	_, pid, err = parseSweepTrigger([]byte(`{"id":"e1","subject":"hotel-s","data":{}}`), []byte("hotel-k"))
	require.NoError(t, err)
	assert.Equal(t, "hotel-s", pid)

	_, pid, err = parseSweepTrigger([]byte(`{"id":"e1"}`), []byte("hotel-k"))
	require.NoError(t, err)
	assert.Equal(t, "hotel-k", pid)

	_, _, err = parseSweepTrigger([]byte(`{"id":"e1"}`), nil)
	assert.ErrorIs(t, err, ErrNoProperty)
}

func TestSweepHandlerDeduplicates(t *testing.T) {
	sw := &recordingSweeper{}
	h := &SweepHandler{Sweeper: sw, Inbox: inbox.NewMemory(10)}
	msg := &sarama.ConsumerMessage{Topic: "reservation.events.v1", Value: []byte(`{"id":"e1","type":"reservation.held.v1","subject":"hotel-1"}`)}

	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Equal(t, []string{"hotel-1"}, sw.properties)
}

func TestSweepHandlerDropsMalformedAndSurfacesSweepErrors(t *testing.T) {
	sw := &recordingSweeper{err: errors.New("store down")}
	h := &SweepHandler{Sweeper: sw}

	assert.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("not json")}))
	assert.Empty(t, sw.properties)

	err := h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"id":"e2","subject":"hotel-2"}`)})
	assert.EqualError(t, err, "store down")
}

func TestSweepHandlerRetriesEventAfterFailedSweep(t *testing.T) {
	ctx := context.Background()
	box := inbox.NewMemory(10)
	sw := &recordingSweeper{err: errors.New("repository unavailable")}
	h := &SweepHandler{Sweeper: sw, Inbox: box}
	msg := &sarama.ConsumerMessage{Topic: "reservation.events.v1", Value: []byte(`{"id":"e3","subject":"hotel-3"}`)}

	require.Error(t, h.Handle(ctx, msg))
	seen, err := box.Seen(ctx, "e3")
	require.NoError(t, err)
	assert.False(t, seen, "failed event must not be recorded")

	sw.err = nil
	require.NoError(t, h.Handle(ctx, msg))
	assert.Equal(t, []string{"hotel-3", "hotel-3"}, sw.properties)

	require.NoError(t, h.Handle(ctx, msg))
	assert.Len(t, sw.properties, 2, "processed event is skipped on redelivery")
}
