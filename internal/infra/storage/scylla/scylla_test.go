package scylla

import (
	"context"
	"testing"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

func TestParseConsistency(t *testing.T) {
	c, err := parseConsistency("")
	require.NoError(t, err)
	assert.Equal(t, gocql.LocalQuorum, c)

	c, err = parseConsistency(" one ")
	require.NoError(t, err)
	assert.Equal(t, gocql.One, c)

	_, err = parseConsistency("most")
	assert.Error(t, err)
}

func TestFilterOverlapping(t *testing.T) {
	mk := func(id string, from, to int, status reservation.Status) reservation.Reservation {
		return reservation.Reservation{
			ID:         reservation.ID(id),
			PropertyID: "hotel-1",
			Range:      daterange.MustNew(daterange.Date(2026, 3, from), daterange.Date(2026, 3, to)),
			Status:     status,
		}
	}
	rows := []reservation.Reservation{
		mk("late", 11, 14, reservation.StatusConfirmed),
		mk("early", 8, 11, reservation.StatusPending),
		mk("touching", 5, 10, reservation.StatusConfirmed),
		mk("cancelled", 9, 12, reservation.StatusCancelled),
		mk("self", 10, 12, reservation.StatusPending),
	}
	dr := daterange.MustNew(daterange.Date(2026, 3, 10), daterange.Date(2026, 3, 12))

	got := filterOverlapping(rows, "hotel-1", dr, reservation.ActiveStatuses(), "self")
	require.Len(t, got, 2)
	assert.Equal(t, reservation.ID("early"), got[0].ID)
	assert.Equal(t, reservation.ID("late"), got[1].ID)
}

func TestNewSessionRejectsBadKeyspace(t *testing.T) {
	_, err := NewSession(context.Background(), SessionConfig{Hosts: []string{"127.0.0.1"}, Keyspace: "room-risk;"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid keyspace")
}
