package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomrisk/internal/domain/overbooking"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
	"roomrisk/internal/infra/storage/memory"
)

func TestReservationFixture(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	item, err := reservationFixture{ID: "r-1", PropertyID: "hotel-1", CheckIn: "2026-03-01", CheckOut: "2026-03-04"}.toReservation(now)
	require.NoError(t, err)
	assert.Equal(t, 1, item.RequiredUnits)
	assert.Equal(t, reservation.StatusPending, item.Status)
	assert.Equal(t, 3, item.Range.Nights())

	item, err = reservationFixture{ID: "r-2", PropertyID: "hotel-1", CheckIn: "2026-03-01", CheckOut: "2026-03-02", Units: 3, Status: "confirmed"}.toReservation(now)
	require.NoError(t, err)
	assert.Equal(t, 3, item.RequiredUnits)
	assert.Equal(t, reservation.StatusConfirmed, item.Status)

	_, err = reservationFixture{ID: "r-3", PropertyID: "hotel-1", CheckIn: "2026-03-04", CheckOut: "2026-03-01"}.toReservation(now)
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = reservationFixture{ID: "r-4", PropertyID: "hotel-1", CheckIn: "2026-03-01", CheckOut: "2026-03-02", Status: "archived"}.toReservation(now)
	assert.Error(t, err)
}

func TestLoadFixtures(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fixtures.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"properties": [
			{"id": "hotel-1", "property_type": "hotel", "units": [{"unit_type": "double", "count": 10}]},
			{"id": "villa-1", "property_type": "villa", "max_guests": 6, "policy": {"enabled": false}}
		],
		"reservations": [
			{"id": "r-1", "property_id": "hotel-1", "check_in": "2026-03-01", "check_out": "2026-03-04", "units": 2, "status": "confirmed"},
			{"id": "bad", "property_id": "hotel-1", "check_in": "2026-03-04", "check_out": "2026-03-04"}
		]
	}`), 0o600))

	props := memory.NewPropertyRepository()
	pols := memory.NewPolicyRepository(overbooking.DefaultPolicy())
	res := memory.NewReservationRepository()
	app := &application{properties: props, policyStore: pols, reservations: res}

	require.NoError(t, app.loadFixtures(ctx, path, slog.New(slog.NewTextHandler(io.Discard, nil))))

	inv, err := props.Inventory(ctx, "hotel-1")
	require.NoError(t, err)
	assert.Equal(t, "hotel", inv.PropertyType)

	p, err := pols.Policy(ctx, "villa-1")
	require.NoError(t, err)
	assert.False(t, p.Enabled)

	active, err := res.FindAllActive(ctx, "hotel-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, reservation.ID("r-1"), active[0].ID)
}

func TestLoadFixturesMissingFile(t *testing.T) {
	app := &application{}
	err := app.loadFixtures(context.Background(), filepath.Join(t.TempDir(), "none.json"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, err)
}
