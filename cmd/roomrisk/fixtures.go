package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/overbooking"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

type fixtureFile struct {
	Properties   []propertyFixture    `json:"properties"`
	Reservations []reservationFixture `json:"reservations"`
}

type propertyFixture struct {
	ID           string                     `json:"id"`
	PropertyType string                     `json:"property_type"`
	Units        []inventory.UnitAllocation `json:"units"`
	MaxGuests    int                        `json:"max_guests"`
	Policy       *overbooking.Policy        `json:"policy,omitempty"`
}

type reservationFixture struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Units      int    `json:"units"`
	Status     string `json:"status"`
}

// loadFixtures seeds properties, policies and reservations from a JSON file.
// Invalid entries are logged and skipped.
func (a *application) loadFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fx fixtureFile
	if err := json.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	for _, p := range fx.Properties {
		inv := inventory.Inventory{
			PropertyID:   inventory.PropertyID(p.ID),
			PropertyType: p.PropertyType,
			Units:        p.Units,
			MaxGuests:    p.MaxGuests,
		}
		if err := a.properties.Save(ctx, inv); err != nil {
			logger.Error("cannot store fixture property", "property_id", p.ID, "error", err)
			continue
		}
		if p.Policy != nil {
			if err := a.policyStore.Set(ctx, inv.PropertyID, *p.Policy); err != nil {
				logger.Error("fixture policy rejected", "property_id", p.ID, "error", err)
			}
		}
	}

	now := time.Now().UTC()
	imported := 0
	for _, r := range fx.Reservations {
		item, err := r.toReservation(now)
		if err != nil {
			logger.Error("fixture reservation invalid", "reservation_id", r.ID, "error", err)
			continue
		}
		if err := a.reservations.Save(ctx, item); err != nil {
			logger.Error("cannot store fixture reservation", "reservation_id", r.ID, "error", err)
			continue
		}
		imported++
	}
	logger.Info("fixtures imported", "properties", len(fx.Properties), "reservations", imported)
	return nil
}

func (f reservationFixture) toReservation(now time.Time) (reservation.Reservation, error) {
	checkIn, err := time.Parse(time.DateOnly, f.CheckIn)
	if err != nil {
		return reservation.Reservation{}, fmt.Errorf("check_in: %w", err)
	}
	checkOut, err := time.Parse(time.DateOnly, f.CheckOut)
	if err != nil {
		return reservation.Reservation{}, fmt.Errorf("check_out: %w", err)
	}
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return reservation.Reservation{}, err
	}
	units := f.Units
	if units == 0 {
		units = 1
	}
	item, err := reservation.New(reservation.CreateParams{
		ID:            reservation.ID(f.ID),
		PropertyID:    inventory.PropertyID(f.PropertyID),
		Range:         dr,
		RequiredUnits: units,
		CreatedAt:     now,
	})
	if err != nil {
		return reservation.Reservation{}, err
	}
	if f.Status != "" {
		item.Status = reservation.Status(f.Status)
		if !item.Status.Valid() {
			return reservation.Reservation{}, fmt.Errorf("unknown status %q", f.Status)
		}
	}
	return item, nil
}
