package inventory

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidInventory = errors.New("inventory: property has no resolvable capacity")
	ErrPropertyNotFound = errors.New("inventory: property not found")
)

type PropertyID string

// UnitAllocation is one line of a unit-typed inventory, e.g. ("double", 12).
type UnitAllocation struct {
	UnitType string `json:"unit_type" bson:"unit_type"`
	Count    int    `json:"count" bson:"count"`
}

// Inventory describes what a property can sell. Units takes precedence; MaxGuests
// is the fallback for properties without a unit breakdown.
type Inventory struct {
	PropertyID   PropertyID       `json:"property_id"`
	PropertyType string           `json:"property_type"`
	Units        []UnitAllocation `json:"units,omitempty"`
	MaxGuests    int              `json:"max_guests,omitempty"`
}

// Provider loads inventories; a missing property yields ErrPropertyNotFound.
type Provider interface {
	Inventory(ctx context.Context, id PropertyID) (Inventory, error)
}

func (inv Inventory) UnitTyped() bool {
	return len(inv.Units) > 0
}

// ResolveCapacity returns the number of claimable units. Two guests are assumed
// per unit when only MaxGuests is known.
func ResolveCapacity(inv Inventory) (int, error) {
	if inv.UnitTyped() {
		total := 0
		for _, u := range inv.Units {
			if u.Count < 0 {
				return 0, fmt.Errorf("%w: unit type %q has negative count %d", ErrInvalidInventory, u.UnitType, u.Count)
			}
			total += u.Count
		}
		if total == 0 {
			return 0, fmt.Errorf("%w: unit counts sum to zero", ErrInvalidInventory)
		}
		return total, nil
	}
	if inv.MaxGuests > 0 {
		return (inv.MaxGuests + 1) / 2, nil
	}
	return 0, ErrInvalidInventory
}
