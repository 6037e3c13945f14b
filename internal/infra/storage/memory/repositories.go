package memory

import (
	"context"
	"sort"
	"sync"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/overbooking"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
)

// ReservationRepository keeps reservations in memory. It implements both the
// read port used by the engine and the writer used by the hold command.
type ReservationRepository struct {
	mu    sync.RWMutex
	items map[reservation.ID]reservation.Reservation
}

// NewReservationRepository builds an empty repository.
func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{items: make(map[reservation.ID]reservation.Reservation)}
}

// FindOverlapping filters stored reservations with the repository contract.
func (r *ReservationRepository) FindOverlapping(ctx context.Context, propertyID inventory.PropertyID, dr daterange.DateRange, statuses []reservation.Status, excludeID reservation.ID) ([]reservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []reservation.Reservation
	for _, item := range r.items {
		if reservation.Matches(item, propertyID, dr, statuses, excludeID) {
			out = append(out, item)
		}
	}
	sortReservations(out)
	return out, nil
}

// FindAllActive returns pending and confirmed reservations, optionally for one property.
func (r *ReservationRepository) FindAllActive(ctx context.Context, propertyID inventory.PropertyID) ([]reservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []reservation.Reservation
	for _, item := range r.items {
		if propertyID != "" && item.PropertyID != propertyID {
			continue
		}
		if item.Status.CountsTowardOccupancy() {
			out = append(out, item)
		}
	}
	sortReservations(out)
	return out, nil
}

// Save stores the current reservation state.
func (r *ReservationRepository) Save(ctx context.Context, item reservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
	return nil
}

func sortReservations(rs []reservation.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Range.CheckIn.Equal(rs[j].Range.CheckIn) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].Range.CheckIn.Before(rs[j].Range.CheckIn)
	})
}

// PropertyRepository stores inventories by property.
type PropertyRepository struct {
	mu    sync.RWMutex
	items map[inventory.PropertyID]inventory.Inventory
}

// NewPropertyRepository builds an empty property store.
func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{items: make(map[inventory.PropertyID]inventory.Inventory)}
}

// Inventory returns a property inventory or inventory.ErrPropertyNotFound.
func (r *PropertyRepository) Inventory(ctx context.Context, id inventory.PropertyID) (inventory.Inventory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.items[id]
	if !ok {
		return inventory.Inventory{}, inventory.ErrPropertyNotFound
	}
	return inv, nil
}

// Save stores/updates an inventory entry.
func (r *PropertyRepository) Save(ctx context.Context, inv inventory.Inventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[inv.PropertyID] = inv
	return nil
}

// PolicyRepository holds per-property overrides on top of a default policy.
type PolicyRepository struct {
	mu        sync.RWMutex
	fallback  overbooking.Policy
	overrides map[inventory.PropertyID]overbooking.Policy
}

// NewPolicyRepository returns a provider answering fallback for unknown properties.
func NewPolicyRepository(fallback overbooking.Policy) *PolicyRepository {
	return &PolicyRepository{fallback: fallback, overrides: make(map[inventory.PropertyID]overbooking.Policy)}
}

// Policy resolves the property's policy.
func (r *PolicyRepository) Policy(ctx context.Context, id inventory.PropertyID) (overbooking.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.overrides[id]; ok {
		return p, nil
	}
	return r.fallback, nil
}

// Set overrides the policy of one property.
func (r *PolicyRepository) Set(ctx context.Context, id inventory.PropertyID, p overbooking.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[id] = p
	return nil
}

var (
	_ reservation.Repository     = (*ReservationRepository)(nil)
	_ reservation.Writer         = (*ReservationRepository)(nil)
	_ inventory.Provider         = (*PropertyRepository)(nil)
	_ overbooking.PolicyProvider = (*PolicyRepository)(nil)
)
