package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCapacity(t *testing.T) {
	cases := []struct {
		name string
		inv  Inventory
		want int
	}{
		{"unit typed", Inventory{Units: []UnitAllocation{{"double", 6}, {"suite", 4}}}, 10},
		{"units win over guests", Inventory{Units: []UnitAllocation{{"single", 3}}, MaxGuests: 40}, 3},
		{"guest fallback even", Inventory{MaxGuests: 8}, 4},
		{"guest fallback odd rounds up", Inventory{MaxGuests: 5}, 3},
		{"single guest", Inventory{MaxGuests: 1}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveCapacity(tc.inv)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveCapacityInvalid(t *testing.T) {
	cases := map[string]Inventory{
		"empty":          {},
		"zero units":     {Units: []UnitAllocation{{"double", 0}}},
		"negative units": {Units: []UnitAllocation{{"double", 5}, {"suite", -1}}},
		"zero guests":    {MaxGuests: 0},
	}
	for name, inv := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ResolveCapacity(inv)
			assert.ErrorIs(t, err, ErrInvalidInventory)
			assert.Zero(t, got)
		})
	}
}
