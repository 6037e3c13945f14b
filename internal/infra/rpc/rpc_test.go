package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	availabilityapp "roomrisk/internal/app/handlers/availability"
	"roomrisk/internal/app/middleware"
	"roomrisk/internal/app/queries"
	"roomrisk/internal/app/services/availability"
	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/overbooking"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
	"roomrisk/internal/infra/storage/memory"
)

func startServer(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	repo := memory.NewReservationRepository()
	props := memory.NewPropertyRepository()
	require.NoError(t, props.Save(ctx, inventory.Inventory{PropertyID: "loft", PropertyType: "apartment", MaxGuests: 4}))
	require.NoError(t, repo.Save(ctx, reservation.Reservation{
		ID: "r-1", PropertyID: "loft", RequiredUnits: 2, Status: reservation.StatusConfirmed,
		Range: daterange.MustNew(daterange.Date(2026, 8, 1), daterange.Date(2026, 8, 5)),
	}))
	svc := &availability.Service{
		Reservations: repo,
		Inventory:    props,
		Policies:     memory.NewPolicyRepository(overbooking.DefaultPolicy()),
		Now:          func() time.Time { return daterange.Date(2026, 1, 1) },
	}
	bus := queries.NewInMemoryBus()
	availabilityapp.RegisterQueries(bus, svc)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	Register(srv, &Server{Queries: middleware.ChainQueries(bus, middleware.QueryValidation(middleware.NewStructValidator()))})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	client, err := NewClient(ClientConfig{Addr: "passthrough:///bufnet"}, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCheckAvailabilityOverGRPC(t *testing.T) {
	client := startServer(t)

	res, err := client.CheckAvailability(context.Background(), &CheckAvailabilityRequest{
		PropertyID: "loft",
		CheckIn:    daterange.Date(2026, 8, 3),
		CheckOut:   daterange.Date(2026, 8, 6),
		Units:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCapacity)
	assert.Equal(t, 2, res.BookedUnits)
	assert.False(t, res.Accepted)
	assert.Equal(t, []string{"r-1"}, res.ConflictingReservationIDs)
}

func TestAlternativesAndConflictsOverGRPC(t *testing.T) {
	client := startServer(t)

	alts, err := client.FindAlternatives(context.Background(), &FindAlternativesRequest{
		PropertyID:       "loft",
		CheckIn:          daterange.Date(2026, 8, 4),
		CheckOut:         daterange.Date(2026, 8, 5),
		Units:            1,
		MaxResults:       1,
		SearchRadiusDays: 3,
	})
	require.NoError(t, err)
	require.Len(t, alts.Windows, 1)
	assert.Equal(t, daterange.Date(2026, 8, 5), alts.Windows[0].CheckIn)

	rep, err := client.DetectConflicts(context.Background(), &DetectConflictsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Scanned)
	assert.Empty(t, rep.Conflicts)
}

func TestStatusCodesOverGRPC(t *testing.T) {
	client := startServer(t)

	_, err := client.CheckAvailability(context.Background(), &CheckAvailabilityRequest{
		PropertyID: "nowhere",
		CheckIn:    daterange.Date(2026, 8, 3),
		CheckOut:   daterange.Date(2026, 8, 4),
		Units:      1,
	})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.CheckAvailability(context.Background(), &CheckAvailabilityRequest{
		PropertyID: "loft",
		CheckIn:    daterange.Date(2026, 8, 4),
		CheckOut:   daterange.Date(2026, 8, 3),
		Units:      1,
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCodeFor(t *testing.T) {
	assert.Equal(t, codes.Unavailable, CodeFor(availability.ErrRepositoryUnavailable))
	assert.Equal(t, codes.DeadlineExceeded, CodeFor(context.DeadlineExceeded))
}
