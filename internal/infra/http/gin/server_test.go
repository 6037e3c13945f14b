package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomrisk/internal/app/commands"
	"roomrisk/internal/app/dto"
	availabilityapp "roomrisk/internal/app/handlers/availability"
	"roomrisk/internal/app/handlers/reservations"
	"roomrisk/internal/app/middleware"
	"roomrisk/internal/app/queries"
	"roomrisk/internal/app/services/availability"
	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/overbooking"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/domain/shared/daterange"
	"roomrisk/internal/infra/obs"
	"roomrisk/internal/infra/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	repo   *memory.ReservationRepository
}

func newTestServer(t *testing.T, repo reservation.Repository) testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.NewReservationRepository()
	if repo == nil {
		repo = store
	}
	props := memory.NewPropertyRepository()
	require.NoError(t, props.Save(ctx, inventory.Inventory{
		PropertyID:   "cabin",
		PropertyType: "hotel",
		Units:        []inventory.UnitAllocation{{UnitType: "room", Count: 1}},
	}))
	svc := &availability.Service{
		Reservations: repo,
		Inventory:    props,
		Policies:     memory.NewPolicyRepository(overbooking.DefaultPolicy()),
		Now:          func() time.Time { return daterange.Date(2026, 1, 1) },
	}
	validator := middleware.NewStructValidator()

	qbus := queries.NewInMemoryBus()
	availabilityapp.RegisterQueries(qbus, svc)
	cbus := commands.NewInMemoryBus()
	commands.Register[reservations.HoldUnitsCommand, *reservations.HoldUnitsResult](cbus, reservations.HoldUnitsKey, &reservations.HoldUnitsHandler{
		Engine:       svc,
		Reservations: store,
		Locker:       memory.NewLocker(),
		Outbox:       memory.NewOutbox(),
	})

	router := NewRouter(obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Availability: AvailabilityHandler{Queries: middleware.ChainQueries(qbus, middleware.QueryValidation(validator))},
		Holds:        HoldHandler{Commands: middleware.ChainCommands(cbus, middleware.Validation(validator))},
	})
	return testServer{router: router, repo: store}
}

func (s testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func window(from, to int) map[string]any {
	return map[string]any{
		"check_in":  daterange.Date(2026, 7, from),
		"check_out": daterange.Date(2026, 7, to),
	}
}

func TestCheckAvailabilityEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/properties/cabin/availability", window(3, 5))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res dto.AvailabilityResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Accepted)
	assert.Equal(t, 1, res.RequiredUnits)
	assert.Equal(t, "low", res.RiskLevel)
}

func TestHoldThenCheckAndConflicts(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/properties/cabin/holds", window(3, 5))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/properties/cabin/holds", window(4, 6))
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	body := window(4, 6)
	body["include_alternatives"] = true
	rec = s.do(t, http.MethodPost, "/api/v1/properties/cabin/availability", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var res dto.AvailabilityResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Accepted)
	assert.NotEmpty(t, res.AlternativeWindows)

	rec = s.do(t, http.MethodGet, "/api/v1/conflicts?property_id=cabin&check_capacity=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rep dto.ConflictReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Empty(t, rep.Conflicts)
	assert.Equal(t, 1, rep.Scanned)
}

func TestAlternativesEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodPost, "/api/v1/properties/cabin/alternatives", window(3, 5))
	require.Equal(t, http.StatusOK, rec.Code)
	var alts dto.Alternatives
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alts))
	assert.Len(t, alts.Windows, 5)
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/properties/ghost/availability", window(3, 5))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/properties/cabin/availability", window(5, 3))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := window(3, 5)
	body["units"] = -2
	rec = s.do(t, http.MethodPost, "/api/v1/properties/cabin/availability", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/conflicts?check_capacity=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	down := newTestServer(t, downRepository{})
	rec = down.do(t, http.MethodPost, "/api/v1/properties/cabin/availability", window(3, 5))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{inventory.ErrPropertyNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: boom", availability.ErrRepositoryUnavailable), http.StatusServiceUnavailable},
		{daterange.ErrInvalidRange, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{middleware.ErrIdempotencyKeyInFlight, http.StatusConflict},
		{middleware.ErrIdempotencyKeyReused, http.StatusUnprocessableEntity},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

type downRepository struct{}

func (downRepository) FindOverlapping(context.Context, inventory.PropertyID, daterange.DateRange, []reservation.Status, reservation.ID) ([]reservation.Reservation, error) {
	return nil, errors.New("no reachable replicas")
}

func (downRepository) FindAllActive(context.Context, inventory.PropertyID) ([]reservation.Reservation, error) {
	return nil, errors.New("no reachable replicas")
}
