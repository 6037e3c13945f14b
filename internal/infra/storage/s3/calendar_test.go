package s3

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/overbooking"
	"roomrisk/internal/infra/storage/memory"
)

func TestParseCalendarFormats(t *testing.T) {
	arr := `[{"name":"carnival","start_month":2,"start_day":10,"end_month":2,"end_day":18,"weight":25}]`
	periods, err := ParseCalendar(strings.NewReader(arr))
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, "carnival", periods[0].Name)
	assert.Equal(t, 25, periods[0].Weight)

	obj := `{"periods":[{"name":"ski","start_month":12,"start_day":20,"end_month":3,"end_day":15}]}`
	periods, err = ParseCalendar(strings.NewReader(obj))
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, 12, periods[0].StartMonth)
}

func TestParseCalendarRejectsInvalidPeriods(t *testing.T) {
	_, err := ParseCalendar(strings.NewReader(`[{"name":"","start_month":13,"start_day":1,"end_month":1,"end_day":1}]`))
	assert.ErrorIs(t, err, overbooking.ErrInvalidPolicy)

	_, err = ParseCalendar(strings.NewReader(`{"periods":`))
	assert.Error(t, err)
}

type stubSource struct {
	periods []overbooking.SeasonalPeriod
	err     error
	calls   int
}

func (s *stubSource) Load(context.Context) ([]overbooking.SeasonalPeriod, error) {
	s.calls++
	return s.periods, s.err
}

func TestSeasonalPoliciesMergesAndCaches(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	carnival := overbooking.SeasonalPeriod{Name: "carnival", StartMonth: 2, StartDay: 10, EndMonth: 2, EndDay: 18}
	src := &stubSource{periods: []overbooking.SeasonalPeriod{carnival}}
	base := memory.NewPolicyRepository(overbooking.DefaultPolicy())
	sp := &SeasonalPolicies{Base: base, Source: src, Refresh: time.Minute, Now: func() time.Time { return now }}

	p, err := sp.Policy(ctx, inventory.PropertyID("hotel-1"))
	require.NoError(t, err)
	assert.Len(t, p.SeasonalPeriods, len(overbooking.BuiltinHolidays())+1)
	assert.Equal(t, "carnival", p.SeasonalPeriods[len(p.SeasonalPeriods)-1].Name)

	_, err = sp.Policy(ctx, "hotel-2")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	now = now.Add(2 * time.Minute)
	_, err = sp.Policy(ctx, "hotel-1")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestSeasonalPoliciesKeepsLastGoodCalendar(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	carnival := overbooking.SeasonalPeriod{Name: "carnival", StartMonth: 2, StartDay: 10, EndMonth: 2, EndDay: 18}
	src := &stubSource{periods: []overbooking.SeasonalPeriod{carnival}}
	sp := &SeasonalPolicies{
		Base:    memory.NewPolicyRepository(overbooking.Policy{}),
		Source:  src,
		Refresh: time.Minute,
		Now:     func() time.Time { return now },
	}
	require.NoError(t, sp.Reload(ctx))

	src.periods, src.err = nil, errors.New("bucket offline")
	now = now.Add(time.Hour)
	p, err := sp.Policy(ctx, "hotel-1")
	require.NoError(t, err)
	require.Len(t, p.SeasonalPeriods, 1)
	assert.Equal(t, "carnival", p.SeasonalPeriods[0].Name)
}

type blockingSource struct {
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
	periods []overbooking.SeasonalPeriod
}

func (b *blockingSource) Load(ctx context.Context) ([]overbooking.SeasonalPeriod, error) {
	close(b.started)
	<-b.release
	b.ctxErr <- ctx.Err()
	return b.periods, nil
}

func TestSeasonalPoliciesFetchDoesNotBlockOtherLookups(t *testing.T) {
	carnival := overbooking.SeasonalPeriod{Name: "carnival", StartMonth: 2, StartDay: 10, EndMonth: 2, EndDay: 18}
	src := &blockingSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
		periods: []overbooking.SeasonalPeriod{carnival},
	}
	sp := &SeasonalPolicies{Base: memory.NewPolicyRepository(overbooking.Policy{}), Source: src, Refresh: time.Minute}

	reqCtx, cancel := context.WithCancel(context.Background())
	done := make(chan overbooking.Policy, 1)
	go func() {
		p, _ := sp.Policy(reqCtx, "hotel-1")
		done <- p
	}()
	<-src.started
	cancel()

	p, err := sp.Policy(context.Background(), "hotel-2")
	require.NoError(t, err)
	assert.Empty(t, p.SeasonalPeriods, "concurrent lookup is served from cache while a fetch runs")

	close(src.release)
	assert.NoError(t, <-src.ctxErr, "fetch is detached from the requesting call")
	first := <-done
	require.Len(t, first.SeasonalPeriods, 1)

	p, err = sp.Policy(context.Background(), "hotel-3")
	require.NoError(t, err)
	require.Len(t, p.SeasonalPeriods, 1)
	assert.Equal(t, "carnival", p.SeasonalPeriods[0].Name)
}
