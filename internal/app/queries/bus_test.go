package queries_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomrisk/internal/app/queries"
)

type echoQuery struct{ Value string }

func (echoQuery) Key() string { return "test.echo" }

type otherQuery struct{}

func (otherQuery) Key() string { return "test.other" }

func TestAskRoutesToTypedHandler(t *testing.T) {
	bus := queries.NewInMemoryBus()
	queries.Register[echoQuery, string](bus, "test.echo", queries.HandlerFunc[echoQuery, string](func(_ context.Context, q echoQuery) (string, error) {
		return "echo:" + q.Value, nil
	}))

	got, err := queries.Ask[echoQuery, string](context.Background(), bus, echoQuery{Value: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", got)
	assert.Equal(t, []string{"test.echo"}, bus.Keys())
}

func TestAskErrors(t *testing.T) {
	bus := queries.NewInMemoryBus()
	queries.Register[echoQuery, string](bus, "test.echo", queries.HandlerFunc[echoQuery, string](func(context.Context, echoQuery) (string, error) {
		return "x", nil
	}))

	_, err := queries.Ask[otherQuery, string](context.Background(), bus, otherQuery{})
	assert.ErrorIs(t, err, queries.ErrHandlerNotFound)

	_, err = queries.Ask[echoQuery, int](context.Background(), bus, echoQuery{})
	assert.ErrorIs(t, err, queries.ErrResultType)

	_, err = queries.Ask[echoQuery, string](context.Background(), nil, echoQuery{})
	assert.ErrorIs(t, err, queries.ErrNilBus)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	bus := queries.NewInMemoryBus()
	h := queries.HandlerFunc[echoQuery, string](func(context.Context, echoQuery) (string, error) { return "", nil })
	queries.Register[echoQuery, string](bus, "test.echo", h)
	assert.Panics(t, func() { queries.Register[echoQuery, string](bus, "test.echo", h) })
}
