package middleware

import (
	"context"
	"time"

	"roomrisk/internal/app/commands"
	"roomrisk/internal/app/queries"
)

// Timeout bounds each command with d unless the caller set an earlier deadline.
func Timeout(d time.Duration) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		if d <= 0 {
			return next
		}
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryTimeout(d time.Duration) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		if d <= 0 {
			return next
		}
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next.Ask(ctx, q)
		})
	}
}
