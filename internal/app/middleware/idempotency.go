package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"roomrisk/internal/app/commands"
)

// IdempotentCommand is implemented by commands that may be retried by clients.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	// ResultPrototype returns a pointer the cached payload decodes into.
	ResultPrototype() any
}

// IdempotencyRecord is either a claim held by a running attempt (Pending) or
// the stored result of a completed one.
type IdempotencyRecord struct {
	Key        string
	Command    string
	Payload    []byte
	Pending    bool
	OccurredAt time.Time
}

// ClaimLease bounds how long a pending claim blocks the key. A claim left by
// a crashed process can be taken over once it is older than this.
const ClaimLease = time.Minute

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	// Claim inserts rec as a pending record unless the key is already
	// claimed or completed. It reports whether the caller owns the key.
	Claim(ctx context.Context, rec IdempotencyRecord) (bool, error)
	// Save completes the key with the attempt's result.
	Save(ctx context.Context, rec IdempotencyRecord) error
	// Release drops a pending claim so the key can be retried.
	Release(ctx context.Context, key string) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var (
	errMissingPrototype       = errors.New("middleware: idempotent command requires result prototype")
	ErrIdempotencyKeyReused   = errors.New("middleware: idempotency key reused for another command")
	ErrIdempotencyKeyInFlight = errors.New("middleware: another request with this idempotency key is in progress")
)

// ClaimExpired reports whether a pending record outlived ClaimLease.
func ClaimExpired(rec IdempotencyRecord, now time.Time) bool {
	return rec.Pending && now.Sub(rec.OccurredAt) > ClaimLease
}

// Idempotency replays the stored result of a command that already succeeded
// under the same key. The key is claimed before the command runs, so
// concurrent retries do not execute it twice; the loser gets
// ErrIdempotencyKeyInFlight. Failed attempts release the claim and are not
// stored, so clients can retry.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := idCmd.IdempotencyKey()
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found && !ClaimExpired(rec, time.Now()) {
				return replay(idCmd, rec, codec)
			}

			claimed, err := store.Claim(ctx, IdempotencyRecord{Key: key, Command: cmd.Key(), Pending: true, OccurredAt: time.Now().UTC()})
			if err != nil {
				return nil, err
			}
			if !claimed {
				rec, found, err := store.Get(ctx, key)
				if err != nil {
					return nil, err
				}
				if !found {
					return nil, ErrIdempotencyKeyInFlight
				}
				return replay(idCmd, rec, codec)
			}

			result, err := next.Dispatch(ctx, cmd)
			if err != nil {
				if rerr := store.Release(context.WithoutCancel(ctx), key); rerr != nil {
					return nil, errors.Join(err, rerr)
				}
				return nil, err
			}
			record := IdempotencyRecord{Key: key, Command: cmd.Key(), OccurredAt: time.Now().UTC()}
			if result != nil {
				if record.Payload, err = codec.Encode(result); err != nil {
					return nil, err
				}
			}
			if err := store.Save(context.WithoutCancel(ctx), record); err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

func replay(cmd IdempotentCommand, rec IdempotencyRecord, codec ResultCodec) (any, error) {
	if rec.Command != "" && rec.Command != cmd.Key() {
		return nil, ErrIdempotencyKeyReused
	}
	if rec.Pending {
		return nil, ErrIdempotencyKeyInFlight
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	return normalizePrototype(proto), nil
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
