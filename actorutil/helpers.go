// Package actorutil provides convenience functions for working with the
// actor system, adapted from the teacher's ActorRef[M,R].Ask-based
// helpers to this system's Send-plus-embedded-reply-channel idiom: a
// message type carries its own reply channel field (as supervisor.Command
// does), and Ask blocks on that channel directly rather than through a
// Future/ActorRef wrapper.
package actorutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/roasbeef/agner/actor"
)

// Ask sends the message build(reply) constructs to id and blocks until a
// value arrives on reply, ctx is cancelled, or the send itself fails
// (e.g. id has no live entry).
func Ask[M any, R any](ctx context.Context, sys *actor.System, id actor.ID,
	build func(reply chan<- R) M) (R, error) {

	replyCh := make(chan R, 1)
	msg := build(replyCh)

	if err := actor.Send(sys, ctx, id, msg); err != nil {
		var zero R
		return zero, err
	}

	select {
	case r := <-replyCh:
		return r, nil
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// AskTyped is like Ask but with an additional type assertion on the
// response, for the common case of an actor replying with a union/
// interface type and the caller wanting one specific concrete case.
func AskTyped[M any, R any, T any](ctx context.Context, sys *actor.System,
	id actor.ID, build func(reply chan<- R) M) (T, error) {

	resp, err := Ask(ctx, sys, id, build)
	if err != nil {
		var zero T
		return zero, err
	}

	typed, ok := any(resp).(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf(
			"actorutil: unexpected response type: got %T, want %T",
			resp, zero)
	}
	return typed, nil
}

// TellAll sends msg to every id in ids using non-blocking, best-effort
// delivery, for broadcasting to a set of actors without waiting on any of
// them individually.
func TellAll[M any](sys *actor.System, ids []actor.ID, msg M) {
	for _, id := range ids {
		_ = actor.TrySend(sys, id, msg)
	}
}

// ParallelAsk issues build-constructed Ask calls against every id in ids
// concurrently and collects all results, in the same order as ids.
func ParallelAsk[M any, R any](ctx context.Context, sys *actor.System,
	ids []actor.ID, build func(id actor.ID, reply chan<- R) M) []fn.Result[R] {

	results := make([]fn.Result[R], len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id actor.ID) {
			defer wg.Done()
			r, err := Ask(ctx, sys, id, func(reply chan<- R) M {
				return build(id, reply)
			})
			if err != nil {
				results[i] = fn.Err[R](err)
			} else {
				results[i] = fn.Ok(r)
			}
		}(i, id)
	}
	wg.Wait()

	return results
}

// ParallelAskSame is ParallelAsk specialized to a single message template
// shared by every target, rebuilt once per id so each gets its own reply
// channel.
func ParallelAskSame[M any, R any](ctx context.Context, sys *actor.System,
	ids []actor.ID, build func(reply chan<- R) M) []fn.Result[R] {

	return ParallelAsk(ctx, sys, ids, func(_ actor.ID, reply chan<- R) M {
		return build(reply)
	})
}

// FirstSuccess issues build-constructed Ask calls against every id in ids
// concurrently and returns the first successful response, cancelling the
// rest. If every call fails, the last error observed is returned.
func FirstSuccess[M any, R any](ctx context.Context, sys *actor.System,
	ids []actor.ID, build func(id actor.ID, reply chan<- R) M) (R, error) {

	if len(ids) == 0 {
		var zero R
		return zero, fmt.Errorf("actorutil: no actors provided")
	}

	type indexed struct {
		result fn.Result[R]
		idx    int
	}
	resultCh := make(chan indexed, len(ids))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i, id := range ids {
		go func(idx int, id actor.ID) {
			r, err := Ask(ctx, sys, id, func(reply chan<- R) M {
				return build(id, reply)
			})
			var res fn.Result[R]
			if err != nil {
				res = fn.Err[R](err)
			} else {
				res = fn.Ok(r)
			}
			select {
			case resultCh <- indexed{result: res, idx: idx}:
			case <-ctx.Done():
			}
		}(i, id)
	}

	var lastErr error
	for range ids {
		select {
		case res := <-resultCh:
			val, err := res.result.Unpack()
			if err == nil {
				cancel()
				return val, nil
			}
			lastErr = err

		case <-ctx.Done():
			var zero R
			return zero, ctx.Err()
		}
	}

	var zero R
	return zero, lastErr
}

// MapResponses transforms every successful result with mapFn, passing
// error results through unchanged.
func MapResponses[R any, T any](results []fn.Result[R], mapFn func(R) T) []fn.Result[T] {
	mapped := make([]fn.Result[T], len(results))
	for i, r := range results {
		val, err := r.Unpack()
		if err != nil {
			mapped[i] = fn.Err[T](err)
		} else {
			mapped[i] = fn.Ok(mapFn(val))
		}
	}
	return mapped
}

// CollectSuccesses returns only the successful values from results,
// discarding errors.
func CollectSuccesses[R any](results []fn.Result[R]) []R {
	var successes []R
	for _, r := range results {
		if val, err := r.Unpack(); err == nil {
			successes = append(successes, val)
		}
	}
	return successes
}

// AllSucceeded reports whether every result in results is successful.
func AllSucceeded[R any](results []fn.Result[R]) bool {
	for _, r := range results {
		if _, err := r.Unpack(); err != nil {
			return false
		}
	}
	return true
}

// FirstError returns the first error in results, or nil if every result
// succeeded.
func FirstError[R any](results []fn.Result[R]) error {
	for _, r := range results {
		if _, err := r.Unpack(); err != nil {
			return err
		}
	}
	return nil
}
