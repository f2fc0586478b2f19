package actor

import (
	"context"
	"math/rand"
	"sync/atomic"
)

// RoutingStrategy picks one member of a fixed pool of actor IDs to receive
// the next message. It fills the gap left by the teacher's missing
// router.go: the shape (a Next(pool) selector plus round-robin/random
// implementations) is grounded on the load-balancing pattern used by the
// teacher's actorutil.Pool, generalized here into a standalone strategy
// usable by a simple-one-for-one-style pool without pulling in the whole
// supervisor package.
type RoutingStrategy interface {
	// Next returns the index into pool chosen for the next message.
	Next(pool []ID) int
}

// roundRobinStrategy cycles through the pool in order.
type roundRobinStrategy struct {
	counter atomic.Uint64
}

// NewRoundRobinStrategy returns a RoutingStrategy that cycles through the
// pool in order, wrapping back to the start.
func NewRoundRobinStrategy() RoutingStrategy {
	return &roundRobinStrategy{}
}

func (s *roundRobinStrategy) Next(pool []ID) int {
	if len(pool) == 0 {
		return -1
	}
	n := s.counter.Add(1) - 1
	return int(n % uint64(len(pool)))
}

// randomStrategy picks a uniformly random member of the pool.
type randomStrategy struct{}

// NewRandomStrategy returns a RoutingStrategy that picks a uniformly
// random pool member on every call.
func NewRandomStrategy() RoutingStrategy {
	return randomStrategy{}
}

func (randomStrategy) Next(pool []ID) int {
	if len(pool) == 0 {
		return -1
	}
	return rand.Intn(len(pool))
}

// Router fans a single logical message type out across a fixed pool of
// actor IDs using a RoutingStrategy, the typed counterpart of the
// teacher's pool-based load balancing.
type Router[M any] struct {
	sys      *System
	pool     []ID
	strategy RoutingStrategy
}

// NewRouter builds a Router over the given pool using strategy. An empty
// pool is valid; every Send then fails with ErrNoActor.
func NewRouter[M any](sys *System, pool []ID, strategy RoutingStrategy) *Router[M] {
	return &Router[M]{sys: sys, pool: pool, strategy: strategy}
}

// Send routes msg to the pool member chosen by the router's strategy.
func (r *Router[M]) Send(ctx context.Context, msg M) error {
	idx := r.strategy.Next(r.pool)
	if idx < 0 {
		return ErrNoActor
	}
	return Send(r.sys, ctx, r.pool[idx], msg)
}

// TrySend is the non-blocking counterpart of Send.
func (r *Router[M]) TrySend(msg M) error {
	idx := r.strategy.Next(r.pool)
	if idx < 0 {
		return ErrNoActor
	}
	return TrySend(r.sys, r.pool[idx], msg)
}

// Pool returns a copy of the router's current member list.
func (r *Router[M]) Pool() []ID {
	out := make([]ID, len(r.pool))
	copy(out, r.pool)
	return out
}

// SetPool replaces the router's member list, e.g. after a uniform
// supervisor's pool has grown or shrunk.
func (r *Router[M]) SetPool(pool []ID) {
	r.pool = pool
}
