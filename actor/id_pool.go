package actor

import (
	"errors"
	"sync/atomic"
)

// ErrCapacityExhausted is returned by idPool.acquire when every slot in the
// pool is currently leased.
var ErrCapacityExhausted = errors.New("actor: capacity exhausted")

// slotState packs a slot's free/leased flag into the low bit and its current
// incarnation (Seq) into the remaining bits, so acquire/release can proceed
// with a single per-slot compare-and-swap instead of a central lock.
type slotState uint64

const slotLeasedBit = 1

func (s slotState) seq() uint64 {
	return uint64(s) >> 1
}

func (s slotState) leased() bool {
	return uint64(s)&slotLeasedBit != 0
}

func makeSlotState(seq uint64, leased bool) slotState {
	v := seq << 1
	if leased {
		v |= slotLeasedBit
	}
	return slotState(v)
}

// idPool is the fixed-capacity identity allocator described in spec.md
// §4.1. It hands out a lease per acquire, recycles slot indices on lease
// drop, and stamps every lease with a monotonic incarnation so a stale ID
// never matches a reused slot.
type idPool struct {
	sysGen uint64
	slots  []atomic.Uint64 // packed slotState per slot index.
	free   chan uint32     // free-list of slot indices.
}

// newIDPool creates a pool with the given fixed capacity and system
// generation stamp.
func newIDPool(capacity int, sysGen uint64) *idPool {
	p := &idPool{
		sysGen: sysGen,
		slots:  make([]atomic.Uint64, capacity),
		free:   make(chan uint32, capacity),
	}
	for i := 0; i < capacity; i++ {
		p.free <- uint32(i)
	}
	return p
}

// capacity returns the fixed number of slots in the pool.
func (p *idPool) capacity() int {
	return len(p.slots)
}

// lease owns exactly one slot until release is called.
type lease struct {
	pool *idPool
	id   ID
}

// acquire returns a lease owning exactly one free slot, with a freshly
// incremented incarnation. It returns ErrCapacityExhausted if no slot is
// free.
func (p *idPool) acquire() (*lease, error) {
	var slot uint32
	select {
	case slot = <-p.free:
	default:
		return nil, ErrCapacityExhausted
	}

	for {
		old := slotState(p.slots[slot].Load())
		next := makeSlotState(old.seq()+1, true)
		if p.slots[slot].CompareAndSwap(uint64(old), uint64(next)) {
			return &lease{
				pool: p,
				id: ID{
					Sys:  p.sysGen,
					Slot: slot,
					Seq:  next.seq(),
				},
			}, nil
		}
	}
}

// release returns the lease's slot to the free list. Releasing a lease more
// than once is a programmer error but is made idempotent via the leased
// flag to avoid double-freeing the same slot index into the free channel.
func (l *lease) release() {
	for {
		old := slotState(l.pool.slots[l.id.Slot].Load())
		if !old.leased() || old.seq() != l.id.Seq {
			// Already released, or superseded by a newer lease on
			// this slot (should not happen under correct usage).
			return
		}
		next := makeSlotState(old.seq(), false)
		if l.pool.slots[l.id.Slot].CompareAndSwap(uint64(old), uint64(next)) {
			l.pool.free <- l.id.Slot
			return
		}
	}
}
