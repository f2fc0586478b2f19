package actor

import (
	"fmt"
	"strconv"
	"strings"
)

// ID identifies an actor within a System. Two IDs are equal only if all
// three components match. A recycled slot always receives a fresh Seq, so a
// reference to a terminated actor never resolves to whatever actor is
// later started in its place.
type ID struct {
	// Sys is the generation number of the System that issued this ID.
	// It changes whenever the System is recreated, so IDs from a prior
	// System instance never collide with IDs from a fresh one.
	Sys uint64

	// Slot is the index into the System's fixed-capacity entry table.
	Slot uint32

	// Seq is the incarnation number of the lease that owns Slot. It is
	// monotonically increasing per slot.
	Seq uint64
}

// String renders the ID in its wire format, "<sys>.<slot>.<seq>".
func (id ID) String() string {
	return fmt.Sprintf("%d.%d.%d", id.Sys, id.Slot, id.Seq)
}

// MarshalText implements encoding.TextMarshaler so ID drops directly into
// encoding/json without a bespoke wrapper type.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseID parses the wire format produced by ID.String. It rejects any
// string that does not have exactly three dot-separated unsigned integer
// components.
func ParseID(s string) (ID, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return ID{}, fmt.Errorf("invalid actor id %q: want 3 "+
			"dot-separated components, got %d", s, len(parts))
	}

	sys, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("invalid actor id %q: bad sys "+
			"component: %w", s, err)
	}

	slot, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return ID{}, fmt.Errorf("invalid actor id %q: bad slot "+
			"component: %w", s, err)
	}

	seq, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("invalid actor id %q: bad seq "+
			"component: %w", s, err)
	}

	return ID{Sys: sys, Slot: uint32(slot), Seq: seq}, nil
}

// IsZero reports whether id is the zero value, which is never a valid,
// live actor ID (slot 0 with seq 0 is reserved for "no actor").
func (id ID) IsZero() bool {
	return id == ID{}
}
