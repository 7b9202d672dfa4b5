package names

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// StaleSlotError is returned when a Slot refers to an entry that has been removed, or to a
// position that has since been reused
var StaleSlotError = errors.New("slot refers to a removed entry")

// WrongKindError is returned when a Slot issued for one object type is used against an arena
// holding another
var WrongKindError = errors.New("slot belongs to a different object type")

// Slot is a typed reference into an Arena. Raw handle values may be reused by the driver
// across unrelated objects; a Slot cannot be, because it carries both the object type it was
// issued for and the generation of the entry it refers to.
type Slot struct {
	Kind       core1_0.ObjectType
	Index      uint32
	Generation uint32
}

func (s Slot) String() string {
	return fmt.Sprintf("%d#%d.%d", int(s.Kind), s.Index, s.Generation)
}

type arenaEntry[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Arena stores values of one object type and hands out generation-checked Slots for them.
// Arena is not safe for concurrent use.
type Arena[T any] struct {
	kind    core1_0.ObjectType
	entries []arenaEntry[T]
	free    []uint32
	count   int
}

func NewArena[T any](kind core1_0.ObjectType) *Arena[T] {
	return &Arena[T]{kind: kind}
}

func (a *Arena[T]) Kind() core1_0.ObjectType { return a.kind }

func (a *Arena[T]) Len() int { return a.count }

// Insert stores value and returns the Slot that refers to it
func (a *Arena[T]) Insert(value T) Slot {
	a.count++

	if len(a.free) > 0 {
		index := a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]

		entry := &a.entries[index]
		entry.value = value
		entry.live = true
		return Slot{Kind: a.kind, Index: index, Generation: entry.generation}
	}

	a.entries = append(a.entries, arenaEntry[T]{value: value, live: true})
	return Slot{Kind: a.kind, Index: uint32(len(a.entries) - 1)}
}

func (a *Arena[T]) entry(slot Slot) (*arenaEntry[T], error) {
	if slot.Kind != a.kind {
		return nil, errors.Wrapf(WrongKindError, "slot %s used with arena of object type %d", slot, int(a.kind))
	}
	if int(slot.Index) >= len(a.entries) {
		return nil, errors.Wrapf(StaleSlotError, "slot %s was never issued", slot)
	}

	entry := &a.entries[slot.Index]
	if !entry.live || entry.generation != slot.Generation {
		return nil, errors.Wrapf(StaleSlotError, "slot %s", slot)
	}
	return entry, nil
}

// Get returns the value slot refers to
func (a *Arena[T]) Get(slot Slot) (T, error) {
	entry, err := a.entry(slot)
	if err != nil {
		var zero T
		return zero, err
	}
	return entry.value, nil
}

// Set replaces the value slot refers to
func (a *Arena[T]) Set(slot Slot, value T) error {
	entry, err := a.entry(slot)
	if err != nil {
		return err
	}
	entry.value = value
	return nil
}

// Remove frees slot's position for reuse and returns the value it held. Every existing copy
// of slot is invalidated.
func (a *Arena[T]) Remove(slot Slot) (T, error) {
	var zero T
	entry, err := a.entry(slot)
	if err != nil {
		return zero, err
	}

	value := entry.value
	entry.value = zero
	entry.live = false
	entry.generation++
	a.free = append(a.free, slot.Index)
	a.count--

	return value, nil
}

// Visit calls visitor for every live entry in slot order until visitor returns false
func (a *Arena[T]) Visit(visitor func(slot Slot, value T) bool) {
	for i := range a.entries {
		entry := &a.entries[i]
		if !entry.live {
			continue
		}
		if !visitor(Slot{Kind: a.kind, Index: uint32(i), Generation: entry.generation}, entry.value) {
			return
		}
	}
}
