// Package names tracks the display names captured applications give their objects. Some
// handle types are not unique across object types, so every entry is keyed by the handle's
// raw value together with its object type.
package names

import (
	"github.com/bjoeris/renderdoc-sub003/internal/utils"
	"github.com/bjoeris/renderdoc-sub003/memutils"
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

const nameSeparator = ", "

// Key identifies one named object
type Key struct {
	Handle uint64
	Type   core1_0.ObjectType
}

// Table maps (handle, object type) pairs to display names. Naming a key that already has a
// name appends the new name rather than replacing the old one, because two distinct objects
// may really share a handle value.
type Table struct {
	logger *slog.Logger
	mutex  utils.OptionalMutex
	names  *swiss.Map[Key, string]
}

func NewTable(logger *slog.Logger, useMutex bool) *Table {
	return &Table{
		logger: logger,
		mutex:  utils.NewOptionalMutex(useMutex),
		names:  swiss.NewMap[Key, string](64),
	}
}

// Insert names the object identified by handle and objectType
func (t *Table) Insert(handle uint64, objectType core1_0.ObjectType, name string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	key := Key{Handle: handle, Type: objectType}
	existing, ok := t.names.Get(key)
	if ok && existing != "" {
		if existing == name {
			return
		}
		name = existing + nameSeparator + name
	}

	t.names.Put(key, name)
}

// Lookup returns the name registered for the object, if any
func (t *Table) Lookup(handle uint64, objectType core1_0.ObjectType) (string, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.names.Get(Key{Handle: handle, Type: objectType})
}

// MustLookup returns the name registered for an object that is known to have been named.
// A missing entry is reported as an invariant violation.
func (t *Table) MustLookup(handle uint64, objectType core1_0.ObjectType) string {
	name, ok := t.Lookup(handle, objectType)
	if !ok {
		memutils.ReportInvariantViolation(t.logger, errors.Newf("no name registered for handle 0x%x of object type %d", handle, int(objectType)))
	}
	return name
}

// Remove forgets the name of a destroyed object
func (t *Table) Remove(handle uint64, objectType core1_0.ObjectType) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.names.Delete(Key{Handle: handle, Type: objectType})
}

func (t *Table) Count() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.names.Count()
}

// Visit calls visitor for every named object, in no particular order, until visitor
// returns false
func (t *Table) Visit(visitor func(key Key, name string) bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	t.names.Iter(func(key Key, name string) bool {
		return !visitor(key, name)
	})
}
