package utils

import (
	"sync"
)

// OptionalMutex is a reader/writer lock that can be switched off. Replay sessions driven from
// a single goroutine create it disabled, and every method is then a no-op.
type OptionalMutex struct {
	mutex *sync.RWMutex
}

func NewOptionalMutex(enabled bool) OptionalMutex {
	if !enabled {
		return OptionalMutex{}
	}
	return OptionalMutex{mutex: &sync.RWMutex{}}
}

func (m OptionalMutex) Enabled() bool { return m.mutex != nil }

func (m OptionalMutex) Lock() {
	if m.mutex != nil {
		m.mutex.Lock()
	}
}

func (m OptionalMutex) Unlock() {
	if m.mutex != nil {
		m.mutex.Unlock()
	}
}

func (m OptionalMutex) RLock() {
	if m.mutex != nil {
		m.mutex.RLock()
	}
}

func (m OptionalMutex) RUnlock() {
	if m.mutex != nil {
		m.mutex.RUnlock()
	}
}
