// Package state holds the live practice history shared by the recorder, the
// CLI commands and the sync engine.
package state

import (
	"sync"

	"github.com/verte-zerg/kyudo/internal/model"
)

// Container is the single owner of the running model.State. Share it by
// pointer; every read returns a copy and every write is serialized.
type Container struct {
	mu    sync.RWMutex
	state model.State
}

// New wraps an initial state.
func New(initial model.State) *Container {
	return &Container{state: initial.Clone()}
}

// CurrentStatistics aggregates the session in progress.
func (c *Container) CurrentStatistics() model.Statistics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Current.Statistics()
}

// CurrentSets returns the sets of the session in progress in shooting order.
func (c *Container) CurrentSets() []model.Set {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Current.Clone().Sets
}

// PastSessions returns the closed sessions, oldest first.
func (c *Container) PastSessions() []model.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone().Past
}

// RecordShots appends a new set built from shots to the current session and
// returns it. It does not persist anything.
func (c *Container) RecordShots(shots ...model.Shot) model.Set {
	set := model.RecordSet(shots...)
	c.mu.Lock()
	c.state.Current.Sets = append(c.state.Current.Sets, set)
	c.mu.Unlock()
	return set
}

// CloseSession moves a non-empty current session into the past and starts a
// fresh one. It returns false when there was nothing to close.
func (c *Container) CloseSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.state.Current.Sets) == 0 {
		return false
	}
	c.state.Past = append(c.state.Past, c.state.Current)
	c.state.Current = model.Session{}
	return true
}

// Snapshot returns an independent copy of the whole aggregate.
func (c *Container) Snapshot() model.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

// Replace swaps in a state loaded from the store.
func (c *Container) Replace(st model.State) {
	st = st.Clone()
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
}

// Identity returns the last known persistence identity.
func (c *Container) Identity() model.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Identity
}

// SetIdentity records where the state was last written.
func (c *Container) SetIdentity(id model.Identity) {
	c.mu.Lock()
	c.state.Identity = id
	c.mu.Unlock()
}
