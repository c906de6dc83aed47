// Package roster tracks who is in a session and how each participant is
// presented: as a watcher or as a player with a score.
package roster

import (
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/cory-johannsen/memosono/internal/presence"
)

// Role is how a participant is shown.
type Role int

const (
	RoleWatcher Role = iota
	RolePlayer
)

func (r Role) String() string {
	if r == RolePlayer {
		return "player"
	}
	return "watcher"
}

// Entry is one participant's presentation state.
type Entry struct {
	Identity presence.Identity
	Role     Role
	// Playing marks whose turn it is.
	Playing bool
	Score   int
}

// Roster maps participant identities to entries. Entries are keyed by
// Identity.Key and kept in arrival order. All methods are safe for
// concurrent use.
type Roster struct {
	mu      sync.RWMutex
	entries map[string]*Entry // identity key → entry
	order   []string
}

// New creates an empty Roster.
func New() *Roster {
	return &Roster{entries: make(map[string]*Entry)}
}

// AddWatcher adds id as a watcher.
//
// Precondition: id.Key must be non-empty.
// Postcondition: Returns false, leaving the roster unchanged, if id is already present.
func (r *Roster) AddWatcher(id presence.Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id.Key]; exists {
		return false
	}
	r.insertLocked(&Entry{Identity: id, Role: RoleWatcher})
	return true
}

// AddPlayer adds id as a player, promoting an existing watcher.
//
// Precondition: id.Key must be non-empty.
// Postcondition: id is present with RolePlayer.
func (r *Roster) AddPlayer(id presence.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, exists := r.entries[id.Key]; exists {
		e.Role = RolePlayer
		return
	}
	r.insertLocked(&Entry{Identity: id, Role: RolePlayer})
}

// RemoveWatcher removes id. Removing an absent identity is a no-op.
//
// Postcondition: Returns whether an entry was removed.
func (r *Roster) RemoveWatcher(id presence.Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id.Key]; !exists {
		return false
	}
	delete(r.entries, id.Key)
	r.order = lo.Without(r.order, id.Key)
	return true
}

// SetPlaying marks id as the participant whose turn it is and clears the
// mark from everyone else.
//
// Postcondition: Returns an error if id is not present.
func (r *Roster) SetPlaying(id presence.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id.Key]; !exists {
		return fmt.Errorf("participant %s not in roster", id)
	}
	for key, e := range r.entries {
		e.Playing = key == id.Key
	}
	return nil
}

// SetScore sets the score shown for id.
//
// Postcondition: Returns an error if id is not present.
func (r *Roster) SetScore(id presence.Identity, score int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[id.Key]
	if !exists {
		return fmt.Errorf("participant %s not in roster", id)
	}
	e.Score = score
	return nil
}

// Get returns the entry for id.
func (r *Roster) Get(id presence.Identity) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[id.Key]
	if !exists {
		return Entry{}, false
	}
	return *e, true
}

// Snapshot returns copies of all entries in arrival order.
func (r *Roster) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(key string, _ int) Entry {
		return *r.entries[key]
	})
}

// Players returns the identities of all players in arrival order.
func (r *Roster) Players() []presence.Identity {
	return lo.FilterMap(r.Snapshot(), func(e Entry, _ int) (presence.Identity, bool) {
		return e.Identity, e.Role == RolePlayer
	})
}

// Len returns the number of entries.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Roster) insertLocked(e *Entry) {
	r.entries[e.Identity.Key] = e
	r.order = append(r.order, e.Identity.Key)
}
