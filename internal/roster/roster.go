// Package roster owns the connected-player sessions. Sessions live in a
// generational arena; callers outside the roster hold session.Handle values,
// never pointers that outlive removal.
package roster

import "arena/server/internal/session"

type slot struct {
	generation uint32
	session    *session.Session
}

// Roster is the explicitly owned collection of live sessions.
type Roster struct {
	slots    []slot
	free     []uint32
	byPlayer map[string]session.Handle
	count    int
}

// New constructs an empty roster.
func New() *Roster {
	return &Roster{byPlayer: make(map[string]session.Handle)}
}

// Add registers a session for the player. Adding an ID that is already present
// returns the existing session.
func (r *Roster) Add(playerID string) *session.Session {
	if existing, ok := r.Lookup(playerID); ok {
		return existing
	}

	var index uint32
	if n := len(r.free); n > 0 {
		index = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, slot{})
		index = uint32(len(r.slots) - 1)
	}

	entry := &r.slots[index]
	entry.generation++
	handle := session.Handle{Index: index, Generation: entry.generation}
	entry.session = session.New(handle, playerID)
	r.byPlayer[playerID] = handle
	r.count++
	return entry.session
}

// Remove drops the session behind the handle. The slot generation is bumped so
// stale handles stop resolving.
func (r *Roster) Remove(handle session.Handle) (*session.Session, bool) {
	sess, ok := r.Get(handle)
	if !ok {
		return nil, false
	}
	entry := &r.slots[handle.Index]
	entry.session = nil
	entry.generation++
	r.free = append(r.free, handle.Index)
	delete(r.byPlayer, sess.PlayerID)
	r.count--
	return sess, true
}

// Get resolves a handle to its live session.
func (r *Roster) Get(handle session.Handle) (*session.Session, bool) {
	if handle.IsZero() || int(handle.Index) >= len(r.slots) {
		return nil, false
	}
	entry := r.slots[handle.Index]
	if entry.session == nil || entry.generation != handle.Generation {
		return nil, false
	}
	return entry.session, true
}

// Lookup resolves a wire player ID to its live session.
func (r *Roster) Lookup(playerID string) (*session.Session, bool) {
	handle, ok := r.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	return r.Get(handle)
}

// ForEach visits every live session in slot order.
func (r *Roster) ForEach(fn func(*session.Session)) {
	if fn == nil {
		return
	}
	for i := range r.slots {
		if sess := r.slots[i].session; sess != nil {
			fn(sess)
		}
	}
}

// Len reports the number of live sessions.
func (r *Roster) Len() int {
	return r.count
}

// ActiveCount reports the number of sessions that are not spawn-delayed.
func (r *Roster) ActiveCount() int {
	active := 0
	r.ForEach(func(s *session.Session) {
		if !s.SpawnDelayed {
			active++
		}
	})
	return active
}

// Snapshot captures a read-only view of every session.
func (r *Roster) Snapshot() []session.Snapshot {
	out := make([]session.Snapshot, 0, r.count)
	r.ForEach(func(s *session.Session) {
		out = append(out, s.Snapshot())
	})
	return out
}
