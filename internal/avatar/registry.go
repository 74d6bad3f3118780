// Package avatar tracks the in-world avatars owned by player sessions. The
// arena has no physics here; an avatar only needs an identity and an owner.
package avatar

import "arena/server/internal/session"

// Registry is the default in-memory avatar factory.
type Registry struct {
	next   session.AvatarHandle
	owners map[session.AvatarHandle]session.Handle
}

func NewRegistry() *Registry {
	return &Registry{owners: make(map[session.AvatarHandle]session.Handle)}
}

// SpawnAvatar materialises an avatar for the session and returns its handle.
// Handles are never reused.
func (r *Registry) SpawnAvatar(owner session.Handle) session.AvatarHandle {
	r.next++
	r.owners[r.next] = owner
	return r.next
}

// DestroyAvatar removes the avatar. Unknown handles are ignored.
func (r *Registry) DestroyAvatar(handle session.AvatarHandle) {
	delete(r.owners, handle)
}

// Owner resolves the session handle that owns a live avatar.
func (r *Registry) Owner(handle session.AvatarHandle) (session.Handle, bool) {
	owner, ok := r.owners[handle]
	return owner, ok
}

// Live reports how many avatars are in the world.
func (r *Registry) Live() int {
	return len(r.owners)
}
