package builder

import "github.com/google/uuid"

// EntityRef identifies a tree entity as either confirmed (carrying the
// server-assigned id) or pending (carrying a local placeholder id
// assigned during an optimistic creation). Backend calls must only ever
// see confirmed ids; Confirmed is the single gate that enforces this.
type EntityRef struct {
	id      uuid.UUID
	pending bool
}

// NewPending creates a pending ref with a fresh placeholder id.
func NewPending() EntityRef {
	return EntityRef{id: uuid.New(), pending: true}
}

// NewConfirmed creates a confirmed ref for a server-assigned id.
func NewConfirmed(id uuid.UUID) EntityRef {
	return EntityRef{id: id}
}

// Pending reports whether the entity is still awaiting confirmation.
func (r EntityRef) Pending() bool { return r.pending }

// Confirmed returns the server-assigned id, or ErrPrerequisite if the
// entity is still pending.
func (r EntityRef) Confirmed() (uuid.UUID, error) {
	if r.pending {
		return uuid.Nil, ErrPrerequisite
	}
	return r.id, nil
}

// Local returns the id used for tree lookups: the placeholder for
// pending entities, the canonical id otherwise. Never passed to the
// backend.
func (r EntityRef) Local() uuid.UUID { return r.id }
