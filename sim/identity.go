package sim

import (
	"sort"

	"github.com/pkg/errors"
)

// IdentityRegistry assigns and validates client identifiers.
type IdentityRegistry struct {
	names map[ClientID]string
	maxID ClientID
}

// NewIdentityRegistry creates an empty registry.
func NewIdentityRegistry() *IdentityRegistry {
	return &IdentityRegistry{names: make(map[ClientID]string)}
}

// Assign reserves an id for name. With a requested id, that id is adopted
// if it is at least MinimumClientID and not yet assigned. Without one, the
// id after the highest assigned id is used (MinimumClientID if none).
func (r *IdentityRegistry) Assign(name string, requested *ClientID) (ClientID, error) {
	if name == "" {
		return 0, errors.Wrap(ErrInvalidArgument, "client name must not be empty")
	}
	var id ClientID
	if requested != nil {
		id = *requested
		if id < MinimumClientID {
			return 0, errors.Wrapf(ErrInvalidArgument, "ID %d less than minimum (%d)", id, MinimumClientID)
		}
		if owner, taken := r.names[id]; taken {
			return 0, errors.Wrapf(ErrInvalidArgument, "illegal forced ID %d already assigned to %q", id, owner)
		}
	} else if len(r.names) == 0 {
		id = MinimumClientID
	} else {
		id = r.maxID + 1
	}
	r.names[id] = name
	if id > r.maxID {
		r.maxID = id
	}
	return id, nil
}

// Name returns the display name recorded for id.
func (r *IdentityRegistry) Name(id ClientID) (string, bool) {
	name, ok := r.names[id]
	return name, ok
}

// Contains reports whether id has been assigned.
func (r *IdentityRegistry) Contains(id ClientID) bool {
	_, ok := r.names[id]
	return ok
}

// IDs returns every assigned id in ascending order.
func (r *IdentityRegistry) IDs() []ClientID {
	ids := make([]ClientID, 0, len(r.names))
	for id := range r.names {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of assigned ids.
func (r *IdentityRegistry) Len() int {
	return len(r.names)
}
