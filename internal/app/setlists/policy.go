package setlists

import (
	"fmt"

	"github.com/google/uuid"

	"setlister/internal/models"
	"setlister/internal/store"
)

// Action is the kind of access an operation needs on a setlist.
type Action int

const (
	// ActionRead covers every read of the setlist and its entries.
	ActionRead Action = iota
	// ActionEdit covers entry and block mutations.
	ActionEdit
	// ActionManage covers updating or deleting the setlist itself.
	ActionManage
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionEdit:
		return "edit"
	case ActionManage:
		return "manage"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Authorize decides whether actor may perform action on setlist. membership
// is the actor's role in the setlist's band and is ignored for unbanded
// setlists.
//
// Rules, in order: the creator may do anything; a band member may read and
// edit, but only a band admin may manage; anyone may read a public setlist.
// Everything else is denied.
func Authorize(actor uuid.UUID, setlist *models.Setlist, membership models.Membership, action Action) error {
	if setlist == nil {
		return store.ErrSetlistNotFound
	}
	if actor != uuid.Nil && setlist.CreatedBy == actor {
		return nil
	}
	if setlist.BandID != nil && membership.BandID == *setlist.BandID && membership.UserID == actor && membership.IsMember() {
		if action != ActionManage || membership.IsAdmin() {
			return nil
		}
	}
	if setlist.IsPublic && action == ActionRead {
		return nil
	}
	return fmt.Errorf("%s setlist %s: %w", action, setlist.ID, store.ErrPermissionDenied)
}
