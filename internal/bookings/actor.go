package bookings

import (
	"fmt"

	"github.com/google/uuid"
)

// ActorKind identifies who initiated a change
type ActorKind string

const (
	ActorGuest  ActorKind = "guest"
	ActorStaff  ActorKind = "staff"
	ActorSystem ActorKind = "system"
)

// Actor is the initiator of a lifecycle change, recorded on audit rows and events
type Actor struct {
	Kind ActorKind `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// SystemActor is the actor used by background jobs
func SystemActor() Actor {
	return Actor{Kind: ActorSystem}
}

// GuestActor builds a guest actor
func GuestActor(id uuid.UUID) Actor {
	return Actor{Kind: ActorGuest, ID: id}
}

// StaffActor builds a staff actor
func StaffActor(id uuid.UUID) Actor {
	return Actor{Kind: ActorStaff, ID: id}
}

// ActorFromRole maps a JWT role claim onto an actor kind
func ActorFromRole(role string, id uuid.UUID) (Actor, error) {
	switch role {
	case "GUEST":
		return GuestActor(id), nil
	case "STAFF", "ADMIN":
		return StaffActor(id), nil
	default:
		return Actor{}, fmt.Errorf("%w: unknown role %q", ErrForbidden, role)
	}
}

// Validate checks the actor carries a known kind and, for humans, an id
func (a Actor) Validate() error {
	switch a.Kind {
	case ActorSystem:
		return nil
	case ActorGuest, ActorStaff:
		if a.ID == uuid.Nil {
			return fmt.Errorf("%w: %s actor requires an id", ErrValidation, a.Kind)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown actor kind %q", ErrValidation, a.Kind)
	}
}

// IsGuest reports whether the actor is a guest
func (a Actor) IsGuest() bool {
	return a.Kind == ActorGuest
}

// CanOverrideRefund reports whether the actor may cancel a paid booking without a refund
func (a Actor) CanOverrideRefund() bool {
	return a.Kind == ActorStaff || a.Kind == ActorSystem
}

// CanAccess reports whether the actor may see or act on the booking
func (a Actor) CanAccess(b *Booking) bool {
	if a.Kind != ActorGuest {
		return true
	}
	return b.GuestID == a.ID
}

func (a Actor) String() string {
	if a.ID == uuid.Nil {
		return string(a.Kind)
	}
	return string(a.Kind) + ":" + a.ID.String()
}
