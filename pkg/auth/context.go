package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Role is the staff role attached to an authenticated session.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
	RoleCashier Role = "cashier"
)

// ParseRole validates s against the known roles.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleOwner, RoleManager, RoleStaff, RoleCashier:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Actor is the authenticated user performing a request.
type Actor struct {
	UserID   uuid.UUID
	Role     Role
	BranchID uuid.UUID // uuid.Nil when the user is not assigned to a branch
}

// IsOwner reports whether the actor can see and act on every branch.
func (a Actor) IsOwner() bool {
	return a.Role == RoleOwner
}

// HasRole reports whether the actor holds one of roles.
func (a Actor) HasRole(roles ...Role) bool {
	return slices.Contains(roles, a.Role)
}

// BranchScope returns the branch filter applied to the actor's reads:
// nil for owners and for users not assigned to a branch, the actor's own
// branch for everyone else.
func (a Actor) BranchScope() *uuid.UUID {
	if a.IsOwner() || a.BranchID == uuid.Nil {
		return nil
	}
	b := a.BranchID
	return &b
}

// contextKey is an unexported type to prevent key collisions in context.
type contextKey string

const actorKey contextKey = "actor"

var (
	// ErrActorNotFound is returned when no Actor exists in the request context.
	// Handlers should return 401 when this error occurs.
	ErrActorNotFound = errors.New("actor not found in context")

	// ErrForbidden indicates the actor's role does not allow the operation.
	ErrForbidden = errors.New("forbidden")
)

// ActorFromCtx extracts the authenticated actor from the request context.
func ActorFromCtx(ctx context.Context) (Actor, error) {
	a, ok := ctx.Value(actorKey).(Actor)
	if !ok || a.UserID == uuid.Nil {
		return Actor{}, ErrActorNotFound
	}
	return a, nil
}

// WithActor returns a new context with the given Actor attached.
// Used by authentication middleware after validating the session.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}
