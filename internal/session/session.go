// Package session models the authenticated actor supplied by the identity
// collaborator and makes it available to request handlers. Every scoped
// read and write in the service is filtered by the actor's scope
// memberships before any other logic runs.
package session

import (
	"context"

	"github.com/google/uuid"
)

// Role is the actor's coarse permission level.
type Role string

// Valid actor roles.
const (
	RoleCurator  Role = "curator"
	RoleReviewer Role = "reviewer"
	RoleAdmin    Role = "admin"
)

// Actor identifies the caller of a request: identity, role, and the
// curation scopes the caller is a member of.
type Actor struct {
	ID     uuid.UUID   `json:"id"`
	Role   Role        `json:"role"`
	Scopes []uuid.UUID `json:"scopes"`
}

// IsAdmin reports whether the actor bypasses scope filtering.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ScopeIDs returns the actor's scope memberships as query arguments.
func (a Actor) ScopeIDs() []any {
	ids := make([]any, len(a.Scopes))
	for i, s := range a.Scopes {
		ids[i] = s
	}
	return ids
}

type contextKey struct{}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// FromContext extracts the actor placed by the auth middleware.
func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(Actor)
	return actor, ok
}
