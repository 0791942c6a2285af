package actorcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
)

// Actor is the authenticated caller resolved from the gateway identity header.
type Actor struct {
	ID   snowflake.ID
	Role userdomain.Role
}

type actorKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext returns the actor, if set.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.ID == 0 {
		return Actor{}, false
	}
	return actor, true
}

// IDFromContext returns a pointer to the actor id, or nil for system calls.
func IDFromContext(ctx context.Context) *snowflake.ID {
	actor, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	id := actor.ID
	return &id
}
