package auth

import (
	"context"

	"github.com/inkpress/apiserver/types"
)

// Actor is the identity a request acts as. The zero value is anonymous.
type Actor struct {
	user *types.User
}

// Anonymous returns the actor used when no valid session is present.
func Anonymous() Actor {
	return Actor{}
}

// Authenticated returns an actor for a resolved user.
func Authenticated(user types.User) Actor {
	return Actor{user: &user}
}

func (a Actor) IsAnonymous() bool {
	return a.user == nil
}

// ID returns the user id, or "" for anonymous actors.
func (a Actor) ID() string {
	if a.user == nil {
		return ""
	}
	return a.user.ID
}

// User returns the resolved user record.
func (a Actor) User() (types.User, bool) {
	if a.user == nil {
		return types.User{}, false
	}
	return *a.user, true
}

type contextKey string

const contextActorKey contextKey = "actor"

// WithActor attaches actor to ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextActorKey, actor)
}

// ActorFromContext returns the actor attached to ctx, or Anonymous.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(contextActorKey).(Actor)
	return actor
}
