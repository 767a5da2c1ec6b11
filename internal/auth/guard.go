package auth

import "github.com/inkpress/apiserver/internal/errs"

// CanMutate reports whether actor may change a resource owned by ownerID.
// Only the owner may; there are no roles and no bypass.
func CanMutate(actor Actor, ownerID string) bool {
	return !actor.IsAnonymous() && ownerID != "" && actor.ID() == ownerID
}

// Authorize is CanMutate with the reason attached: Unauthenticated for
// anonymous actors, Forbidden for everyone else who is not the owner.
func Authorize(actor Actor, ownerID string) error {
	if actor.IsAnonymous() {
		return errs.New(errs.Unauthenticated, "sign in required")
	}
	if !CanMutate(actor, ownerID) {
		return errs.New(errs.Forbidden, "not permitted on this resource")
	}
	return nil
}

// RequireActor fails with Unauthenticated when actor is anonymous.
func RequireActor(actor Actor) error {
	if actor.IsAnonymous() {
		return errs.New(errs.Unauthenticated, "sign in required")
	}
	return nil
}
