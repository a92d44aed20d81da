package tenant

import (
	"context"
	"errors"
)

// ErrNoContext indicates a resource operation executed with no user
// identity bound at all. Always a programming error in the caller.
var ErrNoContext = errors.New("no user identity bound to context")

type identityKey struct{}

// WithIdentity binds a user identifier to the returned context. The binding
// covers everything derived from that context; a nested WithIdentity
// re-binds for its own sub-extent without affecting sibling contexts.
func WithIdentity(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, identityKey{}, userID)
}

// FromContext returns the ambient user identity, or ErrNoContext if the
// context carries none.
func FromContext(ctx context.Context) (string, error) {
	uid, ok := ctx.Value(identityKey{}).(string)
	if !ok || uid == "" {
		return "", ErrNoContext
	}
	return uid, nil
}

// RunWithIdentity runs fn with userID bound for the dynamic extent of the
// call. Convenience wrapper for handler boundaries.
func RunWithIdentity(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	return fn(WithIdentity(ctx, userID))
}
