package api

import "context"

// userKey is the context key for the authenticated user ID.
type userKey struct{}

// WithUserID returns a copy of ctx carrying the authenticated user.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserIDFromContext returns the user set by WithUserID. The second result is
// false when the context carries no user or an empty one.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userKey{}).(string)

	return userID, ok && userID != ""
}
