package common

import "context"

type ctxKey string

const (
	userIDKey    ctxKey = "auth/user-id"
	sessionIDKey ctxKey = "auth/session-id"
	trailKey     ctxKey = "auth/trail"
)

// identityTrail lets middleware that runs before authentication read the
// identity resolved further down the chain.
type identityTrail struct {
	userID    string
	sessionID string
}

// WithIdentityTrail installs an empty trail that later WithUserID and
// WithSessionID calls on derived contexts fill in.
func WithIdentityTrail(ctx context.Context) context.Context {
	return context.WithValue(ctx, trailKey, &identityTrail{})
}

// ResolvedIdentity returns what was recorded on the trail, if any.
func ResolvedIdentity(ctx context.Context) (userID, sessionID string) {
	if t, ok := ctx.Value(trailKey).(*identityTrail); ok {
		return t.userID, t.sessionID
	}
	return "", ""
}

// WithUserID stores the authenticated user identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	if t, ok := ctx.Value(trailKey).(*identityTrail); ok {
		t.userID = id
	}
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// WithSessionID stores the anonymous guest session token on the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	if t, ok := ctx.Value(trailKey).(*identityTrail); ok {
		t.sessionID = id
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionID extracts the guest session token from the context if present.
func SessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}
