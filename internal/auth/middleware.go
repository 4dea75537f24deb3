package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/common"
)

// SessionHeader carries the guest session token for anonymous carts.
const SessionHeader = "X-Session-ID"

var errNoToken = errors.New("auth: token missing")

// TokenParser resolves an access token to a user id.
type TokenParser interface {
	ParseAccessToken(token string) (string, error)
}

// Middleware wires identity into HTTP handlers.
type Middleware struct {
	Tokens TokenParser
}

// Authenticate attaches the user id when a valid bearer token is present and the
// guest session token when the session header is well formed. Invalid tokens fall
// through anonymously so public routes stay reachable.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if session := strings.TrimSpace(r.Header.Get(SessionHeader)); ValidGuestSessionID(session) {
			ctx = common.WithSessionID(ctx, session)
		}
		if authed, err := m.authenticateRequest(ctx, r); err == nil {
			ctx = authed
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests without a valid bearer token.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := common.UserID(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		ctx, err := m.authenticateRequest(r.Context(), r)
		if err != nil {
			var appErr *common.AppError
			if errors.As(err, &appErr) {
				common.WriteAppError(w, appErr)
				return
			}
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) authenticateRequest(ctx context.Context, r *http.Request) (context.Context, error) {
	if m.Tokens == nil {
		return ctx, errors.New("auth: token parser not configured")
	}
	token := bearerToken(r)
	if token == "" {
		return ctx, errNoToken
	}
	userID, err := m.Tokens.ParseAccessToken(token)
	if err != nil {
		return ctx, err
	}
	return common.WithUserID(ctx, userID), nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
