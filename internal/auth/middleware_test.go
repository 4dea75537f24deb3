package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/stretchr/testify/require"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/common"
)

type seenIdentity struct {
	user    string
	session string
}

func captureIdentity(seen *seenIdentity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.user, _ = common.UserID(r.Context())
		seen.session, _ = common.SessionID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticateAttachesUserAndSession(t *testing.T) {
	now := time.Now()
	m := Middleware{Tokens: newTestVerifier(t, now)}
	token := signToken(t, testSecret, jwa.HS256, nil, now)

	var seen seenIdentity
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(SessionHeader, "guest_abc123_1700000000000")
	rec := httptest.NewRecorder()
	m.Authenticate(captureIdentity(&seen)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "user-1", seen.user)
	require.Equal(t, "guest_abc123_1700000000000", seen.session)
}

func TestAuthenticateFallsThroughOnBadToken(t *testing.T) {
	m := Middleware{Tokens: newTestVerifier(t, time.Now())}

	var seen seenIdentity
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer nope")
	req.Header.Set(SessionHeader, "not a session")
	rec := httptest.NewRecorder()
	m.Authenticate(captureIdentity(&seen)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, seen.user)
	require.Empty(t, seen.session)
}

func TestRequireAuth(t *testing.T) {
	now := time.Now()
	m := Middleware{Tokens: newTestVerifier(t, now)}
	handler := m.Authenticate(m.RequireAuth(captureIdentity(&seenIdentity{})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "UNAUTHORIZED", body.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set("Authorization", "bearer "+signToken(t, testSecret, jwa.HS256, nil, now))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSessionIssue(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	h := SessionHandler{Now: func() time.Time { return fixed }}

	rec := httptest.NewRecorder()
	h.Issue(rec, httptest.NewRequest(http.MethodPost, "/api/v1/session", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.True(t, strings.HasSuffix(payload.SessionID, "_1700000000000"))
	require.True(t, ValidGuestSessionID(payload.SessionID))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", nil)
	req = req.WithContext(common.WithSessionID(req.Context(), payload.SessionID))
	rec = httptest.NewRecorder()
	h.Issue(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), payload.SessionID)
}

func TestValidGuestSessionID(t *testing.T) {
	require.True(t, ValidGuestSessionID(NewGuestSessionID(time.Now())))
	require.False(t, ValidGuestSessionID(""))
	require.False(t, ValidGuestSessionID("guest_"))
	require.False(t, ValidGuestSessionID("user_123"))
	require.False(t, ValidGuestSessionID("guest_<script>"))
	require.False(t, ValidGuestSessionID("guest_"+strings.Repeat("a", 200)))
}
