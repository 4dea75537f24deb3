package auth

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/common"
)

const (
	guestPrefix        = "guest_"
	maxGuestSessionLen = 128
)

// NewGuestSessionID returns a token of the form guest_<random>_<unix-millis>.
// It is a convenience key for anonymous carts, not a credential.
func NewGuestSessionID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return guestPrefix + random + "_" + strconv.FormatInt(now.UnixMilli(), 10)
}

// ValidGuestSessionID reports whether id looks like a guest session token.
func ValidGuestSessionID(id string) bool {
	if len(id) <= len(guestPrefix) || len(id) > maxGuestSessionLen {
		return false
	}
	if !strings.HasPrefix(id, guestPrefix) {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// SessionHandler issues guest session tokens.
type SessionHandler struct {
	Now func() time.Time
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
	Header    string `json:"header"`
}

// Issue handles POST /api/v1/session. A caller that already presents a valid
// session token gets it back unchanged.
func (h SessionHandler) Issue(w http.ResponseWriter, r *http.Request) {
	if existing, ok := common.SessionID(r.Context()); ok {
		common.JSON(w, http.StatusOK, sessionResponse{SessionID: existing, Header: SessionHeader})
		return
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	common.JSON(w, http.StatusCreated, sessionResponse{SessionID: NewGuestSessionID(now()), Header: SessionHeader})
}
