package watch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/lecturecast/lecturecast/internal/episode"
)

const accessCookieMaxAge = 7 * 24 * time.Hour

// Episode IDs may contain characters that are not valid in cookie names.
func accessCookieName(episodeID string) string {
	sum := sha256.Sum256([]byte(episodeID))
	return "wa_" + hex.EncodeToString(sum[:4])
}

// signAccess binds the cookie to the current password hash, so changing the
// password revokes every issued cookie.
func signAccess(secret, episodeID, passwordHash string) string {
	hashPrefix := passwordHash
	if len(hashPrefix) > 16 {
		hashPrefix = hashPrefix[:16]
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(episodeID + "|" + hashPrefix))
	return hex.EncodeToString(mac.Sum(nil))
}

func setAccessCookie(w http.ResponseWriter, episodeID, value string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName(episodeID),
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(accessCookieMaxAge / time.Second),
	})
}

// HasAccess reports whether the request may open ep: the episode is public,
// or the request carries a valid access cookie.
func HasAccess(r *http.Request, secret string, ep *episode.Episode) bool {
	if !ep.Protected() {
		return true
	}
	cookie, err := r.Cookie(accessCookieName(ep.ID))
	if err != nil {
		return false
	}
	expected := signAccess(secret, ep.ID, *ep.PasswordHash)
	return hmac.Equal([]byte(expected), []byte(cookie.Value))
}
