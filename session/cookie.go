package session

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

const cookieAttrs = "; HttpOnly; SameSite=Lax; Path=/; Max-Age="

// TokenFromHeader extracts the session token from a Cookie header value.
// Pairs are split on ';' and then on the first '='. A missing, empty or
// malformed session cookie yields ok=false.
func TokenFromHeader(header string) (string, bool) {
	if header == "" {
		return "", false
	}

	for _, part := range strings.Split(header, ";") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		if strings.TrimSpace(name) != CookieName {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return "", false
		}
		return value, true
	}

	return "", false
}

// TokenFromRequest looks for the session cookie across all Cookie headers of r.
func TokenFromRequest(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, header := range r.Header.Values("Cookie") {
		if tok, ok := TokenFromHeader(header); ok {
			return tok, true
		}
	}
	return "", false
}

// Cookie renders the Set-Cookie value for token with the default TTL.
func Cookie(token string) string {
	return CookieWithTTL(token, TTL)
}

// CookieWithTTL renders the Set-Cookie value for token with Max-Age set to
// ttl in whole seconds.
func CookieWithTTL(token string, ttl time.Duration) string {
	return CookieName + "=" + token + cookieAttrs + strconv.FormatInt(int64(ttl/time.Second), 10)
}

// ClearedCookie renders a Set-Cookie value that deletes the session cookie in
// the browser regardless of server-side state.
func ClearedCookie() string {
	return CookieName + "=" + cookieAttrs + "0"
}
