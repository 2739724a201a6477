package middleware

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/rpgjournals/credstore"
	"github.com/rpgjournals/credstore/session"
)

type userContextKey struct{}

// SessionLoader is the slice of session.Manager the middleware needs.
type SessionLoader interface {
	Load(ctx context.Context, cookieHeader string) (*session.Data, error)
}

// UserFromContext returns the session loaded by Session, if any.
func UserFromContext(ctx context.Context) (*session.Data, bool) {
	u, ok := ctx.Value(userContextKey{}).(*session.Data)
	return u, ok && u != nil
}

// Session resolves the session cookie and attaches the user to the request
// context. Requests without a live session continue anonymously; a backend
// failure answers 503.
func Session(m SessionLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}

			header := strings.Join(r.Header.Values("Cookie"), "; ")
			user, err := m.Load(r.Context(), header)
			if err != nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole admits only users whose role is role. Anonymous requests are
// redirected to loginPath with the original path in ?redirect=; users of
// another role are sent to their own area, /<their role>.
func RequireRole(role, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, loginPath+"?redirect="+url.QueryEscape(r.URL.Path), http.StatusFound)
				return
			}
			if user.Role != role {
				http.Redirect(w, r, "/"+user.Role, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP records the caller's address with credstore.WithClientIP so the
// send-code cooldown can throttle per IP.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if host != "" {
			r = r.WithContext(credstore.WithClientIP(r.Context(), host))
		}
		next.ServeHTTP(w, r)
	})
}
