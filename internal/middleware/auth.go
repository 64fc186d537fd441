package middleware

import (
	"context"
	"net/http"

	"eid-auth-service/internal/session"

	"github.com/jonboulle/clockwork"
)

// unexported, collision-proof context key
type principalContextKeyType struct{}

var principalKey = principalContextKeyType{}

type principal struct {
	userID string
	email  string
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(principalKey).(principal)
	return p.userID, ok
}

// EmailFromContext extracts the authenticated account email from context.
func EmailFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(principalKey).(principal)
	return p.email, ok
}

type AuthMiddleware struct {
	Store  session.Store
	Cookie session.CookieOptions
	Clock  clockwork.Clock
}

func NewAuthMiddleware(store session.Store, cookie session.CookieOptions) *AuthMiddleware {
	return &AuthMiddleware{Store: store, Cookie: cookie, Clock: clockwork.NewRealClock()}
}

func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(a.Cookie.Name())
		if err != nil || cookie.Value == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		sessionID := cookie.Value

		sess, err := a.Store.Get(r.Context(), sessionID)
		if err != nil || sess == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// stores may outlive the session's own expiry
		if a.Clock.Now().After(sess.ExpiresAt) {
			_ = a.Store.Delete(r.Context(), sessionID)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal{
			userID: sess.UserID,
			email:  sess.Email,
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
