package httpserver

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/config"
)

type userKey struct{}

// WithUser stores the authenticated user id in ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFrom returns the authenticated user id.
func UserFrom(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(userKey{}).(string)
	return uid, ok && uid != ""
}

// RequireUser authenticates API requests. A bearer token is required when
// AUTH_SECRET is set; otherwise dev and test accept X-User-Id.
func RequireUser(cfg config.Config) func(http.Handler) http.Handler {
	var issuer *TokenIssuer
	if cfg.AuthSecret != "" {
		issuer = NewTokenIssuer(cfg.AuthSecret)
	}
	trustHeader := issuer == nil && (cfg.IsDev() || cfg.IsTest())
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID string
			switch {
			case issuer != nil:
				token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
				if !ok {
					writeStatus(w, http.StatusUnauthorized, "UNAUTHORIZED", "bearer token required", nil)
					return
				}
				uid, err := issuer.Verify(strings.TrimSpace(token))
				if err != nil {
					writeStatus(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil)
					return
				}
				userID = uid
			case trustHeader:
				userID = strings.TrimSpace(r.Header.Get("X-User-Id"))
			}
			if userID == "" {
				writeStatus(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
				return
			}
			noteUser(r.Context(), userID)
			ctx := observability.WithUser(WithUser(r.Context(), userID), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BasicAuth guards operator endpoints with ADMIN_USERNAME and an argon2id hash.
func BasicAuth(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.AdminEnabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || subtle.ConstantTimeCompare([]byte(user), []byte(cfg.AdminUsername)) != 1 || !VerifyPassword(pass, cfg.AdminPasswordHash) {
				w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
				writeStatus(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
