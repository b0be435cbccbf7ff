package auth

import (
	"context"
	"net/http"
	"strings"

	applog "nestegg/internal/log"
)

// CookieName is the session cookie read by Middleware.
const CookieName = "nestegg_session"

type contextKey struct{}

// WithUser returns a context carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserFromContext returns the authenticated user id, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// TokenFromRequest looks in the Authorization header, then the token query
// parameter, then the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Middleware rejects requests without a valid session through onUnauthorized
// and otherwise stores the user id in the request context.
func (s *Sessions) Middleware(onUnauthorized func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := s.Parse(TokenFromRequest(r))
			if err != nil {
				applog.FromContext(r.Context()).WarnContext(r.Context(), "Session rejected",
					applog.FieldPath, r.URL.Path,
					applog.FieldError, err.Error(),
					"error_type", applog.ErrorTypeAuth)
				onUnauthorized(w, r, err)
				return
			}

			ctx := WithUser(r.Context(), claims.UserID)
			ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
