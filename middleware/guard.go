package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/bizdesk/authcore"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the verified claims that Guard stored on the
// request. ok is false on requests that did not pass through Guard.
func ClaimsFromContext(ctx context.Context) (*authcore.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*authcore.Claims)
	return claims, ok
}

// Option adjusts Guard behavior.
type Option func(*guardOptions)

type guardOptions struct {
	cookieName string
}

// WithCookie makes Guard fall back to the named cookie when the request
// carries no Authorization header. Browser clients that keep the access
// token in an HttpOnly cookie use this.
func WithCookie(name string) Option {
	return func(o *guardOptions) {
		o.cookieName = name
	}
}

// Guard returns middleware that admits only requests bearing a valid access
// token. On success the claims are attached to the request context; on any
// failure the response is 401 with no further detail.
func Guard(engine *authcore.Engine, opts ...Option) func(http.Handler) http.Handler {
	var options guardOptions
	for _, opt := range opts {
		opt(&options)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := requestToken(r, options.cookieName)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := engine.VerifyAccessToken(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestToken(r *http.Request, cookieName string) (string, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}
	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
			return cookie.Value, true
		}
	}
	return "", false
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}
	return token, true
}
