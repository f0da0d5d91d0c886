package auth

import (
	"log/slog"
	"net/http"

	"github.com/smartfolio/smartfolio/handler"
	"github.com/smartfolio/smartfolio/pkg/jwt"
	"github.com/smartfolio/smartfolio/pkg/logger"
)

// TokenVerifier verifies a raw token. *jwt.Service implements it.
type TokenVerifier interface {
	Parse(token string) (*jwt.Claims, error)
}

type middlewareOptions struct {
	extractor jwt.TokenExtractor
	log       *slog.Logger
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareOptions)

// WithExtractor replaces the default bearer header extractor.
func WithExtractor(ex jwt.TokenExtractor) MiddlewareOption {
	return func(o *middlewareOptions) { o.extractor = ex }
}

func WithLogger(log *slog.Logger) MiddlewareOption {
	return func(o *middlewareOptions) { o.log = log }
}

// Middleware rejects requests without a valid token with 401 and stores the
// User on the context otherwise.
func Middleware(verifier TokenVerifier, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	o := middlewareOptions{extractor: jwt.BearerTokenExtractor, log: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticate(r, o.extractor, verifier)
			if err != nil {
				o.log.DebugContext(r.Context(), "request rejected",
					logger.Component("auth"),
					logger.Error(err))
				_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(SetUserToContext(r.Context(), user)))
		})
	}
}

func authenticate(r *http.Request, extract jwt.TokenExtractor, verifier TokenVerifier) (*User, error) {
	token, err := extract(r)
	if err != nil {
		return nil, err
	}
	claims, err := verifier.Parse(token)
	if err != nil {
		return nil, err
	}
	return UserFromClaims(claims)
}

// RateLimitKey keys rate limiting by authenticated user. Anonymous requests
// return an empty key.
func RateLimitKey(r *http.Request) string {
	if user := GetUserFromContext(r.Context()); user != nil {
		return user.ID.String()
	}
	return ""
}
