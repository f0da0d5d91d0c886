package jwt_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfolio/smartfolio/pkg/jwt"
)

const secret = "test-secret-at-least-32-bytes-long!!"

func newService(t *testing.T, cfg jwt.Config) *jwt.Service {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = secret
	}
	svc, err := jwt.New(cfg)
	require.NoError(t, err)
	return svc
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := jwt.New(jwt.Config{})
	assert.ErrorIs(t, err, jwt.ErrMissingSigningKey)
}

func TestService_Parse(t *testing.T) {
	t.Parallel()

	svc := newService(t, jwt.Config{Issuer: "https://auth.smartfolio.app", Audience: "smartfolio-api"})
	subject := gojwt.RegisteredClaims{Subject: "5f0b3c1e-6a57-4a51-8f3e-2f4bde3a6d10"}

	t.Run("round trips claims", func(t *testing.T) {
		t.Parallel()
		token, err := svc.Generate(jwt.Claims{Email: "ada@example.com", RegisteredClaims: subject}, time.Hour)
		require.NoError(t, err)

		claims, err := svc.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", claims.Email)
		assert.Equal(t, subject.Subject, claims.Subject)
		assert.Equal(t, "https://auth.smartfolio.app", claims.Issuer)
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		t.Parallel()
		token, err := svc.Generate(jwt.Claims{RegisteredClaims: subject}, -time.Hour)
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrExpiredToken)
	})

	t.Run("rejects tokens signed with another key", func(t *testing.T) {
		t.Parallel()
		other := newService(t, jwt.Config{Secret: "another-secret-another-secret-0000", Issuer: "https://auth.smartfolio.app", Audience: "smartfolio-api"})
		token, err := other.Generate(jwt.Claims{RegisteredClaims: subject}, time.Hour)
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("rejects wrong issuer", func(t *testing.T) {
		t.Parallel()
		claims := jwt.Claims{RegisteredClaims: subject}
		claims.Issuer = "https://evil.example.com"
		token, err := svc.Generate(claims, time.Hour)
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("rejects other algorithms", func(t *testing.T) {
		t.Parallel()
		claims := jwt.Claims{RegisteredClaims: subject}
		claims.ExpiresAt = gojwt.NewNumericDate(time.Now().Add(time.Hour))
		token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS512, claims).SignedString([]byte(secret))
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("requires expiry", func(t *testing.T) {
		t.Parallel()
		plain := newService(t, jwt.Config{})
		token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, jwt.Claims{RegisteredClaims: subject}).SignedString([]byte(secret))
		require.NoError(t, err)

		_, err = plain.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("requires subject", func(t *testing.T) {
		t.Parallel()
		token, err := svc.Generate(jwt.Claims{Email: "ada@example.com"}, time.Hour)
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrMissingSubject)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Parse("not.a.token")
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)

		_, err = svc.Parse("")
		assert.ErrorIs(t, err, jwt.ErrMissingToken)
	})
}

func TestExtractors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		want    string
	}{
		{name: "bearer header", prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }, want: "abc"},
		{name: "lowercase scheme", prepare: func(r *http.Request) { r.Header.Set("Authorization", "bearer abc") }, want: "abc"},
		{name: "cookie fallback", prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sf_token", Value: "xyz"}) }, want: "xyz"},
		{name: "basic scheme is ignored", prepare: func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }},
		{name: "nothing present", prepare: func(*http.Request) {}},
	}

	extract := jwt.FirstOf(jwt.BearerTokenExtractor, jwt.CookieTokenExtractor("sf_token"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(r)
			got, err := extract(r)
			if tt.want == "" {
				assert.ErrorIs(t, err, jwt.ErrMissingToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
