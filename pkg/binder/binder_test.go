package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfolio/smartfolio/pkg/binder"
)

type checkoutRequest struct {
	Plan      string `json:"plan"`
	TrialDays *int   `json:"trial_days,omitempty"`
}

func TestJSON(t *testing.T) {
	t.Parallel()

	bind := binder.JSON()

	t.Run("decodes a valid body", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"plan":"pro","trial_days":7}`))
		r.Header.Set("Content-Type", "application/json; charset=utf-8")

		var req checkoutRequest
		require.NoError(t, bind(r, &req))
		assert.Equal(t, "pro", req.Plan)
		require.NotNil(t, req.TrialDays)
		assert.Equal(t, 7, *req.TrialDays)
	})

	t.Run("empty body without content type is a no-op", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		var req checkoutRequest
		require.NoError(t, bind(r, &req))
		assert.Empty(t, req.Plan)
	})

	t.Run("body without content type is rejected", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"plan":"pro"}`))
		var req checkoutRequest
		assert.ErrorIs(t, bind(r, &req), binder.ErrMissingContentType)
	})

	t.Run("other media types are rejected", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`plan=pro`))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		var req checkoutRequest
		assert.ErrorIs(t, bind(r, &req), binder.ErrUnsupportedMediaType)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"plan":"pro","admin":true}`))
		r.Header.Set("Content-Type", "application/json")
		var req checkoutRequest
		assert.ErrorIs(t, bind(r, &req), binder.ErrFailedToParseJSON)
	})

	t.Run("trailing data is rejected", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"plan":"pro"}{"plan":"enterprise"}`))
		r.Header.Set("Content-Type", "application/json")
		var req checkoutRequest
		assert.ErrorIs(t, bind(r, &req), binder.ErrFailedToParseJSON)
	})

	t.Run("oversized body is rejected", func(t *testing.T) {
		t.Parallel()
		big := `{"plan":"` + strings.Repeat("a", binder.DefaultMaxJSONSize) + `"}`
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		r.Header.Set("Content-Type", "application/json")
		var req checkoutRequest
		assert.ErrorIs(t, bind(r, &req), binder.ErrRequestTooLarge)
	})
}

type listRequest struct {
	Limit  int      `query:"limit"`
	Before *string  `query:"before"`
	Kinds  []string `query:"kind"`
	Plain  string
}

func TestQuery(t *testing.T) {
	t.Parallel()

	bind := binder.Query()

	t.Run("binds tagged fields", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/?limit=20&before=2026-01-01&kind=a,b&kind=c&plain=x", nil)
		var req listRequest
		require.NoError(t, bind(r, &req))
		assert.Equal(t, 20, req.Limit)
		require.NotNil(t, req.Before)
		assert.Equal(t, "2026-01-01", *req.Before)
		assert.Equal(t, []string{"a", "b", "c"}, req.Kinds)
		assert.Empty(t, req.Plain)
	})

	t.Run("invalid numbers fail", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/?limit=ten", nil)
		var req listRequest
		assert.ErrorIs(t, bind(r, &req), binder.ErrFailedToParseQuery)
	})

	t.Run("non struct targets fail", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		var n int
		assert.ErrorIs(t, bind(r, &n), binder.ErrFailedToParseQuery)
	})
}

func TestPath(t *testing.T) {
	t.Parallel()

	type showRequest struct {
		Slug string `path:"slug"`
	}

	var got showRequest
	router := chi.NewRouter()
	router.Get("/portfolios/{slug}", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, binder.Path(chi.URLParam)(r, &got))
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/portfolios/my-work", nil))

	assert.Equal(t, "my-work", got.Slug)
}
