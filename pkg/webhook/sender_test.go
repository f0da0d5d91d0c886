package webhook_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfolio/smartfolio/pkg/webhook"
)

func TestSender_Send(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"id":"evt_1"}`)
	fastRetry := webhook.WithRetries(2, webhook.FixedBackoff{Interval: time.Millisecond})

	t.Run("delivers a signed payload", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.NoError(t, webhook.Verify("secret", body, r.Header.Get(webhook.SignatureHeader), webhook.DefaultTolerance))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		sender := webhook.NewSender(webhook.WithSecret("secret"), fastRetry)
		require.NoError(t, sender.Send(context.Background(), srv.URL, payload))
	})

	t.Run("retries temporary failures", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		var attempts []int
		sender := webhook.NewSender(fastRetry, webhook.WithOnDelivery(func(r webhook.DeliveryResult) {
			attempts = append(attempts, r.Attempt)
		}))
		require.NoError(t, sender.Send(context.Background(), srv.URL, payload))
		assert.Equal(t, int32(3), calls.Load())
		assert.Equal(t, []int{1, 2, 3}, attempts)
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		err := webhook.NewSender(fastRetry).Send(context.Background(), srv.URL, payload)
		assert.ErrorIs(t, err, webhook.ErrPermanentFailure)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("gives up after retries", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := webhook.NewSender(fastRetry).Send(context.Background(), srv.URL, payload)
		assert.ErrorIs(t, err, webhook.ErrWebhookDeliveryFailed)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		t.Parallel()
		sender := webhook.NewSender()
		assert.ErrorIs(t, sender.Send(context.Background(), "ftp://example.com", payload), webhook.ErrInvalidURL)
		assert.ErrorIs(t, sender.Send(context.Background(), "http://", payload), webhook.ErrInvalidURL)
		assert.ErrorIs(t, sender.Send(context.Background(), "http://example.com", nil), webhook.ErrInvalidPayload)
	})
}
