package billing

import (
	"context"
	"errors"
	"net/http"

	"github.com/smartfolio/smartfolio/handler"
	"github.com/smartfolio/smartfolio/pkg/subscription"
)

var errUnknownStoredValue = errors.New("unknown stored value")

var (
	ErrSubscriptionNotFound = handler.NewHTTPError(http.StatusNotFound, "subscription_not_found")
	ErrUnknownPrice         = handler.NewHTTPError(http.StatusBadRequest, "unknown_price")
	ErrProviderUnavailable  = handler.NewHTTPError(http.StatusBadGateway, "billing_provider_unavailable")
	ErrInvalidWebhook       = handler.NewHTTPError(http.StatusBadRequest, "invalid_webhook")
)

// HTTPErrors maps billing and entitlement errors to responses. It is shared
// by every service that calls the subscription package.
func HTTPErrors(err error) (handler.HTTPError, bool) {
	switch {
	case errors.Is(err, subscription.ErrQuotaExceeded), errors.Is(err, subscription.ErrFeatureNotAvailable):
		return handler.ErrPaymentRequired.WithMessage(err.Error()), true
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		return ErrSubscriptionNotFound.WithMessage("no paid subscription to change"), true
	case errors.Is(err, subscription.ErrUnknownPrice):
		return ErrUnknownPrice.WithMessage("price is not offered"), true
	case errors.Is(err, subscription.ErrProviderError), errors.Is(err, context.DeadlineExceeded):
		return ErrProviderUnavailable.WithMessage("billing provider is unavailable, try again later"), true
	case errors.Is(err, subscription.ErrWebhookVerificationFailed), errors.Is(err, subscription.ErrMalformedEvent):
		return ErrInvalidWebhook, true
	}
	return handler.HTTPError{}, false
}
