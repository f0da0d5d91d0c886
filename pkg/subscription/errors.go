package subscription

import "errors"

var (
	ErrInvalidPlanConfiguration = errors.New("invalid subscription plan configuration")
	ErrUnknownPrice             = errors.New("price is not mapped to a paid plan")

	ErrQuotaExceeded       = errors.New("plan quota exceeded")
	ErrFeatureNotAvailable = errors.New("feature not available on current plan")
	ErrFailedToCountUsage  = errors.New("failed to count usage")

	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrProviderError        = errors.New("billing provider error")

	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")
	ErrMalformedEvent            = errors.New("malformed billing event")

	// Provider-specific errors
	ErrMissingAPIKey              = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret       = errors.New("billing provider webhook secret is required")
	ErrInvalidProviderEnvironment = errors.New("invalid billing provider environment")
	ErrNoCheckoutURL              = errors.New("no checkout URL returned from provider")
	ErrNoPortalURL                = errors.New("no portal URL returned from provider")
	ErrMissingCustomerRef         = errors.New("provider customer reference not available")
	ErrMissingPriceRef            = errors.New("price reference is required")
)
