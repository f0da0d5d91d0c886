package webhook

import "errors"

var (
	ErrInvalidConfiguration  = errors.New("invalid webhook configuration")
	ErrInvalidPayload        = errors.New("invalid webhook payload")
	ErrInvalidURL            = errors.New("invalid webhook URL")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrSignatureExpired      = errors.New("webhook signature timestamp outside tolerance")
	ErrWebhookDeliveryFailed = errors.New("webhook delivery failed")
	ErrPermanentFailure      = errors.New("permanent webhook failure")
	ErrTemporaryFailure      = errors.New("temporary webhook failure")
	ErrTimeout               = errors.New("webhook request timeout")
)
