// Package webhook signs, verifies and delivers JSON webhooks.
//
// Signatures travel in a single header:
//
//	X-Webhook-Signature: t=1714557600,v1=5257a869e7ecebeda32affa62cdca3fa51cad7e77a0e56ff536d0ce8e108d8bd
//
// where v1 is the hex HMAC-SHA256 of "<t>.<payload>". Verify accepts several
// v1 entries to allow secret rotation and rejects timestamps outside the
// tolerance window.
//
// Sender posts payloads with retries and exponential backoff:
//
//	sender := webhook.NewSender(
//		webhook.WithSecret(secret),
//		webhook.WithRetries(3, webhook.DefaultBackoffStrategy()),
//	)
//	err := sender.Send(ctx, "https://example.com/webhooks/billing", payload)
package webhook
