// Package billing exposes the subscription lifecycle over HTTP.
//
// Service serves the user facing routes under /billing: the current
// subscription, checkout and portal links, cancel and resume, payment
// history, usage and the public plan list. WebhookHandler receives provider
// notifications, verifies them through the provider and hands them to the
// subscription.Processor.
//
// Store and UsageCounter are the Postgres implementations of the
// subscription package's persistence interfaces. EmailNotifier sends the
// activation and payment failure emails.
package billing
