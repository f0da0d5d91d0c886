// Package email sends transactional emails through a provider-agnostic
// Sender.
//
// Two implementations ship with the package:
//   - PostmarkSender delivers through the Postmark API with open and link
//     tracking enabled.
//   - DevSender writes each message to disk as an HTML file plus a JSON
//     metadata file, for local development.
//
// Both validate the Message before doing any work. Email bodies are built
// from templ components in the templates subpackage:
//
//	body, err := templates.Render(ctx, templates.SubscriptionActivated(params))
//	if err != nil {
//		return err
//	}
//	err = sender.Send(ctx, email.Message{
//		To:      "user@example.com",
//		Subject: "Your Pro plan is active",
//		HTML:    body,
//		Tag:     "subscription-activated",
//	})
package email
