// Package subscription implements plan tiers, entitlements and the
// webhook-driven subscription lifecycle.
//
// A user has at most one Subscription. Users that never checked out are
// treated as DefaultSubscription: the free plan, active. Paid state only
// changes through two paths: the Processor applying verified provider events,
// and the Gateway scheduling or unscheduling cancellation after the provider
// confirmed it.
//
// # Components
//
//   - Catalog: the closed set of plans (free, pro, enterprise), their
//     entitlements and the provider price refs mapped to them.
//   - Evaluator: pure entitlement decisions. A subscription that is not
//     active, or trialing past its trial end, evaluates as free.
//   - Usage: per-action usage. AI generations are counted per calendar
//     month (UTC), portfolios are a standing total.
//   - Gate: combines Store, Usage and Evaluator for product actions.
//   - Gateway: checkout, customer portal, cancel and resume.
//   - Processor: applies Event values decoded by a BillingProvider.
//
// Provider implementations live in the stripe, paddle and local subpackages.
//
// # Usage
//
//	catalog, err := subscription.NewCatalog(subscription.PriceRefs{
//		Pro:        "price_pro_monthly",
//		Enterprise: "price_enterprise_monthly",
//	})
//	if err != nil {
//		return err
//	}
//
//	evaluator := subscription.NewEvaluator(catalog)
//	gate := subscription.NewGate(store, evaluator, subscription.NewUsage(counter))
//
//	if err := gate.Check(ctx, userID, subscription.ActionCreatePortfolio); err != nil {
//		if errors.Is(err, subscription.ErrQuotaExceeded) {
//			// ask the user to upgrade
//		}
//		return err
//	}
//
// Webhooks are verified and decoded by the provider, then applied:
//
//	ev, err := provider.ParseEvent(ctx, payload, r.Header.Get(provider.SignatureHeader()))
//	if err != nil {
//		return err // ErrWebhookVerificationFailed or ErrMalformedEvent
//	}
//	outcome, err := processor.Process(ctx, ev)
//
// Every store write sets absolute values, so redelivered or reordered
// events converge on the same state.
package subscription
