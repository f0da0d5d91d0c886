package billing

import (
	"time"

	"github.com/smartfolio/smartfolio/handler"
	"github.com/smartfolio/smartfolio/pkg/subscription"
	"github.com/smartfolio/smartfolio/svc/auth"
)

type empty struct{}

// CheckoutRequest starts a checkout for one of the listed plan prices.
type CheckoutRequest struct {
	PriceRef string `json:"price_ref" validate:"required"`
}

// SubscriptionView is the subscription as shown to its owner.
type SubscriptionView struct {
	*subscription.Subscription
	EffectivePlan    subscription.Plan         `json:"effective_plan"`
	StatusLabel      string                    `json:"status_label"`
	DaysUntilRenewal *int                      `json:"days_until_renewal,omitempty"`
	TrialActive      bool                      `json:"trial_active"`
	Entitlements     subscription.Entitlements `json:"entitlements"`
}

func (s *Service) view(sub *subscription.Subscription) SubscriptionView {
	now := s.now()
	ev := s.gate.Evaluator()
	v := SubscriptionView{
		Subscription:  sub,
		EffectivePlan: ev.EffectivePlan(sub),
		StatusLabel:   subscription.StatusLabel(sub.Status),
		TrialActive:   sub.IsTrialActive(now),
		Entitlements:  ev.EffectiveEntitlements(sub),
	}
	if days, ok := sub.DaysUntilRenewal(now); ok {
		v.DaysUntilRenewal = &days
	}
	return v
}

func (s *Service) listPlans(_ handler.Context, _ empty) handler.Response {
	return handler.JSON(s.catalog.Plans())
}

func (s *Service) getSubscription(ctx handler.Context, _ empty) handler.Response {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	sub, err := s.gate.Subscription(ctx, user.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(s.view(sub))
}

func (s *Service) createCheckout(ctx handler.Context, req CheckoutRequest) handler.Response {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	session, err := s.gateway.CreateCheckoutSession(ctx, subscription.CheckoutRequest{
		Customer: customer(user),
		PriceRef: req.PriceRef,
	})
	if err != nil {
		return handler.Error(err)
	}
	if plan, ok := s.catalog.PlanForPrice(req.PriceRef); ok {
		s.metrics.recordCheckout(plan.String())
	}
	return handler.JSON(session)
}

func (s *Service) createPortal(ctx handler.Context, _ empty) handler.Response {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	session, err := s.gateway.CreatePortalSession(ctx, customer(user))
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(session)
}

func (s *Service) cancel(ctx handler.Context, _ empty) handler.Response {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	sub, err := s.gateway.CancelSubscription(ctx, user.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(s.view(sub))
}

func (s *Service) resume(ctx handler.Context, _ empty) handler.Response {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	sub, err := s.gateway.ResumeSubscription(ctx, user.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(s.view(sub))
}

// ListRequest pages the payment history. Zero or anything above the
// configured limit falls back to it.
type ListRequest struct {
	Limit uint64 `query:"limit"`
}

func (s *Service) listPayments(ctx handler.Context, req ListRequest) handler.Response {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	limit := s.cfg.PaymentsLimit
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}
	payments, err := s.payments.ListPayments(ctx, user.ID, limit)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(payments, handler.WithJSONMeta(map[string]any{"limit": limit}))
}

func (s *Service) usage(ctx handler.Context, _ empty) handler.Response {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	report, err := s.gate.Report(ctx, user.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(report, handler.WithJSONMeta(map[string]any{
		"period_start": subscription.StartOfMonth(s.now()).Format(time.RFC3339),
	}))
}

func customer(u *auth.User) subscription.Customer {
	return subscription.Customer{UserID: u.ID, Email: u.Email, Name: u.Name}
}
