package billing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/a-h/templ"

	"github.com/smartfolio/smartfolio/pkg/email"
	"github.com/smartfolio/smartfolio/pkg/email/templates"
	"github.com/smartfolio/smartfolio/pkg/logger"
	"github.com/smartfolio/smartfolio/pkg/subscription"
)

// EmailNotifier emails users about activation and failed payments. Users
// without a known email address are skipped.
type EmailNotifier struct {
	sender  email.Sender
	catalog *subscription.Catalog
	appURL  string
	log     *slog.Logger
}

var _ subscription.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(sender email.Sender, catalog *subscription.Catalog, appURL string, log *slog.Logger) *EmailNotifier {
	if log == nil {
		log = logger.Discard()
	}
	return &EmailNotifier{
		sender:  sender,
		catalog: catalog,
		appURL:  strings.TrimRight(appURL, "/"),
		log:     log,
	}
}

func (n *EmailNotifier) SubscriptionActivated(ctx context.Context, sub *subscription.Subscription) error {
	planName := n.catalog.Info(sub.Plan).Name
	return n.send(ctx, sub, "subscription-activated",
		fmt.Sprintf("Your %s plan is active", planName),
		templates.SubscriptionActivated(templates.SubscriptionActivatedParams{
			PlanName:     planName,
			RenewsAt:     sub.CurrentPeriodEnd,
			TrialEndsAt:  sub.TrialEnd,
			DashboardURL: n.appURL + "/billing",
		}))
}

func (n *EmailNotifier) PaymentFailed(ctx context.Context, sub *subscription.Subscription) error {
	return n.send(ctx, sub, "payment-failed",
		"Action needed: your payment failed",
		templates.PaymentFailed(templates.PaymentFailedParams{
			PlanName:   n.catalog.Info(sub.Plan).Name,
			BillingURL: n.appURL + "/billing",
		}))
}

func (n *EmailNotifier) send(ctx context.Context, sub *subscription.Subscription, tag, subject string, body templ.Component) error {
	if sub.CustomerEmail == "" {
		n.log.DebugContext(ctx, "no email address on file, notification skipped",
			logger.UserID(sub.UserID), slog.String("tag", tag))
		return nil
	}
	html, err := templates.Render(ctx, body)
	if err != nil {
		return fmt.Errorf("render %s email: %w", tag, err)
	}
	return n.sender.Send(ctx, email.Message{
		To:      sub.CustomerEmail,
		Subject: subject,
		HTML:    html,
		Tag:     tag,
	})
}
