package templates

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"
)

// SubscriptionActivatedParams feeds the activation email.
type SubscriptionActivatedParams struct {
	PlanName     string
	RenewsAt     *time.Time
	TrialEndsAt  *time.Time
	DashboardURL string
}

// PaymentFailedParams feeds the payment failure email.
type PaymentFailedParams struct {
	PlanName   string
	BillingURL string
}

func SubscriptionActivated(p SubscriptionActivatedParams) templ.Component {
	return layout("Your "+p.PlanName+" plan is active", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<p>Thanks for upgrading. Your <strong>%s</strong> plan is now active.</p>",
			templ.EscapeString(p.PlanName)); err != nil {
			return err
		}
		if p.TrialEndsAt != nil {
			if _, err := fmt.Fprintf(w, "<p>Your free trial runs until %s.</p>", formatDate(*p.TrialEndsAt)); err != nil {
				return err
			}
		} else if p.RenewsAt != nil {
			if _, err := fmt.Fprintf(w, "<p>Your subscription renews on %s.</p>", formatDate(*p.RenewsAt)); err != nil {
				return err
			}
		}
		return button(w, p.DashboardURL, "Open your dashboard")
	}))
}

func PaymentFailed(p PaymentFailedParams) templ.Component {
	return layout("We could not process your payment", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			"<p>The latest payment for your <strong>%s</strong> plan failed. "+
				"Paid features stay available while we retry, but please update your payment method.</p>",
			templ.EscapeString(p.PlanName)); err != nil {
			return err
		}
		return button(w, p.BillingURL, "Update payment method")
	}))
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			`<!doctype html><html><head><meta charset="utf-8"><title>%[1]s</title></head>`+
				`<body style="font-family:sans-serif;color:#111"><h1>%[1]s</h1>`,
			templ.EscapeString(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<p style="color:#666;font-size:12px">Smartfolio</p></body></html>`)
		return err
	})
}

func button(w io.Writer, href, label string) error {
	if href == "" {
		return nil
	}
	_, err := fmt.Fprintf(w, `<p><a href="%s" style="padding:10px 16px;background:#111;color:#fff;text-decoration:none">%s</a></p>`,
		templ.EscapeString(href), templ.EscapeString(label))
	return err
}

func formatDate(t time.Time) string {
	return t.UTC().Format("January 2, 2006")
}
