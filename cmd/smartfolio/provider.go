package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/smartfolio/smartfolio/pkg/config"
	"github.com/smartfolio/smartfolio/pkg/subscription"
	"github.com/smartfolio/smartfolio/pkg/subscription/local"
	"github.com/smartfolio/smartfolio/pkg/subscription/paddle"
	"github.com/smartfolio/smartfolio/pkg/subscription/stripe"
)

// newProvider builds the provider named by BILLING_PROVIDER. The local
// provider also returns the pages it serves under /local-billing.
func newProvider(app appConfig, log *slog.Logger) (subscription.BillingProvider, http.Handler, error) {
	switch app.BillingProvider {
	case "stripe":
		var cfg stripe.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		p, err := stripe.New(cfg)
		return p, nil, err

	case "paddle":
		var cfg paddle.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		p, err := paddle.New(cfg)
		return p, nil, err

	case "local":
		var cfg local.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		p, err := local.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Warn("local billing provider in use, payments are simulated")
		return p, p.Handler(), nil

	default:
		return nil, nil, fmt.Errorf("unknown BILLING_PROVIDER %q, want stripe, paddle or local", app.BillingProvider)
	}
}
