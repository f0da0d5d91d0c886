package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/smartfolio/smartfolio/internal/db/migrations"
	"github.com/smartfolio/smartfolio/pkg/clientip"
	"github.com/smartfolio/smartfolio/pkg/config"
	"github.com/smartfolio/smartfolio/pkg/email"
	"github.com/smartfolio/smartfolio/pkg/httpserver"
	"github.com/smartfolio/smartfolio/pkg/jwt"
	"github.com/smartfolio/smartfolio/pkg/logger"
	"github.com/smartfolio/smartfolio/pkg/metrics"
	"github.com/smartfolio/smartfolio/pkg/pg"
	"github.com/smartfolio/smartfolio/pkg/ratelimiter"
	"github.com/smartfolio/smartfolio/pkg/redis"
	"github.com/smartfolio/smartfolio/pkg/requestid"
	"github.com/smartfolio/smartfolio/pkg/subscription"
	"github.com/smartfolio/smartfolio/svc/ai"
	"github.com/smartfolio/smartfolio/svc/auth"
	"github.com/smartfolio/smartfolio/svc/billing"
	"github.com/smartfolio/smartfolio/svc/portfolio"
)

type appConfig struct {
	AppURL          string `env:"APP_URL,required"`
	BillingProvider string `env:"BILLING_PROVIDER" envDefault:"local"`
	PlansFile       string `env:"PLANS_FILE"`
	// RateLimitStore is redis or memory. Memory limits per instance only.
	RateLimitStore string `env:"RATE_LIMIT_STORE" envDefault:"redis"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("smartfolio stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := config.LoadEnv(".env.local"); err != nil {
		return err
	}

	var (
		logCfg     logger.Config
		app        appConfig
		pgCfg      pg.Config
		redisCfg   redis.Config
		httpCfg    httpserver.Config
		limitCfg   ratelimiter.Config
		jwtCfg     jwt.Config
		billingCfg billing.Config
		gatewayCfg subscription.GatewayConfig
		prices     subscription.PriceRefs
		emailCfg   email.Config
		aiCfg      ai.Config
	)
	if err := errors.Join(
		config.Load(&logCfg),
		config.Load(&app),
		config.Load(&pgCfg),
		config.Load(&redisCfg),
		config.Load(&httpCfg),
		config.Load(&limitCfg),
		config.Load(&jwtCfg),
		config.Load(&billingCfg),
		config.Load(&gatewayCfg),
		config.Load(&prices),
		config.Load(&emailCfg),
		config.Load(&aiCfg),
	); err != nil {
		return err
	}
	app.AppURL = strings.TrimRight(app.AppURL, "/")

	log := logger.New(
		logger.WithConfig(logCfg),
		logger.WithContextExtractors(requestid.LogExtractor(), auth.LogExtractor()),
	)
	slog.SetDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, pgCfg, migrations.FS, log); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	var catalogOpts []subscription.CatalogOption
	if app.PlansFile != "" {
		overrides, err := subscription.LoadOverridesFile(app.PlansFile)
		if err != nil {
			return err
		}
		catalogOpts = append(catalogOpts, subscription.WithOverrides(overrides))
	}
	catalog, err := subscription.NewCatalog(prices, catalogOpts...)
	if err != nil {
		return err
	}

	provider, providerPages, err := newProvider(app, log)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "billing provider selected", logger.Provider(provider.Name()))

	sender, err := newEmailSender(emailCfg, log)
	if err != nil {
		return err
	}

	tokens, err := jwt.New(jwtCfg)
	if err != nil {
		return err
	}
	requireUser := auth.Middleware(tokens, auth.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)

	var limitStore ratelimiter.Store
	switch app.RateLimitStore {
	case "memory":
		mem := ratelimiter.NewMemoryStore()
		g.Go(func() error { return mem.Run(ctx, time.Minute) })
		limitStore = mem
	case "redis":
		limitStore = ratelimiter.NewRedisStore(rdb, ratelimiter.WithKeyPrefix("smartfolio:ratelimit:"))
	default:
		return fmt.Errorf("unknown RATE_LIMIT_STORE %q", app.RateLimitStore)
	}
	limiter, err := ratelimiter.NewBucket(limitStore, limitCfg)
	if err != nil {
		return err
	}
	limit := ratelimiter.Middleware(limiter, auth.RateLimitKey, log)
	limitByIP := ratelimiter.Middleware(limiter, clientip.RateLimitKey, log)

	billingMetrics := billing.NewMetrics(nil)
	httpMetrics := metrics.NewHTTP(nil)

	store := billing.NewStore(pool)
	gate := subscription.NewGate(store,
		subscription.NewEvaluator(catalog),
		subscription.NewUsage(billing.NewUsageCounter(pool)))
	gateway := subscription.NewGateway(gatewayCfg, provider, store, catalog,
		subscription.WithGatewayLogger(log),
		subscription.WithErrorObserver(billingMetrics.GatewayErrorObserver(provider.Name())))
	processor := subscription.NewProcessor(store, catalog,
		subscription.WithPaymentRecorder(store),
		subscription.WithNotifier(billing.NewEmailNotifier(sender, catalog, app.AppURL, log)),
		subscription.WithProcessorLogger(log))

	billingSvc := billing.NewService(billingCfg, gateway, gate, catalog, store,
		billing.WithLogger(log),
		billing.WithMetrics(billingMetrics),
		billing.WithAuth(requireUser, limit),
		billing.WithPublic(limitByIP))
	webhooks := billing.NewWebhookHandler(billingCfg, provider, processor,
		billing.WithWebhookLogger(log),
		billing.WithWebhookMetrics(billingMetrics))
	portfolioSvc := portfolio.NewService(portfolio.NewStore(pool), gate,
		portfolio.WithLogger(log),
		portfolio.WithAuth(requireUser, limit))

	r := chi.NewRouter()
	r.Use(requestid.Middleware, httpMetrics.Middleware)

	r.Get("/health/live", httpserver.Liveness())
	r.Get("/health/ready", httpserver.Readiness(log,
		httpserver.Probe{Name: "postgres", Check: pg.Healthcheck(pool)},
		httpserver.Probe{Name: "redis", Check: redis.Healthcheck(rdb)},
	))
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/billing", billingSvc.Handle())
	r.Method(http.MethodPost, "/webhooks/billing", webhooks)
	r.Mount("/portfolios", portfolioSvc.Handle())
	if providerPages != nil {
		r.Mount("/local-billing", providerPages)
	}

	if aiCfg.APIKey != "" {
		completer, err := ai.NewOpenAIClient(aiCfg)
		if err != nil {
			return err
		}
		aiSvc := ai.NewService(aiCfg, completer, ai.NewStore(pool), gate,
			ai.WithLogger(log),
			ai.WithAuth(requireUser, limit))
		r.Mount("/ai", aiSvc.Handle())
	} else {
		log.WarnContext(ctx, "OPENAI_API_KEY is not set, AI routes are disabled")
	}

	server := httpserver.New(httpCfg, r, httpserver.WithLogger(log))

	g.Go(func() error { return server.Run(ctx) })
	return g.Wait()
}

func newEmailSender(cfg email.Config, log *slog.Logger) (email.Sender, error) {
	if !cfg.Enabled() {
		log.Info("POSTMARK_SERVER_TOKEN is not set, emails are written to " + cfg.DevDir)
		return email.NewDevSender(cfg.DevDir), nil
	}
	s, err := email.NewPostmarkSender(cfg)
	if err != nil {
		return nil, errors.Join(errors.New("configure postmark"), err)
	}
	return s, nil
}
