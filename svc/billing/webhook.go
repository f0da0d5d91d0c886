package billing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/smartfolio/smartfolio/handler"
	"github.com/smartfolio/smartfolio/pkg/logger"
	"github.com/smartfolio/smartfolio/pkg/subscription"
)

// EventParser verifies and decodes provider notifications. Every
// subscription.BillingProvider is one.
type EventParser interface {
	Name() string
	SignatureHeader() string
	ParseEvent(ctx context.Context, payload []byte, signature string) (subscription.Event, error)
}

// EventProcessor applies a verified event.
type EventProcessor interface {
	Process(ctx context.Context, ev subscription.Event) (subscription.Outcome, error)
}

// WebhookHandler serves POST /webhooks/billing. Verification or decoding
// failures answer 400 and never reach the processor. Provider lookups made
// while parsing answer 502 and processing failures answer 500, so the
// provider redelivers.
type WebhookHandler struct {
	parser    EventParser
	processor EventProcessor
	maxBytes  int64
	metrics   *Metrics
	log       *slog.Logger
}

// WebhookOption configures a WebhookHandler.
type WebhookOption func(*WebhookHandler)

func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(h *WebhookHandler) {
		if l != nil {
			h.log = l
		}
	}
}

func WithWebhookMetrics(m *Metrics) WebhookOption {
	return func(h *WebhookHandler) { h.metrics = m }
}

func NewWebhookHandler(cfg Config, parser EventParser, processor EventProcessor, opts ...WebhookOption) *WebhookHandler {
	h := &WebhookHandler{
		parser:    parser,
		processor: processor,
		maxBytes:  cfg.withDefaults().WebhookMaxBytes,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With(logger.Component("billing.webhook"), logger.Provider(parser.Name()))
	return h
}

type webhookAck struct {
	Received bool `json:"received"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := h.parser.Name()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		h.metrics.recordWebhook(provider, "unknown", "rejected")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.log.WarnContext(ctx, "webhook payload too large", slog.Int64("limit", tooLarge.Limit))
			h.render(w, r, handler.JSONError(handler.ErrRequestTooLarge))
			return
		}
		h.log.WarnContext(ctx, "failed to read webhook payload", logger.Error(err))
		h.render(w, r, handler.JSONError(ErrInvalidWebhook))
		return
	}

	signature := r.Header.Get(h.parser.SignatureHeader())
	if signature == "" {
		h.metrics.recordWebhook(provider, "unknown", "rejected")
		h.log.WarnContext(ctx, "webhook without signature rejected")
		h.render(w, r, handler.JSONError(ErrInvalidWebhook))
		return
	}

	ev, err := h.parser.ParseEvent(ctx, payload, signature)
	if errors.Is(err, subscription.ErrProviderError) || errors.Is(err, context.DeadlineExceeded) {
		h.metrics.recordWebhook(provider, "unknown", "failed")
		h.log.ErrorContext(ctx, "billing provider unavailable while parsing webhook", logger.Error(err))
		h.render(w, r, handler.JSONError(ErrProviderUnavailable))
		return
	}
	if err != nil {
		h.metrics.recordWebhook(provider, "unknown", "rejected")
		h.log.WarnContext(ctx, "webhook rejected", logger.Error(err))
		h.render(w, r, handler.JSONError(ErrInvalidWebhook))
		return
	}

	kind := subscription.Kind(ev)
	outcome, err := h.processor.Process(ctx, ev)
	if err != nil {
		if mapped, ok := HTTPErrors(err); ok {
			h.metrics.recordWebhook(provider, kind, "rejected")
			h.log.WarnContext(ctx, "webhook event rejected", logger.EventID(ev.EventID()), logger.Error(err))
			h.render(w, r, handler.JSONError(mapped))
			return
		}
		h.metrics.recordWebhook(provider, kind, "failed")
		h.log.ErrorContext(ctx, "failed to process webhook event",
			logger.EventID(ev.EventID()), logger.EventType(kind), logger.Error(err))
		h.render(w, r, handler.JSONError(err))
		return
	}

	h.metrics.recordWebhook(provider, kind, string(outcome))
	h.render(w, r, handler.JSON(webhookAck{Received: true}))
}

func (h *WebhookHandler) render(w http.ResponseWriter, r *http.Request, resp handler.Response) {
	if err := resp.Render(w, r); err != nil {
		h.log.WarnContext(r.Context(), "failed to write webhook response", logger.Error(err))
	}
}
