package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DeliveryResult describes one delivery attempt.
type DeliveryResult struct {
	Success    bool
	StatusCode int
	Attempt    int
	Duration   time.Duration
	Error      error
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithHTTPClient sets the HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) SenderOption {
	return func(s *Sender) {
		if c != nil {
			s.client = c
		}
	}
}

// WithSecret signs every delivery with the given secret.
func WithSecret(secret string) SenderOption {
	return func(s *Sender) {
		s.secret = secret
	}
}

// WithRetries sets the number of retries after the first attempt and the
// backoff between them.
func WithRetries(n int, backoff BackoffStrategy) SenderOption {
	return func(s *Sender) {
		if n >= 0 {
			s.maxRetries = n
		}
		if backoff != nil {
			s.backoff = backoff
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) SenderOption {
	return func(s *Sender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithOnDelivery is called after each attempt.
func WithOnDelivery(fn func(DeliveryResult)) SenderOption {
	return func(s *Sender) {
		s.onDelivery = fn
	}
}

// Sender posts signed JSON payloads with retries. Safe for concurrent use.
type Sender struct {
	client     *http.Client
	secret     string
	maxRetries int
	backoff    BackoffStrategy
	timeout    time.Duration
	onDelivery func(DeliveryResult)
	now        func() time.Time
}

// NewSender creates a sender. Defaults: 3 retries, exponential backoff, 10s timeout.
func NewSender(opts ...SenderOption) *Sender {
	s := &Sender{
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		backoff:    DefaultBackoffStrategy(),
		timeout:    10 * time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send delivers payload to webhookURL. 4xx responses other than 408, 425
// and 429 are permanent and not retried.
func (s *Sender) Send(ctx context.Context, webhookURL string, payload []byte) error {
	if err := validate(webhookURL, payload); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff.NextInterval(attempt)):
			}
		}

		result, err := s.attempt(ctx, webhookURL, payload)
		result.Attempt = attempt + 1
		if s.onDelivery != nil {
			s.onDelivery(result)
		}
		if err == nil {
			return nil
		}

		lastErr = err
		if isPermanent(result.StatusCode) {
			return errors.Join(ErrPermanentFailure, err)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrWebhookDeliveryFailed, s.maxRetries+1, lastErr)
}

func (s *Sender) attempt(ctx context.Context, webhookURL string, payload []byte) (DeliveryResult, error) {
	start := time.Now()
	result := DeliveryResult{}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		result.Error = err
		return result, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "smartfolio-webhook/1.0")

	if s.secret != "" {
		sig, err := Sign(s.secret, payload, s.now())
		if err != nil {
			result.Error = err
			return result, err
		}
		req.Header.Set(SignatureHeader, sig)
	}

	resp, err := s.client.Do(req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result, errors.Join(ErrTimeout, err)
		}
		return result, errors.Join(ErrTemporaryFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
	if result.Success {
		return result, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	msg := strings.ReplaceAll(strings.TrimSpace(string(body)), "\n", " ")
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	result.Error = fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, msg)
	return result, result.Error
}

func validate(webhookURL string, payload []byte) error {
	u, err := url.Parse(webhookURL)
	if err != nil {
		return errors.Join(ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}
	return nil
}

func isPermanent(status int) bool {
	if status < 400 || status >= 500 {
		return false
	}
	switch status {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	default:
		return true
	}
}
