package billing

// Config holds the HTTP layer settings.
type Config struct {
	PaymentsLimit   uint64 `env:"BILLING_PAYMENTS_LIMIT" envDefault:"50"`
	WebhookMaxBytes int64  `env:"BILLING_WEBHOOK_MAX_BYTES" envDefault:"1048576"`
}

func (c Config) withDefaults() Config {
	if c.PaymentsLimit == 0 {
		c.PaymentsLimit = 50
	}
	if c.WebhookMaxBytes <= 0 {
		c.WebhookMaxBytes = 1 << 20
	}
	return c
}
