package stripe

// Config holds Stripe credentials.
type Config struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
	// APIURL overrides the API base URL, e.g. to point at stripe-mock.
	APIURL string `env:"STRIPE_API_URL"`
}
