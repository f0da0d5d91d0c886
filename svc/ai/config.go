package ai

import "time"

// Config configures the completion client and request limits.
type Config struct {
	APIKey           string        `env:"OPENAI_API_KEY"`
	BaseURL          string        `env:"OPENAI_BASE_URL"`
	Model            string        `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	Temperature      float32       `env:"AI_TEMPERATURE" envDefault:"0.7"`
	DefaultMaxTokens int           `env:"AI_DEFAULT_MAX_TOKENS" envDefault:"500"`
	MaxTokens        int           `env:"AI_MAX_TOKENS" envDefault:"2000"`
	HistoryLimit     uint64        `env:"AI_HISTORY_LIMIT" envDefault:"50"`
	Timeout          time.Duration `env:"AI_TIMEOUT" envDefault:"60s"`
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "gpt-3.5-turbo"
	}
	if c.DefaultMaxTokens <= 0 {
		c.DefaultMaxTokens = 500
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2000
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 50
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}
