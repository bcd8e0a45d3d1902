package provider

import "time"

// Config 描述行情/期权链 HTTP 服务的接入参数。
type Config struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	// RetryBackoff 为重试的基础间隔，按次数线性放大。
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

func (c Config) withDefaults() Config {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	return c
}
