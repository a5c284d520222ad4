// Package config holds the engine configuration recognized by the workflow
// subsystem.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultWebhookTimeout = 10 * time.Second
	DefaultSchedulerTick  = 60 * time.Second
	DefaultWorkerCount    = 8
)

// Mail carries SMTP transport parameters. An empty Host disables the email
// action entirely (executions fail with ConfigMissing).
type Mail struct {
	From   string `json:"from"`
	Host   string `json:"host"`
	Port   int    `json:"port"   validate:"omitempty,min=1,max=65535"`
	User   string `json:"user"`
	Pass   string `json:"pass"`
	Secure bool   `json:"secure"`
}

// Sender is the envelope sender: mail.from with a fallback to the transport
// user.
func (m Mail) Sender() string {
	if m.From != "" {
		return m.From
	}

	return m.User
}

// Enabled reports whether a mail transport is configured.
func (m Mail) Enabled() bool {
	return m.Host != ""
}

// Config is the full engine configuration.
type Config struct {
	AppName        string        `json:"app_name"`
	Mail           Mail          `json:"mail"`
	WebhookTimeout time.Duration `json:"webhook_timeout"`
	SchedulerTick  time.Duration `json:"scheduler_tick"  validate:"omitempty,max=60s"`
	Workers        int           `json:"workers"         validate:"omitempty,min=1"`
}

// Default returns a configuration with every tunable at its documented
// default and no mail transport.
func Default() Config {
	return Config{
		WebhookTimeout: DefaultWebhookTimeout,
		SchedulerTick:  DefaultSchedulerTick,
		Workers:        DefaultWorkerCount,
	}
}

// Normalize fills zero values with defaults and validates the result.
func (c *Config) Normalize() error {
	if c.WebhookTimeout <= 0 {
		c.WebhookTimeout = DefaultWebhookTimeout
	}

	if c.SchedulerTick <= 0 {
		c.SchedulerTick = DefaultSchedulerTick
	}

	if c.Workers <= 0 {
		c.Workers = DefaultWorkerCount
	}

	return validator.New().Struct(c)
}
