package config

import (
	"fmt"
	"time"
)

// LimitsConfig bounds what the chat proxy accepts.
type LimitsConfig struct {
	RateLimit       int    `yaml:"rate_limit" json:"rate_limit"`               // Requests per window per client IP
	RateWindow      string `yaml:"rate_window" json:"rate_window"`             // Sliding window length
	MaxBodyBytes    int    `yaml:"max_body_bytes" json:"max_body_bytes"`       // Encoded request size
	MaxMessages     int    `yaml:"max_messages" json:"max_messages"`           // Messages per request
	MaxMessageChars int    `yaml:"max_message_chars" json:"max_message_chars"` // Characters per message
}

// DefaultLimits returns the limits the storefront ships with.
func DefaultLimits() LimitsConfig {
	return LimitsConfig{
		RateLimit:       20,
		RateWindow:      "60s",
		MaxBodyBytes:    10000,
		MaxMessages:     25,
		MaxMessageChars: 2000,
	}
}

// GetRateWindow returns the rate window as a duration.
func (l LimitsConfig) GetRateWindow() time.Duration {
	return parseDuration(l.RateWindow, 60*time.Second)
}

// Validate checks that limits are within acceptable ranges.
func (l LimitsConfig) Validate() error {
	if l.RateLimit < 1 {
		return fmt.Errorf("%w: rate_limit must be >= 1", ErrInvalidLimits)
	}
	if l.MaxBodyBytes < 1 {
		return fmt.Errorf("%w: max_body_bytes must be >= 1", ErrInvalidLimits)
	}
	if l.MaxMessages < 1 {
		return fmt.Errorf("%w: max_messages must be >= 1", ErrInvalidLimits)
	}
	if l.MaxMessageChars < 1 {
		return fmt.Errorf("%w: max_message_chars must be >= 1", ErrInvalidLimits)
	}
	return nil
}
