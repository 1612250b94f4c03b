package resilience

import "time"

type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = def.RetryMaxBackoff
	}
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return out
}

// SingleAttempt keeps the breaker but never retries.
func SingleAttempt(c Config) Config {
	out := c.normalize()
	out.RetryMaxAttempts = 1
	return out
}

// Tuning overrides breaker settings from configuration. Zero fields keep the
// policy's own values.
type Tuning struct {
	OpenTimeout  time.Duration
	FailureRatio float64
	MinRequests  uint32
}

func (t Tuning) apply(c Config) Config {
	if t.OpenTimeout > 0 {
		c.BreakerOpenTimeout = t.OpenTimeout
	}
	if t.FailureRatio > 0 && t.FailureRatio <= 1 {
		c.BreakerFailureRatio = t.FailureRatio
	}
	if t.MinRequests > 0 {
		c.BreakerMinRequests = t.MinRequests
	}
	return c
}

// PublishPolicy retries event publishing across short broker reconnects.
func PublishPolicy(t Tuning) Config {
	return t.apply(DefaultConfig())
}

// CaptionPolicy makes one attempt per caption. The visitor types a caption
// when it fails, so the breaker trips after fewer requests than the default.
func CaptionPolicy(t Tuning) Config {
	c := SingleAttempt(DefaultConfig())
	c.BreakerMinRequests = 5
	return t.apply(c)
}
