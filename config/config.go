// Package config loads retry, throttle and logging policies from YAML and
// turns them into an api.Configuration.
//
// Example file:
//
//	retry:
//	  strategy: exponential-backoff
//	  max_tries: 5
//	  initial_delay: 1s
//	  backoff_factor: 2
//	  max_delay: 30s
//	throttle:
//	  strategy: max-concurrency
//	  max_concurrent_calls: 4
//	logging:
//	  level: info
//	  format: json
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/hupe1980/modelmesh/api"
	"github.com/hupe1980/modelmesh/logging"
	"github.com/hupe1980/modelmesh/retry"
	"github.com/hupe1980/modelmesh/throttle"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Retry strategies.
const (
	RetryExponentialBackoff = "exponential-backoff"
	RetryNever              = "never"
)

// Throttle strategies.
const (
	ThrottleOff            = "off"
	ThrottleMaxConcurrency = "max-concurrency"
	ThrottleRateLimit      = "rate-limit"
)

// Config is the file representation of the call policies.
type Config struct {
	Retry    RetryConfig    `json:"retry" yaml:"retry"`
	Throttle ThrottleConfig `json:"throttle" yaml:"throttle"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// RetryConfig selects and tunes the retry policy.
type RetryConfig struct {
	// Strategy is "exponential-backoff" (default) or "never".
	Strategy string `json:"strategy" yaml:"strategy"`

	// Backoff parameters; zero values use the retry package defaults.
	MaxTries      int           `json:"max_tries" yaml:"max_tries"`
	InitialDelay  time.Duration `json:"initial_delay" yaml:"initial_delay"`
	BackoffFactor float64       `json:"backoff_factor" yaml:"backoff_factor"`
	MaxDelay      time.Duration `json:"max_delay" yaml:"max_delay"`
}

// ThrottleConfig selects and tunes the throttle policy.
type ThrottleConfig struct {
	// Strategy is "off" (default), "max-concurrency" or "rate-limit".
	Strategy string `json:"strategy" yaml:"strategy"`

	MaxConcurrentCalls int64   `json:"max_concurrent_calls" yaml:"max_concurrent_calls"`
	RequestsPerSecond  float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst              int     `json:"burst" yaml:"burst"`
}

// LoggingConfig configures the logger returned by Config.Logger.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json or text
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Retry:    RetryConfig{Strategy: RetryExponentialBackoff},
		Throttle: ThrottleConfig{Strategy: ThrottleOff},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
	}
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read is Parse for a reader.
func Read(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Load reads a YAML file, applies environment overrides and validates it.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.LoadFromEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromEnv overrides fields from MODELMESH_ prefixed environment
// variables. Unparseable values are ignored.
//
// Supported variables:
//   - MODELMESH_RETRY_STRATEGY
//   - MODELMESH_RETRY_MAX_TRIES
//   - MODELMESH_THROTTLE_STRATEGY
//   - MODELMESH_THROTTLE_MAX_CONCURRENT_CALLS
//   - MODELMESH_LOG_LEVEL
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("MODELMESH_RETRY_STRATEGY"); v != "" {
		c.Retry.Strategy = v
	}
	if v := os.Getenv("MODELMESH_RETRY_MAX_TRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.MaxTries = n
		}
	}
	if v := os.Getenv("MODELMESH_THROTTLE_STRATEGY"); v != "" {
		c.Throttle.Strategy = v
	}
	if v := os.Getenv("MODELMESH_THROTTLE_MAX_CONCURRENT_CALLS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Throttle.MaxConcurrentCalls = n
		}
	}
	if v := os.Getenv("MODELMESH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Retry.Strategy {
	case "", RetryExponentialBackoff, RetryNever:
	default:
		return fmt.Errorf("%w: unknown retry strategy %q", ErrInvalid, c.Retry.Strategy)
	}
	if c.Retry.MaxTries < 0 {
		return fmt.Errorf("%w: retry.max_tries must be >= 0, got %d", ErrInvalid, c.Retry.MaxTries)
	}
	if c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("%w: retry delays must be >= 0", ErrInvalid)
	}
	if c.Retry.BackoffFactor < 0 {
		return fmt.Errorf("%w: retry.backoff_factor must be >= 0, got %v", ErrInvalid, c.Retry.BackoffFactor)
	}

	switch c.Throttle.Strategy {
	case "", ThrottleOff:
	case ThrottleMaxConcurrency:
		if c.Throttle.MaxConcurrentCalls <= 0 {
			return fmt.Errorf("%w: throttle.max_concurrent_calls must be > 0, got %d", ErrInvalid, c.Throttle.MaxConcurrentCalls)
		}
	case ThrottleRateLimit:
		if c.Throttle.RequestsPerSecond <= 0 {
			return fmt.Errorf("%w: throttle.requests_per_second must be > 0, got %v", ErrInvalid, c.Throttle.RequestsPerSecond)
		}
		if c.Throttle.Burst < 0 {
			return fmt.Errorf("%w: throttle.burst must be >= 0, got %d", ErrInvalid, c.Throttle.Burst)
		}
	default:
		return fmt.Errorf("%w: unknown throttle strategy %q", ErrInvalid, c.Throttle.Strategy)
	}

	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Logging.Format)
	}

	return nil
}

// BuildOptions configure APIConfiguration.
type BuildOptions struct {
	// RetryLogger receives a warning for every retried attempt.
	RetryLogger interface {
		LogRetry(try int, delay time.Duration, err error)
	}
}

// APIConfiguration builds the retry and throttle policies. Every call
// returns fresh policy values: a max-concurrency throttle is shared only by
// the models that receive the same api.Configuration.
func (c Config) APIConfiguration(optFns ...func(o *BuildOptions)) (api.Configuration, error) {
	if err := c.Validate(); err != nil {
		return api.Configuration{}, err
	}

	opts := BuildOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return api.Configuration{
		Retry:    c.retryFunction(opts),
		Throttle: c.throttleFunction(),
	}, nil
}

func (c Config) retryFunction(opts BuildOptions) retry.Function {
	if c.Retry.Strategy == RetryNever {
		return retry.Never()
	}

	return retry.WithExponentialBackoff(func(o *retry.BackoffOptions) {
		o.MaxTries = c.Retry.MaxTries
		o.InitialDelay = c.Retry.InitialDelay
		o.BackoffFactor = c.Retry.BackoffFactor
		o.MaxDelay = c.Retry.MaxDelay
		if l := opts.RetryLogger; l != nil {
			o.OnRetry = func(try int, err error, delay time.Duration) {
				l.LogRetry(try, delay, err)
			}
		}
	})
}

func (c Config) throttleFunction() throttle.Function {
	switch c.Throttle.Strategy {
	case ThrottleMaxConcurrency:
		return throttle.MaxConcurrency(c.Throttle.MaxConcurrentCalls)
	case ThrottleRateLimit:
		burst := c.Throttle.Burst
		if burst == 0 {
			burst = 1
		}
		return throttle.RateLimit(rate.NewLimiter(rate.Limit(c.Throttle.RequestsPerSecond), burst))
	default:
		return throttle.Off()
	}
}

// Logger builds a logger writing to w according to the logging section.
func (c Config) Logger(w io.Writer) *logging.ModelMeshLogger {
	cfg := logging.DefaultLoggerConfig()
	cfg.Output = w
	cfg.AddSource = false
	cfg.Level = logging.ParseLogLevel(c.Logging.Level)
	if c.Logging.Format != "" {
		cfg.Format = c.Logging.Format
	}
	return logging.NewLogger(cfg)
}
