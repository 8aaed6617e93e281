// Package config loads relayd settings from flags, environment
// variables, an optional .env file and an optional config file.
//
// Precedence, highest first: flags that were set explicitly,
// environment variables (including those loaded from .env), the
// config file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/blockberries/relay"
	"github.com/blockberries/relay/chain"
)

// Keys of the settings, as used in config files.
const (
	KeyListen         = "listen"
	KeyNetwork        = "network"
	KeyNodeURL        = "node_url"
	KeySponsorKey     = "sponsor_key"
	KeySponsorFee     = "sponsor_fee"
	KeyNodeTimeout    = "node_timeout"
	KeyRateCapacity   = "rate_limit.capacity"
	KeyRateWindow     = "rate_limit.window"
	KeyRateBackend    = "rate_limit.backend"
	KeyRedisURL       = "rate_limit.redis_url"
	KeyRedisPrefix    = "rate_limit.redis_prefix"
	KeyRateSweep      = "rate_limit.sweep_interval"
	KeyAuditAppID     = "audit.app_id"
	KeyAuditSink      = "audit.sink"
	KeyAuditQueue     = "audit.queue_size"
	KeyAuditTimeout   = "audit.timeout"
	KeyLogLevel       = "log_level"
	KeyShutdownPeriod = "shutdown_timeout"
)

// Rate limiter backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// binding ties a key to its environment variable and flag. An empty
// flag means the setting cannot be given on the command line.
type binding struct {
	key, env, flag, usage string
}

var bindings = []binding{
	{KeyListen, "RELAY_LISTEN", "listen", "HTTP listen address"},
	{KeyNetwork, "NETWORK", "network", `network: "mainnet", anything else selects testnet`},
	{KeyNodeURL, "RELAY_NODE_URL", "node-url", "node API URL (default: the network's public API)"},
	{KeySponsorKey, "SPONSOR_PRIVATE_KEY", "", ""},
	{KeySponsorFee, "RELAY_SPONSOR_FEE", "sponsor-fee", "fixed sponsor fee; 0 estimates from the node fee rate"},
	{KeyNodeTimeout, "RELAY_NODE_TIMEOUT", "node-timeout", "timeout of each node API call"},
	{KeyRateCapacity, "RELAY_RATE_LIMIT_CAPACITY", "rate-limit", "requests admitted per sender per window"},
	{KeyRateWindow, "RELAY_RATE_LIMIT_WINDOW", "rate-window", "rate limit window"},
	{KeyRateBackend, "RELAY_RATE_LIMIT_BACKEND", "rate-backend", `rate limiter backend: "memory" or "redis"`},
	{KeyRedisURL, "RELAY_REDIS_URL", "redis-url", "redis:// URL for the redis backend"},
	{KeyRedisPrefix, "RELAY_REDIS_PREFIX", "redis-prefix", "key prefix for the redis backend"},
	{KeyRateSweep, "RELAY_RATE_LIMIT_SWEEP", "rate-sweep", "evict expired memory limiter entries at this interval; 0 never evicts"},
	{KeyAuditAppID, "RELAY_APP_ID", "app-id", "application id attached to audit events"},
	{KeyAuditSink, "RELAY_AUDIT_SINK", "audit-sink", "host:port of a gRPC log sink; empty logs audit events locally"},
	{KeyAuditQueue, "RELAY_AUDIT_QUEUE", "audit-queue", "pending audit events before new ones are dropped"},
	{KeyAuditTimeout, "RELAY_AUDIT_TIMEOUT", "audit-timeout", "timeout of each audit event delivery"},
	{KeyLogLevel, "RELAY_LOG_LEVEL", "log-level", "operator log level: debug, info, warn, error"},
	{KeyShutdownPeriod, "RELAY_SHUTDOWN_TIMEOUT", "shutdown-timeout", "graceful shutdown bound"},
}

// Settings is the complete relayd configuration.
type Settings struct {
	Listen          string
	NodeTimeout     time.Duration
	SponsorFee      uint64
	LogLevel        string
	ShutdownTimeout time.Duration

	// Relay is the read-only pipeline configuration.
	Relay relay.Config

	RateLimit RateLimitSettings
	Audit     AuditSettings
}

// RateLimitSettings select and tune the limiter backend.
type RateLimitSettings struct {
	Backend       string
	RedisURL      string
	RedisPrefix   string
	SweepInterval time.Duration
}

// AuditSettings configure audit event delivery.
type AuditSettings struct {
	AppID     string
	Sink      string
	QueueSize int
	Timeout   time.Duration
}

// RegisterFlags adds the relayd flags, plus --config and --env-file,
// to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file (YAML, JSON or TOML)")
	flags.String("env-file", ".env", "dotenv file loaded into the environment when present")

	flags.String("listen", ":8080", bindingUsage(KeyListen))
	flags.String("network", "testnet", bindingUsage(KeyNetwork))
	flags.String("node-url", "", bindingUsage(KeyNodeURL))
	flags.Uint64("sponsor-fee", 0, bindingUsage(KeySponsorFee))
	flags.Duration("node-timeout", 15*time.Second, bindingUsage(KeyNodeTimeout))
	flags.Int("rate-limit", relay.DefaultRateLimitCapacity, bindingUsage(KeyRateCapacity))
	flags.Duration("rate-window", relay.DefaultRateLimitWindow, bindingUsage(KeyRateWindow))
	flags.String("rate-backend", BackendMemory, bindingUsage(KeyRateBackend))
	flags.String("redis-url", "", bindingUsage(KeyRedisURL))
	flags.String("redis-prefix", "relay:ratelimit:", bindingUsage(KeyRedisPrefix))
	flags.Duration("rate-sweep", 0, bindingUsage(KeyRateSweep))
	flags.String("app-id", "sponsor-relay", bindingUsage(KeyAuditAppID))
	flags.String("audit-sink", "", bindingUsage(KeyAuditSink))
	flags.Int("audit-queue", 1024, bindingUsage(KeyAuditQueue))
	flags.Duration("audit-timeout", 5*time.Second, bindingUsage(KeyAuditTimeout))
	flags.String("log-level", "info", bindingUsage(KeyLogLevel))
	flags.Duration("shutdown-timeout", 10*time.Second, bindingUsage(KeyShutdownPeriod))
}

func bindingUsage(key string) string {
	for _, b := range bindings {
		if b.key == key {
			return fmt.Sprintf("%s (env %s)", b.usage, b.env)
		}
	}
	return ""
}

// defaults mirror the flag defaults so that a config file or the
// environment can supply any value the flags did not.
var defaults = map[string]any{
	KeyListen:         ":8080",
	KeyNetwork:        "testnet",
	KeyNodeURL:        "",
	KeySponsorKey:     "",
	KeySponsorFee:     0,
	KeyNodeTimeout:    15 * time.Second,
	KeyRateCapacity:   relay.DefaultRateLimitCapacity,
	KeyRateWindow:     relay.DefaultRateLimitWindow,
	KeyRateBackend:    BackendMemory,
	KeyRedisURL:       "",
	KeyRedisPrefix:    "relay:ratelimit:",
	KeyRateSweep:      time.Duration(0),
	KeyAuditAppID:     "sponsor-relay",
	KeyAuditSink:      "",
	KeyAuditQueue:     1024,
	KeyAuditTimeout:   5 * time.Second,
	KeyLogLevel:       "info",
	KeyShutdownPeriod: 10 * time.Second,
}

// Load resolves the settings. flags must have been populated by
// RegisterFlags and parsed.
func Load(flags *pflag.FlagSet) (*Settings, error) {
	envFile, _ := flags.GetString("env-file")
	if envFile != "" {
		// Existing environment variables win over the file.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, b := range bindings {
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", b.env, err)
		}
		if b.flag == "" {
			continue
		}
		if f := flags.Lookup(b.flag); f != nil {
			if err := v.BindPFlag(b.key, f); err != nil {
				return nil, fmt.Errorf("bind flag --%s: %w", b.flag, err)
			}
		}
	}

	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Settings, error) {
	networkID := strings.TrimSpace(v.GetString(KeyNetwork))
	s := &Settings{
		Listen:          v.GetString(KeyListen),
		NodeTimeout:     v.GetDuration(KeyNodeTimeout),
		SponsorFee:      v.GetUint64(KeySponsorFee),
		LogLevel:        strings.ToLower(v.GetString(KeyLogLevel)),
		ShutdownTimeout: v.GetDuration(KeyShutdownPeriod),
		Relay: relay.Config{
			SponsorCredential: strings.TrimSpace(v.GetString(KeySponsorKey)),
			NetworkID:         networkID,
			Network:           chain.SelectNetwork(networkID, v.GetString(KeyNodeURL)),
			RateLimit: relay.RateLimitConfig{
				Capacity: v.GetInt(KeyRateCapacity),
				Window:   v.GetDuration(KeyRateWindow),
			},
		},
		RateLimit: RateLimitSettings{
			Backend:       strings.ToLower(v.GetString(KeyRateBackend)),
			RedisURL:      v.GetString(KeyRedisURL),
			RedisPrefix:   v.GetString(KeyRedisPrefix),
			SweepInterval: v.GetDuration(KeyRateSweep),
		},
		Audit: AuditSettings{
			AppID:     v.GetString(KeyAuditAppID),
			Sink:      v.GetString(KeyAuditSink),
			QueueSize: v.GetInt(KeyAuditQueue),
			Timeout:   v.GetDuration(KeyAuditTimeout),
		},
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings for values relayd cannot run with. A
// missing sponsor key is not an error: the relay then answers every
// relay request with a configuration error.
func (s *Settings) Validate() error {
	var errs []error
	if s.Listen == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if s.Relay.RateLimit.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", KeyRateCapacity, s.Relay.RateLimit.Capacity))
	}
	if s.Relay.RateLimit.Window <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %s", KeyRateWindow, s.Relay.RateLimit.Window))
	}
	switch s.RateLimit.Backend {
	case BackendMemory:
	case BackendRedis:
		if s.RateLimit.RedisURL == "" {
			errs = append(errs, fmt.Errorf("%s is required for the redis backend", KeyRedisURL))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown %s %q", KeyRateBackend, s.RateLimit.Backend))
	}
	if s.RateLimit.SweepInterval < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyRateSweep))
	}
	if s.Audit.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", KeyAuditQueue, s.Audit.QueueSize))
	}
	if s.Audit.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyAuditTimeout))
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown %s %q", KeyLogLevel, s.LogLevel))
	}
	return errors.Join(errs...)
}
