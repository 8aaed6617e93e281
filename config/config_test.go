package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/blockberries/relay"
	"github.com/blockberries/relay/chain"
)

func load(t *testing.T, args ...string) (*Settings, error) {
	t.Helper()
	flags := pflag.NewFlagSet("relayd", pflag.ContinueOnError)
	RegisterFlags(flags)
	args = append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...)
	if err := flags.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return Load(flags)
}

func mustLoad(t *testing.T, args ...string) *Settings {
	t.Helper()
	s, err := load(t, args...)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	s := mustLoad(t)

	if s.Listen != ":8080" {
		t.Errorf("Listen = %q", s.Listen)
	}
	if s.Relay.NetworkID != "testnet" || s.Relay.Network != chain.Testnet() {
		t.Errorf("network = %q %+v", s.Relay.NetworkID, s.Relay.Network)
	}
	if s.Relay.Configured() {
		t.Error("configured without a sponsor key")
	}
	want := relay.RateLimitConfig{Capacity: relay.DefaultRateLimitCapacity, Window: relay.DefaultRateLimitWindow}
	if s.Relay.RateLimit != want {
		t.Errorf("RateLimit = %+v", s.Relay.RateLimit)
	}
	if s.RateLimit.Backend != BackendMemory || s.RateLimit.SweepInterval != 0 {
		t.Errorf("RateLimit settings = %+v", s.RateLimit)
	}
	if s.Audit.AppID != "sponsor-relay" || s.Audit.Sink != "" || s.Audit.QueueSize != 1024 || s.Audit.Timeout != 5*time.Second {
		t.Errorf("Audit = %+v", s.Audit)
	}
	if s.SponsorFee != 0 {
		t.Errorf("SponsorFee = %d", s.SponsorFee)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("NETWORK", "mainnet")
	t.Setenv("SPONSOR_PRIVATE_KEY", " 0xabc \n")
	t.Setenv("RELAY_RATE_LIMIT_CAPACITY", "25")
	t.Setenv("RELAY_RATE_LIMIT_WINDOW", "2m")
	t.Setenv("RELAY_NODE_URL", "http://node.internal:3999/")

	s := mustLoad(t)
	if s.Relay.Network.Name != "mainnet" || s.Relay.Network.ChainID != chain.MainnetChainID {
		t.Errorf("Network = %+v", s.Relay.Network)
	}
	if s.Relay.Network.CoreAPIURL != "http://node.internal:3999" {
		t.Errorf("CoreAPIURL = %q", s.Relay.Network.CoreAPIURL)
	}
	if s.Relay.SponsorCredential != "0xabc" {
		t.Errorf("SponsorCredential = %q", s.Relay.SponsorCredential)
	}
	if s.Relay.RateLimit.Capacity != 25 || s.Relay.RateLimit.Window != 2*time.Minute {
		t.Errorf("RateLimit = %+v", s.Relay.RateLimit)
	}
}

func TestLoad_Precedence(t *testing.T) {
	cfgFile := writeFile(t, "relay.yaml", `
listen: ":7000"
network: mainnet
rate_limit:
  capacity: 5
  window: 30s
audit:
  app_id: from-file
`)
	t.Setenv("RELAY_RATE_LIMIT_CAPACITY", "7")
	t.Setenv("RELAY_APP_ID", "from-env")

	s := mustLoad(t, "--config", cfgFile, "--app-id", "from-flag")

	if s.Listen != ":7000" {
		t.Errorf("file value lost: Listen = %q", s.Listen)
	}
	if s.Relay.Network.Name != "mainnet" {
		t.Errorf("file value lost: network = %q", s.Relay.Network.Name)
	}
	if s.Relay.RateLimit.Window != 30*time.Second {
		t.Errorf("file value lost: window = %s", s.Relay.RateLimit.Window)
	}
	if s.Relay.RateLimit.Capacity != 7 {
		t.Errorf("env should beat file: capacity = %d", s.Relay.RateLimit.Capacity)
	}
	if s.Audit.AppID != "from-flag" {
		t.Errorf("flag should beat env: app id = %q", s.Audit.AppID)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := writeFile(t, "relay.env", "RELAY_AUDIT_SINK=logsink:9090\nRELAY_REDIS_PREFIX=from-dotenv:\n")
	t.Setenv("RELAY_REDIS_PREFIX", "from-process:")
	t.Cleanup(func() { os.Unsetenv("RELAY_AUDIT_SINK") })

	flags := pflag.NewFlagSet("relayd", pflag.ContinueOnError)
	RegisterFlags(flags)
	if err := flags.Parse([]string{"--env-file", envFile}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	s, err := Load(flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Audit.Sink != "logsink:9090" {
		t.Errorf("Sink = %q", s.Audit.Sink)
	}
	if s.RateLimit.RedisPrefix != "from-process:" {
		t.Errorf("dotenv overrode the process environment: prefix = %q", s.RateLimit.RedisPrefix)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"zero capacity", []string{"--rate-limit", "0"}, KeyRateCapacity},
		{"zero window", []string{"--rate-window", "0s"}, KeyRateWindow},
		{"unknown backend", []string{"--rate-backend", "memcached"}, KeyRateBackend},
		{"redis without url", []string{"--rate-backend", "redis"}, KeyRedisURL},
		{"queue", []string{"--audit-queue", "0"}, KeyAuditQueue},
		{"log level", []string{"--log-level", "loud"}, KeyLogLevel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(t, tc.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %s", err, tc.want)
			}
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	if _, err := load(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_RedisBackend(t *testing.T) {
	s := mustLoad(t, "--rate-backend", "REDIS", "--redis-url", "redis://localhost:6379/0")
	if s.RateLimit.Backend != BackendRedis || s.RateLimit.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("RateLimit = %+v", s.RateLimit)
	}
}
