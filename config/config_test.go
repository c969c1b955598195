package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultsOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "treasurehunt-local", cfg.ChainID)
	require.Equal(t, "127.0.0.1:8545", cfg.RPC.ListenAddress)
	require.True(t, cfg.Indexer.Enabled)
	require.Equal(t, filepath.Join(cfg.DataDir, "indexer.db"), cfg.Indexer.DSN)
	require.Zero(t, cfg.Treasure.ProximityRadiusMeters)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "[rpc]")
	require.NotContains(t, string(data), "indexer.db", "derived paths are not persisted")

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `ChainID = "hunt-test"
DataDir = "/var/lib/hunt"

[rpc]
ListenAddress = "0.0.0.0:9000"
RequestsPerMinute = 120
Burst = 10

[treasure]
ProximityRadiusMeters = 250.5

[indexer]
Enabled = true
Driver = "postgres"
DSN = "postgres://hunt@localhost/hunt"

[exports]
Enabled = true
IntervalSeconds = 900

[webhook]
URL = "https://hooks.example.com/hunt"
Secret = "hook-secret"

[logging]
Env = "prod"
File = "/var/log/huntd.log"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "hunt-test", cfg.ChainID)
	require.Equal(t, "0.0.0.0:9000", cfg.RPC.ListenAddress)
	require.Equal(t, uint32(120), cfg.RPC.RequestsPerMinute)
	require.Equal(t, 30, cfg.RPC.WriteTimeout, "unset keys keep defaults")
	require.Equal(t, 250.5, cfg.Treasure.ProximityRadiusMeters)
	require.Equal(t, "postgres", cfg.Indexer.Driver)
	require.Equal(t, filepath.Join("/var/lib/hunt", "exports"), cfg.Exports.Dir)
	require.Equal(t, "prod", cfg.Logging.Env)
	require.False(t, cfg.RPC.AuthEnabled())
}

func TestEnvOverridesSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv(EnvRPCJWTSecret, "0123456789abcdef-secret")
	t.Setenv(EnvWebhookSecret, "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0123456789abcdef-secret", cfg.RPC.JWTSecret)
	require.True(t, cfg.RPC.AuthEnabled())
	require.Equal(t, "from-env", cfg.Webhook.Secret)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(data), "0123456789abcdef-secret"), "env secrets must not be written to disk")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"negative radius", func(c *Config) { c.Treasure.ProximityRadiusMeters = -1 }, "ProximityRadiusMeters"},
		{"short jwt secret", func(c *Config) { c.RPC.JWTSecret = "short" }, "JWTSecret"},
		{"unknown driver", func(c *Config) { c.Indexer.Driver = "mysql" }, "unsupported"},
		{"exports without indexer", func(c *Config) {
			c.Exports.Enabled = true
			c.Indexer.Enabled = false
		}, "require the indexer"},
		{"exports too frequent", func(c *Config) {
			c.Exports.Enabled = true
			c.Exports.IntervalSeconds = 5
		}, "IntervalSeconds"},
		{"webhook without secret", func(c *Config) { c.Webhook.URL = "https://example.com" }, "Secret"},
		{"webhook bad scheme", func(c *Config) {
			c.Webhook.URL = "ftp://example.com"
			c.Webhook.Secret = "x"
		}, "http(s)"},
		{"telemetry without endpoint", func(c *Config) { c.Telemetry.Enabled = true }, "Endpoint"},
		{"burst missing", func(c *Config) { c.RPC.Burst = 0 }, "Burst"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.fillDerived()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.want == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}
