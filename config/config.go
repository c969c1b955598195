package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Environment variables that override secrets kept out of config files.
const (
	EnvRPCJWTSecret  = "HUNT_RPC_JWT_SECRET"
	EnvIndexerDSN    = "HUNT_INDEXER_DSN"
	EnvWebhookSecret = "HUNT_WEBHOOK_SECRET"
)

type Config struct {
	ChainID   string    `toml:"ChainID"`
	DataDir   string    `toml:"DataDir"`
	RPC       RPC       `toml:"rpc"`
	Treasure  Treasure  `toml:"treasure"`
	Indexer   Indexer   `toml:"indexer"`
	Exports   Exports   `toml:"exports"`
	Webhook   Webhook   `toml:"webhook"`
	Logging   Logging   `toml:"logging"`
	Telemetry Telemetry `toml:"telemetry"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		ChainID: "treasurehunt-local",
		DataDir: "./hunt-data",
		RPC: RPC{
			ListenAddress:     "127.0.0.1:8545",
			RequestsPerMinute: 600,
			Burst:             60,
			ReadHeaderTimeout: 5,
			ReadTimeout:       15,
			WriteTimeout:      30,
			IdleTimeout:       120,
		},
		Indexer: Indexer{
			Enabled:     true,
			Driver:      "sqlite",
			SyncOnStart: true,
		},
		Exports: Exports{
			IntervalSeconds: 3600,
		},
		Logging: Logging{
			Env:        "dev",
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Telemetry: Telemetry{
			Insecure:    true,
			SampleRatio: 1,
		},
	}
}

// Load loads the configuration from the given path, writing the defaults
// there first when the file does not exist.
func Load(path string) (*Config, error) {
	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg = Default()
		if err := persist(path, cfg); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		cfg = Default()
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	cfg.fillDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvRPCJWTSecret)); v != "" {
		cfg.RPC.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvIndexerDSN)); v != "" {
		cfg.Indexer.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvWebhookSecret)); v != "" {
		cfg.Webhook.Secret = v
	}
}

// fillDerived places unset paths under DataDir.
func (c *Config) fillDerived() {
	if strings.TrimSpace(c.ChainID) == "" {
		c.ChainID = "treasurehunt-local"
	}
	if c.Indexer.DSN == "" && (c.Indexer.Driver == "" || c.Indexer.Driver == "sqlite") {
		c.Indexer.DSN = filepath.Join(c.DataDir, "indexer.db")
	}
	if c.Exports.Dir == "" {
		c.Exports.Dir = filepath.Join(c.DataDir, "exports")
	}
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
