package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"
)

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if strings.TrimSpace(c.RPC.ListenAddress) == "" {
		return fmt.Errorf("config: rpc.ListenAddress required")
	}
	if c.RPC.JWTSecret != "" && len(c.RPC.JWTSecret) < 16 {
		return fmt.Errorf("config: rpc.JWTSecret must be at least 16 bytes")
	}
	if c.RPC.RequestsPerMinute > 0 && c.RPC.Burst == 0 {
		return fmt.Errorf("config: rpc.Burst must be positive when rate limiting")
	}
	for name, v := range map[string]int{
		"ReadHeaderTimeout": c.RPC.ReadHeaderTimeout,
		"ReadTimeout":       c.RPC.ReadTimeout,
		"WriteTimeout":      c.RPC.WriteTimeout,
		"IdleTimeout":       c.RPC.IdleTimeout,
	} {
		if v < 0 {
			return fmt.Errorf("config: rpc.%s must not be negative", name)
		}
	}
	r := c.Treasure.ProximityRadiusMeters
	if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return fmt.Errorf("config: treasure.ProximityRadiusMeters must be a non-negative number")
	}
	if c.Indexer.Enabled {
		switch c.Indexer.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("config: indexer.Driver %q unsupported", c.Indexer.Driver)
		}
		if strings.TrimSpace(c.Indexer.DSN) == "" {
			return fmt.Errorf("config: indexer.DSN required")
		}
	}
	if c.Exports.Enabled {
		if !c.Indexer.Enabled {
			return fmt.Errorf("config: exports require the indexer")
		}
		if c.Exports.IntervalSeconds < 60 {
			return fmt.Errorf("config: exports.IntervalSeconds must be at least 60")
		}
	}
	if c.Webhook.URL != "" {
		u, err := url.Parse(c.Webhook.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: webhook.URL must be an http(s) URL")
		}
		if c.Webhook.Secret == "" {
			return fmt.Errorf("config: webhook.Secret required with webhook.URL")
		}
	}
	if c.Telemetry.Enabled && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("config: telemetry.Endpoint required when enabled")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("config: telemetry.SampleRatio must be within [0,1]")
	}
	return nil
}
