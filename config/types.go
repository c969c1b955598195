package config

// RPC configures the JSON-RPC server.
type RPC struct {
	ListenAddress     string `toml:"ListenAddress"`
	JWTSecret         string `toml:"JWTSecret"`
	JWTIssuer         string `toml:"JWTIssuer"`
	JWTAudience       string `toml:"JWTAudience"`
	RequestsPerMinute uint32 `toml:"RequestsPerMinute"`
	Burst             uint32 `toml:"Burst"`
	ReadHeaderTimeout int    `toml:"ReadHeaderTimeout"`
	ReadTimeout       int    `toml:"ReadTimeout"`
	WriteTimeout      int    `toml:"WriteTimeout"`
	IdleTimeout       int    `toml:"IdleTimeout"`
}

// AuthEnabled reports whether write methods demand a bearer token.
func (r RPC) AuthEnabled() bool { return r.JWTSecret != "" }

// Treasure holds runtime knobs of the treasure program.
type Treasure struct {
	// ProximityRadiusMeters enables the claim distance check when positive.
	ProximityRadiusMeters float64 `toml:"ProximityRadiusMeters"`
}

// Indexer configures the leaderboard projection.
type Indexer struct {
	Enabled     bool   `toml:"Enabled"`
	Driver      string `toml:"Driver"`
	DSN         string `toml:"DSN"`
	SyncOnStart bool   `toml:"SyncOnStart"`
}

// Exports configures periodic discovery snapshots.
type Exports struct {
	Enabled         bool   `toml:"Enabled"`
	Dir             string `toml:"Dir"`
	IntervalSeconds int    `toml:"IntervalSeconds"`
}

// Webhook configures signed delivery of discoveries and snapshots.
type Webhook struct {
	URL    string `toml:"URL"`
	Secret string `toml:"Secret"`
}

// Logging configures structured logs.
type Logging struct {
	Env        string `toml:"Env"`
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures OTLP export of traces and metrics.
type Telemetry struct {
	Enabled     bool    `toml:"Enabled"`
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers"`
	SampleRatio float64 `toml:"SampleRatio"`
}
