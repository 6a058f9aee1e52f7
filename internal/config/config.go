// Package config loads tetralog's runtime configuration.
//
// Loading goes through github.com/USA-RedDragon/configulator, exactly as
// DMRHub's cmd/root.go wires it: a *Config is pulled out of a cobra command's
// context, validated, and handed to every component at construction time.
// There is no package-global singleton.
package config

import "time"

// FeederConfig is one statically configured UDP audio sink (spec §6.5,
// media_manager.feeders.*). Feeders are never created or destroyed at
// runtime; this list is the entire feeder arena.
type FeederConfig struct {
	Stream string     `yaml:"stream"`
	IP     string     `yaml:"ip"`
	Port   int        `yaml:"port"`
	Kind   FeederKind `yaml:"kind"`
}

// CollectorConfig binds the UDP socket the vendor log server writes to.
type CollectorConfig struct {
	Bind string `yaml:"bind" default:"127.0.0.1"`
	Port int    `yaml:"port" default:"4321"`
}

// MediaConfig configures the Call Registry and Media Router (C3/C4).
type MediaConfig struct {
	Feeders              []FeederConfig `yaml:"feeders"`
	Subscriptions        []string       `yaml:"subscriptions" default:"[\"S_\",\"V_\"]"`
	CallInactivityPeriod time.Duration  `yaml:"call_inactivity_period" default:"300s"`
	MaintenanceFrequency time.Duration  `yaml:"maintenance_frequency" default:"60s"`
	StreamEndpoint       string         `yaml:"stream_endpoint" default:"http://127.0.0.1:8854"`
}

// ControlConfig binds the Control API (C5).
type ControlConfig struct {
	Bind  string `yaml:"bind" default:"127.0.0.1"`
	Port  int    `yaml:"port" default:"7655"`
	Debug bool   `yaml:"debug" default:"false"`
	// Secret derives per-call stream-URL tokens (pbkdf2), mirroring the
	// teacher's own Config.Secret used for password hashing.
	Secret string `yaml:"secret"`
	// CORSHosts is the allow-list for the control console's browser origin.
	CORSHosts []string `yaml:"cors_hosts"`
	// TrustedProxies is forwarded to gin's SetTrustedProxies.
	TrustedProxies []string `yaml:"trusted_proxies"`
	// RateLimitPerSecond bounds requests per client IP.
	RateLimitPerSecond int `yaml:"rate_limit_per_second" default:"10"`
}

// RedisConfig, when Enabled, switches the Broker to the distributed backend.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" default:"false"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
}

// PersistenceConfig is the signaling/voice sink collaborator (out of core
// scope per spec §1, wired here as a real subscriber).
type PersistenceConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	DSN     string `yaml:"dsn" default:"tetralog.sqlite3"`
}

// TraceConfig is the JSON event trace collaborator.
type TraceConfig struct {
	Enabled           bool   `yaml:"enabled" default:"true"`
	Path              string `yaml:"path" default:"tetralog-trace.jsonl"`
	WebsocketBind     string `yaml:"websocket_bind" default:""`
	RotateMaxBytes    int64  `yaml:"rotate_max_bytes" default:"104857600"`
}

// MetricsConfig exposes Prometheus gauges/counters on their own port.
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled" default:"true"`
	Bind         string `yaml:"bind" default:"127.0.0.1"`
	Port         int    `yaml:"port" default:"9655"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// PProfConfig exposes Go's runtime profiler, same shape as DMRHub's.
type PProfConfig struct {
	Enabled        bool     `yaml:"enabled" default:"false"`
	Bind           string   `yaml:"bind" default:"127.0.0.1"`
	Port           int      `yaml:"port" default:"6655"`
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// Config is the root configuration object loaded by configulator.
type Config struct {
	LogLevel    LogLevel          `yaml:"log_level" default:"info"`
	Collector   CollectorConfig   `yaml:"collector"`
	Media       MediaConfig       `yaml:"media_manager"`
	Control     ControlConfig     `yaml:"control"`
	Redis       RedisConfig       `yaml:"redis"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Trace       TraceConfig       `yaml:"trace"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	PProf       PProfConfig       `yaml:"pprof"`
}
