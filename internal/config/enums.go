package config

// LogLevel selects the verbosity of the structured logger.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// FeederKind is the audio layout a feeder accepts.
type FeederKind string

const (
	// FeederMono carries a single A-law channel (simplex/group calls).
	FeederMono FeederKind = "M"
	// FeederStereo carries an interleaved two-channel A-law stream (duplex calls).
	FeederStereo FeederKind = "S"
)
