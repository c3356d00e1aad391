// Package config provides configuration management for the Veyra runtime
package config

import (
	"time"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// String returns the string representation of Environment
func (e Environment) String() string {
	return string(e)
}

// IsValid checks if the environment is valid
func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvTesting, EnvStaging, EnvProduction:
		return true
	default:
		return false
	}
}

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	return string(l)
}

// IsValid checks if the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelFatal:
		return true
	default:
		return false
	}
}

// SchedulerMode selects how the actor scheduler discovers pending messages
type SchedulerMode string

const (
	// SchedulerEvent wakes the scheduler on mailbox activity (default)
	SchedulerEvent SchedulerMode = "event"

	// SchedulerPoll scans the actor registry on a fixed interval
	SchedulerPoll SchedulerMode = "poll"
)

// IsValid checks if the scheduler mode is valid
func (m SchedulerMode) IsValid() bool {
	switch m {
	case SchedulerEvent, SchedulerPoll:
		return true
	default:
		return false
	}
}

// Config represents the complete runtime configuration
type Config struct {
	// Runtime-level configuration
	Runtime RuntimeConfig `yaml:"runtime" json:"runtime"`

	// Logging configuration
	Log LogConfig `yaml:"log" json:"log"`

	// Managed heap configuration
	Heap HeapConfig `yaml:"heap" json:"heap"`

	// Actor system configuration
	Actor ActorConfig `yaml:"actor" json:"actor"`

	// Signal graph configuration
	Signal SignalConfig `yaml:"signal" json:"signal"`

	// Custom configurations (for embedder-defined extensions)
	Custom map[string]interface{} `yaml:"custom,omitempty" json:"custom,omitempty"`
}

// RuntimeConfig contains runtime-level configuration
type RuntimeConfig struct {
	// Runtime instance name
	Name string `yaml:"name" json:"name"`

	// Runtime version
	Version string `yaml:"version" json:"version"`

	// Deployment environment
	Environment Environment `yaml:"environment" json:"environment"`

	// Debug mode
	Debug bool `yaml:"debug" json:"debug"`

	// Instance metadata
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	// Log level
	Level LogLevel `yaml:"level" json:"level"`

	// Log format (json, text)
	Format string `yaml:"format" json:"format"`

	// Output destination (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// Fields to include in log output
	Fields map[string]interface{} `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// HeapConfig contains managed heap configuration
type HeapConfig struct {
	// Arena size in bytes
	SizeBytes int64 `yaml:"size_bytes" json:"size_bytes"`

	// Initial capacity of the GC root set
	RootCapacity int `yaml:"root_capacity" json:"root_capacity"`

	// Arena usage fraction that triggers a collection on allocation.
	// Zero collects only on exhaustion.
	GCTriggerRatio float64 `yaml:"gc_trigger_ratio" json:"gc_trigger_ratio"`
}

// ActorConfig contains actor system configuration
type ActorConfig struct {
	// Maximum number of registered actors
	MaxActors int `yaml:"max_actors" json:"max_actors"`

	// Bounded capacity of every actor mailbox
	MailboxSize int `yaml:"mailbox_size" json:"mailbox_size"`

	// Size of the execution worker pool
	WorkerCount int `yaml:"worker_count" json:"worker_count"`

	// Scheduler mode (event, poll)
	SchedulerMode SchedulerMode `yaml:"scheduler_mode" json:"scheduler_mode"`

	// Registry scan period in polling mode
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`

	// Shutdown timeout for in-flight work
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// SignalConfig contains signal graph configuration
type SignalConfig struct {
	// Initial capacity of the signal registry
	RegistryCapacity int `yaml:"registry_capacity" json:"registry_capacity"`
}

// DefaultConfig returns a default configuration mirroring the runtime's
// built-in constants
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Name:        "veyra-runtime",
			Version:     "1.0.0",
			Environment: EnvDevelopment,
			Debug:       true,
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: "text",
			Output: "stdout",
		},
		Heap: HeapConfig{
			SizeBytes:    1 << 20, // 1 MiB
			RootCapacity: 64,
		},
		Actor: ActorConfig{
			MaxActors:       1024,
			MailboxSize:     256,
			WorkerCount:     4,
			SchedulerMode:   SchedulerEvent,
			PollInterval:    time.Millisecond,
			ShutdownTimeout: 10 * time.Second,
		},
		Signal: SignalConfig{
			RegistryCapacity: 64,
		},
		Custom: make(map[string]interface{}),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Runtime.Name == "" {
		return ErrInvalidName
	}
	if !c.Runtime.Environment.IsValid() {
		return ErrInvalidEnvironment
	}

	if !c.Log.Level.IsValid() {
		return ErrInvalidLogLevel
	}

	if c.Heap.SizeBytes <= 0 {
		return ErrInvalidHeapSize
	}
	if c.Heap.GCTriggerRatio < 0 || c.Heap.GCTriggerRatio > 1 {
		return ErrInvalidGCTriggerRatio
	}

	if c.Actor.MaxActors <= 0 {
		return ErrInvalidMaxActors
	}
	if c.Actor.MailboxSize <= 0 {
		return ErrInvalidMailboxSize
	}
	if c.Actor.WorkerCount <= 0 {
		return ErrInvalidWorkerCount
	}
	if !c.Actor.SchedulerMode.IsValid() {
		return ErrInvalidSchedulerMode
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Runtime.Environment == EnvDevelopment
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Runtime.Environment == EnvProduction
}

// IsDebugEnabled returns true if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.Runtime.Debug || c.Runtime.Environment == EnvDevelopment
}
