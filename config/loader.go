// Package config provides configuration loading and parsing functionality
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFormat represents the configuration file format
type ConfigFormat string

const (
	FormatYAML ConfigFormat = "yaml"
	FormatJSON ConfigFormat = "json"
)

// Loader handles configuration loading from various sources
type Loader struct {
	// Configuration search paths
	searchPaths []string

	// Environment variable prefix
	envPrefix string

	// Default configuration
	defaultConfig *Config
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		searchPaths: []string{
			".",
			"./config",
			"./configs",
			"/etc/veyra",
			os.Getenv("HOME") + "/.veyra",
		},
		envPrefix:     "VEYRA",
		defaultConfig: DefaultConfig(),
	}
}

// SetSearchPaths sets the configuration file search paths
func (l *Loader) SetSearchPaths(paths []string) *Loader {
	l.searchPaths = paths
	return l
}

// SetEnvPrefix sets the environment variable prefix
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// SetDefaultConfig sets the default configuration
func (l *Loader) SetDefaultConfig(config *Config) *Loader {
	l.defaultConfig = config
	return l
}

// LoadFromFile loads configuration from a specific file
func (l *Loader) LoadFromFile(filename string) (*Config, error) {
	return l.loadFromFile(filename)
}

// LoadFromReader loads configuration from an io.Reader
func (l *Loader) LoadFromReader(reader io.Reader, format ConfigFormat) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration data: %w", err)
	}

	return l.parseConfig(data, format)
}

// AutoLoad automatically discovers and loads configuration
func (l *Loader) AutoLoad() (*Config, error) {
	configFile, _, err := l.findConfigFile()
	if err != nil {
		// If no config file found, use default config plus env overrides
		if err == ErrConfigFileNotFound {
			config := l.defaultConfig
			if config == nil {
				config = DefaultConfig()
			}

			if err := l.loadFromEnv(config); err != nil {
				return nil, fmt.Errorf("failed to load config from environment: %w", err)
			}
			if err := config.Validate(); err != nil {
				return nil, fmt.Errorf("configuration validation failed: %w", err)
			}
			return config, nil
		}
		return nil, err
	}

	return l.loadFromFile(configFile)
}

// findConfigFile searches for configuration files in search paths
func (l *Loader) findConfigFile() (string, ConfigFormat, error) {
	filenames := []string{
		"veyra.yaml", "veyra.yml",
		"config.yaml", "config.yml",
		"veyra.json", "config.json",
	}

	for _, searchPath := range l.searchPaths {
		for _, filename := range filenames {
			fullPath := filepath.Join(searchPath, filename)
			if _, err := os.Stat(fullPath); err == nil {
				ext := strings.ToLower(filepath.Ext(filename))
				var format ConfigFormat
				switch ext {
				case ".yaml", ".yml":
					format = FormatYAML
				case ".json":
					format = FormatJSON
				default:
					continue
				}
				return fullPath, format, nil
			}
		}
	}

	return "", "", ErrConfigFileNotFound
}

// loadFromFile loads configuration from a file
func (l *Loader) loadFromFile(filename string) (*Config, error) {
	// Determine format from extension
	ext := strings.ToLower(filepath.Ext(filename))
	var format ConfigFormat
	switch ext {
	case ".yaml", ".yml":
		format = FormatYAML
	case ".json":
		format = FormatJSON
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, err
	}

	// Merge with default config to fill missing fields
	defaultConfig := l.defaultConfig
	if defaultConfig == nil {
		defaultConfig = DefaultConfig()
	}
	config = l.mergeConfig(defaultConfig, config)

	// Override with environment variables
	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// parseConfig parses configuration data based on format
func (l *Loader) parseConfig(data []byte, format ConfigFormat) (*Config, error) {
	config := &Config{}

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}

	return config, nil
}

// loadFromEnv loads configuration overrides from environment variables
func (l *Loader) loadFromEnv(config *Config) error {
	// Runtime configuration
	if val := os.Getenv(l.envPrefix + "_RUNTIME_NAME"); val != "" {
		config.Runtime.Name = val
	}
	if val := os.Getenv(l.envPrefix + "_RUNTIME_VERSION"); val != "" {
		config.Runtime.Version = val
	}
	if val := os.Getenv(l.envPrefix + "_RUNTIME_ENVIRONMENT"); val != "" {
		config.Runtime.Environment = Environment(val)
	}
	if val := os.Getenv(l.envPrefix + "_RUNTIME_DEBUG"); val != "" {
		config.Runtime.Debug = strings.ToLower(val) == "true"
	}

	// Log configuration
	if val := os.Getenv(l.envPrefix + "_LOG_LEVEL"); val != "" {
		config.Log.Level = LogLevel(val)
	}
	if val := os.Getenv(l.envPrefix + "_LOG_FORMAT"); val != "" {
		config.Log.Format = val
	}
	if val := os.Getenv(l.envPrefix + "_LOG_OUTPUT"); val != "" {
		config.Log.Output = val
	}

	// Heap configuration
	if val := os.Getenv(l.envPrefix + "_HEAP_SIZE_BYTES"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.Heap.SizeBytes = n
		}
	}
	if val := os.Getenv(l.envPrefix + "_HEAP_ROOT_CAPACITY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Heap.RootCapacity = n
		}
	}
	if val := os.Getenv(l.envPrefix + "_HEAP_GC_TRIGGER_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			config.Heap.GCTriggerRatio = f
		}
	}

	// Actor configuration
	if val := os.Getenv(l.envPrefix + "_ACTOR_MAX_ACTORS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Actor.MaxActors = n
		}
	}
	if val := os.Getenv(l.envPrefix + "_ACTOR_MAILBOX_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Actor.MailboxSize = n
		}
	}
	if val := os.Getenv(l.envPrefix + "_ACTOR_WORKER_COUNT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Actor.WorkerCount = n
		}
	}
	if val := os.Getenv(l.envPrefix + "_ACTOR_SCHEDULER_MODE"); val != "" {
		config.Actor.SchedulerMode = SchedulerMode(val)
	}
	if val := os.Getenv(l.envPrefix + "_ACTOR_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.Actor.PollInterval = d
		}
	}

	// Signal configuration
	if val := os.Getenv(l.envPrefix + "_SIGNAL_REGISTRY_CAPACITY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Signal.RegistryCapacity = n
		}
	}

	return nil
}

// mergeConfig merges user config with default config
func (l *Loader) mergeConfig(defaultConfig, userConfig *Config) *Config {
	// Start with default config
	merged := *defaultConfig

	// Runtime config
	if userConfig.Runtime.Name != "" {
		merged.Runtime.Name = userConfig.Runtime.Name
	}
	if userConfig.Runtime.Version != "" {
		merged.Runtime.Version = userConfig.Runtime.Version
	}
	if userConfig.Runtime.Environment != "" {
		merged.Runtime.Environment = userConfig.Runtime.Environment
	}
	merged.Runtime.Debug = userConfig.Runtime.Debug
	if userConfig.Runtime.Metadata != nil {
		merged.Runtime.Metadata = userConfig.Runtime.Metadata
	}

	// Log config
	if userConfig.Log.Level != "" {
		merged.Log.Level = userConfig.Log.Level
	}
	if userConfig.Log.Format != "" {
		merged.Log.Format = userConfig.Log.Format
	}
	if userConfig.Log.Output != "" {
		merged.Log.Output = userConfig.Log.Output
	}
	if userConfig.Log.Fields != nil {
		merged.Log.Fields = userConfig.Log.Fields
	}

	// Heap config
	if userConfig.Heap.SizeBytes != 0 {
		merged.Heap.SizeBytes = userConfig.Heap.SizeBytes
	}
	if userConfig.Heap.RootCapacity != 0 {
		merged.Heap.RootCapacity = userConfig.Heap.RootCapacity
	}
	if userConfig.Heap.GCTriggerRatio != 0 {
		merged.Heap.GCTriggerRatio = userConfig.Heap.GCTriggerRatio
	}

	// Actor config
	if userConfig.Actor.MaxActors != 0 {
		merged.Actor.MaxActors = userConfig.Actor.MaxActors
	}
	if userConfig.Actor.MailboxSize != 0 {
		merged.Actor.MailboxSize = userConfig.Actor.MailboxSize
	}
	if userConfig.Actor.WorkerCount != 0 {
		merged.Actor.WorkerCount = userConfig.Actor.WorkerCount
	}
	if userConfig.Actor.SchedulerMode != "" {
		merged.Actor.SchedulerMode = userConfig.Actor.SchedulerMode
	}
	if userConfig.Actor.PollInterval != 0 {
		merged.Actor.PollInterval = userConfig.Actor.PollInterval
	}
	if userConfig.Actor.ShutdownTimeout != 0 {
		merged.Actor.ShutdownTimeout = userConfig.Actor.ShutdownTimeout
	}

	// Signal config
	if userConfig.Signal.RegistryCapacity != 0 {
		merged.Signal.RegistryCapacity = userConfig.Signal.RegistryCapacity
	}

	// Custom fields
	if userConfig.Custom != nil {
		if merged.Custom == nil {
			merged.Custom = make(map[string]interface{})
		}
		for k, v := range userConfig.Custom {
			merged.Custom[k] = v
		}
	}

	return &merged
}
