// Package config provides a builder pattern for creating configurations
// with progressive complexity and clear separation of concerns.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ConfigBuilder provides a fluent interface for building configurations
// with progressive complexity tiers.
//
// Usage:
//
//	config, err := NewConfigBuilder().
//	    WithBasicSettings().
//	    WithDevelopmentMode().
//	    Build()
type ConfigBuilder struct {
	config     *Config
	validators []ValidatorFunc
	tier       ConfigTier
}

// ConfigTier represents the complexity level of configuration.
type ConfigTier int

const (
	TierBasic ConfigTier = iota
	TierDevelopment
	TierProduction
)

// ValidatorFunc represents a configuration validation function.
type ValidatorFunc func(*Config) error

// NewConfigBuilder creates a new configuration builder with sensible defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config:     &Config{},
		validators: []ValidatorFunc{},
		tier:       TierBasic,
	}
}

// WithBasicSettings applies the minimum settings needed to run the
// orchestrator against a single handler tree.
func (cb *ConfigBuilder) WithBasicSettings() *ConfigBuilder {
	cb.tier = TierBasic
	cb.config.Server = ServerConfig{
		Port:        8350,
		Host:        "localhost",
		Environment: "development",
	}
	cb.config.Handlers = HandlersConfig{AppPath: "."}
	cb.config.Build = BuildConfig{
		Ignore:   []string{"node_modules", ".git"},
		CacheDir: ".rebuildctl/cache",
	}
	return cb
}

// WithDevelopmentMode turns on the lint and type-check coordinators, which
// a production one-shot build may want to skip.
func (cb *ConfigBuilder) WithDevelopmentMode() *ConfigBuilder {
	if cb.tier < TierDevelopment {
		cb.tier = TierDevelopment
	}
	cb.config.Lint.Enabled = true
	cb.config.TypeCheck.Enabled = true
	return cb
}

// WithProductionOptimizations disables the checkers and fixes builder
// concurrency to the host's full CPU count, for a one-shot CI build.
func (cb *ConfigBuilder) WithProductionOptimizations() *ConfigBuilder {
	if cb.tier < TierProduction {
		cb.tier = TierProduction
	}
	cb.config.Lint.Enabled = false
	cb.config.TypeCheck.Enabled = false
	return cb
}

// WithCustomServer overrides the status server's bind address.
func (cb *ConfigBuilder) WithCustomServer(port int, host string) *ConfigBuilder {
	cb.config.Server.Port = port
	cb.config.Server.Host = host
	cb.addValidator(validateServerConfig(&cb.config.Server))
	return cb
}

// WithAppPath sets the directory the handler list is loaded from.
func (cb *ConfigBuilder) WithAppPath(path string) *ConfigBuilder {
	cb.config.Handlers.AppPath = path
	return cb
}

// WithEnvironment applies environment-specific overrides.
func (cb *ConfigBuilder) WithEnvironment(env string) *ConfigBuilder {
	switch env {
	case "development":
		cb.WithDevelopmentMode()
		cb.config.Server.Environment = "development"
	case "production":
		cb.WithProductionOptimizations()
		cb.config.Server.Environment = "production"
	}
	return cb
}

// FromViper loads settings from the already-bound viper configuration.
func (cb *ConfigBuilder) FromViper() *ConfigBuilder {
	var viperConfig Config
	if err := viper.Unmarshal(&viperConfig); err == nil {
		cb.mergeViperConfig(&viperConfig)
	}
	return cb
}

// AddValidator adds a custom validation function.
func (cb *ConfigBuilder) AddValidator(validator ValidatorFunc) *ConfigBuilder {
	cb.validators = append(cb.validators, validator)
	return cb
}

// Build runs all validators plus the default validation and returns the
// final configuration.
func (cb *ConfigBuilder) Build() (*Config, error) {
	applyDefaults(cb.config)

	for _, validator := range cb.validators {
		if err := validator(cb.config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	if err := validateConfig(cb.config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cb.config, nil
}

// GetTier returns the current configuration tier.
func (cb *ConfigBuilder) GetTier() ConfigTier {
	return cb.tier
}

func (cb *ConfigBuilder) addValidator(err error) {
	if err != nil {
		cb.validators = append(cb.validators, func(*Config) error {
			return err
		})
	}
}

func (cb *ConfigBuilder) mergeViperConfig(viperConfig *Config) {
	if viperConfig.Server.Port != 0 {
		cb.config.Server.Port = viperConfig.Server.Port
	}
	if viperConfig.Server.Host != "" {
		cb.config.Server.Host = viperConfig.Server.Host
	}
	if viperConfig.Handlers.AppPath != "" {
		cb.config.Handlers.AppPath = viperConfig.Handlers.AppPath
	}
}
