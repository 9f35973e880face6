package config

import (
	"fmt"
	"slices"

	"github.com/stagekit/stagekit/logger"
)

// Config is the contract Load expects from a service's configuration
// struct. Embedding ServiceConfig satisfies it.
type Config interface {
	GetServiceConfig() *ServiceConfig
	ApplyDefaults()
	Validate() error
}

// Environments accepted by ServiceConfig.Validate.
var knownEnvironments = []string{"development", "staging", "production"}

// ServiceConfig carries the fields every pipeline host shares: identity,
// environment, and logging. Services embed it and add their own sections:
//
//	type workerConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Pipeline pipeline.Config `yaml:"pipeline" mapstructure:"pipeline"`
//	}
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetServiceConfig is promoted through embedding so any struct containing
// a ServiceConfig satisfies Config.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults fills the environment (development when unset, with debug
// on), pushes the service name into the logging section, and defaults the
// logging fields. Embedding structs that override this should call it first.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the shared fields and the logging section. Embedding
// structs that override this should call it first.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	if !slices.Contains(knownEnvironments, c.Environment) {
		return fmt.Errorf("config.environment must be one of %v (got %q)", knownEnvironments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
