// Package config provides configuration loading and validation for
// stagekit pipeline hosts.
//
// It uses Viper to load configuration from YAML files and environment
// variables, with .env support via godotenv. Environment variables
// override file values using underscore-separated paths
// (e.g., LOGGING_LEVEL, PIPELINE_WORKERS).
//
// # Usage
//
//	type WorkerConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Pipeline pipeline.Config `yaml:"pipeline" mapstructure:"pipeline"`
//	}
//
//	var cfg WorkerConfig
//	err := config.Load("image-worker", &cfg)
package config
