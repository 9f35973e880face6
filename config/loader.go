package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/stagekit/stagekit/logger"
)

// FileSystem abstracts the file probes the loader performs so tests can
// substitute an in-memory layout.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem is the FileSystem backed by the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// ResolvedFiles holds the config and env file paths a Resolver settled on.
// Either field may be empty when nothing was found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolver locates config.yml and .env files for a named service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolveFiles returns the explicit paths from opts when set, otherwise
// probes the conventional locations relative to the working directory.
func (r *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile}
	if files.ConfigFile == "" {
		files.ConfigFile = r.firstExisting(configSearchPaths(serviceName))
	}
	if files.EnvFile == "" {
		files.EnvFile = r.firstExisting(envSearchPaths(serviceName))
	}
	return files
}

func (r *Resolver) firstExisting(paths []string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

// configSearchPaths lists candidate config files, most specific first:
// a service-named file under config/, then the generic config.yml, each
// checked in the working directory and one level up.
func configSearchPaths(serviceName string) []string {
	return []string{
		fmt.Sprintf("./config/%s.yml", serviceName),
		fmt.Sprintf("../config/%s.yml", serviceName),
		"./config/config.yml",
		"../config/config.yml",
		"./config.yml",
		"../config.yml",
	}
}

// envSearchPaths lists candidate env files. A service-scoped .env.<name>
// beats the plain .env at every location.
func envSearchPaths(serviceName string) []string {
	names := []string{".env." + serviceName, ".env"}
	dirs := []string{".", "config", "..", "../.."}

	paths := make([]string, 0, len(names)*len(dirs))
	for _, name := range names {
		for _, dir := range dirs {
			if dir == "." {
				paths = append(paths, name)
				continue
			}
			paths = append(paths, dir+"/"+name)
		}
	}
	return paths
}

// LoaderConfig collects the loader's dependencies and file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// LoaderOption customizes a LoadConfig call.
type LoaderOption func(*LoaderConfig)

// WithFileSystem substitutes the filesystem used for probing and env loading.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile pins the config file path, skipping the search.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile pins the .env file path, skipping the search.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig resolves the service's config sources and unmarshals them
// into cfg. Precedence, lowest to highest: YAML file, process environment,
// .env file. A missing config file is not an error; a service can run on
// environment variables alone.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = OSFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	return unmarshalFiles(serviceName, cfg, resolver.ResolveFiles(serviceName, lc), lc.FileSystem)
}

// Load is LoadConfig plus the lifecycle the Config interface promises:
// the service name defaults from the argument, then ApplyDefaults and
// Validate run on the populated struct.
func Load(serviceName string, cfg Config, opts ...LoaderOption) error {
	if err := LoadConfig(serviceName, cfg, opts...); err != nil {
		return err
	}
	if sc := cfg.GetServiceConfig(); sc.Name == "" {
		sc.Name = serviceName
	}
	cfg.ApplyDefaults()
	return cfg.Validate()
}

func unmarshalFiles(serviceName string, cfg any, files ResolvedFiles, fs FileSystem) error {
	v := viper.New()

	if files.ConfigFile != "" && fs.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("skipping unreadable config file", logger.Fields(
				"file", files.ConfigFile, logger.FieldError, err.Error()))
		}
	}

	v.AutomaticEnv()
	bindProcessEnv(v)

	if files.EnvFile != "" && fs.Exists(files.EnvFile) {
		if err := fs.LoadEnv(files.EnvFile); err != nil {
			logger.Warn("skipping unreadable .env file", logger.Fields(
				"file", files.EnvFile, logger.FieldError, err.Error()))
		} else {
			// .env entries landed in the process environment; bind again
			// so they override the earlier pass.
			bindProcessEnv(v)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config for %s: %w", serviceName, err)
	}
	return nil
}

// bindProcessEnv sets every environment variable on v under each key
// spelling it could correspond to, so nested struct fields pick it up
// without explicit BindEnv calls per field.
func bindProcessEnv(v *viper.Viper) {
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		for _, variant := range envKeyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants expands an UPPER_SNAKE env name into the viper key
// spellings it may address. Underscores are ambiguous: they separate
// nesting levels and also appear inside field names, so every split
// point is offered.
//
//	PIPELINE_WORKERS  -> pipeline_workers, pipeline.workers
//	LOGGING_NO_COLOR  -> logging_no_color, logging.no.color, logging.no_color
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) == 1 {
		return []string{lower}
	}

	seen := make(map[string]bool, len(parts)+2)
	variants := make([]string, 0, len(parts)+2)
	add := func(key string) {
		if !seen[key] {
			seen[key] = true
			variants = append(variants, key)
		}
	}

	add(lower)
	add(strings.ReplaceAll(lower, "_", "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
	}
	return variants
}
