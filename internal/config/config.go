// Package config provides configuration management for mailblocks using
// Viper for loading from files, environment variables, and command-line
// flags.
//
// Configuration comes from .mailblocks.yml, MAILBLOCKS_ prefixed
// environment variables (MAILBLOCKS_CODEC_MAX_DEPTH, ...) and flags bound by
// the CLI. It covers the codec limits, document-level attribute defaults,
// component overlays, import sanitizing, export minification, the
// development server, the file watcher and logging.
package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/mailblocks/internal/logging"
	"github.com/conneroisu/mailblocks/internal/markup"
	"github.com/conneroisu/mailblocks/internal/registry"
	"github.com/conneroisu/mailblocks/internal/types"
)

type Config struct {
	Codec       CodecConfig      `yaml:"codec"      mapstructure:"codec"`
	Defaults    DefaultsConfig   `yaml:"defaults"   mapstructure:"defaults"`
	Components  ComponentsConfig `yaml:"components" mapstructure:"components"`
	Sanitize    SanitizeConfig   `yaml:"sanitize"   mapstructure:"sanitize"`
	Minify      MinifyConfig     `yaml:"minify"     mapstructure:"minify"`
	Server      ServerConfig     `yaml:"server"     mapstructure:"server"`
	Watch       WatchConfig      `yaml:"watch"      mapstructure:"watch"`
	Logging     LoggingConfig    `yaml:"logging"    mapstructure:"logging"`
	TargetFiles []string         `yaml:"-"          mapstructure:"-"` // CLI arguments, not from config file
}

type CodecConfig struct {
	RootType string `yaml:"root_type" mapstructure:"root_type"`
	MaxDepth int    `yaml:"max_depth" mapstructure:"max_depth"`
	MaxNodes int    `yaml:"max_nodes" mapstructure:"max_nodes"`
	Indent   string `yaml:"indent"    mapstructure:"indent"`
}

// DefaultsConfig holds document-level attribute defaults. Attribute names
// are written in kebab-case, as in markup, because configuration keys are
// case-insensitive.
type DefaultsConfig struct {
	All   map[string]interface{}            `yaml:"all"   mapstructure:"all"`
	Types map[string]map[string]interface{} `yaml:"types" mapstructure:"types"`
}

type ComponentsConfig struct {
	Overlays []string `yaml:"overlays" mapstructure:"overlays"`
}

type SanitizeConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Policy  string `yaml:"policy"  mapstructure:"policy"`
}

type MinifyConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	CSS     bool `yaml:"css"     mapstructure:"css"`
	HTML    bool `yaml:"html"    mapstructure:"html"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"            mapstructure:"port"`
	Host           string   `yaml:"host"            mapstructure:"host"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

type WatchConfig struct {
	Paths    []string      `yaml:"paths"    mapstructure:"paths"`
	Patterns []string      `yaml:"patterns" mapstructure:"patterns"`
	Ignore   []string      `yaml:"ignore"   mapstructure:"ignore"`
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"  mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Sanitize policies.
const (
	PolicyStrict = "strict"
	PolicyUGC    = "ugc"
)

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Codec
	if config.Codec.RootType == "" {
		config.Codec.RootType = registry.RootType
	}
	if config.Codec.MaxDepth == 0 {
		config.Codec.MaxDepth = markup.DefaultMaxDepth
	}
	if config.Codec.MaxNodes == 0 {
		config.Codec.MaxNodes = markup.DefaultMaxNodes
	}
	if !viper.IsSet("codec.indent") {
		config.Codec.Indent = "  "
	}

	// Import and export filters
	if config.Sanitize.Policy == "" {
		config.Sanitize.Policy = PolicyUGC
	}
	if !viper.IsSet("minify.css") {
		config.Minify.CSS = true
	}
	if !viper.IsSet("minify.html") {
		config.Minify.HTML = true
	}

	// Server
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if !viper.IsSet("server.port") {
		config.Server.Port = 8080
	}

	// Watch (workaround for viper slice handling of comma separated env values)
	if viper.IsSet("watch.paths") && len(config.Watch.Paths) == 0 {
		config.Watch.Paths = viper.GetStringSlice("watch.paths")
	}
	if len(config.Watch.Paths) == 0 {
		config.Watch.Paths = []string{"."}
	}
	if len(config.Watch.Patterns) == 0 {
		config.Watch.Patterns = []string{"*.mjml"}
	}
	if len(config.Watch.Ignore) == 0 {
		config.Watch.Ignore = []string{"node_modules", ".git"}
	}
	if config.Watch.Debounce == 0 {
		config.Watch.Debounce = 300 * time.Millisecond
	}

	// Logging
	if config.Logging.Level == "" {
		config.Logging.Level = viper.GetString("log-level")
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// For returns the configured defaults for blockType: the "all" set
// overridden by the set for the type. Names are converted to camel-case.
func (d DefaultsConfig) For(blockType string) (types.Attributes, error) {
	all, err := toAttributes(d.All)
	if err != nil {
		return types.Attributes{}, fmt.Errorf("defaults.all: %w", err)
	}
	typed, err := toAttributes(d.Types[strings.ToLower(blockType)])
	if err != nil {
		return types.Attributes{}, fmt.Errorf("defaults.types.%s: %w", blockType, err)
	}
	return all.Merge(typed), nil
}

func toAttributes(m map[string]interface{}) (types.Attributes, error) {
	camel := make(map[string]interface{}, len(m))
	for k, v := range m {
		camel[markup.KebabToCamel(k)] = v
	}
	return types.AttributesFromMap(camel)
}

// LoggerConfig converts the logging section for logging.NewLogger.
func (c LoggingConfig) LoggerConfig() (*logging.LoggerConfig, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = c.Format
	return lc, nil
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var typeNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateCodecConfig(&config.Codec); err != nil {
		return fmt.Errorf("codec config: %w", err)
	}

	if _, err := config.Defaults.For(""); err != nil {
		return err
	}
	for blockType := range config.Defaults.Types {
		if _, err := config.Defaults.For(blockType); err != nil {
			return err
		}
	}

	for _, path := range config.Components.Overlays {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("components config: invalid overlay '%s': %w", path, err)
		}
	}

	if config.Sanitize.Policy != PolicyStrict && config.Sanitize.Policy != PolicyUGC {
		return fmt.Errorf("sanitize config: unknown policy %q (use %s or %s)",
			config.Sanitize.Policy, PolicyStrict, PolicyUGC)
	}

	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	for _, path := range config.Watch.Paths {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("watch config: invalid path '%s': %w", path, err)
		}
	}
	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch config: debounce cannot be negative")
	}

	if _, err := logging.ParseLevel(config.Logging.Level); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if config.Logging.Format != "text" && config.Logging.Format != "json" {
		return fmt.Errorf("logging config: unknown format %q", config.Logging.Format)
	}

	return nil
}

func validateCodecConfig(config *CodecConfig) error {
	if !typeNamePattern.MatchString(config.RootType) {
		return fmt.Errorf("root_type %q is not a valid block type", config.RootType)
	}
	if config.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be positive, got %d", config.MaxDepth)
	}
	if config.MaxNodes < 1 {
		return fmt.Errorf("max_nodes must be positive, got %d", config.MaxNodes)
	}
	if strings.Trim(config.Indent, " \t") != "" {
		return fmt.Errorf("indent may only contain spaces and tabs")
	}
	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
