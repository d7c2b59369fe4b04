package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/conneroisu/mailblocks/internal/logging"
	"github.com/conneroisu/mailblocks/internal/registry"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string      `yaml:"field"`
	Value       interface{} `yaml:"value,omitempty"`
	Message     string      `yaml:"message"`
	Suggestions []string    `yaml:"suggestions,omitempty"`
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool              `yaml:"valid"`
	Errors   []ValidationError `yaml:"errors"`
	Warnings []ValidationError `yaml:"warnings"`
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

func (vr *ValidationResult) addError(field string, value interface{}, message string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

func (vr *ValidationResult) addWarning(field string, value interface{}, message string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("❌ Validation Errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("⚠️  Validation Warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

// ValidateConfigWithDetails performs validation with detailed feedback. The
// registry is used to warn about defaults declared for unknown block types;
// nil means the built-in catalog.
func ValidateConfigWithDetails(config *Config, reg *registry.ComponentRegistry) *ValidationResult {
	if reg == nil {
		reg = registry.Default()
	}
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateCodecConfigDetails(&config.Codec, result)
	validateDefaultsConfigDetails(&config.Defaults, reg, result)
	validateComponentsConfigDetails(&config.Components, result)
	validateFilterConfigDetails(config, result)
	validateServerConfigDetails(&config.Server, result)
	validateWatchConfigDetails(&config.Watch, result)
	validateLoggingConfigDetails(&config.Logging, result)

	result.Valid = !result.HasErrors()

	return result
}

func validateCodecConfigDetails(config *CodecConfig, result *ValidationResult) {
	if !typeNamePattern.MatchString(config.RootType) {
		result.addError("codec.root_type", config.RootType, "not a valid block type",
			"Use 'mjml' for standard documents",
			"Type names are lower-case letters, digits and hyphens")
	}
	if config.MaxDepth < 1 {
		result.addError("codec.max_depth", config.MaxDepth, "must be positive")
	} else if config.MaxDepth > 1000 {
		result.addWarning("codec.max_depth", config.MaxDepth, "very deep documents are unusual for email",
			"The default of 100 covers real-world templates")
	}
	if config.MaxNodes < 1 {
		result.addError("codec.max_nodes", config.MaxNodes, "must be positive")
	}
	if strings.Trim(config.Indent, " \t") != "" {
		result.addError("codec.indent", config.Indent, "may only contain spaces and tabs")
	}
}

func validateDefaultsConfigDetails(config *DefaultsConfig, reg *registry.ComponentRegistry, result *ValidationResult) {
	if _, err := toAttributes(config.All); err != nil {
		result.addError("defaults.all", nil, err.Error(),
			"Attribute values must be strings, numbers or booleans")
	}
	for blockType, attrs := range config.Types {
		field := "defaults.types." + blockType
		if _, err := toAttributes(attrs); err != nil {
			result.addError(field, nil, err.Error(),
				"Attribute values must be strings, numbers or booleans")
		}
		if !reg.IsKnown(blockType) {
			result.addWarning(field, blockType, "defaults declared for an unknown block type",
				"Check the spelling against 'mailblocks components'",
				"Register custom types with a components overlay")
		}
	}
}

func validateComponentsConfigDetails(config *ComponentsConfig, result *ValidationResult) {
	for _, path := range config.Overlays {
		if err := validatePath(path); err != nil {
			result.addError("components.overlays", path, err.Error())
			continue
		}
		if !pathExists(path) {
			result.addWarning("components.overlays", path, "overlay file does not exist",
				"Create the file or remove it from the list")
		} else if ext := strings.ToLower(filepath.Ext(path)); ext != ".yml" && ext != ".yaml" {
			result.addWarning("components.overlays", path, "overlays are read as YAML")
		}
	}
}

func validateFilterConfigDetails(config *Config, result *ValidationResult) {
	if config.Sanitize.Policy != PolicyStrict && config.Sanitize.Policy != PolicyUGC {
		result.addError("sanitize.policy", config.Sanitize.Policy, "unknown policy",
			"Use 'ugc' to keep common formatting markup",
			"Use 'strict' to strip all markup")
	}
	if config.Sanitize.Enabled && config.Sanitize.Policy == PolicyStrict {
		result.addWarning("sanitize.policy", config.Sanitize.Policy,
			"the strict policy removes all formatting from text and button content")
	}
	if config.Minify.Enabled && !config.Minify.CSS && !config.Minify.HTML {
		result.addWarning("minify", nil, "minify is enabled but both css and html are off")
	}
}

func validateServerConfigDetails(config *ServerConfig, result *ValidationResult) {
	if config.Port < 0 || config.Port > 65535 {
		result.addError("server.port", config.Port,
			fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			"Use a port between 1024-65535 for non-privileged access",
			"Port 0 allows system to assign an available port")
	} else if config.Port > 0 && config.Port < 1024 {
		result.addWarning("server.port", config.Port, "port below 1024 requires elevated privileges",
			"Consider using a port above 1024 for development")
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.addError("server.host", config.Host, err.Error(),
				"Use 'localhost' for local development",
				"Use '0.0.0.0' to bind to all interfaces")
		}
	}

	for _, origin := range config.AllowedOrigins {
		if origin == "*" {
			result.addWarning("server.allowed_origins", origin, "any origin may open a websocket",
				"List the exact origins of your tools instead")
		}
	}
}

func validateWatchConfigDetails(config *WatchConfig, result *ValidationResult) {
	for _, path := range config.Paths {
		if err := validatePath(path); err != nil {
			result.addError("watch.paths", path, err.Error())
		} else if !pathExists(path) {
			result.addWarning("watch.paths", path, "watch path does not exist")
		}
	}
	for _, pattern := range config.Patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			result.addError("watch.patterns", pattern, "malformed glob pattern")
		}
	}
	if config.Debounce < 0 {
		result.addError("watch.debounce", config.Debounce.String(), "cannot be negative")
	}
}

func validateLoggingConfigDetails(config *LoggingConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.addError("logging.level", config.Level, err.Error())
	}
	if config.Format != "text" && config.Format != "json" {
		result.addError("logging.format", config.Format, "unknown format",
			"Use 'text' for terminals and 'json' for log collectors")
	}
}

// Helper validation functions

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func validateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
