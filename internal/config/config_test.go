package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mailblocks/internal/logging"
	"github.com/conneroisu/mailblocks/internal/registry"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()

	config, err := Load()
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "mjml", config.Codec.RootType)
	assert.Equal(t, 100, config.Codec.MaxDepth)
	assert.Equal(t, 10000, config.Codec.MaxNodes)
	assert.Equal(t, "  ", config.Codec.Indent)
	assert.False(t, config.Sanitize.Enabled)
	assert.Equal(t, PolicyUGC, config.Sanitize.Policy)
	assert.False(t, config.Minify.Enabled)
	assert.True(t, config.Minify.CSS)
	assert.True(t, config.Minify.HTML)
	assert.Equal(t, "localhost:8080", config.Server.Addr())
	assert.Equal(t, []string{"."}, config.Watch.Paths)
	assert.Equal(t, []string{"*.mjml"}, config.Watch.Patterns)
	assert.Equal(t, 300*time.Millisecond, config.Watch.Debounce)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
	assert.Empty(t, config.TargetFiles)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, c *Config)
	}{
		{
			name: "explicit values",
			setup: func() {
				viper.Set("codec.max_depth", 20)
				viper.Set("codec.indent", "\t")
				viper.Set("sanitize.enabled", true)
				viper.Set("sanitize.policy", "strict")
				viper.Set("minify.enabled", true)
				viper.Set("minify.css", false)
				viper.Set("server.port", 0)
				viper.Set("watch.debounce", "1s")
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 20, c.Codec.MaxDepth)
				assert.Equal(t, "\t", c.Codec.Indent)
				assert.True(t, c.Sanitize.Enabled)
				assert.Equal(t, PolicyStrict, c.Sanitize.Policy)
				assert.True(t, c.Minify.Enabled)
				assert.False(t, c.Minify.CSS)
				assert.True(t, c.Minify.HTML)
				assert.Equal(t, 0, c.Server.Port)
				assert.Equal(t, time.Second, c.Watch.Debounce)
			},
		},
		{
			name: "log level falls back to the flag",
			setup: func() {
				viper.Set("log-level", "debug")
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "debug", c.Logging.Level)
			},
		},
		{
			name:        "unparseable port",
			setup:       func() { viper.Set("server.port", "invalid_port") },
			expectError: true,
		},
		{
			name:        "port out of range",
			setup:       func() { viper.Set("server.port", 70000) },
			expectError: true,
		},
		{
			name:        "dangerous host",
			setup:       func() { viper.Set("server.host", "localhost;rm") },
			expectError: true,
		},
		{
			name:        "unknown sanitize policy",
			setup:       func() { viper.Set("sanitize.policy", "loose") },
			expectError: true,
		},
		{
			name:        "invalid root type",
			setup:       func() { viper.Set("codec.root_type", "Bad Type") },
			expectError: true,
		},
		{
			name:        "negative depth",
			setup:       func() { viper.Set("codec.max_depth", -1) },
			expectError: true,
		},
		{
			name:        "indent with text",
			setup:       func() { viper.Set("codec.indent", "xx") },
			expectError: true,
		},
		{
			name:        "traversal in watch path",
			setup:       func() { viper.Set("watch.paths", []string{"../outside"}) },
			expectError: true,
		},
		{
			name:        "unknown log format",
			setup:       func() { viper.Set("logging.format", "xml") },
			expectError: true,
		},
		{
			name:        "unknown log level",
			setup:       func() { viper.Set("logging.level", "loud") },
			expectError: true,
		},
		{
			name: "nested default value",
			setup: func() {
				viper.Set("defaults.all", map[string]interface{}{"padding": []interface{}{1, 2}})
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			tt.setup()

			config, err := Load()

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, config)
				return
			}
			require.NoError(t, err)
			tt.check(t, config)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".mailblocks.yml")
	content := `
codec:
  max_nodes: 500
defaults:
  all:
    font-family: Arial
  types:
    mj-text:
      font-size: 14px
      line-height: 1.5
    mj-button:
      inner-padding: 8px
components:
  overlays:
    - custom.yml
watch:
  patterns: ["*.mjml", "*.xml"]
logging:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	viper.Reset()
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 500, config.Codec.MaxNodes)
	assert.Equal(t, []string{"custom.yml"}, config.Components.Overlays)
	assert.Equal(t, []string{"*.mjml", "*.xml"}, config.Watch.Patterns)
	assert.Equal(t, "json", config.Logging.Format)

	text, err := config.Defaults.For("mj-text")
	require.NoError(t, err)
	assert.Equal(t, []string{"fontFamily", "fontSize", "lineHeight"}, text.Keys())
	v, _ := text.Get("lineHeight")
	assert.Equal(t, "1.5", v.Text())

	image, err := config.Defaults.For("mj-image")
	require.NoError(t, err)
	assert.Equal(t, []string{"fontFamily"}, image.Keys())

	button, err := config.Defaults.For("MJ-BUTTON")
	require.NoError(t, err)
	assert.True(t, button.Has("innerPadding"))
}

func TestLoadWithEnvironment(t *testing.T) {
	t.Setenv("MAILBLOCKS_SERVER_PORT", "9999")
	t.Setenv("MAILBLOCKS_CODEC_MAX_DEPTH", "12")

	viper.Reset()
	viper.SetEnvPrefix("MAILBLOCKS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	require.NoError(t, viper.BindEnv("server.port"))
	require.NoError(t, viper.BindEnv("codec.max_depth"))

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, 12, config.Codec.MaxDepth)
}

func TestLoggerConfig(t *testing.T) {
	lc, err := LoggingConfig{Level: "warn", Format: "json"}.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelWarn, lc.Level)
	assert.Equal(t, "json", lc.Format)

	_, err = LoggingConfig{Level: "nope"}.LoggerConfig()
	assert.Error(t, err)
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, validatePath("templates/welcome.mjml"))
	assert.NoError(t, validatePath("/abs/path"))
	assert.Error(t, validatePath(""))
	assert.Error(t, validatePath("../etc"))
	assert.Error(t, validatePath("a;b"))
	assert.Error(t, validatePath("$(whoami)"))
}

func TestValidateConfigWithDetails(t *testing.T) {
	viper.Reset()
	config, err := Load()
	require.NoError(t, err)

	result := ValidateConfigWithDetails(config, nil)
	assert.True(t, result.Valid)
	assert.False(t, result.HasErrors())
	assert.False(t, result.HasWarnings())
	assert.Empty(t, result.String())

	config.Server.Port = 80
	config.Server.AllowedOrigins = []string{"*"}
	config.Defaults.Types = map[string]map[string]interface{}{"x-card": {"color": "red"}}
	config.Components.Overlays = []string{"missing-overlay.yml"}
	config.Minify.Enabled = true
	config.Minify.CSS = false
	config.Minify.HTML = false

	result = ValidateConfigWithDetails(config, registry.Default())
	assert.True(t, result.Valid)
	fields := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		fields = append(fields, w.Field)
	}
	assert.ElementsMatch(t, []string{
		"server.port",
		"server.allowed_origins",
		"defaults.types.x-card",
		"components.overlays",
		"minify",
	}, fields)
	assert.Contains(t, result.String(), "Validation Warnings")

	config.Watch.Patterns = []string{"[unclosed"}
	config.Logging.Format = "xml"
	config.Codec.MaxNodes = 0

	result = ValidateConfigWithDetails(config, nil)
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 3)
	assert.Contains(t, result.String(), "Validation Errors")
	assert.Equal(t, "validation error in codec.max_nodes: must be positive", result.Errors[0].Error())
}
