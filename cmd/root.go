// Package cmd provides the mailblocks command-line interface.
//
// Configuration System:
//
//	Settings come from several sources, highest priority first:
//	1. Command-line flags (--config, --port, ...)
//	2. MAILBLOCKS_CONFIG_FILE environment variable, a custom config file path
//	3. Individual environment variables (MAILBLOCKS_CODEC_MAX_DEPTH, ...)
//	4. Configuration file (.mailblocks.yml)
//
// Logs are written to stderr so that stdout carries only markup, JSON or
// YAML and can be piped.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/mailblocks/internal/config"
	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/logging"
	"github.com/conneroisu/mailblocks/internal/markup"
	"github.com/conneroisu/mailblocks/internal/registry"
)

const defaultConfigFile = ".mailblocks.yml"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mailblocks",
	Short: "Convert MJML email documents to and from block trees",
	Long: `mailblocks converts MJML email markup into a typed block tree (JSON or
YAML) and back, validates documents against the MJML component catalog and
resolves the effective attributes of every block.

Quick Start:
  mailblocks new welcome.mjml --template newsletter
  mailblocks decode welcome.mjml > welcome.json
  mailblocks encode welcome.json
  mailblocks validate *.mjml
  mailblocks serve`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .mailblocks.yml, can also use MAILBLOCKS_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error, silent)")
	AddFlagValidation(rootCmd.PersistentFlags(), "config", ValidateFileExists)
	AddFlagValidation(rootCmd.PersistentFlags(), "log-level", ValidateLogLevel)
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig points viper at the config file and the MAILBLOCKS_
// environment. A missing file is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("MAILBLOCKS_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mailblocks")
	}

	viper.SetEnvPrefix("MAILBLOCKS")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func configPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return defaultConfigFile
}

// environment is what every command needs: the loaded configuration, a
// logger and the registry with configured overlays applied.
type environment struct {
	config   *config.Config
	registry *registry.ComponentRegistry
	logger   logging.Logger
}

func loadEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, configError(err)
	}

	lc, err := cfg.Logging.LoggerConfig()
	if err != nil {
		return nil, configError(err)
	}
	logger := logging.NewLogger(lc)

	reg := registry.Default()
	for _, path := range cfg.Components.Overlays {
		n, err := reg.LoadOverlay(path)
		if err != nil {
			return nil, mailerrors.WrapIO(err, path, "failed to load component overlay")
		}
		logger.Debug(ctx, "Loaded component overlay", "path", path, "components", n)
	}

	return &environment{config: cfg, registry: reg, logger: logger}, nil
}

func configError(err error) error {
	suggestions := mailerrors.ConfigurationError(err.Error(), configPath())
	return fmt.Errorf("failed to load configuration: %w\n\n%s", err, mailerrors.FormatSuggestions(suggestions))
}

func (e *environment) codecOptions(extra ...markup.Option) []markup.Option {
	opts := []markup.Option{
		markup.WithRegistry(e.registry),
		markup.WithRootType(e.config.Codec.RootType),
		markup.WithMaxDepth(e.config.Codec.MaxDepth),
		markup.WithMaxNodes(e.config.Codec.MaxNodes),
		markup.WithIndent(e.config.Codec.Indent),
		markup.WithLogger(e.logger),
	}
	return append(opts, extra...)
}

func (e *environment) decoder(extra ...markup.Option) *markup.Decoder {
	return markup.NewDecoder(e.codecOptions(extra...)...)
}

func (e *environment) encoder(extra ...markup.Option) *markup.Encoder {
	return markup.NewEncoder(e.codecOptions(extra...)...)
}

func (e *environment) suggestionContext(inputPath string) *mailerrors.SuggestionContext {
	return &mailerrors.SuggestionContext{
		RootType:   e.config.Codec.RootType,
		KnownTypes: e.registry.Types(),
		ConfigPath: configPath(),
		InputPath:  inputPath,
	}
}

// explain appends suggestions for err, if there are any.
func (e *environment) explain(err error, inputPath string) error {
	hint := mailerrors.FormatSuggestions(mailerrors.Suggestions(err, e.suggestionContext(inputPath)))
	if hint == "" {
		return err
	}
	return fmt.Errorf("%w\n\n%s", err, strings.TrimRight(hint, "\n"))
}
