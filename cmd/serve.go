package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/mailblocks/internal/server"
)

var serveNoWatch bool

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the development server",
	Long: `Start an HTTP server exposing the codec:

  POST /api/encode     block tree JSON to markup
  POST /api/decode     markup to block tree JSON with validation problems
  POST /api/resolve    effective attributes of a block
  POST /api/preview    plain text, outline and links
  GET  /api/components component catalog
  GET  /ws             decode results of watched files as they change

Examples:
  mailblocks serve
  mailblocks serve --port 9000 --no-watch`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not watch watch.paths for changes")
	AddFlagValidation(serveCmd.Flags(), "port", ValidatePort)

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}

	srv, err := server.New(env.config, env.registry, env.logger, server.WithWatch(!serveNoWatch))
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}
