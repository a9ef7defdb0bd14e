package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/askdb/internal/logging"
	"github.com/jonathan/askdb/internal/pipeline"
	"github.com/jonathan/askdb/internal/server"
	"github.com/jonathan/askdb/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that answers questions on POST /ask and streams progress on POST /ask/stream.
Bearer authentication is enabled when JWT_SECRET is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to SERVER_PORT or 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("port") {
		flagConfig.ServerPort = servePort
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	jwtConfig, err := cfg.JWT()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, pipeline.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := server.New(server.Config{
		Port:      cfg.ServerPort,
		JWT:       jwtConfig,
		RateLimit: ratelimit.LoadConfig(os.Getenv),
		Logger:    logger,
	}, a.pipeline)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Run(ctx)
}
