package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryanchriswhite/livewindow/internal/api"
	"github.com/bryanchriswhite/livewindow/internal/capture"
	"github.com/bryanchriswhite/livewindow/internal/config"
	"github.com/bryanchriswhite/livewindow/internal/host"
	"github.com/bryanchriswhite/livewindow/internal/logger"
	"github.com/bryanchriswhite/livewindow/internal/output"
	"github.com/bryanchriswhite/livewindow/internal/window"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start capturing and streaming",
	Long: `Start the frame loop, the MJPEG stream and the HTTP API.

Every configured source is ticked once per frame. Live window sources find
their window, follow it, and are composed into the active scene.`,
	Example: `  # Start server on default port (8080)
  livewindow serve

  # Start server on custom port
  livewindow serve --port 9090

  # Start with specific config file
  livewindow serve --config /path/to/config.yaml

  # Start with debug logging
  livewindow serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}
	cfg := configMgr.Get()

	// Flags override the file for this run only
	if port := viper.GetInt("server_port"); port > 0 {
		cfg.ServerPort = port
	}
	if level := viper.GetString("log_level"); level != "" {
		cfg.LogLevel = level
	}
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("serve")

	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	sys, err := window.NewX11System()
	if err != nil {
		return fmt.Errorf("failed to connect to X11: %w", err)
	}
	defer sys.Close()

	capturer, err := capture.NewX11Capturer()
	if err != nil {
		return fmt.Errorf("failed to initialize capture: %w", err)
	}
	defer capturer.Close()

	stream := output.NewMJPEGOutput(output.Config{
		Width:   cfg.Canvas.Width,
		Height:  cfg.Canvas.Height,
		FPS:     cfg.Canvas.FPS,
		Quality: cfg.Canvas.Quality,
	})

	h := host.New(host.Deps{System: sys, Capture: capturer, Output: stream}, cfg.Canvas)
	if err := h.Apply(cfg); err != nil {
		return fmt.Errorf("failed to apply configuration: %w", err)
	}
	defer h.Close()

	server := api.NewServer(sys, configMgr, h, stream)
	go func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("stream", fmt.Sprintf("http://localhost:%d/", cfg.ServerPort)).
		Str("api", fmt.Sprintf("http://localhost:%d/api", cfg.ServerPort)).
		Msg("livewindow is running, press Ctrl+C to stop")

	if err := h.Run(ctx); err != nil {
		return err
	}

	log.Info().Msg("Shutting down gracefully")
	return nil
}
