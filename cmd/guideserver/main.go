// Package main provides the guide server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mkrause/retrocast/internal/api"
	"github.com/mkrause/retrocast/internal/app/guide"
	"github.com/mkrause/retrocast/internal/app/library"
	"github.com/mkrause/retrocast/internal/infra/config"
	"github.com/mkrause/retrocast/internal/infra/logger"
	"github.com/mkrause/retrocast/internal/infra/probe"
	"github.com/mkrause/retrocast/internal/infra/store"
)

const refreshInterval = time.Hour

var (
	app        = kingpin.New("retrocast-guide", "retrocast guide and media server")
	configPath = app.Flag("config", "Path to config file").Default("config/retrocast.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Guide server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	var prober guide.Prober
	if err := probe.Available(); err != nil {
		zlog.Warn().Msg("ffprobe not found, unprobed durations fall back")
	} else {
		prober = probe.New(cfg.Guide.ProbeTimeout())
	}

	projector := guide.New(st.Durations(), prober, guide.Config{
		Horizon:  cfg.Guide.Horizon(),
		Fallback: cfg.Guide.FallbackDuration(),
	})
	lib := library.New(st, cfg.Media.VideoDir, cfg.Media.MediaDir)
	srv := api.New(lib, projector, cfg.Guide.BaseURL, cfg.Media.VideoDir, cfg.Media.MediaDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First projection before accepting traffic; failure is not fatal,
	// guide endpoints reply 503 until a refresh succeeds.
	if err := srv.Refresh(ctx); err != nil {
		zlog.Error().Err(err).Msg("initial guide build failed")
	}

	server := &http.Server{
		Addr:    cfg.Guide.Addr,
		Handler: h2c.NewHandler(srv.Router(), &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting guide server: addr=%s", cfg.Guide.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Periodic re-projection keeps the rolling horizon fresh.
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := srv.Refresh(ctx); err != nil {
					zlog.Error().Err(err).Msg("periodic guide refresh failed")
				}
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Guide server stopped")
	return nil
}
