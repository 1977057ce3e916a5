// Package main provides a CLI that pre-populates the media duration cache.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/mkrause/retrocast/internal/infra/config"
	"github.com/mkrause/retrocast/internal/infra/logger"
	"github.com/mkrause/retrocast/internal/infra/probe"
	"github.com/mkrause/retrocast/internal/infra/store"
)

var (
	app        = kingpin.New("retrocast-probecache", "Pre-populate the media duration cache")
	configPath = app.Flag("config", "Path to config file").Default("config/retrocast.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	force      = app.Flag("force", "Re-probe files that already have a cached duration").Bool()
)

var mediaExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".m4v": true, ".mpg": true, ".ts": true,
}

func main() {
	_ = godotenv.Load()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.Config{Output: "stdout", Level: level}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Probe cache error: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if err := probe.Available(); err != nil {
		return err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	durations := st.Durations()
	known, err := durations.All(ctx)
	if err != nil {
		return err
	}

	prober := probe.New(cfg.Guide.ProbeTimeout())
	probed, failed, skipped := 0, 0, 0

	for _, dir := range []string{cfg.Media.VideoDir, cfg.Media.MediaDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			zlog.Warn().Err(err).Str("dir", dir).Msg("cannot read media directory")
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !mediaExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			if _, ok := known[e.Name()]; ok && !*force {
				skipped++
				continue
			}
			d, err := prober.Duration(ctx, filepath.Join(dir, e.Name()))
			if err != nil {
				zlog.Warn().Err(err).Str("file", e.Name()).Msg("probe failed")
				failed++
				continue
			}
			if err := durations.Set(ctx, e.Name(), d); err != nil {
				return err
			}
			probed++
		}
	}

	zlog.Info().
		Int("probed", probed).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("duration cache updated")
	return nil
}
