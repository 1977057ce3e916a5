// Package main provides the playback player entry point.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/mkrause/retrocast/internal/app/command"
	"github.com/mkrause/retrocast/internal/app/library"
	"github.com/mkrause/retrocast/internal/app/player"
	"github.com/mkrause/retrocast/internal/app/sequencer"
	"github.com/mkrause/retrocast/internal/infra/config"
	"github.com/mkrause/retrocast/internal/infra/logger"
	"github.com/mkrause/retrocast/internal/infra/mpv"
	"github.com/mkrause/retrocast/internal/infra/store"
)

var (
	app        = kingpin.New("retrocast-player", "retrocast playback player")
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
		zlog.Error().Msgf("Player error: %v", err)
		os.Exit(1)
	}
}

// run executes the player. Using a separate function ensures defer
// statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	lib := library.New(st, cfg.Media.VideoDir, cfg.Media.MediaDir)

	features, err := lib.FeatureQueue(ctx)
	if err != nil {
		return fmt.Errorf("failed to load feature queue: %w", err)
	}

	// Store settings override config when present.
	adsPerBreak := cfg.Player.AdsPerBreak
	if n, err := st.GetSettingInt(ctx, store.SettingAdsPerBreak); err == nil {
		adsPerBreak = n
	}
	shuffle := cfg.Player.Shuffle
	if b, err := st.GetSettingBool(ctx, store.SettingShuffle); err == nil {
		shuffle = b
	}
	playlist := cfg.Player.FeaturePlaylist
	if v, err := st.GetSetting(ctx, store.SettingFeaturePlaylist); err == nil && v != "" {
		playlist = v
	}

	fillers := lib.FillerSegments(ctx, playlist)
	seq := sequencer.New(fillers, shuffle, nil)

	engine, cleanup, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// The dispatcher stays open for the process lifetime: the stdin reader
	// may still be blocked in a read when playback ends.
	dispatcher := command.NewDispatcher(cfg.Player.Debounce(), 0)
	go readCommands(ctx, dispatcher)

	ctrl := player.New(engine, features, seq, dispatcher.Commands(), player.Config{
		AdsPerBreak:      adsPerBreak,
		PollInterval:     cfg.Player.PollInterval(),
		StartRetryBudget: cfg.Player.StartRetryBudget(),
		BreakSettle:      cfg.Player.BreakSettle(),
		ResumeEpsilonMs:  int64(cfg.Player.ResumeEpsilonMs),
	})

	// Signals cancel the controller context for a clean engine stop.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		zlog.Info().Msg("Received shutdown signal...")
		cancel()
	}()

	zlog.Info().
		Int("features", len(features)).
		Int("fillers", len(fillers)).
		Int("ads_per_break", adsPerBreak).
		Msg("starting playback")

	err = ctrl.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	zlog.Info().Msg("Player stopped")
	return nil
}

// newEngine builds the configured playback engine.
func newEngine(ctx context.Context, cfg *config.Config) (player.Engine, func(), error) {
	switch cfg.Engine.Type {
	case "mpv":
		settings, err := mpv.ParseSettings(cfg.Engine.Settings)
		if err != nil {
			return nil, nil, err
		}
		e, err := mpv.Start(ctx, settings)
		if err != nil {
			return nil, nil, err
		}
		return e, func() { _ = e.Close() }, nil
	default:
		return nil, nil, errors.Newf("unknown engine type: %s", cfg.Engine.Type)
	}
}

// keyBindings maps console input lines to playback commands.
var keyBindings = map[string]command.Command{
	"n": command.NextFiller,
	"p": command.PrevFiller,
	"f": command.NextFeature,
	"b": command.PrevFeature,
	"s": command.ShuffleToggle,
	"r": command.Reshuffle,
	"q": command.Exit,
}

// readCommands feeds console input into the dispatcher until stdin closes
// or the context ends.
func readCommands(ctx context.Context, d *command.Dispatcher) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		key := strings.TrimSpace(strings.ToLower(scanner.Text()))
		cmd, ok := keyBindings[key]
		if !ok {
			continue
		}
		if !d.Offer(cmd) {
			zlog.Debug().Stringer("command", cmd).Msg("command debounced")
		}
	}
}
