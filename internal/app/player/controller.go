package player

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/mkrause/retrocast/internal/app/command"
	"github.com/mkrause/retrocast/internal/app/sequencer"
)

// Defaults for controller configuration.
const (
	DefaultPollInterval     = 200 * time.Millisecond
	DefaultStartRetryBudget = 2 * time.Second
	DefaultBreakSettle      = 250 * time.Millisecond
	DefaultResumeEpsilonMs  = 50
)

// startConfirmStep is the interval between engine-state checks while
// waiting for the engine to confirm playback.
const startConfirmStep = 100 * time.Millisecond

// Config holds controller configuration.
type Config struct {
	AdsPerBreak      int           // Fillers played per break
	PollInterval     time.Duration // Position sampling interval; bounds break-trigger lateness
	StartRetryBudget time.Duration // How long to wait for the engine to report playing
	BreakSettle      time.Duration // Settle pause after a break fires, before swapping media
	ResumeEpsilonMs  int64         // Nudge past the saved position when resuming
}

func (c Config) withDefaults() Config {
	if c.AdsPerBreak < 0 {
		c.AdsPerBreak = 0
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.StartRetryBudget <= 0 {
		c.StartRetryBudget = DefaultStartRetryBudget
	}
	if c.BreakSettle < 0 {
		c.BreakSettle = DefaultBreakSettle
	}
	if c.ResumeEpsilonMs <= 0 {
		c.ResumeEpsilonMs = DefaultResumeEpsilonMs
	}
	return c
}

// Controller is the central playback state machine. It owns the engine
// handle exclusively: every engine call happens inside Run's goroutine,
// and the only path in from outside is the command channel.
type Controller struct {
	engine   Engine
	features []Feature
	seq      *sequencer.Sequencer
	commands <-chan command.Command
	cfg      Config
	sess     *Session

	// Injectable for tests.
	fileOK func(string) bool
	sleep  func(time.Duration)

	runErr error
}

// New creates a controller over the given feature queue and filler
// sequencer. The engine handle must not be used by any other goroutine
// once Run has been called.
func New(engine Engine, features []Feature, seq *sequencer.Sequencer, commands <-chan command.Command, cfg Config) *Controller {
	return &Controller{
		engine:   engine,
		features: features,
		seq:      seq,
		commands: commands,
		cfg:      cfg.withDefaults(),
		sess:     NewSession(),
		fileOK: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
		sleep: time.Sleep,
	}
}

// Run drives the state machine until the session stops. It returns nil on
// an explicit exit, ErrNoPlayableFeature when the queue is exhausted, or
// the context error on cancellation.
func (c *Controller) Run(ctx context.Context) error {
	if len(c.features) == 0 {
		c.sess.State = StateStopped
		return errors.Wrap(ErrNoPlayableFeature, "feature queue is empty")
	}

	zlog.Info().
		Str("session_id", c.sess.ID).
		Int("features", len(c.features)).
		Int("fillers", c.seq.Len()).
		Int("ads_per_break", c.cfg.AdsPerBreak).
		Msg("playback session starting")

	if !c.startFirstFeature(ctx) {
		c.sess.State = StateStopped
		return ErrNoPlayableFeature
	}

	for {
		select {
		case <-ctx.Done():
			_ = c.engine.Stop()
			c.sess.State = StateStopped
			return ctx.Err()
		case cmd, ok := <-c.commands:
			if !ok {
				// Producer went away; keep polling without a command source.
				c.commands = nil
				continue
			}
			c.handleCommand(ctx, cmd)
		case <-time.After(c.cfg.PollInterval):
		}

		if c.sess.State == StateStopped {
			return c.runErr
		}

		switch c.sess.State {
		case StateMovie:
			c.tickMovie(ctx)
		case StateAds:
			c.beginNextFiller(ctx)
		case StateAdsPlaying:
			c.tickFiller()
		case StateStopped:
		}

		if c.sess.State == StateStopped {
			return c.runErr
		}
	}
}

// handleCommand applies a command in the current state. Commands that do
// not apply to the current state are ignored, never queued.
func (c *Controller) handleCommand(ctx context.Context, cmd command.Command) {
	zlog.Debug().Stringer("command", cmd).Stringer("state", c.sess.State).Msg("handling command")

	switch cmd {
	case command.Exit:
		zlog.Info().Msg("exit requested")
		_ = c.engine.Stop()
		c.sess.State = StateStopped

	case command.ShuffleToggle:
		on := c.seq.ToggleShuffle()
		zlog.Info().Bool("shuffle", on).Msg("shuffle toggled")

	case command.Reshuffle:
		c.seq.Reshuffle()
		zlog.Info().Msg("filler order reshuffled")

	case command.NextFiller:
		if c.sess.State == StateAdsPlaying {
			_ = c.engine.Stop()
			c.consumeFillerSlot()
			zlog.Info().Msg("skipped to next filler")
		}

	case command.PrevFiller:
		if c.sess.State == StateAdsPlaying {
			_ = c.engine.Stop()
			c.seq.StepPrev()
			c.sess.State = StateAds
			zlog.Info().Msg("went back to previous filler")
		}

	case command.NextFeature:
		c.jumpFeature(ctx, +1)

	case command.PrevFeature:
		c.jumpFeature(ctx, -1)
	}
}

func (c *Controller) jumpFeature(ctx context.Context, step int) {
	_ = c.engine.Stop()
	if c.advanceFeature(ctx, step) {
		c.sess.State = StateMovie
		return
	}
	c.stopExhausted()
}

// tickMovie samples the engine position once and applies, in order: the
// configured end-of-window check, the break-crossing check, and the
// natural end-of-media check (only when no window end is configured).
func (c *Controller) tickMovie(ctx context.Context) {
	feat := c.features[c.sess.FeatureIndex]

	pos, err := c.engine.PositionMs()
	if err != nil {
		zlog.Debug().Err(err).Msg("position sample failed, skipping tick")
	} else {
		if feat.Window.EndMs != nil && pos >= *feat.Window.EndMs {
			zlog.Info().Int64("position_ms", pos).Msg("reached configured feature end, advancing")
			c.advanceOrStop(ctx)
			return
		}

		// Break-crossing detection: a single forward-only cursor, so a
		// consumed break point is never evaluated again.
		if c.sess.BreakCursor < len(feat.Breaks) && pos >= feat.Breaks[c.sess.BreakCursor] {
			c.sess.ResumeMs = pos
			c.sess.BreakCursor++
			_ = c.engine.Pause()
			// Settle before swapping media so we do not race the engine's
			// own state reporting.
			c.sleep(c.cfg.BreakSettle)
			c.sess.AdsRemaining = c.cfg.AdsPerBreak
			c.sess.State = StateAds
			zlog.Info().
				Int64("position_ms", pos).
				Int("break", c.sess.BreakCursor).
				Int("fillers", c.sess.AdsRemaining).
				Msg("break fired")
			return
		}
	}

	if feat.Window.EndMs == nil && c.engine.State().Terminal() {
		zlog.Info().Msg("feature ended naturally, advancing")
		c.advanceOrStop(ctx)
	}
}

// beginNextFiller starts the next filler of the active break, or resumes
// the feature once the break's filler budget is spent or no fillers exist.
func (c *Controller) beginNextFiller(ctx context.Context) {
	if c.sess.AdsRemaining <= 0 {
		c.resumeFeature(ctx)
		return
	}
	if c.seq.Len() == 0 {
		zlog.Warn().Msg("no fillers available, skipping break")
		c.sess.AdsRemaining = 0
		c.resumeFeature(ctx)
		return
	}

	seg, ok := c.seq.Current()
	if !ok {
		c.resumeFeature(ctx)
		return
	}

	if !c.fileOK(seg.Ref) {
		zlog.Warn().Str("ref", seg.Ref).Msg("filler media missing, skipping")
		c.consumeFillerSlot()
		return
	}

	_ = c.engine.Stop()
	if err := c.engine.Load(seg.Ref); err != nil {
		zlog.Warn().Err(err).Str("ref", seg.Ref).Msg("filler failed to load, skipping")
		c.consumeFillerSlot()
		return
	}
	if err := c.startAndWait(ctx, "filler"); err != nil {
		zlog.Warn().Err(err).Str("ref", seg.Ref).Msg("filler failed to start, skipping")
		c.consumeFillerSlot()
		return
	}

	zlog.Info().
		Str("ref", filepath.Base(seg.Ref)).
		Int("remaining", c.sess.AdsRemaining).
		Msg("playing filler")
	c.sess.State = StateAdsPlaying
}

// tickFiller waits for the playing filler to finish. Commands are still
// drained by Run's select between ticks, so exit/skip/shuffle stay
// responsive mid-filler.
func (c *Controller) tickFiller() {
	if c.engine.State().Terminal() {
		c.consumeFillerSlot()
	}
}

// consumeFillerSlot accounts for one filler of the active break, whether
// it played to completion, was skipped, or failed. AdsRemaining decreases
// exactly once per slot and never goes negative.
func (c *Controller) consumeFillerSlot() {
	c.seq.StepNext()
	if c.sess.AdsRemaining > 0 {
		c.sess.AdsRemaining--
	}
	c.sess.State = StateAds
}

// resumeFeature swaps the engine back to the feature after a break. When
// the computed resume target is at or past the configured end, the
// feature is not resumed; the controller advances instead.
func (c *Controller) resumeFeature(ctx context.Context) {
	feat := c.features[c.sess.FeatureIndex]

	resume := c.sess.ResumeMs + c.cfg.ResumeEpsilonMs
	if resume < feat.Window.StartMs {
		resume = feat.Window.StartMs
	}
	if feat.Window.EndMs != nil && resume >= *feat.Window.EndMs {
		zlog.Info().
			Int64("resume_ms", resume).
			Int64("end_ms", *feat.Window.EndMs).
			Msg("break ended past feature end, advancing")
		c.advanceOrStop(ctx)
		return
	}

	_ = c.engine.Stop()
	if err := c.engine.Load(feat.Ref); err != nil {
		zlog.Warn().Err(err).Msg("feature failed to reload after break")
		c.advanceOrStop(ctx)
		return
	}
	if err := c.startAndWait(ctx, "feature resume"); err != nil {
		zlog.Warn().Err(err).Msg("feature failed to restart after break")
		c.advanceOrStop(ctx)
		return
	}
	_ = c.engine.Seek(resume)
	c.sess.State = StateMovie
	zlog.Info().Int64("resume_ms", resume).Msg("feature resumed")
}

func (c *Controller) advanceOrStop(ctx context.Context) {
	if c.advanceFeature(ctx, +1) {
		c.sess.State = StateMovie
		return
	}
	c.stopExhausted()
}

// advanceFeature steps through the queue (wrapping) until a feature
// starts, trying each candidate at most once.
func (c *Controller) advanceFeature(ctx context.Context, step int) bool {
	n := len(c.features)
	for tries := 0; tries < n; tries++ {
		c.sess.FeatureIndex = ((c.sess.FeatureIndex+step)%n + n) % n
		if c.tryStartFeature(ctx) {
			return true
		}
	}
	return false
}

// startFirstFeature starts the first playable feature, trying at most
// once around the full queue.
func (c *Controller) startFirstFeature(ctx context.Context) bool {
	for tries := 0; tries < len(c.features); tries++ {
		c.sess.FeatureIndex = tries
		if c.tryStartFeature(ctx) {
			return true
		}
	}
	return false
}

// tryStartFeature loads and starts the feature at the current index. Any
// failure (missing file, load error, start timeout) counts as a load
// failure and returns false.
func (c *Controller) tryStartFeature(ctx context.Context) bool {
	feat := c.features[c.sess.FeatureIndex]

	if !c.fileOK(feat.Ref) {
		zlog.Warn().Str("ref", feat.Ref).Msg("feature media missing, skipping")
		return false
	}

	c.sess.BreakCursor = 0
	c.sess.ResumeMs = 0

	_ = c.engine.Stop()
	if err := c.engine.Load(feat.Ref); err != nil {
		zlog.Warn().Err(err).Str("ref", feat.Ref).Msg("feature failed to load, skipping")
		return false
	}
	if err := c.startAndWait(ctx, "feature"); err != nil {
		zlog.Warn().Err(err).Str("ref", feat.Ref).Msg("feature failed to start, skipping")
		return false
	}
	if feat.Window.StartMs > 0 {
		_ = c.engine.Seek(feat.Window.StartMs)
	}

	zlog.Info().
		Str("title", feat.Title).
		Int64("start_ms", feat.Window.StartMs).
		Int("breaks", len(feat.Breaks)).
		Msg("now playing feature")
	return true
}

// startAndWait starts playback and waits for the engine to report
// playing, bounded by the start-retry budget. Exceeding the budget is a
// definitive failure, never an indefinite hang.
func (c *Controller) startAndWait(ctx context.Context, label string) error {
	if err := c.engine.Play(); err != nil {
		return errors.Wrapf(err, "%s: play", label)
	}

	deadline := time.Now().Add(c.cfg.StartRetryBudget)
	step := startConfirmStep
	if c.cfg.StartRetryBudget < step {
		step = c.cfg.StartRetryBudget
	}

	for {
		if c.engine.State() == EnginePlaying {
			return nil
		}
		if !time.Now().Before(deadline) {
			return errors.Wrapf(ErrEngineStartTimeout, "%s did not start (state=%s)", label, c.engine.State())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step):
		}
	}
}

func (c *Controller) stopExhausted() {
	zlog.Warn().Msg("no playable features remain, stopping")
	_ = c.engine.Stop()
	c.sess.State = StateStopped
	c.runErr = ErrNoPlayableFeature
}
