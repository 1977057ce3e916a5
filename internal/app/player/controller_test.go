package player

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrause/retrocast/internal/app/command"
	"github.com/mkrause/retrocast/internal/app/sequencer"
	"github.com/mkrause/retrocast/internal/domain/segment"
	"github.com/mkrause/retrocast/internal/domain/timecode"
)

// fakeEngine is a scriptable Engine for controller tests.
type fakeEngine struct {
	loaded string
	state  EngineState
	pos    int64

	loads  []string
	seeks  []int64
	pauses int
	stops  int

	failLoad  map[string]bool
	failStart map[string]bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		failLoad:  map[string]bool{},
		failStart: map[string]bool{},
	}
}

func (e *fakeEngine) Load(ref string) error {
	e.loads = append(e.loads, ref)
	if e.failLoad[ref] {
		return errors.New("load failed")
	}
	e.loaded = ref
	e.state = EngineStopped
	return nil
}

func (e *fakeEngine) Play() error {
	if e.failStart[e.loaded] {
		e.state = EngineStopped
		return nil
	}
	e.state = EnginePlaying
	return nil
}

func (e *fakeEngine) Pause() error {
	e.pauses++
	e.state = EnginePaused
	return nil
}

func (e *fakeEngine) Stop() error {
	e.stops++
	e.state = EngineStopped
	return nil
}

func (e *fakeEngine) Seek(ms int64) error {
	e.seeks = append(e.seeks, ms)
	e.pos = ms
	return nil
}

func (e *fakeEngine) PositionMs() (int64, error) { return e.pos, nil }
func (e *fakeEngine) State() EngineState         { return e.state }

func endAt(ms int64) *int64 { return &ms }

func fillerSegs(refs ...string) []segment.Segment {
	segs := make([]segment.Segment, len(refs))
	for i, r := range refs {
		segs[i] = segment.Segment{Kind: segment.KindFiller, Ref: r}
	}
	return segs
}

func newTestController(eng *fakeEngine, features []Feature, fillerRefs []string, cfg Config) *Controller {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Millisecond
	}
	if cfg.StartRetryBudget == 0 {
		cfg.StartRetryBudget = time.Nanosecond
	}
	seq := sequencer.New(fillerSegs(fillerRefs...), false, nil)
	c := New(eng, features, seq, make(chan command.Command), cfg)
	c.fileOK = func(string) bool { return true }
	c.sleep = func(time.Duration) {}
	return c
}

func TestController_BreakFiresAtCursorAndAdvancesOnce(t *testing.T) {
	eng := newFakeEngine()
	feat := Feature{
		Ref:    "/m/movie.mp4",
		Window: timecode.Window{StartMs: 0, EndMs: endAt(15000)},
		Breaks: []int64{5000, 12000},
	}
	c := newTestController(eng, []Feature{feat}, []string{"/v/a.mp4"}, Config{AdsPerBreak: 3})
	ctx := context.Background()

	require.True(t, c.startFirstFeature(ctx))
	require.Equal(t, StateMovie, c.sess.State)

	eng.pos = 4999
	c.tickMovie(ctx)
	assert.Equal(t, StateMovie, c.sess.State)
	assert.Equal(t, 0, c.sess.BreakCursor)

	eng.pos = 5003
	c.tickMovie(ctx)
	assert.Equal(t, StateAds, c.sess.State)
	assert.Equal(t, 1, c.sess.BreakCursor)
	assert.Equal(t, int64(5003), c.sess.ResumeMs)
	assert.Equal(t, 3, c.sess.AdsRemaining)
	assert.Equal(t, 1, eng.pauses)

	// The consumed break point must never fire again.
	c.sess.State = StateMovie
	eng.state = EnginePlaying
	c.tickMovie(ctx)
	assert.Equal(t, StateMovie, c.sess.State)
	assert.Equal(t, 1, c.sess.BreakCursor)
}

func TestController_BreakCyclePlaysConfiguredFillerCount(t *testing.T) {
	eng := newFakeEngine()
	feat := Feature{
		Ref:    "/m/movie.mp4",
		Window: timecode.Window{StartMs: 0},
		Breaks: []int64{5000},
	}
	c := newTestController(eng, []Feature{feat}, []string{"/v/a.mp4", "/v/b.mp4"}, Config{AdsPerBreak: 3})
	ctx := context.Background()

	require.True(t, c.startFirstFeature(ctx))
	eng.pos = 5000
	c.tickMovie(ctx)
	require.Equal(t, StateAds, c.sess.State)

	eng.loads = nil
	var played []string
	for c.sess.State != StateMovie {
		switch c.sess.State {
		case StateAds:
			c.beginNextFiller(ctx)
			if c.sess.State == StateAdsPlaying {
				played = append(played, eng.loaded)
			}
		case StateAdsPlaying:
			eng.state = EngineEnded
			c.tickFiller()
		default:
			t.Fatalf("unexpected state %s", c.sess.State)
		}
		require.GreaterOrEqual(t, c.sess.AdsRemaining, 0)
	}

	// adsPerBreak=3 over a 2-item sequential list wraps: a, b, a.
	assert.Equal(t, []string{"/v/a.mp4", "/v/b.mp4", "/v/a.mp4"}, played)
	assert.Equal(t, 0, c.sess.AdsRemaining)

	// Resume seeks past the saved position by the epsilon.
	require.NotEmpty(t, eng.seeks)
	assert.Equal(t, int64(5050), eng.seeks[len(eng.seeks)-1])
	assert.Equal(t, "/m/movie.mp4", eng.loaded)
}

func TestController_ResumePastWindowEndAdvances(t *testing.T) {
	eng := newFakeEngine()
	features := []Feature{
		{Ref: "/m/first.mp4", Window: timecode.Window{StartMs: 0, EndMs: endAt(60000)}},
		{Ref: "/m/second.mp4", Window: timecode.Window{StartMs: 0}},
	}
	c := newTestController(eng, features, []string{"/v/a.mp4"}, Config{AdsPerBreak: 1})
	ctx := context.Background()

	require.True(t, c.startFirstFeature(ctx))
	c.sess.ResumeMs = 60150
	c.sess.AdsRemaining = 0
	c.sess.State = StateAds

	c.beginNextFiller(ctx)

	// 60150 + 50 epsilon >= 60000: do not resume, advance instead.
	assert.Equal(t, StateMovie, c.sess.State)
	assert.Equal(t, 1, c.sess.FeatureIndex)
	assert.Equal(t, "/m/second.mp4", eng.loaded)
}

func TestController_ResumeClampsToWindowStart(t *testing.T) {
	eng := newFakeEngine()
	feat := Feature{Ref: "/m/movie.mp4", Window: timecode.Window{StartMs: 90000}}
	c := newTestController(eng, []Feature{feat}, nil, Config{AdsPerBreak: 2})
	ctx := context.Background()

	require.True(t, c.startFirstFeature(ctx))
	c.sess.ResumeMs = 1000 // below the window start
	c.sess.AdsRemaining = 0
	c.sess.State = StateAds

	c.beginNextFiller(ctx)
	require.Equal(t, StateMovie, c.sess.State)
	assert.Equal(t, int64(90000), eng.seeks[len(eng.seeks)-1])
}

func TestController_EmptyFillerListSkipsBreak(t *testing.T) {
	eng := newFakeEngine()
	feat := Feature{Ref: "/m/movie.mp4", Window: timecode.Window{StartMs: 0}, Breaks: []int64{1000}}
	c := newTestController(eng, []Feature{feat}, nil, Config{AdsPerBreak: 3})
	ctx := context.Background()

	require.True(t, c.startFirstFeature(ctx))
	eng.pos = 1500
	c.tickMovie(ctx)
	require.Equal(t, StateAds, c.sess.State)

	c.beginNextFiller(ctx)
	assert.Equal(t, StateMovie, c.sess.State)
	assert.Equal(t, 0, c.sess.AdsRemaining)
}

func TestController_MissingFillerConsumesSlot(t *testing.T) {
	eng := newFakeEngine()
	feat := Feature{Ref: "/m/movie.mp4", Window: timecode.Window{StartMs: 0}}
	c := newTestController(eng, []Feature{feat}, []string{"/v/gone.mp4", "/v/b.mp4"}, Config{AdsPerBreak: 2})
	c.fileOK = func(path string) bool { return path != "/v/gone.mp4" }
	ctx := context.Background()

	require.True(t, c.startFirstFeature(ctx))
	c.sess.AdsRemaining = 2
	c.sess.State = StateAds

	c.beginNextFiller(ctx)
	assert.Equal(t, StateAds, c.sess.State)
	assert.Equal(t, 1, c.sess.AdsRemaining)

	c.beginNextFiller(ctx)
	assert.Equal(t, StateAdsPlaying, c.sess.State)
	assert.Equal(t, "/v/b.mp4", eng.loaded)
}

func TestController_WindowEndAdvancesToNextFeature(t *testing.T) {
	eng := newFakeEngine()
	features := []Feature{
		{Ref: "/m/first.mp4", Window: timecode.Window{StartMs: 0, EndMs: endAt(10000)}},
		{Ref: "/m/second.mp4", Window: timecode.Window{StartMs: 2000}},
	}
	c := newTestController(eng, features, nil, Config{})
	ctx := context.Background()

	require.True(t, c.startFirstFeature(ctx))
	eng.pos = 10000
	c.tickMovie(ctx)

	assert.Equal(t, StateMovie, c.sess.State)
	assert.Equal(t, 1, c.sess.FeatureIndex)
	assert.Equal(t, "/m/second.mp4", eng.loaded)
	// The new feature starts at its own window start.
	assert.Equal(t, int64(2000), eng.seeks[len(eng.seeks)-1])
}

func TestController_NaturalEndOnlyWithoutWindowEnd(t *testing.T) {
	eng := newFakeEngine()
	features := []Feature{
		{Ref: "/m/first.mp4", Window: timecode.Window{StartMs: 0}},
		{Ref: "/m/second.mp4", Window: timecode.Window{StartMs: 0}},
	}
	c := newTestController(eng, features, nil, Config{})
	ctx := context.Background()

	require.True(t, c.startFirstFeature(ctx))
	eng.state = EngineEnded
	c.tickMovie(ctx)

	assert.Equal(t, 1, c.sess.FeatureIndex)
	assert.Equal(t, "/m/second.mp4", eng.loaded)
}

func TestController_SkipsUnplayableFeatures(t *testing.T) {
	eng := newFakeEngine()
	eng.failLoad["/m/broken.mp4"] = true
	features := []Feature{
		{Ref: "/m/missing.mp4"},
		{Ref: "/m/broken.mp4"},
		{Ref: "/m/good.mp4"},
	}
	c := newTestController(eng, features, nil, Config{})
	c.fileOK = func(path string) bool { return path != "/m/missing.mp4" }

	require.True(t, c.startFirstFeature(context.Background()))
	assert.Equal(t, 2, c.sess.FeatureIndex)
	assert.Equal(t, "/m/good.mp4", eng.loaded)
}

func TestController_StartTimeoutTreatedAsLoadFailure(t *testing.T) {
	eng := newFakeEngine()
	eng.failStart["/m/stalls.mp4"] = true
	features := []Feature{
		{Ref: "/m/stalls.mp4"},
		{Ref: "/m/good.mp4"},
	}
	c := newTestController(eng, features, nil, Config{})

	require.True(t, c.startFirstFeature(context.Background()))
	assert.Equal(t, "/m/good.mp4", eng.loaded)
}

func TestController_RunReturnsWhenQueueUnplayable(t *testing.T) {
	eng := newFakeEngine()
	features := []Feature{{Ref: "/m/a.mp4"}, {Ref: "/m/b.mp4"}}
	c := newTestController(eng, features, nil, Config{})
	c.fileOK = func(string) bool { return false }

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPlayableFeature))
	assert.Equal(t, StateStopped, c.sess.State)
}

func TestController_RunEmptyQueue(t *testing.T) {
	eng := newFakeEngine()
	c := newTestController(eng, nil, nil, Config{})

	err := c.Run(context.Background())
	assert.True(t, errors.Is(err, ErrNoPlayableFeature))
}

func TestController_ExitCommandStopsRun(t *testing.T) {
	eng := newFakeEngine()
	feat := Feature{Ref: "/m/movie.mp4", Window: timecode.Window{StartMs: 0}}
	cmds := make(chan command.Command, 1)
	seq := sequencer.New(nil, false, nil)
	c := New(eng, []Feature{feat}, seq, cmds, Config{PollInterval: 2 * time.Millisecond})
	c.fileOK = func(string) bool { return true }
	c.sleep = func(time.Duration) {}

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	cmds <- command.Exit

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.Equal(t, StateStopped, c.sess.State)
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop on exit command")
	}
}

func TestController_ContextCancelStopsRun(t *testing.T) {
	eng := newFakeEngine()
	feat := Feature{Ref: "/m/movie.mp4", Window: timecode.Window{StartMs: 0}}
	c := newTestController(eng, []Feature{feat}, nil, Config{PollInterval: 2 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop on context cancel")
	}
}

func TestController_FillerCommandsIgnoredDuringMovie(t *testing.T) {
	eng := newFakeEngine()
	feat := Feature{Ref: "/m/movie.mp4", Window: timecode.Window{StartMs: 0}}
	c := newTestController(eng, []Feature{feat}, []string{"/v/a.mp4"}, Config{AdsPerBreak: 1})
	ctx := context.Background()

	require.True(t, c.startFirstFeature(ctx))
	stopsBefore := eng.stops

	c.handleCommand(ctx, command.NextFiller)
	c.handleCommand(ctx, command.PrevFiller)

	assert.Equal(t, StateMovie, c.sess.State)
	assert.Equal(t, stopsBefore, eng.stops)
}

func TestController_SkipFillerCommandConsumesSlot(t *testing.T) {
	eng := newFakeEngine()
	feat := Feature{Ref: "/m/movie.mp4", Window: timecode.Window{StartMs: 0}}
	c := newTestController(eng, []Feature{feat}, []string{"/v/a.mp4", "/v/b.mp4"}, Config{AdsPerBreak: 2})
	ctx := context.Background()

	require.True(t, c.startFirstFeature(ctx))
	c.sess.AdsRemaining = 2
	c.sess.State = StateAds
	c.beginNextFiller(ctx)
	require.Equal(t, StateAdsPlaying, c.sess.State)

	c.handleCommand(ctx, command.NextFiller)
	assert.Equal(t, StateAds, c.sess.State)
	assert.Equal(t, 1, c.sess.AdsRemaining)

	// Going back to the previous filler replays the slot without
	// consuming it.
	c.beginNextFiller(ctx)
	require.Equal(t, StateAdsPlaying, c.sess.State)
	c.handleCommand(ctx, command.PrevFiller)
	assert.Equal(t, StateAds, c.sess.State)
	assert.Equal(t, 1, c.sess.AdsRemaining)
}

func TestController_NextFeatureCommandWraps(t *testing.T) {
	eng := newFakeEngine()
	features := []Feature{
		{Ref: "/m/a.mp4"},
		{Ref: "/m/b.mp4"},
	}
	c := newTestController(eng, features, nil, Config{})
	ctx := context.Background()

	require.True(t, c.startFirstFeature(ctx))
	c.handleCommand(ctx, command.NextFeature)
	assert.Equal(t, 1, c.sess.FeatureIndex)

	c.handleCommand(ctx, command.NextFeature)
	assert.Equal(t, 0, c.sess.FeatureIndex)

	c.handleCommand(ctx, command.PrevFeature)
	assert.Equal(t, 1, c.sess.FeatureIndex)
}
