// Package guide builds forward-looking program schedules from channel
// segment lists and renders them as interchange documents.
package guide

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/mkrause/retrocast/internal/domain/segment"
)

// Defaults for projector configuration.
const (
	DefaultHorizon  = 24 * time.Hour
	DefaultFallback = 30 * time.Second
)

// Entry is one scheduled programme. Entries are immutable once emitted
// and regenerated wholesale on every projector invocation.
type Entry struct {
	ChannelID   string
	Title       string
	Ref         string // media file behind the programme
	Start       time.Time
	Stop        time.Time
	Description string
}

// ChannelGuide is the projected schedule of one channel.
type ChannelGuide struct {
	ID      string
	Name    string
	Entries []Entry
}

// Schedule is the full projection over all channels.
type Schedule struct {
	GeneratedAt time.Time
	Channels    []ChannelGuide
}

// DurationSource is the persistence collaborator's duration cache.
type DurationSource interface {
	// All returns every cached duration keyed by filename.
	All(ctx context.Context) (map[string]time.Duration, error)
	// Set writes a resolved duration back to the cache.
	Set(ctx context.Context, filename string, d time.Duration) error
}

// Prober resolves a media file's duration on demand.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Config holds projector configuration.
type Config struct {
	Horizon  time.Duration // Schedule span from the starting instant
	Fallback time.Duration // Duration substituted when resolution fails
}

// Projector walks channel segment lists cyclically to build fixed-horizon
// schedules. It runs on explicit invocation only and never touches the
// playback engine.
type Projector struct {
	cache  DurationSource
	prober Prober
	cfg    Config
}

// New creates a projector. cache and prober may be nil, in which case
// every segment resolves to the fallback duration unless it already
// carries one.
func New(cache DurationSource, prober Prober, cfg Config) *Projector {
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizon
	}
	if cfg.Fallback <= 0 {
		cfg.Fallback = DefaultFallback
	}
	return &Projector{cache: cache, prober: prober, cfg: cfg}
}

// Build projects every non-empty channel from now over the configured
// horizon. A duration-resolution failure for one segment never aborts its
// channel: the fallback duration is substituted and the walk continues,
// so every channel independently covers the full horizon without gaps or
// overlaps.
func (p *Projector) Build(ctx context.Context, channels []segment.Channel, now time.Time) *Schedule {
	sched := &Schedule{GeneratedAt: now}

	// Pre-load the cache once per pass so cyclic walks do not re-query
	// per entry.
	durations := p.preload(ctx)

	horizonEnd := now.Add(p.cfg.Horizon)
	channelNumber := 1

	for ci := range channels {
		ch := &channels[ci]
		if ch.IsEmpty() {
			continue
		}

		cg := ChannelGuide{
			ID:   channelID(channelNumber),
			Name: ch.Name,
		}
		channelNumber++

		cursor := now
		for i := 0; cursor.Before(horizonEnd); i++ {
			seg := ch.At(i)
			d := p.resolve(ctx, seg, durations)

			stop := cursor.Add(d)
			cg.Entries = append(cg.Entries, Entry{
				ChannelID:   cg.ID,
				Title:       titleFor(seg),
				Ref:         seg.Ref,
				Start:       cursor,
				Stop:        stop,
				Description: descriptionFor(ch, seg),
			})
			cursor = stop
		}

		zlog.Debug().
			Str("channel", ch.Name).
			Int("entries", len(cg.Entries)).
			Msg("channel projected")
		sched.Channels = append(sched.Channels, cg)
	}

	zlog.Info().
		Int("channels", len(sched.Channels)).
		Dur("horizon", p.cfg.Horizon).
		Msg("schedule generated")
	return sched
}

func (p *Projector) preload(ctx context.Context) map[string]time.Duration {
	if p.cache == nil {
		return map[string]time.Duration{}
	}
	durations, err := p.cache.All(ctx)
	if err != nil {
		zlog.Warn().Err(err).Msg("duration cache unavailable, probing on demand")
		return map[string]time.Duration{}
	}
	return durations
}

// resolve returns the segment's duration using, in order: the segment's
// own known duration, the cache, an on-demand probe (written back to the
// cache), and finally the fallback constant (also written back so the
// file is not re-probed every pass).
func (p *Projector) resolve(ctx context.Context, seg segment.Segment, durations map[string]time.Duration) time.Duration {
	if seg.KnownDuration() {
		return time.Duration(seg.DurationMs) * time.Millisecond
	}

	key := filepath.Base(seg.Ref)
	if d, ok := durations[key]; ok && d > 0 {
		return d
	}

	d := p.cfg.Fallback
	if p.prober != nil {
		probed, err := p.prober.Duration(ctx, seg.Ref)
		if err != nil {
			zlog.Warn().Err(err).Str("ref", key).Msg("duration probe failed, using fallback")
		} else if probed > 0 {
			d = probed
		}
	}

	durations[key] = d
	if p.cache != nil {
		if err := p.cache.Set(ctx, key, d); err != nil {
			zlog.Warn().Err(err).Str("ref", key).Msg("failed to cache duration")
		}
	}
	return d
}

func channelID(n int) string {
	return fmt.Sprintf("retrocast.%d", n)
}

func titleFor(seg segment.Segment) string {
	if seg.Title != "" {
		return seg.Title
	}
	return filepath.Base(seg.Ref)
}

func descriptionFor(ch *segment.Channel, seg segment.Segment) string {
	desc := "retrocast: " + ch.Name
	if seg.Desc != "" {
		desc += " | " + seg.Desc
	}
	return desc
}
