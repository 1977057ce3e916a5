// Package library assembles playable content from the store and media
// directories.
package library

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/mkrause/retrocast/internal/app/player"
	"github.com/mkrause/retrocast/internal/domain/segment"
	"github.com/mkrause/retrocast/internal/domain/timecode"
	"github.com/mkrause/retrocast/internal/infra/store"
)

// mediaExtensions are the file types recognized when scanning directories.
var mediaExtensions = map[string]bool{
	".mp4": true,
	".mkv": true,
	".avi": true,
	".mov": true,
	".m4v": true,
	".mpg": true,
	".ts":  true,
}

// Library resolves store rows and media files into playable content.
type Library struct {
	store    *store.Store
	videoDir string // filler clips
	mediaDir string // feature files
}

// New creates a library over the given store and media directories.
func New(s *store.Store, videoDir, mediaDir string) *Library {
	return &Library{store: s, videoDir: videoDir, mediaDir: mediaDir}
}

// FeatureQueue loads the persisted playback queue as controller features.
// Movies whose files are missing are logged and skipped. Windows and breaks
// come from the stored clock tokens; unparseable tokens degrade per field.
func (l *Library) FeatureQueue(ctx context.Context) ([]player.Feature, error) {
	movies, err := l.store.Queue(ctx)
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		// An empty queue falls back to every known movie.
		movies, err = l.store.ListMovies(ctx)
		if err != nil {
			return nil, err
		}
	}

	out := make([]player.Feature, 0, len(movies))
	for _, m := range movies {
		path := filepath.Join(l.mediaDir, m.Filename)
		if _, err := os.Stat(path); err != nil {
			zlog.Warn().Str("file", m.Filename).Msg("feature file missing, skipping")
			continue
		}
		out = append(out, l.toFeature(m, path))
	}
	return out, nil
}

// toFeature converts a stored movie into a controller feature.
func (l *Library) toFeature(m store.FeatureMovie, path string) player.Feature {
	f := player.Feature{
		Ref:   path,
		Title: titleOf(m.Title, m.Filename),
	}

	for _, ts := range m.Timestamps {
		ms, err := timecode.ParseToken(ts.Token)
		if err != nil {
			zlog.Warn().Str("file", m.Filename).Str("token", ts.Token).
				Msg("unparseable timestamp, ignoring")
			continue
		}
		switch ts.Kind {
		case "start":
			f.Window.StartMs = ms
		case "end":
			end := ms
			f.Window.EndMs = &end
		}
	}

	raw := make([]int64, 0, len(m.Breaks))
	for _, b := range m.Breaks {
		ms, err := timecode.ParseToken(b.Token)
		if err != nil {
			zlog.Warn().Str("file", m.Filename).Str("token", b.Token).
				Msg("unparseable break, ignoring")
			continue
		}
		raw = append(raw, ms)
	}
	f.Breaks = timecode.FilterBreaks(raw, f.Window)

	return f
}

// FillerSegments returns the clips of the named playlist in order, falling
// back to a directory scan of the clip folder when the store is unavailable
// or the playlist does not exist.
func (l *Library) FillerSegments(ctx context.Context, playlist string) []segment.Segment {
	videos, err := l.store.PlaylistVideos(ctx, playlist)
	if err != nil {
		zlog.Warn().Err(err).Str("playlist", playlist).
			Msg("playlist unavailable, scanning clip directory")
		return l.scanDir(l.videoDir, segment.KindFiller)
	}

	out := make([]segment.Segment, 0, len(videos))
	for _, v := range videos {
		path := filepath.Join(l.videoDir, v.Filename)
		if _, err := os.Stat(path); err != nil {
			zlog.Warn().Str("file", v.Filename).Msg("filler file missing, skipping")
			continue
		}
		out = append(out, segment.Segment{
			Kind:       segment.KindFiller,
			Ref:        path,
			Title:      titleOf(v.Title, v.Filename),
			DurationMs: durationMs(v.DurationSec),
		})
	}
	return out
}

// Channels builds the guide channel lineup: one channel per playlist plus
// one for the feature queue.
func (l *Library) Channels(ctx context.Context) ([]segment.Channel, error) {
	playlists, err := l.store.ListPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	channels := make([]segment.Channel, 0, len(playlists)+1)
	for _, p := range playlists {
		ch := segment.Channel{
			Name:     p.Name,
			Segments: l.FillerSegments(ctx, p.Name),
		}
		if !ch.IsEmpty() {
			channels = append(channels, ch)
		}
	}

	movies, err := l.store.ListMovies(ctx)
	if err != nil {
		return nil, err
	}
	feature := segment.Channel{Name: "features", Description: "Feature presentations"}
	for _, m := range movies {
		feature.Segments = append(feature.Segments, segment.Segment{
			Kind:       segment.KindFeature,
			Ref:        filepath.Join(l.mediaDir, m.Filename),
			Title:      titleOf(m.Title, m.Filename),
			Desc:       m.Description,
			DurationMs: durationMs(m.DurationSec),
		})
	}
	if !feature.IsEmpty() {
		channels = append(channels, feature)
	}

	return channels, nil
}

// scanDir lists media files in dir as bare segments, sorted by name.
func (l *Library) scanDir(dir string, kind segment.Kind) []segment.Segment {
	entries, err := os.ReadDir(dir)
	if err != nil {
		zlog.Error().Err(err).Str("dir", dir).Msg("cannot scan media directory")
		return nil
	}

	var out []segment.Segment
	for _, e := range entries {
		if e.IsDir() || !mediaExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		out = append(out, segment.Segment{
			Kind: kind,
			Ref:  filepath.Join(dir, e.Name()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out
}

func titleOf(title, filename string) string {
	if title != "" {
		return title
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

func durationMs(sec *float64) int64 {
	if sec == nil {
		return 0
	}
	return int64(*sec * 1000)
}
