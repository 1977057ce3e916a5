// Package api serves the guide and media endpoints over HTTP.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	zlog "github.com/rs/zerolog/log"

	"github.com/mkrause/retrocast/internal/app/guide"
	"github.com/mkrause/retrocast/internal/domain/segment"
)

// ChannelSource provides the channel lineup for guide builds.
type ChannelSource interface {
	Channels(ctx context.Context) ([]segment.Channel, error)
}

// Builder projects a lineup into a schedule.
type Builder interface {
	Build(ctx context.Context, channels []segment.Channel, now time.Time) *guide.Schedule
}

// Server serves guide documents and media files.
type Server struct {
	source   ChannelSource
	builder  Builder
	baseURL  string
	videoDir string
	mediaDir string

	mu       sync.RWMutex
	schedule *guide.Schedule
	xmltv    []byte
}

// New creates an API server. Call Refresh before serving to populate the
// guide cache; until then guide endpoints reply 503.
func New(source ChannelSource, builder Builder, baseURL, videoDir, mediaDir string) *Server {
	return &Server{
		source:   source,
		builder:  builder,
		baseURL:  baseURL,
		videoDir: videoDir,
		mediaDir: mediaDir,
	}
}

// Refresh rebuilds the cached schedule and rendered guide documents.
func (s *Server) Refresh(ctx context.Context) error {
	channels, err := s.source.Channels(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load channel lineup")
	}

	schedule := s.builder.Build(ctx, channels, time.Now())
	xmltv, err := guide.RenderXMLTV(schedule)
	if err != nil {
		return errors.Wrap(err, "failed to render guide")
	}

	s.mu.Lock()
	s.schedule = schedule
	s.xmltv = xmltv
	s.mu.Unlock()

	zlog.Info().Int("channels", len(schedule.Channels)).Msg("guide refreshed")
	return nil
}

// Router builds the HTTP route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/guide.xml", s.handleGuideXML)
	r.Get("/playlist.m3u", s.handlePlaylistM3U)
	r.Post("/refresh-guide", s.handleRefreshGuide)
	r.Get("/channels", s.handleChannels)
	r.Get("/stream/{channel}", s.handleStream)
	r.Get("/video/{filename}", s.handleVideo)

	return r
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zlog.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) cached() (*guide.Schedule, []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedule, s.xmltv
}
