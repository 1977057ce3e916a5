package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	zlog "github.com/rs/zerolog/log"

	"github.com/mkrause/retrocast/internal/app/guide"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGuideXML(w http.ResponseWriter, r *http.Request) {
	_, xmltv := s.cached()
	if xmltv == nil {
		http.Error(w, "guide not generated yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(xmltv)
}

func (s *Server) handlePlaylistM3U(w http.ResponseWriter, r *http.Request) {
	schedule, _ := s.cached()
	if schedule == nil {
		http.Error(w, "guide not generated yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "audio/x-mpegurl")
	if err := guide.WriteM3U(w, guide.BuildM3U(schedule, s.baseURL)); err != nil {
		zlog.Error().Err(err).Msg("failed to write playlist")
	}
}

func (s *Server) handleRefreshGuide(w http.ResponseWriter, r *http.Request) {
	if err := s.Refresh(r.Context()); err != nil {
		zlog.Error().Err(err).Msg("guide refresh failed")
		http.Error(w, "refresh failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// channelSummary is the JSON view of one projected channel.
type channelSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Entries   int    `json:"entries"`
	StreamURL string `json:"stream_url"`
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	schedule, _ := s.cached()
	if schedule == nil {
		http.Error(w, "guide not generated yet", http.StatusServiceUnavailable)
		return
	}

	out := make([]channelSummary, 0, len(schedule.Channels))
	for _, ch := range schedule.Channels {
		out = append(out, channelSummary{
			ID:        ch.ID,
			Name:      ch.Name,
			Entries:   len(ch.Entries),
			StreamURL: s.baseURL + "/stream/" + url.PathEscape(ch.Name),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleStream redirects to the file currently airing on the channel.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "channel"))
	if err != nil {
		http.Error(w, "bad channel name", http.StatusBadRequest)
		return
	}

	schedule, _ := s.cached()
	if schedule == nil {
		http.Error(w, "guide not generated yet", http.StatusServiceUnavailable)
		return
	}

	entry, ok := currentEntry(schedule, name, time.Now())
	if !ok {
		http.Error(w, "channel not found or off air", http.StatusNotFound)
		return
	}

	target := "/video/" + url.PathEscape(filepath.Base(entry.Ref))
	http.Redirect(w, r, target, http.StatusFound)
}

// currentEntry finds the programme airing on the named channel at t.
func currentEntry(schedule *guide.Schedule, name string, t time.Time) (guide.Entry, bool) {
	for _, ch := range schedule.Channels {
		if ch.Name != name {
			continue
		}
		for _, e := range ch.Entries {
			if !t.Before(e.Start) && t.Before(e.Stop) {
				return e, true
			}
		}
	}
	return guide.Entry{}, false
}

// handleVideo serves a media file by bare filename from either media
// directory. Filenames with path separators are rejected.
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil || name != filepath.Base(name) || name == "." || name == "" {
		http.Error(w, "bad filename", http.StatusBadRequest)
		return
	}

	for _, dir := range []string{s.mediaDir, s.videoDir} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			http.ServeFile(w, r, path)
			return
		}
	}
	http.NotFound(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Err(err).Msg("failed to encode response")
	}
}
