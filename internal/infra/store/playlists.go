package store

import (
	"context"

	"github.com/cockroachdb/errors"
)

// CreatePlaylist creates a playlist with the given name.
func (s *Store) CreatePlaylist(ctx context.Context, name string) (*Playlist, error) {
	p := &Playlist{Name: name}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, errors.Wrap(mapError(err), "failed to create playlist")
	}
	return p, nil
}

// PlaylistByName retrieves a playlist by its name.
func (s *Store) PlaylistByName(ctx context.Context, name string) (*Playlist, error) {
	var p Playlist
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&p).Error; err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// ListPlaylists returns all playlists ordered by name.
func (s *Store) ListPlaylists(ctx context.Context) ([]Playlist, error) {
	var out []Playlist
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, errors.Wrap(mapError(err), "failed to list playlists")
	}
	return out, nil
}

// UpsertVideo inserts a video row or returns the existing one.
func (s *Store) UpsertVideo(ctx context.Context, filename, title string) (*Video, error) {
	var v Video
	err := s.db.WithContext(ctx).Where("filename = ?", filename).First(&v).Error
	if err == nil {
		return &v, nil
	}
	if !errors.Is(mapError(err), ErrNotFound) {
		return nil, mapError(err)
	}
	v = Video{Filename: filename, Title: title}
	if err := s.db.WithContext(ctx).Create(&v).Error; err != nil {
		return nil, errors.Wrap(mapError(err), "failed to create video")
	}
	return &v, nil
}

// AppendToPlaylist adds a video at the end of a playlist.
func (s *Store) AppendToPlaylist(ctx context.Context, playlistID, videoID uint) error {
	var max int64
	err := s.db.WithContext(ctx).Model(&PlaylistVideo{}).
		Where("playlist_id = ?", playlistID).
		Select("COALESCE(MAX(position), -1)").Scan(&max).Error
	if err != nil {
		return errors.Wrap(mapError(err), "failed to query playlist tail")
	}
	pv := &PlaylistVideo{PlaylistID: playlistID, VideoID: videoID, Position: int(max) + 1}
	if err := s.db.WithContext(ctx).Create(pv).Error; err != nil {
		return errors.Wrap(mapError(err), "failed to append to playlist")
	}
	return nil
}

// PlaylistVideos returns a playlist's videos in position order.
func (s *Store) PlaylistVideos(ctx context.Context, name string) ([]Video, error) {
	p, err := s.PlaylistByName(ctx, name)
	if err != nil {
		return nil, err
	}
	var out []Video
	err = s.db.WithContext(ctx).
		Joins("JOIN playlist_videos pv ON pv.video_id = videos.id").
		Where("pv.playlist_id = ?", p.ID).
		Order("pv.position").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(mapError(err), "failed to load playlist videos")
	}
	return out, nil
}
