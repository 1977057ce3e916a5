package store

import (
	"context"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
)

// CreateMovie inserts a feature movie with its timestamps and breaks.
func (s *Store) CreateMovie(ctx context.Context, m *FeatureMovie) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return errors.Wrap(mapError(err), "failed to create movie")
	}
	return nil
}

// MovieByFilename retrieves a movie with its timestamps and breaks.
func (s *Store) MovieByFilename(ctx context.Context, filename string) (*FeatureMovie, error) {
	var m FeatureMovie
	err := s.db.WithContext(ctx).
		Preload("Timestamps").
		Preload("Breaks").
		Where("filename = ?", filename).
		First(&m).Error
	if err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

// ListMovies returns all movies with timestamps and breaks preloaded.
func (s *Store) ListMovies(ctx context.Context) ([]FeatureMovie, error) {
	var out []FeatureMovie
	err := s.db.WithContext(ctx).
		Preload("Timestamps").
		Preload("Breaks").
		Order("filename").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(mapError(err), "failed to list movies")
	}
	return out, nil
}

// DeleteMovie removes a movie and its child rows.
func (s *Store) DeleteMovie(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("movie_id = ?", id).Delete(&Timestamp{}).Error; err != nil {
			return errors.Wrap(mapError(err), "failed to delete timestamps")
		}
		if err := tx.Where("movie_id = ?", id).Delete(&CommercialBreak{}).Error; err != nil {
			return errors.Wrap(mapError(err), "failed to delete breaks")
		}
		if err := tx.Where("movie_id = ?", id).Delete(&QueueEntry{}).Error; err != nil {
			return errors.Wrap(mapError(err), "failed to delete queue entries")
		}
		res := tx.Delete(&FeatureMovie{}, id)
		if res.Error != nil {
			return errors.Wrap(mapError(res.Error), "failed to delete movie")
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ReplaceQueue replaces the persisted playback queue with the given movie IDs.
func (s *Store) ReplaceQueue(ctx context.Context, movieIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&QueueEntry{}).Error; err != nil {
			return errors.Wrap(mapError(err), "failed to clear queue")
		}
		for i, id := range movieIDs {
			e := &QueueEntry{MovieID: id, Position: i}
			if err := tx.Create(e).Error; err != nil {
				return errors.Wrap(mapError(err), "failed to insert queue entry")
			}
		}
		return nil
	})
}

// Queue returns the persisted playback queue in position order, with each
// movie's timestamps and breaks preloaded.
func (s *Store) Queue(ctx context.Context) ([]FeatureMovie, error) {
	var entries []QueueEntry
	if err := s.db.WithContext(ctx).Order("position").Find(&entries).Error; err != nil {
		return nil, errors.Wrap(mapError(err), "failed to load queue")
	}
	out := make([]FeatureMovie, 0, len(entries))
	for _, e := range entries {
		var m FeatureMovie
		err := s.db.WithContext(ctx).
			Preload("Timestamps").
			Preload("Breaks").
			First(&m, e.MovieID).Error
		if err != nil {
			// A queue row pointing at a deleted movie is skipped.
			if errors.Is(mapError(err), ErrNotFound) {
				continue
			}
			return nil, mapError(err)
		}
		out = append(out, m)
	}
	return out, nil
}
