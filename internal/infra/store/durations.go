package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// Durations exposes the cached media durations keyed by filename. It feeds
// the guide projector and is written back as files get probed.
type Durations struct {
	s *Store
}

// Durations returns the duration cache view over this store.
func (s *Store) Durations() *Durations {
	return &Durations{s: s}
}

// All returns every known duration across filler clips and feature movies.
func (d *Durations) All(ctx context.Context) (map[string]time.Duration, error) {
	out := make(map[string]time.Duration)

	var videos []Video
	if err := d.s.db.WithContext(ctx).Where("duration_sec IS NOT NULL").Find(&videos).Error; err != nil {
		return nil, errors.Wrap(mapError(err), "failed to load video durations")
	}
	for _, v := range videos {
		out[v.Filename] = secondsToDuration(*v.DurationSec)
	}

	var movies []FeatureMovie
	if err := d.s.db.WithContext(ctx).Where("duration_sec IS NOT NULL").Find(&movies).Error; err != nil {
		return nil, errors.Wrap(mapError(err), "failed to load movie durations")
	}
	for _, m := range movies {
		out[m.Filename] = secondsToDuration(*m.DurationSec)
	}

	return out, nil
}

// Set writes a probed duration back to whichever table knows the filename.
// Unknown filenames are recorded as new filler clips so the value survives.
func (d *Durations) Set(ctx context.Context, filename string, dur time.Duration) error {
	sec := dur.Seconds()

	res := d.s.db.WithContext(ctx).Model(&FeatureMovie{}).
		Where("filename = ?", filename).
		Update("duration_sec", sec)
	if res.Error != nil {
		return errors.Wrap(mapError(res.Error), "failed to update movie duration")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	res = d.s.db.WithContext(ctx).Model(&Video{}).
		Where("filename = ?", filename).
		Update("duration_sec", sec)
	if res.Error != nil {
		return errors.Wrap(mapError(res.Error), "failed to update video duration")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	v := Video{Filename: filename, DurationSec: &sec}
	if err := d.s.db.WithContext(ctx).Create(&v).Error; err != nil {
		return errors.Wrap(mapError(err), "failed to record probed duration")
	}
	return nil
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
