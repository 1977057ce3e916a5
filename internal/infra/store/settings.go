package store

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm/clause"
)

// Well-known setting keys.
const (
	SettingAdsPerBreak     = "ads_per_break"
	SettingFeaturePlaylist = "feature_playlist"
	SettingShuffle         = "shuffle"
)

// defaultSettings seeds missing keys on first read.
var defaultSettings = map[string]string{
	SettingAdsPerBreak:     "3",
	SettingFeaturePlaylist: "",
	SettingShuffle:         "false",
}

// GetSetting returns the value for key, seeding the default if the key is
// known but absent. Unknown absent keys return ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var row Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if err == nil {
		return row.Value, nil
	}
	if !errors.Is(mapError(err), ErrNotFound) {
		return "", mapError(err)
	}
	def, ok := defaultSettings[key]
	if !ok {
		return "", ErrNotFound
	}
	if err := s.SetSetting(ctx, key, def); err != nil {
		return "", err
	}
	return def, nil
}

// SetSetting writes a setting value, inserting or updating as needed.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	row := Setting{Key: key, Value: value}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return errors.Wrap(mapError(err), "failed to write setting")
	}
	return nil
}

// GetSettingInt returns an integer setting.
func (s *Store) GetSettingInt(ctx context.Context, key string) (int, error) {
	v, err := s.GetSetting(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "setting %s is not an integer", key)
	}
	return n, nil
}

// GetSettingBool returns a boolean setting.
func (s *Store) GetSettingBool(ctx context.Context, key string) (bool, error) {
	v, err := s.GetSetting(ctx, key)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "setting %s is not a boolean", key)
	}
	return b, nil
}
