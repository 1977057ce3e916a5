package store

import "time"

// Video represents a filler clip known to the library, keyed by filename.
// DurationSec caches the probed media duration.
type Video struct {
	ID          uint     `gorm:"primaryKey;column:id"`
	Filename    string   `gorm:"type:text;not null;uniqueIndex;column:filename"`
	Title       string   `gorm:"type:text;column:title"`
	DurationSec *float64 `gorm:"column:duration_sec"`
	CreatedAt   time.Time
}

// Playlist represents a named ordered collection of videos.
type Playlist struct {
	ID        uint   `gorm:"primaryKey;column:id"`
	Name      string `gorm:"type:text;not null;uniqueIndex;column:name"`
	CreatedAt time.Time
}

// PlaylistVideo links a video to a playlist at a position.
type PlaylistVideo struct {
	ID         uint `gorm:"primaryKey;column:id"`
	PlaylistID uint `gorm:"not null;index;column:playlist_id"`
	VideoID    uint `gorm:"not null;column:video_id"`
	Position   int  `gorm:"not null;column:position"`
}

// FeatureMovie represents a long-form item with break scheduling metadata.
type FeatureMovie struct {
	ID          uint     `gorm:"primaryKey;column:id"`
	Filename    string   `gorm:"type:text;not null;uniqueIndex;column:filename"`
	Title       string   `gorm:"type:text;column:title"`
	Description string   `gorm:"type:text;column:description"`
	DurationSec *float64 `gorm:"column:duration_sec"`
	CreatedAt   time.Time

	Timestamps []Timestamp       `gorm:"foreignKey:MovieID"`
	Breaks     []CommercialBreak `gorm:"foreignKey:MovieID"`
}

// Timestamp holds a movie's playback window bounds as raw clock tokens.
// Kind is "start" or "end".
type Timestamp struct {
	ID      uint   `gorm:"primaryKey;column:id"`
	MovieID uint   `gorm:"not null;index;column:movie_id"`
	Kind    string `gorm:"type:text;not null;column:kind"`
	Token   string `gorm:"type:text;not null;column:token"`
}

// CommercialBreak holds one break point token for a movie.
type CommercialBreak struct {
	ID      uint   `gorm:"primaryKey;column:id"`
	MovieID uint   `gorm:"not null;index;column:movie_id"`
	Token   string `gorm:"type:text;not null;column:token"`
}

// Setting is a key/value configuration row.
type Setting struct {
	Key       string `gorm:"type:text;primaryKey;column:key"`
	Value     string `gorm:"type:text;not null;column:value"`
	UpdatedAt time.Time
}

// QueueEntry represents one position in the persisted playback queue.
type QueueEntry struct {
	ID       uint `gorm:"primaryKey;column:id"`
	MovieID  uint `gorm:"not null;column:movie_id"`
	Position int  `gorm:"not null;uniqueIndex;column:position"`
}
