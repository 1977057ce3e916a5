package player

import (
	"github.com/google/uuid"

	"github.com/mkrause/retrocast/internal/domain/timecode"
)

// Feature is one entry of the feature queue: a media reference plus its
// playback window and normalized break points. Breaks are filtered to the
// window, deduplicated and ascending before a Feature is constructed (see
// timecode.FilterBreaks).
type Feature struct {
	Ref    string
	Title  string
	Window timecode.Window
	Breaks []int64
}

// Session is the transient, single-owner playback state. It is created at
// playback start, mutated only by the controller goroutine, and discarded
// when the session reaches StateStopped.
type Session struct {
	ID           string
	State        State
	FeatureIndex int   // index into the feature queue
	BreakCursor  int   // index of the next unconsumed break point
	ResumeMs     int64 // feature position saved when diverting to a break
	AdsRemaining int   // fillers left in the active break
}

// NewSession creates a session positioned at the start of the queue.
func NewSession() *Session {
	return &Session{
		ID:    uuid.New().String(),
		State: StateMovie,
	}
}
