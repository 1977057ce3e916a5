// Package player provides the break-aware playback controller.
package player

// State represents the controller state.
type State int

const (
	StateMovie      State = iota // A feature is playing
	StateAds                     // In a break, about to start the next filler
	StateAdsPlaying              // In a break, a filler segment is playing
	StateStopped                 // Session over (terminal)
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateMovie:
		return "movie"
	case StateAds:
		return "ads"
	case StateAdsPlaying:
		return "ads_playing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
