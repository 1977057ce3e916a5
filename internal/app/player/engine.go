package player

// EngineState represents the playback engine's reported state.
type EngineState int

const (
	EngineStopped EngineState = iota // No media active
	EnginePlaying                    // Media is playing
	EnginePaused                     // Media is paused
	EngineEnded                      // Media reached its natural end
	EngineError                      // Engine reported a failure
)

// String returns the string representation of the engine state.
func (s EngineState) String() string {
	switch s {
	case EngineStopped:
		return "stopped"
	case EnginePlaying:
		return "playing"
	case EnginePaused:
		return "paused"
	case EngineEnded:
		return "ended"
	case EngineError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state means the current media is done.
func (s EngineState) Terminal() bool {
	return s == EngineStopped || s == EngineEnded || s == EngineError
}

// Engine is the shared playback-engine handle. The controller goroutine is
// its exclusive owner: no other goroutine may call into it while a session
// is running.
type Engine interface {
	// Load switches the engine to the given media reference without
	// starting playback.
	Load(ref string) error
	// Play starts or resumes playback of the loaded media.
	Play() error
	// Pause pauses playback, keeping the loaded media and position.
	Pause() error
	// Stop halts playback and discards the loaded media.
	Stop() error
	// Seek jumps to an absolute position in milliseconds.
	Seek(ms int64) error
	// PositionMs returns the current playback position in milliseconds.
	PositionMs() (int64, error)
	// State returns the engine's current state.
	State() EngineState
}
