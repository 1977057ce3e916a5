package player

import "github.com/cockroachdb/errors"

// Errors
var (
	ErrEngineStartTimeout = errors.New("engine did not confirm playback within budget")
	ErrNoPlayableFeature  = errors.New("no playable feature in queue")
)
