// Package command provides the closed command set and the debouncing
// dispatcher that feeds the playback controller.
package command

// Command is a playback control command. The set is closed so that
// controller switches over it can be checked exhaustively.
type Command int

const (
	NextFiller    Command = iota // Skip the current filler segment
	PrevFiller                   // Go back to the previous filler segment
	NextFeature                  // Skip to the next feature in the queue
	PrevFeature                  // Go back to the previous feature in the queue
	ShuffleToggle                // Toggle filler shuffle mode
	Reshuffle                    // Regenerate the filler permutation
	Exit                         // Stop playback and end the session
)

// String returns the string representation of the command.
func (c Command) String() string {
	switch c {
	case NextFiller:
		return "next_filler"
	case PrevFiller:
		return "prev_filler"
	case NextFeature:
		return "next_feature"
	case PrevFeature:
		return "prev_feature"
	case ShuffleToggle:
		return "shuffle_toggle"
	case Reshuffle:
		return "reshuffle"
	case Exit:
		return "exit"
	default:
		return "unknown"
	}
}
