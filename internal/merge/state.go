package merge

import "errors"

// State is the coordinator's position in the merge pipeline.
type State string

const (
	// StateIdle is the state of a coordinator that never ran a merge.
	StateIdle State = "IDLE"
	// StateValidating checks the input clip list.
	StateValidating State = "VALIDATING"
	// StateBuildingTimeline lays out the video tracks.
	StateBuildingTimeline State = "BUILDING_TIMELINE"
	// StateBuildingAudio plans the audio track.
	StateBuildingAudio State = "BUILDING_AUDIO"
	// StateExporting waits for the export engine.
	StateExporting State = "EXPORTING"
	// StateCompleted means the last merge produced an output.
	StateCompleted State = "COMPLETED"
	// StateFailed means the last merge failed.
	StateFailed State = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("merge: invalid state transition")

// validTransitions defines which state transitions are allowed. Terminal
// states may start the next merge.
var validTransitions = map[State][]State{
	StateIdle:             {StateValidating},
	StateValidating:       {StateBuildingTimeline, StateFailed},
	StateBuildingTimeline: {StateBuildingAudio, StateFailed},
	StateBuildingAudio:    {StateExporting, StateFailed},
	StateExporting:        {StateCompleted, StateFailed},
	StateCompleted:        {StateValidating},
	StateFailed:           {StateValidating},
}

// CanTransitionTo checks if a transition from s to target is valid.
func (s State) CanTransitionTo(target State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true once a merge has finished.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}
