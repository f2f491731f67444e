package playback

// State is the single live playback state. Exactly one State is current per
// [Controller]; all transitions happen inside the controller.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateStalled
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStalled:
		return "stalled"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return ""
	}
}
