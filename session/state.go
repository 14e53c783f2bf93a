package session

// State is the session lifecycle
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	default:
		return "idle"
	}
}

// Stars rates a completion against par time:
// within 80% of par earns 3, within 120% earns 2, anything slower earns 1
func Stars(elapsed, parTime float64) int {
	switch {
	case elapsed <= parTime*0.8:
		return 3
	case elapsed <= parTime*1.2:
		return 2
	default:
		return 1
	}
}

// End reasons carried by game:end
const (
	ReasonUser     = "user"
	ReasonFinished = "finished"
	ReasonError    = "error"
)
