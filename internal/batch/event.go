package batch

import "sheetmail/internal/model"

// State is a Runner's position in a run.
type State int

const (
	StateInit State = iota
	StateAuthenticated
	StateFetched
	StateSending
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAuthenticated:
		return "authenticated"
	case StateFetched:
		return "fetched"
	case StateSending:
		return "sending"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Event is a progress notification. A row produces two Sending events: one
// before the send and one (Done set) after its status is written.
type Event struct {
	State     State
	Index     int // position within the pending rows
	Total     int // number of pending rows
	Recipient string
	Status    model.Status
	Cell      string
	Done      bool
	Err       error
	Summary   *Summary // set on the final event of a completed or interrupted run
}

// Observer is called synchronously from the run.
type Observer func(Event)
