package shell

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventReady            EventKind = "ready"
	EventSecondInstance   EventKind = "second-instance"
	EventActivate         EventKind = "activate"
	EventAllWindowsClosed EventKind = "window-all-closed"
	EventWindowMoved      EventKind = "window-moved"
	EventWindowResized    EventKind = "window-resized"
)

// Event is one lifecycle signal delivered to the coordinator.
type Event struct {
	ID   string
	Kind EventKind
	// Args and Cwd carry the command line of a second launch.
	Args []string
	Cwd  string
	At   time.Time
}

func NewEvent(kind EventKind) Event {
	return Event{ID: uuid.NewString(), Kind: kind, At: time.Now()}
}

type State int

const (
	StateAbsent State = iota
	StateCreating
	StateVisible
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateCreating:
		return "creating"
	case StateVisible:
		return "visible"
	default:
		return "unknown"
	}
}
