package alerts

import (
	"errors"
	"fmt"
)

type State string

const (
	StateIdle         State = "idle"
	StateLoading      State = "loading"
	StateError        State = "error"
	StateRetryPending State = "retry-pending"
)

type Event string

const (
	EventRefresh        Event = "refresh"
	EventSuccess        Event = "success"
	EventFailure        Event = "failure"
	EventRetryScheduled Event = "retry_scheduled"
)

var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[State]map[Event]State{
	StateIdle:         {EventRefresh: StateLoading},
	StateError:        {EventRefresh: StateLoading, EventRetryScheduled: StateRetryPending},
	StateRetryPending: {EventRefresh: StateLoading},
	StateLoading:      {EventSuccess: StateIdle, EventFailure: StateError},
}

// Next returns the state reached from s on e.
func Next(s State, e Event) (State, error) {
	if to, ok := transitions[s][e]; ok {
		return to, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, s, e)
}
