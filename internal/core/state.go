package core

import (
	"fmt"
	"strings"

	"github.com/comalice/rovercore/internal/primitives"
)

// State is the robot behavior state. Exactly one is active at a time.
type State int32

const (
	StateIdle State = iota
	StateActive
	StateFault
	StateAvoiding
	numStates
)

var stateNames = [numStates]string{
	StateIdle:     "IDLE",
	StateActive:   "ACTIVE",
	StateFault:    "FAULT",
	StateAvoiding: "AVOIDING",
}

func (s State) String() string {
	if s >= 0 && s < numStates {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Valid reports whether s is a defined state.
func (s State) Valid() bool {
	return s >= 0 && s < numStates
}

func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid state %d", int32(s))
	}
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseState parses a state name, case-insensitively.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if strings.EqualFold(n, name) {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", name)
}

// Event is a set of event bits posted to the machine.
type Event = primitives.EventMask

const (
	EvStart         Event = 1 << iota // command channel: start moving
	EvStop                            // command channel: stop moving
	EvObstacle                        // bumper/range sensor: obstacle detected
	EvObstacleClear                   // bumper/range sensor: obstacle cleared
	EvLowBattery                      // BMS: battery critical
	EvDockFound                       // IR sensor: dock detected

	AllEvents = EvStart | EvStop | EvObstacle | EvObstacleClear | EvLowBattery | EvDockFound
)

var eventNames = map[Event]string{
	EvStart:         "start",
	EvStop:          "stop",
	EvObstacle:      "obstacle",
	EvObstacleClear: "obstacle-clear",
	EvLowBattery:    "low-battery",
	EvDockFound:     "dock-found",
}

// FormatEvents renders an event set, e.g. "start|obstacle".
func FormatEvents(e Event) string {
	return e.Format(eventNames)
}

// ParseEvent parses a single event name as rendered by FormatEvents.
func ParseEvent(name string) (Event, error) {
	for ev, n := range eventNames {
		if strings.EqualFold(n, name) {
			return ev, nil
		}
	}
	return 0, fmt.Errorf("unknown event %q", name)
}
