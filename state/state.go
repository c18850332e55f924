package state

import (
	"errors"
	"sync"
)

// Phase is a room's round stage.
type Phase string

const (
	Waiting   Phase = "WAITING"
	Answering Phase = "ANSWERING"
	Voting    Phase = "VOTING"
	Results   Phase = "RESULTS"
	GameOver  Phase = "GAME_OVER"
)

// Action names an inbound player action.
type Action string

const (
	ActionJoin         Action = "join"
	ActionRequestStart Action = "request-start"
	ActionSubmitAnswer Action = "submit-answer"
	ActionSubmitVote   Action = "submit-vote"
	ActionLeave        Action = "leave"
)

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// acceptedIn lists the phases each phase-gated action is valid in. Actions
// absent from the map are accepted in every phase.
var acceptedIn = map[Action][]Phase{
	ActionRequestStart: {Waiting},
	ActionSubmitAnswer: {Answering},
	ActionSubmitVote:   {Voting},
}

// Accepts reports whether action may be applied while in phase.
func Accepts(phase Phase, action Action) bool {
	phases, gated := acceptedIn[action]
	if !gated {
		return true
	}
	for _, p := range phases {
		if p == phase {
			return true
		}
	}
	return false
}

// Machine tracks the current phase and only moves along registered edges.
type Machine struct {
	current     Phase
	transitions map[Phase]map[Phase]func() bool // from -> to -> condition
	mutex       sync.RWMutex
}

func NewMachine(initial Phase) *Machine {
	return &Machine{
		current:     initial,
		transitions: make(map[Phase]map[Phase]func() bool),
	}
}

// NewRoundMachine returns a machine wired with the round lifecycle:
// WAITING -> ANSWERING -> VOTING -> RESULTS -> (ANSWERING | GAME_OVER).
func NewRoundMachine() *Machine {
	m := NewMachine(Waiting)
	m.AddTransition(Waiting, Answering, nil)
	m.AddTransition(Answering, Voting, nil)
	m.AddTransition(Voting, Results, nil)
	m.AddTransition(Results, Answering, nil)
	m.AddTransition(Results, GameOver, nil)
	return m
}

// AddTransition registers from -> to. A nil condition always allows it.
func (m *Machine) AddTransition(from, to Phase, condition func() bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.transitions[from]; !exists {
		m.transitions[from] = make(map[Phase]func() bool)
	}
	m.transitions[from][to] = condition
}

func (m *Machine) ChangeState(to Phase) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	condition, exists := m.transitions[m.current][to]
	if !exists {
		return ErrTransitionNotAllowed
	}
	if condition != nil && !condition() {
		return ErrTransitionNotAllowed
	}

	m.current = to
	return nil
}

func (m *Machine) Current() Phase {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// Terminal reports whether no transition leaves the current phase.
func (m *Machine) Terminal() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.transitions[m.current]) == 0
}
