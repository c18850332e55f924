// room/room.go
package room

import (
	"sync"
	"time"

	"github.com/wfunc/whosaidit/state"
)

// Answer is one player's submission for the current round.
type Answer struct {
	AuthorID   string
	Text       string
	TruthVotes int
	FunnyVotes int
	IsTruth    bool
}

// Room is the aggregate for one game session. Every method except ID access
// expects the caller to hold the room lock (Lock/Unlock): actions on a room
// execute one at a time.
type Room struct {
	ID        string
	CreatedAt time.Time

	CurrentRound int
	MaxRounds    int
	SubjectID    string
	Question     string
	Answers      []*Answer

	players []string
	hostID  string
	machine *state.Machine
	voters  map[string]struct{}
	epoch   uint64
	timers  map[int64]struct{}
	closed  bool
	mu      sync.Mutex
}

func NewRoom(id string) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		machine:   state.NewRoundMachine(),
		voters:    make(map[string]struct{}),
		timers:    make(map[int64]struct{}),
	}
}

func (r *Room) Lock() {
	r.mu.Lock()
}

func (r *Room) Unlock() {
	r.mu.Unlock()
}

// Closed reports whether the room was destroyed. A closed room must not be
// mutated; callers that raced with destruction should re-resolve the id.
func (r *Room) Closed() bool {
	return r.closed
}

// --- membership ---

// Players returns member ids in join order.
func (r *Room) Players() []string {
	return append([]string(nil), r.players...)
}

func (r *Room) PlayerCount() int {
	return len(r.players)
}

func (r *Room) HasPlayer(playerID string) bool {
	for _, id := range r.players {
		if id == playerID {
			return true
		}
	}
	return false
}

func (r *Room) HostID() string {
	return r.hostID
}

// AddPlayer appends playerID if absent. It reports true when the player
// became host because the room had none.
func (r *Room) AddPlayer(playerID string) (becameHost bool) {
	if !r.HasPlayer(playerID) {
		r.players = append(r.players, playerID)
	}
	if r.hostID == "" {
		r.hostID = playerID
		return true
	}
	return false
}

// removePlayer drops playerID and its round data. It returns the new host if
// the host changed to another member.
func (r *Room) removePlayer(playerID string) (removed bool, newHost string) {
	idx := -1
	for i, id := range r.players {
		if id == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, ""
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)

	r.DropAnswer(playerID)
	delete(r.voters, playerID)
	if r.SubjectID == playerID {
		r.SubjectID = ""
	}

	if r.hostID == playerID {
		r.hostID = ""
		if len(r.players) > 0 {
			r.hostID = r.players[0]
			newHost = r.hostID
		}
	}
	return true, newHost
}

// --- phase ---

func (r *Room) Phase() state.Phase {
	return r.machine.Current()
}

// ChangePhase moves the machine and bumps the epoch so timers scheduled for
// the previous phase become no-ops.
func (r *Room) ChangePhase(to state.Phase) error {
	if err := r.machine.ChangeState(to); err != nil {
		return err
	}
	r.epoch++
	return nil
}

func (r *Room) Epoch() uint64 {
	return r.epoch
}

// --- round data ---

// ResetRound clears answers, votes and the subject.
func (r *Room) ResetRound() {
	r.Answers = nil
	r.voters = make(map[string]struct{})
	r.SubjectID = ""
	r.Question = ""
}

func (r *Room) AnswerIndex(playerID string) int {
	for i, a := range r.Answers {
		if a.AuthorID == playerID {
			return i
		}
	}
	return -1
}

// RecordAnswer stores playerID's answer, overwriting an earlier one from the
// same player. It reports whether a new entry was created.
func (r *Room) RecordAnswer(playerID, text string) bool {
	if i := r.AnswerIndex(playerID); i >= 0 {
		r.Answers[i].Text = text
		return false
	}
	r.Answers = append(r.Answers, &Answer{
		AuthorID: playerID,
		Text:     text,
		IsTruth:  r.SubjectID != "" && playerID == r.SubjectID,
	})
	return true
}

// DropAnswer removes playerID's answer, reporting whether one existed.
func (r *Room) DropAnswer(playerID string) bool {
	i := r.AnswerIndex(playerID)
	if i < 0 {
		return false
	}
	r.Answers = append(r.Answers[:i], r.Answers[i+1:]...)
	return true
}

func (r *Room) Answer(index int) (*Answer, bool) {
	if index < 0 || index >= len(r.Answers) {
		return nil, false
	}
	return r.Answers[index], true
}

func (r *Room) HasVoted(playerID string) bool {
	_, ok := r.voters[playerID]
	return ok
}

func (r *Room) RecordVoter(playerID string) {
	r.voters[playerID] = struct{}{}
}

func (r *Room) VoterCount() int {
	return len(r.voters)
}

// --- timers ---

func (r *Room) TrackTimer(id int64) {
	r.timers[id] = struct{}{}
}

func (r *Room) UntrackTimer(id int64) {
	delete(r.timers, id)
}

// PendingTimers returns the ids of timers scheduled for this room.
func (r *Room) PendingTimers() []int64 {
	ids := make([]int64, 0, len(r.timers))
	for id := range r.timers {
		ids = append(ids, id)
	}
	return ids
}

// --- room store ---

// Departure describes the outcome of removing a player from a room.
type Departure struct {
	Removed   bool
	NewHost   string
	Destroyed bool
	// DroppedAnswer is set when the player's answer was withdrawn.
	DroppedAnswer bool
}

// Manager owns room lifecycle: rooms are created on first join and destroyed
// when their last player leaves.
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex
}

func NewRoomManager() *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
	}
}

// EnsureRoom returns the room for id, creating a fresh WAITING room if needed.
func (m *Manager) EnsureRoom(id string) (room *Room, created bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[id]; exists {
		return room, false
	}
	room = NewRoom(id)
	m.rooms[id] = room
	return room, true
}

func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// RemovePlayer removes playerID from r, which the caller has locked. When r
// becomes empty it is closed and forgotten, together with its round data.
func (m *Manager) RemovePlayer(r *Room, playerID string) Departure {
	hadAnswer := r.AnswerIndex(playerID) >= 0
	removed, newHost := r.removePlayer(playerID)
	if !removed {
		return Departure{}
	}

	d := Departure{Removed: true, NewHost: newHost, DroppedAnswer: hadAnswer}
	if len(r.players) == 0 {
		m.destroy(r)
		d.Destroyed = true
	}
	return d
}

func (m *Manager) destroy(r *Room) {
	r.closed = true
	r.ResetRound()

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.rooms[r.ID] == r {
		delete(m.rooms, r.ID)
	}
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}
