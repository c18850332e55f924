// Package round runs the per-room game state machine: joining, starting,
// answering, voting, scoring and departures.
package round

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wfunc/whosaidit/logger"
	"github.com/wfunc/whosaidit/models"
	"github.com/wfunc/whosaidit/network"
	"github.com/wfunc/whosaidit/question"
	"github.com/wfunc/whosaidit/room"
	"github.com/wfunc/whosaidit/session"
	"github.com/wfunc/whosaidit/state"
)

const archiveTimeout = 5 * time.Second

// Publisher delivers named events. It is defined here to keep the engine
// independent of the transport; failures are logged and never abort a
// transition.
type Publisher interface {
	PublishToRoom(roomID, event string, payload interface{}) error
	PublishTo(playerID, event string, payload interface{}) error
}

// Scheduler runs delayed callbacks; timer.TimerManager satisfies it.
type Scheduler interface {
	AddTimer(delay time.Duration, interval time.Duration, callback func()) int64
	RemoveTimer(timerID int64)
}

// Metrics receives lifecycle counts; monitor.Monitor satisfies it.
type Metrics interface {
	RoomOpened()
	RoomClosed()
	RoundCompleted()
	GameFinished()
}

// Archive stores finished games; persistence.Database satisfies it.
type Archive interface {
	SaveGameRecord(ctx context.Context, record *models.GameRecord) error
}

type Settings struct {
	DefaultRounds   int
	MaxRounds       int
	TruthBonus      int
	QuestionDelay   time.Duration
	RoundDelay      time.Duration
	GameOverDelay   time.Duration
	SubjectFallback string
}

func DefaultSettings() Settings {
	return Settings{
		DefaultRounds:   5,
		MaxRounds:       20,
		TruthBonus:      10,
		QuestionDelay:   2 * time.Second,
		RoundDelay:      5 * time.Second,
		GameOverDelay:   3 * time.Second,
		SubjectFallback: "someone",
	}
}

type Option func(*Engine)

func WithRand(r Rand) Option {
	return func(e *Engine) { e.rng = r }
}

func WithSettings(s Settings) Option {
	return func(e *Engine) { e.settings = s }
}

func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithArchive(a Archive) Option {
	return func(e *Engine) { e.archive = a }
}

// Engine is the single entry point for player actions. Each action locks only
// the room it targets, so rooms progress independently while actions within
// one room never interleave.
type Engine struct {
	players  *session.Manager
	rooms    *room.Manager
	pool     *question.Pool
	pub      Publisher
	sched    Scheduler
	rng      Rand
	settings Settings
	metrics  Metrics
	archive  Archive
}

func NewEngine(players *session.Manager, rooms *room.Manager, pool *question.Pool, pub Publisher, sched Scheduler, opts ...Option) *Engine {
	e := &Engine{
		players:  players,
		rooms:    rooms,
		pool:     pool,
		pub:      pub,
		sched:    sched,
		rng:      NewRand(0),
		settings: DefaultSettings(),
		metrics:  nopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --- inbound actions ---

// Join registers playerID under name and adds it to roomID, creating the room
// on first use. Joining another room first leaves the current one.
func (e *Engine) Join(playerID, roomID, name string) {
	roomID = strings.TrimSpace(roomID)
	name = strings.TrimSpace(name)
	if roomID == "" || name == "" {
		e.notify(playerID, "Please enter both a name and a room.")
		return
	}

	if p, ok := e.players.Lookup(playerID); ok && p.RoomID() != "" && p.RoomID() != roomID {
		e.leaveRoom(p)
	}

	for {
		r, created := e.rooms.EnsureRoom(roomID)
		r.Lock()
		if r.Closed() {
			// Lost a race with the last player leaving; the id is free again.
			r.Unlock()
			continue
		}
		if created {
			e.metrics.RoomOpened()
			logger.Log.Infof("Room %s created", roomID)
		}
		// Bound under the room lock so room broadcasts only reach members.
		p := e.players.Register(playerID, name, roomID)
		e.admit(r, p)
		r.Unlock()
		return
	}
}

// Start begins the game if playerID hosts a WAITING room.
func (e *Engine) Start(playerID, maxRounds string) {
	e.withRoom(playerID, func(p *session.Session, r *room.Room) {
		if !state.Accepts(r.Phase(), state.ActionRequestStart) {
			logger.Log.Debugf("Room %s: start from %s ignored in %s", r.ID, p.ID, r.Phase())
			e.notify(p.ID, "The game has already started.")
			return
		}
		if r.HostID() != p.ID {
			logger.Log.Debugf("Room %s: start from non-host %s ignored", r.ID, p.ID)
			e.notify(p.ID, "Only the host can start the game.")
			return
		}

		r.MaxRounds = ParseRounds(maxRounds, e.settings.DefaultRounds, e.settings.MaxRounds)
		r.CurrentRound = 1
		logger.Log.Infof("Room %s: game started by %s for %d rounds", r.ID, p.Name(), r.MaxRounds)
		e.startRound(r)
	})
}

// SubmitAnswer records playerID's answer for the current round.
func (e *Engine) SubmitAnswer(playerID, text string) {
	text = strings.TrimSpace(text)
	e.withRoom(playerID, func(p *session.Session, r *room.Room) {
		if !state.Accepts(r.Phase(), state.ActionSubmitAnswer) {
			logger.Log.Debugf("Room %s: answer from %s ignored in %s", r.ID, p.ID, r.Phase())
			return
		}
		if text == "" {
			e.notify(p.ID, "Your answer cannot be empty.")
			return
		}

		r.RecordAnswer(p.ID, text)
		if answeringComplete(r) {
			e.beginVoting(r)
			return
		}
		e.send(p.ID, network.EventWaitStatus, network.MessagePayload{Message: "Waiting for others to answer..."})
	})
}

// SubmitVote applies playerID's ballot. Either index may be nil; an index
// that does not name another player's answer is dropped on its own.
func (e *Engine) SubmitVote(playerID string, truthIndex, funnyIndex *int) {
	e.withRoom(playerID, func(p *session.Session, r *room.Room) {
		if !state.Accepts(r.Phase(), state.ActionSubmitVote) {
			logger.Log.Debugf("Room %s: vote from %s ignored in %s", r.ID, p.ID, r.Phase())
			return
		}
		if r.HasVoted(p.ID) {
			e.notify(p.ID, "You have already voted this round.")
			return
		}

		if a, ok := e.ballotTarget(r, p.ID, truthIndex); ok {
			a.TruthVotes++
			e.award(truthVoteBeneficiary(p.ID, a))
		}
		if a, ok := e.ballotTarget(r, p.ID, funnyIndex); ok {
			a.FunnyVotes++
		}
		r.RecordVoter(p.ID)

		if votingComplete(r) {
			e.finishRound(r)
			return
		}
		e.send(p.ID, network.EventWaitStatus, network.MessagePayload{Message: "Waiting for others to vote..."})
	})
}

// Leave takes playerID out of its room and discards its player record; the
// connection stays registered and may join again.
func (e *Engine) Leave(playerID string) {
	p, ok := e.players.Lookup(playerID)
	if !ok {
		return
	}
	e.leaveRoom(p)
	p.Detach()
}

// Disconnect is Leave followed by forgetting the connection entirely.
func (e *Engine) Disconnect(playerID string) {
	p, ok := e.players.Lookup(playerID)
	if !ok {
		return
	}
	e.leaveRoom(p)
	e.players.Remove(playerID)
}

// --- transitions (room lock held) ---

func (e *Engine) admit(r *room.Room, p *session.Session) {
	rejoined := r.HasPlayer(p.ID)
	becameHost := r.AddPlayer(p.ID)

	if !rejoined {
		e.publish(r.ID, network.EventNotice, network.MessagePayload{Message: fmt.Sprintf("%s has joined the room!", p.Name())})
		if r.Phase() == state.Waiting {
			e.publish(r.ID, network.EventWaitStatus, network.MessagePayload{
				Message: fmt.Sprintf("Waiting for players... (%d joined)", r.PlayerCount()),
			})
		}
	}
	e.publishPlayerList(r)
	if becameHost {
		e.send(p.ID, network.EventBecameHost, struct{}{})
	}

	// Late joiners get the state they missed.
	switch r.Phase() {
	case state.Answering:
		if r.Question != "" {
			e.send(p.ID, network.EventRoundStarted, network.RoundStartedPayload{
				Round: r.CurrentRound, MaxRounds: r.MaxRounds, Question: r.Question,
			})
		}
	case state.Voting:
		e.send(p.ID, network.EventVotingStarted, network.VotingStartedPayload{Answers: votingEntries(r.Answers)})
	case state.GameOver:
		e.send(p.ID, network.EventWaitStatus, network.MessagePayload{Message: "This game is over."})
	}
}

func (e *Engine) startRound(r *room.Room) {
	q := e.pool.Pick(e.rng)
	text := q.Text
	subjectID := ""
	if q.HasSubject() {
		name := e.settings.SubjectFallback
		if ids := r.Players(); len(ids) > 0 {
			id := ids[e.rng.Intn(len(ids))]
			if sp, ok := e.players.Lookup(id); ok {
				name = sp.Name()
				subjectID = id
			}
		}
		text = q.Render(name)
	}

	r.ResetRound()
	r.SubjectID = subjectID
	if err := r.ChangePhase(state.Answering); err != nil {
		logger.Log.Errorf("Room %s: cannot start round from %s: %v", r.ID, r.Phase(), err)
		return
	}
	logger.Log.Infof("Room %s: round %d of %d started", r.ID, r.CurrentRound, r.MaxRounds)

	e.publish(r.ID, network.EventWaitStatus, network.MessagePayload{
		Message: fmt.Sprintf("Starting Round %d of %d...", r.CurrentRound, r.MaxRounds),
	})
	e.after(r, e.settings.QuestionDelay, func(r *room.Room) {
		r.Question = text
		e.publish(r.ID, network.EventRoundStarted, network.RoundStartedPayload{
			Round: r.CurrentRound, MaxRounds: r.MaxRounds, Question: text,
		})
	})
}

func (e *Engine) beginVoting(r *room.Room) {
	e.rng.Shuffle(len(r.Answers), func(i, j int) {
		r.Answers[i], r.Answers[j] = r.Answers[j], r.Answers[i]
	})
	if err := r.ChangePhase(state.Voting); err != nil {
		logger.Log.Errorf("Room %s: cannot begin voting from %s: %v", r.ID, r.Phase(), err)
		return
	}
	logger.Log.Infof("Room %s: voting on %d answers", r.ID, len(r.Answers))
	e.publish(r.ID, network.EventVotingStarted, network.VotingStartedPayload{Answers: votingEntries(r.Answers)})
}

func (e *Engine) finishRound(r *room.Room) {
	if err := r.ChangePhase(state.Results); err != nil {
		logger.Log.Errorf("Room %s: cannot show results from %s: %v", r.ID, r.Phase(), err)
		return
	}
	e.publish(r.ID, network.EventResults, network.ResultsPayload{
		Round:     r.CurrentRound,
		MaxRounds: r.MaxRounds,
		Answers:   resultEntries(e.players, r.Answers, e.settings.SubjectFallback),
		Scores:    scoreEntries(standings(e.players, r.Players())),
	})
	e.metrics.RoundCompleted()
	logger.Log.Infof("Room %s: round %d of %d finished", r.ID, r.CurrentRound, r.MaxRounds)

	if r.CurrentRound < r.MaxRounds {
		r.CurrentRound++
		e.after(r, e.settings.RoundDelay, e.startRound)
		return
	}
	e.after(r, e.settings.GameOverDelay, e.endGame)
}

func (e *Engine) endGame(r *room.Room) {
	if err := r.ChangePhase(state.GameOver); err != nil {
		logger.Log.Errorf("Room %s: cannot end game from %s: %v", r.ID, r.Phase(), err)
		return
	}
	st := standings(e.players, r.Players())
	e.publish(r.ID, network.EventGameOver, network.GameOverPayload{Scores: scoreEntries(st)})
	e.metrics.GameFinished()
	logger.Log.Infof("Room %s: game over after %d rounds", r.ID, r.MaxRounds)

	if e.archive == nil {
		return
	}
	record := &models.GameRecord{
		RoomID:     r.ID,
		Rounds:     r.MaxRounds,
		Players:    playerResults(st),
		FinishedAt: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := e.archive.SaveGameRecord(ctx, record); err != nil {
			logger.Log.Warnf("Room %s: failed to archive game: %v", record.RoomID, err)
		}
	}()
}

func (e *Engine) leaveRoom(p *session.Session) {
	roomID := p.RoomID()
	if roomID == "" {
		return
	}
	name := p.Name()

	r, ok := e.rooms.GetRoom(roomID)
	if !ok {
		p.ClearRoom()
		return
	}
	r.Lock()
	defer r.Unlock()
	// Unbound under the room lock so the leaver misses the broadcasts below.
	p.ClearRoom()
	if r.Closed() {
		return
	}

	d := e.rooms.RemovePlayer(r, p.ID)
	if !d.Removed {
		return
	}
	if d.Destroyed {
		e.cancelTimers(r)
		e.metrics.RoomClosed()
		logger.Log.Infof("Room %s destroyed after %s left", roomID, name)
		return
	}

	e.publish(r.ID, network.EventNotice, network.MessagePayload{Message: fmt.Sprintf("%s has left the room.", name)})
	e.publishPlayerList(r)
	if d.NewHost != "" {
		e.send(d.NewHost, network.EventBecameHost, struct{}{})
	}

	// Thresholds are measured against the players still here.
	switch r.Phase() {
	case state.Answering:
		if answeringComplete(r) {
			e.beginVoting(r)
		}
	case state.Voting:
		if votingComplete(r) {
			e.finishRound(r)
		} else if d.DroppedAnswer {
			e.publish(r.ID, network.EventVotingStarted, network.VotingStartedPayload{Answers: votingEntries(r.Answers)})
		}
	}
}

// --- helpers ---

// withRoom runs fn with playerID's room locked. Unknown connections, players
// outside a room and destroyed rooms are ignored.
func (e *Engine) withRoom(playerID string, fn func(p *session.Session, r *room.Room)) {
	p, ok := e.players.Lookup(playerID)
	if !ok || p.RoomID() == "" {
		return
	}
	r, ok := e.rooms.GetRoom(p.RoomID())
	if !ok {
		return
	}

	r.Lock()
	defer r.Unlock()
	if r.Closed() || !r.HasPlayer(playerID) {
		return
	}
	fn(p, r)
}

// after runs fn once d has elapsed, unless the room is destroyed or has moved
// to another phase in the meantime.
func (e *Engine) after(r *room.Room, d time.Duration, fn func(*room.Room)) {
	if d <= 0 {
		fn(r)
		return
	}

	epoch := r.Epoch()
	var id int64
	id = e.sched.AddTimer(d, 0, func() {
		r.Lock()
		defer r.Unlock()
		r.UntrackTimer(id)
		if r.Closed() || r.Epoch() != epoch {
			return
		}
		fn(r)
	})
	r.TrackTimer(id)
}

func (e *Engine) cancelTimers(r *room.Room) {
	for _, id := range r.PendingTimers() {
		e.sched.RemoveTimer(id)
		r.UntrackTimer(id)
	}
}

func (e *Engine) ballotTarget(r *room.Room, voterID string, index *int) (*room.Answer, bool) {
	if index == nil {
		return nil, false
	}
	a, ok := r.Answer(*index)
	if !ok || a.AuthorID == voterID {
		return nil, false
	}
	return a, true
}

func (e *Engine) award(playerID string) {
	if p, ok := e.players.Lookup(playerID); ok {
		p.AddScore(e.settings.TruthBonus)
	}
}

func answeringComplete(r *room.Room) bool {
	return r.PlayerCount() > 0 && len(r.Answers) >= r.PlayerCount()
}

func votingComplete(r *room.Room) bool {
	return r.PlayerCount() > 0 && r.VoterCount() >= r.PlayerCount()
}

func (e *Engine) publishPlayerList(r *room.Room) {
	ids := r.Players()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if p, ok := e.players.Lookup(id); ok {
			names = append(names, p.Name())
		}
	}
	e.publish(r.ID, network.EventPlayerListUpdated, network.PlayerListPayload{Players: names})
}

func (e *Engine) publish(roomID, event string, payload interface{}) {
	if err := e.pub.PublishToRoom(roomID, event, payload); err != nil {
		logger.Log.Warnf("Room %s: publishing %s failed: %v", roomID, event, err)
	}
}

func (e *Engine) send(playerID, event string, payload interface{}) {
	if err := e.pub.PublishTo(playerID, event, payload); err != nil {
		logger.Log.Debugf("Sending %s to %s failed: %v", event, playerID, err)
	}
}

func (e *Engine) notify(playerID, message string) {
	e.send(playerID, network.EventNotice, network.MessagePayload{Message: message})
}

type nopMetrics struct{}

func (nopMetrics) RoomOpened()     {}
func (nopMetrics) RoomClosed()     {}
func (nopMetrics) RoundCompleted() {}
func (nopMetrics) GameFinished()   {}
