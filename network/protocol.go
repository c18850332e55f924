package network

import "encoding/json"

// Inbound events.
const (
	EventJoin         = "join"
	EventRequestStart = "request-start"
	EventSubmitAnswer = "submit-answer"
	EventSubmitVote   = "submit-vote"
	EventLeave        = "leave"
	EventHeartbeat    = "heartbeat"
)

// Outbound events.
const (
	EventBecameHost        = "became-host"
	EventPlayerListUpdated = "player-list-updated"
	EventWaitStatus        = "wait-status"
	EventRoundStarted      = "round-started"
	EventVotingStarted     = "voting-started"
	EventResults           = "results"
	EventGameOver          = "game-over"
	EventNotice            = "notice"
)

// Envelope is the JSON frame carried by every websocket text message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinRequest struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

// StartRequest keeps MaxRounds raw: clients send numbers or strings.
type StartRequest struct {
	MaxRounds json.RawMessage `json:"max_rounds"`
}

type AnswerRequest struct {
	Text string `json:"text"`
}

type VoteRequest struct {
	TruthIndex *int `json:"truth_index"`
	FunnyIndex *int `json:"funny_index"`
}

type MessagePayload struct {
	Message string `json:"message"`
}

type PlayerListPayload struct {
	Players []string `json:"players"`
}

type RoundStartedPayload struct {
	Round     int    `json:"round"`
	MaxRounds int    `json:"max_rounds"`
	Question  string `json:"question"`
}

// VotingEntry deliberately carries no author or truth metadata.
type VotingEntry struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type VotingStartedPayload struct {
	Answers []VotingEntry `json:"answers"`
}

type ResultEntry struct {
	Author     string `json:"author"`
	Text       string `json:"text"`
	TruthVotes int    `json:"truth_votes"`
	FunnyVotes int    `json:"funny_votes"`
	IsTruth    bool   `json:"is_truth"`
}

type ScoreEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type ResultsPayload struct {
	Round     int           `json:"round"`
	MaxRounds int           `json:"max_rounds"`
	Answers   []ResultEntry `json:"answers"`
	Scores    []ScoreEntry  `json:"scores"`
}

type GameOverPayload struct {
	Scores []ScoreEntry `json:"scores"`
}
