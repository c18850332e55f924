package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wfunc/whosaidit/network"
)

var errQuit = errors.New("quit")

const usage = `commands:
  join <room> <name>       join or create a room
  start [rounds]           start the game (host only)
  answer <text>            answer the current question
  vote <truth> [funny]     vote by answer index
  leave                    leave the room
  quit                     disconnect`

// parseCommand turns a typed line into an outbound event.
func parseCommand(line string) (string, interface{}, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "join":
		if len(args) < 2 {
			return "", nil, fmt.Errorf("usage: join <room> <name>")
		}
		return network.EventJoin, network.JoinRequest{Room: args[0], Name: strings.Join(args[1:], " ")}, nil
	case "start":
		req := network.StartRequest{}
		if len(args) > 0 {
			raw, _ := json.Marshal(args[0])
			req.MaxRounds = raw
		}
		return network.EventRequestStart, req, nil
	case "answer":
		if len(args) == 0 {
			return "", nil, fmt.Errorf("usage: answer <text>")
		}
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		return network.EventSubmitAnswer, network.AnswerRequest{Text: text}, nil
	case "vote":
		if len(args) == 0 || len(args) > 2 {
			return "", nil, fmt.Errorf("usage: vote <truth> [funny]")
		}
		req := network.VoteRequest{}
		truth, err := strconv.Atoi(args[0])
		if err != nil {
			return "", nil, fmt.Errorf("truth index: %w", err)
		}
		req.TruthIndex = &truth
		if len(args) == 2 {
			funny, err := strconv.Atoi(args[1])
			if err != nil {
				return "", nil, fmt.Errorf("funny index: %w", err)
			}
			req.FunnyIndex = &funny
		}
		return network.EventSubmitVote, req, nil
	case "leave":
		return network.EventLeave, struct{}{}, nil
	case "quit", "exit":
		return "", nil, errQuit
	default:
		return "", nil, fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

// render formats an inbound event for the terminal.
func render(env *network.Envelope) string {
	switch env.Event {
	case network.EventBecameHost:
		return "* You are the host. Type 'start' when everyone is here."
	case network.EventNotice, network.EventWaitStatus:
		var p network.MessagePayload
		if json.Unmarshal(env.Data, &p) == nil {
			return "* " + p.Message
		}
	case network.EventPlayerListUpdated:
		var p network.PlayerListPayload
		if json.Unmarshal(env.Data, &p) == nil {
			return "Players: " + strings.Join(p.Players, ", ")
		}
	case network.EventRoundStarted:
		var p network.RoundStartedPayload
		if json.Unmarshal(env.Data, &p) == nil {
			return fmt.Sprintf("Round %d of %d: %s", p.Round, p.MaxRounds, p.Question)
		}
	case network.EventVotingStarted:
		var p network.VotingStartedPayload
		if json.Unmarshal(env.Data, &p) == nil {
			var b strings.Builder
			b.WriteString("Vote! (vote <truth> [funny])")
			for _, a := range p.Answers {
				fmt.Fprintf(&b, "\n  [%d] %s", a.Index, a.Text)
			}
			return b.String()
		}
	case network.EventResults:
		var p network.ResultsPayload
		if json.Unmarshal(env.Data, &p) == nil {
			var b strings.Builder
			fmt.Fprintf(&b, "Results for round %d of %d:", p.Round, p.MaxRounds)
			for _, a := range p.Answers {
				mark := ""
				if a.IsTruth {
					mark = " (TRUTH)"
				}
				fmt.Fprintf(&b, "\n  %s: %s%s  truth=%d funny=%d", a.Author, a.Text, mark, a.TruthVotes, a.FunnyVotes)
			}
			writeScores(&b, p.Scores)
			return b.String()
		}
	case network.EventGameOver:
		var p network.GameOverPayload
		if json.Unmarshal(env.Data, &p) == nil {
			var b strings.Builder
			b.WriteString("Game over!")
			writeScores(&b, p.Scores)
			return b.String()
		}
	}
	return fmt.Sprintf("<- %s %s", env.Event, env.Data)
}

func writeScores(b *strings.Builder, scores []network.ScoreEntry) {
	b.WriteString("\nScores:")
	for _, s := range scores {
		fmt.Fprintf(b, "\n  %-12s %d", s.Name, s.Score)
	}
}
