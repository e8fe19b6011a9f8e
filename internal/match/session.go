package match

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rps_arena/internal/game"
	"rps_arena/internal/logger"
	"rps_arena/internal/protocol"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

var (
	// ErrInvalidState signals a broken call contract, never bad client input.
	ErrInvalidState = errors.New("invalid session state")

	errNoSink = errors.New("participant has no sink")
)

// RoundOutcome is the result of one resolved round. Winner is empty on a draw.
type RoundOutcome struct {
	Round  int
	Winner string
	Moves  map[string]game.Choice
	Scores map[string]int
}

func (o RoundOutcome) Draw() bool { return o.Winner == "" }

// Session is one match between two participants. It is not safe for
// concurrent use; the Matchmaker serializes access through its registry entry.
type Session struct {
	ID string

	cfg       Config
	players   []Participant
	round     int
	scores    map[string]int
	moves     map[string]game.Move
	status    Status
	createdAt time.Time
	log       *slog.Logger
}

func NewSession(id string, cfg Config) *Session {
	return &Session{
		ID:        id,
		cfg:       cfg,
		players:   make([]Participant, 0, cfg.MaxPlayers),
		round:     1,
		scores:    make(map[string]int),
		moves:     make(map[string]game.Move),
		status:    StatusWaiting,
		createdAt: time.Now(),
		log:       logger.With("session", id),
	}
}

func (s *Session) Round() int           { return s.round }
func (s *Session) Status() Status       { return s.status }
func (s *Session) CreatedAt() time.Time { return s.createdAt }
func (s *Session) PendingMoves() int    { return len(s.moves) }

func (s *Session) ParticipantIDs() []string {
	ids := make([]string, len(s.players))
	for i, p := range s.players {
		ids[i] = p.ID
	}
	return ids
}

// Scores returns a copy of the cumulative scores.
func (s *Session) Scores() map[string]int {
	out := make(map[string]int, len(s.scores))
	for id, v := range s.scores {
		out[id] = v
	}
	return out
}

func (s *Session) Has(id string) bool {
	_, ok := s.scores[id]
	return ok
}

// Join adds p unless the session is full. The session starts playing once
// the configured minimum is present.
func (s *Session) Join(p Participant) bool {
	if len(s.players) >= s.cfg.MaxPlayers || s.Has(p.ID) || s.status == StatusFinished {
		return false
	}

	s.players = append(s.players, p)
	s.scores[p.ID] = 0

	if len(s.players) >= s.cfg.MinPlayers {
		s.status = StatusPlaying
	}
	return true
}

// SubmitMove records (or overwrites) the participant's move for the current
// round and reports whether every participant has now moved. Unknown
// choices are ignored.
func (s *Session) SubmitMove(id string, c game.Choice) bool {
	if !c.Valid() || s.status != StatusPlaying || !s.Has(id) {
		return false
	}

	s.moves[id] = game.NewMove(c)
	return len(s.moves) == len(s.players)
}

// ResolveRound scores the current round and clears its moves. The round
// counter is left for AdvanceRound.
func (s *Session) ResolveRound() (RoundOutcome, error) {
	if len(s.players) != 2 {
		return RoundOutcome{}, fmt.Errorf("%w: resolve with %d participants", ErrInvalidState, len(s.players))
	}

	a, b := s.players[0].ID, s.players[1].ID
	moveA, okA := s.moves[a]
	moveB, okB := s.moves[b]
	if !okA || !okB || len(s.moves) != 2 {
		return RoundOutcome{}, fmt.Errorf("%w: resolve round %d with %d of 2 moves", ErrInvalidState, s.round, len(s.moves))
	}

	var winner string
	switch game.Resolve(moveA.Choice, moveB.Choice) {
	case game.AWins:
		winner = a
	case game.BWins:
		winner = b
	}
	if winner != "" {
		s.scores[winner]++
	}

	out := RoundOutcome{
		Round:  s.round,
		Winner: winner,
		Moves:  map[string]game.Choice{a: moveA.Choice, b: moveB.Choice},
		Scores: s.Scores(),
	}
	clear(s.moves)

	s.log.Info("round resolved", "round", out.Round, "winner", winner, "moves", out.Moves)
	return out, nil
}

// ShouldEnd reports whether the match is over: someone reached the win
// threshold or the round limit is hit. Ties at the limit end as a draw.
func (s *Session) ShouldEnd() bool {
	for _, v := range s.scores {
		if v >= s.cfg.WinThreshold {
			return true
		}
	}
	return s.round >= s.cfg.MaxRounds
}

func (s *Session) AdvanceRound() {
	s.round++
	clear(s.moves)
}

// Finish closes the match and returns the unique top scorer, if any.
func (s *Session) Finish() (string, bool) {
	s.status = StatusFinished

	best, winner, tied := -1, "", false
	for _, p := range s.players {
		switch v := s.scores[p.ID]; {
		case v > best:
			best, winner, tied = v, p.ID, false
		case v == best:
			tied = true
		}
	}
	if tied || winner == "" {
		return "", false
	}
	return winner, true
}

// Start announces the match to every participant.
func (s *Session) Start() {
	players := make([]protocol.PlayerInfo, len(s.players))
	for i, p := range s.players {
		players[i] = protocol.PlayerInfo{ID: p.ID}
	}

	s.broadcast(protocol.Message{Type: protocol.MsgGameStart, Payload: protocol.GameStartPayload{
		RoomID:    s.ID,
		Players:   players,
		MaxRounds: s.cfg.MaxRounds,
	}})
}

func (s *Session) announceRound(out RoundOutcome) {
	moves := make(map[string]string, len(out.Moves))
	for id, c := range out.Moves {
		moves[id] = string(c)
	}

	s.broadcast(protocol.Message{Type: protocol.MsgRoundResult, Payload: protocol.RoundResultPayload{
		Round:  out.Round,
		Winner: optional(out.Winner),
		Moves:  moves,
		Scores: out.Scores,
	}})
}

func (s *Session) announceNext() {
	s.broadcast(protocol.Message{Type: protocol.MsgNextRound, Payload: protocol.NextRoundPayload{Round: s.round}})
}

func (s *Session) announceEnd(winner string) {
	s.broadcast(protocol.Message{Type: protocol.MsgGameEnd, Payload: protocol.GameEndPayload{
		Winner:      optional(winner),
		FinalScores: s.Scores(),
	}})
}

// NotifyLeft tells everyone but the leaver that the match is abandoned.
func (s *Session) NotifyLeft(leaver string) {
	msg := protocol.Message{Type: protocol.MsgPlayerLeft, Payload: protocol.PlayerLeftPayload{PlayerID: leaver}}
	for _, p := range s.players {
		if p.ID != leaver {
			s.deliver(p, msg)
		}
	}
}

func (s *Session) broadcast(msg protocol.Message) {
	for _, p := range s.players {
		s.deliver(p, msg)
	}
}

func (s *Session) deliver(p Participant, msg protocol.Message) {
	if err := p.send(msg); err != nil {
		deliveryFailures.Inc()
		s.log.Warn("delivery failed", "participant", p.ID, "type", msg.Type, "error", err)
	}
}

func optional(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
