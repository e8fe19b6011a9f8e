package match

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"rps_arena/internal/game"
	"rps_arena/internal/logger"
	"rps_arena/internal/protocol"

	"github.com/google/uuid"
)

var ErrAlreadyInSession = errors.New("participant is already in a match")

// MatchResult is the answer to a match request: either paired into
// SessionID or parked in the queue.
type MatchResult struct {
	Matched   bool
	Waiting   bool
	SessionID string
}

type Stats struct {
	TotalSessions  int `json:"total_rooms"`
	ActiveSessions int `json:"active_games"`
	Waiting        int `json:"waiting_players"`
}

// entry guards one session. Every mutation of the session happens under mu.
type entry struct {
	mu      sync.Mutex
	session *Session
	removed bool

	// immutable after registration; readable without mu
	players []string
	// unix nanos of Finish, zero while the match is live
	finishedAt atomic.Int64
}

// Matchmaker pairs waiting participants in arrival order and routes moves to
// their sessions.
//
// queueMu is taken before regMu. An entry's mu may be held while taking
// either of them, never the reverse: neither is held while waiting on an
// entry that other goroutines can reach.
type Matchmaker struct {
	cfg       Config
	announcer Announcer
	log       *slog.Logger
	newID     func() string

	queueMu sync.Mutex
	queue   []Participant

	regMu        sync.RWMutex
	sessions     map[string]*entry
	participants map[string]string
}

func NewMatchmaker(cfg Config, announcer Announcer) *Matchmaker {
	if announcer == nil {
		announcer = nopAnnouncer{}
	}
	return &Matchmaker{
		cfg:          cfg,
		announcer:    announcer,
		log:          logger.With("component", "matchmaker"),
		newID:        uuid.NewString,
		sessions:     make(map[string]*entry),
		participants: make(map[string]string),
	}
}

func (m *Matchmaker) Config() Config { return m.cfg }

// RequestMatch pairs p with the longest-waiting participant, or queues p if
// nobody is waiting.
func (m *Matchmaker) RequestMatch(p Participant) (MatchResult, error) {
	m.queueMu.Lock()

	m.regMu.RLock()
	_, busy := m.participants[p.ID]
	m.regMu.RUnlock()
	if busy {
		m.queueMu.Unlock()
		return MatchResult{}, ErrAlreadyInSession
	}

	if m.queuedLocked(p.ID) {
		m.queueMu.Unlock()
		return MatchResult{Waiting: true}, nil
	}

	if len(m.queue) == 0 {
		m.queue = append(m.queue, p)
		n := len(m.queue)
		m.queueMu.Unlock()
		m.log.Info("participant queued", "participant", p.ID, "waiting", n)
		return MatchResult{Waiting: true}, nil
	}

	opponent := m.queue[0]
	m.queue[0] = Participant{}
	m.queue = m.queue[1:]

	s := NewSession(m.newID(), m.cfg)
	s.Join(opponent)
	s.Join(p)

	// The entry is locked before it becomes reachable so nothing can act on
	// the session ahead of the start announcement.
	e := &entry{session: s, players: s.ParticipantIDs()}
	e.mu.Lock()

	m.regMu.Lock()
	m.sessions[s.ID] = e
	m.participants[opponent.ID] = s.ID
	m.participants[p.ID] = s.ID
	m.regMu.Unlock()
	m.queueMu.Unlock()

	s.Start()
	e.mu.Unlock()

	matchesStarted.Inc()
	m.log.Info("match created", "session", s.ID, "first", opponent.ID, "second", p.ID)
	m.announcer.Announce(Notice{
		Kind:      NoticeStarted,
		SessionID: s.ID,
		Players:   e.players,
		At:        time.Now(),
	})

	return MatchResult{Matched: true, SessionID: s.ID}, nil
}

// SubmitMove forwards a move to the participant's session and, once the round
// is complete, resolves it and either advances or ends the match. It returns
// false when the participant has no live session or the move was refused.
func (m *Matchmaker) SubmitMove(id string, c game.Choice) bool {
	if !c.Valid() {
		return false
	}

	e := m.lookup(id)
	if e == nil {
		return false
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return false
	}

	s := e.session
	if s.Status() != StatusPlaying || !s.Has(id) {
		e.mu.Unlock()
		return false
	}

	if !s.SubmitMove(id, c) {
		e.mu.Unlock()
		return true
	}

	out, err := s.ResolveRound()
	if err != nil {
		e.removed = true
		m.drop(s.ID, e)
		s.broadcast(protocol.Error("match aborted"))
		e.mu.Unlock()

		m.log.Error("round resolution broke its contract, aborting session", "session", s.ID, "error", err)
		matchesAbandoned.WithLabelValues("invalid_state").Inc()
		m.announcer.Announce(Notice{Kind: NoticeAbandoned, SessionID: s.ID, Players: e.players, Reason: "invalid_state", At: time.Now()})
		return false
	}

	roundsResolved.Inc()
	s.announceRound(out)

	if !s.ShouldEnd() {
		s.AdvanceRound()
		s.announceNext()
		e.mu.Unlock()
		return true
	}

	// mappings go before gameEnd so a participant can queue again as soon
	// as it hears the match is over
	winner, _ := s.Finish()
	e.finishedAt.Store(time.Now().UnixNano())
	m.release(s.ID, e.players)
	s.announceEnd(winner)
	notice := Notice{
		Kind:      NoticeEnded,
		SessionID: s.ID,
		Players:   e.players,
		Winner:    winner,
		Scores:    s.Scores(),
		Rounds:    s.Round(),
		At:        time.Now(),
	}
	e.mu.Unlock()

	result := "win"
	if winner == "" {
		result = "draw"
	}
	matchesFinished.WithLabelValues(result).Inc()
	m.log.Info("match finished", "session", s.ID, "winner", winner, "rounds", notice.Rounds)
	m.announcer.Announce(notice)
	return true
}

// RemoveParticipant forgets id entirely. A live match it belonged to is
// abandoned and the opponent told so. Calling it twice is harmless.
func (m *Matchmaker) RemoveParticipant(id string) {
	m.queueMu.Lock()
	m.dequeueLocked(id)

	m.regMu.Lock()
	sid, ok := m.participants[id]
	var e *entry
	if ok {
		delete(m.participants, id)
		e = m.sessions[sid]
		delete(m.sessions, sid)
		if e != nil {
			for _, pid := range e.players {
				if m.participants[pid] == sid {
					delete(m.participants, pid)
				}
			}
		}
	}
	m.regMu.Unlock()
	m.queueMu.Unlock()

	if e == nil {
		return
	}

	e.mu.Lock()
	e.removed = true
	finished := e.session.Status() == StatusFinished
	if !finished {
		e.session.NotifyLeft(id)
	}
	e.mu.Unlock()

	if finished {
		return
	}

	matchesAbandoned.WithLabelValues("participant_left").Inc()
	m.log.Info("match abandoned", "session", sid, "participant", id)
	m.announcer.Announce(Notice{Kind: NoticeAbandoned, SessionID: sid, Players: e.players, Reason: "participant_left", At: time.Now()})
}

// Stats is a read-only snapshot of the registry.
func (m *Matchmaker) Stats() Stats {
	m.queueMu.Lock()
	waiting := len(m.queue)
	m.queueMu.Unlock()

	m.regMu.RLock()
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.regMu.RUnlock()

	active := 0
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed && e.session.Status() == StatusPlaying {
			active++
		}
		e.mu.Unlock()
	}

	return Stats{TotalSessions: len(entries), ActiveSessions: active, Waiting: waiting}
}

// SessionOf returns the id of the live session id is playing in.
func (m *Matchmaker) SessionOf(id string) (string, bool) {
	m.regMu.RLock()
	defer m.regMu.RUnlock()
	sid, ok := m.participants[id]
	return sid, ok
}

// StartCleanup periodically drops finished sessions that outlived the linger.
func (m *Matchmaker) StartCleanup(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := m.sweep(now); n > 0 {
					m.log.Debug("swept finished sessions", "count", n)
				}
			}
		}
	}()
}

// StartMonitor periodically logs a stats snapshot.
func (m *Matchmaker) StartMonitor(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := m.Stats()
				m.log.Info("matchmaker stats",
					"total_rooms", st.TotalSessions,
					"active_games", st.ActiveSessions,
					"waiting_players", st.Waiting,
				)
			}
		}
	}()
}

func (m *Matchmaker) sweep(now time.Time) int {
	cutoff := now.Add(-m.cfg.SessionLinger).UnixNano()

	m.regMu.Lock()
	defer m.regMu.Unlock()

	n := 0
	for sid, e := range m.sessions {
		if at := e.finishedAt.Load(); at != 0 && at <= cutoff {
			delete(m.sessions, sid)
			n++
		}
	}
	return n
}

// lookup resolves a participant to its entry. A mapping that points at a
// missing session is stale and gets dropped.
func (m *Matchmaker) lookup(id string) *entry {
	m.regMu.RLock()
	sid, ok := m.participants[id]
	e := m.sessions[sid]
	m.regMu.RUnlock()

	if !ok || e != nil {
		return e
	}

	m.regMu.Lock()
	if m.participants[id] == sid && m.sessions[sid] == nil {
		delete(m.participants, id)
		m.log.Warn("dropped stale participant mapping", "participant", id, "session", sid)
	}
	m.regMu.Unlock()
	return nil
}

// release removes the participant mappings of a finished session while
// leaving the session itself visible until swept.
func (m *Matchmaker) release(sid string, players []string) {
	m.regMu.Lock()
	defer m.regMu.Unlock()
	for _, pid := range players {
		if m.participants[pid] == sid {
			delete(m.participants, pid)
		}
	}
}

func (m *Matchmaker) drop(sid string, e *entry) {
	m.regMu.Lock()
	defer m.regMu.Unlock()
	if m.sessions[sid] == e {
		delete(m.sessions, sid)
	}
	for _, pid := range e.players {
		if m.participants[pid] == sid {
			delete(m.participants, pid)
		}
	}
}

func (m *Matchmaker) queuedLocked(id string) bool {
	for _, q := range m.queue {
		if q.ID == id {
			return true
		}
	}
	return false
}

func (m *Matchmaker) dequeueLocked(id string) {
	for i, q := range m.queue {
		if q.ID == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}
