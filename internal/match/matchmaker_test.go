package match

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"rps_arena/internal/game"
	"rps_arena/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) Announce(n Notice) {
	l.mu.Lock()
	l.notices = append(l.notices, n)
	l.mu.Unlock()
}

func (l *noticeLog) kinds() []NoticeKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]NoticeKind, len(l.notices))
	for i, n := range l.notices {
		out[i] = n.Kind
	}
	return out
}

func pair(t *testing.T, m *Matchmaker) (string, *recorder, *recorder) {
	t.Helper()
	p1, r1 := participant("p1")
	p2, r2 := participant("p2")

	res, err := m.RequestMatch(p1)
	require.NoError(t, err)
	require.Equal(t, MatchResult{Waiting: true}, res)

	res, err = m.RequestMatch(p2)
	require.NoError(t, err)
	require.True(t, res.Matched)
	require.NotEmpty(t, res.SessionID)
	return res.SessionID, r1, r2
}

func TestRequestMatchPairsInArrivalOrder(t *testing.T) {
	m := NewMatchmaker(DefaultConfig(), nil)
	sid, r1, r2 := pair(t, m)

	assert.Equal(t, Stats{TotalSessions: 1, ActiveSessions: 1, Waiting: 0}, m.Stats())

	for _, r := range []*recorder{r1, r2} {
		msg, ok := r.last(protocol.MsgGameStart)
		require.True(t, ok)
		assert.Equal(t, sid, msg.Payload.(protocol.GameStartPayload).RoomID)
	}

	got, ok := m.SessionOf("p1")
	require.True(t, ok)
	assert.Equal(t, sid, got)

	p3, _ := participant("p3")
	res, err := m.RequestMatch(p3)
	require.NoError(t, err)
	assert.True(t, res.Waiting)
	assert.Equal(t, 1, m.Stats().Waiting)
}

func TestRequestMatchTwiceDoesNotDuplicate(t *testing.T) {
	m := NewMatchmaker(DefaultConfig(), nil)
	p1, _ := participant("p1")

	for i := 0; i < 3; i++ {
		res, err := m.RequestMatch(p1)
		require.NoError(t, err)
		assert.True(t, res.Waiting)
	}
	assert.Equal(t, 1, m.Stats().Waiting)
}

func TestRequestMatchWhilePlayingIsRejected(t *testing.T) {
	m := NewMatchmaker(DefaultConfig(), nil)
	pair(t, m)

	p1, _ := participant("p1")
	_, err := m.RequestMatch(p1)
	require.ErrorIs(t, err, ErrAlreadyInSession)
	assert.Equal(t, 0, m.Stats().Waiting)
}

func TestBestOfThreeScenario(t *testing.T) {
	notices := &noticeLog{}
	m := NewMatchmaker(DefaultConfig(), notices)
	sid, r1, r2 := pair(t, m)

	require.True(t, m.SubmitMove("p1", game.Rock))
	require.True(t, m.SubmitMove("p2", game.Scissors))
	res, _ := r1.last(protocol.MsgRoundResult)
	assert.Equal(t, map[string]int{"p1": 1, "p2": 0}, res.Payload.(protocol.RoundResultPayload).Scores)

	require.True(t, m.SubmitMove("p1", game.Paper))
	require.True(t, m.SubmitMove("p2", game.Rock))
	res, _ = r2.last(protocol.MsgRoundResult)
	payload := res.Payload.(protocol.RoundResultPayload)
	assert.Equal(t, 2, payload.Round)
	require.NotNil(t, payload.Winner)
	assert.Equal(t, "p1", *payload.Winner)
	assert.Equal(t, map[string]int{"p1": 2, "p2": 0}, payload.Scores)

	end, ok := r2.last(protocol.MsgGameEnd)
	require.True(t, ok, "reaching the threshold ends the match immediately")
	endPayload := end.Payload.(protocol.GameEndPayload)
	require.NotNil(t, endPayload.Winner)
	assert.Equal(t, "p1", *endPayload.Winner)

	assert.False(t, m.SubmitMove("p1", game.Rock), "finished match accepts no moves")
	_, mapped := m.SessionOf("p1")
	assert.False(t, mapped)

	assert.Equal(t, Stats{TotalSessions: 1, ActiveSessions: 0, Waiting: 0}, m.Stats(), "finished session lingers for stats")
	assert.Equal(t, []NoticeKind{NoticeStarted, NoticeEnded}, notices.kinds())
	assert.Equal(t, sid, notices.notices[1].SessionID)
}

// requeueSink asks for a new match the moment it hears the game ended.
type requeueSink struct {
	recorder
	m    *Matchmaker
	self Participant

	res MatchResult
	err error
}

func (r *requeueSink) Send(msg protocol.Message) error {
	if err := r.recorder.Send(msg); err != nil {
		return err
	}
	if msg.Type == protocol.MsgGameEnd {
		r.res, r.err = r.m.RequestMatch(r.self)
	}
	return nil
}

func TestRequeueOnGameEnd(t *testing.T) {
	m := NewMatchmaker(DefaultConfig(), nil)

	p1, _ := participant("p1")
	sink := &requeueSink{m: m}
	p2 := Participant{ID: "p2", Sink: sink}
	sink.self = p2

	_, err := m.RequestMatch(p1)
	require.NoError(t, err)
	res, err := m.RequestMatch(p2)
	require.NoError(t, err)
	require.True(t, res.Matched)

	for i := 0; i < 2; i++ {
		require.True(t, m.SubmitMove("p1", game.Rock))
		require.True(t, m.SubmitMove("p2", game.Scissors))
	}

	require.Equal(t, 1, sink.count(protocol.MsgGameEnd))
	require.NoError(t, sink.err)
	assert.True(t, sink.res.Waiting)
	assert.Equal(t, 1, m.Stats().Waiting)
}

func TestSplitRoundsThenDraw(t *testing.T) {
	cases := []struct {
		name      string
		maxRounds int
		ended     bool
	}{
		{"continues to round 4", 5, false},
		{"ends drawn at the limit", 3, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.MaxRounds = tc.maxRounds
			m := NewMatchmaker(cfg, nil)
			_, r1, _ := pair(t, m)

			m.SubmitMove("p1", game.Rock)
			m.SubmitMove("p2", game.Scissors)
			m.SubmitMove("p1", game.Paper)
			m.SubmitMove("p2", game.Scissors)
			m.SubmitMove("p1", game.Scissors)
			m.SubmitMove("p2", game.Scissors)

			res, _ := r1.last(protocol.MsgRoundResult)
			payload := res.Payload.(protocol.RoundResultPayload)
			assert.Equal(t, 3, payload.Round)
			assert.Nil(t, payload.Winner)
			assert.Equal(t, map[string]int{"p1": 1, "p2": 1}, payload.Scores)

			end, ended := r1.last(protocol.MsgGameEnd)
			assert.Equal(t, tc.ended, ended)
			if ended {
				assert.Nil(t, end.Payload.(protocol.GameEndPayload).Winner)
				return
			}
			next, _ := r1.last(protocol.MsgNextRound)
			assert.Equal(t, protocol.NextRoundPayload{Round: 4}, next.Payload)
		})
	}
}

func TestDepartureAbandonsMatch(t *testing.T) {
	notices := &noticeLog{}
	m := NewMatchmaker(DefaultConfig(), notices)
	_, r1, r2 := pair(t, m)

	m.RemoveParticipant("p1")

	left, ok := r2.last(protocol.MsgPlayerLeft)
	require.True(t, ok)
	assert.Equal(t, protocol.PlayerLeftPayload{PlayerID: "p1"}, left.Payload)
	assert.Zero(t, r1.count(protocol.MsgPlayerLeft))

	assert.Equal(t, Stats{}, m.Stats())
	assert.False(t, m.SubmitMove("p2", game.Rock))
	assert.Equal(t, []NoticeKind{NoticeStarted, NoticeAbandoned}, notices.kinds())

	m.RemoveParticipant("p1")
	m.RemoveParticipant("p2")
	assert.Equal(t, 1, r2.count(protocol.MsgPlayerLeft))
}

func TestDepartureMidRoundDoesNotResolve(t *testing.T) {
	m := NewMatchmaker(DefaultConfig(), nil)
	_, _, r2 := pair(t, m)

	require.True(t, m.SubmitMove("p2", game.Rock))
	m.RemoveParticipant("p1")

	assert.Zero(t, r2.count(protocol.MsgRoundResult))
	assert.Zero(t, r2.count(protocol.MsgGameEnd))
}

func TestRemoveWaitingParticipant(t *testing.T) {
	m := NewMatchmaker(DefaultConfig(), nil)
	p1, _ := participant("p1")
	_, err := m.RequestMatch(p1)
	require.NoError(t, err)

	m.RemoveParticipant("p1")
	m.RemoveParticipant("p1")
	assert.Equal(t, 0, m.Stats().Waiting)

	p2, _ := participant("p2")
	res, err := m.RequestMatch(p2)
	require.NoError(t, err)
	assert.True(t, res.Waiting, "a departed participant is never paired")
}

func TestRemoveAfterFinishSendsNothing(t *testing.T) {
	m := NewMatchmaker(DefaultConfig(), nil)
	_, _, r2 := pair(t, m)
	for i := 0; i < 2; i++ {
		m.SubmitMove("p1", game.Rock)
		m.SubmitMove("p2", game.Scissors)
	}

	m.RemoveParticipant("p1")
	assert.Zero(t, r2.count(protocol.MsgPlayerLeft))
}

func TestSubmitMoveOutsideMatch(t *testing.T) {
	m := NewMatchmaker(DefaultConfig(), nil)
	assert.False(t, m.SubmitMove("ghost", game.Rock))

	p1, _ := participant("p1")
	m.RequestMatch(p1)
	assert.False(t, m.SubmitMove("p1", game.Rock), "queued participant has no session")

	other := NewMatchmaker(DefaultConfig(), nil)
	pair(t, other)
	assert.False(t, other.SubmitMove("p1", game.Choice("lizard")))
}

func TestStaleMappingIsTreatedAsNotFound(t *testing.T) {
	m := NewMatchmaker(DefaultConfig(), nil)
	m.participants["p1"] = "gone"

	assert.False(t, m.SubmitMove("p1", game.Rock))
	_, ok := m.SessionOf("p1")
	assert.False(t, ok)
}

func TestSweepDropsLingeringSessions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionLinger = time.Minute
	m := NewMatchmaker(cfg, nil)
	pair(t, m)
	for i := 0; i < 2; i++ {
		m.SubmitMove("p1", game.Rock)
		m.SubmitMove("p2", game.Scissors)
	}

	assert.Zero(t, m.sweep(time.Now()))
	assert.Equal(t, 1, m.Stats().TotalSessions)

	assert.Equal(t, 1, m.sweep(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, m.Stats().TotalSessions)
}

func TestConcurrentSessionsResolveOncePerRound(t *testing.T) {
	m := NewMatchmaker(DefaultConfig(), nil)

	const sessions = 50
	recorders := make([][2]*recorder, sessions)
	for i := 0; i < sessions; i++ {
		a, ra := participant(fmt.Sprintf("a%d", i))
		b, rb := participant(fmt.Sprintf("b%d", i))
		_, err := m.RequestMatch(a)
		require.NoError(t, err)
		res, err := m.RequestMatch(b)
		require.NoError(t, err)
		require.True(t, res.Matched)
		recorders[i] = [2]*recorder{ra, rb}
	}

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		for _, id := range []string{fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i)} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				m.SubmitMove(id, game.Rock)
			}(id)
		}
	}
	wg.Wait()

	for i, rs := range recorders {
		for _, r := range rs {
			assert.Equal(t, 1, r.count(protocol.MsgRoundResult), "session %d", i)
			assert.Equal(t, 1, r.count(protocol.MsgNextRound), "session %d", i)
		}
	}
	assert.Equal(t, Stats{TotalSessions: sessions, ActiveSessions: sessions}, m.Stats())
}

func TestConcurrentRequestsNeverDoubleBook(t *testing.T) {
	m := NewMatchmaker(DefaultConfig(), nil)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, _ := participant(fmt.Sprintf("p%d", i))
			_, err := m.RequestMatch(p)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	st := m.Stats()
	assert.Equal(t, n/2, st.TotalSessions)
	assert.Equal(t, 0, st.Waiting)

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		sid, ok := m.SessionOf(fmt.Sprintf("p%d", i))
		require.True(t, ok)
		seen[sid] = true
	}
	assert.Len(t, seen, n/2)
}
