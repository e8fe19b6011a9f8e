package match

import (
	"errors"
	"sync"
	"testing"

	"rps_arena/internal/protocol"
)

var errSinkClosed = errors.New("sink closed")

// recorder is an in-memory Sink.
type recorder struct {
	mu     sync.Mutex
	msgs   []protocol.Message
	closed bool
}

func (r *recorder) Send(msg protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errSinkClosed
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.msgs))
	for i, m := range r.msgs {
		out[i] = m.Type
	}
	return out
}

func (r *recorder) last(typ string) (protocol.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.msgs) - 1; i >= 0; i-- {
		if r.msgs[i].Type == typ {
			return r.msgs[i], true
		}
	}
	return protocol.Message{}, false
}

func (r *recorder) count(typ string) int {
	n := 0
	for _, t := range r.types() {
		if t == typ {
			n++
		}
	}
	return n
}

func participant(id string) (Participant, *recorder) {
	r := &recorder{}
	return Participant{ID: id, Sink: r}, r
}

func playingSession(t *testing.T, cfg Config) (*Session, *recorder, *recorder) {
	t.Helper()
	s := NewSession("s-1", cfg)
	p1, r1 := participant("p1")
	p2, r2 := participant("p2")
	if !s.Join(p1) || !s.Join(p2) {
		t.Fatalf("both participants must join a fresh session")
	}
	return s, r1, r2
}
